// Package github provides webhook event parsing, signature verification and
// a GitHub API client for webhook registration.
package github

import (
	"encoding/json"
	"fmt"
)

// Kind identifies a webhook event type.
type Kind string

// Event kinds carried in the X-GitHub-Event header.
const (
	KindPush        Kind = "push"
	KindIssues      Kind = "issues"
	KindPullRequest Kind = "pull_request"
	KindStar        Kind = "star"
	KindCreate      Kind = "create"
	KindFork        Kind = "fork"
	KindPing        Kind = "ping"
	KindMember      Kind = "member"
)

// Event is a parsed webhook event. Payload is nil for kinds the renderer
// suppresses.
type Event struct {
	Kind    Kind
	Repo    Repository
	Sender  User
	Payload Payload
}

// Repository describes the event's source repository.
type Repository struct {
	FullName string
	HTMLURL  string
	Stars    int
	Forks    int
}

// User describes a GitHub account referenced by an event.
type User struct {
	Login   string
	HTMLURL string
}

// Payload is the closed set of per-kind event payloads. Adding a kind means
// adding a variant here and a case to the renderer.
type Payload interface {
	isPayload()
}

// PushPayload carries a push (commits) event.
type PushPayload struct {
	Ref     string
	Deleted bool
	Compare string
	Commits []Commit
	Pusher  string
}

// Commit is one commit within a push event.
type Commit struct {
	ID             string
	Message        string
	URL            string
	AuthorName     string
	AuthorUsername string
}

// IssuesPayload carries an issues event.
type IssuesPayload struct {
	Action string
	Number int
	Title  string
	Body   string
	State  string
	URL    string
	User   User
}

// PullRequestPayload carries a pull_request event.
type PullRequestPayload struct {
	Action  string
	Number  int
	Title   string
	Body    string
	URL     string
	Commits int
	User    User
}

// StarPayload carries a star event; Action is "created" or "deleted".
type StarPayload struct {
	Action string
}

// CreatePayload carries a branch/tag creation event.
type CreatePayload struct {
	Ref     string
	RefType string
}

// ForkPayload carries a fork event.
type ForkPayload struct {
	ForkFullName string
	ForkHTMLURL  string
	Owner        User
}

func (*PushPayload) isPayload()        {}
func (*IssuesPayload) isPayload()      {}
func (*PullRequestPayload) isPayload() {}
func (*StarPayload) isPayload()        {}
func (*CreatePayload) isPayload()      {}
func (*ForkPayload) isPayload()        {}

type jsonUser struct {
	Login   string `json:"login"`
	HTMLURL string `json:"html_url"`
}

// ParseEvent decodes a webhook body for the given kind. A body without a
// repository descriptor is structurally malformed and returns an error, since
// no recipient list can be resolved for it. Kinds with no payload variant
// parse successfully with a nil Payload.
func ParseEvent(kind string, body []byte) (*Event, error) {
	var base struct {
		Repository struct {
			FullName        string `json:"full_name"`
			HTMLURL         string `json:"html_url"`
			StargazersCount int    `json:"stargazers_count"`
			ForksCount      int    `json:"forks_count"`
		} `json:"repository"`
		Sender jsonUser `json:"sender"`
	}
	if err := json.Unmarshal(body, &base); err != nil {
		return nil, fmt.Errorf("failed to parse event body: %w", err)
	}
	if base.Repository.FullName == "" {
		return nil, fmt.Errorf("event has no repository descriptor")
	}

	ev := &Event{
		Kind: Kind(kind),
		Repo: Repository{
			FullName: base.Repository.FullName,
			HTMLURL:  base.Repository.HTMLURL,
			Stars:    base.Repository.StargazersCount,
			Forks:    base.Repository.ForksCount,
		},
		Sender: User{Login: base.Sender.Login, HTMLURL: base.Sender.HTMLURL},
	}

	switch Kind(kind) {
	case KindPush:
		var p struct {
			Ref     string `json:"ref"`
			Deleted bool   `json:"deleted"`
			Compare string `json:"compare"`
			Pusher  struct {
				Name string `json:"name"`
			} `json:"pusher"`
			Commits []struct {
				ID      string `json:"id"`
				Message string `json:"message"`
				URL     string `json:"url"`
				Author  struct {
					Name     string `json:"name"`
					Username string `json:"username"`
				} `json:"author"`
			} `json:"commits"`
		}
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, fmt.Errorf("failed to parse push event: %w", err)
		}
		commits := make([]Commit, len(p.Commits))
		for i, c := range p.Commits {
			commits[i] = Commit{
				ID:             c.ID,
				Message:        c.Message,
				URL:            c.URL,
				AuthorName:     c.Author.Name,
				AuthorUsername: c.Author.Username,
			}
		}
		ev.Payload = &PushPayload{
			Ref:     p.Ref,
			Deleted: p.Deleted,
			Compare: p.Compare,
			Commits: commits,
			Pusher:  p.Pusher.Name,
		}

	case KindIssues:
		var p struct {
			Action string `json:"action"`
			Issue  struct {
				Number  int      `json:"number"`
				Title   string   `json:"title"`
				Body    string   `json:"body"`
				State   string   `json:"state"`
				HTMLURL string   `json:"html_url"`
				User    jsonUser `json:"user"`
			} `json:"issue"`
		}
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, fmt.Errorf("failed to parse issues event: %w", err)
		}
		ev.Payload = &IssuesPayload{
			Action: p.Action,
			Number: p.Issue.Number,
			Title:  p.Issue.Title,
			Body:   p.Issue.Body,
			State:  p.Issue.State,
			URL:    p.Issue.HTMLURL,
			User:   User{Login: p.Issue.User.Login, HTMLURL: p.Issue.User.HTMLURL},
		}

	case KindPullRequest:
		var p struct {
			Action      string `json:"action"`
			PullRequest struct {
				Number  int      `json:"number"`
				Title   string   `json:"title"`
				Body    string   `json:"body"`
				HTMLURL string   `json:"html_url"`
				Commits int      `json:"commits"`
				User    jsonUser `json:"user"`
			} `json:"pull_request"`
		}
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, fmt.Errorf("failed to parse pull request event: %w", err)
		}
		ev.Payload = &PullRequestPayload{
			Action:  p.Action,
			Number:  p.PullRequest.Number,
			Title:   p.PullRequest.Title,
			Body:    p.PullRequest.Body,
			URL:     p.PullRequest.HTMLURL,
			Commits: p.PullRequest.Commits,
			User:    User{Login: p.PullRequest.User.Login, HTMLURL: p.PullRequest.User.HTMLURL},
		}

	case KindStar:
		var p struct {
			Action string `json:"action"`
		}
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, fmt.Errorf("failed to parse star event: %w", err)
		}
		ev.Payload = &StarPayload{Action: p.Action}

	case KindCreate:
		var p struct {
			Ref     string `json:"ref"`
			RefType string `json:"ref_type"`
		}
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, fmt.Errorf("failed to parse create event: %w", err)
		}
		ev.Payload = &CreatePayload{Ref: p.Ref, RefType: p.RefType}

	case KindFork:
		var p struct {
			Forkee struct {
				FullName string   `json:"full_name"`
				HTMLURL  string   `json:"html_url"`
				Owner    jsonUser `json:"owner"`
			} `json:"forkee"`
		}
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, fmt.Errorf("failed to parse fork event: %w", err)
		}
		ev.Payload = &ForkPayload{
			ForkFullName: p.Forkee.FullName,
			ForkHTMLURL:  p.Forkee.HTMLURL,
			Owner:        User{Login: p.Forkee.Owner.Login, HTMLURL: p.Forkee.Owner.HTMLURL},
		}

	default:
		// Unhandled kinds keep a nil payload; the renderer suppresses them.
	}

	return ev, nil
}
