package notifier

import (
	"html"
	"strconv"
	"strings"

	"github.com/user/ghrelay/internal/github"
	"github.com/user/ghrelay/internal/i18n"
)

// Renderer turns events into localized HTML message bodies. It is pure:
// identical (event, language) inputs always produce identical output, and the
// only read is the already-loaded translation mapping.
type Renderer struct {
	catalog *i18n.Catalog
}

// NewRenderer creates a renderer over the given catalog.
func NewRenderer(catalog *i18n.Catalog) *Renderer {
	return &Renderer{catalog: catalog}
}

// Render produces the message body for an event in the given language. An
// empty result means the event is suppressed and must not be delivered.
func (r *Renderer) Render(ev *github.Event, lang string) string {
	tr := r.catalog.Load(lang)

	switch p := ev.Payload.(type) {
	case *github.PushPayload:
		return r.renderPush(tr, ev, p)
	case *github.IssuesPayload:
		return r.renderIssues(tr, ev, p)
	case *github.PullRequestPayload:
		return r.renderPullRequest(tr, ev, p)
	case *github.StarPayload:
		return r.renderStar(tr, ev, p)
	case *github.CreatePayload:
		return i18n.Substitute(tr.T("create.message"), map[string]string{
			"refType": escapeHTML(p.RefType),
			"ref":     escapeHTML(p.Ref),
			"repo":    escapeHTML(ev.Repo.FullName),
			"repoUrl": escapeHTML(ev.Repo.HTMLURL),
			"actor":   userLink(ev.Sender),
		})
	case *github.ForkPayload:
		return i18n.Substitute(tr.T("fork.message"), map[string]string{
			"repo":    escapeHTML(ev.Repo.FullName),
			"repoUrl": escapeHTML(ev.Repo.HTMLURL),
			"count":   strconv.Itoa(ev.Repo.Forks),
			"fork":    escapeHTML(p.ForkFullName),
			"forkUrl": escapeHTML(p.ForkHTMLURL),
			"actor":   userLink(p.Owner),
		})
	default:
		return ""
	}
}

func (r *Renderer) renderPush(tr i18n.Translations, ev *github.Event, p *github.PushPayload) string {
	branch := branchName(p.Ref)

	if p.Deleted {
		return i18n.Substitute(tr.T("push.branchDeleted"), map[string]string{
			"branch":  escapeHTML(branch),
			"repo":    escapeHTML(ev.Repo.FullName),
			"repoUrl": escapeHTML(ev.Repo.HTMLURL),
			"actor":   userLink(ev.Sender),
		})
	}

	if len(p.Commits) == 0 {
		return ""
	}

	header := i18n.Substitute(tr.T("push.header"), map[string]string{
		"repo":       escapeHTML(ev.Repo.FullName),
		"repoUrl":    escapeHTML(ev.Repo.HTMLURL),
		"branch":     escapeHTML(branch),
		"count":      strconv.Itoa(len(p.Commits)),
		"compareUrl": escapeHTML(p.Compare),
	})

	lines := make([]string, len(p.Commits))
	for i, c := range p.Commits {
		lines[i] = i18n.Substitute(tr.T("push.commit"), map[string]string{
			"sha":       escapeHTML(shortSHA(c.ID)),
			"commitUrl": escapeHTML(c.URL),
			"author":    commitAuthor(c),
			// Payload text may arrive with entities already encoded; decode
			// first so escaping does not double-encode them.
			"message": escapeHTML(html.UnescapeString(c.Message)),
		})
	}

	return header + "\n\n<blockquote expandable>" + strings.Join(lines, "\n") + "</blockquote>"
}

func (r *Renderer) renderIssues(tr i18n.Translations, ev *github.Event, p *github.IssuesPayload) string {
	status := ""
	if p.State != "" {
		status = "(" + escapeHTML(p.State) + ")"
	}
	return i18n.Substitute(tr.T("issues.message"), map[string]string{
		"action":   translateAction(tr, p.Action),
		"status":   status,
		"repo":     escapeHTML(ev.Repo.FullName),
		"issueUrl": escapeHTML(p.URL),
		"title":    escapeHTML(p.Title),
		"body":     escapeHTML(truncate(bodyOrDefault(tr, p.Body), maxBodyLength)),
		"number":   strconv.Itoa(p.Number),
		"actor":    userLink(p.User),
	})
}

func (r *Renderer) renderPullRequest(tr i18n.Translations, ev *github.Event, p *github.PullRequestPayload) string {
	return i18n.Substitute(tr.T("pull_request.message"), map[string]string{
		"action":  translateAction(tr, p.Action),
		"commits": strconv.Itoa(p.Commits),
		"repo":    escapeHTML(ev.Repo.FullName),
		"prUrl":   escapeHTML(p.URL),
		"title":   escapeHTML(p.Title),
		"body":    escapeHTML(truncate(bodyOrDefault(tr, p.Body), maxBodyLength)),
		"number":  strconv.Itoa(p.Number),
		"actor":   userLink(p.User),
	})
}

func (r *Renderer) renderStar(tr i18n.Translations, ev *github.Event, p *github.StarPayload) string {
	key := "star.added"
	if p.Action == "deleted" {
		key = "star.removed"
	}
	return i18n.Substitute(tr.T(key), map[string]string{
		"repo":    escapeHTML(ev.Repo.FullName),
		"repoUrl": escapeHTML(ev.Repo.HTMLURL),
		"count":   strconv.Itoa(ev.Repo.Stars),
		"actor":   userLink(ev.Sender),
	})
}

// maxBodyLength bounds issue and pull request bodies before the ellipsis.
const maxBodyLength = 200

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// escapeHTML escapes the characters Telegram's HTML parse mode treats as
// markup. Every interpolated payload field goes through it; only the
// template's own markers stay literal.
func escapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// translateAction looks the action up in the catalog, falling back to the
// raw action string when untranslated.
func translateAction(tr i18n.Translations, action string) string {
	if t := tr.T("action." + action); t != "" {
		return t
	}
	return escapeHTML(action)
}

func bodyOrDefault(tr i18n.Translations, body string) string {
	if body == "" {
		return tr.T("noDescription")
	}
	return body
}

// userLink renders an actor as a profile link, or plain @login when no URL
// is available.
func userLink(u github.User) string {
	if u.HTMLURL != "" {
		return `<a href="` + escapeHTML(u.HTMLURL) + `">@` + escapeHTML(u.Login) + `</a>`
	}
	return "@" + escapeHTML(u.Login)
}

// commitAuthor renders a commit author as a profile link when a GitHub
// handle is present, or the plain name otherwise.
func commitAuthor(c github.Commit) string {
	name := c.AuthorName
	if name == "" {
		name = "Unknown"
	}
	if c.AuthorUsername == "" {
		return escapeHTML(name)
	}
	return `<a href="https://github.com/` + escapeHTML(c.AuthorUsername) + `">` +
		escapeHTML(name) + " (@" + escapeHTML(c.AuthorUsername) + ")</a>"
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

// branchName extracts the final ref segment: refs/heads/main -> main.
func branchName(ref string) string {
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		return ref[i+1:]
	}
	return ref
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
