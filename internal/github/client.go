package github

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

// Webhook events registered for each subscribed repository.
var hookEvents = []string{"push", "pull_request", "issues", "fork", "star", "create"}

// Client wraps the GitHub API client.
type Client struct {
	client *github.Client
}

// NewClient creates a new GitHub API client.
// If token is empty, an unauthenticated client is created (with lower rate limits).
func NewClient(token string) *Client {
	var client *github.Client

	if token != "" {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: token},
		)
		tc := oauth2.NewClient(context.Background(), ts)
		client = github.NewClient(tc)
	} else {
		client = github.NewClient(nil)
	}

	return &Client{client: client}
}

// SplitRepo parses an "owner/name" repository identifier.
func SplitRepo(fullName string) (owner, name string, err error) {
	parts := strings.Split(strings.TrimSpace(fullName), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository %q, expected owner/name", fullName)
	}
	return parts[0], parts[1], nil
}

// EnsureWebhook registers callbackURL as a webhook on the repository unless a
// hook with that URL already exists. Re-running for an already registered
// repository is a no-op.
func (c *Client) EnsureWebhook(ctx context.Context, fullName, callbackURL, secret string) error {
	owner, name, err := SplitRepo(fullName)
	if err != nil {
		return err
	}

	hooks, _, err := c.client.Repositories.ListHooks(ctx, owner, name, nil)
	if err != nil {
		return fmt.Errorf("failed to list webhooks: %w", err)
	}
	for _, h := range hooks {
		if url, ok := h.Config["url"].(string); ok && url == callbackURL {
			return nil
		}
	}

	hook := &github.Hook{
		Name: github.String("web"),
		Config: map[string]interface{}{
			"url":          callbackURL,
			"content_type": "json",
			"secret":       secret,
		},
		Events: hookEvents,
		Active: github.Bool(true),
	}
	if _, _, err := c.client.Repositories.CreateHook(ctx, owner, name, hook); err != nil {
		return fmt.Errorf("failed to create webhook: %w", err)
	}
	return nil
}

// ValidateRepository checks if a repository exists and is accessible.
func (c *Client) ValidateRepository(ctx context.Context, fullName string) (bool, error) {
	owner, name, err := SplitRepo(fullName)
	if err != nil {
		return false, err
	}
	_, _, err = c.client.Repositories.Get(ctx, owner, name)
	if err != nil {
		if _, ok := err.(*github.RateLimitError); ok {
			return false, fmt.Errorf("rate limit exceeded")
		}
		// Repository not found or private
		return false, nil
	}
	return true, nil
}
