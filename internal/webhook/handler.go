// Package webhook implements the GitHub webhook ingestion endpoint.
package webhook

import (
	"io"
	"net/http"

	"github.com/user/ghrelay/internal/github"
	"github.com/user/ghrelay/internal/notifier"
	"github.com/user/ghrelay/pkg/logger"
)

// Event kinds acknowledged without fan-out.
var ignoredKinds = map[string]bool{
	string(github.KindPing):   true,
	string(github.KindMember): true,
}

// Deliverer fans an event out to its subscribers.
type Deliverer interface {
	Deliver(ev *github.Event) (notifier.Result, error)
}

// Handler verifies, filters and dispatches inbound webhook deliveries.
type Handler struct {
	secret   string
	delivery Deliverer
}

// NewHandler creates a webhook handler.
func NewHandler(secret string, delivery Deliverer) *Handler {
	return &Handler{secret: secret, delivery: delivery}
}

// ServeHTTP handles one webhook delivery. The response never reflects
// per-recipient delivery outcomes: 401 for a bad signature, 400 for a
// structurally unusable request, 200 otherwise.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to read webhook body")
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if !github.VerifySignature(body, r.Header.Get("X-Hub-Signature-256"), h.secret) {
		logger.Warn().Msg("Invalid webhook signature")
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	kind := r.Header.Get("X-GitHub-Event")
	if kind == "" {
		http.Error(w, "Missing event type", http.StatusBadRequest)
		return
	}

	if ignoredKinds[kind] {
		logger.Debug().Str("event", kind).Msg("Ignoring event kind")
		h.ok(w)
		return
	}

	ev, err := github.ParseEvent(kind, body)
	if err != nil {
		logger.Error().Err(err).Str("event", kind).Msg("Failed to parse event")
		http.Error(w, "Malformed payload", http.StatusBadRequest)
		return
	}

	logger.Info().Str("event", kind).Str("repository", ev.Repo.FullName).Msg("Webhook event received")

	// Delivery failures stay internal; the sender gets a 200 either way.
	if _, err := h.delivery.Deliver(ev); err != nil {
		logger.Error().Err(err).Str("event", kind).Str("repository", ev.Repo.FullName).Msg("Failed to handle event")
	}

	h.ok(w)
}

func (h *Handler) ok(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Webhook received"))
}
