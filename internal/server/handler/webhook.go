// Package handler provides the HTTP handlers for the webhook and run APIs.
package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/forgesmith/revpilot/internal/config"
	"github.com/forgesmith/revpilot/internal/core"
	"github.com/forgesmith/revpilot/internal/storage"
)

// maxPayloadBytes caps the webhook body; forge payloads are far smaller.
const maxPayloadBytes = 10 << 20

// WebhookHandler processes incoming webhook deliveries from the configured forge.
type WebhookHandler struct {
	cfg        *config.Config
	provider   core.ForgeProvider
	store      storage.Store
	dispatcher core.JobDispatcher
	logger     *slog.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(cfg *config.Config, provider core.ForgeProvider, store storage.Store, dispatcher core.JobDispatcher, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		cfg:        cfg,
		provider:   provider,
		store:      store,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Handle verifies, parses and dispatches one webhook delivery. The signature
// is always checked before the payload is parsed.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "provider") != h.provider.Kind() {
		http.Error(w, "Unknown provider", http.StatusNotFound)
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil {
		h.logger.Error("could not read webhook body", "error", err)
		http.Error(w, "Could not read body", http.StatusBadRequest)
		return
	}

	signature := r.Header.Get(signatureHeader(h.provider.Kind()))
	if !h.provider.VerifyWebhookSignature(payload, signature, h.cfg.ForgeWebhookSecret) {
		h.logger.Error("invalid webhook payload signature", "provider", h.provider.Kind())
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	headers := make(map[string]string, len(r.Header))
	for key := range r.Header {
		headers[key] = r.Header.Get(key)
	}

	event, err := h.provider.ParseWebhookEvent(payload, headers)
	if err != nil {
		h.logger.Error("could not parse webhook", "error", err)
		http.Error(w, "Could not parse webhook", http.StatusBadRequest)
		return
	}
	if event == nil || !event.ShouldTriggerReview() {
		h.logger.Debug("ignoring webhook delivery", "provider", h.provider.Kind())
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Event ignored"))
		return
	}

	run := &core.ReviewRun{
		ID:           storage.NewRunID(),
		Provider:     event.Provider,
		RepoFullName: event.RepoFullName,
		PRNumber:     event.PRNumber,
		HeadSHA:      event.HeadSHA,
		TriggeredBy:  event.Sender,
	}
	if err := h.store.CreateRun(r.Context(), run); err != nil {
		h.logger.Error("failed to create review run", "error", err, "repo", event.RepoFullName)
		http.Error(w, "Failed to create review run", http.StatusInternalServerError)
		return
	}

	if err := h.dispatcher.Dispatch(r.Context(), run.ID, event); err != nil {
		h.logger.Error("failed to dispatch review job", "error", err, "run_id", run.ID)
		if markErr := h.store.MarkFailed(r.Context(), run.ID, "job queue full"); markErr != nil {
			h.logger.Error("failed to record dispatch failure", "error", markErr, "run_id", run.ID)
		}
		http.Error(w, "Review queue is full", http.StatusServiceUnavailable)
		return
	}

	h.logger.Info("review run accepted",
		"run_id", run.ID,
		"repo", event.RepoFullName,
		"pr", event.PRNumber,
		"trigger", event.Type,
	)
	writeJSON(w, http.StatusAccepted, map[string]string{"run_id": run.ID})
}

// signatureHeader returns the HMAC signature header a forge kind sends.
func signatureHeader(kind string) string {
	switch kind {
	case "github":
		return "X-Hub-Signature-256"
	default:
		return "X-Gitea-Signature"
	}
}
