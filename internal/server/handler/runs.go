package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/forgesmith/revpilot/internal/core"
	"github.com/forgesmith/revpilot/internal/storage"
)

const defaultListLimit = 20

// RunsHandler exposes review run records and the operator retry action.
type RunsHandler struct {
	store      storage.Store
	dispatcher core.JobDispatcher
	logger     *slog.Logger
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(store storage.Store, dispatcher core.JobDispatcher, logger *slog.Logger) *RunsHandler {
	return &RunsHandler{
		store:      store,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// runResponse is the API view of a review run.
type runResponse struct {
	ID           string `json:"id"`
	Provider     string `json:"provider"`
	RepoFullName string `json:"repo_full_name"`
	PRNumber     int    `json:"pr_number"`
	HeadSHA      string `json:"head_sha,omitempty"`
	TriggeredBy  string `json:"triggered_by,omitempty"`
	Status       string `json:"status"`
	Decision     string `json:"decision,omitempty"`
	Summary      string `json:"summary,omitempty"`
	CommentCount int    `json:"comment_count"`
	Error        string `json:"error,omitempty"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

func toRunResponse(run *core.ReviewRun) runResponse {
	return runResponse{
		ID:           run.ID,
		Provider:     run.Provider,
		RepoFullName: run.RepoFullName,
		PRNumber:     run.PRNumber,
		HeadSHA:      run.HeadSHA,
		TriggeredBy:  run.TriggeredBy,
		Status:       string(run.Status),
		Decision:     run.Decision,
		Summary:      run.Summary,
		CommentCount: run.CommentCount,
		Error:        run.Error,
		CreatedAt:    run.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:    run.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// Get returns one review run by id.
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := h.store.GetRun(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrRunNotFound) {
			http.Error(w, "Run not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load review run", "error", err, "run_id", id)
		http.Error(w, "Failed to load run", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, toRunResponse(run))
}

// ListForPR returns the most recent runs of one pull request.
func (h *RunsHandler) ListForPR(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	repo := chi.URLParam(r, "repo")
	number, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil || number <= 0 {
		http.Error(w, "Invalid pull request number", http.StatusBadRequest)
		return
	}

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	runs, err := h.store.ListRunsForPR(r.Context(), owner+"/"+repo, number, limit)
	if err != nil {
		h.logger.Error("failed to list review runs", "error", err, "repo", owner+"/"+repo, "pr", number)
		http.Error(w, "Failed to list runs", http.StatusInternalServerError)
		return
	}

	out := make([]runResponse, 0, len(runs))
	for i := range runs {
		out = append(out, toRunResponse(&runs[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": out})
}

// Retry moves a failed run back to pending and re-queues it. Only failed runs
// can be retried; the event is rebuilt from the persisted run record.
func (h *RunsHandler) Retry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := h.store.GetRun(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrRunNotFound) {
			http.Error(w, "Run not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load review run", "error", err, "run_id", id)
		http.Error(w, "Failed to load run", http.StatusInternalServerError)
		return
	}

	if run.Status != core.RunFailed {
		http.Error(w, "Only failed runs can be retried", http.StatusConflict)
		return
	}

	if err := h.store.ResetForRetry(r.Context(), id); err != nil {
		h.logger.Error("failed to reset review run", "error", err, "run_id", id)
		http.Error(w, "Failed to reset run", http.StatusInternalServerError)
		return
	}

	event := eventFromRun(run)
	if err := h.dispatcher.Dispatch(r.Context(), run.ID, event); err != nil {
		h.logger.Error("failed to dispatch retried run", "error", err, "run_id", run.ID)
		if markErr := h.store.MarkFailed(r.Context(), run.ID, "job queue full"); markErr != nil {
			h.logger.Error("failed to record dispatch failure", "error", markErr, "run_id", run.ID)
		}
		http.Error(w, "Review queue is full", http.StatusServiceUnavailable)
		return
	}

	h.logger.Info("review run retried", "run_id", run.ID, "repo", run.RepoFullName, "pr", run.PRNumber)
	writeJSON(w, http.StatusAccepted, map[string]string{"run_id": run.ID})
}

// eventFromRun rebuilds the minimal event a retried run needs. The pipeline
// refetches the pull request state, so only the coordinates matter.
func eventFromRun(run *core.ReviewRun) *core.ReviewEvent {
	owner, repo, _ := strings.Cut(run.RepoFullName, "/")
	return &core.ReviewEvent{
		Type:         core.EventPRUpdated,
		Provider:     run.Provider,
		RepoOwner:    owner,
		RepoName:     repo,
		RepoFullName: run.RepoFullName,
		PRNumber:     run.PRNumber,
		HeadSHA:      run.HeadSHA,
		Sender:       run.TriggeredBy,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
