package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/forgesmith/revpilot/internal/config"
	"github.com/forgesmith/revpilot/internal/core"
	"github.com/forgesmith/revpilot/internal/server/handler"
	"github.com/forgesmith/revpilot/internal/storage"
)

// NewRouter creates and configures a new HTTP router with middleware and API routes.
func NewRouter(cfg *config.Config, provider core.ForgeProvider, store storage.Store, dispatcher core.JobDispatcher, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		webhookHandler := handler.NewWebhookHandler(cfg, provider, store, dispatcher, logger)
		r.Post("/webhook/{provider}", webhookHandler.Handle)

		runsHandler := handler.NewRunsHandler(store, dispatcher, logger)
		r.Get("/runs/{id}", runsHandler.Get)
		r.Post("/runs/{id}/retry", runsHandler.Retry)
		r.Get("/repos/{owner}/{repo}/pulls/{number}/runs", runsHandler.ListForPR)
	})

	return r
}
