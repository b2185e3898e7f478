// Package app initializes and orchestrates the main components of the
// service. It wires together the configuration, persistence, forge client,
// reviewer, job pipeline and HTTP server.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/forgesmith/revpilot/internal/config"
	"github.com/forgesmith/revpilot/internal/core"
	"github.com/forgesmith/revpilot/internal/db"
	"github.com/forgesmith/revpilot/internal/forge"
	"github.com/forgesmith/revpilot/internal/jobs"
	"github.com/forgesmith/revpilot/internal/reviewer"
	"github.com/forgesmith/revpilot/internal/server"
	"github.com/forgesmith/revpilot/internal/storage"
)

// App holds the main application components.
type App struct {
	cfg        *config.Config
	server     *server.Server
	dispatcher *jobs.Dispatcher
	dbCleanup  func()
	logger     *slog.Logger
}

// NewApp sets up the application with all its dependencies.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	logger.Info("initializing application",
		"forge", cfg.ForgeKind,
		"model", cfg.ReviewerModel,
		"max_workers", cfg.MaxWorkers)

	dbConn, dbCleanup, err := db.New(cfg.DatabaseURL, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to set up database: %w", err)
	}

	store := storage.NewStore(dbConn.DB)

	forgeOpts := forge.Options{
		BaseURL:       cfg.ForgeBaseURL,
		Token:         cfg.ForgeToken,
		WebhookSecret: cfg.ForgeWebhookSecret,
		Triggers:      cfg.Triggers,
		BotLogin:      cfg.BotLogin,
	}
	var provider core.ForgeProvider
	if cfg.UseGitHubApp() {
		provider, err = forge.NewGitHubAppProvider(ctx,
			cfg.GitHubAppID, cfg.GitHubInstallationID, cfg.GitHubPrivateKeyPath,
			forgeOpts, logger)
	} else {
		provider, err = forge.New(forge.Kind(cfg.ForgeKind), forgeOpts, logger)
	}
	if err != nil {
		dbCleanup()
		return nil, fmt.Errorf("failed to create forge provider: %w", err)
	}

	rev := reviewer.NewAnthropicReviewer(cfg.AnthropicAPIKey, cfg.ReviewerModel, logger)

	reviewJob := jobs.NewReviewJob(cfg, provider, rev, store, logger)
	dispatcher := jobs.NewDispatcher(reviewJob, cfg.MaxWorkers, logger)
	httpServer := server.NewServer(cfg, provider, store, dispatcher, logger)

	logger.Info("application initialized")
	return &App{
		cfg:        cfg,
		server:     httpServer,
		dispatcher: dispatcher,
		dbCleanup:  dbCleanup,
		logger:     logger,
	}, nil
}

// Start runs the HTTP server and blocks until it stops.
func (a *App) Start() error {
	a.logger.Info("starting service", "port", a.cfg.ServerPort, "max_workers", a.cfg.MaxWorkers)

	if err := a.server.Start(); err != nil {
		a.logger.Error("failed to start HTTP server", "error", err)
		return err
	}
	return nil
}

// Stop shuts down the application cleanly.
func (a *App) Stop() error {
	a.logger.Info("shutting down service")

	// Stop the HTTP server first to prevent new incoming requests.
	serverErr := a.server.Stop()
	if serverErr != nil {
		a.logger.Error("error during HTTP server shutdown", "error", serverErr)
		// Continue to stop other components even if the server failed.
	}

	// Stop the job dispatcher, allowing in-flight jobs to finish.
	a.dispatcher.Stop()

	a.logger.Info("closing database connection")
	a.dbCleanup()

	if serverErr != nil {
		return serverErr
	}
	a.logger.Info("service stopped")
	return nil
}
