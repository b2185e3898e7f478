package forge

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v73/github"
	"golang.org/x/oauth2"

	"github.com/forgesmith/revpilot/internal/core"
)

// NewGitHubAppProvider creates a GitHub adapter authenticated as a GitHub App
// installation. The app's private key is read from privateKeyPath and
// exchanged for a short-lived installation token.
func NewGitHubAppProvider(ctx context.Context, appID, installationID int64, privateKeyPath string, opts Options, logger *slog.Logger) (core.ForgeProvider, error) {
	privateKey, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key from %s: %w", privateKeyPath, err)
	}

	appTransport, err := ghinstallation.NewAppsTransport(http.DefaultTransport, appID, privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub App transport: %w", err)
	}
	appClient := github.NewClient(&http.Client{Transport: appTransport})

	token, _, err := appClient.Apps.CreateInstallationToken(ctx, installationID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create installation token for installation %d: %w", installationID, err)
	}
	if token.GetToken() == "" {
		return nil, fmt.Errorf("received an empty installation token")
	}
	logger.Info("created GitHub App installation token",
		"installation_id", installationID, "expires_at", token.GetExpiresAt())

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token.GetToken()})
	return &githubProvider{
		client:   github.NewClient(oauth2.NewClient(ctx, ts)),
		triggers: opts.Triggers,
		logger:   logger,
	}, nil
}
