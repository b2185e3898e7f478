// Package forge implements the ForgeProvider adapters for the supported Git
// hosting platforms and the helpers they share: webhook signature checking,
// trigger-token extraction, and diff position mapping.
package forge

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/forgesmith/revpilot/internal/core"
)

// Kind tags a supported forge.
type Kind string

const (
	KindGitea  Kind = "gitea"
	KindGitHub Kind = "github"
	KindGitLab Kind = "gitlab"
)

// Options configures a provider instance.
type Options struct {
	// BaseURL is the API root of the forge, e.g. https://gitea.example.com.
	// Ignored by the GitHub adapter, which talks to api.github.com.
	BaseURL string

	// Token authenticates outbound API calls.
	Token string

	// WebhookSecret validates inbound webhook deliveries.
	WebhookSecret string

	// Triggers are the comment tokens that start a review, e.g. "/review".
	Triggers []string

	// BotLogin is the account the service posts as; used to recognize its
	// own past reviews.
	BotLogin string

	// HTTPClient overrides the default transport; nil gets a 30s-timeout client.
	HTTPClient *http.Client
}

func (o *Options) httpClient() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

// New builds the provider for the given forge kind. Unsupported kinds return
// core.ErrNotImplemented so callers can register planned forges up front.
func New(kind Kind, opts Options, logger *slog.Logger) (core.ForgeProvider, error) {
	switch kind {
	case KindGitea:
		return NewGiteaProvider(opts, logger)
	case KindGitHub:
		return NewGitHubProvider(opts, logger)
	case KindGitLab:
		return nil, fmt.Errorf("gitlab: %w", core.ErrNotImplemented)
	default:
		return nil, fmt.Errorf("unknown forge kind %q", kind)
	}
}
