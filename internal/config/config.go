// Package config loads the application configuration.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the application's configuration values.
type Config struct {
	ServerPort string
	LogLevel   slog.Level
	LogFormat  string

	DatabaseURL string

	// Forge settings. ForgeKind selects the provider adapter; gitea needs a
	// base URL, github does not.
	ForgeKind          string
	ForgeBaseURL       string
	ForgeToken         string
	ForgeWebhookSecret string

	// GitHub App installation credentials. When set, the github forge
	// authenticates as an app installation instead of a personal token.
	GitHubAppID          int64
	GitHubInstallationID int64
	GitHubPrivateKeyPath string

	// Triggers are the comment tokens that start a review.
	Triggers []string

	// BotLogin is the forge account the service reviews as; its own past
	// reviews anchor incremental re-review.
	BotLogin string

	AnthropicAPIKey string
	ReviewerModel   string

	MaxWorkers int

	// SerializePerPR guards against two concurrent reviews of the same pull
	// request racing to submit. Off by default.
	SerializePerPR bool

	// RepoConfigPath is the per-repository config file fetched from the PR head.
	RepoConfigPath string
}

// LoadConfig reads configuration from environment variables and a .env file,
// sets sensible defaults, and validates required fields.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("FORGE_KIND", "gitea")
	v.SetDefault("REVIEW_TRIGGERS", "/review,/revpilot")
	v.SetDefault("REVIEWER_MODEL", "claude-sonnet-4-5")
	v.SetDefault("MAX_WORKERS", 5)
	v.SetDefault("SERIALIZE_PER_PR", false)
	v.SetDefault("REPO_CONFIG_PATH", ".revpilot.yml")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Debug("no .env file loaded", "error", err)
		}
	}

	cfg := &Config{
		ServerPort:         v.GetString("SERVER_PORT"),
		LogLevel:           parseLogLevel(v.GetString("LOG_LEVEL")),
		LogFormat:          v.GetString("LOG_FORMAT"),
		DatabaseURL:        v.GetString("DATABASE_URL"),
		ForgeKind:          strings.ToLower(v.GetString("FORGE_KIND")),
		ForgeBaseURL:       v.GetString("FORGE_BASE_URL"),
		ForgeToken:         v.GetString("FORGE_TOKEN"),
		ForgeWebhookSecret: v.GetString("FORGE_WEBHOOK_SECRET"),

		GitHubAppID:          v.GetInt64("GITHUB_APP_ID"),
		GitHubInstallationID: v.GetInt64("GITHUB_APP_INSTALLATION_ID"),
		GitHubPrivateKeyPath: v.GetString("GITHUB_APP_PRIVATE_KEY_PATH"),

		Triggers:           splitTriggers(v.GetString("REVIEW_TRIGGERS")),
		BotLogin:           v.GetString("BOT_LOGIN"),
		AnthropicAPIKey:    v.GetString("ANTHROPIC_API_KEY"),
		ReviewerModel:      v.GetString("REVIEWER_MODEL"),
		MaxWorkers:         v.GetInt("MAX_WORKERS"),
		SerializePerPR:     v.GetBool("SERIALIZE_PER_PR"),
		RepoConfigPath:     v.GetString("REPO_CONFIG_PATH"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL must be set")
	}
	if cfg.ForgeWebhookSecret == "" {
		return nil, fmt.Errorf("FORGE_WEBHOOK_SECRET must be set")
	}
	if cfg.ForgeKind == "gitea" && cfg.ForgeBaseURL == "" {
		return nil, fmt.Errorf("FORGE_BASE_URL must be set for the gitea forge")
	}
	if cfg.UseGitHubApp() {
		if cfg.ForgeKind != "github" {
			return nil, fmt.Errorf("GITHUB_APP_ID is only valid with FORGE_KIND=github")
		}
		if cfg.GitHubInstallationID == 0 || cfg.GitHubPrivateKeyPath == "" {
			return nil, fmt.Errorf("GITHUB_APP_INSTALLATION_ID and GITHUB_APP_PRIVATE_KEY_PATH must be set together with GITHUB_APP_ID")
		}
	} else if cfg.ForgeToken == "" {
		return nil, fmt.Errorf("FORGE_TOKEN must be set")
	}
	if len(cfg.Triggers) == 0 {
		return nil, fmt.Errorf("REVIEW_TRIGGERS must contain at least one token")
	}

	return cfg, nil
}

// UseGitHubApp reports whether the github forge should authenticate as an
// app installation rather than with a personal access token.
func (c *Config) UseGitHubApp() bool {
	return c.GitHubAppID != 0
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "info":
		return slog.LevelInfo
	default:
		slog.Warn("unrecognized log level, defaulting to info", "provided", s)
		return slog.LevelInfo
	}
}

func splitTriggers(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
