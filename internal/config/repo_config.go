package config

import (
	"context"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/forgesmith/revpilot/internal/core"
)

var (
	ErrRepoConfigNotFound = errors.New("repo config file not found")
	ErrRepoConfigParsing  = errors.New("repo config parsing failed")
)

// FetchRepoConfig loads the per-repository config file from the pull request's
// head commit through the forge. A missing file yields defaults along with
// ErrRepoConfigNotFound so callers can log the distinction.
func FetchRepoConfig(ctx context.Context, provider core.ForgeProvider, owner, repo, path, ref string) (*core.RepoConfig, error) {
	data, err := provider.GetFileContent(ctx, owner, repo, path, ref)
	if err != nil {
		return core.DefaultRepoConfig(), ErrRepoConfigNotFound
	}

	cfg := core.DefaultRepoConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRepoConfigParsing, err)
	}
	return cfg, nil
}
