package core

// RepoConfig represents the structure of the .revpilot.yml file that a
// repository may carry at its root to tune its own reviews.
type RepoConfig struct {
	// Custom instructions appended to the review prompt.
	CustomInstructions []string `yaml:"custom_instructions"`

	// Paths (directory prefixes) whose diffs are not sent for review.
	// Example: ["vendor", "dist", "docs"]
	ExcludePaths []string `yaml:"exclude_paths"`

	// Maximum number of line comments to submit per review; 0 means no cap.
	MaxComments int `yaml:"max_comments"`
}

// DefaultRepoConfig returns a config with default values.
func DefaultRepoConfig() *RepoConfig {
	return &RepoConfig{
		CustomInstructions: []string{},
		ExcludePaths:       []string{},
		MaxComments:        0,
	}
}
