package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/forgesmith/revpilot/internal/core"
	"github.com/forgesmith/revpilot/internal/forge"
	"github.com/forgesmith/revpilot/internal/reviewer"
)

var (
	forgeKind    string
	forgeBaseURL string
	forgeToken   string
	anthropicKey string
	reviewModel  string
	submitReview bool
)

var reviewCmd = &cobra.Command{
	Use:   "review <owner/repo> <pr-number>",
	Short: "Runs a one-off AI review of a pull request",
	Long: `Runs a one-off AI review of a pull request directly against the forge,
without going through the service. The result is rendered to the terminal;
pass --submit to also post it to the pull request.

Examples:
  revpilot-cli review acme/widgets 42
  revpilot-cli review --submit acme/widgets 42`,
	Args: cobra.ExactArgs(2),
	RunE: runReview,
}

func init() { //nolint:gochecknoinits // Cobra command registration
	reviewCmd.Flags().StringVar(&forgeKind, "forge", "gitea", "Forge kind (gitea or github)")
	reviewCmd.Flags().StringVar(&forgeBaseURL, "base-url", "", "Forge base URL (gitea only)")
	reviewCmd.Flags().StringVar(&forgeToken, "token", "", "Forge API token (falls back to RP_FORGE_TOKEN)")
	reviewCmd.Flags().StringVar(&anthropicKey, "anthropic-key", "", "Anthropic API key (falls back to RP_ANTHROPIC_API_KEY)")
	reviewCmd.Flags().StringVar(&reviewModel, "model", "claude-sonnet-4-5", "Model used for the review")
	reviewCmd.Flags().BoolVar(&submitReview, "submit", false, "Post the review to the pull request")
	rootCmd.AddCommand(reviewCmd)
}

func runReview(cmd *cobra.Command, args []string) error {
	owner, repo, ok := strings.Cut(args[0], "/")
	if !ok || owner == "" || repo == "" {
		return fmt.Errorf("repository must be given as owner/repo, got %q", args[0])
	}
	number, err := strconv.Atoi(args[1])
	if err != nil || number <= 0 {
		return fmt.Errorf("invalid pull request number %q", args[1])
	}

	token := forgeToken
	if token == "" {
		token = viper.GetString("FORGE_TOKEN")
	}
	apiKey := anthropicKey
	if apiKey == "" {
		apiKey = viper.GetString("ANTHROPIC_API_KEY")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	provider, err := forge.New(forge.Kind(forgeKind), forge.Options{
		BaseURL: forgeBaseURL,
		Token:   token,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create forge provider: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	fmt.Printf("Fetching %s/%s#%d...\n", owner, repo, number)
	pr, err := provider.GetPullRequest(ctx, owner, repo, number)
	if err != nil {
		return fmt.Errorf("failed to get pull request: %w", err)
	}
	diff, err := provider.GetPullRequestDiff(ctx, owner, repo, number)
	if err != nil {
		return fmt.Errorf("failed to get pull request diff: %w", err)
	}
	if strings.TrimSpace(diff) == "" {
		fmt.Println("The pull request diff is empty, nothing to review.")
		return nil
	}
	commits, err := provider.ListPullRequestCommits(ctx, owner, repo, number)
	if err != nil {
		return fmt.Errorf("failed to list pull request commits: %w", err)
	}

	fmt.Printf("Reviewing %q with %s...\n", pr.Title, reviewModel)
	rev := reviewer.NewAnthropicReviewer(apiKey, reviewModel, logger)
	raw, err := rev.Review(ctx, &core.ReviewRequest{
		RepoFullName: owner + "/" + repo,
		PRTitle:      pr.Title,
		PRBody:       pr.Body,
		Diff:         diff,
		Commits:      commits,
	})
	if err != nil {
		return fmt.Errorf("review failed: %w", err)
	}

	result := reviewer.DecodeResponse(raw, reviewer.DefaultDecoders(), logger)
	printReviewResult(result)

	if !submitReview {
		dimColor.Println("\nDry run; pass --submit to post this review.")
		return nil
	}

	if _, err := provider.CreateReview(ctx, owner, repo, number, result.Decision, result.Summary, result.Comments); err != nil {
		return fmt.Errorf("failed to submit review: %w", err)
	}
	successColor.Printf("Review submitted to %s/%s#%d.\n", owner, repo, number)
	return nil
}

func printReviewResult(result *core.ReviewResult) {
	fmt.Println()
	switch result.Decision {
	case core.DecisionApproved:
		successColor.Printf("Decision: %s\n\n", result.Decision)
	case core.DecisionRequestChanges:
		errorColor.Printf("Decision: %s\n\n", result.Decision)
	default:
		warnColor.Printf("Decision: %s\n\n", result.Decision)
	}

	if rendered, err := renderMarkdown(result.Summary); err == nil {
		fmt.Print(rendered)
	} else {
		fmt.Println(result.Summary)
	}

	if len(result.Comments) == 0 {
		return
	}
	fmt.Printf("\n%d line comments:\n", len(result.Comments))
	for _, c := range result.Comments {
		line := c.NewLine
		if line == 0 {
			line = c.OldLine
		}
		fmt.Printf("  %s:%d  %s\n", c.Path, line, firstLineOf(c.Body))
	}
}

func firstLineOf(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
