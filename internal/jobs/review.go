package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/forgesmith/revpilot/internal/config"
	"github.com/forgesmith/revpilot/internal/core"
	"github.com/forgesmith/revpilot/internal/diff"
	"github.com/forgesmith/revpilot/internal/history"
	"github.com/forgesmith/revpilot/internal/reviewer"
	"github.com/forgesmith/revpilot/internal/storage"
	"github.com/forgesmith/revpilot/internal/tagger"
)

const (
	noChangesSummary     = "No changes to review: the pull request diff is empty."
	fullyReviewedSummary = "All commits of this pull request have already been reviewed."
)

// ReviewJob executes one AI-assisted review run end to end: fetch the diff,
// work out the incremental scope, invoke the Reviewer, and submit the result.
type ReviewJob struct {
	cfg      *config.Config
	provider core.ForgeProvider
	reviewer core.Reviewer
	decoders []reviewer.ResponseDecoder
	store    storage.Store
	guard    *prGuard
	logger   *slog.Logger
}

// NewReviewJob wires the review pipeline. The Reviewer is an explicit
// dependency; there is no process-wide default client.
func NewReviewJob(cfg *config.Config, provider core.ForgeProvider, rev core.Reviewer, store storage.Store, logger *slog.Logger) core.Job {
	if cfg == nil {
		panic("config cannot be nil")
	}
	if provider == nil {
		panic("forge provider cannot be nil")
	}
	if rev == nil {
		panic("reviewer cannot be nil")
	}
	if store == nil {
		panic("store cannot be nil")
	}

	job := &ReviewJob{
		cfg:      cfg,
		provider: provider,
		reviewer: rev,
		decoders: reviewer.DefaultDecoders(),
		store:    store,
		logger:   logger,
	}
	if cfg.SerializePerPR {
		job.guard = newPRGuard()
	}
	return job
}

// Run moves the review run from pending to processing and then to completed
// or failed. Pipeline errors are captured into the run record and never
// propagated beyond logging.
func (j *ReviewJob) Run(ctx context.Context, runID string, event *core.ReviewEvent) error {
	if j.guard != nil {
		key := fmt.Sprintf("%s#%d", event.RepoFullName, event.PRNumber)
		j.guard.lock(key)
		defer j.guard.unlock(key)
	}

	if err := j.store.MarkProcessing(ctx, runID); err != nil {
		return fmt.Errorf("failed to claim review run: %w", err)
	}

	if err := j.execute(ctx, runID, event); err != nil {
		if markErr := j.store.MarkFailed(ctx, runID, err.Error()); markErr != nil {
			j.logger.Error("failed to record review run failure", "run_id", runID, "error", markErr)
		}
		return err
	}
	return nil
}

func (j *ReviewJob) execute(ctx context.Context, runID string, event *core.ReviewEvent) error {
	owner, repo, number := event.RepoOwner, event.RepoName, event.PRNumber

	pr, err := j.provider.GetPullRequest(ctx, owner, repo, number)
	if err != nil {
		return fmt.Errorf("failed to get pull request: %w", err)
	}

	diffText, err := j.provider.GetPullRequestDiff(ctx, owner, repo, number)
	if err != nil {
		return fmt.Errorf("failed to get pull request diff: %w", err)
	}

	if strings.TrimSpace(diffText) == "" {
		j.logger.Info("empty diff, completing without review", "run_id", runID, "pr", number)
		return j.store.MarkCompleted(ctx, runID, core.DecisionComment, noChangesSummary, 0)
	}

	commits, err := j.provider.ListPullRequestCommits(ctx, owner, repo, number)
	if err != nil {
		return fmt.Errorf("failed to list pull request commits: %w", err)
	}

	scope, outcome := j.reviewScope(ctx, event, commits)
	if outcome == history.Incremental && len(scope) == 0 {
		j.logger.Info("pull request fully reviewed, nothing to do", "run_id", runID, "pr", number)
		return j.store.MarkCompleted(ctx, runID, core.DecisionComment, fullyReviewedSummary, 0)
	}

	repoCfg := j.loadRepoConfig(ctx, event, pr.HeadSHA)

	raw, err := j.reviewer.Review(ctx, &core.ReviewRequest{
		RepoFullName: event.RepoFullName,
		PRTitle:      pr.Title,
		PRBody:       pr.Body,
		Diff:         diffText,
		Commits:      scope,
		Instructions: repoCfg.CustomInstructions,
	})
	if err != nil {
		return fmt.Errorf("reviewer invocation failed: %w", err)
	}

	result := reviewer.DecodeResponse(raw, j.decoders, j.logger)
	comments := j.filterComments(result.Comments, diffText, repoCfg)
	summary := j.buildSummary(result.Summary, outcome, comments)

	if _, err := j.provider.CreateReview(ctx, owner, repo, number, result.Decision, summary, comments); err != nil {
		var partial *core.PartialSubmitError
		if errors.As(err, &partial) {
			return fmt.Errorf("partial review submission (%d/%d comments posted): %w",
				partial.Submitted, partial.Total, err)
		}
		return fmt.Errorf("failed to submit review: %w", err)
	}

	j.logger.Info("review run completed",
		"run_id", runID,
		"pr", number,
		"decision", result.Decision,
		"comments", len(comments),
		"scope", outcome.String(),
	)
	return j.store.MarkCompleted(ctx, runID, result.Decision, summary, len(comments))
}

// reviewScope computes which commits this run must cover, using only the
// bot's own past reviews as anchors.
func (j *ReviewJob) reviewScope(ctx context.Context, event *core.ReviewEvent, commits []core.Commit) ([]core.Commit, history.Outcome) {
	reviews, err := j.provider.ListPullRequestReviews(ctx, event.RepoOwner, event.RepoName, event.PRNumber)
	if err != nil {
		// Losing the review list only widens the scope to a full review.
		j.logger.Warn("could not list past reviews, assuming first review", "pr", event.PRNumber, "error", err)
		return commits, history.FirstReview
	}

	own := history.FilterByAuthor(reviews, j.cfg.BotLogin)
	lastSHA, ok := history.LastReviewedCommit(own, commits)
	if !ok {
		return commits, history.FirstReview
	}

	outcome := history.Classify(commits, lastSHA)
	if outcome == history.Rebase {
		j.logger.Info("rebase detected, scheduling full re-review", "pr", event.PRNumber, "last_sha", lastSHA)
	}
	return history.CommitsAfter(commits, lastSHA), outcome
}

func (j *ReviewJob) loadRepoConfig(ctx context.Context, event *core.ReviewEvent, headSHA string) *core.RepoConfig {
	repoCfg, err := config.FetchRepoConfig(ctx, j.provider, event.RepoOwner, event.RepoName, j.cfg.RepoConfigPath, headSHA)
	if err != nil {
		if errors.Is(err, config.ErrRepoConfigNotFound) {
			j.logger.Debug("no repo config file, using defaults", "repo", event.RepoFullName)
		} else {
			j.logger.Warn("ignoring unparsable repo config", "repo", event.RepoFullName, "error", err)
		}
		return core.DefaultRepoConfig()
	}
	return repoCfg
}

// filterComments drops comments that do not land on a line present in the
// diff, comments on excluded paths, and everything beyond the per-repo cap.
func (j *ReviewJob) filterComments(comments []core.LineComment, diffText string, repoCfg *core.RepoConfig) []core.LineComment {
	files := diff.Parse(diffText)
	newSide := diff.TargetLinesByPath(files)
	oldSide := diff.OldTargetLinesByPath(files)

	var kept []core.LineComment
	for _, c := range comments {
		if c.Validate() != nil {
			continue
		}
		if excludedPath(c.Path, repoCfg.ExcludePaths) {
			continue
		}
		if c.NewLine > 0 {
			if _, ok := newSide[c.Path][c.NewLine]; !ok {
				j.logger.Debug("dropping comment on line outside diff", "path", c.Path, "line", c.NewLine)
				continue
			}
		} else {
			if _, ok := oldSide[c.Path][c.OldLine]; !ok {
				j.logger.Debug("dropping comment on line outside diff", "path", c.Path, "line", c.OldLine)
				continue
			}
		}
		kept = append(kept, c)
		if repoCfg.MaxComments > 0 && len(kept) >= repoCfg.MaxComments {
			break
		}
	}
	return kept
}

// buildSummary appends the incremental-scope note and the tag statistics
// block to the reviewer's summary.
func (j *ReviewJob) buildSummary(summary string, outcome history.Outcome, comments []core.LineComment) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(summary))

	if outcome == history.Rebase {
		b.WriteString("\n\n_History was rewritten since the last review; the whole pull request was re-reviewed._")
	} else if outcome == history.Incremental {
		b.WriteString("\n\n_Incremental review: only commits since the last reviewed commit were considered._")
	}

	stats := tagger.NewStats()
	for _, c := range comments {
		stats.Record(c.Path, c.Body)
	}
	if block := stats.Summarize(); block != "" {
		b.WriteString("\n\n")
		b.WriteString(block)
	}
	return b.String()
}

func excludedPath(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if prefix == "" {
			continue
		}
		if path == prefix || strings.HasPrefix(path, strings.TrimRight(prefix, "/")+"/") {
			return true
		}
	}
	return false
}
