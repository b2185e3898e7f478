package forge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/go-github/v73/github"
	"golang.org/x/oauth2"

	"github.com/forgesmith/revpilot/internal/core"
)

// githubProvider adapts the official go-github client to the ForgeProvider
// contract.
type githubProvider struct {
	client   *github.Client
	triggers []string
	logger   *slog.Logger
}

// NewGitHubProvider creates a GitHub adapter authenticated with a personal
// access token.
func NewGitHubProvider(opts Options, logger *slog.Logger) (core.ForgeProvider, error) {
	if opts.Token == "" {
		return nil, fmt.Errorf("github provider requires an access token")
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
	tc := oauth2.NewClient(context.Background(), ts)
	return &githubProvider{
		client:   github.NewClient(tc),
		triggers: opts.Triggers,
		logger:   logger,
	}, nil
}

func (g *githubProvider) Kind() string { return string(KindGitHub) }

func (g *githubProvider) GetRepository(ctx context.Context, owner, repo string) (*core.Repository, error) {
	r, _, err := g.client.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return nil, fmt.Errorf("%w: get repository %s/%s: %v", core.ErrTransport, owner, repo, err)
	}
	return &core.Repository{
		Owner:         r.GetOwner().GetLogin(),
		Name:          r.GetName(),
		FullName:      r.GetFullName(),
		DefaultBranch: r.GetDefaultBranch(),
		CloneURL:      r.GetCloneURL(),
		Private:       r.GetPrivate(),
	}, nil
}

func (g *githubProvider) GetPullRequest(ctx context.Context, owner, repo string, number int) (*core.PullRequest, error) {
	pr, _, err := g.client.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		return nil, fmt.Errorf("%w: get pull request %s/%s#%d: %v", core.ErrTransport, owner, repo, number, err)
	}
	return &core.PullRequest{
		Number:    pr.GetNumber(),
		Title:     pr.GetTitle(),
		Body:      pr.GetBody(),
		State:     pr.GetState(),
		HeadSHA:   pr.GetHead().GetSHA(),
		BaseSHA:   pr.GetBase().GetSHA(),
		Author:    pr.GetUser().GetLogin(),
		UpdatedAt: pr.GetUpdatedAt().Time,
	}, nil
}

func (g *githubProvider) GetPullRequestDiff(ctx context.Context, owner, repo string, number int) (string, error) {
	diff, _, err := g.client.PullRequests.GetRaw(ctx, owner, repo, number, github.RawOptions{Type: github.Diff})
	if err != nil {
		return "", fmt.Errorf("%w: get diff for %s/%s#%d: %v", core.ErrTransport, owner, repo, number, err)
	}
	return diff, nil
}

// GetPullRequestFiles pages through the file list; GitHub caps each page at
// 100 entries.
func (g *githubProvider) GetPullRequestFiles(ctx context.Context, owner, repo string, number int) ([]core.ChangedFile, error) {
	var all []core.ChangedFile
	opts := &github.ListOptions{PerPage: 100}
	for {
		files, resp, err := g.client.PullRequests.ListFiles(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("%w: list files for %s/%s#%d: %v", core.ErrTransport, owner, repo, number, err)
		}
		for _, f := range files {
			all = append(all, core.ChangedFile{
				Filename: f.GetFilename(),
				Status:   f.GetStatus(),
				Patch:    f.GetPatch(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

func (g *githubProvider) ListPullRequestCommits(ctx context.Context, owner, repo string, number int) ([]core.Commit, error) {
	var all []core.Commit
	opts := &github.ListOptions{PerPage: 100}
	for {
		commits, resp, err := g.client.PullRequests.ListCommits(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("%w: list commits for %s/%s#%d: %v", core.ErrTransport, owner, repo, number, err)
		}
		for _, c := range commits {
			var ts time.Time
			if c.GetCommit().GetAuthor() != nil {
				ts = c.GetCommit().GetAuthor().GetDate().Time
			}
			all = append(all, core.Commit{
				SHA:       c.GetSHA(),
				Timestamp: ts,
				Message:   c.GetCommit().GetMessage(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

func (g *githubProvider) ListPullRequestReviews(ctx context.Context, owner, repo string, number int) ([]core.ReviewRecord, error) {
	var all []core.ReviewRecord
	opts := &github.ListOptions{PerPage: 100}
	for {
		reviews, resp, err := g.client.PullRequests.ListReviews(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("%w: list reviews for %s/%s#%d: %v", core.ErrTransport, owner, repo, number, err)
		}
		for _, r := range reviews {
			all = append(all, core.ReviewRecord{
				ID:          r.GetID(),
				AuthorLogin: r.GetUser().GetLogin(),
				CommitSHA:   r.GetCommitID(),
				SubmittedAt: r.GetSubmittedAt().Time,
				State:       r.GetState(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

func (g *githubProvider) GetFileContent(ctx context.Context, owner, repo, path, ref string) ([]byte, error) {
	opts := &github.RepositoryContentGetOptions{Ref: ref}
	file, _, _, err := g.client.Repositories.GetContents(ctx, owner, repo, path, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: get contents of %s in %s/%s: %v", core.ErrTransport, path, owner, repo, err)
	}
	if file == nil {
		return nil, fmt.Errorf("%s is a directory, not a file", path)
	}
	content, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("failed to decode content of %s: %w", path, err)
	}
	return []byte(content), nil
}

// CreateReview posts each line comment individually, then submits the
// aggregate review. Partial failures are surfaced as *core.PartialSubmitError.
func (g *githubProvider) CreateReview(ctx context.Context, owner, repo string, number int, decision core.ReviewDecision, summary string, comments []core.LineComment) (*core.Review, error) {
	pr, err := g.GetPullRequest(ctx, owner, repo, number)
	if err != nil {
		return nil, err
	}

	submitted := 0
	for i := range comments {
		c := &comments[i]
		if err := c.Validate(); err != nil {
			return nil, err
		}
		pos := MapPosition(c)
		comment := &github.PullRequestComment{
			Path:     github.Ptr(c.Path),
			Body:     github.Ptr(commentBody(c)),
			CommitID: github.Ptr(pr.HeadSHA),
		}
		if pos.NewLine > 0 {
			comment.Line = github.Ptr(int(pos.NewLine))
			comment.Side = github.Ptr("RIGHT")
		} else {
			comment.Line = github.Ptr(int(pos.OldLine))
			comment.Side = github.Ptr("LEFT")
		}
		if _, _, err := g.client.PullRequests.CreateComment(ctx, owner, repo, number, comment); err != nil {
			wrapped := fmt.Errorf("%w: create review comment on %s: %v", core.ErrTransport, c.Path, err)
			if submitted > 0 {
				return nil, &core.PartialSubmitError{Submitted: submitted, Total: len(comments), Err: wrapped}
			}
			return nil, wrapped
		}
		submitted++
	}

	req := &github.PullRequestReviewRequest{
		Body:  github.Ptr(summary),
		Event: github.Ptr(githubReviewEvent(decision)),
	}
	review, _, err := g.client.PullRequests.CreateReview(ctx, owner, repo, number, req)
	if err != nil {
		wrapped := fmt.Errorf("%w: create review on %s/%s#%d: %v", core.ErrTransport, owner, repo, number, err)
		if submitted > 0 {
			return nil, &core.PartialSubmitError{Submitted: submitted, Total: len(comments), Err: wrapped}
		}
		return nil, wrapped
	}
	return &core.Review{
		ID:          review.GetID(),
		State:       review.GetState(),
		SubmittedAt: review.GetSubmittedAt().Time,
		HTMLURL:     review.GetHTMLURL(),
	}, nil
}

func (g *githubProvider) CreateComment(ctx context.Context, owner, repo string, number int, body string) error {
	comment := &github.IssueComment{Body: github.Ptr(body)}
	if _, _, err := g.client.Issues.CreateComment(ctx, owner, repo, number, comment); err != nil {
		return fmt.Errorf("%w: create comment on %s/%s#%d: %v", core.ErrTransport, owner, repo, number, err)
	}
	return nil
}

// githubReviewEvent maps the canonical decision onto GitHub's review events.
func githubReviewEvent(decision core.ReviewDecision) string {
	switch decision {
	case core.DecisionApproved:
		return "APPROVE"
	case core.DecisionRequestChanges:
		return "REQUEST_CHANGES"
	default:
		return "COMMENT"
	}
}

func (g *githubProvider) VerifyWebhookSignature(payload []byte, signature, secret string) bool {
	// GitHub prefixes the hex digest with "sha256="; the shared helper
	// normalizes that before the constant-time comparison.
	return verifyHMACSignature(payload, signature, secret)
}
