package core

import "context"

// ForgeProvider is the capability a Git forge must offer to the review
// pipeline: read access to repositories, pull requests and their diffs, the
// ability to submit reviews, and the webhook boundary (signature verification
// and payload normalization).
//
// Callers must verify the webhook signature before parsing the payload.
type ForgeProvider interface {
	// Kind identifies the forge ("gitea", "github", "gitlab").
	Kind() string

	GetRepository(ctx context.Context, owner, repo string) (*Repository, error)
	GetPullRequest(ctx context.Context, owner, repo string, number int) (*PullRequest, error)

	// GetPullRequestDiff returns the raw unified diff of the pull request.
	GetPullRequestDiff(ctx context.Context, owner, repo string, number int) (string, error)
	GetPullRequestFiles(ctx context.Context, owner, repo string, number int) ([]ChangedFile, error)
	ListPullRequestCommits(ctx context.Context, owner, repo string, number int) ([]Commit, error)
	ListPullRequestReviews(ctx context.Context, owner, repo string, number int) ([]ReviewRecord, error)

	// GetFileContent fetches a single file at the given ref. Used for the
	// per-repository config file; a missing file is reported via error.
	GetFileContent(ctx context.Context, owner, repo, path, ref string) ([]byte, error)

	// CreateReview submits line comments first, then the aggregate review.
	// If some comments land and the aggregate call fails, the returned error
	// is a *PartialSubmitError carrying the number of submitted comments.
	CreateReview(ctx context.Context, owner, repo string, number int, decision ReviewDecision, summary string, comments []LineComment) (*Review, error)

	// CreateComment posts a plain pull request comment.
	CreateComment(ctx context.Context, owner, repo string, number int, body string) error

	// VerifyWebhookSignature checks the forge's HMAC-SHA256 signature header
	// against the raw payload using constant-time comparison.
	VerifyWebhookSignature(payload []byte, signature, secret string) bool

	// ParseWebhookEvent normalizes a raw webhook delivery. It returns
	// (nil, nil) for deliveries the system does not act on, and an error only
	// for payloads that are malformed beyond recognition.
	ParseWebhookEvent(payload []byte, headers map[string]string) (*ReviewEvent, error)
}
