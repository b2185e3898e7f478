package forge

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/forgesmith/revpilot/internal/core"
)

// giteaProvider talks to the Gitea/Forgejo REST API v1 with a small
// hand-rolled client tailored to the review pipeline's needs.
type giteaProvider struct {
	baseURL    string
	token      string
	secret     string
	triggers   []string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewGiteaProvider creates the Gitea adapter. BaseURL must point at the forge
// root; the /api/v1 prefix is appended here.
func NewGiteaProvider(opts Options, logger *slog.Logger) (core.ForgeProvider, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("gitea provider requires a base URL")
	}
	return &giteaProvider{
		baseURL:    strings.TrimRight(opts.BaseURL, "/") + "/api/v1",
		token:      opts.Token,
		secret:     opts.WebhookSecret,
		triggers:   opts.Triggers,
		httpClient: opts.httpClient(),
		logger:     logger,
	}, nil
}

func (g *giteaProvider) Kind() string { return string(KindGitea) }

func (g *giteaProvider) do(ctx context.Context, method, path, accept string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if g.token != "" {
		req.Header.Set("Authorization", "token "+g.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", core.ErrTransport, method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %s %s returned %d: %s",
			core.ErrTransport, method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return resp, nil
}

func (g *giteaProvider) getJSON(ctx context.Context, path string, out any) error {
	resp, err := g.do(ctx, http.MethodGet, path, "application/json", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}

// Wire shapes, reduced to the fields the pipeline consumes.

type giteaUser struct {
	Login    string `json:"login"`
	Username string `json:"username"`
}

func (u *giteaUser) name() string {
	if u == nil {
		return ""
	}
	if u.Login != "" {
		return u.Login
	}
	return u.Username
}

type giteaRepo struct {
	Name          string     `json:"name"`
	FullName      string     `json:"full_name"`
	Owner         *giteaUser `json:"owner"`
	DefaultBranch string     `json:"default_branch"`
	CloneURL      string     `json:"clone_url"`
	Private       bool       `json:"private"`
}

type giteaBranchRef struct {
	SHA string `json:"sha"`
}

type giteaPull struct {
	Number    int             `json:"number"`
	Title     string          `json:"title"`
	Body      string          `json:"body"`
	State     string          `json:"state"`
	User      *giteaUser      `json:"user"`
	Head      *giteaBranchRef `json:"head"`
	Base      *giteaBranchRef `json:"base"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (g *giteaProvider) GetRepository(ctx context.Context, owner, repo string) (*core.Repository, error) {
	var raw giteaRepo
	path := fmt.Sprintf("/repos/%s/%s", url.PathEscape(owner), url.PathEscape(repo))
	if err := g.getJSON(ctx, path, &raw); err != nil {
		return nil, err
	}
	return &core.Repository{
		Owner:         raw.Owner.name(),
		Name:          raw.Name,
		FullName:      raw.FullName,
		DefaultBranch: raw.DefaultBranch,
		CloneURL:      raw.CloneURL,
		Private:       raw.Private,
	}, nil
}

func (g *giteaProvider) GetPullRequest(ctx context.Context, owner, repo string, number int) (*core.PullRequest, error) {
	var raw giteaPull
	path := fmt.Sprintf("/repos/%s/%s/pulls/%d", url.PathEscape(owner), url.PathEscape(repo), number)
	if err := g.getJSON(ctx, path, &raw); err != nil {
		return nil, err
	}
	pr := &core.PullRequest{
		Number:    raw.Number,
		Title:     raw.Title,
		Body:      raw.Body,
		State:     raw.State,
		Author:    raw.User.name(),
		UpdatedAt: raw.UpdatedAt,
	}
	if raw.Head != nil {
		pr.HeadSHA = raw.Head.SHA
	}
	if raw.Base != nil {
		pr.BaseSHA = raw.Base.SHA
	}
	return pr, nil
}

func (g *giteaProvider) GetPullRequestDiff(ctx context.Context, owner, repo string, number int) (string, error) {
	path := fmt.Sprintf("/repos/%s/%s/pulls/%d.diff", url.PathEscape(owner), url.PathEscape(repo), number)
	resp, err := g.do(ctx, http.MethodGet, path, "text/plain", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read diff body: %w", err)
	}
	return string(raw), nil
}

func (g *giteaProvider) GetPullRequestFiles(ctx context.Context, owner, repo string, number int) ([]core.ChangedFile, error) {
	var raw []struct {
		Filename string `json:"filename"`
		Status   string `json:"status"`
		Patch    string `json:"patch"`
	}
	path := fmt.Sprintf("/repos/%s/%s/pulls/%d/files", url.PathEscape(owner), url.PathEscape(repo), number)
	if err := g.getJSON(ctx, path, &raw); err != nil {
		return nil, err
	}
	files := make([]core.ChangedFile, 0, len(raw))
	for _, f := range raw {
		files = append(files, core.ChangedFile{Filename: f.Filename, Status: f.Status, Patch: f.Patch})
	}
	return files, nil
}

func (g *giteaProvider) ListPullRequestCommits(ctx context.Context, owner, repo string, number int) ([]core.Commit, error) {
	var raw []struct {
		SHA     string    `json:"sha"`
		Created time.Time `json:"created"`
		Commit  *struct {
			Message string `json:"message"`
			Author  *struct {
				Date time.Time `json:"date"`
			} `json:"author"`
		} `json:"commit"`
	}
	path := fmt.Sprintf("/repos/%s/%s/pulls/%d/commits", url.PathEscape(owner), url.PathEscape(repo), number)
	if err := g.getJSON(ctx, path, &raw); err != nil {
		return nil, err
	}
	commits := make([]core.Commit, 0, len(raw))
	for _, c := range raw {
		commit := core.Commit{SHA: c.SHA, Timestamp: c.Created}
		if c.Commit != nil {
			commit.Message = c.Commit.Message
			if c.Commit.Author != nil && !c.Commit.Author.Date.IsZero() {
				commit.Timestamp = c.Commit.Author.Date
			}
		}
		commits = append(commits, commit)
	}
	return commits, nil
}

func (g *giteaProvider) ListPullRequestReviews(ctx context.Context, owner, repo string, number int) ([]core.ReviewRecord, error) {
	var raw []struct {
		ID          int64      `json:"id"`
		User        *giteaUser `json:"user"`
		CommitID    string     `json:"commit_id"`
		SubmittedAt time.Time  `json:"submitted_at"`
		State       string     `json:"state"`
	}
	path := fmt.Sprintf("/repos/%s/%s/pulls/%d/reviews", url.PathEscape(owner), url.PathEscape(repo), number)
	if err := g.getJSON(ctx, path, &raw); err != nil {
		return nil, err
	}
	records := make([]core.ReviewRecord, 0, len(raw))
	for _, r := range raw {
		records = append(records, core.ReviewRecord{
			ID:          r.ID,
			AuthorLogin: r.User.name(),
			CommitSHA:   r.CommitID,
			SubmittedAt: r.SubmittedAt,
			State:       r.State,
		})
	}
	return records, nil
}

func (g *giteaProvider) GetFileContent(ctx context.Context, owner, repo, path, ref string) ([]byte, error) {
	var raw struct {
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
	}
	apiPath := fmt.Sprintf("/repos/%s/%s/contents/%s", url.PathEscape(owner), url.PathEscape(repo), escapePathSegments(path))
	if ref != "" {
		apiPath += "?ref=" + url.QueryEscape(ref)
	}
	if err := g.getJSON(ctx, apiPath, &raw); err != nil {
		return nil, err
	}
	if raw.Encoding == "base64" {
		decoded, err := base64.StdEncoding.DecodeString(raw.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to decode content of %s: %w", path, err)
		}
		return decoded, nil
	}
	return []byte(raw.Content), nil
}

// giteaReviewComment is the wire shape of one line comment in a review
// submission. Both position keys are always present; exactly one is non-zero.
type giteaReviewComment struct {
	Path        string `json:"path"`
	Body        string `json:"body"`
	OldPosition int64  `json:"old_position"`
	NewPosition int64  `json:"new_position"`
}

type giteaReviewRequest struct {
	Event    string               `json:"event"`
	Body     string               `json:"body,omitempty"`
	CommitID string               `json:"commit_id,omitempty"`
	Comments []giteaReviewComment `json:"comments,omitempty"`
}

type giteaReview struct {
	ID          int64     `json:"id"`
	State       string    `json:"state"`
	SubmittedAt time.Time `json:"submitted_at"`
	HTMLURL     string    `json:"html_url"`
}

// CreateReview submits each line comment as an individual forge call, then
// finalizes with the aggregate review carrying the decision and summary.
// A failure after some comments have landed is reported as a
// *core.PartialSubmitError rather than swallowed.
func (g *giteaProvider) CreateReview(ctx context.Context, owner, repo string, number int, decision core.ReviewDecision, summary string, comments []core.LineComment) (*core.Review, error) {
	path := fmt.Sprintf("/repos/%s/%s/pulls/%d/reviews", url.PathEscape(owner), url.PathEscape(repo), number)

	submitted := 0
	for i := range comments {
		c := &comments[i]
		if err := c.Validate(); err != nil {
			return nil, err
		}
		pos := MapPosition(c)
		req := giteaReviewRequest{
			Event: "COMMENT",
			Comments: []giteaReviewComment{{
				Path:        c.Path,
				Body:        commentBody(c),
				OldPosition: pos.OldLine,
				NewPosition: pos.NewLine,
			}},
		}
		resp, err := g.do(ctx, http.MethodPost, path, "application/json", req)
		if err != nil {
			if submitted > 0 {
				return nil, &core.PartialSubmitError{Submitted: submitted, Total: len(comments), Err: err}
			}
			return nil, err
		}
		resp.Body.Close()
		submitted++
	}

	final := giteaReviewRequest{
		Event: giteaReviewEvent(decision),
		Body:  summary,
	}
	resp, err := g.do(ctx, http.MethodPost, path, "application/json", final)
	if err != nil {
		if submitted > 0 {
			return nil, &core.PartialSubmitError{Submitted: submitted, Total: len(comments), Err: err}
		}
		return nil, err
	}
	defer resp.Body.Close()

	var raw giteaReview
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		g.logger.Warn("review submitted but response was undecodable", "repo", owner+"/"+repo, "pr", number, "error", err)
		return &core.Review{}, nil
	}
	return &core.Review{
		ID:          raw.ID,
		State:       raw.State,
		SubmittedAt: raw.SubmittedAt,
		HTMLURL:     raw.HTMLURL,
	}, nil
}

func (g *giteaProvider) CreateComment(ctx context.Context, owner, repo string, number int, body string) error {
	path := fmt.Sprintf("/repos/%s/%s/issues/%d/comments", url.PathEscape(owner), url.PathEscape(repo), number)
	resp, err := g.do(ctx, http.MethodPost, path, "application/json", map[string]string{"body": body})
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

// giteaReviewEvent maps the canonical decision onto Gitea's review vocabulary.
func giteaReviewEvent(decision core.ReviewDecision) string {
	switch decision {
	case core.DecisionApproved:
		return "APPROVED"
	case core.DecisionRequestChanges:
		return "REQUEST_CHANGES"
	default:
		return "COMMENT"
	}
}

func (g *giteaProvider) VerifyWebhookSignature(payload []byte, signature, secret string) bool {
	return verifyHMACSignature(payload, signature, secret)
}

// escapePathSegments escapes a repository file path for use in a URL while
// keeping its slashes as segment separators.
func escapePathSegments(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
