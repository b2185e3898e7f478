package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgesmith/revpilot/internal/config"
	"github.com/forgesmith/revpilot/internal/core"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// fakeProvider implements core.ForgeProvider with overridable behavior.
type fakeProvider struct {
	diff    string
	commits []core.Commit
	reviews []core.ReviewRecord
	fileErr error

	mu             sync.Mutex
	created        []createdReview
	createErr      error
	commentsPosted []string
}

type createdReview struct {
	decision core.ReviewDecision
	summary  string
	comments []core.LineComment
}

func (f *fakeProvider) Kind() string { return "fake" }

func (f *fakeProvider) GetRepository(context.Context, string, string) (*core.Repository, error) {
	return &core.Repository{FullName: "acme/widgets"}, nil
}

func (f *fakeProvider) GetPullRequest(context.Context, string, string, int) (*core.PullRequest, error) {
	return &core.PullRequest{Number: 7, Title: "T", HeadSHA: "head"}, nil
}

func (f *fakeProvider) GetPullRequestDiff(context.Context, string, string, int) (string, error) {
	return f.diff, nil
}

func (f *fakeProvider) GetPullRequestFiles(context.Context, string, string, int) ([]core.ChangedFile, error) {
	return nil, nil
}

func (f *fakeProvider) ListPullRequestCommits(context.Context, string, string, int) ([]core.Commit, error) {
	return f.commits, nil
}

func (f *fakeProvider) ListPullRequestReviews(context.Context, string, string, int) ([]core.ReviewRecord, error) {
	return f.reviews, nil
}

func (f *fakeProvider) GetFileContent(context.Context, string, string, string, string) ([]byte, error) {
	return nil, f.fileErr
}

func (f *fakeProvider) CreateReview(_ context.Context, _, _ string, _ int, decision core.ReviewDecision, summary string, comments []core.LineComment) (*core.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, createdReview{decision: decision, summary: summary, comments: comments})
	return &core.Review{ID: 1}, nil
}

func (f *fakeProvider) CreateComment(_ context.Context, _, _ string, _ int, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commentsPosted = append(f.commentsPosted, body)
	return nil
}

func (f *fakeProvider) VerifyWebhookSignature([]byte, string, string) bool { return true }

func (f *fakeProvider) ParseWebhookEvent([]byte, map[string]string) (*core.ReviewEvent, error) {
	return nil, nil
}

// fakeReviewer returns a canned raw response.
type fakeReviewer struct {
	raw string
	err error

	mu       sync.Mutex
	requests []*core.ReviewRequest
}

func (f *fakeReviewer) Review(_ context.Context, req *core.ReviewRequest) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.raw, f.err
}

// memStore is an in-memory storage.Store.
type memStore struct {
	mu   sync.Mutex
	runs map[string]*core.ReviewRun
}

func newMemStore() *memStore {
	return &memStore{runs: make(map[string]*core.ReviewRun)}
}

func (m *memStore) CreateRun(_ context.Context, run *core.ReviewRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if run.Status == "" {
		run.Status = core.RunPending
	}
	m.runs[run.ID] = run
	return nil
}

func (m *memStore) MarkProcessing(_ context.Context, id string) error {
	return m.setStatus(id, core.RunProcessing)
}

func (m *memStore) MarkCompleted(_ context.Context, id string, decision core.ReviewDecision, summary string, commentCount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return errors.New("not found")
	}
	run.Status = core.RunCompleted
	run.Decision = string(decision)
	run.Summary = summary
	run.CommentCount = commentCount
	return nil
}

func (m *memStore) MarkFailed(_ context.Context, id, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return errors.New("not found")
	}
	run.Status = core.RunFailed
	run.Error = message
	return nil
}

func (m *memStore) ResetForRetry(_ context.Context, id string) error {
	return m.setStatus(id, core.RunPending)
}

func (m *memStore) GetRun(_ context.Context, id string) (*core.ReviewRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, errors.New("not found")
	}
	copied := *run
	return &copied, nil
}

func (m *memStore) ListRunsForPR(context.Context, string, int, int) ([]core.ReviewRun, error) {
	return nil, nil
}

func (m *memStore) setStatus(id string, status core.RunStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return errors.New("not found")
	}
	run.Status = status
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		BotLogin:       "revpilot-bot",
		RepoConfigPath: ".revpilot.yml",
		Triggers:       []string{"/review"},
	}
}

func testEvent() *core.ReviewEvent {
	return &core.ReviewEvent{
		Type:         core.EventPRComment,
		Provider:     "gitea",
		RepoOwner:    "acme",
		RepoName:     "widgets",
		RepoFullName: "acme/widgets",
		PRNumber:     7,
		Sender:       "alice",
	}
}

const testDiff = `diff --git a/main.go b/main.go
@@ -1,3 +1,4 @@
 package main
-func old() {}
+func renamed() {}
+func extra() {}
`

func seedRun(t *testing.T, store *memStore) string {
	t.Helper()
	run := &core.ReviewRun{ID: "run-1", RepoFullName: "acme/widgets", PRNumber: 7}
	require.NoError(t, store.CreateRun(context.Background(), run))
	return run.ID
}

func TestReviewJobHappyPath(t *testing.T) {
	provider := &fakeProvider{
		diff:    testDiff,
		commits: []core.Commit{{SHA: "head"}},
		fileErr: errors.New("no config file"),
	}
	rev := &fakeReviewer{raw: `{
		"decision": "REQUEST_CHANGES",
		"summary": "One bug.",
		"comments": [{"path": "main.go", "new_line": 2, "body": "**[BUG:HIGH]** broken"}]
	}`}
	store := newMemStore()
	runID := seedRun(t, store)

	job := NewReviewJob(testConfig(), provider, rev, store, testLogger())
	require.NoError(t, job.Run(context.Background(), runID, testEvent()))

	run, err := store.GetRun(context.Background(), runID)
	require.NoError(t, err)
	assert.Equal(t, core.RunCompleted, run.Status)
	assert.Equal(t, "REQUEST_CHANGES", run.Decision)
	assert.Equal(t, 1, run.CommentCount)

	require.Len(t, provider.created, 1)
	assert.Equal(t, core.DecisionRequestChanges, provider.created[0].decision)
	assert.Contains(t, provider.created[0].summary, "One bug.")
	assert.Contains(t, provider.created[0].summary, "Health score:")
}

func TestReviewJobEmptyDiffShortcut(t *testing.T) {
	provider := &fakeProvider{diff: "   \n  "}
	rev := &fakeReviewer{raw: "should never be called"}
	store := newMemStore()
	runID := seedRun(t, store)

	job := NewReviewJob(testConfig(), provider, rev, store, testLogger())
	require.NoError(t, job.Run(context.Background(), runID, testEvent()))

	run, _ := store.GetRun(context.Background(), runID)
	assert.Equal(t, core.RunCompleted, run.Status)
	assert.Equal(t, string(core.DecisionComment), run.Decision)
	assert.Equal(t, noChangesSummary, run.Summary)
	assert.Empty(t, rev.requests, "reviewer must not be invoked for an empty diff")
	assert.Empty(t, provider.created, "nothing is submitted for an empty diff")
}

func TestReviewJobFullyReviewedShortcut(t *testing.T) {
	provider := &fakeProvider{
		diff:    testDiff,
		commits: []core.Commit{{SHA: "A"}, {SHA: "B"}},
		reviews: []core.ReviewRecord{
			{AuthorLogin: "revpilot-bot", CommitSHA: "B", SubmittedAt: time.Now()},
		},
		fileErr: errors.New("no config file"),
	}
	rev := &fakeReviewer{raw: "unused"}
	store := newMemStore()
	runID := seedRun(t, store)

	job := NewReviewJob(testConfig(), provider, rev, store, testLogger())
	require.NoError(t, job.Run(context.Background(), runID, testEvent()))

	run, _ := store.GetRun(context.Background(), runID)
	assert.Equal(t, core.RunCompleted, run.Status)
	assert.Equal(t, fullyReviewedSummary, run.Summary)
	assert.Empty(t, rev.requests)
	assert.Empty(t, provider.created)
}

func TestReviewJobIncrementalScope(t *testing.T) {
	provider := &fakeProvider{
		diff:    testDiff,
		commits: []core.Commit{{SHA: "A"}, {SHA: "B"}, {SHA: "C"}},
		reviews: []core.ReviewRecord{
			{AuthorLogin: "revpilot-bot", CommitSHA: "A", SubmittedAt: time.Now()},
			{AuthorLogin: "human", CommitSHA: "C", SubmittedAt: time.Now().Add(time.Hour)},
		},
		fileErr: errors.New("no config file"),
	}
	rev := &fakeReviewer{raw: `{"decision": "APPROVED", "summary": "ok", "comments": []}`}
	store := newMemStore()
	runID := seedRun(t, store)

	job := NewReviewJob(testConfig(), provider, rev, store, testLogger())
	require.NoError(t, job.Run(context.Background(), runID, testEvent()))

	// Only the bot's own review on A anchors the scope; human review on C
	// is ignored, so B and C are in scope.
	require.Len(t, rev.requests, 1)
	require.Len(t, rev.requests[0].Commits, 2)
	assert.Equal(t, "B", rev.requests[0].Commits[0].SHA)

	run, _ := store.GetRun(context.Background(), runID)
	assert.Contains(t, run.Summary, "Incremental review")
}

func TestReviewJobReviewerErrorFailsRun(t *testing.T) {
	provider := &fakeProvider{
		diff:    testDiff,
		commits: []core.Commit{{SHA: "head"}},
		fileErr: errors.New("no config file"),
	}
	rev := &fakeReviewer{err: errors.New("model unavailable")}
	store := newMemStore()
	runID := seedRun(t, store)

	job := NewReviewJob(testConfig(), provider, rev, store, testLogger())
	err := job.Run(context.Background(), runID, testEvent())
	require.Error(t, err)

	run, _ := store.GetRun(context.Background(), runID)
	assert.Equal(t, core.RunFailed, run.Status)
	assert.Contains(t, run.Error, "model unavailable")
}

func TestReviewJobUnparsableOutputDegradesToComment(t *testing.T) {
	provider := &fakeProvider{
		diff:    testDiff,
		commits: []core.Commit{{SHA: "head"}},
		fileErr: errors.New("no config file"),
	}
	rev := &fakeReviewer{raw: ""}
	store := newMemStore()
	runID := seedRun(t, store)

	job := NewReviewJob(testConfig(), provider, rev, store, testLogger())
	require.NoError(t, job.Run(context.Background(), runID, testEvent()))

	run, _ := store.GetRun(context.Background(), runID)
	assert.Equal(t, core.RunCompleted, run.Status)
	assert.Equal(t, string(core.DecisionComment), run.Decision)
	assert.Zero(t, run.CommentCount)
}

func TestReviewJobFiltersCommentsOutsideDiff(t *testing.T) {
	provider := &fakeProvider{
		diff:    testDiff,
		commits: []core.Commit{{SHA: "head"}},
		fileErr: errors.New("no config file"),
	}
	// Line 999 is not in the diff; old-side line 2 is (the deletion).
	rev := &fakeReviewer{raw: `{
		"decision": "COMMENT",
		"summary": "mixed",
		"comments": [
			{"path": "main.go", "new_line": 999, "body": "[BUG:LOW] out of range"},
			{"path": "main.go", "old_line": 2, "body": "[REFACTOR:LOW] removed fn"},
			{"path": "other.go", "new_line": 2, "body": "[BUG:LOW] wrong file"}
		]
	}`}
	store := newMemStore()
	runID := seedRun(t, store)

	job := NewReviewJob(testConfig(), provider, rev, store, testLogger())
	require.NoError(t, job.Run(context.Background(), runID, testEvent()))

	require.Len(t, provider.created, 1)
	comments := provider.created[0].comments
	require.Len(t, comments, 1)
	assert.Equal(t, 2, comments[0].OldLine)
}

func TestDispatcherProcessesJobs(t *testing.T) {
	provider := &fakeProvider{diff: ""}
	store := newMemStore()
	runID := seedRun(t, store)

	job := NewReviewJob(testConfig(), provider, &fakeReviewer{}, store, testLogger())
	d := NewDispatcher(job, 2, testLogger())

	require.NoError(t, d.Dispatch(context.Background(), runID, testEvent()))
	d.Stop()

	run, _ := store.GetRun(context.Background(), runID)
	assert.Equal(t, core.RunCompleted, run.Status)
}
