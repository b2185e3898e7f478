package forge

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgesmith/revpilot/internal/core"
)

func newTestGitHub(t *testing.T) core.ForgeProvider {
	t.Helper()
	provider, err := NewGitHubProvider(Options{
		Token:    "secret-token",
		Triggers: []string{"/review"},
	}, testLogger())
	require.NoError(t, err)
	return provider
}

// requestHeaders builds the header map the way the webhook handler does,
// by ranging over an http.Request's headers. Go rewrites the keys to its
// canonical spelling, so X-GitHub-Event comes out as X-Github-Event.
func requestHeaders(t *testing.T, kv map[string]string) map[string]string {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", nil)
	for key, value := range kv {
		req.Header.Set(key, value)
	}
	headers := make(map[string]string, len(req.Header))
	for key := range req.Header {
		headers[key] = req.Header.Get(key)
	}
	return headers
}

const githubPullRequestPayload = `{
	"action": "opened",
	"pull_request": {
		"number": 7,
		"title": "Add frobnicator",
		"head": {"sha": "abc123"}
	},
	"repository": {
		"name": "widgets",
		"full_name": "acme/widgets",
		"owner": {"login": "acme"}
	},
	"sender": {"login": "alice"}
}`

func TestGitHubParseWebhookPullRequest(t *testing.T) {
	provider := newTestGitHub(t)

	headers := requestHeaders(t, map[string]string{
		"X-GitHub-Event":    "pull_request",
		"X-GitHub-Delivery": "delivery-1",
	})

	event, err := provider.ParseWebhookEvent([]byte(githubPullRequestPayload), headers)
	require.NoError(t, err)
	require.NotNil(t, event, "canonicalized header keys must still reach the adapter")

	assert.Equal(t, core.EventPROpened, event.Type)
	assert.Equal(t, "delivery-1", event.DeliveryID)
	assert.Equal(t, "acme", event.RepoOwner)
	assert.Equal(t, "widgets", event.RepoName)
	assert.Equal(t, 7, event.PRNumber)
	assert.Equal(t, "abc123", event.HeadSHA)
	assert.Equal(t, "alice", event.Sender)
	assert.True(t, event.ShouldTriggerReview())
}

func TestGitHubParseWebhookIssueComment(t *testing.T) {
	provider := newTestGitHub(t)

	payload := `{
		"action": "created",
		"issue": {
			"number": 7,
			"title": "Add frobnicator",
			"pull_request": {"url": "https://api.github.com/repos/acme/widgets/pulls/7"}
		},
		"comment": {
			"body": "/review please",
			"user": {"login": "alice"}
		},
		"repository": {
			"name": "widgets",
			"full_name": "acme/widgets",
			"owner": {"login": "acme"}
		},
		"sender": {"login": "alice"}
	}`
	headers := requestHeaders(t, map[string]string{"X-GitHub-Event": "issue_comment"})

	event, err := provider.ParseWebhookEvent([]byte(payload), headers)
	require.NoError(t, err)
	require.NotNil(t, event)

	assert.Equal(t, core.EventPRComment, event.Type)
	assert.Equal(t, 7, event.PRNumber)
	assert.Equal(t, "created", event.CommentAction)
	assert.Equal(t, []string{"/review"}, event.Triggers)
	assert.True(t, event.ShouldTriggerReview())
}

func TestGitHubParseWebhookIgnoredDeliveries(t *testing.T) {
	provider := newTestGitHub(t)

	tests := []struct {
		name    string
		event   string
		payload string
	}{
		{
			name:    "comment on a plain issue",
			event:   "issue_comment",
			payload: `{"action":"created","issue":{"number":3},"comment":{"body":"/review"},"repository":{"name":"widgets","owner":{"login":"acme"}},"sender":{"login":"alice"}}`,
		},
		{
			name:    "unhandled pull request action",
			event:   "pull_request",
			payload: `{"action":"labeled","pull_request":{"number":7},"repository":{"name":"widgets","owner":{"login":"acme"}},"sender":{"login":"alice"}}`,
		},
		{
			name:    "unhandled event type",
			event:   "push",
			payload: `{"ref":"refs/heads/main"}`,
		},
		{
			name:    "missing event header",
			event:   "",
			payload: githubPullRequestPayload,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers := map[string]string{}
			if tt.event != "" {
				headers = requestHeaders(t, map[string]string{"X-GitHub-Event": tt.event})
			}
			event, err := provider.ParseWebhookEvent([]byte(tt.payload), headers)
			require.NoError(t, err)
			assert.Nil(t, event)
		})
	}
}

func TestGitHubParseWebhookMalformedPayload(t *testing.T) {
	provider := newTestGitHub(t)
	headers := requestHeaders(t, map[string]string{"X-GitHub-Event": "pull_request"})

	_, err := provider.ParseWebhookEvent([]byte("{not json"), headers)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrValidation)
}
