package forge

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgesmith/revpilot/internal/core"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyHMACSignature(t *testing.T) {
	payload := []byte(`{"action":"opened"}`)
	secret := "hunter2"
	valid := sign(payload, secret)

	assert.True(t, verifyHMACSignature(payload, valid, secret))
	assert.True(t, verifyHMACSignature(payload, "sha256="+valid, secret),
		"forge-specific prefix must be normalized")

	assert.False(t, verifyHMACSignature(payload, valid, "wrong-secret"))
	assert.False(t, verifyHMACSignature([]byte("tampered"), valid, secret))
	assert.False(t, verifyHMACSignature(payload, "not-hex!", secret))
	assert.False(t, verifyHMACSignature(payload, "", secret))
	assert.False(t, verifyHMACSignature(payload, valid, ""))
}

func TestExtractTriggers(t *testing.T) {
	triggers := []string{"/review", "/revpilot"}

	tests := []struct {
		name string
		body string
		want []string
	}{
		{"exact match", "/review", []string{"/review"}},
		{"case insensitive", "/REVIEW please", []string{"/review"}},
		{"mid sentence", "hey bot, /revpilot this", []string{"/revpilot"}},
		{"both tokens", "/review and /revpilot", []string{"/review", "/revpilot"}},
		{"word boundary right", "/reviewing the change", nil},
		{"embedded in word", "do-not-/review", nil},
		{"no match", "looks good to me", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractTriggers(tt.body, triggers))
		})
	}
}

func TestMapPositionMutualExclusivity(t *testing.T) {
	newSide := core.LineComment{Path: "a.go", NewLine: 42, Body: "x"}
	pos := MapPosition(&newSide)
	assert.Equal(t, int64(42), pos.NewLine)
	assert.Zero(t, pos.OldLine)

	oldSide := core.LineComment{Path: "a.go", OldLine: 7, Body: "x"}
	pos = MapPosition(&oldSide)
	assert.Equal(t, int64(7), pos.OldLine)
	assert.Zero(t, pos.NewLine)
}

func TestLineCommentValidate(t *testing.T) {
	assert.NoError(t, (&core.LineComment{Path: "a.go", NewLine: 1}).Validate())
	assert.NoError(t, (&core.LineComment{Path: "a.go", OldLine: 1}).Validate())
	assert.Error(t, (&core.LineComment{Path: "a.go"}).Validate(), "both absent")
	assert.Error(t, (&core.LineComment{Path: "a.go", OldLine: 1, NewLine: 2}).Validate(), "both present")
	assert.Error(t, (&core.LineComment{NewLine: 1}).Validate(), "missing path")
}

func TestCommentBodySuggestionFence(t *testing.T) {
	c := core.LineComment{Path: "a.go", NewLine: 3, Body: "**[BUG:HIGH]** wrong bound", Suggestion: "i <= n"}
	body := commentBody(&c)
	assert.Contains(t, body, "```suggestion\ni <= n\n```")

	plain := core.LineComment{Path: "a.go", NewLine: 3, Body: "note"}
	assert.Equal(t, "note", commentBody(&plain))
}

func TestFactory(t *testing.T) {
	gitea, err := New(KindGitea, Options{BaseURL: "https://gitea.local"}, testLogger())
	require.NoError(t, err)
	assert.Equal(t, "gitea", gitea.Kind())

	gh, err := New(KindGitHub, Options{Token: "tok"}, testLogger())
	require.NoError(t, err)
	assert.Equal(t, "github", gh.Kind())

	_, err = New(KindGitLab, Options{}, testLogger())
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrNotImplemented))

	_, err = New(Kind("svn"), Options{}, testLogger())
	assert.Error(t, err)
}
