package reviewer

import (
	"log/slog"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgesmith/revpilot/internal/core"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestJSONDecoder(t *testing.T) {
	raw := `{
		"decision": "REQUEST_CHANGES",
		"summary": "Two problems found.",
		"comments": [
			{"path": "a.go", "new_line": 10, "body": "**[BUG:HIGH]** nil deref"},
			{"path": "b.go", "old_line": 4, "body": "**[STYLE:LOW]** dead code", "suggestion": ""}
		]
	}`

	result, err := jsonDecoder{}.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, core.DecisionRequestChanges, result.Decision)
	assert.Equal(t, "Two problems found.", result.Summary)
	require.Len(t, result.Comments, 2)
	assert.Equal(t, 10, result.Comments[0].NewLine)
	assert.Equal(t, 4, result.Comments[1].OldLine)
}

func TestJSONDecoderToleratesFence(t *testing.T) {
	raw := "```json\n{\"decision\": \"APPROVED\", \"summary\": \"fine\", \"comments\": []}\n```"
	result, err := jsonDecoder{}.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, core.DecisionApproved, result.Decision)
}

func TestJSONDecoderDropsInvalidComments(t *testing.T) {
	raw := `{"decision": "COMMENT", "summary": "s", "comments": [
		{"path": "a.go", "new_line": 1, "old_line": 2, "body": "both sides set"},
		{"path": "a.go", "body": "no side set"},
		{"path": "a.go", "new_line": 3, "body": "valid"}
	]}`
	result, err := jsonDecoder{}.Decode(raw)
	require.NoError(t, err)
	require.Len(t, result.Comments, 1)
	assert.Equal(t, 3, result.Comments[0].NewLine)
}

func TestJSONDecoderRejects(t *testing.T) {
	_, err := jsonDecoder{}.Decode("not json at all")
	assert.Error(t, err)

	_, err = jsonDecoder{}.Decode(`{"decision": "MAYBE", "summary": "s"}`)
	assert.Error(t, err)
}

func TestRegexDecoderFreeText(t *testing.T) {
	raw := `Here is my review.

**Verdict:** REQUEST CHANGES

Summary: The error path leaks a file handle.

Findings:
- internal/store/db.go:42: handle not closed on early return
- cmd/server/main.go:17: ignored error from Listen
`
	result, err := regexDecoder{}.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, core.DecisionRequestChanges, result.Decision)
	assert.Equal(t, "The error path leaks a file handle.", result.Summary)
	require.Len(t, result.Comments, 2)
	assert.Equal(t, "internal/store/db.go", result.Comments[0].Path)
	assert.Equal(t, 42, result.Comments[0].NewLine)
	assert.Zero(t, result.Comments[0].OldLine)
}

func TestRegexDecoderDefaultsToComment(t *testing.T) {
	result, err := regexDecoder{}.Decode("Looks reasonable overall, nothing blocking.")
	require.NoError(t, err)
	assert.Equal(t, core.DecisionComment, result.Decision)
	assert.NotEmpty(t, result.Summary)
}

func TestDecodeResponseChainOrder(t *testing.T) {
	// Valid JSON must be handled by the JSON decoder, not the heuristic.
	raw := `{"decision": "APPROVED", "summary": "clean", "comments": []}`
	result := DecodeResponse(raw, DefaultDecoders(), testLogger())
	assert.Equal(t, core.DecisionApproved, result.Decision)
	assert.Equal(t, "clean", result.Summary)
}

func TestDecodeResponseSafeFallback(t *testing.T) {
	result := DecodeResponse("", DefaultDecoders(), testLogger())
	assert.Equal(t, core.DecisionComment, result.Decision)
	assert.Empty(t, result.Comments)
	assert.NotEmpty(t, result.Summary)
}

func TestTruncationKeepsRunesIntact(t *testing.T) {
	long := strings.Repeat("ü", 600)

	para := firstParagraph(long)
	assert.True(t, utf8.ValidString(para))
	assert.Equal(t, 500, utf8.RuneCountInString(para))

	result := DecodeResponse(strings.Repeat("é", 2500), nil, testLogger())
	assert.True(t, utf8.ValidString(result.Summary))
	assert.Equal(t, 2000, utf8.RuneCountInString(result.Summary))
}

func TestNormalizeDecision(t *testing.T) {
	for in, want := range map[string]core.ReviewDecision{
		"APPROVED":        core.DecisionApproved,
		"approve":         core.DecisionApproved,
		"LGTM":            core.DecisionApproved,
		"REQUEST CHANGES": core.DecisionRequestChanges,
		"request_changes": core.DecisionRequestChanges,
		"comment":         core.DecisionComment,
	} {
		got, ok := normalizeDecision(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got)
	}

	_, ok := normalizeDecision("shrug")
	assert.False(t, ok)
}

func TestRenderPrompt(t *testing.T) {
	req := &core.ReviewRequest{
		RepoFullName: "acme/widgets",
		PRTitle:      "Add frobnicator",
		Diff:         "diff --git a/x b/x",
		Commits: []core.Commit{
			{SHA: "0123456789abcdef", Message: "first line\nbody"},
		},
		Instructions: []string{"prefer table tests"},
	}
	prompt, err := renderPrompt(req)
	require.NoError(t, err)
	assert.Contains(t, prompt, "acme/widgets")
	assert.Contains(t, prompt, "01234567 first line")
	assert.NotContains(t, prompt, "body")
	assert.Contains(t, prompt, "prefer table tests")
	assert.Contains(t, prompt, "diff --git")
}
