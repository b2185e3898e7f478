package reviewer

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/forgesmith/revpilot/internal/core"
)

// ResponseDecoder turns raw model output into a structured review result.
// Decoders are tried in order; the first success wins.
type ResponseDecoder interface {
	Decode(raw string) (*core.ReviewResult, error)
}

// DefaultDecoders is the standard chain: strict JSON first, then the
// regex-based heuristic for models that ignored the output contract.
func DefaultDecoders() []ResponseDecoder {
	return []ResponseDecoder{jsonDecoder{}, regexDecoder{}}
}

// DecodeResponse runs the decoder chain. When every decoder fails, it degrades
// to the safe default: decision COMMENT with no line comments, so an
// unparsable model response never fails the whole review.
func DecodeResponse(raw string, decoders []ResponseDecoder, logger *slog.Logger) *core.ReviewResult {
	for _, d := range decoders {
		result, err := d.Decode(raw)
		if err == nil {
			return result
		}
		logger.Debug("response decoder failed, trying next", "decoder", fmt.Sprintf("%T", d), "error", err)
	}

	logger.Warn("all response decoders failed, falling back to plain comment")
	summary := truncateRunes(strings.TrimSpace(raw), 2000)
	if summary == "" {
		summary = "The automated reviewer produced no usable output."
	}
	return &core.ReviewResult{
		Decision: core.DecisionComment,
		Summary:  summary,
		Comments: nil,
	}
}

// jsonDecoder parses the structured JSON contract, tolerating a markdown code
// fence around the payload.
type jsonDecoder struct{}

type jsonReviewPayload struct {
	Decision string `json:"decision"`
	Summary  string `json:"summary"`
	Comments []struct {
		Path       string `json:"path"`
		OldLine    int    `json:"old_line"`
		NewLine    int    `json:"new_line"`
		Body       string `json:"body"`
		Suggestion string `json:"suggestion"`
	} `json:"comments"`
}

func (jsonDecoder) Decode(raw string) (*core.ReviewResult, error) {
	text := stripCodeFence(raw)

	var payload jsonReviewPayload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrValidation, err)
	}

	decision, ok := normalizeDecision(payload.Decision)
	if !ok {
		return nil, fmt.Errorf("%w: unknown decision %q", core.ErrValidation, payload.Decision)
	}

	result := &core.ReviewResult{
		Decision: decision,
		Summary:  strings.TrimSpace(payload.Summary),
	}
	for _, c := range payload.Comments {
		comment := core.LineComment{
			Path:       c.Path,
			OldLine:    c.OldLine,
			NewLine:    c.NewLine,
			Body:       c.Body,
			Suggestion: c.Suggestion,
		}
		// Comments violating the one-sided anchoring invariant are dropped,
		// not fatal: the rest of the review is still usable.
		if comment.Validate() != nil {
			continue
		}
		result.Comments = append(result.Comments, comment)
	}
	return result, nil
}

// regexDecoder is the last-resort heuristic for free-text model output.
type regexDecoder struct{}

var (
	decisionRegex = regexp.MustCompile(`(?im)^\s*(?:\*\*)?(?:decision|verdict)(?:\*\*)?\s*[:=]?\s*(?:\*\*)?\s*(APPROVED?|REQUEST[_ ]CHANGES|COMMENT|LGTM)`)
	summaryRegex  = regexp.MustCompile(`(?is)(?:\*\*)?summary(?:\*\*)?\s*[:=]\s*(.+?)(?:\n\s*\n|$)`)
	// Matches "path/to/file.go:123: the finding" style lines.
	inlineCommentRegex = regexp.MustCompile(`(?m)^[-*]?\s*([\w./-]+\.\w+):(\d+):?\s+(.+)$`)
)

func (regexDecoder) Decode(raw string) (*core.ReviewResult, error) {
	result := &core.ReviewResult{Decision: core.DecisionComment}

	if m := decisionRegex.FindStringSubmatch(raw); m != nil {
		if decision, ok := normalizeDecision(m[1]); ok {
			result.Decision = decision
		}
	}

	if m := summaryRegex.FindStringSubmatch(raw); m != nil {
		result.Summary = strings.TrimSpace(m[1])
	} else {
		result.Summary = firstParagraph(raw)
	}
	if result.Summary == "" {
		return nil, fmt.Errorf("%w: no summary recognizable in free-text output", core.ErrValidation)
	}

	for _, m := range inlineCommentRegex.FindAllStringSubmatch(raw, -1) {
		line, err := strconv.Atoi(m[2])
		if err != nil || line <= 0 {
			continue
		}
		result.Comments = append(result.Comments, core.LineComment{
			Path:    m[1],
			NewLine: line,
			Body:    strings.TrimSpace(m[3]),
		})
	}
	return result, nil
}

// normalizeDecision folds provider and model spelling variants onto the
// canonical vocabulary.
func normalizeDecision(s string) (core.ReviewDecision, bool) {
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), " ", "_")) {
	case "APPROVED", "APPROVE", "LGTM":
		return core.DecisionApproved, true
	case "REQUEST_CHANGES", "CHANGES_REQUESTED":
		return core.DecisionRequestChanges, true
	case "COMMENT", "COMMENTED", "NEUTRAL":
		return core.DecisionComment, true
	default:
		return "", false
	}
}

func stripCodeFence(s string) string {
	text := strings.TrimSpace(s)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[idx+1:]
	}
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

// truncateRunes shortens s to at most n runes without splitting a multibyte
// character.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func firstParagraph(s string) string {
	for _, para := range strings.Split(strings.TrimSpace(s), "\n\n") {
		para = strings.TrimSpace(para)
		if para != "" {
			return truncateRunes(para, 500)
		}
	}
	return ""
}
