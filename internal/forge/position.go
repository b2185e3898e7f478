package forge

import "github.com/forgesmith/revpilot/internal/core"

// Position is a line comment mapped onto the two-field convention forge APIs
// use. Exactly one of OldLine/NewLine is non-zero; the other side carries a
// zero sentinel because some forge APIs require both keys to be present.
type Position struct {
	OldLine int64
	NewLine int64
}

// MapPosition converts a canonical LineComment into the forge-side position
// pair. The comment must already satisfy Validate.
func MapPosition(c *core.LineComment) Position {
	if c.NewLine > 0 {
		return Position{OldLine: 0, NewLine: int64(c.NewLine)}
	}
	return Position{OldLine: int64(c.OldLine), NewLine: 0}
}

// commentBody renders the wire body of a line comment: the text itself plus
// an optional fenced suggestion block that forges render as an appliable patch.
func commentBody(c *core.LineComment) string {
	if c.Suggestion == "" {
		return c.Body
	}
	return c.Body + "\n\n```suggestion\n" + c.Suggestion + "\n```"
}
