// Package tagger implements the [CATEGORY:SEVERITY] structured tag convention
// used in review comment bodies, and aggregates review statistics from tagged
// comments.
package tagger

import (
	"fmt"
	"regexp"
	"strings"
)

// Category is the closed vocabulary of issue categories.
type Category string

const (
	CategoryBug         Category = "BUG"
	CategorySecurity    Category = "SECURITY"
	CategoryPerformance Category = "PERFORMANCE"
	CategoryStyle       Category = "STYLE"
	CategoryDocs        Category = "DOCS"
	CategoryTest        Category = "TEST"
	CategoryRefactor    Category = "REFACTOR"
)

// Severity is the closed vocabulary of issue severities.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
)

// Categories lists every valid category.
var Categories = []Category{
	CategoryBug, CategorySecurity, CategoryPerformance,
	CategoryStyle, CategoryDocs, CategoryTest, CategoryRefactor,
}

// Severities lists every valid severity.
var Severities = []Severity{
	SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow,
}

// Tag is one parsed [CATEGORY:SEVERITY] token.
type Tag struct {
	Category Category
	Severity Severity
}

const (
	maxDescriptionLen = 100
	emptyDescription  = "(no description)"
)

// Matches a leading tag like [BUG:HIGH], optionally wrapped in ** bold markers.
var tagRegex = regexp.MustCompile(`^\s*(?:\*\*)?\[([A-Z]+):([A-Z]+)\](?:\*\*)?`)

var suggestionFenceRegex = regexp.MustCompile("(?s)```suggestion\n.*?```")

// ParseTag extracts the structured tag from the start of a comment body.
// A well-formed bracket with an unknown category or severity is treated
// exactly like no tag at all.
func ParseTag(body string) (Tag, bool) {
	m := tagRegex.FindStringSubmatch(body)
	if m == nil {
		return Tag{}, false
	}
	cat := Category(m[1])
	sev := Severity(m[2])
	if !validCategory(cat) || !validSeverity(sev) {
		return Tag{}, false
	}
	return Tag{Category: cat, Severity: sev}, true
}

// FormatTag renders the canonical bold tag prefix for a comment body.
func FormatTag(c Category, s Severity) string {
	return fmt.Sprintf("**[%s:%s]**", c, s)
}

// ExtractDescription strips the tag prefix and any suggestion code fence from
// the body, trims whitespace, and truncates the remainder for display.
// The result is never empty.
func ExtractDescription(body string) string {
	s := tagRegex.ReplaceAllString(body, "")
	s = suggestionFenceRegex.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	if s == "" {
		return emptyDescription
	}
	runes := []rune(s)
	if len(runes) > maxDescriptionLen {
		return string(runes[:maxDescriptionLen]) + "..."
	}
	return s
}

func validCategory(c Category) bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

func validSeverity(s Severity) bool {
	for _, v := range Severities {
		if s == v {
			return true
		}
	}
	return false
}
