package tagger

import (
	"fmt"
	"strings"
)

// maxTrackedIssues bounds the per-review issue list so a pathological review
// cannot grow the record without limit.
const maxTrackedIssues = 50

// Issue is one tagged finding attributed to a file.
type Issue struct {
	Tag         Tag
	File        string
	Description string
}

// Stats aggregates tagged review comments into running counts and a weighted
// health score.
type Stats struct {
	Total      int
	ByCategory map[Category]int
	BySeverity map[Severity]int
	ByPair     map[Tag]int
	ByFile     map[string]int
	Issues     []Issue
}

// NewStats returns an empty aggregation.
func NewStats() *Stats {
	return &Stats{
		ByCategory: make(map[Category]int),
		BySeverity: make(map[Severity]int),
		ByPair:     make(map[Tag]int),
		ByFile:     make(map[string]int),
	}
}

// Record aggregates one comment body. Untagged bodies are counted nowhere.
func (s *Stats) Record(file, body string) {
	tag, ok := ParseTag(body)
	if !ok {
		return
	}
	s.Total++
	s.ByCategory[tag.Category]++
	s.BySeverity[tag.Severity]++
	s.ByPair[tag]++
	s.ByFile[file]++
	if len(s.Issues) < maxTrackedIssues {
		s.Issues = append(s.Issues, Issue{
			Tag:         tag,
			File:        file,
			Description: ExtractDescription(body),
		})
	}
}

// HealthScore computes 100 minus the severity-weighted issue count, floored
// at zero. Critical weighs 10, high 5, medium 2, low 1.
func (s *Stats) HealthScore() int {
	score := 100 -
		s.BySeverity[SeverityCritical]*10 -
		s.BySeverity[SeverityHigh]*5 -
		s.BySeverity[SeverityMedium]*2 -
		s.BySeverity[SeverityLow]*1
	if score < 0 {
		return 0
	}
	return score
}

// Summarize renders a short markdown block with the aggregated counts,
// suitable for appending to the review summary comment.
func (s *Stats) Summarize() string {
	if s.Total == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "**Findings:** %d | **Health score:** %d/100\n\n", s.Total, s.HealthScore())
	for _, sev := range Severities {
		if n := s.BySeverity[sev]; n > 0 {
			fmt.Fprintf(&b, "- %s: %d\n", sev, n)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
