package core

import (
	"fmt"
	"time"
)

// ReviewDecision is the canonical verdict of a review. Each provider maps it
// onto its own review-state vocabulary when submitting.
type ReviewDecision string

const (
	DecisionApproved       ReviewDecision = "APPROVED"
	DecisionRequestChanges ReviewDecision = "REQUEST_CHANGES"
	DecisionComment        ReviewDecision = "COMMENT"
)

// LineComment is a single review comment anchored to one side of a diff.
// Exactly one of OldLine/NewLine must be set; a comment with both or neither
// is invalid and must be rejected before submission.
type LineComment struct {
	Path       string
	OldLine    int
	NewLine    int
	Body       string
	Suggestion string
}

// Validate enforces the one-sided anchoring invariant.
func (c *LineComment) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("line comment has no file path")
	}
	if (c.OldLine > 0) == (c.NewLine > 0) {
		return fmt.Errorf("line comment on %s must set exactly one of old/new line (old=%d, new=%d)",
			c.Path, c.OldLine, c.NewLine)
	}
	return nil
}

// ReviewResult is what the Reviewer capability produces for one pull request.
type ReviewResult struct {
	Decision ReviewDecision
	Summary  string
	Comments []LineComment
}

// Repository is the subset of forge repository data the pipeline needs.
type Repository struct {
	Owner         string
	Name          string
	FullName      string
	DefaultBranch string
	CloneURL      string
	Private       bool
}

// PullRequest is the subset of forge pull request data the pipeline needs.
type PullRequest struct {
	Number    int
	Title     string
	Body      string
	State     string
	HeadSHA   string
	BaseSHA   string
	Author    string
	UpdatedAt time.Time
}

// ChangedFile holds the filename and patch data for a single file included
// in a pull request.
type ChangedFile struct {
	Filename string
	Status   string
	Patch    string
}

// Commit is an immutable commit reference sourced from the forge.
type Commit struct {
	SHA       string
	Timestamp time.Time
	Message   string
}

// ReviewRecord is a forge-side review as returned by the provider. It is used
// only to compute the last reviewed commit for incremental re-review.
type ReviewRecord struct {
	ID          int64
	AuthorLogin string
	CommitSHA   string
	SubmittedAt time.Time
	State       string
}

// Review is the forge-side review created by a submit call.
type Review struct {
	ID          int64
	State       string
	SubmittedAt time.Time
	HTMLURL     string
}
