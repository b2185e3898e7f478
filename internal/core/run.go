package core

import "time"

// RunStatus is the lifecycle state of one review attempt.
// Transitions: pending -> processing -> completed | failed. A failed run can
// be reset to pending by an operator; there is no automatic retry.
type RunStatus string

const (
	RunPending    RunStatus = "pending"
	RunProcessing RunStatus = "processing"
	RunCompleted  RunStatus = "completed"
	RunFailed     RunStatus = "failed"
)

// ReviewRun is the persisted record of a single review attempt. It is the only
// shared mutable state of the background pipeline, owned exclusively by the
// job that created it.
type ReviewRun struct {
	ID           string    `db:"id"`
	Provider     string    `db:"provider"`
	RepoFullName string    `db:"repo_full_name"`
	PRNumber     int       `db:"pr_number"`
	HeadSHA      string    `db:"head_sha"`
	TriggeredBy  string    `db:"triggered_by"`
	Status       RunStatus `db:"status"`
	Decision     string    `db:"decision"`
	Summary      string    `db:"summary"`
	CommentCount int       `db:"comment_count"`
	Error        string    `db:"error"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}
