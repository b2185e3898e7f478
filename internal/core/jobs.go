package core

import "context"

// JobDispatcher defines the contract for a system that can accept and queue
// background jobs for asynchronous processing. This interface decouples the
// event source (the webhook handler) from the job execution mechanism.
type JobDispatcher interface {
	// Dispatch queues a review run for processing. It returns an error if the
	// job cannot be queued, for example when the queue is full, providing a
	// mechanism for backpressure.
	Dispatch(ctx context.Context, runID string, event *ReviewEvent) error
}

// Job represents a single, executable unit of work processed by the
// dispatcher's workers.
type Job interface {
	// Run executes the job's logic for the given review run. Errors are
	// captured into the run record by the implementation; the return value
	// exists for logging only.
	Run(ctx context.Context, runID string, event *ReviewEvent) error
}

// Reviewer is the external AI capability. It receives a rendered prompt with
// the diff and context, and returns the model's raw output; decoding it into a
// ReviewResult is the caller's concern.
type Reviewer interface {
	Review(ctx context.Context, req *ReviewRequest) (string, error)
}

// ReviewRequest is the input to the Reviewer capability.
type ReviewRequest struct {
	RepoFullName string
	PRTitle      string
	PRBody       string
	Diff         string
	Commits      []Commit
	Instructions []string
}
