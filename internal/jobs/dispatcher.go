// Package jobs runs the background review pipeline: a worker-pool dispatcher
// and the review job it executes.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/forgesmith/revpilot/internal/core"
)

// queuedJob pairs a review run with the event that created it.
type queuedJob struct {
	runID string
	event *core.ReviewEvent
}

// dispatcher implements core.JobDispatcher with a pool of worker goroutines.
type dispatcher struct {
	reviewJob  core.Job
	jobQueue   chan queuedJob
	maxWorkers int
	wg         sync.WaitGroup
	logger     *slog.Logger
}

const queueCapacity = 100

// NewDispatcher initializes a dispatcher with a worker pool.
// If maxWorkers is 0 or negative, it defaults to 1.
func NewDispatcher(reviewJob core.Job, maxWorkers int, logger *slog.Logger) *Dispatcher {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	d := &dispatcher{
		reviewJob:  reviewJob,
		maxWorkers: maxWorkers,
		jobQueue:   make(chan queuedJob, queueCapacity),
		logger:     logger,
	}
	d.startWorkers()
	return &Dispatcher{d}
}

// Dispatcher is the exported handle; it exposes Stop in addition to the
// core.JobDispatcher contract.
type Dispatcher struct {
	*dispatcher
}

func (d *dispatcher) startWorkers() {
	for i := range d.maxWorkers {
		d.wg.Add(1)
		go d.startWorker(i)
	}
}

// startWorker processes jobs from the queue until it's closed.
func (d *dispatcher) startWorker(workerID int) {
	defer d.wg.Done()
	d.logger.Info("starting review worker", "id", workerID)

	for job := range d.jobQueue {
		d.processJob(workerID, job)
	}

	d.logger.Info("shutting down review worker", "id", workerID)
}

func (d *dispatcher) processJob(workerID int, job queuedJob) {
	d.logger.Info("worker processing review run",
		"worker_id", workerID,
		"run_id", job.runID,
		"repo", job.event.RepoFullName,
	)

	// The job owns its own lifecycle from here: errors are recorded into the
	// run's status, never propagated to any caller.
	if err := d.reviewJob.Run(context.Background(), job.runID, job.event); err != nil {
		d.logger.Error("review run failed",
			"run_id", job.runID,
			"repo", job.event.RepoFullName,
			"pr", job.event.PRNumber,
			"error", err,
		)
	}
}

// Dispatch queues a review run for processing by a worker.
func (d *dispatcher) Dispatch(_ context.Context, runID string, event *core.ReviewEvent) error {
	d.logger.Info("queuing review run", "run_id", runID, "repo", event.RepoFullName, "pr", event.PRNumber)

	select {
	case d.jobQueue <- queuedJob{runID: runID, event: event}:
		return nil
	default:
		return fmt.Errorf("job queue is full, cannot accept new review run")
	}
}

// Stop gracefully shuts down the dispatcher, waiting for in-flight jobs.
func (d *dispatcher) Stop() {
	d.logger.Info("stopping dispatcher and waiting for review runs to finish")
	close(d.jobQueue)
	d.wg.Wait()
	d.logger.Info("all review runs have finished")
}
