// Package storage persists review run records.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/oklog/ulid/v2"

	"github.com/forgesmith/revpilot/internal/core"
)

// ErrRunNotFound is returned when a review run id does not exist.
var ErrRunNotFound = errors.New("review run not found")

// Store defines the persistence operations for review runs.
type Store interface {
	CreateRun(ctx context.Context, run *core.ReviewRun) error
	MarkProcessing(ctx context.Context, id string) error
	MarkCompleted(ctx context.Context, id string, decision core.ReviewDecision, summary string, commentCount int) error
	MarkFailed(ctx context.Context, id, message string) error

	// ResetForRetry moves a failed run back to pending. It is the only path
	// out of the failed state and exists for operator use.
	ResetForRetry(ctx context.Context, id string) error

	GetRun(ctx context.Context, id string) (*core.ReviewRun, error)
	ListRunsForPR(ctx context.Context, repoFullName string, prNumber, limit int) ([]core.ReviewRun, error)
}

type postgresStore struct {
	db *sqlx.DB
}

// NewStore creates a Postgres-backed run store.
func NewStore(db *sqlx.DB) Store {
	return &postgresStore{db: db}
}

// NewRunID generates a lexicographically sortable run identifier.
func NewRunID() string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

func (s *postgresStore) CreateRun(ctx context.Context, run *core.ReviewRun) error {
	if run.ID == "" {
		run.ID = NewRunID()
	}
	if run.Status == "" {
		run.Status = core.RunPending
	}
	now := time.Now().UTC()
	run.CreatedAt = now
	run.UpdatedAt = now

	query := `
		INSERT INTO review_runs
			(id, provider, repo_full_name, pr_number, head_sha, triggered_by, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := s.db.ExecContext(ctx, query,
		run.ID, run.Provider, run.RepoFullName, run.PRNumber, run.HeadSHA,
		run.TriggeredBy, run.Status, run.CreatedAt, run.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert review run: %w", err)
	}
	return nil
}

func (s *postgresStore) MarkProcessing(ctx context.Context, id string) error {
	return s.transition(ctx, id,
		`UPDATE review_runs SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4`,
		core.RunProcessing, core.RunPending)
}

func (s *postgresStore) MarkCompleted(ctx context.Context, id string, decision core.ReviewDecision, summary string, commentCount int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE review_runs
		SET status = $2, decision = $3, summary = $4, comment_count = $5, error = '', updated_at = $6
		WHERE id = $1`,
		id, core.RunCompleted, string(decision), summary, commentCount, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to complete review run %s: %w", id, err)
	}
	return requireRow(res, id)
}

func (s *postgresStore) MarkFailed(ctx context.Context, id, message string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE review_runs SET status = $2, error = $3, updated_at = $4 WHERE id = $1`,
		id, core.RunFailed, message, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to mark review run %s as failed: %w", id, err)
	}
	return requireRow(res, id)
}

func (s *postgresStore) ResetForRetry(ctx context.Context, id string) error {
	return s.transition(ctx, id,
		`UPDATE review_runs SET status = $2, error = '', updated_at = $3 WHERE id = $1 AND status = $4`,
		core.RunPending, core.RunFailed)
}

// transition performs a guarded status update: the run must currently be in
// the expected state for the update to take effect.
func (s *postgresStore) transition(ctx context.Context, id, query string, to, from core.RunStatus) error {
	res, err := s.db.ExecContext(ctx, query, id, to, time.Now().UTC(), from)
	if err != nil {
		return fmt.Errorf("failed to move review run %s to %s: %w", id, to, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("review run %s is not in state %s", id, from)
	}
	return nil
}

func (s *postgresStore) GetRun(ctx context.Context, id string) (*core.ReviewRun, error) {
	var run core.ReviewRun
	err := s.db.GetContext(ctx, &run, `SELECT * FROM review_runs WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return nil, fmt.Errorf("failed to load review run %s: %w", id, err)
	}
	return &run, nil
}

func (s *postgresStore) ListRunsForPR(ctx context.Context, repoFullName string, prNumber, limit int) ([]core.ReviewRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []core.ReviewRun
	err := s.db.SelectContext(ctx, &runs, `
		SELECT * FROM review_runs
		WHERE repo_full_name = $1 AND pr_number = $2
		ORDER BY created_at DESC
		LIMIT $3`,
		repoFullName, prNumber, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list review runs for %s#%d: %w", repoFullName, prNumber, err)
	}
	return runs, nil
}

func requireRow(res sql.Result, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}
