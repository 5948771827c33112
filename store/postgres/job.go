package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	recruiter "github.com/bbischke-nelo/airecruiter2-sub000"
	"github.com/bbischke-nelo/airecruiter2-sub000/id"
	"github.com/bbischke-nelo/airecruiter2-sub000/job"
)

const jobColumns = `id, type, subject_id, secondary_subject_id, status, priority,
	attempts, max_attempts, payload, last_error, visible_after,
	created_at, updated_at, started_at, completed_at`

func scanJob(row pgx.Row) (*job.Job, error) {
	var j job.Job
	err := row.Scan(
		&j.ID, &j.Type, &j.SubjectID, &j.SecondarySubjectID, &j.Status, &j.Priority,
		&j.Attempts, &j.MaxAttempts, &j.Payload, &j.LastError, &j.VisibleAfter,
		&j.CreatedAt, &j.UpdatedAt, &j.StartedAt, &j.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// EnqueueJob persists a new job in pending status.
func (s *Store) EnqueueJob(ctx context.Context, j *job.Job) error {
	query := `
		INSERT INTO recruiter_jobs (
			id, type, subject_id, secondary_subject_id, status, priority,
			attempts, max_attempts, payload, last_error, visible_after,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, 'pending', $5,
			0, $6, $7, '', COALESCE($8, NOW()),
			NOW(), NOW()
		)`

	var visibleAfter *time.Time
	if !j.VisibleAfter.IsZero() {
		visibleAfter = &j.VisibleAfter
	}

	_, err := s.pool.Exec(ctx, query,
		j.ID, j.Type, j.SubjectID, j.SecondarySubjectID, j.Priority,
		j.MaxAttempts, j.Payload, visibleAfter,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return recruiter.ErrJobAlreadyExists
		}
		return fmt.Errorf("recruiter/postgres: enqueue job: %w", err)
	}
	return nil
}

// ClaimJob atomically claims the single most eligible pending job using
// FOR UPDATE SKIP LOCKED, so concurrent claimers never race on the same row.
// Returns (nil, nil) when no job is eligible.
func (s *Store) ClaimJob(ctx context.Context) (*job.Job, error) {
	query := `
		UPDATE recruiter_jobs SET
			status = 'running',
			started_at = NOW(),
			attempts = attempts + 1,
			updated_at = NOW()
		WHERE id = (
			SELECT id FROM recruiter_jobs
			WHERE status = 'pending' AND visible_after <= NOW()
			ORDER BY priority DESC, created_at ASC
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING ` + jobColumns

	j, err := scanJob(s.pool.QueryRow(ctx, query))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("recruiter/postgres: claim job: %w", err)
	}
	return j, nil
}

// GetJob retrieves a job by ID.
func (s *Store) GetJob(ctx context.Context, jobID id.JobID) (*job.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM recruiter_jobs WHERE id = $1`

	j, err := scanJob(s.pool.QueryRow(ctx, query, jobID))
	if err != nil {
		if isNoRows(err) {
			return nil, recruiter.ErrJobNotFound
		}
		return nil, fmt.Errorf("recruiter/postgres: get job: %w", err)
	}
	return j, nil
}

// MarkCompleted sets status completed and stamps completed_at. Idempotent:
// a second call leaves the original completion time in place.
func (s *Store) MarkCompleted(ctx context.Context, jobID id.JobID) error {
	query := `
		UPDATE recruiter_jobs SET
			status = 'completed',
			completed_at = COALESCE(completed_at, NOW()),
			updated_at = NOW()
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, jobID)
	if err != nil {
		return fmt.Errorf("recruiter/postgres: mark completed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return recruiter.ErrJobNotFound
	}
	return nil
}

// RescheduleJob reverts a failed attempt to pending with a new visibility
// window. started_at is cleared; last_error retained for diagnostics. Only
// running jobs transition: a stale failure report from a worker whose claim
// was already stuck-recovered (and possibly re-claimed and dead-lettered)
// must not resurrect the row.
func (s *Store) RescheduleJob(ctx context.Context, jobID id.JobID, lastError string, visibleAfter time.Time) error {
	query := `
		UPDATE recruiter_jobs SET
			status = 'pending',
			started_at = NULL,
			last_error = $2,
			visible_after = $3,
			updated_at = NOW()
		WHERE id = $1 AND status = 'running'`

	tag, err := s.pool.Exec(ctx, query, jobID, lastError, visibleAfter)
	if err != nil {
		return fmt.Errorf("recruiter/postgres: reschedule job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.requireJob(ctx, jobID, "reschedule job")
	}
	return nil
}

// MarkDead transitions a running job to dead. Dead is sticky until
// ResetDeadJob; a report for a job no longer running is a no-op.
func (s *Store) MarkDead(ctx context.Context, jobID id.JobID, lastError string) error {
	query := `
		UPDATE recruiter_jobs SET
			status = 'dead',
			last_error = $2,
			updated_at = NOW()
		WHERE id = $1 AND status = 'running'`

	tag, err := s.pool.Exec(ctx, query, jobID, lastError)
	if err != nil {
		return fmt.Errorf("recruiter/postgres: mark dead: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.requireJob(ctx, jobID, "mark dead")
	}
	return nil
}

// requireJob distinguishes "row missing" from "row in another status" after
// a guarded update matched nothing.
func (s *Store) requireJob(ctx context.Context, jobID id.JobID, op string) error {
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM recruiter_jobs WHERE id = $1)`, jobID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("recruiter/postgres: %s: %w", op, err)
	}
	if !exists {
		return recruiter.ErrJobNotFound
	}
	return nil
}

// MarkFailed records a permanent failure. Failed jobs are never retried.
func (s *Store) MarkFailed(ctx context.Context, jobID id.JobID, lastError string) error {
	query := `
		UPDATE recruiter_jobs SET
			status = 'failed',
			last_error = $2,
			updated_at = NOW()
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, jobID, lastError)
	if err != nil {
		return fmt.Errorf("recruiter/postgres: mark failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return recruiter.ErrJobNotFound
	}
	return nil
}

// ResetDeadJob revives a dead job for another full retry budget. Returns
// false when the job exists but is not dead.
func (s *Store) ResetDeadJob(ctx context.Context, jobID id.JobID) (bool, error) {
	query := `
		UPDATE recruiter_jobs SET
			status = 'pending',
			attempts = 0,
			started_at = NULL,
			visible_after = NOW(),
			updated_at = NOW()
		WHERE id = $1 AND status = 'dead'`

	tag, err := s.pool.Exec(ctx, query, jobID)
	if err != nil {
		return false, fmt.Errorf("recruiter/postgres: reset dead job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish missing from not-dead.
		var exists bool
		if err := s.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM recruiter_jobs WHERE id = $1)`, jobID,
		).Scan(&exists); err != nil {
			return false, fmt.Errorf("recruiter/postgres: reset dead job: %w", err)
		}
		if !exists {
			return false, recruiter.ErrJobNotFound
		}
		return false, nil
	}
	return true, nil
}

// RecoverStuckJobs reverts running jobs started before the cutoff to
// pending so another worker can pick them up.
func (s *Store) RecoverStuckJobs(ctx context.Context, startedBefore time.Time) (int, error) {
	query := `
		UPDATE recruiter_jobs SET
			status = 'pending',
			started_at = NULL,
			visible_after = NOW(),
			updated_at = NOW()
		WHERE status = 'running' AND started_at < $1`

	tag, err := s.pool.Exec(ctx, query, startedBefore)
	if err != nil {
		return 0, fmt.Errorf("recruiter/postgres: recover stuck jobs: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// PurgeCompletedJobs deletes completed jobs finished before the cutoff.
func (s *Store) PurgeCompletedJobs(ctx context.Context, completedBefore time.Time) (int, error) {
	query := `
		DELETE FROM recruiter_jobs
		WHERE status = 'completed' AND completed_at < $1`

	tag, err := s.pool.Exec(ctx, query, completedBefore)
	if err != nil {
		return 0, fmt.Errorf("recruiter/postgres: purge completed jobs: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// CountJobsByStatus returns the status histogram across all jobs. Every
// known status appears in the map, zero-valued when absent.
func (s *Store) CountJobsByStatus(ctx context.Context) (map[job.Status]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM recruiter_jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("recruiter/postgres: count jobs: %w", err)
	}
	defer rows.Close()

	counts := make(map[job.Status]int, len(job.Statuses))
	for _, st := range job.Statuses {
		counts[st] = 0
	}
	for rows.Next() {
		var st job.Status
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, fmt.Errorf("recruiter/postgres: count jobs: %w", err)
		}
		counts[st] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recruiter/postgres: count jobs: %w", err)
	}
	return counts, nil
}

// ListJobsByStatus returns jobs in the given status, oldest first.
func (s *Store) ListJobsByStatus(ctx context.Context, status job.Status, opts job.ListOpts) ([]*job.Job, error) {
	query := `SELECT ` + jobColumns + `
		FROM recruiter_jobs
		WHERE status = $1
		ORDER BY created_at ASC`

	args := []any{status}
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("recruiter/postgres: list jobs: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

// ListRunningJobs returns all currently running jobs, oldest start first.
func (s *Store) ListRunningJobs(ctx context.Context) ([]*job.Job, error) {
	query := `SELECT ` + jobColumns + `
		FROM recruiter_jobs
		WHERE status = 'running'
		ORDER BY started_at ASC NULLS LAST`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("recruiter/postgres: list running jobs: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

// HasOutstandingJob reports whether a pending or running job of the given
// type already references the subject, either as primary or secondary.
func (s *Store) HasOutstandingJob(ctx context.Context, subjectID id.ID, t job.Type) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM recruiter_jobs
			WHERE (subject_id = $1 OR secondary_subject_id = $1)
			  AND type = $2
			  AND status IN ('pending', 'running')
		)`

	var exists bool
	if err := s.pool.QueryRow(ctx, query, subjectID, t).Scan(&exists); err != nil {
		return false, fmt.Errorf("recruiter/postgres: has outstanding job: %w", err)
	}
	return exists, nil
}

func collectJobs(rows pgx.Rows) ([]*job.Job, error) {
	var out []*job.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("recruiter/postgres: scan job: %w", err)
		}
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recruiter/postgres: iterate jobs: %w", err)
	}
	return out, nil
}
