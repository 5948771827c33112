package job

import (
	"context"
	"time"

	"github.com/bbischke-nelo/airecruiter2-sub000/id"
)

// ListOpts controls pagination for job list queries.
type ListOpts struct {
	// Limit is the maximum number of jobs to return. Zero means no limit.
	Limit int
	// Offset is the number of jobs to skip.
	Offset int
}

// Store defines the persistence contract for jobs. All status mutations go
// through the queue manager, which is the only caller of the write methods.
type Store interface {
	// EnqueueJob persists a new job in pending status.
	EnqueueJob(ctx context.Context, j *Job) error

	// ClaimJob atomically claims the single most eligible pending job:
	// status pending, visible_after <= now, ordered by priority (descending)
	// then created_at (ascending). The claim transitions the job to running,
	// stamps started_at, and increments attempts — all in one indivisible
	// store operation so two concurrent callers never receive the same job.
	// Returns (nil, nil) when no job is eligible.
	ClaimJob(ctx context.Context) (*Job, error)

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID id.JobID) (*Job, error)

	// MarkCompleted sets status completed and stamps completed_at.
	// Idempotent: completing an already-completed job is not an error.
	MarkCompleted(ctx context.Context, jobID id.JobID) error

	// RescheduleJob records a failed attempt that still has retry budget:
	// status back to pending, started_at cleared, last_error set, and
	// visible_after moved to the given time.
	RescheduleJob(ctx context.Context, jobID id.JobID, lastError string, visibleAfter time.Time) error

	// MarkDead records a failed attempt that exhausted the retry budget.
	// Dead is sticky: marking an already-dead job again only refreshes
	// last_error.
	MarkDead(ctx context.Context, jobID id.JobID, lastError string) error

	// MarkFailed records a permanent failure (malformed payload, no
	// registered processor). The job will not be retried.
	MarkFailed(ctx context.Context, jobID id.JobID, lastError string) error

	// ResetDeadJob revives a dead job: attempts back to zero, status
	// pending, visible immediately. Returns false if the job is not dead.
	ResetDeadJob(ctx context.Context, jobID id.JobID) (bool, error)

	// RecoverStuckJobs reverts jobs that have been running since before
	// the given cutoff (presumed crashed worker) to pending, and returns
	// how many were recovered.
	RecoverStuckJobs(ctx context.Context, startedBefore time.Time) (int, error)

	// PurgeCompletedJobs deletes completed jobs finished before the cutoff
	// and returns how many were removed.
	PurgeCompletedJobs(ctx context.Context, completedBefore time.Time) (int, error)

	// CountJobsByStatus returns the status histogram across all jobs.
	CountJobsByStatus(ctx context.Context) (map[Status]int, error)

	// ListJobsByStatus returns jobs in the given status, oldest first.
	ListJobsByStatus(ctx context.Context, status Status, opts ListOpts) ([]*Job, error)

	// ListRunningJobs returns all currently running jobs.
	ListRunningJobs(ctx context.Context) ([]*Job, error)

	// HasOutstandingJob reports whether a pending or running job of the
	// given type exists for the subject. Scheduler discovery checks use
	// this to stay idempotent.
	HasOutstandingJob(ctx context.Context, subjectID id.ID, t Type) (bool, error)
}
