package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	recruiter "github.com/bbischke-nelo/airecruiter2-sub000"
	"github.com/bbischke-nelo/airecruiter2-sub000/applicant"
	"github.com/bbischke-nelo/airecruiter2-sub000/backoff"
	"github.com/bbischke-nelo/airecruiter2-sub000/id"
	"github.com/bbischke-nelo/airecruiter2-sub000/job"
	"github.com/bbischke-nelo/airecruiter2-sub000/store"
)

// Manager owns every job status transition. Workers, processors, the
// scheduler, and the API all mutate job rows through the Manager; nothing
// else writes to the job store. This keeps the retry policy, the dead-letter
// rule, and the attempts accounting in one place.
type Manager struct {
	store    store.Store
	registry *job.Registry
	strategy backoff.Strategy
	limiter  *rate.Limiter
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures the Manager.
type Option func(*Manager)

// WithBackoff overrides the retry delay strategy.
func WithBackoff(s backoff.Strategy) Option {
	return func(m *Manager) { m.strategy = s }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithClaimRateLimit throttles ClaimNext to r claims per second with the
// given burst. Zero r disables throttling.
func WithClaimRateLimit(r rate.Limit, burst int) Option {
	return func(m *Manager) {
		if r > 0 {
			m.limiter = rate.NewLimiter(r, burst)
		}
	}
}

// WithClock overrides the time source. Tests use this to make retry
// visibility windows deterministic.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// New creates a Manager backed by the given store and processor registry.
func New(st store.Store, registry *job.Registry, opts ...Option) (*Manager, error) {
	if st == nil {
		return nil, recruiter.ErrNoStore
	}
	m := &Manager{
		store:    st,
		registry: registry,
		strategy: backoff.DefaultStrategy(),
		logger:   slog.Default(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Bind installs the processor registry. The processors need the Manager
// for stage chaining, so the registry that carries them is built after the
// Manager; Bind closes the cycle. Call it once during startup, before any
// jobs are enqueued or claimed.
func (m *Manager) Bind(registry *job.Registry) {
	m.registry = registry
}

// ──────────────────────────────────────────────────
// Enqueue / claim
// ──────────────────────────────────────────────────

// Enqueue creates a new pending job of the given type. Per-type defaults
// (max attempts, priority) come from the registry; enqueue options override
// them per job.
func (m *Manager) Enqueue(ctx context.Context, t job.Type, opts ...EnqueueOption) (*job.Job, error) {
	j, err := m.buildJob(t, opts...)
	if err != nil {
		return nil, err
	}
	if err := m.store.EnqueueJob(ctx, j); err != nil {
		return nil, err
	}
	m.logger.Info("job enqueued",
		"job_id", j.ID.String(),
		"type", string(j.Type),
		"subject_id", j.SubjectID.String(),
	)
	return j, nil
}

// buildJob assembles a job from registry defaults plus per-call options.
func (m *Manager) buildJob(t job.Type, opts ...EnqueueOption) (*job.Job, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("queue: enqueue %q: %w", t, recruiter.ErrUnknownJobType)
	}

	defaults := job.DefaultOptions()
	if m.registry != nil {
		if o, ok := m.registry.Options(t); ok {
			defaults = o
		}
	}

	cfg := enqueueConfig{
		maxAttempts: defaults.MaxAttempts,
		priority:    defaults.Priority,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	now := m.now()
	j := &job.Job{
		ID:                 id.NewJobID(),
		Type:               t,
		SubjectID:          cfg.subjectID,
		SecondarySubjectID: cfg.secondarySubjectID,
		Status:             job.StatusPending,
		Priority:           cfg.priority,
		MaxAttempts:        cfg.maxAttempts,
		Payload:            cfg.payload,
		VisibleAfter:       now.Add(cfg.delay),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	return j, nil
}

// ClaimNext atomically claims the most eligible pending job, or returns
// (nil, nil) when none is eligible. When a claim rate limit is configured
// the call blocks until a token is available or the context is done.
func (m *Manager) ClaimNext(ctx context.Context) (*job.Job, error) {
	if m.limiter != nil {
		if err := m.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	return m.store.ClaimJob(ctx)
}

// ──────────────────────────────────────────────────
// Outcomes
// ──────────────────────────────────────────────────

// Complete marks a claimed job as successfully finished. Idempotent.
func (m *Manager) Complete(ctx context.Context, j *job.Job) error {
	if err := m.store.MarkCompleted(ctx, j.ID); err != nil {
		return err
	}
	m.logger.Info("job completed",
		"job_id", j.ID.String(),
		"type", string(j.Type),
		"attempts", j.Attempts,
	)
	return nil
}

// Fail records a failed attempt. While retry budget remains the job is
// rescheduled with exponential backoff; once attempts reach the job's
// max the job goes to the dead letter set.
func (m *Manager) Fail(ctx context.Context, j *job.Job, cause error) error {
	lastError := ""
	if cause != nil {
		lastError = cause.Error()
	}

	maxAttempts := j.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = job.DefaultOptions().MaxAttempts
	}

	if j.Attempts >= maxAttempts {
		if err := m.store.MarkDead(ctx, j.ID, lastError); err != nil {
			return err
		}
		m.logger.Error("job dead-lettered",
			"job_id", j.ID.String(),
			"type", string(j.Type),
			"attempts", j.Attempts,
			"error", lastError,
		)
		return nil
	}

	delay := m.strategy.Delay(j.Attempts)
	visibleAfter := m.now().Add(delay)
	if err := m.store.RescheduleJob(ctx, j.ID, lastError, visibleAfter); err != nil {
		return err
	}
	m.logger.Warn("job rescheduled",
		"job_id", j.ID.String(),
		"type", string(j.Type),
		"attempt", j.Attempts,
		"retry_in", delay.String(),
		"error", lastError,
	)
	return nil
}

// Discard records a permanent failure: the job goes straight to failed
// regardless of remaining retry budget. Used for malformed payloads and
// jobs with no registered processor, where retrying cannot help.
func (m *Manager) Discard(ctx context.Context, j *job.Job, cause error) error {
	lastError := ""
	if cause != nil {
		lastError = cause.Error()
	}
	if err := m.store.MarkFailed(ctx, j.ID, lastError); err != nil {
		return err
	}
	m.logger.Error("job discarded",
		"job_id", j.ID.String(),
		"type", string(j.Type),
		"error", lastError,
	)
	return nil
}

// RetryDead revives a dead job with a fresh retry budget. Returns false
// when the job exists but is not dead.
func (m *Manager) RetryDead(ctx context.Context, jobID id.JobID) (bool, error) {
	revived, err := m.store.ResetDeadJob(ctx, jobID)
	if err != nil {
		return false, err
	}
	if revived {
		m.logger.Info("dead job revived", "job_id", jobID.String())
	}
	return revived, nil
}

// ──────────────────────────────────────────────────
// Maintenance
// ──────────────────────────────────────────────────

// RecoverStuck reverts running jobs started before the cutoff to pending.
// A claim lost to a crashed worker is replayed without consuming budget:
// the attempt was already counted at claim time and the recovered run
// counts as its retry.
func (m *Manager) RecoverStuck(ctx context.Context, startedBefore time.Time) (int, error) {
	n, err := m.store.RecoverStuckJobs(ctx, startedBefore)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		m.logger.Warn("recovered stuck jobs", "count", n)
	}
	return n, nil
}

// PurgeCompleted deletes completed jobs finished before the cutoff.
func (m *Manager) PurgeCompleted(ctx context.Context, completedBefore time.Time) (int, error) {
	n, err := m.store.PurgeCompletedJobs(ctx, completedBefore)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		m.logger.Info("purged completed jobs", "count", n)
	}
	return n, nil
}

// Counts returns the job status histogram.
func (m *Manager) Counts(ctx context.Context) (map[job.Status]int, error) {
	return m.store.CountJobsByStatus(ctx)
}

// Running returns all currently running jobs.
func (m *Manager) Running(ctx context.Context) ([]*job.Job, error) {
	return m.store.ListRunningJobs(ctx)
}

// ──────────────────────────────────────────────────
// Stage chaining
// ──────────────────────────────────────────────────

// Advance moves an application to the given status with no follow-up job.
func (m *Manager) Advance(ctx context.Context, appID id.ApplicationID, status applicant.Status) error {
	return m.store.AdvanceApplication(ctx, appID, status, nil)
}

// AdvanceEnqueue moves an application to the given status and enqueues the
// next job in the same transaction, so the entity can never be observed in
// the new status without its follow-up job.
func (m *Manager) AdvanceEnqueue(ctx context.Context, appID id.ApplicationID, status applicant.Status, t job.Type, opts ...EnqueueOption) (*job.Job, error) {
	opts = append([]EnqueueOption{WithSubject(appID)}, opts...)
	j, err := m.buildJob(t, opts...)
	if err != nil {
		return nil, err
	}
	if err := m.store.AdvanceApplication(ctx, appID, status, j); err != nil {
		return nil, err
	}
	m.logger.Info("application advanced",
		"application_id", appID.String(),
		"status", string(status),
		"next_job", string(t),
		"job_id", j.ID.String(),
	)
	return j, nil
}
