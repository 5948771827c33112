package memory

import (
	"context"
	"sort"
	"time"

	recruiter "github.com/bbischke-nelo/airecruiter2-sub000"
	"github.com/bbischke-nelo/airecruiter2-sub000/id"
	"github.com/bbischke-nelo/airecruiter2-sub000/job"
)

// insertJobLocked normalizes and stores a job. Caller holds m.mu.
func (m *Store) insertJobLocked(j *job.Job, now time.Time) {
	j.Status = job.StatusPending
	if j.CreatedAt.IsZero() {
		j.CreatedAt = now
	}
	if j.VisibleAfter.IsZero() {
		j.VisibleAfter = j.CreatedAt
	}
	j.UpdatedAt = now
	m.jobs[j.ID.String()] = j
}

// EnqueueJob persists a new job in pending status.
func (m *Store) EnqueueJob(_ context.Context, j *job.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.jobs[j.ID.String()]; exists {
		return recruiter.ErrJobAlreadyExists
	}
	cp := *j
	m.insertJobLocked(&cp, m.now())
	return nil
}

// ClaimJob atomically claims the single most eligible pending job: eligible
// means pending with visible_after <= now; ordering is priority descending
// then created_at ascending. The transition to running, the started_at
// stamp, and the attempts increment all happen under one lock acquisition.
func (m *Store) ClaimJob(_ context.Context) (*job.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()

	var candidates []*job.Job
	for _, j := range m.jobs {
		if j.Status != job.StatusPending {
			continue
		}
		if j.VisibleAfter.After(now) {
			continue
		}
		candidates = append(candidates, j)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	sort.Slice(candidates, func(i, k int) bool {
		if candidates[i].Priority != candidates[k].Priority {
			return candidates[i].Priority > candidates[k].Priority
		}
		return candidates[i].CreatedAt.Before(candidates[k].CreatedAt)
	})

	j := candidates[0]
	j.Status = job.StatusRunning
	started := now
	j.StartedAt = &started
	j.Attempts++
	j.UpdatedAt = now

	// Return a copy so callers can mutate without racing with the store.
	cp := *j
	return &cp, nil
}

// GetJob retrieves a job by ID.
func (m *Store) GetJob(_ context.Context, jobID id.JobID) (*job.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[jobID.String()]
	if !ok {
		return nil, recruiter.ErrJobNotFound
	}
	cp := *j
	return &cp, nil
}

// MarkCompleted sets status completed and stamps completed_at. Idempotent.
func (m *Store) MarkCompleted(_ context.Context, jobID id.JobID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[jobID.String()]
	if !ok {
		return recruiter.ErrJobNotFound
	}
	if j.Status == job.StatusCompleted {
		return nil
	}
	now := m.now()
	j.Status = job.StatusCompleted
	j.CompletedAt = &now
	j.UpdatedAt = now
	return nil
}

// RescheduleJob reverts a failed attempt to pending with a new visibility
// window. started_at is cleared; last_error retained for diagnostics. Only
// running jobs transition: a stale failure report from a worker whose claim
// was already stuck-recovered must not resurrect the row.
func (m *Store) RescheduleJob(_ context.Context, jobID id.JobID, lastError string, visibleAfter time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[jobID.String()]
	if !ok {
		return recruiter.ErrJobNotFound
	}
	if j.Status != job.StatusRunning {
		return nil
	}
	j.Status = job.StatusPending
	j.StartedAt = nil
	j.LastError = lastError
	j.VisibleAfter = visibleAfter
	j.UpdatedAt = m.now()
	return nil
}

// MarkDead transitions a running job to dead. Dead is sticky; a report for
// a job no longer running is a no-op.
func (m *Store) MarkDead(_ context.Context, jobID id.JobID, lastError string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[jobID.String()]
	if !ok {
		return recruiter.ErrJobNotFound
	}
	if j.Status != job.StatusRunning {
		return nil
	}
	j.Status = job.StatusDead
	j.LastError = lastError
	j.UpdatedAt = m.now()
	return nil
}

// MarkFailed records a permanent failure.
func (m *Store) MarkFailed(_ context.Context, jobID id.JobID, lastError string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[jobID.String()]
	if !ok {
		return recruiter.ErrJobNotFound
	}
	j.Status = job.StatusFailed
	j.LastError = lastError
	j.UpdatedAt = m.now()
	return nil
}

// ResetDeadJob revives a dead job for another full retry budget.
func (m *Store) ResetDeadJob(_ context.Context, jobID id.JobID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[jobID.String()]
	if !ok {
		return false, recruiter.ErrJobNotFound
	}
	if j.Status != job.StatusDead {
		return false, nil
	}
	now := m.now()
	j.Status = job.StatusPending
	j.Attempts = 0
	j.StartedAt = nil
	j.VisibleAfter = now
	j.UpdatedAt = now
	return true, nil
}

// RecoverStuckJobs reverts running jobs started before the cutoff to pending.
func (m *Store) RecoverStuckJobs(_ context.Context, startedBefore time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	recovered := 0
	for _, j := range m.jobs {
		if j.Status != job.StatusRunning {
			continue
		}
		if j.StartedAt == nil || !j.StartedAt.Before(startedBefore) {
			continue
		}
		j.Status = job.StatusPending
		j.StartedAt = nil
		j.VisibleAfter = now
		j.UpdatedAt = now
		recovered++
	}
	return recovered, nil
}

// PurgeCompletedJobs deletes completed jobs finished before the cutoff.
func (m *Store) PurgeCompletedJobs(_ context.Context, completedBefore time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	purged := 0
	for key, j := range m.jobs {
		if j.Status != job.StatusCompleted {
			continue
		}
		if j.CompletedAt == nil || !j.CompletedAt.Before(completedBefore) {
			continue
		}
		delete(m.jobs, key)
		purged++
	}
	return purged, nil
}

// CountJobsByStatus returns the status histogram across all jobs.
func (m *Store) CountJobsByStatus(_ context.Context) (map[job.Status]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	counts := make(map[job.Status]int, len(job.Statuses))
	for _, s := range job.Statuses {
		counts[s] = 0
	}
	for _, j := range m.jobs {
		counts[j.Status]++
	}
	return counts, nil
}

// ListJobsByStatus returns jobs in the given status, oldest first.
func (m *Store) ListJobsByStatus(_ context.Context, status job.Status, opts job.ListOpts) ([]*job.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*job.Job
	for _, j := range m.jobs {
		if j.Status != status {
			continue
		}
		cp := *j
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.Before(out[k].CreatedAt) })

	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return nil, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

// ListRunningJobs returns all currently running jobs, oldest start first.
func (m *Store) ListRunningJobs(_ context.Context) ([]*job.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*job.Job
	for _, j := range m.jobs {
		if j.Status != job.StatusRunning {
			continue
		}
		cp := *j
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, k int) bool {
		si, sk := out[i].StartedAt, out[k].StartedAt
		if si == nil || sk == nil {
			return sk == nil
		}
		return si.Before(*sk)
	})
	return out, nil
}

// HasOutstandingJob reports whether a pending or running job of the given
// type exists for the subject.
func (m *Store) HasOutstandingJob(_ context.Context, subjectID id.ID, t job.Type) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasOutstandingJobLocked(subjectID, t), nil
}

func (m *Store) hasOutstandingJobLocked(subjectID id.ID, t job.Type) bool {
	for _, j := range m.jobs {
		if j.Type != t {
			continue
		}
		if j.Status != job.StatusPending && j.Status != job.StatusRunning {
			continue
		}
		if j.SubjectID.String() == subjectID.String() || j.SecondarySubjectID.String() == subjectID.String() {
			return true
		}
	}
	return false
}
