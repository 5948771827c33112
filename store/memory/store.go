// Package memory provides a fully in-memory implementation of store.Store.
// Safe for concurrent access. Intended for unit testing and development.
package memory

import (
	"context"
	"sync"
	"time"

	recruiter "github.com/bbischke-nelo/airecruiter2-sub000"
	"github.com/bbischke-nelo/airecruiter2-sub000/applicant"
	"github.com/bbischke-nelo/airecruiter2-sub000/id"
	"github.com/bbischke-nelo/airecruiter2-sub000/job"
)

// Ensure Store implements each subsystem interface at compile time.
var (
	_ job.Store       = (*Store)(nil)
	_ applicant.Store = (*Store)(nil)
)

// Store is a fully in-memory implementation of store.Store. A single mutex
// guards all maps, which also makes AdvanceApplication naturally atomic.
type Store struct {
	mu sync.Mutex

	jobs         map[string]*job.Job
	applications map[string]*applicant.Application
	requisitions map[string]*applicant.Requisition
	sessions     map[string]*applicant.Session

	// now is swappable so tests can control time.
	now func() time.Time
}

// Option configures the Store.
type Option func(*Store)

// WithClock overrides the store's time source. Tests use this to move
// visible_after windows without sleeping.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns a new empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		jobs:         make(map[string]*job.Job),
		applications: make(map[string]*applicant.Application),
		requisitions: make(map[string]*applicant.Requisition),
		sessions:     make(map[string]*applicant.Session),
		now:          func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ──────────────────────────────────────────────────
// Lifecycle — Migrate / Ping / Close
// ──────────────────────────────────────────────────

// Migrate is a no-op for the memory store.
func (m *Store) Migrate(_ context.Context) error { return nil }

// Ping always succeeds for the memory store.
func (m *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (m *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Atomic advance
// ──────────────────────────────────────────────────

// AdvanceApplication moves the application to the given status and, when
// nextJob is non-nil, inserts it as pending — under one lock acquisition so
// no observer sees the status change without the job.
func (m *Store) AdvanceApplication(_ context.Context, appID id.ApplicationID, status applicant.Status, nextJob *job.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.applications[appID.String()]
	if !ok {
		return recruiter.ErrApplicationNotFound
	}

	// Reject the duplicate before touching the application so a failed
	// advance leaves both records as they were, like the SQL transaction.
	if nextJob != nil {
		if _, exists := m.jobs[nextJob.ID.String()]; exists {
			return recruiter.ErrJobAlreadyExists
		}
	}

	now := m.now()
	a.Status = status
	a.UpdatedAt = now

	if nextJob != nil {
		cp := *nextJob
		m.insertJobLocked(&cp, now)
	}
	return nil
}
