package session

import (
	"context"
	"sync"
	"time"

	"github.com/bbischke-nelo/airecruiter2-sub000/id"
)

// MemoryTracker is an in-process Tracker for tests and development.
type MemoryTracker struct {
	mu      sync.Mutex
	expires map[string]time.Time
	now     func() time.Time
}

// MemoryOption configures a MemoryTracker.
type MemoryOption func(*MemoryTracker)

// WithClock overrides the tracker's time source so tests can expire
// liveness windows without sleeping.
func WithClock(now func() time.Time) MemoryOption {
	return func(t *MemoryTracker) { t.now = now }
}

// NewMemoryTracker creates an empty in-memory Tracker.
func NewMemoryTracker(opts ...MemoryOption) *MemoryTracker {
	t := &MemoryTracker{
		expires: make(map[string]time.Time),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Touch marks the session live for ttl.
func (t *MemoryTracker) Touch(_ context.Context, sessionID id.SessionID, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.expires[sessionID.String()] = t.now().Add(ttl)
	return nil
}

// Alive reports whether the session's liveness window is still open.
func (t *MemoryTracker) Alive(_ context.Context, sessionID id.SessionID) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	exp, ok := t.expires[sessionID.String()]
	if !ok {
		return false, nil
	}
	if !t.now().Before(exp) {
		delete(t.expires, sessionID.String())
		return false, nil
	}
	return true, nil
}

// End closes the session's liveness window immediately.
func (t *MemoryTracker) End(_ context.Context, sessionID id.SessionID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.expires, sessionID.String())
	return nil
}
