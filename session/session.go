// Package session tracks interview session liveness out-of-band with a TTL
// key per session. The send_interview processor touches the key when the
// candidate's session opens, the conversational surface refreshes it on
// activity, and the scheduler's orphan sweep treats a session whose key has
// expired as abandoned.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bbischke-nelo/airecruiter2-sub000/id"
)

// DefaultTTL is the liveness window: a session with no activity for this
// long is considered orphaned.
const DefaultTTL = 10 * time.Minute

// Tracker records which interview sessions are currently live.
type Tracker interface {
	// Touch marks the session as live for the given TTL, refreshing any
	// existing window. Zero ttl uses DefaultTTL.
	Touch(ctx context.Context, sessionID id.SessionID, ttl time.Duration) error

	// Alive reports whether the session's liveness window is still open.
	Alive(ctx context.Context, sessionID id.SessionID) (bool, error)

	// End closes the session's liveness window immediately.
	End(ctx context.Context, sessionID id.SessionID) error
}

// RedisTracker is a Tracker backed by Redis TTL keys. Liveness survives
// process restarts and is shared across all pipeline instances.
type RedisTracker struct {
	client *redis.Client
	prefix string
}

// NewRedisTracker creates a Tracker on the given Redis client.
func NewRedisTracker(client *redis.Client) *RedisTracker {
	return &RedisTracker{
		client: client,
		prefix: "recruiter:session:",
	}
}

func (t *RedisTracker) key(sessionID id.SessionID) string {
	return t.prefix + sessionID.String()
}

// Touch marks the session live for ttl.
func (t *RedisTracker) Touch(ctx context.Context, sessionID id.SessionID, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if err := t.client.Set(ctx, t.key(sessionID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("session: touch %s: %w", sessionID, err)
	}
	return nil
}

// Alive reports whether the session's key still exists.
func (t *RedisTracker) Alive(ctx context.Context, sessionID id.SessionID) (bool, error) {
	n, err := t.client.Exists(ctx, t.key(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("session: check %s: %w", sessionID, err)
	}
	return n > 0, nil
}

// End deletes the session's key.
func (t *RedisTracker) End(ctx context.Context, sessionID id.SessionID) error {
	if err := t.client.Del(ctx, t.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("session: end %s: %w", sessionID, err)
	}
	return nil
}
