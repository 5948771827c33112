package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bbischke-nelo/airecruiter2-sub000/id"
)

// enqueueConfig accumulates per-job settings on top of registry defaults.
type enqueueConfig struct {
	subjectID          id.ApplicationID
	secondarySubjectID id.RequisitionID
	payload            json.RawMessage
	priority           int
	maxAttempts        int
	delay              time.Duration
}

// EnqueueOption customizes a single enqueued job.
type EnqueueOption func(*enqueueConfig)

// WithSubject sets the application the job acts on.
func WithSubject(appID id.ApplicationID) EnqueueOption {
	return func(c *enqueueConfig) { c.subjectID = appID }
}

// WithSecondarySubject sets the parent requisition the job references.
func WithSecondarySubject(reqID id.RequisitionID) EnqueueOption {
	return func(c *enqueueConfig) { c.secondarySubjectID = reqID }
}

// WithPayload JSON-encodes v as the job payload. A value that cannot be
// encoded panics: payloads are constructed from known types at call sites,
// so an encode failure is a programming error.
func WithPayload(v any) EnqueueOption {
	return func(c *enqueueConfig) {
		data, err := json.Marshal(v)
		if err != nil {
			panic(fmt.Sprintf("queue: encode payload: %v", err))
		}
		c.payload = data
	}
}

// WithRawPayload sets an already-encoded JSON payload.
func WithRawPayload(data json.RawMessage) EnqueueOption {
	return func(c *enqueueConfig) { c.payload = data }
}

// WithPriority overrides the registry's priority for this job.
func WithPriority(p int) EnqueueOption {
	return func(c *enqueueConfig) { c.priority = p }
}

// WithMaxAttempts overrides the registry's retry budget for this job.
func WithMaxAttempts(n int) EnqueueOption {
	return func(c *enqueueConfig) { c.maxAttempts = n }
}

// WithDelay defers the job's first visibility by d.
func WithDelay(d time.Duration) EnqueueOption {
	return func(c *enqueueConfig) { c.delay = d }
}
