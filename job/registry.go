package job

import (
	"context"
	"encoding/json"
	"fmt"

	recruiter "github.com/bbischke-nelo/airecruiter2-sub000"
)

// HandlerFunc is a type-erased processor that accepts the claimed job with
// its raw JSON payload. The typed Definition[T] is converted to a
// HandlerFunc at registry construction by closing over JSON unmarshal + the
// typed handler.
type HandlerFunc func(ctx context.Context, j *Job) error

// Registration is implemented by *Definition[T]. It lets NewRegistry accept
// heterogeneous typed definitions without reflection.
type Registration interface {
	jobType() Type
	handlerFunc() HandlerFunc
	options() Options
}

// Registry maps job types to type-erased processor functions. It is built
// once at startup from typed definitions and is immutable afterwards, so it
// may be shared across worker goroutines without locking.
type Registry struct {
	handlers map[Type]HandlerFunc
	opts     map[Type]Options
}

// NewRegistry builds an immutable registry from the given definitions.
// It rejects unknown job types and duplicate registrations.
func NewRegistry(defs ...Registration) (*Registry, error) {
	r := &Registry{
		handlers: make(map[Type]HandlerFunc, len(defs)),
		opts:     make(map[Type]Options, len(defs)),
	}
	for _, def := range defs {
		t := def.jobType()
		if !t.Valid() {
			return nil, fmt.Errorf("job: register %q: %w", t, recruiter.ErrUnknownJobType)
		}
		if _, dup := r.handlers[t]; dup {
			return nil, fmt.Errorf("job: duplicate registration for type %q", t)
		}
		r.handlers[t] = def.handlerFunc()
		r.opts[t] = def.options()
	}
	return r, nil
}

// Get returns the processor for the given job type.
// Returns false if no processor is registered.
func (r *Registry) Get(t Type) (HandlerFunc, bool) {
	h, ok := r.handlers[t]
	return h, ok
}

// Options returns the per-type options recorded at registration.
func (r *Registry) Options(t Type) (Options, bool) {
	o, ok := r.opts[t]
	return o, ok
}

// Types returns all registered job types.
func (r *Registry) Types() []Type {
	types := make([]Type, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	return types
}

// Definition is a typed processor definition for one job type.
// T is the payload type (must be JSON-serializable); each processor owns
// its own payload schema.
type Definition[T any] struct {
	// Type is the job type this processor handles.
	Type Type

	// Handler processes one claimed job with its decoded payload.
	Handler func(ctx context.Context, j *Job, payload T) error

	// Opts configures retries, priority, and timeout for jobs of this type.
	Opts Options
}

// NewDefinition creates a typed processor definition.
func NewDefinition[T any](t Type, handler func(ctx context.Context, j *Job, payload T) error, opts ...Option) *Definition[T] {
	def := &Definition[T]{
		Type:    t,
		Handler: handler,
		Opts:    DefaultOptions(),
	}
	for _, opt := range opts {
		opt(&def.Opts)
	}
	return def
}

func (d *Definition[T]) jobType() Type    { return d.Type }
func (d *Definition[T]) options() Options { return d.Opts }

// handlerFunc wraps the typed handler in a closure that JSON-unmarshals the
// payload into T before calling it. A payload that does not decode is a
// permanent failure: the returned error wraps recruiter.ErrInvalidPayload
// and the executor routes the job to failed without consuming retries.
func (d *Definition[T]) handlerFunc() HandlerFunc {
	return func(ctx context.Context, j *Job) error {
		var t T
		if len(j.Payload) > 0 {
			if err := json.Unmarshal(j.Payload, &t); err != nil {
				return fmt.Errorf("job: decode payload for type %q: %v: %w", d.Type, err, recruiter.ErrInvalidPayload)
			}
		}
		return d.Handler(ctx, j, t)
	}
}
