package job

import "time"

// Options configures per-type job behavior such as retries and priority.
type Options struct {
	// MaxAttempts is the total claim budget before a failing job goes dead.
	MaxAttempts int

	// Priority determines claim ordering. Higher values are claimed first.
	Priority int

	// Timeout is the maximum duration a job may run before its context is
	// cancelled. Zero means unlimited.
	Timeout time.Duration
}

// DefaultOptions returns Options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		MaxAttempts: 3,
		Priority:    0,
		Timeout:     5 * time.Minute,
	}
}

// Option is a functional option for configuring a job definition.
type Option func(*Options)

// WithMaxAttempts sets the total claim budget for jobs of this type.
func WithMaxAttempts(n int) Option {
	return func(o *Options) {
		o.MaxAttempts = n
	}
}

// WithPriority sets the job priority. Higher values are claimed first.
func WithPriority(p int) Option {
	return func(o *Options) {
		o.Priority = p
	}
}

// WithTimeout sets the maximum execution duration for jobs of this type.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.Timeout = d
	}
}
