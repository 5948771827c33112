package middleware

import (
	"context"
	"log/slog"

	"github.com/bbischke-nelo/airecruiter2-sub000/job"
)

// Timeout returns middleware that enforces the per-type execution deadline
// recorded in the registry. If the job's type carries a non-zero Timeout, a
// context.WithTimeout wraps the handler call. When the deadline is exceeded
// the context is cancelled and the handler should return
// context.DeadlineExceeded.
func Timeout(registry *job.Registry, logger *slog.Logger) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) error {
		opts, ok := registry.Options(j.Type)
		if ok && opts.Timeout > 0 {
			logger.Debug("job timeout set",
				slog.String("job_id", j.ID.String()),
				slog.Duration("timeout", opts.Timeout),
			)
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
			defer cancel()
		}
		return next(ctx)
	}
}
