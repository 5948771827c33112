// Package worker provides the job execution engine — an Executor that
// invokes registered processors through middleware, and a Pool that
// manages concurrent worker goroutines polling for jobs.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	recruiter "github.com/bbischke-nelo/airecruiter2-sub000"
	"github.com/bbischke-nelo/airecruiter2-sub000/job"
	"github.com/bbischke-nelo/airecruiter2-sub000/middleware"
	"github.com/bbischke-nelo/airecruiter2-sub000/queue"
)

// Executor runs a single claimed job through middleware and the registered
// processor, then routes the outcome to the queue manager: success marks
// the job completed, a permanent error (malformed payload, no registered
// processor) discards it, and anything else consumes a retry.
type Executor struct {
	registry *job.Registry
	queue    *queue.Manager
	mw       middleware.Middleware
	logger   *slog.Logger
}

// NewExecutor creates an Executor with the given dependencies.
func NewExecutor(
	registry *job.Registry,
	qm *queue.Manager,
	logger *slog.Logger,
	mws ...middleware.Middleware,
) *Executor {
	return &Executor{
		registry: registry,
		queue:    qm,
		mw:       middleware.Chain(mws...),
		logger:   logger,
	}
}

// Execute runs a claimed job end to end. The returned error reports the
// processor outcome for logging; the job's own status transition has
// already been persisted by the time Execute returns.
func (e *Executor) Execute(ctx context.Context, j *job.Job) error {
	handler, ok := e.registry.Get(j.Type)
	if !ok {
		// No processor can ever run this job; retrying cannot help.
		cause := fmt.Errorf("worker: no processor for type %q: %w", j.Type, recruiter.ErrUnknownJobType)
		if discardErr := e.queue.Discard(ctx, j, cause); discardErr != nil {
			e.logger.Error("failed to discard unroutable job",
				slog.String("job_id", j.ID.String()),
				slog.String("error", discardErr.Error()),
			)
			return discardErr
		}
		return cause
	}

	// The terminal handler that calls the registered processor.
	terminal := func(ctx context.Context) error {
		return handler(ctx, j)
	}

	err := e.mw(ctx, j, terminal)
	if err == nil {
		if completeErr := e.queue.Complete(ctx, j); completeErr != nil {
			e.logger.Error("failed to mark job completed",
				slog.String("job_id", j.ID.String()),
				slog.String("error", completeErr.Error()),
			)
			return completeErr
		}
		return nil
	}

	// A payload that does not decode is permanent: the bytes will not
	// change on retry.
	if errors.Is(err, recruiter.ErrInvalidPayload) {
		if discardErr := e.queue.Discard(ctx, j, err); discardErr != nil {
			e.logger.Error("failed to discard job with invalid payload",
				slog.String("job_id", j.ID.String()),
				slog.String("error", discardErr.Error()),
			)
			return discardErr
		}
		return err
	}

	if failErr := e.queue.Fail(ctx, j, err); failErr != nil {
		e.logger.Error("failed to record job failure",
			slog.String("job_id", j.ID.String()),
			slog.String("error", failErr.Error()),
		)
		return failErr
	}
	return err
}
