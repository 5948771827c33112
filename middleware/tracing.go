package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bbischke-nelo/airecruiter2-sub000/job"
)

// tracerName is the instrumentation scope name for pipeline tracing.
const tracerName = "github.com/bbischke-nelo/airecruiter2-sub000"

// Tracing returns middleware that wraps job execution in an OpenTelemetry span.
// If no TracerProvider is configured globally, the default noop tracer is used
// and this middleware becomes a pass-through with zero overhead.
//
// Span attributes include: recruiter.job.id, recruiter.job.type,
// recruiter.job.attempt, recruiter.subject.id. On error, the span status
// is set to codes.Error with the error message.
func Tracing() Middleware {
	tracer := otel.Tracer(tracerName)
	return TracingWithTracer(tracer)
}

// TracingWithTracer returns tracing middleware using the provided tracer.
// This variant allows injecting a specific TracerProvider for testing or
// when multiple providers are in use.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, j *job.Job, next Handler) error {
		ctx, span := tracer.Start(ctx, "recruiter.job.execute",
			trace.WithAttributes(
				attribute.String("recruiter.job.id", j.ID.String()),
				attribute.String("recruiter.job.type", string(j.Type)),
				attribute.Int("recruiter.job.attempt", j.Attempts),
				attribute.String("recruiter.subject.id", j.SubjectID.String()),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return err
	}
}
