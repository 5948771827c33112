// Package job defines the job entity, its status machine, typed processor
// definitions, and the store interface.
//
// # Job Entity
//
// A [Job] represents one unit of asynchronous work. It carries a typed
// payload (JSON, schema owned by the processor for its type) and progresses
// through a status machine:
//
//	pending → running → completed
//	pending → running → pending (failed attempt, retry budget left)
//	pending → running → dead    (retry budget exhausted)
//	pending → running → failed  (permanent: malformed payload)
//	dead → pending              (manual RetryDead)
//
// Fields of note:
//   - SubjectID / SecondarySubjectID: the application and requisition the
//     job acts on; either, both, or neither may be set
//   - Priority: higher values are claimed first
//   - Attempts / MaxAttempts: retry accounting; Attempts increases by
//     exactly one per claim
//   - VisibleAfter: earliest time the job may be claimed (delay + backoff)
//   - LastError: most recent failure, retained for diagnostics even after
//     a later successful attempt
//
// # Defining a Processor
//
// Use [Definition] with a typed handler. The payload is JSON-serialized at
// enqueue time and deserialized before the handler runs:
//
//	var UpdateStage = job.NewDefinition(job.TypeUpdateExternalStage,
//	    func(ctx context.Context, j *job.Job, p UpdateStagePayload) error {
//	        return hr.SetStage(ctx, j.SubjectID, p.ExternalStageID)
//	    },
//	)
//
// # Registry
//
// [Registry] maps job types to type-erased [HandlerFunc] values. It is
// constructed once at startup from all definitions and immutable from then
// on; pass it by reference into the worker pool:
//
//	registry, err := job.NewRegistry(Sync, Analyze, UpdateStage, ...)
package job
