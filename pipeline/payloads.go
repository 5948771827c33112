package pipeline

import "github.com/bbischke-nelo/airecruiter2-sub000/id"

// Each job type owns its payload schema. Payloads are optional hints: every
// processor re-reads the entity's current state and can derive what it
// needs when the payload is empty, so discovery can enqueue bare jobs.

// SyncPayload drives the sync processor. A job with only a secondary
// subject (requisition) runs intake; a job with a subject (application)
// retrieves that candidate's documents.
type SyncPayload struct {
	// Force re-retrieves documents even if they were already stored.
	Force bool `json:"force,omitempty"`
}

// AnalyzePayload drives fact extraction.
type AnalyzePayload struct{}

// SendInterviewPayload drives interview dispatch.
type SendInterviewPayload struct{}

// EvaluatePayload identifies the session to score. When empty the
// processor scores the application's most recent session.
type EvaluatePayload struct {
	SessionID id.SessionID `json:"session_id,omitempty"`
}

// GenerateReportPayload drives report rendering.
type GenerateReportPayload struct{}

// UploadReportPayload carries the rendered report to the upload processor.
type UploadReportPayload struct {
	Key     string `json:"key"`
	Content string `json:"content"`
}

// UpdateStagePayload names the external stage to push. When empty the
// processor derives the stage from the application's current status.
type UpdateStagePayload struct {
	ExternalStage string `json:"external_stage,omitempty"`
}
