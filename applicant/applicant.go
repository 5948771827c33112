package applicant

import (
	"time"

	"github.com/bbischke-nelo/airecruiter2-sub000/id"
)

// Status is the pipeline position of a candidate application. It lives on
// the application itself, independent of any job row; the pipeline package
// owns the mapping from status to the next expected job type.
type Status string

const (
	// StatusNew means the application was imported but nothing has run yet.
	StatusNew Status = "new"
	// StatusSyncing is the transient state while a sync job retrieves the
	// application's documents.
	StatusSyncing Status = "syncing"
	// StatusDownloaded means documents are retrieved and fact extraction
	// has not started.
	StatusDownloaded Status = "downloaded"
	// StatusExtracting is the transient state while an analyze job runs.
	StatusExtracting Status = "extracting"
	// StatusExtracted means fact extraction finished; the disposition triage
	// has not yet routed the application.
	StatusExtracted Status = "extracted"
	// StatusReadyForReview means the application is parked for a human
	// decision (advance, reject, or hold).
	StatusReadyForReview Status = "ready_for_review"
	// StatusAdvancing means the application was advanced (manually or by an
	// auto-advance rule) and an interview should be dispatched.
	StatusAdvancing Status = "advancing"
	// StatusRejected means the application was rejected; the rejection
	// still has to be pushed to the external HR system.
	StatusRejected Status = "rejected"
	// StatusOnHold means a human parked the application; no job is expected.
	StatusOnHold Status = "on_hold"
	// StatusInterviewSent means the interview invitation went out.
	StatusInterviewSent Status = "interview_sent"
	// StatusInterviewActive means the candidate is in a live session.
	StatusInterviewActive Status = "interview_active"
	// StatusInterviewDone means the session ended and awaits evaluation.
	StatusInterviewDone Status = "interview_done"
	// StatusEvaluated means the interview was scored.
	StatusEvaluated Status = "evaluated"
	// StatusReportPending means the report was generated and awaits upload.
	StatusReportPending Status = "report_pending"
	// StatusReportReady means the report is stored and the external stage
	// update is outstanding.
	StatusReportReady Status = "report_ready"
	// StatusComplete is terminal: the pipeline finished for this application.
	StatusComplete Status = "complete"
	// StatusFailed is terminal: a human abandoned the application after
	// inspecting its dead jobs.
	StatusFailed Status = "failed"
)

// Disposition is the external system's classification of a candidate,
// captured during fact extraction and consulted by auto-advance rules.
type Disposition string

const (
	DispositionNone      Disposition = ""
	DispositionAdvance   Disposition = "advance"
	DispositionReject    Disposition = "reject"
	DispositionUndecided Disposition = "undecided"
)

// Application is one candidate application moving through the pipeline.
type Application struct {
	ID            id.ApplicationID `json:"id"`
	RequisitionID id.RequisitionID `json:"requisition_id"`
	ExternalRef   string           `json:"external_ref"`
	CandidateName string           `json:"candidate_name"`
	Status        Status           `json:"status"`
	Disposition   Disposition      `json:"disposition,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// Requisition is the parent posting applications belong to. The scheduler
// re-syncs each requisition against the external HR system on an interval.
type Requisition struct {
	ID           id.RequisitionID `json:"id"`
	ExternalRef  string           `json:"external_ref"`
	Title        string           `json:"title"`
	Open         bool             `json:"open"`
	LastSyncedAt *time.Time       `json:"last_synced_at,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// SessionState is the lifecycle state of an interview session.
type SessionState string

const (
	// SessionActive means the session is open; liveness is tracked
	// out-of-band with a TTL key.
	SessionActive SessionState = "active"
	// SessionCompleted means the session ended normally.
	SessionCompleted SessionState = "completed"
	// SessionExpired means the session ended abnormally (timeout or
	// disconnect) and was closed by the orphan recovery sweep.
	SessionExpired SessionState = "expired"
)

// Session is one conversational interview session for an application.
type Session struct {
	ID            id.SessionID     `json:"id"`
	ApplicationID id.ApplicationID `json:"application_id"`
	Token         string           `json:"token"`
	State         SessionState     `json:"state"`
	StartedAt     time.Time        `json:"started_at"`
	EndedAt       *time.Time       `json:"ended_at,omitempty"`
}
