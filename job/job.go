package job

import (
	"encoding/json"
	"time"

	"github.com/bbischke-nelo/airecruiter2-sub000/id"
)

// Status represents the lifecycle status of a job.
type Status string

const (
	// StatusPending means the job is waiting to be claimed by a worker.
	// A pending job is claimable once its VisibleAfter time has passed.
	StatusPending Status = "pending"
	// StatusRunning means a worker is currently executing the job.
	StatusRunning Status = "running"
	// StatusCompleted means the job finished successfully.
	StatusCompleted Status = "completed"
	// StatusFailed means the job failed permanently (malformed payload or
	// no registered processor) and will not be retried.
	StatusFailed Status = "failed"
	// StatusDead means the job exhausted its retry budget. Dead jobs are
	// retained indefinitely and may be revived manually via RetryDead.
	StatusDead Status = "dead"
)

// Statuses lists every job status, in lifecycle order.
var Statuses = []Status{StatusPending, StatusRunning, StatusCompleted, StatusFailed, StatusDead}

// Type selects the processor that executes a job. Each pipeline stage is
// implemented by exactly one type.
type Type string

const (
	// TypeSync pulls application and requisition state from the external
	// HR system and retrieves candidate documents.
	TypeSync Type = "sync"
	// TypeAnalyze runs AI fact extraction over the retrieved documents.
	TypeAnalyze Type = "analyze"
	// TypeSendInterview emails the interview invitation and opens the
	// conversational session.
	TypeSendInterview Type = "send_interview"
	// TypeEvaluate scores the completed interview session.
	TypeEvaluate Type = "evaluate"
	// TypeGenerateReport renders the evaluation report.
	TypeGenerateReport Type = "generate_report"
	// TypeUploadReport stores the rendered report in the document store.
	TypeUploadReport Type = "upload_report"
	// TypeUpdateExternalStage pushes the application's stage to the
	// external HR system.
	TypeUpdateExternalStage Type = "update_external_stage"
)

// Types lists every job type in pipeline order.
var Types = []Type{
	TypeSync,
	TypeAnalyze,
	TypeSendInterview,
	TypeEvaluate,
	TypeGenerateReport,
	TypeUploadReport,
	TypeUpdateExternalStage,
}

// Valid reports whether t is a known job type.
func (t Type) Valid() bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

// Job represents one unit of asynchronous work.
//
// SubjectID references the candidate application the job acts on and
// SecondarySubjectID the parent requisition; a job may reference neither,
// either, or both (a requisition-level intake sync carries only the
// secondary reference).
type Job struct {
	ID                 id.JobID         `json:"id"`
	Type               Type             `json:"type"`
	SubjectID          id.ApplicationID `json:"subject_id,omitempty"`
	SecondarySubjectID id.RequisitionID `json:"secondary_subject_id,omitempty"`
	Status             Status           `json:"status"`
	Priority           int              `json:"priority"`
	Attempts           int              `json:"attempts"`
	MaxAttempts        int              `json:"max_attempts"`
	Payload            json.RawMessage  `json:"payload,omitempty"`
	LastError          string           `json:"last_error,omitempty"`
	VisibleAfter       time.Time        `json:"visible_after"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
	StartedAt          *time.Time       `json:"started_at,omitempty"`
	CompletedAt        *time.Time       `json:"completed_at,omitempty"`
}

// Terminal reports whether the job is in a state it cannot leave through
// normal processing (manual RetryDead can still revive a dead job).
func (j *Job) Terminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed || j.Status == StatusDead
}
