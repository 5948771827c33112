package pipeline

import (
	"github.com/bbischke-nelo/airecruiter2-sub000/applicant"
	"github.com/bbischke-nelo/airecruiter2-sub000/job"
)

// Transitions is the single source of truth mapping each application status
// to the job type expected to run next. Processor advancement and scheduler
// discovery both consult this table; neither carries its own copy.
//
// Statuses absent from the table expect no job: transient statuses
// (syncing, extracting) have a job already running by definition, parked
// statuses (ready_for_review, on_hold) wait for a decision, the interview
// statuses wait for the candidate, and complete/failed are terminal.
var Transitions = map[applicant.Status]job.Type{
	applicant.StatusNew:           job.TypeSync,
	applicant.StatusDownloaded:    job.TypeAnalyze,
	applicant.StatusAdvancing:     job.TypeSendInterview,
	applicant.StatusRejected:      job.TypeUpdateExternalStage,
	applicant.StatusInterviewDone: job.TypeEvaluate,
	applicant.StatusEvaluated:     job.TypeGenerateReport,
	applicant.StatusReportPending: job.TypeUploadReport,
	applicant.StatusReportReady:   job.TypeUpdateExternalStage,
}

// NextJobType returns the job type expected for an application in the given
// status, or false when the status expects none.
func NextJobType(s applicant.Status) (job.Type, bool) {
	t, ok := Transitions[s]
	return t, ok
}
