// Package pipeline implements the candidate processing stages: one
// processor per job type, the application status machine, and the
// transition table that maps each status to the job expected next.
//
// The flow, end to end:
//
//	new → syncing → downloaded → extracting → extracted
//	      → (advancing | rejected | on_hold | ready_for_review)
//	advancing → interview_sent → interview_active → interview_done
//	      → evaluated → report_pending → report_ready → complete
//
// Processors never mutate job rows directly; they advance the application
// through the queue manager, which commits the status change and the
// follow-up job in one transaction. All external I/O goes through the
// narrow client interfaces in clients.go, so the core stays testable with
// in-memory fakes.
package pipeline
