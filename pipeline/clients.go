package pipeline

import (
	"context"

	"github.com/bbischke-nelo/airecruiter2-sub000/applicant"
)

// The pipeline core performs all external I/O through the narrow interfaces
// below. Production implementations live in the clients package; tests use
// in-tree fakes.

// CandidateRecord is one candidate application as the external HR system
// reports it.
type CandidateRecord struct {
	ExternalRef string `json:"external_ref"`
	Name        string `json:"name"`
}

// RequisitionRecord is the external HR system's view of a requisition.
type RequisitionRecord struct {
	ExternalRef string `json:"external_ref"`
	Title       string `json:"title"`
	Open        bool   `json:"open"`
}

// Document is one retrieved candidate document (CV, cover letter).
type Document struct {
	Name    string `json:"name"`
	Content []byte `json:"content"`
}

// HRClient talks to the external HR / applicant tracking system.
type HRClient interface {
	// FetchRequisition returns the current external state of a requisition.
	FetchRequisition(ctx context.Context, requisitionRef string) (RequisitionRecord, error)

	// ListCandidates returns all candidate applications currently attached
	// to the requisition.
	ListCandidates(ctx context.Context, requisitionRef string) ([]CandidateRecord, error)

	// FetchDocuments retrieves the candidate's submitted documents.
	FetchDocuments(ctx context.Context, candidateRef string) ([]Document, error)

	// UpdateStage pushes the candidate's pipeline stage to the external
	// system.
	UpdateStage(ctx context.Context, candidateRef, stage string) error
}

// Completer is the AI model boundary. Fact extraction, interview
// evaluation, and report generation all run one prompt through it.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Mailer sends the interview invitation. The implementation resolves the
// candidate's address from the external reference.
type Mailer interface {
	SendInvitation(ctx context.Context, app *applicant.Application, sessionToken string) error
}

// DocumentStore persists retrieved documents and rendered reports.
type DocumentStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}
