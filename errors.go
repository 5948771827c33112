package recruiter

import "errors"

var (
	// Store errors.
	ErrNoStore     = errors.New("recruiter: no store configured")
	ErrStoreClosed = errors.New("recruiter: store closed")

	// Not found errors.
	ErrJobNotFound         = errors.New("recruiter: job not found")
	ErrApplicationNotFound = errors.New("recruiter: application not found")
	ErrRequisitionNotFound = errors.New("recruiter: requisition not found")
	ErrSessionNotFound     = errors.New("recruiter: interview session not found")
	ErrDocumentNotFound    = errors.New("recruiter: document not found")

	// Conflict errors.
	ErrJobAlreadyExists = errors.New("recruiter: job already exists")

	// State errors.
	ErrInvalidState      = errors.New("recruiter: invalid state transition")
	ErrJobNotDead        = errors.New("recruiter: job is not dead")
	ErrUnknownJobType    = errors.New("recruiter: unknown job type")
	ErrInvalidPayload    = errors.New("recruiter: invalid job payload")
	ErrAttemptsExhausted = errors.New("recruiter: retry attempts exhausted")
)
