package applicant

import (
	"context"
	"time"

	"github.com/bbischke-nelo/airecruiter2-sub000/id"
	"github.com/bbischke-nelo/airecruiter2-sub000/job"
)

// Store is the domain-state contract the pipeline core needs: entity reads
// for the scheduler's discovery checks plus the minimal writes processors
// perform. Everything else about applications (CRUD screens, reporting)
// belongs to the excluded business layer.
type Store interface {
	// CreateApplication inserts a new application.
	CreateApplication(ctx context.Context, a *Application) error

	// GetApplication retrieves an application by ID.
	GetApplication(ctx context.Context, appID id.ApplicationID) (*Application, error)

	// GetApplicationByExternalRef retrieves an application by its external
	// candidate reference. Requisition intake uses this to dedupe imports.
	GetApplicationByExternalRef(ctx context.Context, externalRef string) (*Application, error)

	// UpdateApplicationStatus moves an application to the given status and
	// bumps its updated_at timestamp.
	UpdateApplicationStatus(ctx context.Context, appID id.ApplicationID, status Status) error

	// SetApplicationDisposition records the external disposition captured
	// during fact extraction.
	SetApplicationDisposition(ctx context.Context, appID id.ApplicationID, d Disposition) error

	// ListApplicationsByStatus returns applications currently in the given
	// status, oldest update first.
	ListApplicationsByStatus(ctx context.Context, status Status) ([]*Application, error)

	// ListApplicationsMissingJob returns applications in the given status
	// that have no pending or running job of the given type. This is the
	// query behind every scheduler discovery check.
	ListApplicationsMissingJob(ctx context.Context, status Status, t job.Type) ([]*Application, error)

	// ListStaleApplications returns applications that have sat in the given
	// status since before the cutoff.
	ListStaleApplications(ctx context.Context, status Status, updatedBefore time.Time) ([]*Application, error)

	// CreateRequisition inserts a new requisition.
	CreateRequisition(ctx context.Context, r *Requisition) error

	// GetRequisition retrieves a requisition by ID.
	GetRequisition(ctx context.Context, reqID id.RequisitionID) (*Requisition, error)

	// ListRequisitionsDueForSync returns open requisitions whose last sync
	// is older than the cutoff (or that have never synced).
	ListRequisitionsDueForSync(ctx context.Context, lastSyncedBefore time.Time) ([]*Requisition, error)

	// MarkRequisitionSynced stamps the requisition's last sync time.
	MarkRequisitionSynced(ctx context.Context, reqID id.RequisitionID, at time.Time) error

	// CreateSession inserts a new interview session.
	CreateSession(ctx context.Context, s *Session) error

	// GetSession retrieves an interview session by ID.
	GetSession(ctx context.Context, sessionID id.SessionID) (*Session, error)

	// ListSessionsByApplication returns the application's sessions, most
	// recently started first.
	ListSessionsByApplication(ctx context.Context, appID id.ApplicationID) ([]*Session, error)

	// ListActiveSessions returns sessions still marked active in the
	// domain store; the orphan recovery sweep cross-checks them against
	// the liveness tracker.
	ListActiveSessions(ctx context.Context) ([]*Session, error)

	// MarkSessionEnded closes a session with the given final state.
	MarkSessionEnded(ctx context.Context, sessionID id.SessionID, state SessionState, at time.Time) error
}
