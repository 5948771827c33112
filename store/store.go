// Package store defines the aggregate persistence interface. The job and
// applicant packages each define their own store interface; the composite
// Store composes them and adds the cross-cutting atomic operation the
// pipeline depends on. Backends: Postgres and Memory.
package store

import (
	"context"

	"github.com/bbischke-nelo/airecruiter2-sub000/applicant"
	"github.com/bbischke-nelo/airecruiter2-sub000/id"
	"github.com/bbischke-nelo/airecruiter2-sub000/job"
)

// Store is the aggregate persistence interface. A single backend implements
// every subsystem's persistence contract.
type Store interface {
	job.Store
	applicant.Store

	// AdvanceApplication moves an application to the given status and, when
	// nextJob is non-nil, inserts it as a pending job — both in ONE
	// transaction. Processors use this for stage chaining so a crash can
	// never leave the entity advanced with the next job missing; the only
	// observable gap is a crash before the commit, which the scheduler's
	// recovery sweeps close.
	AdvanceApplication(ctx context.Context, appID id.ApplicationID, status applicant.Status, nextJob *job.Job) error

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks database connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
