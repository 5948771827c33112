// Package postgres provides the PostgreSQL implementation of store.Store
// built on pgx/v5 and pgxpool.
//
// The single-job claim uses FOR UPDATE SKIP LOCKED so any number of worker
// processes can poll the same table without contending on locked rows, and
// AdvanceApplication runs the application status change and the next job
// insert in one transaction.
//
// Schema migrations are embedded in the binary and applied by Migrate,
// tracked in the recruiter_migrations table.
package postgres
