// Package scheduler runs the periodic discovery and maintenance passes.
//
// Discovery inspects entity state and enqueues the job each application's
// status says should exist, triages extracted applications by their
// recorded disposition, and keeps open requisitions synced with the
// external HR system. Maintenance recovers claims lost to crashed workers,
// resets applications stuck in transient statuses, closes interview
// sessions whose liveness window lapsed, and purges old completed jobs.
//
// Both passes are idempotent, so the cadence is a freshness knob rather
// than a correctness one: running them twice back to back enqueues
// nothing the first run did not.
package scheduler
