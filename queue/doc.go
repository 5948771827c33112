// Package queue implements the queue manager, the single owner of job
// status transitions.
//
// Every transition in the job lifecycle flows through the Manager:
//
//	Enqueue    → pending
//	ClaimNext  → running   (atomic claim; attempts incremented)
//	Complete   → completed
//	Fail       → pending   (retry budget left; exponential backoff)
//	Fail       → dead      (retry budget exhausted)
//	Discard    → failed    (permanent; malformed payload, no processor)
//	RetryDead  → pending   (manual revival with a fresh budget)
//
// Retry delays follow the configured backoff.Strategy; the default is pure
// exponential, so a job that failed attempt n becomes visible again after
// base * 2^(n-1), capped at the strategy's maximum.
//
// The Manager also carries the stage-chaining primitive AdvanceEnqueue,
// which moves a candidate application to its next status and enqueues the
// follow-up job in one store transaction.
package queue
