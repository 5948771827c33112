// Package recruiter is the core of a multi-stage candidate-processing
// pipeline. Each candidate application passes through an ordered sequence of
// asynchronous stages (intake sync, document retrieval, fact extraction,
// interview dispatch, evaluation, report generation, external-system
// synchronization), driven by a durable job queue, a bounded worker pool,
// and a self-healing scheduler.
//
// # Architecture
//
// Work items are durable Job rows owned by the queue manager
// (package queue), the only component allowed to mutate them. Workers
// (package worker) poll the queue manager for claims and dispatch each
// claimed job to the processor registered for its type (package pipeline).
// The scheduler (package scheduler) periodically scans domain state for
// applications that should have a job but don't, and repairs jobs or
// entities stranded by a crash.
//
// Persistence follows a composable store pattern: the job and applicant
// packages each define their own store interface and a single backend
// (store/postgres for production, store/memory for tests) implements
// all of them.
//
// All entity IDs use TypeID — type-prefixed, K-sortable, UUIDv7-based
// identifiers (package id).
package recruiter
