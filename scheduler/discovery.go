package scheduler

import (
	"context"
	"log/slog"

	"github.com/bbischke-nelo/airecruiter2-sub000/applicant"
	"github.com/bbischke-nelo/airecruiter2-sub000/job"
	"github.com/bbischke-nelo/airecruiter2-sub000/pipeline"
	"github.com/bbischke-nelo/airecruiter2-sub000/queue"
)

// RunDiscovery executes one discovery pass. Each check is isolated: a
// failing check is logged and the pass moves on, so one bad query cannot
// starve the others.
func (s *Scheduler) RunDiscovery(ctx context.Context) {
	s.discoverMissingJobs(ctx)
	s.triageDispositions(ctx)
	s.discoverDueRequisitions(ctx)
	s.markDiscovery(s.now())
}

// discoverMissingJobs walks the transition table and enqueues the expected
// job for every application observed in a status with no matching pending
// or running job. Re-running the check is idempotent: applications whose
// job exists are filtered out by the store query.
func (s *Scheduler) discoverMissingJobs(ctx context.Context) {
	for status, jobType := range pipeline.Transitions {
		apps, err := s.store.ListApplicationsMissingJob(ctx, status, jobType)
		if err != nil {
			s.logger.Error("discovery: list applications missing job",
				slog.String("status", string(status)),
				slog.String("job_type", string(jobType)),
				slog.String("error", err.Error()),
			)
			continue
		}
		for _, app := range apps {
			j, err := s.queue.Enqueue(ctx, jobType, queue.WithSubject(app.ID))
			if err != nil {
				s.logger.Error("discovery: enqueue missing job",
					slog.String("application_id", app.ID.String()),
					slog.String("job_type", string(jobType)),
					slog.String("error", err.Error()),
				)
				continue
			}
			s.logger.Info("discovery: re-created missing job",
				slog.String("application_id", app.ID.String()),
				slog.String("status", string(status)),
				slog.String("job_type", string(jobType)),
				slog.String("job_id", j.ID.String()),
			)
		}
	}
}

// triageDispositions routes applications by their recorded disposition:
// advance dispatches an interview, reject heads to the external stage push,
// and anything undecided parks for a human. Besides freshly extracted
// applications it re-reads the parked ones, so a decision recorded after
// the initial triage (by the review surface) still moves the application on
// the next pass.
func (s *Scheduler) triageDispositions(ctx context.Context) {
	for _, status := range []applicant.Status{applicant.StatusExtracted, applicant.StatusReadyForReview} {
		apps, err := s.store.ListApplicationsByStatus(ctx, status)
		if err != nil {
			s.logger.Error("discovery: list applications for triage",
				slog.String("status", string(status)),
				slog.String("error", err.Error()),
			)
			continue
		}

		for _, app := range apps {
			decided := app.Disposition == applicant.DispositionAdvance ||
				app.Disposition == applicant.DispositionReject
			if status == applicant.StatusReadyForReview && !decided {
				continue
			}

			var (
				next     applicant.Status
				routeErr error
			)
			switch app.Disposition {
			case applicant.DispositionAdvance:
				next = applicant.StatusAdvancing
				_, routeErr = s.queue.AdvanceEnqueue(ctx, app.ID, next, job.TypeSendInterview)
			case applicant.DispositionReject:
				next = applicant.StatusRejected
				_, routeErr = s.queue.AdvanceEnqueue(ctx, app.ID, next, job.TypeUpdateExternalStage)
			default:
				next = applicant.StatusReadyForReview
				routeErr = s.queue.Advance(ctx, app.ID, next)
			}
			if routeErr != nil {
				s.logger.Error("discovery: triage application",
					slog.String("application_id", app.ID.String()),
					slog.String("error", routeErr.Error()),
				)
				continue
			}
			s.logger.Info("discovery: triaged application",
				slog.String("application_id", app.ID.String()),
				slog.String("disposition", string(app.Disposition)),
				slog.String("status", string(next)),
			)
		}
	}
}

// discoverDueRequisitions enqueues an intake sync for every open
// requisition whose last sync is older than the configured interval.
func (s *Scheduler) discoverDueRequisitions(ctx context.Context) {
	cutoff := s.now().Add(-s.requisitionSyncEvery)
	reqs, err := s.store.ListRequisitionsDueForSync(ctx, cutoff)
	if err != nil {
		s.logger.Error("discovery: list requisitions due for sync", slog.String("error", err.Error()))
		return
	}

	for _, req := range reqs {
		outstanding, err := s.store.HasOutstandingJob(ctx, req.ID, job.TypeSync)
		if err != nil {
			s.logger.Error("discovery: check outstanding sync",
				slog.String("requisition_id", req.ID.String()),
				slog.String("error", err.Error()),
			)
			continue
		}
		if outstanding {
			continue
		}

		j, err := s.queue.Enqueue(ctx, job.TypeSync, queue.WithSecondarySubject(req.ID))
		if err != nil {
			s.logger.Error("discovery: enqueue requisition sync",
				slog.String("requisition_id", req.ID.String()),
				slog.String("error", err.Error()),
			)
			continue
		}
		s.logger.Info("discovery: requisition sync due",
			slog.String("requisition_id", req.ID.String()),
			slog.String("job_id", j.ID.String()),
		)
	}
}
