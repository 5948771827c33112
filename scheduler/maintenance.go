package scheduler

import (
	"context"
	"log/slog"

	"github.com/bbischke-nelo/airecruiter2-sub000/applicant"
	"github.com/bbischke-nelo/airecruiter2-sub000/job"
	"github.com/bbischke-nelo/airecruiter2-sub000/pipeline"
	"github.com/bbischke-nelo/airecruiter2-sub000/queue"
)

// stuckEntityResets maps each transient application status to the status
// it is reverted to when its job disappeared mid-flight, plus the job type
// whose presence proves the work is still in progress.
var stuckEntityResets = []struct {
	stuck   applicant.Status
	revert  applicant.Status
	working job.Type
}{
	{applicant.StatusSyncing, applicant.StatusNew, job.TypeSync},
	{applicant.StatusExtracting, applicant.StatusDownloaded, job.TypeAnalyze},
}

// RunMaintenance executes one maintenance pass. Like discovery, each sweep
// is isolated so a failing one does not block the rest.
func (s *Scheduler) RunMaintenance(ctx context.Context) {
	s.recoverStuckJobs(ctx)
	s.resetStuckEntities(ctx)
	s.closeOrphanedSessions(ctx)
	s.purgeCompleted(ctx)
	s.markMaintenance(s.now())
}

func (s *Scheduler) recoverStuckJobs(ctx context.Context) {
	cutoff := s.now().Add(-s.stuckJobThreshold)
	if _, err := s.queue.RecoverStuck(ctx, cutoff); err != nil {
		s.logger.Error("maintenance: recover stuck jobs", slog.String("error", err.Error()))
	}
}

// resetStuckEntities reverts applications parked in a transient status with
// no job working on them. The revert puts them back where the discovery
// pass will find them and re-enqueue the stage.
func (s *Scheduler) resetStuckEntities(ctx context.Context) {
	cutoff := s.now().Add(-s.stuckEntityThreshold)
	for _, reset := range stuckEntityResets {
		apps, err := s.store.ListStaleApplications(ctx, reset.stuck, cutoff)
		if err != nil {
			s.logger.Error("maintenance: list stale applications",
				slog.String("status", string(reset.stuck)),
				slog.String("error", err.Error()),
			)
			continue
		}
		for _, app := range apps {
			working, err := s.store.HasOutstandingJob(ctx, app.ID, reset.working)
			if err != nil {
				s.logger.Error("maintenance: check outstanding job",
					slog.String("application_id", app.ID.String()),
					slog.String("error", err.Error()),
				)
				continue
			}
			if working {
				continue
			}
			if err := s.store.UpdateApplicationStatus(ctx, app.ID, reset.revert); err != nil {
				s.logger.Error("maintenance: reset stuck application",
					slog.String("application_id", app.ID.String()),
					slog.String("error", err.Error()),
				)
				continue
			}
			s.logger.Warn("maintenance: reset stuck application",
				slog.String("application_id", app.ID.String()),
				slog.String("from", string(reset.stuck)),
				slog.String("to", string(reset.revert)),
			)
		}
	}
}

// closeOrphanedSessions finds sessions the domain store still considers
// active whose liveness window has lapsed, marks them expired, and routes
// the application to evaluation of whatever transcript exists.
func (s *Scheduler) closeOrphanedSessions(ctx context.Context) {
	sessions, err := s.store.ListActiveSessions(ctx)
	if err != nil {
		s.logger.Error("maintenance: list active sessions", slog.String("error", err.Error()))
		return
	}

	for _, sess := range sessions {
		alive, err := s.sessions.Alive(ctx, sess.ID)
		if err != nil {
			s.logger.Error("maintenance: check session liveness",
				slog.String("session_id", sess.ID.String()),
				slog.String("error", err.Error()),
			)
			continue
		}
		if alive {
			continue
		}

		if err := s.store.MarkSessionEnded(ctx, sess.ID, applicant.SessionExpired, s.now()); err != nil {
			s.logger.Error("maintenance: expire session",
				slog.String("session_id", sess.ID.String()),
				slog.String("error", err.Error()),
			)
			continue
		}

		_, err = s.queue.AdvanceEnqueue(ctx, sess.ApplicationID, applicant.StatusInterviewDone,
			job.TypeEvaluate,
			queue.WithPayload(pipeline.EvaluatePayload{SessionID: sess.ID}),
		)
		if err != nil {
			s.logger.Error("maintenance: route expired session to evaluation",
				slog.String("session_id", sess.ID.String()),
				slog.String("application_id", sess.ApplicationID.String()),
				slog.String("error", err.Error()),
			)
			continue
		}
		s.logger.Warn("maintenance: closed orphaned session",
			slog.String("session_id", sess.ID.String()),
			slog.String("application_id", sess.ApplicationID.String()),
		)
	}
}

func (s *Scheduler) purgeCompleted(ctx context.Context) {
	cutoff := s.now().Add(-s.completedRetention)
	if _, err := s.queue.PurgeCompleted(ctx, cutoff); err != nil {
		s.logger.Error("maintenance: purge completed jobs", slog.String("error", err.Error()))
	}
}
