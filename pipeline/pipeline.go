package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bbischke-nelo/airecruiter2-sub000/applicant"
	"github.com/bbischke-nelo/airecruiter2-sub000/id"
	"github.com/bbischke-nelo/airecruiter2-sub000/job"
	"github.com/bbischke-nelo/airecruiter2-sub000/queue"
	"github.com/bbischke-nelo/airecruiter2-sub000/session"
	"github.com/bbischke-nelo/airecruiter2-sub000/store"
)

// Pipeline holds the processors for every job type. Each processor re-reads
// the entity's current state, performs its external I/O through the client
// interfaces, and advances the application through the queue manager's
// atomic status+enqueue primitive.
type Pipeline struct {
	queue    *queue.Manager
	store    store.Store
	sessions session.Tracker
	hr       HRClient
	llm      Completer
	mail     Mailer
	docs     DocumentStore
	logger   *slog.Logger
	now      func() time.Time

	sessionTTL time.Duration
}

// Option configures the Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithSessionTTL sets the liveness window granted to a freshly opened
// interview session. Zero or negative keeps session.DefaultTTL.
func WithSessionTTL(ttl time.Duration) Option {
	return func(p *Pipeline) {
		if ttl > 0 {
			p.sessionTTL = ttl
		}
	}
}

// New creates the Pipeline with its external clients.
func New(
	qm *queue.Manager,
	st store.Store,
	sessions session.Tracker,
	hr HRClient,
	llm Completer,
	mail Mailer,
	docs DocumentStore,
	opts ...Option,
) *Pipeline {
	p := &Pipeline{
		queue:    qm,
		store:    st,
		sessions: sessions,
		hr:       hr,
		llm:      llm,
		mail:     mail,
		docs:     docs,
		logger:   slog.Default(),
		now:      func() time.Time { return time.Now().UTC() },

		sessionTTL: session.DefaultTTL,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Definitions returns the typed processor definition for every job type.
// Feed them to job.NewRegistry at startup.
func (p *Pipeline) Definitions() []job.Registration {
	return []job.Registration{
		job.NewDefinition(job.TypeSync, p.handleSync,
			job.WithMaxAttempts(5), job.WithTimeout(2*time.Minute)),
		job.NewDefinition(job.TypeAnalyze, p.handleAnalyze,
			job.WithTimeout(10*time.Minute)),
		job.NewDefinition(job.TypeSendInterview, p.handleSendInterview,
			job.WithTimeout(time.Minute)),
		job.NewDefinition(job.TypeEvaluate, p.handleEvaluate,
			job.WithTimeout(10*time.Minute)),
		job.NewDefinition(job.TypeGenerateReport, p.handleGenerateReport,
			job.WithTimeout(10*time.Minute)),
		job.NewDefinition(job.TypeUploadReport, p.handleUploadReport),
		job.NewDefinition(job.TypeUpdateExternalStage, p.handleUpdateStage,
			job.WithMaxAttempts(5), job.WithTimeout(time.Minute)),
	}
}

// Registry builds the immutable registry from Definitions.
func (p *Pipeline) Registry() (*job.Registry, error) {
	return job.NewRegistry(p.Definitions()...)
}

// advance moves the application to the given status. When the transition
// table expects a follow-up job for that status, the status change and the
// job insert commit in one transaction.
func (p *Pipeline) advance(ctx context.Context, appID id.ApplicationID, status applicant.Status, opts ...queue.EnqueueOption) error {
	next, ok := NextJobType(status)
	if !ok {
		return p.queue.Advance(ctx, appID, status)
	}
	_, err := p.queue.AdvanceEnqueue(ctx, appID, status, next, opts...)
	return err
}

// ──────────────────────────────────────────────────
// Document keys and external stages
// ──────────────────────────────────────────────────

func dossierKey(appID id.ApplicationID) string {
	return fmt.Sprintf("applications/%s/dossier", appID)
}

func transcriptKey(sessionID id.SessionID) string {
	return fmt.Sprintf("sessions/%s/transcript", sessionID)
}

func evaluationKey(appID id.ApplicationID) string {
	return fmt.Sprintf("applications/%s/evaluation", appID)
}

func reportKey(appID id.ApplicationID) string {
	return fmt.Sprintf("applications/%s/report", appID)
}

// External stage names pushed to the HR system.
const (
	StageRejected = "rejected"
	StageAssessed = "assessment_complete"
)

// stageForStatus derives the external stage to push when the job payload
// does not name one.
func stageForStatus(s applicant.Status) (string, error) {
	switch s {
	case applicant.StatusRejected:
		return StageRejected, nil
	case applicant.StatusReportReady:
		return StageAssessed, nil
	default:
		return "", fmt.Errorf("pipeline: no external stage for status %q", s)
	}
}
