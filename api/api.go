// Package api exposes the operational HTTP surface: health, job
// inspection, manual enqueue, dead-job retry, and completed-job purge.
// It is an operator tool, not a public API; the candidate-facing and
// review surfaces live outside this service.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/bbischke-nelo/airecruiter2-sub000/queue"
	"github.com/bbischke-nelo/airecruiter2-sub000/scheduler"
	"github.com/bbischke-nelo/airecruiter2-sub000/store"
	"github.com/bbischke-nelo/airecruiter2-sub000/worker"
)

// API wires the HTTP handlers over the queue manager and store.
type API struct {
	queue  *queue.Manager
	store  store.Store
	pool   *worker.Pool
	sched  *scheduler.Scheduler
	logger *slog.Logger
}

// Option configures the API.
type Option func(*API)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) { a.logger = logger }
}

// WithPool attaches the worker pool so the health endpoint can report it.
func WithPool(p *worker.Pool) Option {
	return func(a *API) { a.pool = p }
}

// WithScheduler attaches the scheduler so the health endpoint can report
// pass freshness.
func WithScheduler(s *scheduler.Scheduler) Option {
	return func(a *API) { a.sched = s }
}

// New creates the API.
func New(qm *queue.Manager, st store.Store, opts ...Option) *API {
	a := &API{
		queue:  qm,
		store:  st,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Handler returns the fully assembled http.Handler with all routes.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", a.health)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/jobs", a.listJobs)
		r.Get("/jobs/running", a.listRunningJobs)
		r.Get("/jobs/{jobID}", a.getJob)
		r.Post("/jobs", a.enqueueJob)
		r.Post("/jobs/{jobID}/retry", a.retryJob)
		r.Delete("/jobs/completed", a.purgeCompleted)
	})

	return r
}
