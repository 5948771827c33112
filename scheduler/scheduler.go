package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	cronlib "github.com/robfig/cron/v3"

	"github.com/bbischke-nelo/airecruiter2-sub000/queue"
	"github.com/bbischke-nelo/airecruiter2-sub000/session"
	"github.com/bbischke-nelo/airecruiter2-sub000/store"
)

// cronParser supports standard 5-field cron and descriptors like "@every 30s".
var cronParser = cronlib.NewParser(
	cronlib.Minute | cronlib.Hour | cronlib.Dom | cronlib.Month | cronlib.Dow | cronlib.Descriptor,
)

// ParseSchedule parses a cron expression and returns the schedule.
func ParseSchedule(expr string) (cronlib.Schedule, error) {
	return cronParser.Parse(expr)
}

// Scheduler runs the two periodic passes that keep the pipeline honest:
// discovery (find entities whose expected job is missing and enqueue it)
// and maintenance (recover crashed claims, reset stuck entities, close
// orphaned sessions, purge old completed jobs).
//
// Discovery is what makes the system self-healing: processors chain the
// next job transactionally, but a job can still go missing (dead-lettered
// and abandoned, purged by an operator, lost to a pre-commit crash), and
// discovery re-creates it from entity state alone.
type Scheduler struct {
	store    store.Store
	queue    *queue.Manager
	sessions session.Tracker
	logger   *slog.Logger
	now      func() time.Time

	discoveryExpr    string
	maintenanceExpr  string
	discoverySched   cronlib.Schedule
	maintenanceSched cronlib.Schedule

	stuckJobThreshold    time.Duration
	stuckEntityThreshold time.Duration
	completedRetention   time.Duration
	requisitionSyncEvery time.Duration

	mu              sync.Mutex
	lastDiscovery   time.Time
	lastMaintenance time.Time

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// Option configures the Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithDiscoverySchedule sets the discovery cadence (cron syntax, descriptors
// like "@every 30s" accepted).
func WithDiscoverySchedule(expr string) Option {
	return func(s *Scheduler) { s.discoveryExpr = expr }
}

// WithMaintenanceSchedule sets the maintenance cadence.
func WithMaintenanceSchedule(expr string) Option {
	return func(s *Scheduler) { s.maintenanceExpr = expr }
}

// WithStuckJobThreshold sets how long a job may stay running before the
// maintenance pass presumes its worker crashed.
func WithStuckJobThreshold(d time.Duration) Option {
	return func(s *Scheduler) { s.stuckJobThreshold = d }
}

// WithStuckEntityThreshold sets how long an application may sit in a
// transient status with no outstanding job before it is reset.
func WithStuckEntityThreshold(d time.Duration) Option {
	return func(s *Scheduler) { s.stuckEntityThreshold = d }
}

// WithCompletedRetention sets how long completed jobs are kept.
func WithCompletedRetention(d time.Duration) Option {
	return func(s *Scheduler) { s.completedRetention = d }
}

// WithRequisitionSyncInterval sets how often each open requisition is
// re-synced against the external HR system.
func WithRequisitionSyncInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.requisitionSyncEvery = d }
}

// New creates a Scheduler. The schedule expressions are parsed here so a
// bad cadence fails at startup, not on the first tick.
func New(st store.Store, qm *queue.Manager, sessions session.Tracker, opts ...Option) (*Scheduler, error) {
	s := &Scheduler{
		store:    st,
		queue:    qm,
		sessions: sessions,
		logger:   slog.Default(),
		now:      func() time.Time { return time.Now().UTC() },

		discoveryExpr:   "@every 30s",
		maintenanceExpr: "@every 5m",

		stuckJobThreshold:    15 * time.Minute,
		stuckEntityThreshold: 30 * time.Minute,
		completedRetention:   7 * 24 * time.Hour,
		requisitionSyncEvery: time.Hour,

		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	var err error
	if s.discoverySched, err = ParseSchedule(s.discoveryExpr); err != nil {
		return nil, fmt.Errorf("scheduler: discovery schedule %q: %w", s.discoveryExpr, err)
	}
	if s.maintenanceSched, err = ParseSchedule(s.maintenanceExpr); err != nil {
		return nil, fmt.Errorf("scheduler: maintenance schedule %q: %w", s.maintenanceExpr, err)
	}
	return s, nil
}

// Start launches the discovery and maintenance loops.
func (s *Scheduler) Start(_ context.Context) error {
	s.wg.Add(2)
	go s.loop(s.discoverySched, s.RunDiscovery)
	go s.loop(s.maintenanceSched, s.RunMaintenance)
	s.logger.Info("scheduler started",
		slog.String("discovery", s.discoveryExpr),
		slog.String("maintenance", s.maintenanceExpr),
	)
	return nil
}

// Stop signals the loops to stop and waits for them to finish. A pass
// already underway runs to completion.
func (s *Scheduler) Stop(_ context.Context) error {
	close(s.stopCh)
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
	return nil
}

// loop fires the pass at each time the schedule yields.
func (s *Scheduler) loop(sched cronlib.Schedule, pass func(context.Context)) {
	defer s.wg.Done()

	for {
		now := s.now()
		timer := time.NewTimer(sched.Next(now).Sub(now))
		select {
		case <-s.stopCh:
			timer.Stop()
			return
		case <-timer.C:
			pass(context.Background())
		}
	}
}

// Status is a point-in-time snapshot for the health endpoint.
type Status struct {
	LastDiscovery   time.Time `json:"last_discovery"`
	LastMaintenance time.Time `json:"last_maintenance"`
}

// Status reports when each pass last completed. Zero times mean the pass
// has not run yet.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		LastDiscovery:   s.lastDiscovery,
		LastMaintenance: s.lastMaintenance,
	}
}

func (s *Scheduler) markDiscovery(at time.Time) {
	s.mu.Lock()
	s.lastDiscovery = at
	s.mu.Unlock()
}

func (s *Scheduler) markMaintenance(at time.Time) {
	s.mu.Lock()
	s.lastMaintenance = at
	s.mu.Unlock()
}
