package worker_test

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	recruiter "github.com/bbischke-nelo/airecruiter2-sub000"
	"github.com/bbischke-nelo/airecruiter2-sub000/job"
	"github.com/bbischke-nelo/airecruiter2-sub000/queue"
	"github.com/bbischke-nelo/airecruiter2-sub000/store/memory"
	"github.com/bbischke-nelo/airecruiter2-sub000/worker"
)

type syncPayload struct {
	Note string `json:"note"`
}

func buildRegistry(t *testing.T, handler func(ctx context.Context, j *job.Job, p syncPayload) error) *job.Registry {
	t.Helper()
	reg, err := job.NewRegistry(job.NewDefinition(job.TypeSync, handler))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return reg
}

func buildQueue(t *testing.T, st *memory.Store, reg *job.Registry) *queue.Manager {
	t.Helper()
	qm, err := queue.New(st, reg)
	if err != nil {
		t.Fatalf("queue.New: %v", err)
	}
	return qm
}

func waitForStatus(t *testing.T, st *memory.Store, jobID string, want job.Status) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		jobs, err := st.ListJobsByStatus(context.Background(), want, job.ListOpts{})
		if err != nil {
			t.Fatalf("ListJobsByStatus: %v", err)
		}
		for _, j := range jobs {
			if j.ID.String() == jobID {
				return
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s never reached status %q", jobID, want)
}

func TestPool_ExecutesJob(t *testing.T) {
	st := memory.New()
	var calls atomic.Int64
	reg := buildRegistry(t, func(_ context.Context, _ *job.Job, _ syncPayload) error {
		calls.Add(1)
		return nil
	})
	qm := buildQueue(t, st, reg)

	exec := worker.NewExecutor(reg, qm, slog.Default())
	pool := worker.NewPool(qm, exec, slog.Default(),
		worker.WithPoolConcurrency(2),
		worker.WithPollInterval(10*time.Millisecond),
	)

	j, err := qm.Enqueue(context.Background(), job.TypeSync, queue.WithPayload(syncPayload{Note: "hi"}))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer pool.Stop(context.Background())

	waitForStatus(t, st, j.ID.String(), job.StatusCompleted)
	if calls.Load() != 1 {
		t.Errorf("handler called %d times, want 1", calls.Load())
	}
}

func TestPool_FailedJobIsRescheduled(t *testing.T) {
	st := memory.New()
	reg := buildRegistry(t, func(_ context.Context, _ *job.Job, _ syncPayload) error {
		return errors.New("transient")
	})
	qm := buildQueue(t, st, reg)

	exec := worker.NewExecutor(reg, qm, slog.Default())
	pool := worker.NewPool(qm, exec, slog.Default(),
		worker.WithPoolConcurrency(1),
		worker.WithPollInterval(10*time.Millisecond),
	)

	j, err := qm.Enqueue(context.Background(), job.TypeSync, queue.WithMaxAttempts(3))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer pool.Stop(context.Background())

	waitForStatus(t, st, j.ID.String(), job.StatusPending)

	stored, err := st.GetJob(context.Background(), j.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if stored.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", stored.Attempts)
	}
	if stored.LastError != "transient" {
		t.Errorf("LastError = %q, want transient", stored.LastError)
	}
	if !stored.VisibleAfter.After(time.Now().Add(5 * time.Second)) {
		t.Errorf("VisibleAfter = %v, want a backoff window in the future", stored.VisibleAfter)
	}
}

func TestPool_MalformedPayloadGoesToFailed(t *testing.T) {
	st := memory.New()
	var calls atomic.Int64
	reg := buildRegistry(t, func(_ context.Context, _ *job.Job, _ syncPayload) error {
		calls.Add(1)
		return nil
	})
	qm := buildQueue(t, st, reg)

	exec := worker.NewExecutor(reg, qm, slog.Default())
	pool := worker.NewPool(qm, exec, slog.Default(),
		worker.WithPoolConcurrency(1),
		worker.WithPollInterval(10*time.Millisecond),
	)

	j, err := qm.Enqueue(context.Background(), job.TypeSync,
		queue.WithRawPayload([]byte(`{not json`)),
		queue.WithMaxAttempts(5),
	)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer pool.Stop(context.Background())

	waitForStatus(t, st, j.ID.String(), job.StatusFailed)
	if calls.Load() != 0 {
		t.Errorf("handler called %d times for malformed payload, want 0", calls.Load())
	}

	stored, err := st.GetJob(context.Background(), j.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if stored.Status != job.StatusFailed {
		t.Errorf("Status = %q, want failed", stored.Status)
	}
}

func TestPool_RetriesThenDeadLetters(t *testing.T) {
	st := memory.New()
	reg := buildRegistry(t, func(_ context.Context, _ *job.Job, _ syncPayload) error {
		return errors.New("always fails")
	})
	qm := buildQueue(t, st, reg)

	exec := worker.NewExecutor(reg, qm, slog.Default())
	pool := worker.NewPool(qm, exec, slog.Default(),
		worker.WithPoolConcurrency(1),
		worker.WithPollInterval(10*time.Millisecond),
	)

	j, err := qm.Enqueue(context.Background(), job.TypeSync, queue.WithMaxAttempts(1))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer pool.Stop(context.Background())

	waitForStatus(t, st, j.ID.String(), job.StatusDead)
}

func TestPool_StopDrainsInFlight(t *testing.T) {
	st := memory.New()
	started := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool

	reg := buildRegistry(t, func(_ context.Context, _ *job.Job, _ syncPayload) error {
		close(started)
		<-release
		finished.Store(true)
		return nil
	})
	qm := buildQueue(t, st, reg)

	exec := worker.NewExecutor(reg, qm, slog.Default())
	pool := worker.NewPool(qm, exec, slog.Default(),
		worker.WithPoolConcurrency(1),
		worker.WithPollInterval(10*time.Millisecond),
	)

	if _, err := qm.Enqueue(context.Background(), job.TypeSync); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	<-started

	stopDone := make(chan struct{})
	go func() {
		_ = pool.Stop(context.Background())
		close(stopDone)
	}()

	select {
	case <-stopDone:
		t.Fatal("Stop returned while a job was still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-stopDone:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return after the in-flight job finished")
	}

	if !finished.Load() {
		t.Error("in-flight job did not run to completion during drain")
	}
}

func TestPool_StatusReportsInFlight(t *testing.T) {
	st := memory.New()
	release := make(chan struct{})
	started := make(chan struct{})

	reg := buildRegistry(t, func(_ context.Context, _ *job.Job, _ syncPayload) error {
		close(started)
		<-release
		return nil
	})
	qm := buildQueue(t, st, reg)

	exec := worker.NewExecutor(reg, qm, slog.Default())
	pool := worker.NewPool(qm, exec, slog.Default(),
		worker.WithPoolConcurrency(3),
		worker.WithPollInterval(10*time.Millisecond),
	)

	if pool.Status().Running {
		t.Error("pool reports running before Start")
	}

	if _, err := qm.Enqueue(context.Background(), job.TypeSync); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	<-started
	status := pool.Status()
	if !status.Running {
		t.Error("pool reports not running after Start")
	}
	if status.InFlight != 1 {
		t.Errorf("InFlight = %d, want 1", status.InFlight)
	}
	if status.Concurrency != 3 {
		t.Errorf("Concurrency = %d, want 3", status.Concurrency)
	}

	close(release)
	_ = pool.Stop(context.Background())

	if pool.Status().Running {
		t.Error("pool reports running after Stop")
	}
}

func TestExecutor_UnroutableJobIsDiscarded(t *testing.T) {
	st := memory.New()
	reg := buildRegistry(t, func(_ context.Context, _ *job.Job, _ syncPayload) error { return nil })
	qm := buildQueue(t, st, reg)
	exec := worker.NewExecutor(reg, qm, slog.Default())

	ctx := context.Background()
	j, err := qm.Enqueue(ctx, job.TypeEvaluate)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	claimed, err := qm.ClaimNext(ctx)
	if err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}

	execErr := exec.Execute(ctx, claimed)
	if !errors.Is(execErr, recruiter.ErrUnknownJobType) {
		t.Fatalf("Execute err = %v, want ErrUnknownJobType", execErr)
	}

	stored, err := st.GetJob(ctx, j.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if stored.Status != job.StatusFailed {
		t.Errorf("Status = %q, want failed", stored.Status)
	}
}
