package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	recruiter "github.com/bbischke-nelo/airecruiter2-sub000"
	"github.com/bbischke-nelo/airecruiter2-sub000/applicant"
	"github.com/bbischke-nelo/airecruiter2-sub000/id"
	"github.com/bbischke-nelo/airecruiter2-sub000/job"
	"github.com/bbischke-nelo/airecruiter2-sub000/store/memory"
)

func newJob(t job.Type, priority int) *job.Job {
	return &job.Job{
		ID:          id.NewJobID(),
		Type:        t,
		SubjectID:   id.NewApplicationID(),
		Status:      job.StatusPending,
		Priority:    priority,
		MaxAttempts: 3,
	}
}

func TestClaimJob_Exclusivity(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	const jobs = 20
	for range jobs {
		if err := st.EnqueueJob(ctx, newJob(job.TypeSync, 0)); err != nil {
			t.Fatalf("EnqueueJob: %v", err)
		}
	}

	const claimers = 50
	var (
		mu      sync.Mutex
		claimed = make(map[string]int)
		wg      sync.WaitGroup
	)
	for range claimers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j, err := st.ClaimJob(ctx)
			if err != nil {
				t.Errorf("ClaimJob: %v", err)
				return
			}
			if j == nil {
				return
			}
			mu.Lock()
			claimed[j.ID.String()]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(claimed) != jobs {
		t.Errorf("claimed %d distinct jobs, want %d", len(claimed), jobs)
	}
	for jobID, n := range claimed {
		if n != 1 {
			t.Errorf("job %s claimed %d times", jobID, n)
		}
	}
}

func TestClaimJob_PriorityThenFIFO(t *testing.T) {
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := memory.New(memory.WithClock(func() time.Time { return clock }))
	ctx := context.Background()

	lowOld := newJob(job.TypeSync, 0)
	if err := st.EnqueueJob(ctx, lowOld); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}

	clock = clock.Add(time.Second)
	high := newJob(job.TypeSync, 5)
	if err := st.EnqueueJob(ctx, high); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}

	clock = clock.Add(time.Second)
	lowNew := newJob(job.TypeSync, 0)
	if err := st.EnqueueJob(ctx, lowNew); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}

	wantOrder := []string{high.ID.String(), lowOld.ID.String(), lowNew.ID.String()}
	for i, want := range wantOrder {
		j, err := st.ClaimJob(ctx)
		if err != nil || j == nil {
			t.Fatalf("claim %d: %v %v", i, j, err)
		}
		if j.ID.String() != want {
			t.Errorf("claim %d = %s, want %s", i, j.ID, want)
		}
	}
}

func TestClaimJob_RespectsVisibility(t *testing.T) {
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := memory.New(memory.WithClock(func() time.Time { return clock }))
	ctx := context.Background()

	j := newJob(job.TypeSync, 0)
	j.VisibleAfter = clock.Add(time.Minute)
	if err := st.EnqueueJob(ctx, j); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}

	got, err := st.ClaimJob(ctx)
	if err != nil {
		t.Fatalf("ClaimJob: %v", err)
	}
	if got != nil {
		t.Fatal("claimed a job before its visibility window")
	}

	clock = clock.Add(2 * time.Minute)
	got, err = st.ClaimJob(ctx)
	if err != nil || got == nil {
		t.Fatalf("ClaimJob after window: %v %v", got, err)
	}
	if got.Attempts != 1 {
		t.Errorf("attempts = %d, want 1 after claim", got.Attempts)
	}
}

func TestCountJobsByStatus_ZeroFillsAllBuckets(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	if err := st.EnqueueJob(ctx, newJob(job.TypeSync, 0)); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}

	counts, err := st.CountJobsByStatus(ctx)
	if err != nil {
		t.Fatalf("CountJobsByStatus: %v", err)
	}
	if len(counts) != len(job.Statuses) {
		t.Errorf("histogram has %d buckets, want %d", len(counts), len(job.Statuses))
	}
	if counts[job.StatusPending] != 1 {
		t.Errorf("pending = %d, want 1", counts[job.StatusPending])
	}
	if counts[job.StatusDead] != 0 {
		t.Errorf("dead = %d, want 0", counts[job.StatusDead])
	}
}

func TestResetDeadJob_OnlyRevivesDead(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	j := newJob(job.TypeAnalyze, 0)
	if err := st.EnqueueJob(ctx, j); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}

	revived, err := st.ResetDeadJob(ctx, j.ID)
	if err != nil {
		t.Fatalf("ResetDeadJob: %v", err)
	}
	if revived {
		t.Error("revived a pending job")
	}

	if _, err := st.ClaimJob(ctx); err != nil {
		t.Fatalf("ClaimJob: %v", err)
	}
	if err := st.MarkDead(ctx, j.ID, "boom"); err != nil {
		t.Fatalf("MarkDead: %v", err)
	}

	revived, err = st.ResetDeadJob(ctx, j.ID)
	if err != nil || !revived {
		t.Fatalf("ResetDeadJob: revived=%v err=%v", revived, err)
	}
	got, err := st.GetJob(ctx, j.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != job.StatusPending || got.Attempts != 0 {
		t.Errorf("revived job = %q attempts %d, want pending with 0", got.Status, got.Attempts)
	}

	if _, err := st.ResetDeadJob(ctx, id.NewJobID()); !errors.Is(err, recruiter.ErrJobNotFound) {
		t.Errorf("unknown job err = %v, want ErrJobNotFound", err)
	}
}

func TestMarkDead_IgnoresNonRunningJob(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	j := newJob(job.TypeSync, 0)
	if err := st.EnqueueJob(ctx, j); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}

	// A stale report for a job that was already stuck-recovered.
	if err := st.MarkDead(ctx, j.ID, "stale"); err != nil {
		t.Fatalf("MarkDead: %v", err)
	}

	got, err := st.GetJob(ctx, j.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != job.StatusPending {
		t.Errorf("status = %q, want pending untouched", got.Status)
	}
	if got.LastError != "" {
		t.Errorf("LastError = %q, want empty", got.LastError)
	}
}

func TestRescheduleJob_IgnoresNonRunningJob(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	j := newJob(job.TypeSync, 0)
	if err := st.EnqueueJob(ctx, j); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}
	if _, err := st.ClaimJob(ctx); err != nil {
		t.Fatalf("ClaimJob: %v", err)
	}
	if err := st.MarkDead(ctx, j.ID, "boom"); err != nil {
		t.Fatalf("MarkDead: %v", err)
	}

	// Dead stays dead even when a zombie worker reschedules late.
	if err := st.RescheduleJob(ctx, j.ID, "stale", time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("RescheduleJob: %v", err)
	}

	got, err := st.GetJob(ctx, j.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != job.StatusDead {
		t.Errorf("status = %q, want dead", got.Status)
	}
}

func TestAdvanceApplication_AtomicPair(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	app := &applicant.Application{
		ID:     id.NewApplicationID(),
		Status: applicant.StatusNew,
	}
	if err := st.CreateApplication(ctx, app); err != nil {
		t.Fatalf("CreateApplication: %v", err)
	}

	next := newJob(job.TypeAnalyze, 0)
	next.SubjectID = app.ID
	if err := st.AdvanceApplication(ctx, app.ID, applicant.StatusDownloaded, next); err != nil {
		t.Fatalf("AdvanceApplication: %v", err)
	}

	got, err := st.GetApplication(ctx, app.ID)
	if err != nil {
		t.Fatalf("GetApplication: %v", err)
	}
	if got.Status != applicant.StatusDownloaded {
		t.Errorf("status = %q, want downloaded", got.Status)
	}
	if _, err := st.GetJob(ctx, next.ID); err != nil {
		t.Errorf("follow-up job missing: %v", err)
	}
}

func TestAdvanceApplication_DuplicateJobLeavesStatusUntouched(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	app := &applicant.Application{
		ID:     id.NewApplicationID(),
		Status: applicant.StatusNew,
	}
	if err := st.CreateApplication(ctx, app); err != nil {
		t.Fatalf("CreateApplication: %v", err)
	}

	dup := newJob(job.TypeAnalyze, 0)
	if err := st.EnqueueJob(ctx, dup); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}

	err := st.AdvanceApplication(ctx, app.ID, applicant.StatusDownloaded, dup)
	if !errors.Is(err, recruiter.ErrJobAlreadyExists) {
		t.Fatalf("err = %v, want ErrJobAlreadyExists", err)
	}

	got, err := st.GetApplication(ctx, app.ID)
	if err != nil {
		t.Fatalf("GetApplication: %v", err)
	}
	if got.Status != applicant.StatusNew {
		t.Errorf("status = %q, want new after failed advance", got.Status)
	}
}

func TestAdvanceApplication_UnknownApplication(t *testing.T) {
	st := memory.New()
	err := st.AdvanceApplication(context.Background(), id.NewApplicationID(), applicant.StatusDownloaded, nil)
	if !errors.Is(err, recruiter.ErrApplicationNotFound) {
		t.Fatalf("err = %v, want ErrApplicationNotFound", err)
	}
}

func TestListJobsByStatus_Pagination(t *testing.T) {
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := memory.New(memory.WithClock(func() time.Time { return clock }))
	ctx := context.Background()

	var ids []string
	for range 5 {
		j := newJob(job.TypeSync, 0)
		if err := st.EnqueueJob(ctx, j); err != nil {
			t.Fatalf("EnqueueJob: %v", err)
		}
		ids = append(ids, j.ID.String())
		clock = clock.Add(time.Second)
	}

	page, err := st.ListJobsByStatus(ctx, job.StatusPending, job.ListOpts{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("ListJobsByStatus: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("page size = %d, want 2", len(page))
	}
	if page[0].ID.String() != ids[1] || page[1].ID.String() != ids[2] {
		t.Errorf("page = [%s %s], want [%s %s]", page[0].ID, page[1].ID, ids[1], ids[2])
	}
}

func TestHasOutstandingJob_MatchesEitherSubject(t *testing.T) {
	st := memory.New()
	ctx := context.Background()

	reqID := id.NewRequisitionID()
	j := newJob(job.TypeSync, 0)
	j.SubjectID = id.Nil
	j.SecondarySubjectID = reqID
	if err := st.EnqueueJob(ctx, j); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}

	ok, err := st.HasOutstandingJob(ctx, reqID, job.TypeSync)
	if err != nil {
		t.Fatalf("HasOutstandingJob: %v", err)
	}
	if !ok {
		t.Error("secondary subject not matched")
	}

	ok, err = st.HasOutstandingJob(ctx, reqID, job.TypeAnalyze)
	if err != nil {
		t.Fatalf("HasOutstandingJob: %v", err)
	}
	if ok {
		t.Error("matched the wrong job type")
	}
}
