package job_test

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"testing"

	recruiter "github.com/bbischke-nelo/airecruiter2-sub000"
	"github.com/bbischke-nelo/airecruiter2-sub000/job"
)

type stagePayload struct {
	ExternalStageID string `json:"external_stage_id"`
}

func newJob(t job.Type, payload any) *job.Job {
	raw, _ := json.Marshal(payload)
	return &job.Job{Type: t, Payload: raw}
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	var got stagePayload
	def := job.NewDefinition(job.TypeUpdateExternalStage, func(_ context.Context, _ *job.Job, p stagePayload) error {
		got = p
		return nil
	})

	r, err := job.NewRegistry(def)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	h, ok := r.Get(job.TypeUpdateExternalStage)
	if !ok {
		t.Fatal("expected handler to be registered")
	}

	err = h(context.Background(), newJob(job.TypeUpdateExternalStage, stagePayload{ExternalStageID: "stage-42"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ExternalStageID != "stage-42" {
		t.Errorf("ExternalStageID = %q, want %q", got.ExternalStageID, "stage-42")
	}
}

func TestRegistry_GetUnknown(t *testing.T) {
	r, err := job.NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	_, ok := r.Get(job.TypeEvaluate)
	if ok {
		t.Fatal("expected no handler for unregistered type")
	}
}

func TestRegistry_RejectsDuplicates(t *testing.T) {
	def := func() *job.Definition[struct{}] {
		return job.NewDefinition(job.TypeSync, func(_ context.Context, _ *job.Job, _ struct{}) error { return nil })
	}
	_, err := job.NewRegistry(def(), def())
	if err == nil {
		t.Fatal("expected error for duplicate registration")
	}
}

func TestRegistry_RejectsUnknownType(t *testing.T) {
	def := job.NewDefinition(job.Type("frobnicate"), func(_ context.Context, _ *job.Job, _ struct{}) error { return nil })
	_, err := job.NewRegistry(def)
	if !errors.Is(err, recruiter.ErrUnknownJobType) {
		t.Fatalf("expected ErrUnknownJobType, got %v", err)
	}
}

func TestRegistry_Types(t *testing.T) {
	r, err := job.NewRegistry(
		job.NewDefinition(job.TypeSync, func(_ context.Context, _ *job.Job, _ struct{}) error { return nil }),
		job.NewDefinition(job.TypeAnalyze, func(_ context.Context, _ *job.Job, _ struct{}) error { return nil }),
		job.NewDefinition(job.TypeEvaluate, func(_ context.Context, _ *job.Job, _ struct{}) error { return nil }),
	)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	types := r.Types()
	sort.Slice(types, func(i, k int) bool { return types[i] < types[k] })
	want := []job.Type{job.TypeAnalyze, job.TypeEvaluate, job.TypeSync}
	if len(types) != len(want) {
		t.Fatalf("Types() = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("Types()[%d] = %q, want %q", i, types[i], want[i])
		}
	}
}

func TestRegistry_MalformedPayloadIsPermanent(t *testing.T) {
	def := job.NewDefinition(job.TypeUpdateExternalStage, func(_ context.Context, _ *job.Job, _ stagePayload) error {
		t.Fatal("handler must not run for malformed payload")
		return nil
	})
	r, err := job.NewRegistry(def)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	h, _ := r.Get(job.TypeUpdateExternalStage)
	j := &job.Job{Type: job.TypeUpdateExternalStage, Payload: json.RawMessage(`{not json`)}
	err = h(context.Background(), j)
	if !errors.Is(err, recruiter.ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
}

func TestRegistry_EmptyPayloadDecodesZeroValue(t *testing.T) {
	var got stagePayload
	def := job.NewDefinition(job.TypeUpdateExternalStage, func(_ context.Context, _ *job.Job, p stagePayload) error {
		got = p
		return nil
	})
	r, err := job.NewRegistry(def)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	h, _ := r.Get(job.TypeUpdateExternalStage)
	if err := h(context.Background(), &job.Job{Type: job.TypeUpdateExternalStage}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ExternalStageID != "" {
		t.Errorf("expected zero-value payload, got %+v", got)
	}
}

func TestRegistry_PerTypeOptions(t *testing.T) {
	def := job.NewDefinition(job.TypeSync,
		func(_ context.Context, _ *job.Job, _ struct{}) error { return nil },
		job.WithMaxAttempts(5),
		job.WithPriority(10),
	)
	r, err := job.NewRegistry(def)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	opts, ok := r.Options(job.TypeSync)
	if !ok {
		t.Fatal("expected options for registered type")
	}
	if opts.MaxAttempts != 5 {
		t.Errorf("MaxAttempts = %d, want 5", opts.MaxAttempts)
	}
	if opts.Priority != 10 {
		t.Errorf("Priority = %d, want 10", opts.Priority)
	}
}
