package pipeline_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/bbischke-nelo/airecruiter2-sub000/applicant"
	"github.com/bbischke-nelo/airecruiter2-sub000/pipeline"
)

// fakeHR is an in-memory HRClient scripted per test.
type fakeHR struct {
	mu           sync.Mutex
	requisitions map[string]pipeline.RequisitionRecord
	candidates   map[string][]pipeline.CandidateRecord
	documents    map[string][]pipeline.Document
	stages       map[string]string

	listErr  error
	fetchErr error
	stageErr error
}

func newFakeHR() *fakeHR {
	return &fakeHR{
		requisitions: make(map[string]pipeline.RequisitionRecord),
		candidates:   make(map[string][]pipeline.CandidateRecord),
		documents:    make(map[string][]pipeline.Document),
		stages:       make(map[string]string),
	}
}

func (h *fakeHR) FetchRequisition(_ context.Context, ref string) (pipeline.RequisitionRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.requisitions[ref]
	if !ok {
		return pipeline.RequisitionRecord{}, fmt.Errorf("fake hr: unknown requisition %q", ref)
	}
	return r, nil
}

func (h *fakeHR) ListCandidates(_ context.Context, ref string) ([]pipeline.CandidateRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.listErr != nil {
		return nil, h.listErr
	}
	return h.candidates[ref], nil
}

func (h *fakeHR) FetchDocuments(_ context.Context, candidateRef string) ([]pipeline.Document, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.fetchErr != nil {
		return nil, h.fetchErr
	}
	return h.documents[candidateRef], nil
}

func (h *fakeHR) UpdateStage(_ context.Context, candidateRef, stage string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stageErr != nil {
		return h.stageErr
	}
	h.stages[candidateRef] = stage
	return nil
}

func (h *fakeHR) stageFor(candidateRef string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stages[candidateRef]
}

// fakeLLM returns a canned completion.
type fakeLLM struct {
	mu       sync.Mutex
	response string
	err      error
	prompts  []string
}

func (l *fakeLLM) Complete(_ context.Context, prompt string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prompts = append(l.prompts, prompt)
	if l.err != nil {
		return "", l.err
	}
	return l.response, nil
}

func (l *fakeLLM) promptCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.prompts)
}

// fakeMailer records sent invitations.
type fakeMailer struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (m *fakeMailer) SendInvitation(_ context.Context, app *applicant.Application, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, app.ID.String())
	return nil
}

func (m *fakeMailer) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// fakeDocs is an in-memory DocumentStore.
type fakeDocs struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeDocs() *fakeDocs {
	return &fakeDocs{data: make(map[string][]byte)}
}

func (d *fakeDocs) Put(_ context.Context, key string, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.data[key] = append([]byte(nil), data...)
	return nil
}

func (d *fakeDocs) Get(_ context.Context, key string) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	data, ok := d.data[key]
	if !ok {
		return nil, fmt.Errorf("fake docs: missing key %q", key)
	}
	return data, nil
}
