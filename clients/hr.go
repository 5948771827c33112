package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/bbischke-nelo/airecruiter2-sub000/applicant"
	"github.com/bbischke-nelo/airecruiter2-sub000/pipeline"
)

// Compile-time checks that HR satisfies the pipeline's client contracts.
var (
	_ pipeline.HRClient = (*HR)(nil)
	_ pipeline.Mailer   = (*HR)(nil)
)

// HR talks to the external HR system's REST API. It implements both
// pipeline.HRClient and pipeline.Mailer: interview invitations are relayed
// through the HR system's candidate messaging endpoint, which holds the
// candidate's contact details so this service never has to.
type HR struct {
	baseURL string
	token   string
	httpc   *http.Client
	logger  *slog.Logger
}

// HROption configures the HR client.
type HROption func(*HR)

// WithHRToken sets the bearer token for HR API requests.
func WithHRToken(token string) HROption {
	return func(h *HR) { h.token = token }
}

// WithHRHTTPClient overrides the underlying HTTP client.
func WithHRHTTPClient(c *http.Client) HROption {
	return func(h *HR) { h.httpc = c }
}

// WithHRLogger sets the logger.
func WithHRLogger(logger *slog.Logger) HROption {
	return func(h *HR) { h.logger = logger }
}

// NewHR creates an HR client for the given base URL.
func NewHR(baseURL string, opts ...HROption) *HR {
	h := &HR{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 30 * time.Second},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// FetchRequisition returns the requisition as the HR system sees it.
func (h *HR) FetchRequisition(ctx context.Context, ref string) (pipeline.RequisitionRecord, error) {
	var rec pipeline.RequisitionRecord
	err := h.getJSON(ctx, "/requisitions/"+url.PathEscape(ref), &rec)
	if err != nil {
		return pipeline.RequisitionRecord{}, fmt.Errorf("clients: fetch requisition %s: %w", ref, err)
	}
	return rec, nil
}

// ListCandidates returns the candidates the HR system holds for a
// requisition.
func (h *HR) ListCandidates(ctx context.Context, ref string) ([]pipeline.CandidateRecord, error) {
	var recs []pipeline.CandidateRecord
	err := h.getJSON(ctx, "/requisitions/"+url.PathEscape(ref)+"/candidates", &recs)
	if err != nil {
		return nil, fmt.Errorf("clients: list candidates for %s: %w", ref, err)
	}
	return recs, nil
}

// FetchDocuments downloads a candidate's application documents.
func (h *HR) FetchDocuments(ctx context.Context, candidateRef string) ([]pipeline.Document, error) {
	var docs []pipeline.Document
	err := h.getJSON(ctx, "/candidates/"+url.PathEscape(candidateRef)+"/documents", &docs)
	if err != nil {
		return nil, fmt.Errorf("clients: fetch documents for %s: %w", candidateRef, err)
	}
	return docs, nil
}

// UpdateStage pushes the candidate's stage back to the HR system.
func (h *HR) UpdateStage(ctx context.Context, candidateRef, stage string) error {
	body := map[string]string{"stage": stage}
	if err := h.do(ctx, http.MethodPut, "/candidates/"+url.PathEscape(candidateRef)+"/stage", body, nil); err != nil {
		return fmt.Errorf("clients: update stage for %s: %w", candidateRef, err)
	}
	return nil
}

// invitationMessage is the candidate message the HR system relays.
type invitationMessage struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// SendInvitation relays the interview invitation to the candidate through
// the HR system's messaging endpoint.
func (h *HR) SendInvitation(ctx context.Context, app *applicant.Application, sessionToken string) error {
	msg := invitationMessage{
		Subject: "Your interview invitation",
		Body: fmt.Sprintf(
			"Hello %s,\n\nYou have been invited to an interview. "+
				"Use the token below to join your session:\n\n%s\n",
			app.CandidateName, sessionToken),
	}
	path := "/candidates/" + url.PathEscape(app.ExternalRef) + "/messages"
	if err := h.do(ctx, http.MethodPost, path, msg, nil); err != nil {
		return fmt.Errorf("clients: send invitation to %s: %w", app.ExternalRef, err)
	}
	h.logger.Info("interview invitation relayed",
		slog.String("candidate_ref", app.ExternalRef),
	)
	return nil
}

func (h *HR) getJSON(ctx context.Context, path string, out any) error {
	return h.do(ctx, http.MethodGet, path, nil, out)
}

func (h *HR) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	resp, err := h.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, snippet)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
