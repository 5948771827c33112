package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	recruiter "github.com/bbischke-nelo/airecruiter2-sub000"
	"github.com/bbischke-nelo/airecruiter2-sub000/applicant"
	"github.com/bbischke-nelo/airecruiter2-sub000/id"
	"github.com/bbischke-nelo/airecruiter2-sub000/job"
	"github.com/bbischke-nelo/airecruiter2-sub000/queue"
)

// ──────────────────────────────────────────────────
// sync — intake + document retrieval
// ──────────────────────────────────────────────────

// handleSync runs in two modes. With only a secondary subject it is a
// requisition intake: it imports candidate applications the external HR
// system knows about but we do not. With a subject it retrieves that
// candidate's documents and advances the application to downloaded.
func (p *Pipeline) handleSync(ctx context.Context, j *job.Job, payload SyncPayload) error {
	if j.SubjectID.IsNil() {
		return p.syncRequisition(ctx, j)
	}
	return p.syncApplication(ctx, j.SubjectID, payload)
}

func (p *Pipeline) syncRequisition(ctx context.Context, j *job.Job) error {
	if j.SecondarySubjectID.IsNil() {
		return fmt.Errorf("pipeline: sync job %s has no subject: %w", j.ID, recruiter.ErrInvalidPayload)
	}

	req, err := p.store.GetRequisition(ctx, j.SecondarySubjectID)
	if err != nil {
		return fmt.Errorf("pipeline: sync requisition: %w", err)
	}

	candidates, err := p.hr.ListCandidates(ctx, req.ExternalRef)
	if err != nil {
		return fmt.Errorf("pipeline: list candidates for %s: %w", req.ExternalRef, err)
	}

	imported := 0
	for _, c := range candidates {
		_, err := p.store.GetApplicationByExternalRef(ctx, c.ExternalRef)
		if err == nil {
			continue
		}
		if !errors.Is(err, recruiter.ErrApplicationNotFound) {
			return fmt.Errorf("pipeline: check candidate %s: %w", c.ExternalRef, err)
		}

		app := &applicant.Application{
			ID:            id.NewApplicationID(),
			RequisitionID: req.ID,
			ExternalRef:   c.ExternalRef,
			CandidateName: c.Name,
			Status:        applicant.StatusNew,
		}
		if err := p.store.CreateApplication(ctx, app); err != nil {
			return fmt.Errorf("pipeline: import candidate %s: %w", c.ExternalRef, err)
		}
		imported++
	}

	if err := p.store.MarkRequisitionSynced(ctx, req.ID, p.now()); err != nil {
		return fmt.Errorf("pipeline: mark requisition synced: %w", err)
	}

	p.logger.Info("requisition synced",
		slog.String("requisition_id", req.ID.String()),
		slog.Int("candidates", len(candidates)),
		slog.Int("imported", imported),
	)
	return nil
}

func (p *Pipeline) syncApplication(ctx context.Context, appID id.ApplicationID, payload SyncPayload) error {
	app, err := p.store.GetApplication(ctx, appID)
	if err != nil {
		return fmt.Errorf("pipeline: sync application: %w", err)
	}

	// Already past retrieval: a re-delivered job is a no-op unless forced.
	if app.Status != applicant.StatusNew && app.Status != applicant.StatusSyncing && !payload.Force {
		return nil
	}

	if err := p.store.UpdateApplicationStatus(ctx, appID, applicant.StatusSyncing); err != nil {
		return fmt.Errorf("pipeline: enter syncing: %w", err)
	}

	docs, err := p.hr.FetchDocuments(ctx, app.ExternalRef)
	if err != nil {
		return fmt.Errorf("pipeline: fetch documents for %s: %w", app.ExternalRef, err)
	}

	var dossier bytes.Buffer
	for _, d := range docs {
		fmt.Fprintf(&dossier, "--- %s ---\n", d.Name)
		dossier.Write(d.Content)
		dossier.WriteString("\n")
	}
	if err := p.docs.Put(ctx, dossierKey(appID), dossier.Bytes()); err != nil {
		return fmt.Errorf("pipeline: store dossier: %w", err)
	}

	return p.advance(ctx, appID, applicant.StatusDownloaded)
}

// ──────────────────────────────────────────────────
// analyze — AI fact extraction
// ──────────────────────────────────────────────────

// extractedFacts is the JSON shape the extraction prompt asks the model for.
type extractedFacts struct {
	Disposition string `json:"disposition"`
	Summary     string `json:"summary"`
}

func (p *Pipeline) handleAnalyze(ctx context.Context, j *job.Job, _ AnalyzePayload) error {
	app, err := p.store.GetApplication(ctx, j.SubjectID)
	if err != nil {
		return fmt.Errorf("pipeline: analyze: %w", err)
	}

	if app.Status != applicant.StatusDownloaded && app.Status != applicant.StatusExtracting {
		return nil
	}

	if err := p.store.UpdateApplicationStatus(ctx, app.ID, applicant.StatusExtracting); err != nil {
		return fmt.Errorf("pipeline: enter extracting: %w", err)
	}

	dossier, err := p.docs.Get(ctx, dossierKey(app.ID))
	if err != nil {
		return fmt.Errorf("pipeline: read dossier: %w", err)
	}

	prompt := fmt.Sprintf(
		"Extract candidate facts from the application dossier below. "+
			"Respond with JSON: {\"disposition\": \"advance|reject|undecided\", \"summary\": \"...\"}.\n\n%s",
		dossier)

	out, err := p.llm.Complete(ctx, prompt)
	if err != nil {
		return fmt.Errorf("pipeline: fact extraction: %w", err)
	}

	var facts extractedFacts
	if err := json.Unmarshal([]byte(out), &facts); err != nil {
		return fmt.Errorf("pipeline: decode extraction output: %w", err)
	}

	if err := p.store.SetApplicationDisposition(ctx, app.ID, parseDisposition(facts.Disposition)); err != nil {
		return fmt.Errorf("pipeline: record disposition: %w", err)
	}

	return p.advance(ctx, app.ID, applicant.StatusExtracted)
}

func parseDisposition(s string) applicant.Disposition {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "advance":
		return applicant.DispositionAdvance
	case "reject":
		return applicant.DispositionReject
	default:
		return applicant.DispositionUndecided
	}
}

// ──────────────────────────────────────────────────
// send_interview
// ──────────────────────────────────────────────────

func (p *Pipeline) handleSendInterview(ctx context.Context, j *job.Job, _ SendInterviewPayload) error {
	app, err := p.store.GetApplication(ctx, j.SubjectID)
	if err != nil {
		return fmt.Errorf("pipeline: send interview: %w", err)
	}

	if app.Status != applicant.StatusAdvancing {
		return nil
	}

	sess := &applicant.Session{
		ID:            id.NewSessionID(),
		ApplicationID: app.ID,
		Token:         uuid.NewString(),
		State:         applicant.SessionActive,
		StartedAt:     p.now(),
	}
	if err := p.store.CreateSession(ctx, sess); err != nil {
		return fmt.Errorf("pipeline: create session: %w", err)
	}
	if err := p.sessions.Touch(ctx, sess.ID, p.sessionTTL); err != nil {
		return fmt.Errorf("pipeline: open session liveness: %w", err)
	}

	if err := p.mail.SendInvitation(ctx, app, sess.Token); err != nil {
		return fmt.Errorf("pipeline: send invitation: %w", err)
	}

	p.logger.Info("interview invitation sent",
		slog.String("application_id", app.ID.String()),
		slog.String("session_id", sess.ID.String()),
	)

	return p.advance(ctx, app.ID, applicant.StatusInterviewSent)
}

// ──────────────────────────────────────────────────
// evaluate — score the completed interview
// ──────────────────────────────────────────────────

func (p *Pipeline) handleEvaluate(ctx context.Context, j *job.Job, payload EvaluatePayload) error {
	app, err := p.store.GetApplication(ctx, j.SubjectID)
	if err != nil {
		return fmt.Errorf("pipeline: evaluate: %w", err)
	}

	if app.Status != applicant.StatusInterviewDone {
		return nil
	}

	sess, err := p.resolveSession(ctx, app.ID, payload.SessionID)
	if err != nil {
		return err
	}

	// The orphan sweep can route an interrupted session here while the
	// domain row still says active.
	if sess.State == applicant.SessionActive {
		if err := p.store.MarkSessionEnded(ctx, sess.ID, applicant.SessionCompleted, p.now()); err != nil {
			return fmt.Errorf("pipeline: close session: %w", err)
		}
		if err := p.sessions.End(ctx, sess.ID); err != nil {
			return fmt.Errorf("pipeline: close session liveness: %w", err)
		}
	}

	transcript, err := p.docs.Get(ctx, transcriptKey(sess.ID))
	if err != nil {
		return fmt.Errorf("pipeline: read transcript for %s: %w", sess.ID, err)
	}

	prompt := fmt.Sprintf(
		"Evaluate the interview transcript below for candidate %s. "+
			"Score fit, communication, and depth; give a hiring recommendation.\n\n%s",
		app.CandidateName, transcript)

	out, err := p.llm.Complete(ctx, prompt)
	if err != nil {
		return fmt.Errorf("pipeline: evaluation: %w", err)
	}

	if err := p.docs.Put(ctx, evaluationKey(app.ID), []byte(out)); err != nil {
		return fmt.Errorf("pipeline: store evaluation: %w", err)
	}

	return p.advance(ctx, app.ID, applicant.StatusEvaluated)
}

// resolveSession returns the named session, or the application's most
// recent one when the payload does not name any.
func (p *Pipeline) resolveSession(ctx context.Context, appID id.ApplicationID, sessionID id.SessionID) (*applicant.Session, error) {
	if !sessionID.IsNil() {
		sess, err := p.store.GetSession(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("pipeline: resolve session: %w", err)
		}
		return sess, nil
	}

	sessions, err := p.store.ListSessionsByApplication(ctx, appID)
	if err != nil {
		return nil, fmt.Errorf("pipeline: list sessions: %w", err)
	}
	if len(sessions) == 0 {
		return nil, fmt.Errorf("pipeline: application %s has no interview session: %w", appID, recruiter.ErrSessionNotFound)
	}
	return sessions[0], nil
}

// ──────────────────────────────────────────────────
// generate_report / upload_report
// ──────────────────────────────────────────────────

func (p *Pipeline) handleGenerateReport(ctx context.Context, j *job.Job, _ GenerateReportPayload) error {
	app, err := p.store.GetApplication(ctx, j.SubjectID)
	if err != nil {
		return fmt.Errorf("pipeline: generate report: %w", err)
	}

	// A replayed job after the advance already committed must not drag the
	// application back through the report tail.
	if app.Status != applicant.StatusEvaluated {
		return nil
	}

	report, err := p.renderReport(ctx, app)
	if err != nil {
		return err
	}

	return p.advance(ctx, app.ID, applicant.StatusReportPending,
		queue.WithPayload(UploadReportPayload{
			Key:     reportKey(app.ID),
			Content: report,
		}))
}

func (p *Pipeline) handleUploadReport(ctx context.Context, j *job.Job, payload UploadReportPayload) error {
	app, err := p.store.GetApplication(ctx, j.SubjectID)
	if err != nil {
		return fmt.Errorf("pipeline: upload report: %w", err)
	}

	if app.Status != applicant.StatusReportPending {
		return nil
	}

	key := payload.Key
	content := payload.Content
	if content == "" {
		// Bare job (discovery enqueued it without the rendered report):
		// render again from the stored evaluation.
		key = reportKey(app.ID)
		content, err = p.renderReport(ctx, app)
		if err != nil {
			return err
		}
	}

	if err := p.docs.Put(ctx, key, []byte(content)); err != nil {
		return fmt.Errorf("pipeline: store report: %w", err)
	}

	return p.advance(ctx, app.ID, applicant.StatusReportReady)
}

func (p *Pipeline) renderReport(ctx context.Context, app *applicant.Application) (string, error) {
	eval, err := p.docs.Get(ctx, evaluationKey(app.ID))
	if err != nil {
		return "", fmt.Errorf("pipeline: read evaluation: %w", err)
	}

	prompt := fmt.Sprintf(
		"Render a hiring report for candidate %s from the evaluation below. "+
			"Structure: summary, strengths, concerns, recommendation.\n\n%s",
		app.CandidateName, eval)

	out, err := p.llm.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("pipeline: render report: %w", err)
	}
	return out, nil
}

// ──────────────────────────────────────────────────
// update_external_stage
// ──────────────────────────────────────────────────

func (p *Pipeline) handleUpdateStage(ctx context.Context, j *job.Job, payload UpdateStagePayload) error {
	app, err := p.store.GetApplication(ctx, j.SubjectID)
	if err != nil {
		return fmt.Errorf("pipeline: update stage: %w", err)
	}

	if app.Status == applicant.StatusComplete {
		return nil
	}

	stage := payload.ExternalStage
	if stage == "" {
		stage, err = stageForStatus(app.Status)
		if err != nil {
			return err
		}
	}

	if err := p.hr.UpdateStage(ctx, app.ExternalRef, stage); err != nil {
		return fmt.Errorf("pipeline: push stage %q for %s: %w", stage, app.ExternalRef, err)
	}

	// The stage push is the pipeline's last act for both the rejected and
	// the assessed path; the disposition keeps the outcome queryable.
	return p.advance(ctx, app.ID, applicant.StatusComplete)
}
