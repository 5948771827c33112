package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	recruiter "github.com/bbischke-nelo/airecruiter2-sub000"
	"github.com/bbischke-nelo/airecruiter2-sub000/applicant"
	"github.com/bbischke-nelo/airecruiter2-sub000/id"
	"github.com/bbischke-nelo/airecruiter2-sub000/job"
)

const applicationColumns = `id, requisition_id, external_ref, candidate_name,
	status, disposition, created_at, updated_at`

func scanApplication(row pgx.Row) (*applicant.Application, error) {
	var a applicant.Application
	err := row.Scan(
		&a.ID, &a.RequisitionID, &a.ExternalRef, &a.CandidateName,
		&a.Status, &a.Disposition, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateApplication inserts a new application.
func (s *Store) CreateApplication(ctx context.Context, a *applicant.Application) error {
	query := `
		INSERT INTO recruiter_applications (
			id, requisition_id, external_ref, candidate_name,
			status, disposition, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())`

	_, err := s.pool.Exec(ctx, query,
		a.ID, a.RequisitionID, a.ExternalRef, a.CandidateName, a.Status, a.Disposition)
	if err != nil {
		return fmt.Errorf("recruiter/postgres: create application: %w", err)
	}
	return nil
}

// GetApplication retrieves an application by ID.
func (s *Store) GetApplication(ctx context.Context, appID id.ApplicationID) (*applicant.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM recruiter_applications WHERE id = $1`

	a, err := scanApplication(s.pool.QueryRow(ctx, query, appID))
	if err != nil {
		if isNoRows(err) {
			return nil, recruiter.ErrApplicationNotFound
		}
		return nil, fmt.Errorf("recruiter/postgres: get application: %w", err)
	}
	return a, nil
}

// GetApplicationByExternalRef retrieves an application by its external
// candidate reference.
func (s *Store) GetApplicationByExternalRef(ctx context.Context, externalRef string) (*applicant.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM recruiter_applications WHERE external_ref = $1`

	a, err := scanApplication(s.pool.QueryRow(ctx, query, externalRef))
	if err != nil {
		if isNoRows(err) {
			return nil, recruiter.ErrApplicationNotFound
		}
		return nil, fmt.Errorf("recruiter/postgres: get application by external ref: %w", err)
	}
	return a, nil
}

// UpdateApplicationStatus moves an application to the given status.
func (s *Store) UpdateApplicationStatus(ctx context.Context, appID id.ApplicationID, status applicant.Status) error {
	query := `
		UPDATE recruiter_applications SET status = $2, updated_at = NOW()
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, appID, status)
	if err != nil {
		return fmt.Errorf("recruiter/postgres: update application status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return recruiter.ErrApplicationNotFound
	}
	return nil
}

// SetApplicationDisposition records the captured disposition.
func (s *Store) SetApplicationDisposition(ctx context.Context, appID id.ApplicationID, d applicant.Disposition) error {
	query := `
		UPDATE recruiter_applications SET disposition = $2, updated_at = NOW()
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, appID, d)
	if err != nil {
		return fmt.Errorf("recruiter/postgres: set application disposition: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return recruiter.ErrApplicationNotFound
	}
	return nil
}

// ListApplicationsByStatus returns applications in the given status,
// least recently updated first.
func (s *Store) ListApplicationsByStatus(ctx context.Context, status applicant.Status) ([]*applicant.Application, error) {
	query := `SELECT ` + applicationColumns + `
		FROM recruiter_applications
		WHERE status = $1
		ORDER BY updated_at ASC`

	rows, err := s.pool.Query(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("recruiter/postgres: list applications: %w", err)
	}
	defer rows.Close()

	return collectApplications(rows)
}

// ListApplicationsMissingJob returns applications in the given status that
// have no pending or running job of the given type. Discovery uses this to
// plug the gap when a status change landed but the next job did not.
func (s *Store) ListApplicationsMissingJob(ctx context.Context, status applicant.Status, t job.Type) ([]*applicant.Application, error) {
	query := `SELECT ` + applicationColumns + `
		FROM recruiter_applications a
		WHERE a.status = $1
		  AND NOT EXISTS (
			SELECT 1 FROM recruiter_jobs j
			WHERE j.subject_id = a.id
			  AND j.type = $2
			  AND j.status IN ('pending', 'running')
		  )
		ORDER BY a.updated_at ASC`

	rows, err := s.pool.Query(ctx, query, status, t)
	if err != nil {
		return nil, fmt.Errorf("recruiter/postgres: list applications missing job: %w", err)
	}
	defer rows.Close()

	return collectApplications(rows)
}

// ListStaleApplications returns applications that have sat in the given
// status since before the cutoff.
func (s *Store) ListStaleApplications(ctx context.Context, status applicant.Status, updatedBefore time.Time) ([]*applicant.Application, error) {
	query := `SELECT ` + applicationColumns + `
		FROM recruiter_applications
		WHERE status = $1 AND updated_at < $2
		ORDER BY updated_at ASC`

	rows, err := s.pool.Query(ctx, query, status, updatedBefore)
	if err != nil {
		return nil, fmt.Errorf("recruiter/postgres: list stale applications: %w", err)
	}
	defer rows.Close()

	return collectApplications(rows)
}

// AdvanceApplication moves the application to the given status and, when
// nextJob is non-nil, inserts it as pending — both in one transaction so no
// observer sees the status change without the job.
func (s *Store) AdvanceApplication(ctx context.Context, appID id.ApplicationID, status applicant.Status, nextJob *job.Job) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("recruiter/postgres: advance application: begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	tag, err := tx.Exec(ctx,
		`UPDATE recruiter_applications SET status = $2, updated_at = NOW() WHERE id = $1`,
		appID, status)
	if err != nil {
		return fmt.Errorf("recruiter/postgres: advance application: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return recruiter.ErrApplicationNotFound
	}

	if nextJob != nil {
		_, err = tx.Exec(ctx, `
			INSERT INTO recruiter_jobs (
				id, type, subject_id, secondary_subject_id, status, priority,
				attempts, max_attempts, payload, last_error, visible_after,
				created_at, updated_at
			) VALUES (
				$1, $2, $3, $4, 'pending', $5,
				0, $6, $7, '', NOW(),
				NOW(), NOW()
			)`,
			nextJob.ID, nextJob.Type, nextJob.SubjectID, nextJob.SecondarySubjectID,
			nextJob.Priority, nextJob.MaxAttempts, nextJob.Payload)
		if err != nil {
			if isDuplicateKey(err) {
				return recruiter.ErrJobAlreadyExists
			}
			return fmt.Errorf("recruiter/postgres: advance application: enqueue: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("recruiter/postgres: advance application: commit: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Requisitions
// ──────────────────────────────────────────────────

const requisitionColumns = `id, external_ref, title, open, last_synced_at, created_at, updated_at`

func scanRequisition(row pgx.Row) (*applicant.Requisition, error) {
	var r applicant.Requisition
	err := row.Scan(&r.ID, &r.ExternalRef, &r.Title, &r.Open, &r.LastSyncedAt, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateRequisition inserts a new requisition.
func (s *Store) CreateRequisition(ctx context.Context, r *applicant.Requisition) error {
	query := `
		INSERT INTO recruiter_requisitions (
			id, external_ref, title, open, last_synced_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, NOW(), NOW())`

	_, err := s.pool.Exec(ctx, query, r.ID, r.ExternalRef, r.Title, r.Open, r.LastSyncedAt)
	if err != nil {
		return fmt.Errorf("recruiter/postgres: create requisition: %w", err)
	}
	return nil
}

// GetRequisition retrieves a requisition by ID.
func (s *Store) GetRequisition(ctx context.Context, reqID id.RequisitionID) (*applicant.Requisition, error) {
	query := `SELECT ` + requisitionColumns + ` FROM recruiter_requisitions WHERE id = $1`

	r, err := scanRequisition(s.pool.QueryRow(ctx, query, reqID))
	if err != nil {
		if isNoRows(err) {
			return nil, recruiter.ErrRequisitionNotFound
		}
		return nil, fmt.Errorf("recruiter/postgres: get requisition: %w", err)
	}
	return r, nil
}

// ListRequisitionsDueForSync returns open requisitions never synced or last
// synced before the cutoff.
func (s *Store) ListRequisitionsDueForSync(ctx context.Context, lastSyncedBefore time.Time) ([]*applicant.Requisition, error) {
	query := `SELECT ` + requisitionColumns + `
		FROM recruiter_requisitions
		WHERE open AND (last_synced_at IS NULL OR last_synced_at < $1)
		ORDER BY created_at ASC`

	rows, err := s.pool.Query(ctx, query, lastSyncedBefore)
	if err != nil {
		return nil, fmt.Errorf("recruiter/postgres: list requisitions due for sync: %w", err)
	}
	defer rows.Close()

	var out []*applicant.Requisition
	for rows.Next() {
		r, scanErr := scanRequisition(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("recruiter/postgres: scan requisition: %w", scanErr)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recruiter/postgres: iterate requisitions: %w", err)
	}
	return out, nil
}

// MarkRequisitionSynced stamps the requisition's last sync time.
func (s *Store) MarkRequisitionSynced(ctx context.Context, reqID id.RequisitionID, at time.Time) error {
	query := `
		UPDATE recruiter_requisitions SET last_synced_at = $2, updated_at = NOW()
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, reqID, at)
	if err != nil {
		return fmt.Errorf("recruiter/postgres: mark requisition synced: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return recruiter.ErrRequisitionNotFound
	}
	return nil
}

// ──────────────────────────────────────────────────
// Interview sessions
// ──────────────────────────────────────────────────

const sessionColumns = `id, application_id, token, state, started_at, ended_at`

func scanSession(row pgx.Row) (*applicant.Session, error) {
	var sess applicant.Session
	err := row.Scan(&sess.ID, &sess.ApplicationID, &sess.Token, &sess.State, &sess.StartedAt, &sess.EndedAt)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// CreateSession inserts a new interview session.
func (s *Store) CreateSession(ctx context.Context, sess *applicant.Session) error {
	query := `
		INSERT INTO recruiter_sessions (
			id, application_id, token, state, started_at
		) VALUES ($1, $2, $3, $4, COALESCE($5, NOW()))`

	var startedAt *time.Time
	if !sess.StartedAt.IsZero() {
		startedAt = &sess.StartedAt
	}

	_, err := s.pool.Exec(ctx, query, sess.ID, sess.ApplicationID, sess.Token, sess.State, startedAt)
	if err != nil {
		return fmt.Errorf("recruiter/postgres: create session: %w", err)
	}
	return nil
}

// GetSession retrieves an interview session by ID.
func (s *Store) GetSession(ctx context.Context, sessionID id.SessionID) (*applicant.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM recruiter_sessions WHERE id = $1`

	sess, err := scanSession(s.pool.QueryRow(ctx, query, sessionID))
	if err != nil {
		if isNoRows(err) {
			return nil, recruiter.ErrSessionNotFound
		}
		return nil, fmt.Errorf("recruiter/postgres: get session: %w", err)
	}
	return sess, nil
}

// ListSessionsByApplication returns the application's sessions, most
// recently started first.
func (s *Store) ListSessionsByApplication(ctx context.Context, appID id.ApplicationID) ([]*applicant.Session, error) {
	query := `SELECT ` + sessionColumns + `
		FROM recruiter_sessions
		WHERE application_id = $1
		ORDER BY started_at DESC`

	rows, err := s.pool.Query(ctx, query, appID)
	if err != nil {
		return nil, fmt.Errorf("recruiter/postgres: list sessions by application: %w", err)
	}
	defer rows.Close()

	var out []*applicant.Session
	for rows.Next() {
		sess, scanErr := scanSession(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("recruiter/postgres: scan session: %w", scanErr)
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recruiter/postgres: iterate sessions: %w", err)
	}
	return out, nil
}

// ListActiveSessions returns sessions still marked active, oldest first.
func (s *Store) ListActiveSessions(ctx context.Context) ([]*applicant.Session, error) {
	query := `SELECT ` + sessionColumns + `
		FROM recruiter_sessions
		WHERE state = 'active'
		ORDER BY started_at ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("recruiter/postgres: list active sessions: %w", err)
	}
	defer rows.Close()

	var out []*applicant.Session
	for rows.Next() {
		sess, scanErr := scanSession(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("recruiter/postgres: scan session: %w", scanErr)
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recruiter/postgres: iterate sessions: %w", err)
	}
	return out, nil
}

// MarkSessionEnded closes a session with the given final state.
func (s *Store) MarkSessionEnded(ctx context.Context, sessionID id.SessionID, state applicant.SessionState, at time.Time) error {
	query := `
		UPDATE recruiter_sessions SET state = $2, ended_at = $3
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, sessionID, state, at)
	if err != nil {
		return fmt.Errorf("recruiter/postgres: mark session ended: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return recruiter.ErrSessionNotFound
	}
	return nil
}

func collectApplications(rows pgx.Rows) ([]*applicant.Application, error) {
	var out []*applicant.Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("recruiter/postgres: scan application: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recruiter/postgres: iterate applications: %w", err)
	}
	return out, nil
}
