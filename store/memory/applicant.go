package memory

import (
	"context"
	"sort"
	"time"

	recruiter "github.com/bbischke-nelo/airecruiter2-sub000"
	"github.com/bbischke-nelo/airecruiter2-sub000/applicant"
	"github.com/bbischke-nelo/airecruiter2-sub000/id"
	"github.com/bbischke-nelo/airecruiter2-sub000/job"
)

// CreateApplication inserts a new application.
func (m *Store) CreateApplication(_ context.Context, a *applicant.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	cp := *a
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	m.applications[cp.ID.String()] = &cp
	return nil
}

// GetApplication retrieves an application by ID.
func (m *Store) GetApplication(_ context.Context, appID id.ApplicationID) (*applicant.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.applications[appID.String()]
	if !ok {
		return nil, recruiter.ErrApplicationNotFound
	}
	cp := *a
	return &cp, nil
}

// GetApplicationByExternalRef retrieves an application by its external
// candidate reference.
func (m *Store) GetApplicationByExternalRef(_ context.Context, externalRef string) (*applicant.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.applications {
		if a.ExternalRef == externalRef {
			cp := *a
			return &cp, nil
		}
	}
	return nil, recruiter.ErrApplicationNotFound
}

// UpdateApplicationStatus moves an application to the given status.
func (m *Store) UpdateApplicationStatus(_ context.Context, appID id.ApplicationID, status applicant.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.applications[appID.String()]
	if !ok {
		return recruiter.ErrApplicationNotFound
	}
	a.Status = status
	a.UpdatedAt = m.now()
	return nil
}

// SetApplicationDisposition records the captured disposition.
func (m *Store) SetApplicationDisposition(_ context.Context, appID id.ApplicationID, d applicant.Disposition) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.applications[appID.String()]
	if !ok {
		return recruiter.ErrApplicationNotFound
	}
	a.Disposition = d
	a.UpdatedAt = m.now()
	return nil
}

// ListApplicationsByStatus returns applications in the given status.
func (m *Store) ListApplicationsByStatus(_ context.Context, status applicant.Status) ([]*applicant.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*applicant.Application
	for _, a := range m.applications {
		if a.Status != status {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sortApplications(out)
	return out, nil
}

// ListApplicationsMissingJob returns applications in the given status with
// no pending or running job of the given type.
func (m *Store) ListApplicationsMissingJob(_ context.Context, status applicant.Status, t job.Type) ([]*applicant.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*applicant.Application
	for _, a := range m.applications {
		if a.Status != status {
			continue
		}
		if m.hasOutstandingJobLocked(a.ID, t) {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sortApplications(out)
	return out, nil
}

// ListStaleApplications returns applications that have sat in the given
// status since before the cutoff.
func (m *Store) ListStaleApplications(_ context.Context, status applicant.Status, updatedBefore time.Time) ([]*applicant.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*applicant.Application
	for _, a := range m.applications {
		if a.Status != status {
			continue
		}
		if !a.UpdatedAt.Before(updatedBefore) {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sortApplications(out)
	return out, nil
}

// CreateRequisition inserts a new requisition.
func (m *Store) CreateRequisition(_ context.Context, r *applicant.Requisition) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	cp := *r
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	m.requisitions[cp.ID.String()] = &cp
	return nil
}

// GetRequisition retrieves a requisition by ID.
func (m *Store) GetRequisition(_ context.Context, reqID id.RequisitionID) (*applicant.Requisition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.requisitions[reqID.String()]
	if !ok {
		return nil, recruiter.ErrRequisitionNotFound
	}
	cp := *r
	return &cp, nil
}

// ListRequisitionsDueForSync returns open requisitions never synced or last
// synced before the cutoff.
func (m *Store) ListRequisitionsDueForSync(_ context.Context, lastSyncedBefore time.Time) ([]*applicant.Requisition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*applicant.Requisition
	for _, r := range m.requisitions {
		if !r.Open {
			continue
		}
		if r.LastSyncedAt != nil && !r.LastSyncedAt.Before(lastSyncedBefore) {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.Before(out[k].CreatedAt) })
	return out, nil
}

// MarkRequisitionSynced stamps the requisition's last sync time.
func (m *Store) MarkRequisitionSynced(_ context.Context, reqID id.RequisitionID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.requisitions[reqID.String()]
	if !ok {
		return recruiter.ErrRequisitionNotFound
	}
	t := at
	r.LastSyncedAt = &t
	r.UpdatedAt = m.now()
	return nil
}

// CreateSession inserts a new interview session.
func (m *Store) CreateSession(_ context.Context, s *applicant.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *s
	if cp.StartedAt.IsZero() {
		cp.StartedAt = m.now()
	}
	m.sessions[cp.ID.String()] = &cp
	return nil
}

// GetSession retrieves an interview session by ID.
func (m *Store) GetSession(_ context.Context, sessionID id.SessionID) (*applicant.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID.String()]
	if !ok {
		return nil, recruiter.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

// ListSessionsByApplication returns the application's sessions, most
// recently started first.
func (m *Store) ListSessionsByApplication(_ context.Context, appID id.ApplicationID) ([]*applicant.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*applicant.Session
	for _, s := range m.sessions {
		if s.ApplicationID.String() != appID.String() {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].StartedAt.After(out[k].StartedAt) })
	return out, nil
}

// ListActiveSessions returns sessions still marked active.
func (m *Store) ListActiveSessions(_ context.Context) ([]*applicant.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*applicant.Session
	for _, s := range m.sessions {
		if s.State != applicant.SessionActive {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].StartedAt.Before(out[k].StartedAt) })
	return out, nil
}

// MarkSessionEnded closes a session with the given final state.
func (m *Store) MarkSessionEnded(_ context.Context, sessionID id.SessionID, state applicant.SessionState, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID.String()]
	if !ok {
		return recruiter.ErrSessionNotFound
	}
	s.State = state
	t := at
	s.EndedAt = &t
	return nil
}

func sortApplications(apps []*applicant.Application) {
	sort.Slice(apps, func(i, k int) bool { return apps[i].UpdatedAt.Before(apps[k].UpdatedAt) })
}
