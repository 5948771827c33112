package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bbischke-nelo/airecruiter2-sub000/id"
	"github.com/bbischke-nelo/airecruiter2-sub000/job"
	"github.com/bbischke-nelo/airecruiter2-sub000/queue"
)

const defaultListLimit = 100

func (a *API) listJobs(w http.ResponseWriter, r *http.Request) {
	status := job.Status(r.URL.Query().Get("status"))
	if status == "" {
		status = job.StatusPending
	}
	if !validStatus(status) {
		a.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown job status %q", status))
		return
	}

	opts := job.ListOpts{Limit: defaultListLimit}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			a.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", v))
			return
		}
		opts.Limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			a.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid offset %q", v))
			return
		}
		opts.Offset = n
	}

	jobs, err := a.store.ListJobsByStatus(r.Context(), status, opts)
	if err != nil {
		a.storeError(w, err)
		return
	}
	if jobs == nil {
		jobs = []*job.Job{}
	}
	a.writeJSON(w, http.StatusOK, jobs)
}

func (a *API) listRunningJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := a.queue.Running(r.Context())
	if err != nil {
		a.storeError(w, err)
		return
	}
	if jobs == nil {
		jobs = []*job.Job{}
	}
	a.writeJSON(w, http.StatusOK, jobs)
}

func (a *API) getJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := id.ParseJobID(chi.URLParam(r, "jobID"))
	if err != nil {
		a.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid job ID: %v", err))
		return
	}

	j, err := a.store.GetJob(r.Context(), jobID)
	if err != nil {
		a.storeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, j)
}

// EnqueueJobRequest is the body for POST /v1/jobs.
type EnqueueJobRequest struct {
	Type          job.Type        `json:"type"`
	ApplicationID string          `json:"application_id,omitempty"`
	RequisitionID string          `json:"requisition_id,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	Priority      int             `json:"priority,omitempty"`
	MaxAttempts   int             `json:"max_attempts,omitempty"`
	Delay         string          `json:"delay,omitempty"`
}

func (a *API) enqueueJob(w http.ResponseWriter, r *http.Request) {
	var req EnqueueJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, http.StatusBadRequest, fmt.Sprintf("decode request: %v", err))
		return
	}

	var opts []queue.EnqueueOption
	if req.ApplicationID != "" {
		appID, err := id.ParseApplicationID(req.ApplicationID)
		if err != nil {
			a.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid application ID: %v", err))
			return
		}
		opts = append(opts, queue.WithSubject(appID))
	}
	if req.RequisitionID != "" {
		reqID, err := id.ParseRequisitionID(req.RequisitionID)
		if err != nil {
			a.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid requisition ID: %v", err))
			return
		}
		opts = append(opts, queue.WithSecondarySubject(reqID))
	}
	if len(req.Payload) > 0 {
		opts = append(opts, queue.WithRawPayload(req.Payload))
	}
	if req.Priority != 0 {
		opts = append(opts, queue.WithPriority(req.Priority))
	}
	if req.MaxAttempts > 0 {
		opts = append(opts, queue.WithMaxAttempts(req.MaxAttempts))
	}
	if req.Delay != "" {
		d, err := time.ParseDuration(req.Delay)
		if err != nil || d < 0 {
			a.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid delay %q", req.Delay))
			return
		}
		opts = append(opts, queue.WithDelay(d))
	}

	j, err := a.queue.Enqueue(r.Context(), req.Type, opts...)
	if err != nil {
		a.storeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, j)
}

func (a *API) retryJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := id.ParseJobID(chi.URLParam(r, "jobID"))
	if err != nil {
		a.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid job ID: %v", err))
		return
	}

	revived, err := a.queue.RetryDead(r.Context(), jobID)
	if err != nil {
		a.storeError(w, err)
		return
	}
	if !revived {
		a.writeError(w, http.StatusConflict, "job is not dead")
		return
	}

	j, err := a.store.GetJob(r.Context(), jobID)
	if err != nil {
		a.storeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, j)
}

// PurgeCompletedResponse is the body for DELETE /v1/jobs/completed.
type PurgeCompletedResponse struct {
	Purged int `json:"purged"`
}

func (a *API) purgeCompleted(w http.ResponseWriter, r *http.Request) {
	olderThan := 7 * 24 * time.Hour
	if v := r.URL.Query().Get("older_than"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			a.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid older_than %q", v))
			return
		}
		olderThan = d
	}

	n, err := a.queue.PurgeCompleted(r.Context(), time.Now().UTC().Add(-olderThan))
	if err != nil {
		a.storeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, PurgeCompletedResponse{Purged: n})
}

func validStatus(s job.Status) bool {
	for _, known := range job.Statuses {
		if s == known {
			return true
		}
	}
	return false
}
