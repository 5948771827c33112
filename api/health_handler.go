package api

import (
	"net/http"

	"github.com/bbischke-nelo/airecruiter2-sub000/job"
	"github.com/bbischke-nelo/airecruiter2-sub000/scheduler"
	"github.com/bbischke-nelo/airecruiter2-sub000/worker"
)

// HealthResponse is the body for GET /healthz.
type HealthResponse struct {
	Status    string             `json:"status"`
	Jobs      map[job.Status]int `json:"jobs"`
	Pool      *worker.Status     `json:"pool,omitempty"`
	Scheduler *scheduler.Status  `json:"scheduler,omitempty"`
}

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := a.store.Ping(ctx); err != nil {
		a.writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "store unreachable: " + err.Error()})
		return
	}

	counts, err := a.queue.Counts(ctx)
	if err != nil {
		a.storeError(w, err)
		return
	}

	resp := HealthResponse{
		Status: "ok",
		Jobs:   counts,
	}
	if a.pool != nil {
		st := a.pool.Status()
		resp.Pool = &st
	}
	if a.sched != nil {
		st := a.sched.Status()
		resp.Scheduler = &st
	}
	a.writeJSON(w, http.StatusOK, resp)
}
