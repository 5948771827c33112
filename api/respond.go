package api

import (
	"encoding/json"
	"errors"
	"net/http"

	recruiter "github.com/bbischke-nelo/airecruiter2-sub000"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Error("encode response", "error", err.Error())
	}
}

func (a *API) writeError(w http.ResponseWriter, status int, msg string) {
	a.writeJSON(w, status, errorResponse{Error: msg})
}

// storeError maps sentinel errors to HTTP statuses and logs everything
// that surfaces as a 500.
func (a *API) storeError(w http.ResponseWriter, err error) {
	switch {
	case isNotFound(err):
		a.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, recruiter.ErrJobAlreadyExists):
		a.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, recruiter.ErrUnknownJobType):
		a.writeError(w, http.StatusBadRequest, err.Error())
	default:
		a.logger.Error("request failed", "error", err.Error())
		a.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, recruiter.ErrJobNotFound) ||
		errors.Is(err, recruiter.ErrApplicationNotFound) ||
		errors.Is(err, recruiter.ErrRequisitionNotFound) ||
		errors.Is(err, recruiter.ErrSessionNotFound)
}
