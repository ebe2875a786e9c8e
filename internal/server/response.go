package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/me/mgasm/internal/pipeline"
	"github.com/me/mgasm/pkg/model"
)

// requestID generates a unique request identifier.
func requestID() string {
	return "req_" + uuid.New().String()[:8]
}

// respondOK writes a success response with the standard envelope.
func respondOK(w http.ResponseWriter, reqID string, data any) {
	respondJSON(w, http.StatusOK, reqID, data, nil, nil)
}

// respondAccepted writes a 202 response for work continuing in the
// background.
func respondAccepted(w http.ResponseWriter, reqID string, data any) {
	respondJSON(w, http.StatusAccepted, reqID, data, nil, nil)
}

// respondList writes a success response with pagination.
func respondList(w http.ResponseWriter, reqID string, data any, pg *model.Pagination) {
	respondJSON(w, http.StatusOK, reqID, data, pg, nil)
}

// respondError writes an error response with the standard envelope.
func respondError(w http.ResponseWriter, reqID string, status int, apiErr *model.APIError) {
	respondJSON(w, status, reqID, nil, nil, apiErr)
}

// respondRunError maps a pipeline error onto a status code and API error.
func respondRunError(w http.ResponseWriter, reqID string, err error) {
	var valErr *model.ValidationError
	var capErr *model.CapacityError
	switch {
	case errors.As(err, &valErr):
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError("invalid pipeline parameters", valErr.Details...))
	case errors.As(err, &capErr):
		details := make([]model.FieldError, 0, len(capErr.Violations))
		for _, v := range capErr.Violations {
			details = append(details, model.FieldError{Message: v})
		}
		respondError(w, reqID, http.StatusUnprocessableEntity,
			&model.APIError{Code: model.ErrCapacity, Message: "input exceeds resource limits", Details: details})
	case pipeline.IsToolFailure(err):
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrToolFailed, Message: err.Error()})
	default:
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
	}
}

func respondJSON(w http.ResponseWriter, status int, reqID string, data any, pg *model.Pagination, apiErr *model.APIError) {
	resp := model.Response{
		RequestID:  reqID,
		Timestamp:  time.Now().UTC(),
		Data:       data,
		Pagination: pg,
		Error:      apiErr,
	}
	if apiErr != nil {
		resp.Status = "error"
	} else {
		resp.Status = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
