package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/me/mgasm/internal/pipeline"
	"github.com/me/mgasm/pkg/model"
)

// runResponse describes a run accepted or finished by POST /runs.
type runResponse struct {
	ID        string                 `json:"id"`
	State     model.RunState         `json:"state"`
	OutputDir string                 `json:"output_dir"`
	Results   *model.PipelineResults `json:"results,omitempty"`
	Archive   string                 `json:"archive,omitempty"`
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var params model.PipelineParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		respondError(w, reqID, http.StatusBadRequest, &model.APIError{
			Code:    model.ErrValidation,
			Message: "Invalid JSON body: " + err.Error(),
		})
		return
	}

	rc, err := s.runner.Prepare(r.Context(), params)
	if err != nil {
		respondRunError(w, reqID, err)
		return
	}

	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		outcome, err := s.runner.Execute(r.Context(), rc, params)
		if err != nil {
			respondRunError(w, reqID, err)
			return
		}
		respondOK(w, reqID, runResponse{
			ID:        outcome.RunID,
			State:     model.RunStateDone,
			OutputDir: outcome.OutputDir,
			Results:   &outcome.Results,
			Archive:   outcome.Archive,
		})
		return
	}

	s.runs.Add(1)
	go s.executeInBackground(rc, params)

	s.logger.Info("run accepted", "run_id", rc.ID, "request_id", reqID)
	respondAccepted(w, reqID, runResponse{
		ID:        rc.ID,
		State:     model.RunStateValidated,
		OutputDir: rc.OutputDir,
	})
}

// executeInBackground runs a prepared pipeline detached from the request.
// The outcome is visible through the run history.
func (s *Server) executeInBackground(rc *pipeline.RunContext, params model.PipelineParams) {
	defer s.runs.Done()
	if _, err := s.runner.Execute(s.baseCtx, rc, params); err != nil {
		s.logger.Error("background run failed", "run_id", rc.ID, "error", err)
		return
	}
	s.logger.Info("background run finished", "run_id", rc.ID)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	opts := model.DefaultListOptions()
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.Offset = n
		}
	}
	if v := q.Get("state"); v != "" {
		opts.State = model.RunState(strings.ToUpper(v))
	}
	opts.Clamp()

	runs, total, err := s.store.ListRuns(r.Context(), opts)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}
	if runs == nil {
		runs = []*model.Run{}
	}

	respondList(w, reqID, runs, &model.Pagination{
		Total:   total,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
		HasMore: opts.Offset+len(runs) < total,
	})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	run, err := s.store.GetRun(r.Context(), id)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}
	if run == nil {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("run", id))
		return
	}
	respondOK(w, reqID, run)
}
