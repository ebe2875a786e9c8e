package server

import (
	"net/http"
	"runtime"
	"time"
)

type healthResponse struct {
	State     string `json:"state"`
	Message   string `json:"message"`
	Version   string `json:"version"`
	GitURL    string `json:"git_url"`
	GitCommit string `json:"git_commit_hash"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	respondOK(w, reqID, healthResponse{
		State:     "OK",
		Message:   "",
		Version:   Version,
		GitURL:    s.gitURL,
		GitCommit: s.gitCommit,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
	})
}
