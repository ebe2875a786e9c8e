package server

import "net/http"

type endpointInfo struct {
	Path        string   `json:"path"`
	Methods     []string `json:"methods"`
	Description string   `json:"description"`
}

type discoveryResponse struct {
	Name        string         `json:"name"`
	Version     string         `json:"version"`
	Description string         `json:"description"`
	Endpoints   []endpointInfo `json:"endpoints"`
}

func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	respondOK(w, reqID, discoveryResponse{
		Name:        "mgasm API",
		Version:     "v1",
		Description: "JGI metagenome assembly pipeline",
		Endpoints: []endpointInfo{
			{"/api/v1/runs", []string{"GET", "POST"}, "Run history and pipeline submission. POST accepts ?wait=true to run synchronously"},
			{"/api/v1/runs/{id}", []string{"GET"}, "Single run with its executed steps"},
			{"/api/v1/health", []string{"GET"}, "Service status and version"},
		},
	})
}
