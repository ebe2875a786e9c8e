// Package server exposes the assembly pipeline over a small REST API.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/me/mgasm/internal/pipeline"
	"github.com/me/mgasm/pkg/model"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Runner prepares and executes pipeline runs.
type Runner interface {
	Prepare(ctx context.Context, p model.PipelineParams) (*pipeline.RunContext, error)
	Execute(ctx context.Context, rc *pipeline.RunContext, p model.PipelineParams) (*pipeline.Outcome, error)
}

// RunStore reads run history.
type RunStore interface {
	GetRun(ctx context.Context, id string) (*model.Run, error)
	ListRuns(ctx context.Context, opts model.ListOptions) ([]*model.Run, int, error)
}

// Server is the mgasm REST API server.
type Server struct {
	router    chi.Router
	logger    *slog.Logger
	startTime time.Time
	runner    Runner
	store     RunStore
	baseCtx   context.Context
	gitURL    string
	gitCommit string
	runs      sync.WaitGroup
}

// Option configures optional Server settings.
type Option func(*Server)

// WithBaseContext sets the context background runs execute under. Runs are
// cancelled when it is.
func WithBaseContext(ctx context.Context) Option {
	return func(s *Server) {
		s.baseCtx = ctx
	}
}

// WithGitInfo sets the source location reported by the health endpoint.
func WithGitInfo(url, commit string) Option {
	return func(s *Server) {
		s.gitURL = url
		s.gitCommit = commit
	}
}

// New creates a new Server with all routes registered.
func New(runner Runner, st RunStore, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		logger:    logger.With("component", "server"),
		startTime: time.Now(),
		runner:    runner,
		store:     st,
		baseCtx:   context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Wait blocks until every background run has finished.
func (s *Server) Wait() {
	s.runs.Wait()
}

func (s *Server) routes() {
	r := s.router

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", s.handleDiscovery)
		r.Get("/health", s.handleHealth)

		r.Route("/runs", func(r chi.Router) {
			r.Get("/", s.handleListRuns)
			r.Post("/", s.handleCreateRun)
			r.Get("/{id}", s.handleGetRun)
		})
	})
}
