package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/threads-api/internal/config"
	"github.com/JakeFAU/threads-api/internal/metrics"
	"github.com/JakeFAU/threads-api/internal/threads"
)

// Fetcher is the data source the handlers relay. Results are passed through
// to callers untouched.
type Fetcher interface {
	UserProfile(ctx context.Context, q threads.ProfileQuery) (json.RawMessage, error)
	ThreadReplies(ctx context.Context, threadID string) (json.RawMessage, error)
	UserProfileThreads(ctx context.Context, userID string) (json.RawMessage, error)
}

// Server wires HTTP handlers to the fetcher.
type Server struct {
	router  chi.Router
	fetcher Fetcher
	logger  *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(fetcher Fetcher, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()

	s := &Server{
		fetcher: fetcher,
		logger:  logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(metrics.Middleware)
	r.Use(s.recoverMiddleware)

	// Unknown methods on known paths are reported as missing routes too.
	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)

	r.Get("/healthz", s.healthz)
	if cfg.Metrics.Enabled {
		r.Method(http.MethodGet, cfg.Metrics.Path, metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/users", s.getUserProfileByName)
		r.Get("/users/{userId}", s.getUserProfileByID)
		r.Get("/users/{userId}/threads", s.getUserProfileThreads)
		r.Get("/threads/{threadId}/replies", s.getThreadReplies)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
