package routes

import (
	"log/slog"
	"net/http"

	"Ballot/internal/api/middleware"
	"Ballot/internal/core/votes"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// RouterOptions carries the dependencies of NewRouter. Metrics and Limiter
// are optional.
type RouterOptions struct {
	Engine  *votes.Engine
	Auth    *middleware.VoterAuthMiddleware
	Limiter *middleware.RateLimiter
	Metrics http.Handler
	Health  func(r *http.Request) error
	Logger  *slog.Logger
}

// NewRouter assembles the AppView HTTP surface
func NewRouter(opts RouterOptions) chi.Router {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)

	RegisterVoteRoutes(r, opts.Engine, opts.Auth, opts.Limiter, opts.Logger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if opts.Health != nil {
			if err := opts.Health(r); err != nil {
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics)
	}

	return r
}
