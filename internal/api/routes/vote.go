package routes

import (
	"log/slog"

	"Ballot/internal/api/handlers/vote"
	"Ballot/internal/api/middleware"
	"Ballot/internal/core/votes"

	"github.com/go-chi/chi/v5"
)

// RegisterVoteRoutes registers the social.ballot.vote.* XRPC endpoints.
// Writes are rate limited per voter when limiter is non-nil.
func RegisterVoteRoutes(r chi.Router, engine *votes.Engine, authMiddleware *middleware.VoterAuthMiddleware, limiter *middleware.RateLimiter, logger *slog.Logger) {
	h := vote.NewHandler(engine, logger)

	write := r.With(authMiddleware.RequireAuth)
	if limiter != nil {
		write = write.With(limiter.Middleware)
	}

	// Procedure endpoints (POST) - require authentication
	write.Post("/xrpc/social.ballot.vote.cast", h.HandleCast)
	write.Post("/xrpc/social.ballot.vote.cancel", h.HandleCancel)

	// Query endpoints (GET)
	r.With(authMiddleware.RequireAuth).Get("/xrpc/social.ballot.vote.getViewerState", h.HandleGetViewerState)
	r.With(authMiddleware.RequireAuth).Get("/xrpc/social.ballot.vote.listVoted", h.HandleListVoted)
	r.Get("/xrpc/social.ballot.vote.getAggregates", h.HandleGetAggregates)
	r.Get("/xrpc/social.ballot.vote.listVoters", h.HandleListVoters)
}
