package vote

import (
	"errors"
	"log/slog"
	"net/http"

	"Ballot/internal/api/handlers"
	"Ballot/internal/core/votes"
)

// handleServiceError converts engine errors to XRPC error responses.
// Error names are UpperCamelCase.
func handleServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, votes.ErrInvalidMagnitude):
		handlers.WriteError(w, http.StatusBadRequest, "InvalidMagnitude", "Vote magnitude must be non-zero")
	case errors.Is(err, votes.ErrInvalidDirection):
		handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", "Vote direction must be 'up' or 'down'")
	case errors.Is(err, votes.ErrUnknownType), errors.Is(err, votes.ErrInvalidRef):
		handlers.WriteError(w, http.StatusBadRequest, "InvalidSubject", "The subject reference is invalid or of an unknown type")
	case errors.Is(err, votes.ErrVoteNotFound):
		handlers.WriteError(w, http.StatusNotFound, "VoteNotFound", "No vote found for this subject")
	case errors.Is(err, votes.ErrVoteAlreadyExists):
		handlers.WriteError(w, http.StatusConflict, "AlreadyExists", "Vote already exists")
	default:
		logger.Error("vote handler error", "error", err)
		handlers.WriteError(w, http.StatusInternalServerError, "InternalServerError", "An internal error occurred")
	}
}
