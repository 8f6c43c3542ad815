package vote

import (
	"encoding/json"
	"net/http"

	"Ballot/internal/api/handlers"
)

// CancelInput is the body of social.ballot.vote.cancel
type CancelInput struct {
	Subject SubjectInput `json:"subject"`
}

// HandleCancel deletes the caller's vote on a subject.
// Canceling a vote that does not exist is not an error; the response says
// whether anything was deleted.
// POST /xrpc/social.ballot.vote.cancel
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	var input CancelInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", "Invalid request body")
		return
	}

	subject := input.Subject.ref()
	if err := subject.Validate(); err != nil {
		handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", "subject.type and subject.id are required")
		return
	}

	voter, ok := h.requireVoter(w, r)
	if !ok {
		return
	}

	canceled, err := voter.CancelVote(r.Context(), subject)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	handlers.WriteJSON(w, http.StatusOK, map[string]bool{"canceled": canceled})
}
