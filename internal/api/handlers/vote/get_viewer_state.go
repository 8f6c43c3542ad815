package vote

import (
	"net/http"

	"Ballot/internal/api/handlers"
	"Ballot/internal/core/votes"
)

// ViewerState describes the caller's relation to one subject
type ViewerState struct {
	Subject   votes.Ref `json:"subject"`
	Voted     bool      `json:"voted"`
	Upvoted   bool      `json:"upvoted"`
	Downvoted bool      `json:"downvoted"`
}

// HandleGetViewerState reports whether the caller voted on a subject
// GET /xrpc/social.ballot.vote.getViewerState?subjectType=...&subjectId=...
func (h *Handler) HandleGetViewerState(w http.ResponseWriter, r *http.Request) {
	subject := subjectFromQuery(r)
	if err := subject.Validate(); err != nil {
		handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", "subjectType and subjectId are required")
		return
	}

	voter, ok := h.requireVoter(w, r)
	if !ok {
		return
	}

	upvoted, err := voter.HasUpvoted(r.Context(), subject)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	downvoted, err := voter.HasDownvoted(r.Context(), subject)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	handlers.WriteJSON(w, http.StatusOK, ViewerState{
		Subject:   subject,
		Voted:     upvoted || downvoted,
		Upvoted:   upvoted,
		Downvoted: downvoted,
	})
}
