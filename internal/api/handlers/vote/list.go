package vote

import (
	"net/http"

	"Ballot/internal/api/handlers"
	"Ballot/internal/core/votes"
)

// HandleListVoters lists who voted on a subject, newest first
// GET /xrpc/social.ballot.vote.listVoters?subjectType=...&subjectId=...&direction=all|up|down
func (h *Handler) HandleListVoters(w http.ResponseWriter, r *http.Request) {
	subject := subjectFromQuery(r)
	if err := subject.Validate(); err != nil {
		handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", "subjectType and subjectId are required")
		return
	}

	sign, err := votes.ParseDirection(r.URL.Query().Get("direction"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	limit, offset, err := paginationFromQuery(r)
	if err != nil {
		handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", "limit and offset must be non-negative integers")
		return
	}

	voteable, err := h.engine.Voteable(subject)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	var voters []votes.Ref
	switch sign {
	case votes.Positive:
		voters, err = voteable.Upvoters(r.Context())
	case votes.Negative:
		voters, err = voteable.Downvoters(r.Context())
	default:
		voters, err = voteable.Voters(r.Context())
	}
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	handlers.WriteJSON(w, http.StatusOK, map[string]any{
		"subject":   subject,
		"direction": sign.String(),
		"voters":    page(voters, limit, offset),
		"total":     len(voters),
	})
}

// HandleListVoted lists the subjects of one type the caller voted on, newest first
// GET /xrpc/social.ballot.vote.listVoted?subjectType=...&direction=all|up|down
func (h *Handler) HandleListVoted(w http.ResponseWriter, r *http.Request) {
	subjectType := r.URL.Query().Get("subjectType")
	if subjectType == "" {
		handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", "subjectType is required")
		return
	}

	sign, err := votes.ParseDirection(r.URL.Query().Get("direction"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	limit, offset, err := paginationFromQuery(r)
	if err != nil {
		handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", "limit and offset must be non-negative integers")
		return
	}

	voter, ok := h.requireVoter(w, r)
	if !ok {
		return
	}

	var subjects []votes.Ref
	switch sign {
	case votes.Positive:
		subjects, err = voter.UpvotedSubjects(r.Context(), subjectType)
	case votes.Negative:
		subjects, err = voter.DownvotedSubjects(r.Context(), subjectType)
	default:
		subjects, err = voter.VotedSubjects(r.Context(), subjectType)
	}
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	handlers.WriteJSON(w, http.StatusOK, map[string]any{
		"subjectType": subjectType,
		"direction":   sign.String(),
		"subjects":    page(subjects, limit, offset),
		"total":       len(subjects),
	})
}
