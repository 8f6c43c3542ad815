package vote

import (
	"net/http"

	"Ballot/internal/api/handlers"
	"Ballot/internal/core/votes"
)

// AggregatesView carries the six aggregates of a subject
type AggregatesView struct {
	Subject         votes.Ref `json:"subject"`
	VotersCount     int64     `json:"votersCount"`
	UpvotersCount   int64     `json:"upvotersCount"`
	DownvotersCount int64     `json:"downvotersCount"`
	SumVotes        int64     `json:"sumVotes"`
	SumUpvotes      int64     `json:"sumUpvotes"`
	SumDownvotes    int64     `json:"sumDownvotes"`
}

// HandleGetAggregates returns a subject's vote counts and sums
// GET /xrpc/social.ballot.vote.getAggregates?subjectType=...&subjectId=...
func (h *Handler) HandleGetAggregates(w http.ResponseWriter, r *http.Request) {
	subject := subjectFromQuery(r)
	if err := subject.Validate(); err != nil {
		handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", "subjectType and subjectId are required")
		return
	}

	voteable, err := h.engine.Voteable(subject)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	aggregates, err := voteable.Aggregates(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	handlers.WriteJSON(w, http.StatusOK, AggregatesView{
		Subject:         subject,
		VotersCount:     aggregates[votes.VotersCount],
		UpvotersCount:   aggregates[votes.UpvotersCount],
		DownvotersCount: aggregates[votes.DownvotersCount],
		SumVotes:        aggregates[votes.SumVotes],
		SumUpvotes:      aggregates[votes.SumUpvotes],
		SumDownvotes:    aggregates[votes.SumDownvotes],
	})
}
