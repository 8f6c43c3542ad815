package vote

import (
	"encoding/json"
	"math"
	"net/http"

	"Ballot/internal/api/handlers"
	"Ballot/internal/core/votes"
)

// CastInput is the body of social.ballot.vote.cast. Either Magnitude, or
// Direction with an optional Weight (default 1), must be given.
type CastInput struct {
	Magnitude *int64       `json:"magnitude,omitempty"`
	Weight    *int64       `json:"weight,omitempty"`
	Subject   SubjectInput `json:"subject"`
	Direction string       `json:"direction,omitempty"`
}

// CastOutput is the stored vote plus whether the call changed anything
type CastOutput struct {
	VoteView
	Changed bool `json:"changed"`
}

// HandleCast creates or changes the caller's vote on a subject
// POST /xrpc/social.ballot.vote.cast
//
// Request body: { "subject": {"type", "id"}, "direction": "up" | "down", "weight": n }
// or { "subject": {...}, "magnitude": n }
func (h *Handler) HandleCast(w http.ResponseWriter, r *http.Request) {
	var input CastInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", "Invalid request body")
		return
	}

	subject := input.Subject.ref()
	if err := subject.Validate(); err != nil {
		handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", "subject.type and subject.id are required")
		return
	}

	magnitude, ok := castMagnitude(w, input)
	if !ok {
		return
	}

	voter, ok := h.requireVoter(w, r)
	if !ok {
		return
	}

	result, err := voter.Cast(r.Context(), subject, magnitude)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	handlers.WriteJSON(w, http.StatusOK, CastOutput{
		VoteView: newVoteView(result.Vote),
		Changed:  result.Changed(),
	})
}

func castMagnitude(w http.ResponseWriter, input CastInput) (int64, bool) {
	if input.Magnitude != nil {
		if input.Direction != "" || input.Weight != nil {
			handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", "magnitude cannot be combined with direction or weight")
			return 0, false
		}
		return *input.Magnitude, true
	}

	weight := int64(1)
	if input.Weight != nil {
		weight = *input.Weight
		if weight == math.MinInt64 {
			handlers.WriteError(w, http.StatusBadRequest, "InvalidMagnitude", "weight is out of range")
			return 0, false
		}
		if weight < 0 {
			weight = -weight
		}
	}

	switch input.Direction {
	case votes.DirectionUp:
		return weight, true
	case votes.DirectionDown:
		return -weight, true
	case "":
		handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", "direction or magnitude is required")
	default:
		handlers.WriteError(w, http.StatusBadRequest, "InvalidRequest", "direction must be 'up' or 'down'")
	}
	return 0, false
}
