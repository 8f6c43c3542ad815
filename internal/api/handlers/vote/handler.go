package vote

import (
	"log/slog"
	"net/http"
	"strconv"

	"Ballot/internal/api/handlers"
	"Ballot/internal/api/middleware"
	"Ballot/internal/core/votes"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

// Handler serves the social.ballot.vote.* XRPC endpoints
type Handler struct {
	engine *votes.Engine
	logger *slog.Logger
}

// NewHandler creates a new vote handler
func NewHandler(engine *votes.Engine, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{engine: engine, logger: logger}
}

// SubjectInput is the JSON form of a subject reference
type SubjectInput struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

func (s SubjectInput) ref() votes.Ref {
	return votes.NewRef(s.Type, s.ID)
}

// VoteView is the JSON form of a stored vote
type VoteView struct {
	CreatedAt string    `json:"createdAt"`
	UpdatedAt string    `json:"updatedAt"`
	ID        string    `json:"id"`
	Direction string    `json:"direction"`
	Voter     votes.Ref `json:"voter"`
	Subject   votes.Ref `json:"subject"`
	Magnitude int64     `json:"magnitude"`
	Weight    int64     `json:"weight"`
}

func newVoteView(v *votes.Vote) VoteView {
	return VoteView{
		ID:        v.ID,
		Voter:     v.Voter(),
		Subject:   v.Subject(),
		Magnitude: v.Magnitude,
		Direction: v.Direction(),
		Weight:    v.Weight(),
		CreatedAt: v.CreatedAt.UTC().Format(timeFormat),
		UpdatedAt: v.UpdatedAt.UTC().Format(timeFormat),
	}
}

const timeFormat = "2006-01-02T15:04:05.000000Z07:00"

// requireVoter returns the authenticated voter's capability, writing the
// error response itself when there is none
func (h *Handler) requireVoter(w http.ResponseWriter, r *http.Request) (*votes.Voter, bool) {
	ref, ok := middleware.GetVoter(r)
	if !ok {
		handlers.WriteError(w, http.StatusUnauthorized, "AuthRequired", "Authentication required")
		return nil, false
	}

	voter, err := h.engine.Voter(ref)
	if err != nil {
		h.logger.Warn("authenticated entity cannot vote", "voter", ref.String(), "error", err)
		handlers.WriteError(w, http.StatusForbidden, "NotAuthorized", "This account type cannot vote")
		return nil, false
	}
	return voter, true
}

func subjectFromQuery(r *http.Request) votes.Ref {
	q := r.URL.Query()
	return votes.NewRef(q.Get("subjectType"), q.Get("subjectId"))
}

func paginationFromQuery(r *http.Request) (limit, offset int, err error) {
	q := r.URL.Query()
	limit = defaultListLimit
	if raw := q.Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return 0, 0, strconv.ErrSyntax
		}
		if limit > maxListLimit {
			limit = maxListLimit
		}
	}
	if raw := q.Get("offset"); raw != "" {
		offset, err = strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return 0, 0, strconv.ErrSyntax
		}
	}
	return limit, offset, nil
}

func page(refs []votes.Ref, limit, offset int) []votes.Ref {
	if offset >= len(refs) {
		return []votes.Ref{}
	}
	end := offset + limit
	if end > len(refs) {
		end = len(refs)
	}
	return refs[offset:end]
}
