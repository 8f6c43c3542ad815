package votes

import (
	"fmt"
	"strings"
	"time"
)

// Ref is a polymorphic reference to an entity: a registered type tag plus the
// entity's identifier within that type
type Ref struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// NewRef builds a Ref, trimming surrounding whitespace
func NewRef(typ, id string) Ref {
	return Ref{Type: strings.TrimSpace(typ), ID: strings.TrimSpace(id)}
}

// Validate reports ErrInvalidRef when either half of the reference is empty
func (r Ref) Validate() error {
	if r.Type == "" || r.ID == "" {
		return fmt.Errorf("%w: %q", ErrInvalidRef, r.String())
	}
	return nil
}

// IsZero reports whether the reference is unset
func (r Ref) IsZero() bool {
	return r.Type == "" && r.ID == ""
}

func (r Ref) String() string {
	return r.Type + ":" + r.ID
}

// Entity is implemented by host model types that can take part in voting
type Entity interface {
	VoteRef() Ref
}

// VoteRef lets a bare Ref be passed wherever an Entity is accepted
func (r Ref) VoteRef() Ref {
	return r
}

// Vote is one stored vote of a voter on a subject.
// Magnitude is never zero: positive is an upvote, negative a downvote, and
// the absolute value is the weight.
type Vote struct {
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
	ID          string    `json:"id" db:"id"`
	VoterType   string    `json:"voterType" db:"voter_type"`
	VoterID     string    `json:"voterId" db:"voter_id"`
	SubjectType string    `json:"subjectType" db:"subject_type"`
	SubjectID   string    `json:"subjectId" db:"subject_id"`
	Magnitude   int64     `json:"magnitude" db:"magnitude"`
}

// Voter returns the reference to the entity that cast the vote
func (v *Vote) Voter() Ref {
	return Ref{Type: v.VoterType, ID: v.VoterID}
}

// Subject returns the reference to the entity that was voted on
func (v *Vote) Subject() Ref {
	return Ref{Type: v.SubjectType, ID: v.SubjectID}
}

// IsUpvote reports whether the vote counts in favour of its subject
func (v *Vote) IsUpvote() bool {
	return v.Magnitude > 0
}

// IsDownvote is the complement of IsUpvote
func (v *Vote) IsDownvote() bool {
	return !v.IsUpvote()
}

// IsVotedBy reports whether voter cast this vote
func (v *Vote) IsVotedBy(voter Entity) bool {
	return voter != nil && voter.VoteRef() == v.Voter()
}

// IsVotedTo reports whether this vote targets subject
func (v *Vote) IsVotedTo(subject Entity) bool {
	return subject != nil && subject.VoteRef() == v.Subject()
}

// Direction is "up" or "down"
func (v *Vote) Direction() string {
	if v.IsUpvote() {
		return DirectionUp
	}
	return DirectionDown
}

// Weight is the absolute magnitude
func (v *Vote) Weight() int64 {
	if v.Magnitude < 0 {
		return -v.Magnitude
	}
	return v.Magnitude
}

const (
	DirectionUp   = "up"
	DirectionDown = "down"
)

// Sign restricts a query to upvotes, downvotes, or both
type Sign int

const (
	AnySign Sign = iota
	Positive
	Negative
)

// ParseDirection maps "up"/"down"/"" (or "all") onto a Sign
func ParseDirection(direction string) (Sign, error) {
	switch strings.ToLower(strings.TrimSpace(direction)) {
	case "", "all", "any":
		return AnySign, nil
	case DirectionUp:
		return Positive, nil
	case DirectionDown:
		return Negative, nil
	default:
		return AnySign, ErrInvalidDirection
	}
}

// Matches reports whether a magnitude falls in the sign partition
func (s Sign) Matches(magnitude int64) bool {
	switch s {
	case Positive:
		return magnitude > 0
	case Negative:
		return magnitude < 0
	default:
		return true
	}
}

func (s Sign) String() string {
	switch s {
	case Positive:
		return DirectionUp
	case Negative:
		return DirectionDown
	default:
		return "all"
	}
}
