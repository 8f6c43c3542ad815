package votes

import "context"

// ListQuery narrows a listing of vote records
type ListQuery struct {
	// SubjectType restricts voter listings to one subject type
	SubjectType string
	// VoterType restricts subject listings to one voter type
	VoterType string
	Sign      Sign
	// Limit of zero means no limit
	Limit  int
	Offset int
}

// Repository is the CRUD surface of the vote table
type Repository interface {
	// GetByVoterAndSubject retrieves the vote for a pair.
	// forUpdate takes a row lock where the backend supports it; it is only
	// meaningful inside Store.WithTx.
	// Returns ErrVoteNotFound when the pair has no vote.
	GetByVoterAndSubject(ctx context.Context, voter, subject Ref, forUpdate bool) (*Vote, error)

	// Create inserts a vote and fills in its ID and timestamps.
	// Returns ErrVoteAlreadyExists when the pair already has a vote.
	Create(ctx context.Context, vote *Vote) error

	// UpdateMagnitude stores vote.Magnitude for the vote's pair and refreshes
	// vote.UpdatedAt. CreatedAt is left untouched.
	UpdateMagnitude(ctx context.Context, vote *Vote) error

	// Delete physically removes the vote for a pair.
	// Returns ErrVoteNotFound when there was nothing to delete.
	Delete(ctx context.Context, voter, subject Ref) error

	// ListByVoter lists votes cast by voter, newest first
	ListByVoter(ctx context.Context, voter Ref, q ListQuery) ([]*Vote, error)

	// ListBySubject lists votes cast on subject, newest first
	ListBySubject(ctx context.Context, subject Ref, q ListQuery) ([]*Vote, error)

	// Exists reports whether voter has a vote on subject matching sign
	Exists(ctx context.Context, voter, subject Ref, sign Sign) (bool, error)

	// Count returns the number of votes on subject matching sign
	Count(ctx context.Context, subject Ref, sign Sign) (int64, error)

	// Sum returns the sum of magnitudes of votes on subject matching sign
	Sum(ctx context.Context, subject Ref, sign Sign) (int64, error)

	// CountBySubjects is Count for many subjects of one type at once.
	// Subjects without votes are absent from the result.
	CountBySubjects(ctx context.Context, subjectType string, subjectIDs []string, sign Sign) (map[string]int64, error)

	// SumBySubjects is Sum for many subjects of one type at once.
	// Subjects without votes are absent from the result.
	SumBySubjects(ctx context.Context, subjectType string, subjectIDs []string, sign Sign) (map[string]int64, error)

	// VotedSubjectIDs returns which of subjectIDs have a vote from voter matching sign
	VotedSubjectIDs(ctx context.Context, voter Ref, subjectType string, subjectIDs []string, sign Sign) (map[string]bool, error)
}

// Store is a Repository that can run a unit of work in a transaction
type Store interface {
	Repository

	// WithTx runs fn inside a transaction. The Repository handed to fn is
	// bound to that transaction; fn's error rolls it back.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Repository) error) error
}

// VoterCapability is exposed by entities that cast votes
type VoterCapability interface {
	Vote(ctx context.Context, subject Entity, magnitude int64) (*Vote, error)
	Upvote(ctx context.Context, subject Entity) (*Vote, error)
	UpvoteWeighted(ctx context.Context, subject Entity, weight int64) (*Vote, error)
	Downvote(ctx context.Context, subject Entity) (*Vote, error)
	DownvoteWeighted(ctx context.Context, subject Entity, weight int64) (*Vote, error)
	CancelVote(ctx context.Context, subject Entity) (bool, error)

	HasVoted(ctx context.Context, subject Entity) (bool, error)
	HasUpvoted(ctx context.Context, subject Entity) (bool, error)
	HasDownvoted(ctx context.Context, subject Entity) (bool, error)
	HasNotVoted(ctx context.Context, subject Entity) (bool, error)
	HasNotUpvoted(ctx context.Context, subject Entity) (bool, error)
	HasNotDownvoted(ctx context.Context, subject Entity) (bool, error)

	VotedSubjects(ctx context.Context, subjectType string) ([]Ref, error)
	UpvotedSubjects(ctx context.Context, subjectType string) ([]Ref, error)
	DownvotedSubjects(ctx context.Context, subjectType string) ([]Ref, error)
}

// VoteableCapability is exposed by entities that can be voted on
type VoteableCapability interface {
	Voters(ctx context.Context) ([]Ref, error)
	Upvoters(ctx context.Context) ([]Ref, error)
	Downvoters(ctx context.Context) ([]Ref, error)

	VotersCount(ctx context.Context) (int64, error)
	UpvotersCount(ctx context.Context) (int64, error)
	DownvotersCount(ctx context.Context) (int64, error)
	SumVotes(ctx context.Context) (int64, error)
	SumUpvotes(ctx context.Context) (int64, error)
	SumDownvotes(ctx context.Context) (int64, error)

	IsVotedBy(ctx context.Context, voter Entity) (bool, error)
	IsUpvotedBy(ctx context.Context, voter Entity) (bool, error)
	IsDownvotedBy(ctx context.Context, voter Entity) (bool, error)
	IsNotVotedBy(ctx context.Context, voter Entity) (bool, error)
	IsNotUpvotedBy(ctx context.Context, voter Entity) (bool, error)
	IsNotDownvotedBy(ctx context.Context, voter Entity) (bool, error)
}

var (
	_ VoterCapability    = (*Voter)(nil)
	_ VoteableCapability = (*Voteable)(nil)
)
