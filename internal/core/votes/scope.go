package votes

// Scope is a predicate over subjects: "has at least one vote from Voter
// matching Sign", or, when Negated, "has no such vote"
type Scope struct {
	Voter   Ref
	Sign    Sign
	Negated bool
}

func newScope(voter Entity, sign Sign, negated bool) Scope {
	var ref Ref
	if voter != nil {
		ref = voter.VoteRef()
	}
	return Scope{Voter: ref, Sign: sign, Negated: negated}
}

// WhereVotedBy keeps subjects voter has voted on
func WhereVotedBy(voter Entity) Scope { return newScope(voter, AnySign, false) }

// WhereNotVotedBy keeps subjects voter has not voted on
func WhereNotVotedBy(voter Entity) Scope { return newScope(voter, AnySign, true) }

// WhereUpvotedBy keeps subjects voter has upvoted
func WhereUpvotedBy(voter Entity) Scope { return newScope(voter, Positive, false) }

// WhereNotUpvotedBy keeps subjects voter has not upvoted
func WhereNotUpvotedBy(voter Entity) Scope { return newScope(voter, Positive, true) }

// WhereDownvotedBy keeps subjects voter has downvoted
func WhereDownvotedBy(voter Entity) Scope { return newScope(voter, Negative, false) }

// WhereNotDownvotedBy keeps subjects voter has not downvoted
func WhereNotDownvotedBy(voter Entity) Scope { return newScope(voter, Negative, true) }

// Not returns the complementary scope
func (s Scope) Not() Scope {
	s.Negated = !s.Negated
	return s
}

// MatchesVotes evaluates the scope against the full vote set of one subject
func (s Scope) MatchesVotes(votes []*Vote) bool {
	found := false
	for _, v := range votes {
		if v.Voter() == s.Voter && s.Sign.Matches(v.Magnitude) {
			found = true
			break
		}
	}
	return found != s.Negated
}
