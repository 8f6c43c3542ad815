package sqlstore

import (
	"Ballot/internal/core/votes"
)

// ScopeClause renders scope as a boolean SQL expression a host can splice
// into its own query over subjects of subjectType. subjectIDExpr is the SQL
// expression for the subject's identifier, e.g. "c.id".
//
// The clause uses ? placeholders; pass the full host query through Rebind.
//
//	clause, args := store.ScopeClause(votes.WhereNotVotedBy(user), "c.id", "channels")
//	rows, err := db.QueryContext(ctx, store.Rebind("SELECT c.id FROM channels c WHERE "+clause), args...)
func (s *Store) ScopeClause(scope votes.Scope, subjectIDExpr, subjectType string) (string, []any) {
	op := "EXISTS"
	if scope.Negated {
		op = "NOT EXISTS"
	}

	clause := op + ` (SELECT 1 FROM ` + s.cfg.Table + ` scope_votes
		WHERE scope_votes.subject_type = ?
		AND scope_votes.subject_id = CAST(` + subjectIDExpr + ` AS TEXT)
		AND scope_votes.voter_type = ?
		AND scope_votes.voter_id = ?`
	switch scope.Sign {
	case votes.Positive:
		clause += ` AND scope_votes.magnitude > 0`
	case votes.Negative:
		clause += ` AND scope_votes.magnitude < 0`
	}
	clause += `)`

	return clause, []any{subjectType, scope.Voter.Type, scope.Voter.ID}
}
