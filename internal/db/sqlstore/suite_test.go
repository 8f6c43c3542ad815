package sqlstore

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Ballot/internal/core/votes"
)

var (
	alice   = votes.Ref{Type: "users", ID: "1"}
	bob     = votes.Ref{Type: "users", ID: "2"}
	carol   = votes.Ref{Type: "users", ID: "3"}
	general = votes.Ref{Type: "channels", ID: "10"}
	random  = votes.Ref{Type: "channels", ID: "11"}
	quiet   = votes.Ref{Type: "channels", ID: "12"}
)

func castVote(t *testing.T, repo votes.Repository, voter, subject votes.Ref, magnitude int64) *votes.Vote {
	t.Helper()
	vote := &votes.Vote{
		VoterType:   voter.Type,
		VoterID:     voter.ID,
		SubjectType: subject.Type,
		SubjectID:   subject.ID,
		Magnitude:   magnitude,
	}
	require.NoError(t, repo.Create(context.Background(), vote))
	return vote
}

// runRepositorySuite exercises a freshly migrated, empty store
func runRepositorySuite(t *testing.T, store *Store) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		vote := castVote(t, store, alice, general, 3)
		assert.NotEmpty(t, vote.ID, "ID should be set after creation")
		assert.False(t, vote.CreatedAt.IsZero(), "CreatedAt should be set after creation")
		assert.Equal(t, vote.CreatedAt, vote.UpdatedAt)
		if store.cfg.IDStrategy == IDUUID {
			_, err := uuid.Parse(vote.ID)
			assert.NoError(t, err, "uuid strategy should produce UUID ids")
		}

		got, err := store.GetByVoterAndSubject(ctx, alice, general, false)
		require.NoError(t, err)
		assert.Equal(t, vote.ID, got.ID)
		assert.Equal(t, int64(3), got.Magnitude)
		assert.Equal(t, alice, got.Voter())
		assert.Equal(t, general, got.Subject())
		assert.WithinDuration(t, vote.CreatedAt, got.CreatedAt, time.Millisecond)
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := store.GetByVoterAndSubject(ctx, carol, quiet, false)
		assert.ErrorIs(t, err, votes.ErrVoteNotFound)
	})

	t.Run("duplicate pair is rejected", func(t *testing.T) {
		dup := &votes.Vote{
			VoterType: alice.Type, VoterID: alice.ID,
			SubjectType: general.Type, SubjectID: general.ID,
			Magnitude: -1,
		}
		err := store.Create(ctx, dup)
		assert.ErrorIs(t, err, votes.ErrVoteAlreadyExists)
	})

	t.Run("zero magnitude is rejected", func(t *testing.T) {
		err := store.Create(ctx, &votes.Vote{
			VoterType: carol.Type, VoterID: carol.ID,
			SubjectType: quiet.Type, SubjectID: quiet.ID,
		})
		assert.ErrorIs(t, err, votes.ErrInvalidMagnitude)
	})

	t.Run("update keeps created_at", func(t *testing.T) {
		before, err := store.GetByVoterAndSubject(ctx, alice, general, false)
		require.NoError(t, err)

		time.Sleep(2 * time.Millisecond)
		before.Magnitude = -2
		require.NoError(t, store.UpdateMagnitude(ctx, before))

		after, err := store.GetByVoterAndSubject(ctx, alice, general, false)
		require.NoError(t, err)
		assert.Equal(t, int64(-2), after.Magnitude)
		assert.Equal(t, before.ID, after.ID)
		assert.WithinDuration(t, before.CreatedAt, after.CreatedAt, time.Millisecond)
		assert.True(t, after.UpdatedAt.After(after.CreatedAt), "UpdatedAt should move forward")

		before.Magnitude = 3
		require.NoError(t, store.UpdateMagnitude(ctx, before))
	})

	t.Run("update missing", func(t *testing.T) {
		err := store.UpdateMagnitude(ctx, &votes.Vote{
			VoterType: carol.Type, VoterID: carol.ID,
			SubjectType: quiet.Type, SubjectID: quiet.ID,
			Magnitude: 1,
		})
		assert.ErrorIs(t, err, votes.ErrVoteNotFound)
	})

	t.Run("aggregates", func(t *testing.T) {
		castVote(t, store, bob, general, -2)
		castVote(t, store, carol, general, 1)
		castVote(t, store, alice, random, 5)

		count, err := store.Count(ctx, general, votes.AnySign)
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)

		up, err := store.Count(ctx, general, votes.Positive)
		require.NoError(t, err)
		assert.Equal(t, int64(2), up)

		down, err := store.Count(ctx, general, votes.Negative)
		require.NoError(t, err)
		assert.Equal(t, int64(1), down)

		sum, err := store.Sum(ctx, general, votes.AnySign)
		require.NoError(t, err)
		assert.Equal(t, int64(2), sum)

		sumUp, err := store.Sum(ctx, general, votes.Positive)
		require.NoError(t, err)
		assert.Equal(t, int64(4), sumUp)

		sumDown, err := store.Sum(ctx, general, votes.Negative)
		require.NoError(t, err)
		assert.Equal(t, int64(-2), sumDown)

		empty, err := store.Sum(ctx, quiet, votes.AnySign)
		require.NoError(t, err)
		assert.Zero(t, empty, "no votes should sum to zero")

		none, err := store.Count(ctx, quiet, votes.AnySign)
		require.NoError(t, err)
		assert.Zero(t, none)
	})

	t.Run("grouped aggregates", func(t *testing.T) {
		ids := []string{general.ID, random.ID, quiet.ID}

		counts, err := store.CountBySubjects(ctx, "channels", ids, votes.AnySign)
		require.NoError(t, err)
		assert.Equal(t, map[string]int64{general.ID: 3, random.ID: 1}, counts)

		sums, err := store.SumBySubjects(ctx, "channels", ids, votes.Negative)
		require.NoError(t, err)
		assert.Equal(t, map[string]int64{general.ID: -2}, sums)

		none, err := store.CountBySubjects(ctx, "channels", nil, votes.AnySign)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("exists", func(t *testing.T) {
		ok, err := store.Exists(ctx, bob, general, votes.AnySign)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.Exists(ctx, bob, general, votes.Positive)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = store.Exists(ctx, bob, random, votes.AnySign)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("listings", func(t *testing.T) {
		byAlice, err := store.ListByVoter(ctx, alice, votes.ListQuery{})
		require.NoError(t, err)
		require.Len(t, byAlice, 2)
		assert.Equal(t, random, byAlice[0].Subject(), "newest vote should come first")

		onGeneral, err := store.ListBySubject(ctx, general, votes.ListQuery{Sign: votes.Positive})
		require.NoError(t, err)
		var voters []string
		for _, v := range onGeneral {
			voters = append(voters, v.VoterID)
		}
		sort.Strings(voters)
		assert.Equal(t, []string{alice.ID, carol.ID}, voters)

		page, err := store.ListBySubject(ctx, general, votes.ListQuery{Limit: 1, Offset: 1})
		require.NoError(t, err)
		assert.Len(t, page, 1)

		filtered, err := store.ListByVoter(ctx, alice, votes.ListQuery{SubjectType: "posts"})
		require.NoError(t, err)
		assert.Empty(t, filtered)
	})

	t.Run("voted subject ids", func(t *testing.T) {
		voted, err := store.VotedSubjectIDs(ctx, alice, "channels",
			[]string{general.ID, random.ID, quiet.ID}, votes.AnySign)
		require.NoError(t, err)
		assert.Equal(t, map[string]bool{general.ID: true, random.ID: true}, voted)

		downvoted, err := store.VotedSubjectIDs(ctx, bob, "channels",
			[]string{general.ID, random.ID}, votes.Negative)
		require.NoError(t, err)
		assert.Equal(t, map[string]bool{general.ID: true}, downvoted)
	})

	t.Run("transaction rollback", func(t *testing.T) {
		boom := errors.New("boom")
		err := store.WithTx(ctx, func(ctx context.Context, tx votes.Repository) error {
			castVote(t, tx, carol, random, 1)
			return boom
		})
		assert.ErrorIs(t, err, boom)

		_, err = store.GetByVoterAndSubject(ctx, carol, random, false)
		assert.ErrorIs(t, err, votes.ErrVoteNotFound, "rolled back insert should not be visible")
	})

	t.Run("transaction locks and updates", func(t *testing.T) {
		err := store.WithTx(ctx, func(ctx context.Context, tx votes.Repository) error {
			vote, err := tx.GetByVoterAndSubject(ctx, bob, general, true)
			if err != nil {
				return err
			}
			vote.Magnitude = 4
			return tx.UpdateMagnitude(ctx, vote)
		})
		require.NoError(t, err)

		vote, err := store.GetByVoterAndSubject(ctx, bob, general, false)
		require.NoError(t, err)
		assert.Equal(t, int64(4), vote.Magnitude)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, carol, general))

		_, err := store.GetByVoterAndSubject(ctx, carol, general, false)
		assert.ErrorIs(t, err, votes.ErrVoteNotFound)

		err = store.Delete(ctx, carol, general)
		assert.ErrorIs(t, err, votes.ErrVoteNotFound, "second delete should report nothing deleted")
	})
}

// runScopeSuite checks ScopeClause against a host table of channels
func runScopeSuite(t *testing.T, store *Store) {
	ctx := context.Background()
	db := store.DB()

	_, err := db.ExecContext(ctx, `CREATE TABLE scope_channels (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`)
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = db.ExecContext(context.Background(), `DROP TABLE scope_channels`) })

	for _, c := range []struct {
		id   int
		name string
	}{{10, "general"}, {11, "random"}, {12, "quiet"}, {13, "news"}} {
		_, err := db.ExecContext(ctx, store.Rebind(`INSERT INTO scope_channels (id, name) VALUES (?, ?)`), c.id, c.name)
		require.NoError(t, err)
	}

	selectIDs := func(scope votes.Scope) []string {
		clause, args := store.ScopeClause(scope, "c.id", "channels")
		rows, err := db.QueryContext(ctx,
			store.Rebind(`SELECT CAST(c.id AS TEXT) FROM scope_channels c WHERE `+clause+` ORDER BY c.id`),
			args...)
		require.NoError(t, err)
		defer func() { _ = rows.Close() }()

		ids := []string{}
		for rows.Next() {
			var id string
			require.NoError(t, rows.Scan(&id))
			ids = append(ids, id)
		}
		require.NoError(t, rows.Err())
		return ids
	}

	// alice voted on 10 (+3) and 11 (+5)
	assert.Equal(t, []string{"10", "11"}, selectIDs(votes.WhereVotedBy(alice)))
	assert.Equal(t, []string{"12", "13"}, selectIDs(votes.WhereNotVotedBy(alice)))
	assert.Equal(t, []string{"10", "11"}, selectIDs(votes.WhereUpvotedBy(alice)))
	assert.Empty(t, selectIDs(votes.WhereDownvotedBy(alice)))
	assert.Equal(t, []string{"10", "11", "12", "13"}, selectIDs(votes.WhereNotDownvotedBy(alice)))
}
