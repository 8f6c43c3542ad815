package votes

import (
	"context"
	"fmt"
	"log/slog"
)

// Voteable is the capability of one subject entity to report on the votes it
// received. Aggregates are memoized in its AggregateCache for the lifetime of
// the instance; call LoadAggregate or InvalidateAggregates to see new votes.
// Not safe for concurrent use.
type Voteable struct {
	ref      Ref
	store    Store
	registry *TypeRegistry
	logger   *slog.Logger
	cache    *AggregateCache
	votes    Loaded[[]*Vote]
}

// Ref returns the subject's reference
func (v *Voteable) Ref() Ref {
	return v.ref
}

// Cache exposes the subject's aggregate cache
func (v *Voteable) Cache() *AggregateCache {
	return v.cache
}

func (v *Voteable) computeAggregate(ctx context.Context, kind Aggregate) (int64, error) {
	if kind.IsSum() {
		return v.store.Sum(ctx, v.ref, kind.Sign())
	}
	return v.store.Count(ctx, v.ref, kind.Sign())
}

// VotersCount is the number of votes on the subject
func (v *Voteable) VotersCount(ctx context.Context) (int64, error) {
	return v.cache.GetOrLoad(ctx, VotersCount)
}

// UpvotersCount is the number of positive votes on the subject
func (v *Voteable) UpvotersCount(ctx context.Context) (int64, error) {
	return v.cache.GetOrLoad(ctx, UpvotersCount)
}

// DownvotersCount is the number of negative votes on the subject
func (v *Voteable) DownvotersCount(ctx context.Context) (int64, error) {
	return v.cache.GetOrLoad(ctx, DownvotersCount)
}

// SumVotes is the net score: the sum of all magnitudes
func (v *Voteable) SumVotes(ctx context.Context) (int64, error) {
	return v.cache.GetOrLoad(ctx, SumVotes)
}

// SumUpvotes is the sum of positive magnitudes
func (v *Voteable) SumUpvotes(ctx context.Context) (int64, error) {
	return v.cache.GetOrLoad(ctx, SumUpvotes)
}

// SumDownvotes is the sum of negative magnitudes, so never positive
func (v *Voteable) SumDownvotes(ctx context.Context) (int64, error) {
	return v.cache.GetOrLoad(ctx, SumDownvotes)
}

// LoadAggregate recomputes kind from the store, replacing any cached value
func (v *Voteable) LoadAggregate(ctx context.Context, kind Aggregate) (int64, error) {
	return v.cache.Load(ctx, kind)
}

// LoadAggregates recomputes the given kinds, or all of them when none are given
func (v *Voteable) LoadAggregates(ctx context.Context, kinds ...Aggregate) error {
	if len(kinds) == 0 {
		kinds = AllAggregates()
	}
	for _, kind := range kinds {
		if _, err := v.cache.Load(ctx, kind); err != nil {
			return err
		}
	}
	return nil
}

// InvalidateAggregates drops the given cached kinds, or all when none are given
func (v *Voteable) InvalidateAggregates(kinds ...Aggregate) {
	v.cache.Invalidate(kinds...)
}

// LoadVoters eagerly loads every vote on the subject. Until ForgetVoters is
// called, voter listings and IsVotedBy checks are answered from memory.
func (v *Voteable) LoadVoters(ctx context.Context) error {
	votes, err := v.store.ListBySubject(ctx, v.ref, ListQuery{})
	if err != nil {
		return fmt.Errorf("failed to load voters of %s: %w", v.ref, err)
	}
	v.votes.Set(votes)
	return nil
}

// ForgetVoters drops the votes loaded by LoadVoters
func (v *Voteable) ForgetVoters() {
	v.votes.Reset()
}

// VotersLoaded reports whether the subject's votes are held in memory
func (v *Voteable) VotersLoaded() bool {
	_, ok := v.votes.Get()
	return ok
}

// Votes returns every vote on the subject, newest first
func (v *Voteable) Votes(ctx context.Context) ([]*Vote, error) {
	return v.votes.GetOrLoad(ctx, func(ctx context.Context) ([]*Vote, error) {
		return v.store.ListBySubject(ctx, v.ref, ListQuery{})
	})
}

func (v *Voteable) voters(ctx context.Context, sign Sign) ([]Ref, error) {
	var votes []*Vote
	if loaded, ok := v.votes.Get(); ok {
		votes = loaded
	} else {
		var err error
		votes, err = v.store.ListBySubject(ctx, v.ref, ListQuery{Sign: sign})
		if err != nil {
			return nil, fmt.Errorf("failed to list voters: %w", err)
		}
	}

	refs := make([]Ref, 0, len(votes))
	for _, vote := range votes {
		if sign.Matches(vote.Magnitude) {
			refs = append(refs, vote.Voter())
		}
	}
	return refs, nil
}

// Voters lists everyone who voted on the subject
func (v *Voteable) Voters(ctx context.Context) ([]Ref, error) {
	return v.voters(ctx, AnySign)
}

// Upvoters lists everyone whose vote on the subject is positive
func (v *Voteable) Upvoters(ctx context.Context) ([]Ref, error) {
	return v.voters(ctx, Positive)
}

// Downvoters lists everyone whose vote on the subject is negative
func (v *Voteable) Downvoters(ctx context.Context) ([]Ref, error) {
	return v.voters(ctx, Negative)
}

func (v *Voteable) isVotedBy(ctx context.Context, voter Entity, sign Sign) (bool, error) {
	if voter == nil {
		return false, nil
	}
	ref := voter.VoteRef()
	// Entities that cannot vote have not voted
	if ref.Validate() != nil || !v.registry.IsVoter(ref.Type) {
		return false, nil
	}

	if loaded, ok := v.votes.Get(); ok {
		for _, vote := range loaded {
			if vote.Voter() == ref && sign.Matches(vote.Magnitude) {
				return true, nil
			}
		}
		return false, nil
	}

	ok, err := v.store.Exists(ctx, ref, v.ref, sign)
	if err != nil {
		return false, fmt.Errorf("failed to check voter: %w", err)
	}
	return ok, nil
}

// IsVotedBy reports whether voter has a vote on the subject
func (v *Voteable) IsVotedBy(ctx context.Context, voter Entity) (bool, error) {
	return v.isVotedBy(ctx, voter, AnySign)
}

// IsUpvotedBy reports whether voter's vote on the subject is positive
func (v *Voteable) IsUpvotedBy(ctx context.Context, voter Entity) (bool, error) {
	return v.isVotedBy(ctx, voter, Positive)
}

// IsDownvotedBy reports whether voter's vote on the subject is negative
func (v *Voteable) IsDownvotedBy(ctx context.Context, voter Entity) (bool, error) {
	return v.isVotedBy(ctx, voter, Negative)
}

func (v *Voteable) IsNotVotedBy(ctx context.Context, voter Entity) (bool, error) {
	ok, err := v.IsVotedBy(ctx, voter)
	return !ok, err
}

func (v *Voteable) IsNotUpvotedBy(ctx context.Context, voter Entity) (bool, error) {
	ok, err := v.IsUpvotedBy(ctx, voter)
	return !ok, err
}

func (v *Voteable) IsNotDownvotedBy(ctx context.Context, voter Entity) (bool, error) {
	ok, err := v.IsDownvotedBy(ctx, voter)
	return !ok, err
}

// Aggregates returns all six aggregates, loading whichever are not cached
func (v *Voteable) Aggregates(ctx context.Context) (map[Aggregate]int64, error) {
	result := make(map[Aggregate]int64, numAggregates)
	for _, kind := range AllAggregates() {
		value, err := v.cache.GetOrLoad(ctx, kind)
		if err != nil {
			return nil, err
		}
		result[kind] = value
	}
	return result, nil
}
