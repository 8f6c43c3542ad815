package votes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"
)

// Voter is the voting capability of one voter entity.
// It keeps an optional in-memory copy of the voter's own votes (see LoadVotes)
// and is meant to live for a single request; it is not safe for concurrent use.
type Voter struct {
	ref      Ref
	store    Store
	registry *TypeRegistry
	events   EventSink
	logger   *slog.Logger
	votes    Loaded[[]*Vote]
}

// Ref returns the voter's reference
func (v *Voter) Ref() Ref {
	return v.ref
}

// Vote casts magnitude on subject.
//   - No existing vote -> create it, fire vote.created
//   - Existing vote with another magnitude -> update it, fire vote.changed
//   - Existing vote with the same magnitude -> no write, no event
//
// The returned vote is the record as stored after the call.
func (v *Voter) Vote(ctx context.Context, subject Entity, magnitude int64) (*Vote, error) {
	result, err := v.Cast(ctx, subject, magnitude)
	if err != nil {
		return nil, err
	}
	return result.Vote, nil
}

// CastResult is the outcome of Cast. Kind is empty when the call was a no-op.
type CastResult struct {
	Vote *Vote
	Kind EventKind
}

// Changed reports whether the cast wrote anything
func (r CastResult) Changed() bool {
	return r.Kind != ""
}

// Cast is Vote, additionally reporting which transition took place
func (v *Voter) Cast(ctx context.Context, subject Entity, magnitude int64) (CastResult, error) {
	if magnitude == 0 {
		return CastResult{}, ErrInvalidMagnitude
	}
	subjectRef, err := v.subjectRef(subject)
	if err != nil {
		return CastResult{}, err
	}

	vote, event, err := v.cast(ctx, subjectRef, magnitude)
	if errors.Is(err, ErrVoteAlreadyExists) {
		// Lost the insert race to a concurrent vote on the same pair; the
		// row exists now, so a second pass takes the update path.
		v.logger.Info("concurrent vote detected, retrying as update",
			"voter", v.ref.String(),
			"subject", subjectRef.String())
		vote, event, err = v.cast(ctx, subjectRef, magnitude)
	}
	if err != nil {
		v.logger.Error("failed to cast vote",
			"error", err,
			"voter", v.ref.String(),
			"subject", subjectRef.String(),
			"magnitude", magnitude)
		return CastResult{}, fmt.Errorf("failed to cast vote: %w", err)
	}

	result := CastResult{Vote: vote}
	if event != nil {
		result.Kind = event.Kind
		v.votes.Reset()
		v.events.Publish(ctx, *event)
		v.logger.Debug("vote cast",
			"kind", string(event.Kind),
			"voter", v.ref.String(),
			"subject", subjectRef.String(),
			"magnitude", magnitude)
	}

	return result, nil
}

// cast runs the find-or-create-or-update sequence in one transaction with
// the pair's row locked
func (v *Voter) cast(ctx context.Context, subject Ref, magnitude int64) (*Vote, *Event, error) {
	var (
		result *Vote
		event  *Event
	)

	err := v.store.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		result, event = nil, nil

		existing, err := tx.GetByVoterAndSubject(ctx, v.ref, subject, true)
		if err != nil && !errors.Is(err, ErrVoteNotFound) {
			return err
		}

		if existing == nil {
			vote := &Vote{
				VoterType:   v.ref.Type,
				VoterID:     v.ref.ID,
				SubjectType: subject.Type,
				SubjectID:   subject.ID,
				Magnitude:   magnitude,
			}
			if err := tx.Create(ctx, vote); err != nil {
				return err
			}
			result = vote
			event = &Event{Kind: EventVoteCreated, Vote: *vote, OccurredAt: vote.CreatedAt}
			return nil
		}

		if existing.Magnitude == magnitude {
			result = existing
			return nil
		}

		previous := existing.Magnitude
		existing.Magnitude = magnitude
		if err := tx.UpdateMagnitude(ctx, existing); err != nil {
			return err
		}
		result = existing
		event = &Event{
			Kind:              EventVoteChanged,
			Vote:              *existing,
			PreviousMagnitude: previous,
			OccurredAt:        existing.UpdatedAt,
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return result, event, nil
}

// Upvote casts a +1 vote on subject
func (v *Voter) Upvote(ctx context.Context, subject Entity) (*Vote, error) {
	return v.Vote(ctx, subject, 1)
}

// UpvoteWeighted casts +|weight| on subject
func (v *Voter) UpvoteWeighted(ctx context.Context, subject Entity, weight int64) (*Vote, error) {
	w, err := weightMagnitude(weight)
	if err != nil {
		return nil, err
	}
	return v.Vote(ctx, subject, w)
}

// Downvote casts a -1 vote on subject
func (v *Voter) Downvote(ctx context.Context, subject Entity) (*Vote, error) {
	return v.Vote(ctx, subject, -1)
}

// DownvoteWeighted casts -|weight| on subject
func (v *Voter) DownvoteWeighted(ctx context.Context, subject Entity, weight int64) (*Vote, error) {
	w, err := weightMagnitude(weight)
	if err != nil {
		return nil, err
	}
	return v.Vote(ctx, subject, -w)
}

// CancelVote deletes the voter's vote on subject and fires vote.canceled.
// Returns false, with no error and no event, when there was no vote.
func (v *Voter) CancelVote(ctx context.Context, subject Entity) (bool, error) {
	subjectRef, err := v.subjectRef(subject)
	if err != nil {
		return false, err
	}

	var deleted *Vote
	err = v.store.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		deleted = nil

		existing, err := tx.GetByVoterAndSubject(ctx, v.ref, subjectRef, true)
		if errors.Is(err, ErrVoteNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := tx.Delete(ctx, v.ref, subjectRef); err != nil {
			return err
		}
		deleted = existing
		return nil
	})
	if err != nil {
		v.logger.Error("failed to cancel vote",
			"error", err,
			"voter", v.ref.String(),
			"subject", subjectRef.String())
		return false, fmt.Errorf("failed to cancel vote: %w", err)
	}

	if deleted == nil {
		return false, nil
	}

	v.votes.Reset()
	v.events.Publish(ctx, Event{
		Kind:              EventVoteCanceled,
		Vote:              *deleted,
		PreviousMagnitude: deleted.Magnitude,
		OccurredAt:        time.Now().UTC(),
	})

	v.logger.Debug("vote canceled",
		"voter", v.ref.String(),
		"subject", subjectRef.String())

	return true, nil
}

// LoadVotes eagerly loads every vote of the voter. Until the next mutation,
// Has* predicates and subject listings are answered from memory.
func (v *Voter) LoadVotes(ctx context.Context) error {
	votes, err := v.store.ListByVoter(ctx, v.ref, ListQuery{})
	if err != nil {
		return fmt.Errorf("failed to load votes of %s: %w", v.ref, err)
	}
	v.votes.Set(votes)
	return nil
}

// VotesLoaded reports whether the voter's votes are held in memory
func (v *Voter) VotesLoaded() bool {
	_, ok := v.votes.Get()
	return ok
}

// Votes returns every vote of the voter, newest first
func (v *Voter) Votes(ctx context.Context) ([]*Vote, error) {
	return v.votes.GetOrLoad(ctx, func(ctx context.Context) ([]*Vote, error) {
		return v.store.ListByVoter(ctx, v.ref, ListQuery{})
	})
}

func (v *Voter) has(ctx context.Context, subject Entity, sign Sign) (bool, error) {
	subjectRef, err := v.subjectRef(subject)
	if err != nil {
		return false, err
	}

	if loaded, ok := v.votes.Get(); ok {
		for _, vote := range loaded {
			if vote.Subject() == subjectRef && sign.Matches(vote.Magnitude) {
				return true, nil
			}
		}
		return false, nil
	}

	ok, err := v.store.Exists(ctx, v.ref, subjectRef, sign)
	if err != nil {
		return false, fmt.Errorf("failed to check vote: %w", err)
	}
	return ok, nil
}

// HasVoted reports whether the voter has any vote on subject
func (v *Voter) HasVoted(ctx context.Context, subject Entity) (bool, error) {
	return v.has(ctx, subject, AnySign)
}

// HasUpvoted reports whether the voter's vote on subject is positive
func (v *Voter) HasUpvoted(ctx context.Context, subject Entity) (bool, error) {
	return v.has(ctx, subject, Positive)
}

// HasDownvoted reports whether the voter's vote on subject is negative
func (v *Voter) HasDownvoted(ctx context.Context, subject Entity) (bool, error) {
	return v.has(ctx, subject, Negative)
}

func (v *Voter) HasNotVoted(ctx context.Context, subject Entity) (bool, error) {
	ok, err := v.HasVoted(ctx, subject)
	return !ok, err
}

func (v *Voter) HasNotUpvoted(ctx context.Context, subject Entity) (bool, error) {
	ok, err := v.HasUpvoted(ctx, subject)
	return !ok, err
}

func (v *Voter) HasNotDownvoted(ctx context.Context, subject Entity) (bool, error) {
	ok, err := v.HasDownvoted(ctx, subject)
	return !ok, err
}

func (v *Voter) subjects(ctx context.Context, subjectType string, sign Sign) ([]Ref, error) {
	if !v.registry.IsSubject(subjectType) {
		return nil, fmt.Errorf("%w: %q is not a subject type", ErrUnknownType, subjectType)
	}

	var votes []*Vote
	if loaded, ok := v.votes.Get(); ok {
		votes = loaded
	} else {
		var err error
		votes, err = v.store.ListByVoter(ctx, v.ref, ListQuery{SubjectType: subjectType, Sign: sign})
		if err != nil {
			return nil, fmt.Errorf("failed to list voted subjects: %w", err)
		}
	}

	refs := make([]Ref, 0, len(votes))
	for _, vote := range votes {
		if vote.SubjectType == subjectType && sign.Matches(vote.Magnitude) {
			refs = append(refs, vote.Subject())
		}
	}
	return refs, nil
}

// VotedSubjects lists subjects of subjectType the voter has voted on
func (v *Voter) VotedSubjects(ctx context.Context, subjectType string) ([]Ref, error) {
	return v.subjects(ctx, subjectType, AnySign)
}

// UpvotedSubjects lists subjects of subjectType the voter has upvoted
func (v *Voter) UpvotedSubjects(ctx context.Context, subjectType string) ([]Ref, error) {
	return v.subjects(ctx, subjectType, Positive)
}

// DownvotedSubjects lists subjects of subjectType the voter has downvoted
func (v *Voter) DownvotedSubjects(ctx context.Context, subjectType string) ([]Ref, error) {
	return v.subjects(ctx, subjectType, Negative)
}

func (v *Voter) subjectRef(subject Entity) (Ref, error) {
	if subject == nil {
		return Ref{}, ErrInvalidRef
	}
	ref := subject.VoteRef()
	if err := v.registry.RequireSubject(ref); err != nil {
		return Ref{}, err
	}
	return ref, nil
}

// weightMagnitude returns |weight|. MinInt64 has no positive counterpart.
func weightMagnitude(weight int64) (int64, error) {
	if weight == math.MinInt64 {
		return 0, fmt.Errorf("%w: weight %d", ErrInvalidMagnitude, weight)
	}
	if weight < 0 {
		return -weight, nil
	}
	return weight, nil
}
