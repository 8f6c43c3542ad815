package votes

import (
	"context"
	"time"
)

// EventKind names a vote state transition
type EventKind string

const (
	EventVoteCreated  EventKind = "vote.created"
	EventVoteChanged  EventKind = "vote.changed"
	EventVoteCanceled EventKind = "vote.canceled"
)

// Event describes one committed transition of a vote record
type Event struct {
	OccurredAt time.Time
	Kind       EventKind
	Vote       Vote
	// PreviousMagnitude is the magnitude before a change; zero for creations
	// and equal to Vote.Magnitude for cancellations
	PreviousMagnitude int64
}

// IsVoted reports whether the event is a creation or a magnitude change
func (e Event) IsVoted() bool {
	return e.Kind == EventVoteCreated || e.Kind == EventVoteChanged
}

// EventSink receives vote transitions after they are committed.
// Publish must not block for long and cannot fail the operation that fired it.
type EventSink interface {
	Publish(ctx context.Context, event Event)
}

// EventSinkFunc adapts a function to EventSink
type EventSinkFunc func(ctx context.Context, event Event)

func (f EventSinkFunc) Publish(ctx context.Context, event Event) {
	f(ctx, event)
}

type nopSink struct{}

func (nopSink) Publish(context.Context, Event) {}

// NopSink discards all events
var NopSink EventSink = nopSink{}
