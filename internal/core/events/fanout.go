package events

import (
	"context"

	"Ballot/internal/core/votes"
)

// Fanout delivers each event to every sink, in order
type Fanout []votes.EventSink

// NewFanout drops nil sinks
func NewFanout(sinks ...votes.EventSink) Fanout {
	f := make(Fanout, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			f = append(f, s)
		}
	}
	return f
}

func (f Fanout) Publish(ctx context.Context, event votes.Event) {
	for _, s := range f {
		s.Publish(ctx, event)
	}
}
