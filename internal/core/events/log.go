package events

import (
	"context"
	"log/slog"

	"Ballot/internal/core/votes"
)

// LogSink writes one structured record per vote transition
type LogSink struct {
	logger *slog.Logger
	level  slog.Level
}

// NewLogSink creates a LogSink logging at level. A nil logger uses slog.Default().
func NewLogSink(logger *slog.Logger, level slog.Level) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger, level: level}
}

func (s *LogSink) Publish(ctx context.Context, event votes.Event) {
	s.logger.Log(ctx, s.level, "vote event",
		"kind", string(event.Kind),
		"voter", event.Vote.Voter().String(),
		"subject", event.Vote.Subject().String(),
		"magnitude", event.Vote.Magnitude,
		"previous_magnitude", event.PreviousMagnitude,
		"occurred_at", event.OccurredAt)
}
