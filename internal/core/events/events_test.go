package events

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"Ballot/internal/core/votes"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEvent(kind votes.EventKind, magnitude int64) votes.Event {
	return votes.Event{
		OccurredAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Kind:       kind,
		Vote: votes.Vote{
			ID:          "42",
			VoterType:   "users",
			VoterID:     "1",
			SubjectType: "channels",
			SubjectID:   "7",
			Magnitude:   magnitude,
		},
	}
}

func TestMetricsSink(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink := NewMetricsSink(reg)
	ctx := context.Background()

	sink.Publish(ctx, testEvent(votes.EventVoteCreated, 3))
	sink.Publish(ctx, testEvent(votes.EventVoteChanged, -1))
	sink.Publish(ctx, testEvent(votes.EventVoteCanceled, -1))

	assert.Equal(t, 1.0, testutil.ToFloat64(sink.events.WithLabelValues("vote.created", "channels")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.events.WithLabelValues("vote.changed", "channels")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.events.WithLabelValues("vote.canceled", "channels")))

	expected := `
# HELP ballot_vote_magnitude Magnitude of created or changed votes.
# TYPE ballot_vote_magnitude histogram
ballot_vote_magnitude_bucket{le="-100"} 0
ballot_vote_magnitude_bucket{le="-10"} 0
ballot_vote_magnitude_bucket{le="-5"} 0
ballot_vote_magnitude_bucket{le="-2"} 0
ballot_vote_magnitude_bucket{le="-1"} 1
ballot_vote_magnitude_bucket{le="1"} 1
ballot_vote_magnitude_bucket{le="2"} 1
ballot_vote_magnitude_bucket{le="5"} 2
ballot_vote_magnitude_bucket{le="10"} 2
ballot_vote_magnitude_bucket{le="100"} 2
ballot_vote_magnitude_bucket{le="+Inf"} 2
ballot_vote_magnitude_sum 2
ballot_vote_magnitude_count 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "ballot_vote_magnitude"))
}

func TestMetricsSink_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetricsSink(reg)
	assert.Panics(t, func() { NewMetricsSink(reg) })
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	sink := NewLogSink(logger, slog.LevelInfo)

	event := testEvent(votes.EventVoteChanged, -2)
	event.PreviousMagnitude = 1
	sink.Publish(context.Background(), event)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "vote event", record["msg"])
	assert.Equal(t, "vote.changed", record["kind"])
	assert.Equal(t, "users:1", record["voter"])
	assert.Equal(t, "channels:7", record["subject"])
	assert.Equal(t, float64(-2), record["magnitude"])
	assert.Equal(t, float64(1), record["previous_magnitude"])
}

func TestFanout(t *testing.T) {
	var order []string
	first := votes.EventSinkFunc(func(ctx context.Context, e votes.Event) { order = append(order, "first") })
	second := votes.EventSinkFunc(func(ctx context.Context, e votes.Event) { order = append(order, "second") })

	fanout := NewFanout(first, nil, second)
	assert.Len(t, fanout, 2)

	fanout.Publish(context.Background(), testEvent(votes.EventVoteCreated, 1))
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestHandler(t *testing.T) {
	reg := NewRegistry()
	sink := NewMetricsSink(reg)
	sink.Publish(context.Background(), testEvent(votes.EventVoteCreated, 1))

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `ballot_vote_events_total{kind="vote.created",subject_type="channels"} 1`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
