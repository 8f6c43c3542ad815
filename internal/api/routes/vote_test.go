package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"Ballot/internal/api/middleware"
	"Ballot/internal/core/events"
	"Ballot/internal/core/votes"
	"Ballot/internal/db/sqlstore"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("routes-test-secret-0123456789abcdef")

type testServer struct {
	server *httptest.Server
	store  *sqlstore.Store
}

func setupServer(t *testing.T, limiter *middleware.RateLimiter) *testServer {
	t.Helper()
	ctx := context.Background()

	store, err := sqlstore.Open(ctx, sqlstore.Config{
		Driver: sqlstore.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "votes.db"),
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(ctx))

	registry := votes.NewTypeRegistry()
	require.NoError(t, registry.RegisterVoters("users"))
	require.NoError(t, registry.RegisterSubjects("channels", "posts"))

	reg := prometheus.NewRegistry()
	engine, err := votes.NewEngine(store, registry, events.NewMetricsSink(reg), nil)
	require.NoError(t, err)

	router := NewRouter(RouterOptions{
		Engine:  engine,
		Auth:    middleware.NewVoterAuthMiddleware(testSecret, "users", nil),
		Limiter: limiter,
		Metrics: events.Handler(reg),
		Health:  func(r *http.Request) error { return store.DB().PingContext(r.Context()) },
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &testServer{server: server, store: store}
}

func (s *testServer) do(t *testing.T, method, path, voterID string, body any) (int, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, s.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if voterID != "" {
		token, err := middleware.IssueToken(testSecret, votes.NewRef("users", voterID), time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var out map[string]any
	if resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

func subject(typ, id string) map[string]string {
	return map[string]string{"type": typ, "id": id}
}

func TestVoteRoutes_CastAndAggregate(t *testing.T) {
	s := setupServer(t, nil)

	status, body := s.do(t, http.MethodPost, "/xrpc/social.ballot.vote.cast", "1",
		map[string]any{"subject": subject("channels", "7"), "direction": "up", "weight": 3})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, true, body["changed"])
	assert.Equal(t, float64(3), body["magnitude"])
	assert.Equal(t, "up", body["direction"])
	assert.NotEmpty(t, body["id"])

	status, body = s.do(t, http.MethodPost, "/xrpc/social.ballot.vote.cast", "1",
		map[string]any{"subject": subject("channels", "7"), "magnitude": 3})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["changed"], "same magnitude is a no-op")

	status, _ = s.do(t, http.MethodPost, "/xrpc/social.ballot.vote.cast", "2",
		map[string]any{"subject": subject("channels", "7"), "direction": "down", "weight": 2})
	require.Equal(t, http.StatusOK, status)

	status, body = s.do(t, http.MethodGet, "/xrpc/social.ballot.vote.getAggregates?subjectType=channels&subjectId=7", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(2), body["votersCount"])
	assert.Equal(t, float64(1), body["upvotersCount"])
	assert.Equal(t, float64(1), body["downvotersCount"])
	assert.Equal(t, float64(1), body["sumVotes"])
	assert.Equal(t, float64(3), body["sumUpvotes"])
	assert.Equal(t, float64(-2), body["sumDownvotes"])
}

func TestVoteRoutes_ViewerStateAndCancel(t *testing.T) {
	s := setupServer(t, nil)

	status, _ := s.do(t, http.MethodPost, "/xrpc/social.ballot.vote.cast", "1",
		map[string]any{"subject": subject("posts", "9"), "direction": "down"})
	require.Equal(t, http.StatusOK, status)

	status, body := s.do(t, http.MethodGet, "/xrpc/social.ballot.vote.getViewerState?subjectType=posts&subjectId=9", "1", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["voted"])
	assert.Equal(t, false, body["upvoted"])
	assert.Equal(t, true, body["downvoted"])

	status, body = s.do(t, http.MethodPost, "/xrpc/social.ballot.vote.cancel", "1",
		map[string]any{"subject": subject("posts", "9")})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["canceled"])

	status, body = s.do(t, http.MethodPost, "/xrpc/social.ballot.vote.cancel", "1",
		map[string]any{"subject": subject("posts", "9")})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["canceled"])

	status, body = s.do(t, http.MethodGet, "/xrpc/social.ballot.vote.getViewerState?subjectType=posts&subjectId=9", "1", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["voted"])
}

func TestVoteRoutes_Listings(t *testing.T) {
	s := setupServer(t, nil)

	for _, c := range []struct {
		voter, id, direction string
	}{
		{"1", "1", "up"},
		{"1", "2", "down"},
		{"2", "1", "down"},
	} {
		status, _ := s.do(t, http.MethodPost, "/xrpc/social.ballot.vote.cast", c.voter,
			map[string]any{"subject": subject("channels", c.id), "direction": c.direction})
		require.Equal(t, http.StatusOK, status)
	}

	status, body := s.do(t, http.MethodGet, "/xrpc/social.ballot.vote.listVoters?subjectType=channels&subjectId=1", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(2), body["total"])

	status, body = s.do(t, http.MethodGet, "/xrpc/social.ballot.vote.listVoters?subjectType=channels&subjectId=1&direction=down", "", nil)
	require.Equal(t, http.StatusOK, status)
	voters := body["voters"].([]any)
	require.Len(t, voters, 1)
	assert.Equal(t, map[string]any{"type": "users", "id": "2"}, voters[0])

	status, body = s.do(t, http.MethodGet, "/xrpc/social.ballot.vote.listVoters?subjectType=channels&subjectId=1&limit=1&offset=1", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["voters"].([]any), 1)

	status, body = s.do(t, http.MethodGet, "/xrpc/social.ballot.vote.listVoted?subjectType=channels&direction=up", "1", nil)
	require.Equal(t, http.StatusOK, status)
	subjects := body["subjects"].([]any)
	require.Len(t, subjects, 1)
	assert.Equal(t, map[string]any{"type": "channels", "id": "1"}, subjects[0])

	status, body = s.do(t, http.MethodGet, "/xrpc/social.ballot.vote.listVoters?subjectType=channels&subjectId=1&direction=sideways", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "InvalidRequest", body["error"])
}

func TestVoteRoutes_Errors(t *testing.T) {
	s := setupServer(t, nil)

	tests := []struct {
		body      any
		name      string
		method    string
		path      string
		voter     string
		wantError string
		want      int
	}{
		{
			name: "cast without auth", method: http.MethodPost, path: "/xrpc/social.ballot.vote.cast",
			body: map[string]any{"subject": subject("channels", "1"), "direction": "up"},
			want: http.StatusUnauthorized, wantError: "AuthenticationRequired",
		},
		{
			name: "zero magnitude", method: http.MethodPost, path: "/xrpc/social.ballot.vote.cast", voter: "1",
			body: map[string]any{"subject": subject("channels", "1"), "magnitude": 0},
			want: http.StatusBadRequest, wantError: "InvalidMagnitude",
		},
		{
			name: "zero weight", method: http.MethodPost, path: "/xrpc/social.ballot.vote.cast", voter: "1",
			body: map[string]any{"subject": subject("channels", "1"), "direction": "up", "weight": 0},
			want: http.StatusBadRequest, wantError: "InvalidMagnitude",
		},
		{
			name: "unknown subject type", method: http.MethodPost, path: "/xrpc/social.ballot.vote.cast", voter: "1",
			body: map[string]any{"subject": subject("users", "2"), "direction": "up"},
			want: http.StatusBadRequest, wantError: "InvalidSubject",
		},
		{
			name: "bad direction", method: http.MethodPost, path: "/xrpc/social.ballot.vote.cast", voter: "1",
			body: map[string]any{"subject": subject("channels", "1"), "direction": "left"},
			want: http.StatusBadRequest, wantError: "InvalidRequest",
		},
		{
			name: "missing subject", method: http.MethodPost, path: "/xrpc/social.ballot.vote.cancel", voter: "1",
			body: map[string]any{},
			want: http.StatusBadRequest, wantError: "InvalidRequest",
		},
		{
			name: "aggregates of unknown type", method: http.MethodGet,
			path: "/xrpc/social.ballot.vote.getAggregates?subjectType=widgets&subjectId=1",
			want: http.StatusBadRequest, wantError: "InvalidSubject",
		},
		{
			name: "viewer state without auth", method: http.MethodGet,
			path: "/xrpc/social.ballot.vote.getViewerState?subjectType=channels&subjectId=1",
			want: http.StatusUnauthorized, wantError: "AuthenticationRequired",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := s.do(t, tt.method, tt.path, tt.voter, tt.body)
			assert.Equal(t, tt.want, status)
			assert.Equal(t, tt.wantError, body["error"])
		})
	}
}

func TestVoteRoutes_RateLimitedPerVoter(t *testing.T) {
	limiter := middleware.NewRateLimiter(1, time.Minute)
	t.Cleanup(limiter.Stop)
	s := setupServer(t, limiter)

	cast := func(voter string) int {
		status, _ := s.do(t, http.MethodPost, "/xrpc/social.ballot.vote.cast", voter,
			map[string]any{"subject": subject("channels", "1"), "direction": "up"})
		return status
	}

	assert.Equal(t, http.StatusOK, cast("1"))
	assert.Equal(t, http.StatusTooManyRequests, cast("1"))
	assert.Equal(t, http.StatusOK, cast("2"))
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	s := setupServer(t, nil)

	resp, err := http.Get(s.server.URL + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	status, _ := s.do(t, http.MethodPost, "/xrpc/social.ballot.vote.cast", "1",
		map[string]any{"subject": subject("channels", "1"), "direction": "up"})
	require.Equal(t, http.StatusOK, status)

	resp, err = http.Get(s.server.URL + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `ballot_vote_events_total{kind="vote.created",subject_type="channels"} 1`)
}
