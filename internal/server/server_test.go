package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cterence/ytmusic-scrobbler/internal/history"
	"github.com/cterence/ytmusic-scrobbler/internal/ledger"
	"github.com/cterence/ytmusic-scrobbler/internal/scrobbler"
	"github.com/cterence/ytmusic-scrobbler/internal/syncer"
	"github.com/cterence/ytmusic-scrobbler/internal/users"
)

type stubSource struct {
	entries []history.Entry
}

func (s stubSource) History(_ context.Context, limit int) ([]history.Entry, error) {
	if len(s.entries) > limit {
		return s.entries[:limit], nil
	}
	return s.entries, nil
}

type stubSink struct{}

func (stubSink) Submit(context.Context, scrobbler.Submission) error { return nil }
func (stubSink) Recent(context.Context, int) ([]scrobbler.RecentTrack, error) {
	return nil, nil
}

type stubClients struct {
	src history.Source
}

func (c stubClients) SourceFor(users.User) (history.Source, error) { return c.src, nil }
func (c stubClients) SinkFor(users.User) (scrobbler.Sink, error) {
	return stubSink{}, nil
}

func newTestServer(t *testing.T, cronSecret string) *Server {
	t.Helper()
	s := syncer.New(ledger.NewMemory(), syncer.Options{})
	dir := users.NewLocal(users.User{ID: users.LocalID, AutoScrobble: true})
	clients := stubClients{src: stubSource{entries: []history.Entry{
		{Title: "Song A", Artist: "Artist X", NativeID: "vid1", Position: 0},
		{Title: "Song B", Artist: "Artist Y", NativeID: "vid2", Position: 1},
	}}}
	return New(s, dir, clients, cronSecret)
}

func TestScrobbleEndpoint(t *testing.T) {
	srv := newTestServer(t, "")
	req := httptest.NewRequest(http.MethodPost, "/api/scrobble", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Success bool `json:"success"`
		Count   int  `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.Count)
}

func TestScrobbleEndpointUnknownUser(t *testing.T) {
	srv := newTestServer(t, "")
	req := httptest.NewRequest(http.MethodPost, "/api/scrobble?user=nobody", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "unknown user")
}

func TestCronEndpoint(t *testing.T) {
	srv := newTestServer(t, "")
	req := httptest.NewRequest(http.MethodPost, "/api/cron", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var summary syncer.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 1, summary.UsersProcessed)
	assert.Equal(t, 2, summary.TotalScrobbled)
	assert.Empty(t, summary.Errors)
}

func TestCronEndpointRequiresSecret(t *testing.T) {
	srv := newTestServer(t, "s3cret")

	req := httptest.NewRequest(http.MethodPost, "/api/cron", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/cron", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/cron", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, "")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
