package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorekeep/lorekeep/internal/daemon"
	"github.com/lorekeep/lorekeep/internal/model"
	"github.com/lorekeep/lorekeep/internal/service"
	"github.com/lorekeep/lorekeep/internal/sink"
)

type fakeSource struct{}

func (fakeSource) Name() string           { return "trivia-api" }
func (fakeSource) Kind() model.SourceKind { return model.SourceKindAPI }

func (fakeSource) Fetch(_ context.Context, _ int) ([]model.Question, error) {
	return nil, nil
}

type fakeGenerator struct {
	fakeSource
	questions []model.Question
	err       error
}

func (g *fakeGenerator) Name() string { return "ai-generator" }

func (g *fakeGenerator) GenerateForCategories(_ context.Context, _ []string, _ int) ([]model.Question, error) {
	return g.questions, g.err
}

func newTestServer(t *testing.T, opts ...daemon.Option) (*Server, *daemon.Daemon) {
	t.Helper()
	d := daemon.New(daemon.Config{CycleInterval: time.Hour}, opts...)
	d.RegisterSource(fakeSource{})
	t.Cleanup(func() {
		d.Stop()
		d.Wait()
	})
	return NewServer(d, Config{}), d
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

func TestLifecycleEndpoints(t *testing.T) {
	s, d := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/v1/daemon/start", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "running", decodeBody(t, rec)["state"])

	rec = do(t, s, http.MethodPost, "/api/v1/daemon/pause", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "paused", decodeBody(t, rec)["state"])

	rec = do(t, s, http.MethodPost, "/api/v1/daemon/resume", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "running", decodeBody(t, rec)["state"])

	rec = do(t, s, http.MethodPost, "/api/v1/daemon/stop", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "stopped", decodeBody(t, rec)["state"])
	assert.Equal(t, daemon.StateStopped, d.State())
}

func TestIllegalTransitionStaysOK(t *testing.T) {
	s, d := newTestServer(t)

	// Pausing a stopped daemon is a no-op, not a failure.
	rec := do(t, s, http.MethodPost, "/api/v1/daemon/pause", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "stopped", decodeBody(t, rec)["state"])
	assert.Equal(t, daemon.StateStopped, d.State())
}

func TestStatsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/api/v1/stats", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var snap service.StatsSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "stopped", snap.State)
	require.Len(t, snap.Sources, 1)
	assert.Equal(t, "trivia-api", snap.Sources[0].Name)
	assert.True(t, snap.Sources[0].Enabled)
}

func TestHarvestEndpoint(t *testing.T) {
	gen := &fakeGenerator{
		questions: []model.Question{
			{
				Text:         "What is the capital of France?",
				Choices:      []model.Choice{{Text: "Paris", IsCorrect: true}, {Text: "London"}},
				CorrectIndex: 0,
				Category:     "Geography",
			},
		},
	}
	w := sink.NewFileWriter(t.TempDir() + "/questions.jsonl")
	s, _ := newTestServer(t, daemon.WithGenerator(gen), daemon.WithFileOutput(w))

	rec := do(t, s, http.MethodPost, "/api/v1/harvest", `{"categories":["Geography"],"count":1}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	var result service.HarvestResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 1, result.Fetched)
	assert.Equal(t, 1, result.Added)
	assert.Equal(t, 0, result.Errors)
}

func TestHarvestValidation(t *testing.T) {
	s, _ := newTestServer(t, daemon.WithGenerator(&fakeGenerator{}))

	tests := []struct {
		name string
		body string
	}{
		{name: "bad json", body: "{"},
		{name: "no categories", body: `{"count":5}`},
		{name: "zero count", body: `{"categories":["Science"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/v1/harvest", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestHarvestWithoutGenerator(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/v1/harvest", `{"categories":["Science"],"count":5}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSourceToggleEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/v1/sources/trivia-api/disable", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["enabled"])

	rec = do(t, s, http.MethodGet, "/api/v1/stats", "")
	var snap service.StatsSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.Len(t, snap.Sources, 1)
	assert.False(t, snap.Sources[0].Enabled)

	rec = do(t, s, http.MethodPost, "/api/v1/sources/trivia-api/enable", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["enabled"])

	rec = do(t, s, http.MethodPost, "/api/v1/sources/unknown/enable", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "stopped", body["state"])
}
