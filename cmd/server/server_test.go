package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory-sweep-lab/internal/app"
	"inventory-sweep-lab/internal/config"
	"inventory-sweep-lab/internal/domain"
	"inventory-sweep-lab/internal/observability"
	"inventory-sweep-lab/internal/progress"
)

func smallConfig() config.Config {
	cfg := config.Default()
	cfg.Grid = domain.GridSpec{
		K:     []float64{0.5, 1},
		Alpha: []float64{0.05},
		HTh:   []float64{20},
		HSz:   []float64{10},
	}
	cfg.Seeds.InSample = config.SeedRangeConfig{From: 1, To: 5}
	cfg.Seeds.OutOfSample = config.SeedRangeConfig{From: 101, To: 105}
	cfg.Market.Steps = 100
	cfg.OutputDir = ""
	return cfg
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	stores, err := app.OpenStores(ctx, config.StorageConfig{Backend: config.BackendMemory}, nil, zerolog.Nop())
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	m := observability.NewMetrics("test", reg)
	hub := progress.NewHub(nil, nil)
	srv := NewServer(ctx, smallConfig(), stores, m, hub, zerolog.Nop())
	ts := httptest.NewServer(srv.Routes(observability.HandlerFor(reg)))

	t.Cleanup(func() {
		cancel()
		srv.Wait()
		hub.Close()
		ts.Close()
		stores.Close()
	})
	return srv, ts
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func startRun(t *testing.T, ts *httptest.Server, body string) string {
	t.Helper()
	resp, err := http.Post(ts.URL+"/runs", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	return decode[StartRunResponse](t, resp).RunID
}

func waitFinished(t *testing.T, srv *Server, runID string) {
	t.Helper()
	require.Eventually(t, func() bool {
		srv.mu.Lock()
		defer srv.mu.Unlock()
		return srv.lastRun == runID && srv.activeRun == ""
	}, 30*time.Second, 20*time.Millisecond)
}

func TestServer_Health(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
}

func TestServer_RunLifecycle(t *testing.T) {
	srv, ts := newTestServer(t)

	runID := startRun(t, ts, "")
	waitFinished(t, srv, runID)

	resp, err := http.Get(ts.URL + "/runs/" + runID)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	run := decode[RunResponse](t, resp)
	assert.Equal(t, runID, run.RunID)
	assert.Equal(t, 2, run.GridSize)
	assert.NotEqual(t, domain.RunStatusRunning, run.Status)
	assert.NotZero(t, run.FinishedAt)

	resp, err = http.Get(ts.URL + "/runs")
	require.NoError(t, err)
	runs := decode[[]RunResponse](t, resp)
	require.Len(t, runs, 1)
	assert.Equal(t, runID, runs[0].RunID)

	resp, err = http.Get(ts.URL + "/runs/" + runID + "/report")
	require.NoError(t, err)
	defer resp.Body.Close()
	report, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(report), "Run: `"+runID+"`")

	resp, err = http.Get(ts.URL + "/status")
	require.NoError(t, err)
	status := decode[StatusResponse](t, resp)
	assert.Equal(t, 1, status.RunsTotal)
	assert.Equal(t, runID, status.LastRun)
	assert.Empty(t, status.ActiveRun)
	assert.Equal(t, config.BackendMemory, status.Backend)

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	metricsBody, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(metricsBody), "test_experiment_runs_total")
}

func TestServer_RunOverrides(t *testing.T) {
	srv, ts := newTestServer(t)

	runID := startRun(t, ts, `{"threshold": 1000000, "metric": "risk_adjusted"}`)
	waitFinished(t, srv, runID)

	resp, err := http.Get(ts.URL + "/runs/" + runID)
	require.NoError(t, err)
	run := decode[RunResponse](t, resp)
	assert.Equal(t, 1e6, run.Threshold)
	assert.Equal(t, "risk_adjusted", run.Metric)
	assert.Zero(t, run.Survivors)
	assert.Zero(t, run.FrontSize)
}

func TestServer_RejectsInvalidRequests(t *testing.T) {
	_, ts := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"threshold":`},
		{"zero threshold", `{"threshold": 0}`},
		{"unknown metric", `{"metric": "sharpe"}`},
		{"unknown policy", `{"failure_policy": "retry"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/runs", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestServer_UnknownRun(t *testing.T) {
	_, ts := newTestServer(t)

	for _, path := range []string{"/runs/missing", "/runs/missing/report"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}

	resp, err := http.Get(ts.URL + "/runs?limit=-1")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_StartWhileActive(t *testing.T) {
	srv, _ := newTestServer(t)

	srv.mu.Lock()
	srv.activeRun = "busy"
	srv.mu.Unlock()

	_, err := srv.Start(smallConfig())
	assert.ErrorIs(t, err, ErrRunInProgress)

	srv.mu.Lock()
	srv.activeRun = ""
	srv.mu.Unlock()
}
