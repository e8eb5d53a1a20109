package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"inventory-sweep-lab/internal/app"
	"inventory-sweep-lab/internal/config"
	"inventory-sweep-lab/internal/domain"
	"inventory-sweep-lab/internal/idhash"
	"inventory-sweep-lab/internal/observability"
	"inventory-sweep-lab/internal/progress"
	"inventory-sweep-lab/internal/reporting"
	"inventory-sweep-lab/internal/storage"
)

// Server exposes experiment runs over HTTP and streams their progress.
type Server struct {
	cfg     config.Config
	stores  *app.Stores
	metrics *observability.Metrics
	hub     *progress.Hub
	base    zerolog.Logger
	logger  zerolog.Logger
	started time.Time

	// runCtx bounds background experiments; cancelled on shutdown.
	runCtx context.Context

	mu         sync.Mutex
	activeRun  string
	lastRun    string
	lastStatus string
	runsTotal  int
	wg         sync.WaitGroup
}

// NewServer creates a server. Experiments started through it stop when
// runCtx is cancelled.
func NewServer(runCtx context.Context, cfg config.Config, stores *app.Stores, m *observability.Metrics, hub *progress.Hub, logger zerolog.Logger) *Server {
	return &Server{
		cfg:     cfg,
		stores:  stores,
		metrics: m,
		hub:     hub,
		base:    logger,
		logger:  logger.With().Str("component", "server").Logger(),
		started: time.Now().UTC(),
		runCtx:  runCtx,
	}
}

// Routes returns the HTTP handler.
func (s *Server) Routes(metricsHandler http.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", metricsHandler)
	mux.Handle("GET /ws/progress", s.hub)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("POST /runs", s.handleStartRun)
	mux.HandleFunc("GET /runs", s.handleListRuns)
	mux.HandleFunc("GET /runs/{id}", s.handleGetRun)
	mux.HandleFunc("GET /runs/{id}/report", s.handleReport)

	return mux
}

// Wait blocks until background experiments have returned.
func (s *Server) Wait() {
	s.wg.Wait()
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status     string `json:"status"`
	Uptime     string `json:"uptime"`
	Backend    string `json:"backend"`
	ActiveRun  string `json:"active_run,omitempty"`
	LastRun    string `json:"last_run,omitempty"`
	LastStatus string `json:"last_status,omitempty"`
	RunsTotal  int    `json:"runs_total"`
	Clients    int    `json:"progress_clients"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:     "running",
		Uptime:     time.Since(s.started).Round(time.Second).String(),
		Backend:    s.stores.Backend,
		ActiveRun:  s.activeRun,
		LastRun:    s.lastRun,
		LastStatus: s.lastStatus,
		RunsTotal:  s.runsTotal,
		Clients:    s.hub.Clients(),
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

// StartRunRequest optionally overrides the server's experiment config.
type StartRunRequest struct {
	Threshold     *float64 `json:"threshold,omitempty"`
	Metric        *string  `json:"metric,omitempty"`
	FailurePolicy *string  `json:"failure_policy,omitempty"`
	Parallelism   *int     `json:"parallelism,omitempty"`
}

// StartRunResponse is returned when a run is accepted.
type StartRunResponse struct {
	RunID string `json:"run_id"`
}

func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	cfg := s.cfg
	var req StartRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	req.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	runID, err := s.Start(cfg)
	switch {
	case errors.Is(err, ErrRunInProgress):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, StartRunResponse{RunID: runID})
}

// ErrRunInProgress is returned by Start while another experiment runs.
var ErrRunInProgress = errors.New("a run is already in progress")

// Start launches an experiment for cfg in the background and returns its
// run ID. Only one experiment runs at a time.
func (s *Server) Start(cfg config.Config) (string, error) {
	exp, err := app.NewExperiment(cfg, app.Deps{
		Stores:    s.stores,
		Metrics:   s.metrics,
		Publisher: s.hub,
		Logger:    s.base,
	})
	if err != nil {
		return "", err
	}

	runID := idhash.NewRunID()
	exp.WithRunID(func() string { return runID }).
		WithReplayCommand("sweep report " + runID)

	s.mu.Lock()
	if s.activeRun != "" {
		active := s.activeRun
		s.mu.Unlock()
		return "", fmt.Errorf("%w: %s", ErrRunInProgress, active)
	}
	s.activeRun = runID
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		status := domain.RunStatusFailed
		res, err := exp.Run(s.runCtx)
		if err != nil {
			s.logger.Error().Err(err).Str("run_id", runID).Msg("run failed")
		} else {
			status = res.Status
		}

		s.mu.Lock()
		s.activeRun = ""
		s.lastRun = runID
		s.lastStatus = status
		s.runsTotal++
		s.mu.Unlock()
	}()

	return runID, nil
}

func (req StartRunRequest) apply(cfg *config.Config) {
	if req.Threshold != nil {
		cfg.Threshold = *req.Threshold
	}
	if req.Metric != nil {
		cfg.Metric = *req.Metric
	}
	if req.FailurePolicy != nil {
		cfg.FailurePolicy = *req.FailurePolicy
	}
	if req.Parallelism != nil {
		cfg.Parallelism = *req.Parallelism
	}
}

// RunResponse is the JSON form of a run registry record.
type RunResponse struct {
	RunID          string  `json:"run_id"`
	StartedAt      int64   `json:"started_at"`
	FinishedAt     int64   `json:"finished_at,omitempty"`
	GridSize       int     `json:"grid_size"`
	InSampleSeeds  int     `json:"in_sample_seeds"`
	OutSampleSeeds int     `json:"out_sample_seeds"`
	Threshold      float64 `json:"threshold"`
	Metric         string  `json:"metric"`
	Survivors      int     `json:"survivors"`
	FrontSize      int     `json:"front_size"`
	Failures       int     `json:"failures"`
	Status         string  `json:"status"`
}

func toRunResponse(r *domain.SweepRun) RunResponse {
	return RunResponse{
		RunID:          r.RunID,
		StartedAt:      r.StartedAt,
		FinishedAt:     r.FinishedAt,
		GridSize:       r.GridSize,
		InSampleSeeds:  r.InSampleSeeds,
		OutSampleSeeds: r.OutSampleSeeds,
		Threshold:      r.Threshold,
		Metric:         r.Metric,
		Survivors:      r.Survivors,
		FrontSize:      r.FrontSize,
		Failures:       r.Failures,
		Status:         r.Status,
	}
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	runs, err := s.stores.Runs.List(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := make([]RunResponse, len(runs))
	for i, run := range runs {
		resp[i] = toRunResponse(run)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.stores.Runs.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRunResponse(run))
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report, err := reporting.NewGenerator(s.stores.Runs, s.stores.Rows).Generate(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if s.metrics != nil {
		s.metrics.RecordReport()
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(reporting.RenderMarkdown(report)))
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
