package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"solana-token-selector/internal/domain"
	"solana-token-selector/internal/job"
	"solana-token-selector/internal/observability"
	"solana-token-selector/internal/storage"
)

const (
	defaultRunsLimit   = 20
	maxRunsLimit       = 500
	healthCheckTimeout = 2 * time.Second
)

// healthCheck reports whether a dependency is reachable.
type healthCheck func(ctx context.Context) error

// server exposes health, metrics, job status, run history and manual triggers.
type server struct {
	http    *http.Server
	jobs    map[string]*job.Supervisor
	order   []string
	history storage.SelectionRunStore // nil when history is disabled
	checks  map[string]healthCheck
	started time.Time
	logger  *zap.Logger

	// triggerCtx parents runs started via /trigger.
	triggerCtx context.Context
}

func newServer(addr string, jobs []*job.Supervisor, history storage.SelectionRunStore, checks map[string]healthCheck, logger *zap.Logger) *server {
	s := &server{
		jobs:       make(map[string]*job.Supervisor, len(jobs)),
		history:    history,
		checks:     checks,
		started:    time.Now(),
		logger:     logger,
		triggerCtx: context.Background(),
	}
	for _, j := range jobs {
		s.jobs[j.Name()] = j
		s.order = append(s.order, j.Name())
	}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)

	// Prometheus metrics
	mux.Handle("/metrics", observability.Handler())

	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/runs", s.handleRuns)
	mux.HandleFunc("/trigger", s.handleTrigger)

	return mux
}

// run serves until ctx is done, then shuts down gracefully.
func (s *server) run(ctx context.Context) error {
	s.triggerCtx = ctx

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", zap.String("addr", s.http.Addr))
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("HTTP server shutdown", zap.Error(err))
		}
		return ctx.Err()
	}
}

// handleHealth pings every dependency; any failure is a 503.
func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	var failures []string
	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := s.checks[name](ctx)
		cancel()
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", name, err))
		}
	}

	if len(failures) > 0 {
		s.logger.Warn("health check failed", zap.Strings("failures", failures))
		http.Error(w, "unhealthy\n"+strings.Join(failures, "\n"), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// StatusResponse is the JSON response for the /status endpoint.
type StatusResponse struct {
	Status string      `json:"status"`
	Uptime string      `json:"uptime"`
	Jobs   []JobStatus `json:"jobs"`
}

// JobStatus describes one supervised job.
type JobStatus struct {
	Name         string     `json:"name"`
	State        string     `json:"state"`
	Runs         int        `json:"runs"`
	LastStatus   string     `json:"last_status,omitempty"`
	LastRunID    string     `json:"last_run_id,omitempty"`
	LastAttempts int        `json:"last_attempts,omitempty"`
	LastError    string     `json:"last_error,omitempty"`
	LastStarted  *time.Time `json:"last_started,omitempty"`
	LastDuration string     `json:"last_duration,omitempty"`
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status: "running",
		Uptime: time.Since(s.started).Round(time.Second).String(),
		Jobs:   make([]JobStatus, 0, len(s.order)),
	}
	for _, name := range s.order {
		resp.Jobs = append(resp.Jobs, toJobStatus(s.jobs[name].Status()))
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func toJobStatus(st job.Status) JobStatus {
	js := JobStatus{
		Name:  st.Job,
		State: string(st.State),
		Runs:  st.Runs,
	}
	if last := st.Last; last != nil {
		started := last.StartedAt
		js.LastStatus = string(last.Status)
		js.LastRunID = last.RunID
		js.LastAttempts = last.Attempts
		js.LastStarted = &started
		js.LastDuration = last.Duration().String()
		if last.Err != nil {
			js.LastError = last.Err.Error()
		}
	}
	return js
}

// handleTrigger starts an out-of-band run: POST /trigger?job=selection.
func (s *server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := r.URL.Query().Get("job")
	sup, ok := s.jobs[name]
	if !ok {
		http.Error(w, "unknown job", http.StatusNotFound)
		return
	}
	if !job.Trigger(s.triggerCtx, sup) {
		http.Error(w, "job already running", http.StatusConflict)
		return
	}

	s.logger.Info("job triggered via HTTP", zap.String("job", name))
	w.WriteHeader(http.StatusAccepted)
}

// RunRecord is one selection attempt in the /runs response.
type RunRecord struct {
	RunID           string    `json:"run_id"`
	Attempt         int       `json:"attempt"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	Status          string    `json:"status"`
	Listings        int       `json:"listings"`
	CoarseSurvivors int       `json:"coarse_survivors"`
	FineSurvivors   int       `json:"fine_survivors"`
	Selected        int       `json:"selected"`
	Created         int       `json:"created"`
	Activated       int       `json:"activated"`
	Deactivated     int       `json:"deactivated"`
	Unchanged       int       `json:"unchanged"`
	Error           string    `json:"error,omitempty"`
}

func toRunRecord(r *domain.SelectionRun) RunRecord {
	return RunRecord{
		RunID:           r.RunID,
		Attempt:         r.Attempt,
		StartedAt:       time.UnixMilli(r.StartedAt).UTC(),
		FinishedAt:      time.UnixMilli(r.FinishedAt).UTC(),
		Status:          string(r.Status),
		Listings:        r.Listings,
		CoarseSurvivors: r.CoarseSurvivors,
		FineSurvivors:   r.FineSurvivors,
		Selected:        r.Selected,
		Created:         r.Created,
		Activated:       r.Activated,
		Deactivated:     r.Deactivated,
		Unchanged:       r.Unchanged,
		Error:           r.Error,
	}
}

// handleRuns returns recent selection attempts, newest first: GET /runs?limit=20.
func (s *server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.history == nil {
		http.Error(w, "run history disabled", http.StatusNotFound)
		return
	}

	limit := defaultRunsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxRunsLimit)
	}

	runs, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("load run history", zap.Error(err))
		http.Error(w, "failed to load run history", http.StatusInternalServerError)
		return
	}

	records := make([]RunRecord, 0, len(runs))
	for _, run := range runs {
		records = append(records, toRunRecord(run))
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(records)
}
