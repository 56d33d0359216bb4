package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"fleetopt/internal/metrics"
	"fleetopt/internal/model"
	"fleetopt/internal/opt"
	"fleetopt/internal/store"
)

// SolveRequest is the body of POST /v1/solve and POST /v1/runs.
type SolveRequest struct {
	Problem      json.RawMessage `json:"problem"`
	Options      *SolveParams    `json:"options,omitempty"`
	NotifyURL    string          `json:"notifyUrl,omitempty"`
	NotifySecret string          `json:"notifySecret,omitempty"`
}

// SolveParams are the caller-tunable search knobs. Omitted fields fall back
// to the server's configured defaults.
type SolveParams struct {
	Threads          int   `json:"threads,omitempty"`
	ExplorationLevel *int  `json:"explorationLevel,omitempty"`
	TimeLimitMs      int64 `json:"timeLimitMs,omitempty"`
	Seed             int64 `json:"seed,omitempty"`
	IterationsLimit  int   `json:"iterationsLimit,omitempty"`
}

func (s *Server) solveOptions(p *SolveParams) opt.SolveOptions {
	opts := opt.SolveOptions{
		Threads:          s.Cfg.Solve.Threads,
		ExplorationLevel: s.Cfg.Solve.ExplorationLevel,
		TimeLimit:        s.Cfg.Solve.TimeLimit,
	}
	if p == nil {
		return opts
	}
	if p.Threads > 0 {
		opts.Threads = p.Threads
	}
	if p.ExplorationLevel != nil {
		opts.ExplorationLevel = *p.ExplorationLevel
	}
	if p.TimeLimitMs > 0 {
		tl := time.Duration(p.TimeLimitMs) * time.Millisecond
		if tl > s.Cfg.Solve.TimeLimit {
			tl = s.Cfg.Solve.TimeLimit
		}
		opts.TimeLimit = tl
	}
	opts.Seed = p.Seed
	opts.IterationsLimit = p.IterationsLimit
	return opts
}

func (s *Server) observeSolve(m opt.Metrics, sol *model.SolutionDoc, took time.Duration) {
	metrics.SolveRuns.WithLabelValues("done").Inc()
	metrics.SolveDuration.Observe(took.Seconds())
	metrics.SolveUnassigned.Observe(float64(len(sol.Unassigned)))
	metrics.RepairOutcomes.WithLabelValues("kept").Add(float64(m.Repair.Kept))
	metrics.RepairOutcomes.WithLabelValues("densified").Add(float64(m.Repair.Densified))
	metrics.RepairOutcomes.WithLabelValues("reduced").Add(float64(m.Repair.Reduced))
	metrics.RepairOutcomes.WithLabelValues("dropped").Add(float64(m.Repair.Dropped))
}

// SolveHandler handles POST /v1/solve: synchronous solve, solution in the
// response body.
func (s *Server) SolveHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p := s.getPrincipal(r)
	if !p.CanSolve() {
		writeProblem(w, 403, "Forbidden", "operator or admin required", r.URL.Path)
		return
	}
	var req SolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := validateSolveRequest(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid solve request", err.Error(), r.URL.Path)
		return
	}
	var doc model.ProblemDoc
	if err := json.Unmarshal(req.Problem, &doc); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid problem", err.Error(), r.URL.Path)
		return
	}

	started := time.Now()
	in, err := opt.BuildInput(&doc)
	var sol *model.SolutionDoc
	var m opt.Metrics
	if err == nil {
		sol, m, err = opt.Solve(in, s.solveOptions(req.Options))
	}
	if err != nil {
		var ie *opt.InputError
		if errors.As(err, &ie) {
			metrics.SolveRuns.WithLabelValues("invalid").Inc()
			writeProblem(w, http.StatusUnprocessableEntity, "Unsolvable problem", err.Error(), r.URL.Path)
			return
		}
		metrics.SolveRuns.WithLabelValues("failed").Inc()
		writeProblem(w, http.StatusInternalServerError, "Solve failed", err.Error(), r.URL.Path)
		return
	}
	s.observeSolve(m, sol, time.Since(started))
	writeJSON(w, http.StatusOK, sol)
}

// RunsHandler handles POST/GET /v1/runs. POST enqueues an asynchronous solve
// and returns 202; progress is available on /v1/runs/{id} and its /stream.
func (s *Server) RunsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		p := s.getPrincipal(r)
		if !p.CanSolve() {
			writeProblem(w, 403, "Forbidden", "operator or admin required", r.URL.Path)
			return
		}
		var req SolveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if err := validateSolveRequest(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid solve request", err.Error(), r.URL.Path)
			return
		}
		var doc model.ProblemDoc
		if err := json.Unmarshal(req.Problem, &doc); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid problem", err.Error(), r.URL.Path)
			return
		}
		run := store.Run{
			ID:           uuid.NewString(),
			Status:       store.RunQueued,
			Problem:      req.Problem,
			NotifyURL:    req.NotifyURL,
			NotifySecret: req.NotifySecret,
			CreatedAt:    time.Now().UTC(),
		}
		if err := s.Store.CreateRun(r.Context(), run); err != nil {
			writeProblem(w, http.StatusInternalServerError, "Create run failed", err.Error(), r.URL.Path)
			return
		}
		go s.executeRun(run, &doc, s.solveOptions(req.Options))
		writeJSON(w, http.StatusAccepted, map[string]string{"id": run.ID, "status": run.Status})
	case http.MethodGet:
		status := r.URL.Query().Get("status")
		cursor := r.URL.Query().Get("cursor")
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" {
			fmt.Sscanf(v, "%d", &limit)
		}
		items, next, err := s.Store.ListRuns(r.Context(), status, cursor, limit)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List runs failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// RunByIDHandler handles GET /v1/runs/{id}, /v1/runs/{id}/metrics and
// GET /v1/runs/{id}/stream (websocket).
func (s *Server) RunByIDHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/runs/")
	if rest == r.URL.Path || rest == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing id", r.URL.Path)
		return
	}
	parts := strings.Split(rest, "/")
	id := parts[0]
	if len(parts) > 1 && parts[1] == "stream" {
		s.RunStreamHandler(w, r, id)
		return
	}
	if len(parts) > 1 && parts[1] == "metrics" {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		m, ok := opt.GetMetrics(id)
		if !ok {
			writeProblem(w, http.StatusNotFound, "Run metrics not found", "", r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"iterations":     m.Iterations,
			"improvements":   m.Improvements,
			"acceptedWorse":  m.AcceptedWorse,
			"bestCost":       m.BestCost,
			"unassigned":     m.Unassigned,
			"removalSelects": []int{m.RemovalSelects[0], m.RemovalSelects[1]},
			"insertSelects":  []int{m.InsertSelects[0], m.InsertSelects[1]},
			"repair": map[string]int{
				"kept":      m.Repair.Kept,
				"densified": m.Repair.Densified,
				"reduced":   m.Repair.Reduced,
				"dropped":   m.Repair.Dropped,
			},
		})
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	run, err := s.Store.GetRun(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Run not found", "", r.URL.Path)
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Get run failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// executeRun drives one queued run to completion in the background. Stream
// subscribers get run.running/run.done/run.failed events; a notifyUrl gets
// the same payload through the webhook queue.
func (s *Server) executeRun(run store.Run, doc *model.ProblemDoc, opts opt.SolveOptions) {
	ctx := context.Background()
	_ = s.Store.StartRun(ctx, run.ID)
	s.Broker.Publish(run.ID, Event{Type: "run.running", Data: map[string]any{"runId": run.ID}})

	started := time.Now()
	in, err := opt.BuildInput(doc)
	var sol *model.SolutionDoc
	var m opt.Metrics
	if err == nil {
		sol, m, err = opt.Solve(in, opts)
	}
	ms := time.Since(started).Milliseconds()
	if err != nil {
		status := "failed"
		var ie *opt.InputError
		if errors.As(err, &ie) {
			status = "invalid"
		}
		metrics.SolveRuns.WithLabelValues(status).Inc()
		_ = s.Store.CompleteRun(ctx, run.ID, store.RunFailed, nil, err.Error(), ms)
		data := map[string]any{"runId": run.ID, "error": err.Error()}
		s.Broker.Publish(run.ID, Event{Type: "run.failed", Data: data})
		run.Status = store.RunFailed
		s.Pub.EmitRun(ctx, run, "run.failed", data)
		return
	}

	opt.RecordMetrics(run.ID, m)
	body, _ := json.Marshal(sol)
	_ = s.Store.CompleteRun(ctx, run.ID, store.RunDone, body, "", ms)
	s.observeSolve(m, sol, time.Duration(ms)*time.Millisecond)
	data := map[string]any{
		"runId":      run.ID,
		"cost":       sol.Summary.Cost,
		"routes":     len(sol.Routes),
		"unassigned": len(sol.Unassigned),
		"solvingMs":  ms,
	}
	s.Broker.Publish(run.ID, Event{Type: "run.done", Data: data})
	run.Status = store.RunDone
	s.Pub.EmitRun(ctx, run, "run.done", data)
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
	defer cancel()
	if err := s.Store.Ping(ctx); err != nil {
		writeProblem(w, 503, "Not Ready", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, 200, map[string]string{"status": "ready"})
}
