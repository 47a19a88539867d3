// Package ui exposes a completed run over HTTP: run summary, per-wave
// scores, and ad hoc scoring of new responses with the run's model.
package ui

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"driftwatch/domain/core"
	"driftwatch/domain/risk"
	"driftwatch/domain/survey"
	"driftwatch/internal"
	"driftwatch/internal/pipeline"
	"driftwatch/ports"
)

// App serves one pipeline result.
type App struct {
	router *chi.Mux
	result *pipeline.Result
	runs   ports.RunRepository // nil when persistence is disabled
	logger *internal.Logger
}

// NewApp creates the HTTP application around a completed run.
func NewApp(result *pipeline.Result, runs ports.RunRepository, logger *internal.Logger) *App {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	app := &App{
		router: chi.NewRouter(),
		result: result,
		runs:   runs,
		logger: logger,
	}
	app.setupMiddleware()
	app.setupRoutes()
	return app
}

// Router returns the HTTP handler.
func (a *App) Router() http.Handler {
	return a.router
}

func (a *App) setupMiddleware() {
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))
}

func (a *App) setupRoutes() {
	a.router.Get("/healthz", a.handleHealth)
	a.router.Get("/api/run", a.handleRunSummary)
	a.router.Get("/api/scores", a.handleScores)
	a.router.Get("/api/scores/{person}", a.handlePersonScores)
	a.router.Post("/api/score", a.handleScoreAdHoc)
	if a.runs != nil {
		a.router.Get("/api/runs", a.handleRunHistory)
	}
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// runSummary is the serialized shape of /api/run.
type runSummary struct {
	RunID           core.RunID           `json:"run_id"`
	Fingerprint     core.SnapshotHash    `json:"fingerprint"`
	Rows            int                  `json:"rows"`
	Persons         int                  `json:"persons"`
	Threshold       float64              `json:"threshold"`
	UsedFallback    bool                 `json:"used_fallback"`
	Metrics         risk.ModelMetrics    `json:"metrics"`
	TopContributors []string             `json:"top_contributors"`
	Fairness        *risk.FairnessReport `json:"fairness,omitempty"`
}

func (a *App) handleRunSummary(w http.ResponseWriter, r *http.Request) {
	res := a.result
	writeJSON(w, http.StatusOK, runSummary{
		RunID:           res.RunID,
		Fingerprint:     res.Fingerprint,
		Rows:            res.Frame.Len(),
		Persons:         len(res.Frame.Persons()),
		Threshold:       res.Trained.Threshold,
		UsedFallback:    res.UsedFallback,
		Metrics:         res.Trained.Metrics,
		TopContributors: res.TopContributors,
		Fairness:        res.Fairness,
	})
}

func (a *App) handleScores(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100)
	scores := a.result.Scored
	if limit > 0 && len(scores) > limit {
		scores = scores[:limit]
	}
	writeJSON(w, http.StatusOK, scores)
}

func (a *App) handlePersonScores(w http.ResponseWriter, r *http.Request) {
	person := core.PersonID(chi.URLParam(r, "person"))
	var out []risk.ScoredWave
	for _, s := range a.result.Scored {
		if s.Person == person {
			out = append(out, s)
		}
	}
	if out == nil {
		writeError(w, http.StatusNotFound, "unknown person")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// scoreRequest is the ad hoc scoring payload: derived column values for one
// response row. Absent columns read as missing and fill to 0 at the
// classifier boundary, exactly as in a batch run.
type scoreRequest struct {
	Person core.PersonID      `json:"person_id"`
	Wave   int                `json:"wave"`
	Values map[string]float64 `json:"values"`
}

func (a *App) handleScoreAdHoc(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Values) == 0 {
		writeError(w, http.StatusBadRequest, "values must not be empty")
		return
	}

	cols := make([]string, 0, len(req.Values))
	for c := range req.Values {
		cols = append(cols, c)
	}
	// Explanation ordering follows column order; map iteration would make it
	// nondeterministic.
	sort.Strings(cols)
	rec := survey.Record{
		Person:  req.Person,
		Wave:    req.Wave,
		Columns: cols,
		Values:  req.Values,
	}
	writeJSON(w, http.StatusOK, a.result.ScoreRecord(rec))
}

func (a *App) handleRunHistory(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	runs, err := a.runs.ListRuns(r.Context(), limit)
	if err != nil {
		a.logger.Error("listing runs: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
