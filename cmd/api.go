package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/fundscan/internal/collect"
	"github.com/sells-group/fundscan/internal/model"
	"github.com/sells-group/fundscan/internal/pipeline"
	"github.com/sells-group/fundscan/internal/provider"
	"github.com/sells-group/fundscan/internal/resilience"
	"github.com/sells-group/fundscan/internal/store"
)

// analyzer is the subset of the pipeline the API needs.
type analyzer interface {
	Run(ctx context.Context, req model.AnalyzeRequest) (*model.Report, error)
	Tasks() []string
	Timeout() time.Duration
}

// apiDeps are the collaborators of the HTTP API. Store may be nil.
type apiDeps struct {
	Analyzer    analyzer
	Searcher    provider.Searcher
	Store       store.Store
	Breakers    *resilience.Breakers
	CORSOrigins []string
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

// buildRouter wires the API routes.
func buildRouter(d apiDeps) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(d.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   d.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", d.handleHealth)
		r.Post("/search", d.handleSearch)
		r.Post("/analyze", d.handleAnalyze)
		r.Get("/runs", d.handleListRuns)
		r.Get("/runs/{id}", d.handleGetRun)
	})
	return r
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			zap.L().Error("api: failed to encode response", zap.Error(err))
		}
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func (d apiDeps) handleHealth(w http.ResponseWriter, _ *http.Request) {
	stages := make([]string, len(pipeline.Stages))
	for i, s := range pipeline.Stages {
		stages[i] = string(s)
	}
	body := map[string]any{
		"status":  "healthy",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"stages":  stages,
		"history": d.Store != nil,
	}
	if d.Breakers != nil {
		body["providers"] = d.Breakers.Snapshot()
	}
	if d.Analyzer != nil {
		body["tasks"] = d.Analyzer.Tasks()
		body["timeout_secs"] = int(d.Analyzer.Timeout().Seconds())
	}
	respondJSON(w, http.StatusOK, body)
}

func (d apiDeps) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if d.Searcher == nil {
		respondError(w, http.StatusServiceUnavailable, "search is not configured")
		return
	}

	results, err := collect.SearchProfiles(r.Context(), d.Searcher, req.Query, req.Limit)
	if err != nil {
		if errors.Is(err, collect.ErrEmptyQuery) {
			respondError(w, http.StatusBadRequest, "query is required")
			return
		}
		zap.L().Error("api: search failed", zap.String("query", req.Query), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "search failed")
		return
	}
	respondJSON(w, http.StatusOK, model.SearchResponse{Query: req.Query, Results: results, Count: len(results)})
}

func (d apiDeps) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req model.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if d.Analyzer == nil {
		respondError(w, http.StatusServiceUnavailable, "analysis is not configured")
		return
	}

	report, err := d.Analyzer.Run(r.Context(), req)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, report)
	case errors.Is(err, pipeline.ErrInvalidRequest):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, pipeline.ErrPipelineTimeout):
		respondError(w, http.StatusGatewayTimeout, "analysis timed out")
	default:
		zap.L().Error("api: analysis failed", zap.String("company_url", req.CompanyURL), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "analysis failed: "+err.Error())
	}
}

func (d apiDeps) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if d.Store == nil {
		respondError(w, http.StatusServiceUnavailable, "run history is disabled")
		return
	}

	q := r.URL.Query()
	filter := store.RunFilter{
		Status:     model.RunStatus(q.Get("status")),
		CompanyURL: q.Get("company_url"),
	}
	var err error
	if v := q.Get("limit"); v != "" {
		if filter.Limit, err = strconv.Atoi(v); err != nil || filter.Limit < 0 {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
	}
	if v := q.Get("offset"); v != "" {
		if filter.Offset, err = strconv.Atoi(v); err != nil || filter.Offset < 0 {
			respondError(w, http.StatusBadRequest, "invalid offset")
			return
		}
	}

	runs, err := d.Store.ListRuns(r.Context(), filter)
	if err != nil {
		zap.L().Error("api: list runs failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "list runs failed")
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (d apiDeps) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if d.Store == nil {
		respondError(w, http.StatusServiceUnavailable, "run history is disabled")
		return
	}

	id := chi.URLParam(r, "id")
	run, err := d.Store.GetRun(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "run not found")
			return
		}
		zap.L().Error("api: get run failed", zap.String("run_id", id), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "get run failed")
		return
	}

	phases, err := d.Store.ListPhases(r.Context(), id)
	if err != nil {
		zap.L().Warn("api: list phases failed", zap.String("run_id", id), zap.Error(err))
	}
	if phases == nil {
		phases = []model.RunPhase{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"run": run, "phases": phases})
}
