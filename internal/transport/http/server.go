// Package http serves the pipeline's output tables and diagnostics as JSON
// for the visualization layer. The surface is read-only: every request is
// answered from the memoized pipeline result, never by re-running stages.
package http

import (
	"log/slog"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"emsrates/internal/config"
	"emsrates/internal/pipeline"
)

// ResultProvider yields the current pipeline result. cmd/web backs this with
// the memoization cache.
type ResultProvider interface {
	Result() (*pipeline.Result, error)
}

// NewRouter builds the chi router for the table-serving surface.
func NewRouter(provider ResultProvider, cfg config.ServerConfig, logger *slog.Logger) chi.Router {
	if logger == nil {
		logger = slog.Default()
	}

	h := &handler{provider: provider, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.RateLimitRPS > 0 {
		r.Use(throttle(cfg.RateLimitRPS, cfg.RateLimitBurst))
	}

	r.Get("/healthz", h.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/summary", h.summary)
		r.Get("/incidents", h.incidents)
		r.Get("/population", h.population)
		r.Get("/rates", h.rates)
		r.Get("/diagnostics", h.diagnostics)
	})

	return r
}

type handler struct {
	provider ResultProvider
	logger   *slog.Logger
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

func (h *handler) result(w http.ResponseWriter, r *http.Request) (*pipeline.Result, bool) {
	res, err := h.provider.Result()
	if err != nil {
		h.logger.Error("pipeline result unavailable", slog.String("error", err.Error()))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]string{"error": err.Error()})
		return nil, false
	}
	return res, true
}

func (h *handler) incidents(w http.ResponseWriter, r *http.Request) {
	res, ok := h.result(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, res.Incidents)
}

func (h *handler) population(w http.ResponseWriter, r *http.Request) {
	res, ok := h.result(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, res.Population.Cells())
}

func (h *handler) rates(w http.ResponseWriter, r *http.Request) {
	res, ok := h.result(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, res.Rates)
}

func (h *handler) diagnostics(w http.ResponseWriter, r *http.Request) {
	res, ok := h.result(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, res.Diagnostics)
}

// summary mirrors the source dashboard's overview page: row count plus the
// years and divisions present.
func (h *handler) summary(w http.ResponseWriter, r *http.Request) {
	res, ok := h.result(w, r)
	if !ok {
		return
	}

	yearSet := make(map[int]bool)
	divisionSet := make(map[string]bool)
	for _, rec := range res.Incidents {
		if rec.Year != nil {
			yearSet[*rec.Year] = true
		}
		if rec.USCensusDivision != "" {
			divisionSet[rec.USCensusDivision] = true
		}
	}

	years := make([]int, 0, len(yearSet))
	for y := range yearSet {
		years = append(years, y)
	}
	divisions := make([]string, 0, len(divisionSet))
	for d := range divisionSet {
		divisions = append(divisions, d)
	}
	sort.Ints(years)
	sort.Strings(divisions)

	render.JSON(w, r, map[string]interface{}{
		"run_id":           res.RunID,
		"rows":             len(res.Incidents),
		"years":            years,
		"divisions":        divisions,
		"population_cells": res.Population.Len(),
		"rate_cells":       len(res.Rates),
	})
}
