// Package pipeline runs the analytical core end to end: cleaning, stochastic
// age imputation, population denominator construction, and rate
// normalization. The stages run strictly sequentially over an immutable
// dataset context; each run produces fresh output tables and a structured
// diagnostics bundle.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"emsrates/internal/census"
	"emsrates/internal/cleaning"
	"emsrates/internal/imputation"
	"emsrates/internal/rates"
	"emsrates/pkg/contracts/domain"
)

// Dataset is the immutable input context: everything a run reads, constructed
// once and never mutated by the stages.
type Dataset struct {
	Incidents []domain.IncidentRecord
	Census    []domain.CensusExtractRow
	SexTotals []domain.SexTotalRow
}

// Params are the run parameters. They participate in memoization keys, so
// anything that changes the output belongs here.
type Params struct {
	// Seed drives the imputation noise source.
	Seed uint64
	// Strict makes census reconciliation defects fatal.
	Strict bool
}

// Diagnostics bundles every stage report so a calling UI or test harness can
// inspect the run instead of trusting log output.
type Diagnostics struct {
	Nulls          cleaning.NullReport          `json:"nulls"`
	Dedup          cleaning.DedupReport         `json:"dedup"`
	Imputation     *imputation.Report           `json:"imputation,omitempty"`
	Reconciliation *census.ReconciliationReport `json:"reconciliation,omitempty"`
	JoinGaps       *rates.JoinGapReport         `json:"join_gaps,omitempty"`
}

// Result is one complete run: the three output tables plus diagnostics.
type Result struct {
	RunID       string                  `json:"run_id"`
	Incidents   []domain.IncidentRecord `json:"incidents"`
	Population  *domain.PopulationTable `json:"-"`
	Rates       []domain.RateRecord     `json:"rates"`
	Diagnostics Diagnostics             `json:"diagnostics"`
	Elapsed     time.Duration           `json:"elapsed"`
}

// Pipeline executes the stages. It holds no mutable state between runs.
type Pipeline struct {
	params    Params
	alignment rates.Alignment
	logger    *slog.Logger
}

// New creates a pipeline with the default label alignment.
func New(params Params, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		params:    params,
		alignment: rates.DefaultAlignment(),
		logger:    logger,
	}
}

// Run executes all stages over ds. Stage failures are terminal: the error
// names the failing stage and carries the stage's key context.
func (p *Pipeline) Run(ctx context.Context, ds Dataset) (*Result, error) {
	start := time.Now()
	runID := uuid.New().String()
	logger := p.logger.With(slog.String("run_id", runID))

	logger.InfoContext(ctx, "pipeline run starting",
		slog.Int("incident_rows", len(ds.Incidents)),
		slog.Int("census_rows", len(ds.Census)),
		slog.Uint64("seed", p.params.Seed))
	rowsIn.Add(float64(len(ds.Incidents)))

	result := &Result{RunID: runID}

	// Cleaning: sentinel normalization first so duplicate grouping sees
	// normalized labels, then deduplication.
	stageStart := time.Now()
	normalized, nullReport := cleaning.NormalizeNulls(ds.Incidents)
	deduped, dedupReport := cleaning.Deduplicate(normalized)
	result.Diagnostics.Nulls = nullReport
	result.Diagnostics.Dedup = dedupReport
	rowsDropped.Add(float64(dedupReport.InputRows - dedupReport.OutputRows))
	stageDuration.WithLabelValues("cleaning").Observe(time.Since(stageStart).Seconds())

	// Imputation.
	stageStart = time.Now()
	imputer := imputation.NewImputer(p.params.Seed, logger)
	imputed, impReport, err := imputer.Impute(ctx, deduped)
	if err != nil {
		runFailures.Inc()
		return nil, fmt.Errorf("imputation stage: %w", err)
	}
	result.Incidents = imputed
	result.Diagnostics.Imputation = impReport
	agesImputed.Add(float64(impReport.ImputedRows))
	stageDuration.WithLabelValues("imputation").Observe(time.Since(stageStart).Seconds())

	// Population denominators.
	stageStart = time.Now()
	builder := census.NewBuilder(p.params.Strict, logger)
	table, reconReport, err := builder.Build(ds.Census, ds.SexTotals)
	result.Diagnostics.Reconciliation = reconReport
	if err != nil {
		runFailures.Inc()
		return nil, fmt.Errorf("census stage: %w", err)
	}
	result.Population = table
	stageDuration.WithLabelValues("census").Observe(time.Since(stageStart).Seconds())

	// Rate normalization.
	stageStart = time.Now()
	normalizer := rates.NewNormalizer(p.alignment, logger)
	rateRecords, gapReport := normalizer.Compute(imputed, table)
	result.Rates = rateRecords
	result.Diagnostics.JoinGaps = gapReport
	joinGaps.Add(float64(len(gapReport.Gaps)))
	stageDuration.WithLabelValues("rates").Observe(time.Since(stageStart).Seconds())

	result.Elapsed = time.Since(start)
	runsTotal.Inc()
	logger.InfoContext(ctx, "pipeline run complete",
		slog.Int("clean_rows", len(imputed)),
		slog.Int("population_cells", table.Len()),
		slog.Int("rate_cells", len(rateRecords)),
		slog.Duration("elapsed", result.Elapsed))
	return result, nil
}
