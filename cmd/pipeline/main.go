// Command pipeline runs the full EMS crash-injury transformation once: load,
// clean, impute, build population denominators, join rates, export CSVs.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"emsrates/internal/config"
	"emsrates/internal/dataprocessing"
	"emsrates/internal/exporter"
	"emsrates/internal/infrastructure"
	"emsrates/internal/pipeline"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	incidents := flag.String("incidents", "", "incident CSV (overrides config)")
	censusFile := flag.String("census", "", "census extract CSV or xlsx workbook (overrides config)")
	totals := flag.String("totals", "", "sex totals CSV (overrides config)")
	outDir := flag.String("out", "", "output directory (overrides config)")
	seed := flag.Uint64("seed", 0, "imputation noise seed (0 keeps the configured seed)")
	lenient := flag.Bool("lenient", false, "do not fail on census reconciliation mismatches")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("failed to initialize logger", "error", err)
		os.Exit(1)
	}

	if *incidents != "" {
		cfg.Paths.IncidentFile = *incidents
	}
	if *censusFile != "" {
		cfg.Paths.CensusFile = *censusFile
	}
	if *totals != "" {
		cfg.Paths.SexTotalsFile = *totals
	}
	if *outDir != "" {
		cfg.Paths.OutDir = *outDir
	}
	if *seed != 0 {
		cfg.Pipeline.Seed = *seed
	}
	if *lenient {
		cfg.Pipeline.Strict = false
	}

	ctx := context.Background()

	inputs, err := dataprocessing.LoadInputs(ctx, cfg.Paths, cfg.Pipeline.DriveLink)
	if err != nil {
		logger.Error("failed to load inputs", "error", err)
		os.Exit(1)
	}

	p := pipeline.New(pipeline.Params{
		Seed:   cfg.Pipeline.Seed,
		Strict: cfg.Pipeline.Strict,
	}, logger)

	result, err := p.Run(ctx, pipeline.Dataset{
		Incidents: inputs.Incidents,
		Census:    inputs.Census,
		SexTotals: inputs.SexTotals,
	})
	if err != nil {
		logger.Error("pipeline run failed", "error", err)
		os.Exit(1)
	}

	out := cfg.Paths.OutDir
	if err := exporter.WriteIncidents(filepath.Join(out, "incidents_clean.csv"), result.Incidents); err != nil {
		logger.Error("failed to export incidents", "error", err)
		os.Exit(1)
	}
	if err := exporter.WritePopulation(filepath.Join(out, "population.csv"), result.Population); err != nil {
		logger.Error("failed to export population table", "error", err)
		os.Exit(1)
	}
	if err := exporter.WriteRates(filepath.Join(out, "rates.csv"), result.Rates); err != nil {
		logger.Error("failed to export rates", "error", err)
		os.Exit(1)
	}

	logger.Info("pipeline finished",
		slog.String("run_id", result.RunID),
		slog.Int("clean_rows", len(result.Incidents)),
		slog.Int("imputed_rows", result.Diagnostics.Imputation.ImputedRows),
		slog.Int("rate_cells", len(result.Rates)),
		slog.Int("join_gaps", len(result.Diagnostics.JoinGaps.Gaps)),
		slog.String("out_dir", out))
}
