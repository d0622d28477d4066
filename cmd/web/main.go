// Command web loads the dataset once and serves the pipeline's output tables
// and diagnostics as JSON. Repeated requests hit the memoized result; the
// pipeline only re-runs if the inputs or parameters change.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"emsrates/internal/config"
	"emsrates/internal/dataprocessing"
	"emsrates/internal/infrastructure"
	"emsrates/internal/memo"
	"emsrates/internal/pipeline"
	transport "emsrates/internal/transport/http"
)

// memoizedProvider answers every request from the cache, keyed on a content
// fingerprint of the loaded inputs plus the run parameters.
type memoizedProvider struct {
	key      memo.Key
	cache    *memo.Cache[*pipeline.Result]
	pipeline *pipeline.Pipeline
	dataset  pipeline.Dataset
}

func (m *memoizedProvider) Result() (*pipeline.Result, error) {
	return m.cache.Do(m.key, func() (*pipeline.Result, error) {
		return m.pipeline.Run(context.Background(), m.dataset)
	})
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
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

	ctx := context.Background()

	inputs, err := dataprocessing.LoadInputs(ctx, cfg.Paths, cfg.Pipeline.DriveLink)
	if err != nil {
		logger.Error("failed to load inputs", "error", err)
		os.Exit(1)
	}

	params := pipeline.Params{Seed: cfg.Pipeline.Seed, Strict: cfg.Pipeline.Strict}
	provider := &memoizedProvider{
		key: memo.Fingerprint(
			inputs.IncidentData,
			inputs.CensusData,
			inputs.SexTotalData,
			memo.Uint64Part(params.Seed),
			memo.BoolPart(params.Strict),
		),
		cache:    memo.NewCache[*pipeline.Result](),
		pipeline: pipeline.New(params, logger),
		dataset: pipeline.Dataset{
			Incidents: inputs.Incidents,
			Census:    inputs.Census,
			SexTotals: inputs.SexTotals,
		},
	}

	// Warm the cache so startup fails loudly on bad data rather than on the
	// first request.
	if _, err := provider.Result(); err != nil {
		logger.Error("initial pipeline run failed", "error", err)
		os.Exit(1)
	}

	router := transport.NewRouter(provider, cfg.Server, logger)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("serving tables", slog.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}
