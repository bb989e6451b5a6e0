package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dunamismax/imagemin/internal/api"
	"github.com/dunamismax/imagemin/internal/batch"
	"github.com/dunamismax/imagemin/internal/config"
	"github.com/dunamismax/imagemin/internal/domain"
	"github.com/dunamismax/imagemin/internal/logger"
	"github.com/dunamismax/imagemin/internal/pipeline"
	"github.com/dunamismax/imagemin/internal/prefs"
	"github.com/dunamismax/imagemin/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// app wires the core packages for every subcommand.
type app struct {
	cfg        config.Config
	log        *logrus.Logger
	registry   *prometheus.Registry
	store      prefs.Store
	outputDirs *prefs.OutputDirs
	processor  *pipeline.Processor
	runner     *batch.Runner
	choice     domain.FormatChoice
	shutdown   telemetry.Shutdown
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	log, err := logger.NewLogger(logger.Config{
		Level:      cfg.Logging.Level,
		FilePath:   cfg.Logging.FilePath,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
		Compress:   cfg.Logging.Compress,
		Console:    cfg.Logging.Console,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	shutdown, err := telemetry.SetupTracing(ctx, telemetry.TraceConfig{
		Exporter:     cfg.Tracing.Exporter,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		OTLPInsecure: cfg.Tracing.OTLPInsecure,
		Backend:      pipeline.Backend(),
	}, log)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	store, err := prefs.Open(ctx, prefs.Options{
		Backend:     cfg.Prefs.Backend,
		Path:        cfg.Prefs.Path,
		DatabaseURL: cfg.Prefs.DatabaseURL,
	})
	if err != nil {
		log.WithError(err).WithField("backend", cfg.Prefs.Backend).
			Warn("preference store unavailable, output directory changes will not persist")
		store = prefs.NewMemoryStore()
	}

	home, err := os.UserHomeDir()
	if err != nil {
		log.WithError(err).Warn("home directory unknown, using working directory")
		home = "."
	}
	outputDirs := prefs.NewOutputDirs(store, home, log)

	if err := pipeline.Startup(); err != nil {
		_ = store.Close()
		_ = shutdown(ctx)
		return nil, fmt.Errorf("start image backend: %w", err)
	}
	processor, err := pipeline.NewLocalProcessor(outputDirs.Get)
	if err != nil {
		pipeline.Shutdown()
		_ = store.Close()
		_ = shutdown(ctx)
		return nil, err
	}

	policy, _ := batch.ParsePolicy(cfg.Batch.FailurePolicy)
	choice, _ := domain.ParseFormatChoice(cfg.Batch.DefaultFormat)
	registry := api.NewRegistry()

	log.WithFields(logrus.Fields{
		"backend": pipeline.Backend(),
		"prefs":   cfg.Prefs.Backend,
		"policy":  policy,
	}).Debug("imagemin initialized")

	return &app{
		cfg:        cfg,
		log:        log,
		registry:   registry,
		store:      store,
		outputDirs: outputDirs,
		processor:  processor,
		runner:     batch.NewRunner(processor, batch.Options{Policy: policy, Logger: log, Registerer: registry}),
		choice:     choice,
		shutdown:   shutdown,
	}, nil
}

func (a *app) Close(ctx context.Context) {
	pipeline.Shutdown()
	if err := a.store.Close(); err != nil {
		a.log.WithError(err).Warn("close preference store")
	}
	if err := a.shutdown(ctx); err != nil {
		a.log.WithError(err).Warn("flush traces")
	}
}
