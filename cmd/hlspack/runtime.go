package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"log/slog"

	"hlspack/internal/catalog"
	"hlspack/internal/config"
	"hlspack/internal/logging"
	"hlspack/internal/pipeline"
	"hlspack/internal/preflight"
	"hlspack/internal/services/cdn"
	"hlspack/internal/services/gcs"
)

// newPipeline builds the packaging pipeline. It is a package-level variable
// so tests can wrap it to inject stub probe and encode runners.
var newPipeline = pipeline.New

// newUploader and newInvalidator connect to Google Cloud. Package-level so
// tests never dial real services.
var (
	newUploader = func(ctx context.Context, cfg *config.Config) (gcs.Uploader, error) {
		return gcs.New(ctx, cfg.Upload.Bucket, cfg.Upload.Prefix,
			gcs.WithCredentialsFile(cfg.Upload.CredentialsFile))
	}
	newInvalidator = func(ctx context.Context, cfg *config.Config) (cdn.Invalidator, error) {
		return cdn.New(ctx, cfg.CDN.Project, cfg.CDN.URLMap, cfg.CDN.PathPrefix,
			cdn.WithCredentialsFile(cfg.Upload.CredentialsFile))
	}
)

// newRunLogger builds the logger packaging commands write through and prunes
// expired daily log files.
func newRunLogger(cfg *config.Config) (*slog.Logger, error) {
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	logging.PruneOldLogs(logger, cfg.Paths.LogDir, cfg.Logging.RetainDays)
	return logger, nil
}

// buildPipeline assembles a pipeline with the catalog and any enabled
// publishing integrations. The returned cleanup releases client connections.
func buildPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger, store *catalog.Store) (*pipeline.Pipeline, func(), error) {
	opts := []pipeline.Option{pipeline.WithCatalog(store)}
	cleanup := func() {}

	if cfg.Upload.Enabled {
		uploader, err := newUploader(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, pipeline.WithUploader(uploader))
		cleanup = func() { _ = uploader.Close() }

		if cfg.CDN.Enabled {
			invalidator, err := newInvalidator(ctx, cfg)
			if err != nil {
				cleanup()
				return nil, nil, err
			}
			opts = append(opts, pipeline.WithInvalidator(invalidator))
		}
	}

	return newPipeline(cfg, logger, opts...), cleanup, nil
}

// signalContext cancels on SIGINT/SIGTERM so in-flight ffmpeg processes are
// torn down instead of orphaned.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// runEnvironment bundles everything a packaging command needs: the logger,
// the run catalog, and a pipeline wired with any enabled publishing clients.
type runEnvironment struct {
	logger   *slog.Logger
	store    *catalog.Store
	pipeline *pipeline.Pipeline
	cleanup  func()
}

// newRunEnvironment validates external requirements and assembles the
// pipeline. Callers must Close the environment when done.
func newRunEnvironment(ctx context.Context, cfg *config.Config) (*runEnvironment, error) {
	logger, err := newRunLogger(cfg)
	if err != nil {
		return nil, err
	}
	if err := preflight.RunBlockers(cfg); err != nil {
		return nil, err
	}
	store, err := catalog.Open(cfg)
	if err != nil {
		return nil, err
	}
	pipe, cleanup, err := buildPipeline(ctx, cfg, logger, store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return &runEnvironment{
		logger:   logger,
		store:    store,
		pipeline: pipe,
		cleanup:  cleanup,
	}, nil
}

func (e *runEnvironment) Close() {
	if e == nil {
		return
	}
	e.cleanup()
	_ = e.store.Close()
}
