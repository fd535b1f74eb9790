package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/feral-file/ff-appimages/internal/adapter"
	"github.com/feral-file/ff-appimages/internal/api/server"
	"github.com/feral-file/ff-appimages/internal/config"
	"github.com/feral-file/ff-appimages/internal/logger"
	"github.com/feral-file/ff-appimages/internal/media/encoder"
	"github.com/feral-file/ff-appimages/internal/media/processor"
	"github.com/feral-file/ff-appimages/internal/media/rasterizer"
	"github.com/feral-file/ff-appimages/internal/media/source"
	"github.com/feral-file/ff-appimages/internal/media/transformer"
	"github.com/feral-file/ff-appimages/internal/registry"
	"github.com/feral-file/ff-appimages/internal/store"
	"github.com/feral-file/ff-appimages/internal/sweeper"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadAPIConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": "appimages-api",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting app images API")

	// Initialize adapters
	fs := adapter.NewFileSystem()
	jsonAdapter := adapter.NewJSON()
	clock := adapter.NewClock()
	imageCodec := adapter.NewImageCodec()
	resvgClient := adapter.NewResvgClient()

	// Load platform profiles
	profiles, err := registry.LoadProfiles(fs, jsonAdapter, cfg.ProfilesDir)
	if err != nil {
		logger.FatalCtx(ctx, "Failed to load platform profiles", zap.Error(err), zap.String("dir", cfg.ProfilesDir))
	}
	logger.InfoCtx(ctx, "Loaded platform profiles", zap.Strings("platforms", profiles.Platforms()))

	// Initialize the rendition pipeline
	loader := source.NewLoader(imageCodec, &source.Config{MaxDecodedPixels: cfg.Media.MaxDecodedPixels})
	svgRasterizer := rasterizer.NewRasterizer(resvgClient, &rasterizer.Config{Backend: cfg.Media.VectorBackend})
	imageEncoder := encoder.NewEncoder(imageCodec, &encoder.Config{JPEGQuality: cfg.Media.JPEGQuality})
	imageTransformer := transformer.NewTransformer(cfg.Media, svgRasterizer, imageEncoder)
	defer func() { _ = imageTransformer.Close() }()

	archiveStore := store.NewArchiveStore(fs, clock, cfg.Storage.Dir)

	imageProcessor := processor.NewProcessor(
		processor.Config{
			DefaultPadding:  cfg.Media.DefaultPadding,
			DefaultPlatform: cfg.DefaultPlatform,
			FailFast:        cfg.Media.FailFast,
		},
		loader,
		profiles,
		imageTransformer,
		archiveStore,
		jsonAdapter,
		clock,
	)

	// Start the archive retention sweeper
	var retentionSweeper sweeper.Sweeper
	if cfg.Sweeper.Enabled {
		retentionSweeper = sweeper.NewArchiveRetentionSweeper(
			&sweeper.ArchiveRetentionSweeperConfig{
				Interval:       cfg.Sweeper.Interval,
				Retention:      cfg.Storage.Retention,
				WorkerPoolSize: cfg.Sweeper.PoolSize,
			},
			archiveStore,
			clock,
		)
		go func() {
			if err := retentionSweeper.Start(ctx); err != nil {
				logger.ErrorCtx(ctx, err, zap.String("component", retentionSweeper.Name()))
			}
		}()
	}

	// Create server
	srv := server.New(server.Config{
		Debug:          cfg.Debug,
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:    time.Duration(cfg.Server.IdleTimeout) * time.Second,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	}, imageProcessor, archiveStore)

	// Start server in a goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(ctx); err != nil {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "server"))
	}

	// Create shutdown context with timeout (don't use canceled ctx)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	logger.InfoCtx(shutdownCtx, "Shutting down server...")

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorCtx(shutdownCtx, err, zap.String("component", "server"))
	}

	if retentionSweeper != nil {
		if err := retentionSweeper.Stop(shutdownCtx); err != nil {
			logger.ErrorCtx(shutdownCtx, err, zap.String("component", retentionSweeper.Name()))
		}
	}
	cancel()

	// Use non-context logger for final message since original ctx is canceled
	logger.Info("API server stopped")
}
