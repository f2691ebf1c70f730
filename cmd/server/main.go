package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/unalkalkan/pdf2epub/internal/api"
	"github.com/unalkalkan/pdf2epub/internal/config"
	"github.com/unalkalkan/pdf2epub/internal/conversion"
	"github.com/unalkalkan/pdf2epub/internal/extract"
	"github.com/unalkalkan/pdf2epub/internal/health"
	"github.com/unalkalkan/pdf2epub/internal/logging"
	"github.com/unalkalkan/pdf2epub/internal/packaging"
	"github.com/unalkalkan/pdf2epub/internal/pipeline"
	"github.com/unalkalkan/pdf2epub/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const version = "0.1.0"

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "", "Path to configuration file (defaults and P2E_* environment when empty)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "pdf2epub-server: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	// Load configuration
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("starting pdf2epub server",
		zap.String("version", version),
		zap.String("config", configPath))

	// Initialize storage adapter
	storageAdapter, err := storage.NewAdapter(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to create storage adapter: %w", err)
	}
	defer storageAdapter.Close()
	logger.Info("storage adapter initialized", zap.String("adapter", cfg.Storage.Adapter))

	extractors := extract.NewFactory(logger)
	service := conversion.NewService(
		conversion.NewRepository(storageAdapter),
		extractors,
		pipeline.New(logger, cfg.Conversion.LeadingTitle),
		packaging.NewService(cfg.Conversion.NavTitle, cfg.Conversion.FlatNavLabel),
		cfg.Conversion,
		logger,
	)

	// Initialize health checks
	healthHandler := health.NewHandler(version)
	healthHandler.Register("storage", true, health.StorageCheck(cfg.Storage.Adapter, storageAdapter.Exists))
	healthHandler.Register("extractors", false, health.FormatCheck(func(format string) error {
		_, err := extractors.GetExtractor(format)
		return err
	}, "pdf", "txt"))

	router := api.NewRouter(
		api.NewConversionHandler(service, cfg.Conversion.MaxUploadMB, logger),
		healthHandler,
		logger,
	)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
