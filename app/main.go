package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/politrack/disclosures/app/api"
	"github.com/politrack/disclosures/app/breaker"
	"github.com/politrack/disclosures/app/cfg"
	"github.com/politrack/disclosures/app/config"
	"github.com/politrack/disclosures/app/database"
	"github.com/politrack/disclosures/app/pipeline"
	"github.com/politrack/disclosures/app/storage"
	"github.com/politrack/disclosures/app/tasks"
)

// Circuit breaker defaults shared by every source.
const (
	breakerFailureThreshold = 5
	breakerResetTimeout     = 30 * time.Second
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting disclosure pipeline", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBHost, appCfg.DBPort, appCfg.DBUser,
		appCfg.DBPassword, appCfg.DBName)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database migrations applied", "version", version, "dirty", dirty)

	configCache := config.NewConfigCache(appCfg.SourcesDir)
	if err := configCache.Run(); err != nil {
		slog.Error("Failed to load source configurations", "error", err)
		os.Exit(1)
	}
	slog.Info("Source configurations loaded", "count", configCache.GetConfigCount())

	politicianRepo := database.NewPoliticianRepository(db)
	disclosureRepo := database.NewDisclosureRepository(db)
	fileRepo := database.NewStoredFileRepository(db)
	jobRepo := database.NewJobExecutionRepository(db)

	blobStore, err := newBlobStore(appCfg)
	if err != nil {
		slog.Error("Failed to initialize blob storage", "backend", appCfg.StorageBackend, "error", err)
		os.Exit(1)
	}
	archiver := storage.NewManager(blobStore, fileRepo)

	registry := breaker.NewRegistry(breakerFailureThreshold, breakerResetTimeout)

	orchestrator := pipeline.NewOrchestrator(registry, politicianRepo, disclosureRepo,
		jobRepo, archiver, appCfg.UserAgent, time.Duration(appCfg.RunTimeout)*time.Second)

	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount)
	scheduler := tasks.NewScheduler(configCache, orchestrator, disclosureRepo, jobRepo, archiver)
	scheduler.Start()
	defer scheduler.Stop()

	apiHandler := api.NewHandler(configCache, politicianRepo, disclosureRepo, fileRepo,
		jobRepo, registry, orchestrator, scheduler)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("HTTP server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Scheduler is stopped via defer
	slog.Info("Shutdown complete")
}

func newBlobStore(appCfg *cfg.Cfg) (storage.BlobStore, error) {
	switch appCfg.StorageBackend {
	case "s3":
		return storage.NewS3Store(context.Background(), appCfg.S3Region, appCfg.S3BucketPrefix)
	default:
		return storage.NewFSStore(appCfg.StorageDir), nil
	}
}
