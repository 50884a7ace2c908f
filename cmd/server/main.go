package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/podsift/podsift/internal/api"
	"github.com/podsift/podsift/internal/config"
	"github.com/podsift/podsift/internal/database"
	"github.com/podsift/podsift/internal/lifecycle"
	"github.com/podsift/podsift/internal/pipeline"
	"github.com/podsift/podsift/internal/reportgen"
	"github.com/podsift/podsift/internal/repository"
	"github.com/podsift/podsift/internal/runner"
	"github.com/podsift/podsift/internal/sources"
	"github.com/podsift/podsift/internal/worker"
)

func main() {
	cfg := config.Load()
	logger := worker.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	db, err := database.Init(cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err.Error())
		os.Exit(1)
	}
	defer database.Close(db)

	if err := database.RunMigrations(db); err != nil {
		logger.Error("Failed to run migrations", "error", err.Error())
		os.Exit(1)
	}

	if cfg.Env == "development" {
		if err := database.SeedDevData(db); err != nil {
			logger.Warn("Failed to seed dev data", "error", err.Error())
		}
	}

	repo := repository.NewGormRepository(db)

	runnerClient, err := runner.NewClient(cfg.RedisURL)
	if err != nil {
		logger.Error("Failed to create runner client", "error", err.Error())
		os.Exit(1)
	}
	defer runnerClient.Close()

	probe, err := runner.NewProbe(cfg.RedisURL, cfg.RunnerMode)
	if err != nil {
		logger.Error("Failed to create runner probe", "error", err.Error())
		os.Exit(1)
	}

	publisher, err := pipeline.NewPublisher(cfg.RedisURL)
	if err != nil {
		logger.Error("Failed to create pipeline publisher", "error", err.Error())
		os.Exit(1)
	}
	defer publisher.Close()

	registry := sources.NewRegistry()
	ctrl := lifecycle.NewController(repo, runnerClient, registry, logger)

	// Consume pipeline progress events back into the records.
	stopConsumer, err := pipeline.StartEventConsumer(cfg.RedisURL, ctrl)
	if err != nil {
		logger.Error("Failed to start event consumer", "error", err.Error())
		os.Exit(1)
	}
	defer stopConsumer()

	// Embedded worker: dispatches ingest jobs and generates reports.
	generator := reportgen.NewClient(cfg.ReportWebhookURL, cfg.ReportWebhookSecret, cfg.ReportWebhookStub)
	stopWorker, err := worker.Start(cfg, worker.Deps{
		Requests:  repo,
		Reports:   repo,
		Publisher: publisher,
		Generator: generator,
		Runner:    runnerClient,
	})
	if err != nil {
		logger.Error("Failed to start worker", "error", err.Error())
		os.Exit(1)
	}
	defer stopWorker()

	stopScheduler, err := worker.StartScheduler(cfg)
	if err != nil {
		logger.Error("Failed to start scheduler", "error", err.Error())
		os.Exit(1)
	}
	defer stopScheduler()

	router := api.NewRouter(api.NewServer(ctrl, repo, probe, runnerClient, registry))
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server stopped with error", "error", err.Error())
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error", "error", err.Error())
	}
}
