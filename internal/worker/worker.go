package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"gorm.io/datatypes"

	"github.com/podsift/podsift/internal/config"
	"github.com/podsift/podsift/internal/models"
	"github.com/podsift/podsift/internal/pipeline"
	"github.com/podsift/podsift/internal/reportgen"
	"github.com/podsift/podsift/internal/repository"
	"github.com/podsift/podsift/internal/runner"
)

// asynqLoggerAdapter wraps slog.Logger to implement asynq.Logger interface
type asynqLoggerAdapter struct {
	logger *slog.Logger
}

// Implement asynq.Logger interface methods
func (a *asynqLoggerAdapter) Debug(args ...interface{}) {
	a.logger.Debug(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Info(args ...interface{}) {
	a.logger.Info(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Warn(args ...interface{}) {
	a.logger.Warn(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Error(args ...interface{}) {
	a.logger.Error(fmt.Sprint(args...))
}

func (a *asynqLoggerAdapter) Fatal(args ...interface{}) {
	a.logger.Error(fmt.Sprint(args...))
	panic(fmt.Sprint(args...))
}

// Deps bundles the collaborators the task handlers need.
type Deps struct {
	Requests  repository.IngestRepository
	Reports   repository.ReportRepository
	Publisher *pipeline.Publisher
	Generator *reportgen.Client
	Runner    *runner.Client
}

// Run starts the Asynq worker server and blocks until shutdown signal.
// Use this for standalone worker mode.
func Run(cfg *config.Config, deps Deps) error {
	srv, mux, err := newServer(cfg, deps)
	if err != nil {
		return err
	}

	// Run blocks and handles its own signal interception
	return srv.Run(mux)
}

// Start starts the Asynq worker in non-blocking mode and returns a stop function.
// Use this for embedded mode so the caller can coordinate shutdown.
func Start(cfg *config.Config, deps Deps) (stop func(), err error) {
	srv, mux, err := newServer(cfg, deps)
	if err != nil {
		return nil, err
	}
	if err := srv.Start(mux); err != nil {
		return nil, fmt.Errorf("failed to start worker: %w", err)
	}
	return func() { srv.Shutdown() }, nil
}

func newServer(cfg *config.Config, deps Deps) (*asynq.Server, *asynq.ServeMux, error) {
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	logger := NewLogger(cfg.LogLevel, cfg.LogFormat)

	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency:     5,
			ShutdownTimeout: 30 * time.Second,
			ErrorHandler:    asynq.ErrorHandlerFunc(makeErrorHandler(logger)),
			Logger:          &asynqLoggerAdapter{logger: logger},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(runner.TaskIngestProcess, handleIngestProcess(logger, deps.Requests, deps.Publisher))
	mux.HandleFunc(runner.TaskReportGenerate, handleReportGenerate(logger, deps.Reports, deps.Generator))
	mux.HandleFunc(TaskReportScheduled, handleReportScheduled(logger, deps.Runner))

	logger.Info("Worker starting", "concurrency", 5, "redis", cfg.RedisURL)
	return srv, mux, nil
}

// handleIngestProcess dispatches an accepted ingest request to the external
// pipeline over the stream. The pipeline reports progress back out of band;
// this handler only hands the work over.
func handleIngestProcess(logger *slog.Logger, repo repository.IngestRepository, publisher *pipeline.Publisher) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		var payload runner.IngestPayload
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			// Invalid payload - don't retry
			return fmt.Errorf("invalid payload: %w", asynq.SkipRetry)
		}

		req, err := repo.GetRequest(ctx, payload.RequestID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				// Record deleted before dispatch - don't retry
				logger.Error("Ingest request not found", "request_id", payload.RequestID)
				return fmt.Errorf("ingest request not found: %w", asynq.SkipRetry)
			}
			// Database error - retryable
			return fmt.Errorf("failed to fetch ingest request: %w", err)
		}

		if req.Terminal() {
			// Stale trigger for an already-finished request; nothing to do.
			logger.Warn("Skipping dispatch for terminal request",
				"request_id", req.ID, "status", req.Status)
			return nil
		}

		logger.Info(
			"Processing ingest:process task",
			"request_id", req.ID,
			"source", req.Source,
			"user_id", req.UserID,
		)

		// Graceful degradation: if publisher is not configured, fail the request
		if publisher == nil {
			logger.Warn("Pipeline publisher not configured, cannot dispatch request",
				"request_id", req.ID)
			now := time.Now().UTC()
			req.Status = models.RequestStatusFailed
			req.ErrorMessage = "pipeline publisher not configured"
			req.CompletedAt = &now
			if err := repo.SaveRequest(ctx, req); err != nil {
				logger.Error("Failed to mark request failed", "request_id", req.ID, "error", err.Error())
			}
			return fmt.Errorf("pipeline publisher not configured: %w", asynq.SkipRetry)
		}

		dispatchID := uuid.New().String()
		msgID, err := publisher.PublishDispatch(ctx, pipeline.DispatchRequest{
			DispatchID: dispatchID,
			RequestID:  req.ID,
			URL:        req.URL,
			Source:     req.Source,
			JobID:      req.JobID,
		})
		if err != nil {
			// Retryable: the stream may be temporarily unavailable
			logger.Error("Failed to publish dispatch to stream",
				"request_id", req.ID,
				"error", err.Error(),
			)
			return fmt.Errorf("failed to publish to stream: %w", err)
		}

		logger.Info(
			"Ingest request dispatched to pipeline",
			"request_id", req.ID,
			"dispatch_id", dispatchID,
			"stream_msg_id", msgID,
			"job_id", req.JobID,
		)

		return nil
	}
}

// handleReportGenerate produces the report for one period window. The
// (kind, period key) unique row makes it idempotent against duplicate
// triggers that slipped past the task-ID guard.
func handleReportGenerate(logger *slog.Logger, reports repository.ReportRepository, generator *reportgen.Client) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		var payload runner.ReportPayload
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return fmt.Errorf("invalid payload: %w", asynq.SkipRetry)
		}

		report, err := reports.GetReportByKey(ctx, payload.Kind, payload.PeriodKey)
		switch {
		case err == nil:
			if report.Status == models.ReportStatusCompleted {
				logger.Info("Report already generated, skipping",
					"kind", payload.Kind, "period_key", payload.PeriodKey)
				return nil
			}
			// pending or failed row from an earlier attempt; regenerate below
		case errors.Is(err, repository.ErrNotFound):
			report = &models.Report{
				Kind:        payload.Kind,
				PeriodKey:   payload.PeriodKey,
				PeriodStart: payload.Start,
				PeriodEnd:   payload.End,
				Status:      models.ReportStatusPending,
			}
			if err := reports.CreateReport(ctx, report); err != nil {
				if errors.Is(err, repository.ErrConflict) {
					// Concurrent run claimed this period first.
					logger.Info("Report row already claimed",
						"kind", payload.Kind, "period_key", payload.PeriodKey)
					return nil
				}
				return fmt.Errorf("failed to create report row: %w", err)
			}
		default:
			return fmt.Errorf("failed to look up report: %w", err)
		}

		logger.Info(
			"Processing report:generate task",
			"kind", payload.Kind,
			"period_key", payload.PeriodKey,
		)

		content, err := generator.Generate(ctx, payload.Kind, payload.PeriodKey, payload.Start, payload.End)
		if err != nil {
			report.Status = models.ReportStatusFailed
			report.ErrorMessage = err.Error()
			if saveErr := reports.SaveReport(ctx, report); saveErr != nil {
				logger.Error("Failed to mark report failed",
					"period_key", payload.PeriodKey, "error", saveErr.Error())
			}
			logger.Error(
				"Report generation failed",
				"period_key", payload.PeriodKey,
				"error", err.Error(),
			)
			return fmt.Errorf("report generation failed: %w", err)
		}

		jsonBytes, err := json.Marshal(content)
		if err != nil {
			report.Status = models.ReportStatusFailed
			report.ErrorMessage = "failed to marshal content"
			if saveErr := reports.SaveReport(ctx, report); saveErr != nil {
				logger.Error("Failed to mark report failed",
					"period_key", payload.PeriodKey, "error", saveErr.Error())
			}
			return fmt.Errorf("failed to marshal content: %w", asynq.SkipRetry)
		}

		now := time.Now().UTC()
		report.Status = models.ReportStatusCompleted
		report.Content = datatypes.JSON(jsonBytes)
		report.ErrorMessage = ""
		report.GeneratedAt = &now
		if err := reports.SaveReport(ctx, report); err != nil {
			return fmt.Errorf("failed to update report: %w", err)
		}

		logger.Info(
			"Report generation completed",
			"kind", payload.Kind,
			"period_key", payload.PeriodKey,
		)

		return nil
	}
}

// makeErrorHandler creates an error handler function with logger closure.
func makeErrorHandler(logger *slog.Logger) func(context.Context, *asynq.Task, error) {
	return func(ctx context.Context, task *asynq.Task, err error) {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)

		logger.Error(
			"Task execution failed",
			"task_type", task.Type(),
			"error", err.Error(),
			"retry_count", retried,
			"max_retry", maxRetry,
		)

		// Check if this is the final failure (task will move to dead letter queue)
		if retried >= maxRetry {
			logger.Error(
				"Task moved to dead letter queue (all retries exhausted)",
				"task_type", task.Type(),
				"payload", string(task.Payload()),
			)
		}
	}
}
