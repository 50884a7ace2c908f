package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/podsift/podsift/internal/config"
	"github.com/podsift/podsift/internal/period"
	"github.com/podsift/podsift/internal/runner"
)

// TaskReportScheduled is the periodic entry point: it resolves the preset
// window at execution time, then hands off to the keyed report:generate task.
const TaskReportScheduled = "report:scheduled"

// scheduledReportPayload carries the preset to resolve at run time. The
// window cannot be baked in at registration time or every firing would reuse
// the window computed when the scheduler started.
type scheduledReportPayload struct {
	Preset string `json:"preset"`
}

// Cron entries for the periodic report kinds, interpreted in the configured
// report timezone.
var reportSchedules = []struct {
	spec   string
	preset period.Preset
}{
	{"0 6 * * 1", period.PresetLastWeek},           // Monday morning, previous week
	{"0 6 1 * *", period.PresetLastMonth},          // first of the month, previous month
	{"0 6 1 1,4,7,10 *", period.PresetLastQuarter}, // quarter start, previous quarter
}

// StartScheduler creates and starts an Asynq Scheduler for periodic report
// generation. Returns a stop function for graceful shutdown.
func StartScheduler(cfg *config.Config) (stop func(), err error) {
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Parse timezone from config
	location, err := time.LoadLocation(cfg.ReportTimezone)
	if err != nil {
		slog.Warn("Invalid timezone, using UTC", "timezone", cfg.ReportTimezone, "error", err)
		location = time.UTC
	}

	// Create logger for scheduler
	logger := NewLogger(cfg.LogLevel, cfg.LogFormat)

	scheduler := asynq.NewScheduler(
		redisOpt,
		&asynq.SchedulerOpts{
			Location: location,
			LogLevel: asynq.InfoLevel,
			Logger:   &asynqLoggerAdapter{logger: logger},
		},
	)

	for _, entry := range reportSchedules {
		payload, err := json.Marshal(scheduledReportPayload{Preset: string(entry.preset)})
		if err != nil {
			return nil, err
		}

		task := asynq.NewTask(
			TaskReportScheduled,
			payload,
			asynq.MaxRetry(3),
			asynq.Timeout(10*time.Minute),
			asynq.Retention(24*time.Hour),
			asynq.Unique(24*time.Hour), // Prevent duplicate if scheduler runs twice
		)

		entryID, err := scheduler.Register(entry.spec, task)
		if err != nil {
			return nil, fmt.Errorf("failed to register %s schedule: %w", entry.preset, err)
		}
		slog.Info("Report schedule registered",
			"preset", entry.preset, "cron", entry.spec, "entry_id", entryID)
	}

	// Start scheduler (non-blocking)
	if err := scheduler.Start(); err != nil {
		return nil, fmt.Errorf("failed to start scheduler: %w", err)
	}

	slog.Info("Scheduler started", "timezone", cfg.ReportTimezone)

	// Return shutdown function
	return func() { scheduler.Shutdown() }, nil
}

// handleReportScheduled resolves the preset against the current time and
// triggers the keyed report task; the canonical period key deduplicates
// against any run already produced for the same window.
func handleReportScheduled(logger *slog.Logger, client *runner.Client) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		var payload scheduledReportPayload
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return fmt.Errorf("invalid payload: %w", asynq.SkipRetry)
		}

		preset, err := period.ParsePreset(payload.Preset)
		if err != nil {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}

		window, err := period.ComputePreset(preset, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}

		kind := period.KindForPreset(preset)
		key, scheduled, err := client.TriggerReport(ctx, kind, window)
		if err != nil {
			return fmt.Errorf("failed to trigger report: %w", err)
		}

		logger.Info(
			"Scheduled report trigger processed",
			"preset", preset,
			"period_key", key,
			"newly_scheduled", scheduled,
		)
		return nil
	}
}
