// Package runner wraps the Asynq job runner: triggering ingestion jobs,
// scheduling report generation deduplicated on the canonical period key, and
// probing runner health.
package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/podsift/podsift/internal/period"
)

// Task type constants
const (
	TaskIngestProcess  = "ingest:process"
	TaskReportGenerate = "report:generate"
)

// IngestPayload is the payload of an ingest:process task.
type IngestPayload struct {
	RequestID uint `json:"request_id"`
}

// ReportPayload is the payload of a report:generate task.
type ReportPayload struct {
	Kind      string    `json:"kind"`
	PeriodKey string    `json:"period_key"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
}

// Client enqueues tasks on the job runner.
type Client struct {
	client *asynq.Client
}

// NewClient initializes the Asynq client for task enqueueing.
func NewClient(redisURL string) (*Client, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return &Client{client: asynq.NewClient(opt)}, nil
}

// Close closes the client connection gracefully.
func (c *Client) Close() error {
	return c.client.Close()
}

// Trigger asks the runner to execute the ingest request and returns the job
// reference. Each call produces a fresh reference; resend/retry callers store
// it over the previous one.
func (c *Client) Trigger(ctx context.Context, requestID uint) (string, error) {
	payload, err := json.Marshal(IngestPayload{RequestID: requestID})
	if err != nil {
		return "", err
	}

	task := asynq.NewTask(
		TaskIngestProcess,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Retention(24*time.Hour),
	)

	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		return "", fmt.Errorf("enqueue ingest task: %w", err)
	}
	return info.ID, nil
}

// TriggerReport schedules report generation for the window, using the
// canonical period key as the task ID so the same logical period can never be
// enqueued twice. Returns the key and whether a new run was scheduled.
func (c *Client) TriggerReport(ctx context.Context, kind period.Kind, r period.Range) (string, bool, error) {
	key := period.Key(kind, r.Start)

	payload, err := json.Marshal(ReportPayload{
		Kind:      string(kind),
		PeriodKey: key,
		Start:     r.Start,
		End:       r.End,
	})
	if err != nil {
		return "", false, err
	}

	task := asynq.NewTask(
		TaskReportGenerate,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Retention(7*24*time.Hour),
	)

	_, err = c.client.EnqueueContext(ctx, task, asynq.TaskID("report:"+string(kind)+":"+key))
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			// Same period already scheduled; idempotent no-op.
			return key, false, nil
		}
		return "", false, fmt.Errorf("enqueue report task: %w", err)
	}
	return key, true, nil
}
