// Package lifecycle implements the ingest-request state machine: operator
// operations (submit, resend, retry, delete) and the record mutations applied
// on behalf of the external pipeline as it progresses a request.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/datatypes"

	"github.com/podsift/podsift/internal/models"
	"github.com/podsift/podsift/internal/repository"
	"github.com/podsift/podsift/internal/sources"
)

var (
	// ErrDuplicateSubmission is returned by Submit when the URL already has a
	// tracked record, open or completed.
	ErrDuplicateSubmission = errors.New("URL already submitted")
	// ErrInvalidState is returned by Resend/Retry when the record is not in
	// the required precondition state.
	ErrInvalidState = errors.New("operation not allowed in current state")
	// ErrConfirmationRequired is returned by Delete when the caller has not
	// confirmed intent.
	ErrConfirmationRequired = errors.New("delete requires confirmation")
)

// JobRunner is the external job-runner collaborator. Trigger asks it to
// execute the request and returns its job reference; the runner then advances
// the record out of band via the pipeline event channel.
type JobRunner interface {
	Trigger(ctx context.Context, requestID uint) (string, error)
}

// Controller performs all lifecycle mutations against the storage collaborator.
type Controller struct {
	repo    repository.IngestRepository
	runner  JobRunner
	sources *sources.Registry
	logger  *slog.Logger
}

func NewController(repo repository.IngestRepository, runner JobRunner, reg *sources.Registry, logger *slog.Logger) *Controller {
	return &Controller{repo: repo, runner: runner, sources: reg, logger: logger}
}

// Submit creates a queued record for the URL and asks the job runner to begin.
// A URL that already has a record, in any state, is rejected.
func (c *Controller) Submit(ctx context.Context, rawURL, sourceKind string, userID uint) (*models.IngestRequest, error) {
	kind, err := c.sources.Classify(rawURL, sourceKind)
	if err != nil {
		return nil, err
	}

	if _, err := c.repo.FindRequestByURL(ctx, rawURL); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateSubmission, rawURL)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	req := &models.IngestRequest{
		UserID: userID,
		URL:    rawURL,
		Source: kind,
		Status: models.RequestStatusQueued,
	}
	if err := c.repo.CreateRequest(ctx, req); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// Lost the race against a concurrent submit of the same URL.
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSubmission, rawURL)
		}
		return nil, err
	}

	jobRef, err := c.runner.Trigger(ctx, req.ID)
	if err != nil {
		now := time.Now().UTC()
		req.Status = models.RequestStatusFailed
		req.ErrorMessage = "failed to trigger ingestion job"
		req.CompletedAt = &now
		if saveErr := c.repo.SaveRequest(ctx, req); saveErr != nil {
			c.logger.Error("Failed to mark request failed after trigger error",
				"request_id", req.ID, "error", saveErr.Error())
		}
		return nil, fmt.Errorf("trigger ingestion job: %w", err)
	}

	req.JobID = jobRef
	if err := c.repo.SaveRequest(ctx, req); err != nil {
		return nil, err
	}

	c.logger.Info("Ingest request submitted",
		"request_id", req.ID, "source", kind, "job_id", jobRef, "user_id", userID)
	return req, nil
}

// Resend re-triggers the job runner for a request that was accepted but never
// started (the runner silently dropped it). Legal only from queued with no
// started timestamp; the status does not change, only the job reference.
func (c *Controller) Resend(ctx context.Context, requestID uint) (string, error) {
	req, err := c.repo.GetRequest(ctx, requestID)
	if err != nil {
		return "", err
	}
	if req.Status != models.RequestStatusQueued || req.StartedAt != nil {
		return "", fmt.Errorf("%w: resend requires a queued request that has not started (status=%s)",
			ErrInvalidState, req.Status)
	}

	jobRef, err := c.runner.Trigger(ctx, req.ID)
	if err != nil {
		return "", fmt.Errorf("trigger ingestion job: %w", err)
	}

	req.JobID = jobRef
	if err := c.repo.SaveRequest(ctx, req); err != nil {
		return "", err
	}

	c.logger.Info("Ingest request resent", "request_id", req.ID, "job_id", jobRef)
	return jobRef, nil
}

// Retry re-enters the state machine after a terminal failure: error payload
// and stage are cleared, the record returns to queued, and the runner is
// triggered again.
func (c *Controller) Retry(ctx context.Context, requestID uint) error {
	req, err := c.repo.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if req.Status != models.RequestStatusFailed {
		return fmt.Errorf("%w: retry requires a failed request (status=%s)", ErrInvalidState, req.Status)
	}

	req.Status = models.RequestStatusQueued
	req.Stage = ""
	req.ErrorMessage = ""
	req.ErrorDetails = nil
	req.StartedAt = nil
	req.CompletedAt = nil

	jobRef, err := c.runner.Trigger(ctx, req.ID)
	if err != nil {
		return fmt.Errorf("trigger ingestion job: %w", err)
	}
	req.JobID = jobRef

	if err := c.repo.SaveRequest(ctx, req); err != nil {
		return err
	}

	c.logger.Info("Ingest request retried", "request_id", req.ID, "job_id", jobRef)
	return nil
}

// Delete removes the record in any state once the operator has confirmed.
// Deleting a running request orphans the external execution without
// cancelling it; that is accepted behavior, not something to guard against.
func (c *Controller) Delete(ctx context.Context, requestID uint, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}
	if err := c.repo.DeleteRequest(ctx, requestID); err != nil {
		return err
	}
	c.logger.Info("Ingest request deleted", "request_id", requestID)
	return nil
}

// ApplyStarted records the pipeline picking up the request: queued -> running.
func (c *Controller) ApplyStarted(ctx context.Context, requestID uint, stage string) error {
	req, err := c.repo.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if req.Terminal() {
		// Redelivered or late event for a request that already finished.
		// Resurrecting it would leave the terminal payload attached to a
		// running record, so drop the event instead.
		c.logger.Warn("Dropping start event for terminal request",
			"request_id", req.ID, "status", req.Status)
		return nil
	}

	now := time.Now().UTC()
	req.Status = models.RequestStatusRunning
	req.Stage = stage
	if req.StartedAt == nil {
		req.StartedAt = &now
	}
	return c.repo.SaveRequest(ctx, req)
}

// ApplyStage records a stage advance while running.
func (c *Controller) ApplyStage(ctx context.Context, requestID uint, stage string) error {
	req, err := c.repo.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if req.Terminal() {
		c.logger.Warn("Dropping stage event for terminal request",
			"request_id", req.ID, "status", req.Status, "stage", stage)
		return nil
	}

	req.Status = models.RequestStatusRunning
	req.Stage = stage
	return c.repo.SaveRequest(ctx, req)
}

// ApplySucceeded stores the produced episode and moves the request to its
// terminal success state.
func (c *Controller) ApplySucceeded(ctx context.Context, requestID uint, episode *models.Episode) error {
	req, err := c.repo.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if req.Terminal() {
		c.logger.Warn("Dropping success event for terminal request",
			"request_id", req.ID, "status", req.Status)
		return nil
	}

	episode.UserID = req.UserID
	episode.SourceURL = req.URL
	if err := c.repo.CreateEpisode(ctx, episode); err != nil {
		return err
	}

	now := time.Now().UTC()
	req.Status = models.RequestStatusSucceeded
	req.Stage = ""
	req.EpisodeID = &episode.ID
	req.CompletedAt = &now
	req.ErrorMessage = ""
	req.ErrorDetails = nil

	if err := c.repo.SaveRequest(ctx, req); err != nil {
		return err
	}

	c.logger.Info("Ingest request succeeded", "request_id", req.ID, "episode_id", episode.ID)
	return nil
}

// ApplyFailed moves the request to its terminal failure state with the
// pipeline-reported error payload.
func (c *Controller) ApplyFailed(ctx context.Context, requestID uint, message string, details datatypes.JSON) error {
	req, err := c.repo.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if req.Terminal() {
		c.logger.Warn("Dropping failure event for terminal request",
			"request_id", req.ID, "status", req.Status)
		return nil
	}

	now := time.Now().UTC()
	req.Status = models.RequestStatusFailed
	req.Stage = ""
	req.ErrorMessage = message
	req.ErrorDetails = details
	req.CompletedAt = &now

	if err := c.repo.SaveRequest(ctx, req); err != nil {
		return err
	}

	c.logger.Error("Ingest request failed", "request_id", req.ID, "error", message)
	return nil
}
