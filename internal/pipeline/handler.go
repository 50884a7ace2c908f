package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/datatypes"

	"github.com/podsift/podsift/internal/lifecycle"
	"github.com/podsift/podsift/internal/models"
	"github.com/podsift/podsift/internal/repository"
)

// HandleProgressEvent returns a handler that applies pipeline progress events
// to ingest records through the lifecycle controller
func HandleProgressEvent(ctx context.Context, ctrl *lifecycle.Controller) func(ProgressEvent) error {
	return func(event ProgressEvent) error {
		var err error
		switch event.Event {
		case EventStarted:
			stage := event.Stage
			if stage == "" {
				stage = models.StageMetadata
			}
			err = ctrl.ApplyStarted(ctx, event.RequestID, stage)
		case EventStage:
			err = ctrl.ApplyStage(ctx, event.RequestID, event.Stage)
		case EventSucceeded:
			episode := &models.Episode{}
			if event.Episode != nil {
				episode.Title = event.Episode.Title
				episode.DurationSeconds = event.Episode.DurationSeconds
				episode.Summary = datatypes.JSON(event.Episode.Summary)
			}
			err = ctrl.ApplySucceeded(ctx, event.RequestID, episode)
		case EventFailed:
			err = ctrl.ApplyFailed(ctx, event.RequestID, event.Error, datatypes.JSON(event.ErrorDetails))
		default:
			return fmt.Errorf("unknown event type: %s", event.Event)
		}

		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				// Record was deleted while the pipeline kept running; the
				// orphaned execution's events are dropped, not retried.
				slog.Warn("Progress event for missing request dropped",
					"request_id", event.RequestID, "event", event.Event)
				return nil
			}
			return fmt.Errorf("apply %s event: %w", event.Event, err)
		}
		return nil
	}
}
