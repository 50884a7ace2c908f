package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/podsift/podsift/internal/lifecycle"
	"github.com/podsift/podsift/internal/models"
	"github.com/podsift/podsift/internal/repository"
	"github.com/podsift/podsift/internal/sources"
)

type noopRunner struct{}

func (noopRunner) Trigger(context.Context, uint) (string, error) { return "job-1", nil }

func newHandlerFixture(t *testing.T) (func(ProgressEvent) error, *repository.MemoryRepository, uint) {
	t.Helper()
	repo := repository.NewMemoryRepository()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctrl := lifecycle.NewController(repo, noopRunner{}, sources.NewRegistry(), logger)

	req, err := ctrl.Submit(context.Background(), "https://youtu.be/abc", "", 1)
	require.NoError(t, err)

	return HandleProgressEvent(context.Background(), ctrl), repo, req.ID
}

func TestHandleProgressEventFullRun(t *testing.T) {
	handle, repo, id := newHandlerFixture(t)
	ctx := context.Background()

	require.NoError(t, handle(ProgressEvent{RequestID: id, Event: EventStarted, Stage: models.StageDownload}))
	got, _ := repo.GetRequest(ctx, id)
	assert.Equal(t, models.RequestStatusRunning, got.Status)
	assert.Equal(t, models.StageDownload, got.Stage)

	require.NoError(t, handle(ProgressEvent{RequestID: id, Event: EventStage, Stage: models.StageTranscribe}))
	got, _ = repo.GetRequest(ctx, id)
	assert.Equal(t, models.StageTranscribe, got.Stage)

	require.NoError(t, handle(ProgressEvent{
		RequestID: id,
		Event:     EventSucceeded,
		Episode: &EpisodeResult{
			Title:           "The One About Go",
			DurationSeconds: 3600,
			Summary:         json.RawMessage(`{"tldr":"great episode"}`),
		},
	}))
	got, _ = repo.GetRequest(ctx, id)
	assert.Equal(t, models.RequestStatusSucceeded, got.Status)
	require.NotNil(t, got.EpisodeID)
}

func TestHandleProgressEventFailure(t *testing.T) {
	handle, repo, id := newHandlerFixture(t)

	require.NoError(t, handle(ProgressEvent{RequestID: id, Event: EventStarted}))
	require.NoError(t, handle(ProgressEvent{
		RequestID:    id,
		Event:        EventFailed,
		Error:        "transcription failed",
		ErrorDetails: json.RawMessage(`{"stage":"transcribe"}`),
	}))

	got, _ := repo.GetRequest(context.Background(), id)
	assert.Equal(t, models.RequestStatusFailed, got.Status)
	assert.Equal(t, "transcription failed", got.ErrorMessage)
}

func TestHandleProgressEventMissingRecordDropped(t *testing.T) {
	handle, _, _ := newHandlerFixture(t)

	// Events for a deleted record are dropped without error so they are
	// ACKed instead of looping in the PEL.
	err := handle(ProgressEvent{RequestID: 999, Event: EventStage, Stage: models.StageQC})
	assert.NoError(t, err)
}

func TestHandleProgressEventUnknownType(t *testing.T) {
	handle, _, id := newHandlerFixture(t)

	err := handle(ProgressEvent{RequestID: id, Event: "paused"})
	assert.Error(t, err)
}
