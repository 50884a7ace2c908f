package livesync

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/podsift/podsift/internal/lifecycle"
	"github.com/podsift/podsift/internal/models"
	"github.com/podsift/podsift/internal/repository"
	"github.com/podsift/podsift/internal/sources"
)

type repoFetcher struct {
	repo repository.IngestRepository
}

func (f repoFetcher) FetchSnapshot(ctx context.Context) ([]models.IngestRequest, error) {
	return f.repo.ListRequests(ctx)
}

type seqRunner struct{ n int }

func (r *seqRunner) Trigger(context.Context, uint) (string, error) {
	r.n++
	return "job", nil
}

// Full operator scenario: submit, watch the pipeline advance the record
// through the polled view without reordering, then delete it.
func TestDashboardScenario(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctrl := lifecycle.NewController(repo, &seqRunner{}, sources.NewRegistry(), logger)

	state := NewViewState()
	fetcher := repoFetcher{repo: repo}
	poll := func() {
		snapshot, err := fetcher.FetchSnapshot(ctx)
		require.NoError(t, err)
		state.ApplySnapshot(snapshot)
	}

	// Two submissions; the view picks them up.
	first, err := ctrl.Submit(ctx, "https://youtu.be/first", "", 1)
	require.NoError(t, err)
	second, err := ctrl.Submit(ctx, "https://cdn.example.com/second.mp3", "", 1)
	require.NoError(t, err)
	poll()

	rows := state.Rows()
	require.Len(t, rows, 2)
	order := []uint{rows[0].ID, rows[1].ID}

	// Operator expands the first row's detail panel.
	state.ToggleExpanded(first.ID)

	// Pipeline starts transcribing; the poll merges in place.
	require.NoError(t, ctrl.ApplyStarted(ctx, first.ID, models.StageTranscribe))
	poll()

	rows = state.Rows()
	assert.Equal(t, order, []uint{rows[0].ID, rows[1].ID}, "order must not change across refreshes")
	var updated models.IngestRequest
	for _, r := range rows {
		if r.ID == first.ID {
			updated = r
		}
	}
	assert.Equal(t, models.RequestStatusRunning, updated.Status)
	assert.Equal(t, models.StageTranscribe, updated.Stage)
	assert.True(t, state.Expanded(first.ID), "expanded panel survives the refresh")

	// Pipeline finishes with an episode; the poll reflects it.
	episode := &models.Episode{Title: "First", Summary: datatypes.JSON(`{"tldr":"ok"}`)}
	require.NoError(t, ctrl.ApplySucceeded(ctx, first.ID, episode))
	poll()

	for _, r := range state.Rows() {
		if r.ID == first.ID {
			assert.Equal(t, models.RequestStatusSucceeded, r.Status)
			require.NotNil(t, r.EpisodeID)
		}
	}

	// Operator deletes it; the confirmed delete removes the row locally and
	// subsequent snapshots no longer contain it.
	require.NoError(t, ctrl.Delete(ctx, first.ID, true))
	state.Remove(first.ID)
	poll()

	rows = state.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, second.ID, rows[0].ID)
	assert.False(t, state.Expanded(first.ID))
}
