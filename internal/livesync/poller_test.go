package livesync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/podsift/podsift/internal/models"
)

type fakeFetcher struct {
	mu       sync.Mutex
	snapshot []models.IngestRequest
	err      error
	calls    int
}

func (f *fakeFetcher) FetchSnapshot(context.Context) ([]models.IngestRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.IngestRequest, len(f.snapshot))
	copy(out, f.snapshot)
	return out, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFetchOnceAppliesSnapshot(t *testing.T) {
	fetcher := &fakeFetcher{snapshot: []models.IngestRequest{record(1, models.RequestStatusQueued)}}
	state := NewViewState()
	p := NewPoller(fetcher, state, NewMemoryPauseStore(), time.Second, testLogger())

	p.fetchOnce(context.Background())

	assert.Equal(t, []uint{1}, ids(state.Rows()))
}

func TestFetchOnceSwallowsErrors(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("connection refused")}
	state := NewViewState()
	p := NewPoller(fetcher, state, NewMemoryPauseStore(), time.Second, testLogger())

	// No panic, no state change, no error surfaced anywhere.
	p.fetchOnce(context.Background())

	assert.Empty(t, state.Rows())
}

func TestFetchLandingAfterPauseIsDiscarded(t *testing.T) {
	fetcher := &fakeFetcher{snapshot: []models.IngestRequest{record(1, models.RequestStatusQueued)}}
	state := NewViewState()
	p := NewPoller(fetcher, state, NewMemoryPauseStore(), time.Second, testLogger())

	p.Pause(context.Background())
	p.fetchOnce(context.Background())

	// The fetch completed but its result was discarded.
	assert.Equal(t, 1, fetcher.callCount())
	assert.Empty(t, state.Rows())
}

func TestPauseFlagPersistsAcrossSessions(t *testing.T) {
	store := NewMemoryPauseStore()
	state := NewViewState()
	fetcher := &fakeFetcher{}

	p := NewPoller(fetcher, state, store, time.Second, testLogger())
	require.False(t, p.Paused())
	p.Pause(context.Background())

	// A reloaded session constructs a fresh poller over the same store.
	p2 := NewPoller(fetcher, NewViewState(), store, time.Second, testLogger())
	assert.True(t, p2.Paused())

	p2.Resume(context.Background())
	p3 := NewPoller(fetcher, NewViewState(), store, time.Second, testLogger())
	assert.False(t, p3.Paused())
}

func TestRunSkipsTicksWhilePaused(t *testing.T) {
	fetcher := &fakeFetcher{}
	p := NewPoller(fetcher, NewViewState(), NewMemoryPauseStore(), 10*time.Millisecond, testLogger())
	p.Pause(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	go p.Run(ctx)

	time.Sleep(60 * time.Millisecond)
	cancel()

	// Paused: ticks fired but no fetch ever went out.
	assert.Equal(t, 0, fetcher.callCount())
}

func TestRunPollsUntilCancelled(t *testing.T) {
	fetcher := &fakeFetcher{snapshot: []models.IngestRequest{record(7, models.RequestStatusRunning)}}
	state := NewViewState()
	p := NewPoller(fetcher, state, NewMemoryPauseStore(), 10*time.Millisecond, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go p.Run(ctx)

	assert.Eventually(t, func() bool {
		return fetcher.callCount() >= 2 && len(state.Rows()) == 1
	}, time.Second, 5*time.Millisecond)
	cancel()
}
