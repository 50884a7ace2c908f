package livesync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/podsift/podsift/internal/models"
)

// SnapshotFetcher retrieves the current server-side list of requests.
type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context) ([]models.IngestRequest, error)
}

// Poller drives the fixed-interval sync loop. Each tick's fetch is
// fire-and-forget: a slow fetch may overlap the next tick, and completions
// apply to the view in arrival order — the merge tolerates that without
// extra coordination. Fetch failures are swallowed; the next tick retries.
type Poller struct {
	fetcher  SnapshotFetcher
	state    *ViewState
	pauses   PauseStore
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	paused bool
	ticker *time.Ticker
}

// NewPoller creates a poller, restoring the persisted pause flag so a
// reloaded session comes back in the state the operator left it.
func NewPoller(fetcher SnapshotFetcher, state *ViewState, pauses PauseStore, interval time.Duration, logger *slog.Logger) *Poller {
	p := &Poller{
		fetcher:  fetcher,
		state:    state,
		pauses:   pauses,
		interval: interval,
		logger:   logger,
	}

	paused, err := pauses.LoadPaused(context.Background())
	if err != nil {
		logger.Debug("Failed to load persisted pause flag", "error", err.Error())
		paused = false
	}
	p.paused = paused
	return p
}

// Run blocks, ticking until the context is cancelled. Ticks are skipped
// entirely while paused: no network call is made.
func (p *Poller) Run(ctx context.Context) {
	p.mu.Lock()
	p.ticker = time.NewTicker(p.interval)
	ticker := p.ticker
	p.mu.Unlock()
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.Paused() {
				continue
			}
			go p.fetchOnce(ctx)
		}
	}
}

// fetchOnce performs one snapshot fetch and applies it. A fetch that lands
// after the operator paused is discarded.
func (p *Poller) fetchOnce(ctx context.Context) {
	snapshot, err := p.fetcher.FetchSnapshot(ctx)
	if err != nil {
		// Transient sync failures are deliberately never surfaced; the
		// dashboard stays on the last good snapshot until the next tick.
		p.logger.Debug("Snapshot fetch failed, skipping tick", "error", err.Error())
		return
	}
	if p.Paused() {
		return
	}
	p.state.ApplySnapshot(snapshot)
}

// Pause halts polling. In-flight fetches complete but their results are
// discarded. The flag is persisted for session reloads.
func (p *Poller) Pause(ctx context.Context) {
	p.setPaused(ctx, true)
}

// Resume restarts polling; the interval starts over from now.
func (p *Poller) Resume(ctx context.Context) {
	p.setPaused(ctx, false)
	p.mu.Lock()
	if p.ticker != nil {
		p.ticker.Reset(p.interval)
	}
	p.mu.Unlock()
}

// Paused reports the current pause state.
func (p *Poller) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

func (p *Poller) setPaused(ctx context.Context, paused bool) {
	p.mu.Lock()
	p.paused = paused
	p.mu.Unlock()

	if err := p.pauses.SavePaused(ctx, paused); err != nil {
		p.logger.Debug("Failed to persist pause flag", "error", err.Error())
	}
}
