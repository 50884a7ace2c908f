package runner

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Runner mode constants
const (
	ModeDev   = "dev"
	ModeCloud = "cloud"
)

// Health is the one-shot diagnostic reported to operators for "stuck" request
// triage. A failed probe produces a degraded value, never an error.
type Health struct {
	Reachable     bool      `json:"reachable"`
	Mode          string    `json:"mode"`
	Misconfigured bool      `json:"misconfigured,omitempty"`
	Detail        string    `json:"detail,omitempty"`
	CheckedAt     time.Time `json:"checked_at"`
}

// pinger abstracts the broker reachability check so the probe logic is
// testable without Redis.
type pinger interface {
	Ping(ctx context.Context) error
}

type redisPinger struct {
	rdb *redis.Client
}

func (p *redisPinger) Ping(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}

// Probe checks whether the job runner's broker is reachable and whether the
// configured mode matches where it is actually running.
type Probe struct {
	mode   string
	host   string
	pinger pinger
}

// NewProbe builds a probe against the runner's Redis broker.
func NewProbe(redisURL, mode string) (*Probe, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	return &Probe{mode: mode, host: hostOf(opts.Addr), pinger: &redisPinger{rdb: rdb}}, nil
}

// Check performs the probe. Pure read: no mutation, no retries.
func (p *Probe) Check(ctx context.Context) Health {
	h := Health{
		Mode:      p.mode,
		CheckedAt: time.Now().UTC(),
	}
	h.Reachable = p.pinger.Ping(ctx) == nil

	switch {
	case p.mode == ModeCloud && isLocalHost(p.host):
		h.Misconfigured = true
		h.Detail = "cloud mode configured but runner broker is a local address"
	case p.mode == ModeDev && !h.Reachable:
		h.Misconfigured = true
		h.Detail = "dev mode but dev broker is unreachable"
	case !h.Reachable:
		h.Detail = "job runner broker unreachable"
	}
	return h
}

func hostOf(addr string) string {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return addr[:i]
		}
	}
	return addr
}

func isLocalHost(host string) bool {
	switch host {
	case "localhost", "127.0.0.1", "::1", "[::1]", "":
		return true
	}
	return false
}
