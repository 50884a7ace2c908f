// Command admin is a terminal watch client for the ingest dashboard: it polls
// the server snapshot on a fixed interval and prints the merged view, keeping
// row order stable the same way the web dashboard does.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/podsift/podsift/internal/config"
	"github.com/podsift/podsift/internal/livesync"
	"github.com/podsift/podsift/internal/worker"
)

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "podsift server base URL")
	redisURL := flag.String("redis", "", "Redis URL for pause-flag persistence (optional)")
	session := flag.String("session", "admin-cli", "session id scoping the persisted pause flag")
	interval := flag.Duration("interval", config.SyncInterval(), "poll interval (defaults to SYNC_INTERVAL_SECONDS)")
	logLevel := flag.String("log-level", "warn", "log level")
	flag.Parse()

	logger := worker.NewLogger(*logLevel, "text")
	slog.SetDefault(logger)

	var pauses livesync.PauseStore = livesync.NewMemoryPauseStore()
	if *redisURL != "" {
		store, err := livesync.NewRedisPauseStore(*redisURL, *session)
		if err != nil {
			logger.Error("Failed to create pause store", "error", err.Error())
			os.Exit(1)
		}
		defer store.Close()
		pauses = store
	}

	state := livesync.NewViewState()
	fetcher := livesync.NewHTTPFetcher(*serverURL)
	poller := livesync.NewPoller(fetcher, state, pauses, *interval, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go poller.Run(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	render := time.NewTicker(*interval)
	defer render.Stop()

	for {
		select {
		case <-quit:
			return
		case <-render.C:
			printRows(state, poller.Paused())
		}
	}
}

func printRows(state *livesync.ViewState, paused bool) {
	rows := state.Rows()
	fmt.Printf("\n%-6s %-10s %-12s %-40s\n", "ID", "STATUS", "STAGE", "URL")
	for _, r := range rows {
		stage := r.Stage
		if stage == "" {
			stage = "-"
		}
		url := r.URL
		if len(url) > 40 {
			url = url[:37] + "..."
		}
		fmt.Printf("%-6d %-10s %-12s %-40s\n", r.ID, r.Status, stage, url)
	}
	if paused {
		fmt.Println("(live updates paused)")
	}
}
