package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSyncIntervalDefault(t *testing.T) {
	t.Setenv("SYNC_INTERVAL_SECONDS", "")
	assert.Equal(t, 5*time.Second, SyncInterval())
}

func TestSyncIntervalFromEnv(t *testing.T) {
	t.Setenv("SYNC_INTERVAL_SECONDS", "12")
	assert.Equal(t, 12*time.Second, SyncInterval())

	// Garbage falls back to the default rather than failing startup.
	t.Setenv("SYNC_INTERVAL_SECONDS", "soon")
	assert.Equal(t, 5*time.Second, SyncInterval())
}
