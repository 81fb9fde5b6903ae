package view

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/MrJamesThe3rd/haulbook/internal/syncer"
)

func TestStatusBar_Offline(t *testing.T) {
	out := StatusBar(syncer.Status{PendingCount: 3})

	assert.Contains(t, out, "offline")
	assert.Contains(t, out, "pending 3")
	assert.Contains(t, out, "last sync never")
	assert.NotContains(t, out, "failed")
}

func TestStatusBar_OnlineWithFailure(t *testing.T) {
	out := StatusBar(syncer.Status{
		IsOnline:     true,
		IsSyncing:    true,
		FailedCount:  1,
		LastSyncTime: time.Now().Add(-2 * time.Minute),
		LastError:    "HTTP 422: " + strings.Repeat("x", 100),
	})

	assert.Contains(t, out, "online")
	assert.Contains(t, out, "syncing")
	assert.Contains(t, out, "failed 1")
	assert.Contains(t, out, "2 minutes ago")
	assert.Contains(t, out, "…")
}
