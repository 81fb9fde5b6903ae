package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/haulbook/internal/apiclient"
	"github.com/MrJamesThe3rd/haulbook/internal/http/auth"
	"github.com/MrJamesThe3rd/haulbook/internal/idempotency"
	"github.com/MrJamesThe3rd/haulbook/internal/outbox"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(t.Context())

	return out.String(), err
}

// setup points the CLI at a fresh outbox and at api, and returns the outbox
// path.
func setup(t *testing.T, api string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "outbox.db")
	t.Setenv("CLIENT_OUTBOX_PATH", path)
	t.Setenv("CLIENT_API_URL", api)
	t.Setenv("LOG_LEVEL", "error")

	return path
}

func enqueueTrip(t *testing.T, path string) string {
	t.Helper()

	store, err := outbox.Open(path)
	require.NoError(t, err)
	defer store.Close()

	item, err := outbox.NewCreate(outbox.EntityTrip, apiclient.TripsPath,
		apiclient.TripInput{PlateNumber: "AA-00-BB", LocationID: "loc-1", AppliedPrice: 100},
		idempotency.NewGenerator().Generate(),
	)
	require.NoError(t, err)

	id, err := store.Enqueue(t.Context(), item)
	require.NoError(t, err)

	return id
}

func itemStatus(t *testing.T, path, id string) outbox.Status {
	t.Helper()

	store, err := outbox.Open(path)
	require.NoError(t, err)
	defer store.Close()

	it, err := store.Get(t.Context(), id)
	require.NoError(t, err)

	return it.Status
}

func TestQueueList_Empty(t *testing.T) {
	setup(t, "http://127.0.0.1:1")

	out, err := run(t, "queue", "list")
	require.NoError(t, err)
	assert.Equal(t, "outbox is empty\n", out)
}

func TestQueueList_ShowsItems(t *testing.T) {
	path := setup(t, "http://127.0.0.1:1")
	id := enqueueTrip(t, path)

	out, err := run(t, "queue", "list")
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "POST /api/v1/trips")
	assert.Contains(t, out, "pending")

	out, err = run(t, "queue", "list", "--failed")
	require.NoError(t, err)
	assert.Equal(t, "outbox is empty\n", out)
}

func TestSync_ReplaysAndRemoves(t *testing.T) {
	var hits atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, apiclient.TripsPath, r.URL.Path)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	path := setup(t, srv.URL)
	enqueueTrip(t, path)

	out, err := run(t, "sync")
	require.NoError(t, err)
	assert.Equal(t, "synced 1 item(s)\n", out)
	assert.Equal(t, int32(1), hits.Load())

	out, err = run(t, "queue", "list")
	require.NoError(t, err)
	assert.Equal(t, "outbox is empty\n", out)
}

func TestSync_FailureThenRetry(t *testing.T) {
	var reject atomic.Bool
	reject.Store(true)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reject.Load() {
			http.Error(w, "unknown location", http.StatusUnprocessableEntity)
			return
		}

		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	path := setup(t, srv.URL)
	id := enqueueTrip(t, path)

	_, err := run(t, "sync")
	require.Error(t, err)
	assert.Contains(t, err.Error(), id)
	assert.Equal(t, outbox.StatusFailed, itemStatus(t, path, id))

	// A plain pass leaves failed items alone.
	reject.Store(false)

	out, err := run(t, "sync")
	require.NoError(t, err)
	assert.Equal(t, "synced 0 item(s)\n", out)

	out, err = run(t, "queue", "retry")
	require.NoError(t, err)
	assert.Equal(t, "synced 1 item(s)\n", out)
}

func TestQueueDiscard(t *testing.T) {
	path := setup(t, "http://127.0.0.1:1")
	id := enqueueTrip(t, path)

	_, err := run(t, "queue", "discard", id)
	assert.ErrorIs(t, err, errNotFailed)

	out, err := run(t, "queue", "discard", "--force", id)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "discarded "+id))

	_, err = run(t, "queue", "discard", id)
	assert.ErrorIs(t, err, outbox.ErrNotFound)
}

func TestTokenIssue(t *testing.T) {
	setup(t, "http://127.0.0.1:1")
	t.Setenv("AUTH_JWT_SECRET", "s3cret")

	out, err := run(t, "token", "issue", "--subject", "truck-7")
	require.NoError(t, err)

	subject, err := auth.NewManager("s3cret", "haulbook").Verify(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "truck-7", subject)
}

func TestTokenIssue_NoSecret(t *testing.T) {
	setup(t, "http://127.0.0.1:1")
	t.Setenv("AUTH_JWT_SECRET", "")

	_, err := run(t, "token", "issue", "--subject", "truck-7")
	assert.ErrorIs(t, err, errNoSecret)
}

func TestSync_LeavesItemHeldByRunningClient(t *testing.T) {
	var hits atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	path := setup(t, srv.URL)
	id := enqueueTrip(t, path)

	// A terminal client mid-transmission on the same outbox.
	tui, err := outbox.Open(path)
	require.NoError(t, err)
	defer tui.Close()

	claimed, err := tui.Claim(t.Context(), id)
	require.NoError(t, err)
	require.True(t, claimed)

	_, err = run(t, "queue", "list")
	require.NoError(t, err)
	assert.Equal(t, outbox.StatusSyncing, itemStatus(t, path, id))

	out, err := run(t, "sync", "--include-failed")
	require.NoError(t, err)
	assert.Equal(t, "synced 0 item(s)\n", out)
	assert.Zero(t, hits.Load())
	assert.Equal(t, outbox.StatusSyncing, itemStatus(t, path, id))
}
