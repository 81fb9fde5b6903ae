// Package syncer drains the outbox against the API. Items are replayed one at
// a time in enqueue order and the first failure ends the pass.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrJamesThe3rd/haulbook/internal/outbox"
)

// ErrSyncFailed is reported for faults in the engine itself, as opposed to a
// single item being rejected.
var ErrSyncFailed = errors.New("sync failed")

const DefaultPollInterval = 5 * time.Second

//go:generate mockgen -source=engine.go -destination=engine_mock.go -package=syncer
type Queue interface {
	ListByStatus(ctx context.Context, statuses ...outbox.Status) ([]*outbox.Item, error)
	Claim(ctx context.Context, id string) (bool, error)
	Update(ctx context.Context, id string, patch outbox.Patch) error
	Remove(ctx context.Context, id string) error
	CountByStatus(ctx context.Context) (outbox.Counts, error)
}

// Transport sends one stored request. Any non-nil error fails the item.
type Transport interface {
	Replay(ctx context.Context, method, url string, body []byte) error
}

// Invalidator drops cached read state after a pass.
type Invalidator interface {
	Purge()
}

// Prober reports whether the API is reachable.
type Prober interface {
	Ping(ctx context.Context) error
}

type Options struct {
	PollInterval time.Duration
	Invalidator  Invalidator
	Prober       Prober
}

type DrainOptions struct {
	// IncludeFailed replays failed items alongside pending ones.
	IncludeFailed bool
}

type Result struct {
	// Skipped is set when another pass was already running.
	Skipped bool
	Synced  int
	// FailedID is the item that stopped the pass, if any.
	FailedID string
	Err      error
}

type Engine struct {
	queue        Queue
	transport    Transport
	invalidator  Invalidator
	prober       Prober
	pollInterval time.Duration
	now          func() time.Time

	draining atomic.Bool

	mu     sync.RWMutex
	status Status
}

func New(queue Queue, transport Transport, opts Options) *Engine {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	return &Engine{
		queue:        queue,
		transport:    transport,
		invalidator:  opts.Invalidator,
		prober:       opts.Prober,
		pollInterval: interval,
		now:          time.Now,
	}
}

// Drain runs one pass over the queue. A call made while a pass is in progress
// returns immediately with Skipped set.
func (e *Engine) Drain(ctx context.Context, opts DrainOptions) Result {
	if !e.draining.CompareAndSwap(false, true) {
		slog.Debug("drain already in progress, trigger dropped")
		return Result{Skipped: true}
	}
	defer e.draining.Store(false)

	e.setSyncing(true)

	res := e.runPass(ctx, opts)

	e.finishPass(context.WithoutCancel(ctx), res)

	return res
}

func (e *Engine) runPass(ctx context.Context, opts DrainOptions) (res Result) {
	var current *outbox.Item

	defer func() {
		if r := recover(); r != nil {
			slog.Error("sync pass panicked", "panic", r)
			res.Err = fmt.Errorf("%w: %v", ErrSyncFailed, r)

			if current != nil {
				e.release(ctx, current)
			}
		}
	}()

	// Syncing items are listed too: one held elsewhere blocks everything
	// behind it, and one whose lease expired is claimed again.
	statuses := []outbox.Status{outbox.StatusPending, outbox.StatusSyncing}
	if opts.IncludeFailed {
		statuses = append(statuses, outbox.StatusFailed)
	}

	items, err := e.queue.ListByStatus(ctx, statuses...)
	if err != nil {
		slog.Error("failed to read outbox", "error", err)
		res.Err = fmt.Errorf("%w: %w", ErrSyncFailed, err)

		return res
	}

	for _, item := range items {
		if ctx.Err() != nil {
			return res
		}

		claimed, err := e.queue.Claim(ctx, item.ID)
		if errors.Is(err, outbox.ErrNotFound) {
			// Discarded after it was listed.
			continue
		}

		if err != nil {
			slog.Error("failed to claim outbox item", "id", item.ID, "error", err)
			res.Err = fmt.Errorf("%w: %w", ErrSyncFailed, err)

			return res
		}

		if !claimed {
			slog.Info("outbox item held by another worker, ending pass", "id", item.ID)
			return res
		}

		current = item

		if err := e.replay(ctx, item); err != nil {
			res.Err = err

			// An interrupted pass is not the item's fault.
			if ctx.Err() != nil {
				e.release(ctx, item)
				return res
			}

			res.FailedID = item.ID
			e.markFailed(ctx, item, err)

			return res
		}

		current = nil

		if err := e.queue.Remove(context.WithoutCancel(ctx), item.ID); err != nil {
			slog.Error("failed to remove synced item", "id", item.ID, "error", err)
			res.Err = fmt.Errorf("%w: %w", ErrSyncFailed, err)

			return res
		}

		res.Synced++

		slog.Info("synced outbox item",
			"id", item.ID,
			"entity", item.EntityType,
			"action", item.Action,
		)
	}

	return res
}

func (e *Engine) replay(ctx context.Context, item *outbox.Item) error {
	body, err := normalizeTimestamps(item.Body)
	if err != nil {
		return fmt.Errorf("preparing body: %w", err)
	}

	return e.transport.Replay(ctx, item.Method, item.URL, body)
}

// release hands a claimed item back to the queue untouched.
func (e *Engine) release(ctx context.Context, item *outbox.Item) {
	if err := e.queue.Update(context.WithoutCancel(ctx), item.ID, outbox.Patch{Status: new(outbox.StatusPending)}); err != nil {
		slog.Error("failed to release outbox item", "id", item.ID, "error", err)
	}
}

func (e *Engine) markFailed(ctx context.Context, item *outbox.Item, cause error) {
	slog.Warn("outbox item failed",
		"id", item.ID,
		"entity", item.EntityType,
		"action", item.Action,
		"error", cause,
	)

	if err := e.queue.Update(context.WithoutCancel(ctx), item.ID, outbox.Patch{
		Status:    new(outbox.StatusFailed),
		LastError: new(cause.Error()),
	}); err != nil {
		slog.Error("failed to mark outbox item failed", "id", item.ID, "error", err)
	}
}

func (e *Engine) finishPass(ctx context.Context, res Result) {
	if e.invalidator != nil {
		e.invalidator.Purge()
	}

	e.mu.Lock()
	e.status.IsSyncing = false
	e.status.LastSyncTime = e.now()

	switch {
	case res.Err == nil:
		e.status.LastError = ""
	case errors.Is(res.Err, ErrSyncFailed):
		e.status.LastError = ErrSyncFailed.Error()
	default:
		e.status.LastError = res.Err.Error()
	}
	e.mu.Unlock()

	e.refreshCounts(ctx)
}

// Discard deletes an item outright. It is the user's way of giving up on a
// failed mutation.
func (e *Engine) Discard(ctx context.Context, id string) error {
	if err := e.queue.Remove(ctx, id); err != nil {
		return fmt.Errorf("discarding outbox item: %w", err)
	}

	slog.Info("discarded outbox item", "id", id)
	e.refreshCounts(ctx)

	return nil
}

// SetOnline records connectivity. Going from offline to online with pending
// work and no pass running starts a drain before returning; the return value
// reports whether it did.
func (e *Engine) SetOnline(ctx context.Context, online bool) bool {
	e.mu.Lock()
	was := e.status.IsOnline
	e.status.IsOnline = online
	e.mu.Unlock()

	if was || !online {
		return false
	}

	slog.Info("connectivity regained")

	if e.draining.Load() {
		return false
	}

	counts, err := e.refreshCounts(ctx)
	if err != nil || !hasWork(counts) {
		return false
	}

	res := e.Drain(ctx, DrainOptions{})

	return !res.Skipped
}

// Run probes connectivity and refreshes the status every poll interval until
// ctx is done. Pending work is drained whenever the API is reachable.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		e.poll(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (e *Engine) poll(ctx context.Context) {
	online := true

	if e.prober != nil {
		if err := e.prober.Ping(ctx); err != nil {
			slog.Debug("api unreachable", "error", err)

			online = false
		}
	}

	if e.SetOnline(ctx, online) {
		return
	}

	counts, err := e.refreshCounts(ctx)
	if err != nil || !online || !hasWork(counts) {
		return
	}

	e.Drain(ctx, DrainOptions{})
}

// hasWork counts syncing items so that ones abandoned by a dead worker are
// picked up once their lease runs out.
func hasWork(c outbox.Counts) bool {
	return c.Pending+c.Syncing > 0
}

func (e *Engine) refreshCounts(ctx context.Context) (outbox.Counts, error) {
	counts, err := e.queue.CountByStatus(ctx)
	if err != nil {
		slog.Error("failed to count outbox items", "error", err)
		return outbox.Counts{}, err
	}

	e.mu.Lock()
	e.status.PendingCount = counts.Pending
	e.status.FailedCount = counts.Failed
	e.mu.Unlock()

	return counts, nil
}

func (e *Engine) setSyncing(v bool) {
	e.mu.Lock()
	e.status.IsSyncing = v
	e.mu.Unlock()
}
