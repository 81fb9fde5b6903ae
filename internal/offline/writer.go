// Package offline is the write path of the client. Every mutation is queued
// in the outbox first and reaches the API only through the sync engine.
package offline

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/MrJamesThe3rd/haulbook/internal/apiclient"
	"github.com/MrJamesThe3rd/haulbook/internal/idempotency"
	"github.com/MrJamesThe3rd/haulbook/internal/outbox"
	"github.com/MrJamesThe3rd/haulbook/internal/syncer"
)

//go:generate mockgen -source=writer.go -destination=writer_mock.go -package=offline
type Queue interface {
	Enqueue(ctx context.Context, item *outbox.Item) (string, error)
}

type Engine interface {
	Drain(ctx context.Context, opts syncer.DrainOptions) syncer.Result
	Status() syncer.Status
}

type KeyGenerator interface {
	Generate() idempotency.Key
}

type Writer struct {
	queue  Queue
	engine Engine
	keys   KeyGenerator

	wg sync.WaitGroup
}

func NewWriter(queue Queue, engine Engine, keys KeyGenerator) *Writer {
	return &Writer{queue: queue, engine: engine, keys: keys}
}

func (w *Writer) CreateTrip(ctx context.Context, in apiclient.TripInput) (*outbox.Item, error) {
	item, err := outbox.NewCreate(outbox.EntityTrip, apiclient.TripsPath, in, w.keys.Generate())
	if err != nil {
		return nil, fmt.Errorf("building trip create: %w", err)
	}

	return w.enqueue(ctx, item)
}

func (w *Writer) UpdateTrip(ctx context.Context, id string, patch apiclient.TripPatch) (*outbox.Item, error) {
	item, err := outbox.NewUpdate(outbox.EntityTrip, resourceURL(apiclient.TripsPath, id), patch)
	if err != nil {
		return nil, fmt.Errorf("building trip update: %w", err)
	}

	return w.enqueue(ctx, item)
}

func (w *Writer) DeleteTrip(ctx context.Context, id string) (*outbox.Item, error) {
	return w.enqueue(ctx, outbox.NewDelete(outbox.EntityTrip, resourceURL(apiclient.TripsPath, id)))
}

func (w *Writer) CreateExpense(ctx context.Context, in apiclient.ExpenseInput) (*outbox.Item, error) {
	item, err := outbox.NewCreate(outbox.EntityExpense, apiclient.ExpensesPath, in, w.keys.Generate())
	if err != nil {
		return nil, fmt.Errorf("building expense create: %w", err)
	}

	return w.enqueue(ctx, item)
}

func (w *Writer) UpdateExpense(ctx context.Context, id string, patch apiclient.ExpensePatch) (*outbox.Item, error) {
	item, err := outbox.NewUpdate(outbox.EntityExpense, resourceURL(apiclient.ExpensesPath, id), patch)
	if err != nil {
		return nil, fmt.Errorf("building expense update: %w", err)
	}

	return w.enqueue(ctx, item)
}

func (w *Writer) DeleteExpense(ctx context.Context, id string) (*outbox.Item, error) {
	return w.enqueue(ctx, outbox.NewDelete(outbox.EntityExpense, resourceURL(apiclient.ExpensesPath, id)))
}

// Wait blocks until drains started by writes have finished.
func (w *Writer) Wait() {
	w.wg.Wait()
}

// enqueue persists item and, when the API is reachable, starts a drain in
// the background. The write is complete once the item is on disk.
func (w *Writer) enqueue(ctx context.Context, item *outbox.Item) (*outbox.Item, error) {
	if _, err := w.queue.Enqueue(ctx, item); err != nil {
		return nil, fmt.Errorf("queueing %s %s: %w", item.Action, item.EntityType, err)
	}

	slog.Debug("mutation queued", "id", item.ID, "entity", item.EntityType, "action", item.Action)

	if w.engine.Status().IsOnline {
		dctx := context.WithoutCancel(ctx)

		w.wg.Go(func() {
			w.engine.Drain(dctx, syncer.DrainOptions{})
		})
	}

	return item, nil
}

func resourceURL(base, id string) string {
	return base + "/" + url.PathEscape(id)
}
