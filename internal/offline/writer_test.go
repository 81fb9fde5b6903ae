package offline_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/haulbook/internal/apiclient"
	"github.com/MrJamesThe3rd/haulbook/internal/idempotency"
	"github.com/MrJamesThe3rd/haulbook/internal/offline"
	"github.com/MrJamesThe3rd/haulbook/internal/outbox"
	"github.com/MrJamesThe3rd/haulbook/internal/syncer"
)

type mocks struct {
	queue  *offline.MockQueue
	engine *offline.MockEngine
	keys   *offline.MockKeyGenerator
}

func newWriter(t *testing.T) (*offline.Writer, mocks) {
	ctrl := gomock.NewController(t)

	m := mocks{
		queue:  offline.NewMockQueue(ctrl),
		engine: offline.NewMockEngine(ctrl),
		keys:   offline.NewMockKeyGenerator(ctrl),
	}

	return offline.NewWriter(m.queue, m.engine, m.keys), m
}

func TestWriter_CreateTripOffline(t *testing.T) {
	w, m := newWriter(t)

	key := idempotency.Key{ClientID: "c-1", ClientCreatedAt: time.Date(2026, 5, 1, 8, 0, 0, 123000, time.UTC)}

	m.keys.EXPECT().Generate().Return(key)
	m.queue.EXPECT().Enqueue(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, it *outbox.Item) (string, error) {
		return "q-1", nil
	})
	m.engine.EXPECT().Status().Return(syncer.Status{IsOnline: false})

	item, err := w.CreateTrip(context.Background(), apiclient.TripInput{
		TripDate:     time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		PlateNumber:  "AA-00-BB",
		LocationID:   "loc-1",
		BasePrice:    280000,
		AppliedPrice: 250000,
	})
	require.NoError(t, err)
	w.Wait()

	assert.Equal(t, outbox.EntityTrip, item.EntityType)
	assert.Equal(t, outbox.ActionCreate, item.Action)
	assert.Equal(t, http.MethodPost, item.Method)
	assert.Equal(t, apiclient.TripsPath, item.URL)
	assert.Equal(t, "c-1", item.ClientID)

	var body map[string]any
	require.NoError(t, json.Unmarshal(item.Body, &body))
	assert.Equal(t, "c-1", body["clientId"])
	assert.Equal(t, "2026-05-01T08:00:00.000123Z", body["clientCreatedAt"])
	assert.Equal(t, float64(250000), body["appliedPrice"])
}

func TestWriter_OnlineWriteStartsDrain(t *testing.T) {
	w, m := newWriter(t)

	m.keys.EXPECT().Generate().Return(idempotency.Key{ClientID: "c-2", ClientCreatedAt: time.Now().UTC()})
	m.queue.EXPECT().Enqueue(gomock.Any(), gomock.Any()).Return("q-2", nil)
	m.engine.EXPECT().Status().Return(syncer.Status{IsOnline: true})
	m.engine.EXPECT().Drain(gomock.Any(), syncer.DrainOptions{}).Return(syncer.Result{Synced: 1})

	ctx, cancel := context.WithCancel(context.Background())

	_, err := w.CreateExpense(ctx, apiclient.ExpenseInput{CategoryID: "cat-1", Amount: 4500, ExpenseDate: time.Now()})
	require.NoError(t, err)

	// The drain outlives the request that triggered it.
	cancel()
	w.Wait()
}

func TestWriter_UpdateAndDelete(t *testing.T) {
	w, m := newWriter(t)

	var queued []*outbox.Item

	m.queue.EXPECT().Enqueue(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, it *outbox.Item) (string, error) {
		queued = append(queued, it)
		return it.ID, nil
	}).Times(2)
	m.engine.EXPECT().Status().Return(syncer.Status{}).Times(2)

	ctx := context.Background()

	_, err := w.UpdateExpense(ctx, "e/1", apiclient.ExpensePatch{Amount: new(int64(900))})
	require.NoError(t, err)

	_, err = w.DeleteTrip(ctx, "t-1")
	require.NoError(t, err)

	require.Len(t, queued, 2)

	assert.Equal(t, http.MethodPatch, queued[0].Method)
	assert.Equal(t, "/api/v1/expenses/e%2F1", queued[0].URL)
	assert.JSONEq(t, `{"amount":900}`, string(queued[0].Body))
	assert.Empty(t, queued[0].ClientID)

	assert.Equal(t, http.MethodDelete, queued[1].Method)
	assert.Equal(t, "/api/v1/trips/t-1", queued[1].URL)
	assert.Nil(t, queued[1].Body)
}

func TestWriter_EnqueueFails(t *testing.T) {
	w, m := newWriter(t)

	m.queue.EXPECT().Enqueue(gomock.Any(), gomock.Any()).Return("", errors.New("disk full"))

	_, err := w.DeleteExpense(context.Background(), "e-1")
	assert.ErrorContains(t, err, "queueing delete expense: disk full")
}
