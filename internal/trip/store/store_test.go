package store_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/haulbook/internal/idempotency"
	"github.com/MrJamesThe3rd/haulbook/internal/trip"
	"github.com/MrJamesThe3rd/haulbook/internal/trip/store"
)

var tripColumns = []string{
	"id", "trip_date", "plate_number", "location_id", "pricing_rule_id",
	"base_price", "applied_price", "notes", "client_id", "client_created_at",
	"created_at", "updated_at", "deleted_at",
}

func TestStore_CreateTripDuplicateKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("INSERT INTO trips").WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "trips_client_key_uniq"})

	err = store.New(db).CreateTrip(context.Background(), &trip.Trip{
		PlateNumber: "A",
		Key:         &idempotency.Key{ClientID: "c", ClientCreatedAt: time.Now()},
	})
	assert.ErrorIs(t, err, trip.ErrAlreadyExists)
}

func TestStore_CreateTripPersistsKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	key := idempotency.Key{ClientID: "c-1", ClientCreatedAt: time.Date(2026, 3, 1, 8, 0, 0, 123000, time.UTC)}
	id := uuid.New()

	mock.ExpectQuery("INSERT INTO trips").
		WithArgs(sqlmock.AnyArg(), "A", sqlmock.AnyArg(), nil, int64(280000), int64(250000), "", "c-1", key.ClientCreatedAt).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(id.String(), time.Now()))

	tr := &trip.Trip{
		TripDate:     time.Now(),
		PlateNumber:  "A",
		LocationID:   uuid.New(),
		BasePrice:    280000,
		AppliedPrice: 250000,
		Key:          &key,
	}

	require.NoError(t, store.New(db).CreateTrip(context.Background(), tr))
	assert.Equal(t, id, tr.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_FindByClientKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	key := idempotency.Key{ClientID: "c-1", ClientCreatedAt: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
	id := uuid.New()
	deletedAt := time.Now()

	mock.ExpectQuery("FROM trips WHERE client_id = \\$1 AND client_created_at = \\$2$").
		WithArgs("c-1", key.ClientCreatedAt).
		WillReturnRows(sqlmock.NewRows(tripColumns).AddRow(
			id.String(), time.Now(), "A", uuid.NewString(), nil,
			int64(280000), int64(250000), "", "c-1", key.ClientCreatedAt,
			time.Now(), nil, deletedAt,
		))

	got, err := store.New(db).FindByClientKey(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	require.NotNil(t, got.Key)
	assert.Equal(t, "c-1", got.Key.ClientID)
	assert.NotNil(t, got.DeletedAt, "deleted trips still match their key")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_FindByClientKeyMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM trips").WillReturnError(sql.ErrNoRows)

	_, err = store.New(db).FindByClientKey(context.Background(), idempotency.Key{ClientID: "x", ClientCreatedAt: time.Now()})
	assert.ErrorIs(t, err, trip.ErrNotFound)
}

func TestStore_DeleteTripSoft(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id := uuid.New()

	mock.ExpectExec("UPDATE trips SET deleted_at = NOW\\(\\)").WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE trips SET deleted_at = NOW\\(\\)").WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 0))

	s := store.New(db)
	require.NoError(t, s.DeleteTrip(context.Background(), id))
	assert.ErrorIs(t, s.DeleteTrip(context.Background(), id), trip.ErrNotFound)
}

func TestStore_EnsureVehicleIdempotent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO vehicles .* ON CONFLICT").WithArgs("A").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.New(db).EnsureVehicle(context.Background(), "A"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
