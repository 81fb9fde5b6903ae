package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/haulbook/internal/database"
	"github.com/MrJamesThe3rd/haulbook/internal/idempotency"
	"github.com/MrJamesThe3rd/haulbook/internal/trip"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// Expected column order: see selectTripColumns.
func scanTrip(s scanner) (*trip.Trip, error) {
	var t trip.Trip

	var clientID *string

	var clientCreatedAt *time.Time

	if err := s.Scan(
		&t.ID, &t.TripDate, &t.PlateNumber, &t.LocationID, &t.PricingRuleID,
		&t.BasePrice, &t.AppliedPrice, &t.Notes, &clientID, &clientCreatedAt,
		&t.CreatedAt, &t.UpdatedAt, &t.DeletedAt,
	); err != nil {
		return nil, err
	}

	key, err := idempotency.FromParts(clientID, clientCreatedAt)
	if err != nil {
		return nil, fmt.Errorf("trip %s: %w", t.ID, err)
	}

	t.Key = key

	return &t, nil
}

const selectTripColumns = `
	id, trip_date, plate_number, location_id, pricing_rule_id,
	base_price, applied_price, notes, client_id, client_created_at,
	created_at, updated_at, deleted_at
`

func (s *Store) CreateTrip(ctx context.Context, t *trip.Trip) error {
	query := `
		INSERT INTO trips (trip_date, plate_number, location_id, pricing_rule_id, base_price, applied_price, notes, client_id, client_created_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		RETURNING id, created_at
	`

	var clientID *string

	var clientCreatedAt *time.Time

	if t.Key != nil {
		clientID = &t.Key.ClientID
		clientCreatedAt = &t.Key.ClientCreatedAt
	}

	err := database.QuerierFromCtx(ctx, s.db).QueryRowContext(ctx, query,
		t.TripDate,
		t.PlateNumber,
		t.LocationID,
		t.PricingRuleID,
		t.BasePrice,
		t.AppliedPrice,
		t.Notes,
		clientID,
		clientCreatedAt,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		switch {
		case database.IsUniqueViolation(err):
			return trip.ErrAlreadyExists
		case database.IsForeignKeyViolation(err):
			return fmt.Errorf("%w: unknown location or pricing rule", trip.ErrValidation)
		}

		return fmt.Errorf("creating trip: %w", err)
	}

	return nil
}

func (s *Store) GetTrip(ctx context.Context, id uuid.UUID) (*trip.Trip, error) {
	query := `SELECT ` + selectTripColumns + ` FROM trips WHERE id = $1 AND deleted_at IS NULL`

	t, err := scanTrip(database.QuerierFromCtx(ctx, s.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, trip.ErrNotFound
		}

		return nil, fmt.Errorf("getting trip: %w", err)
	}

	return t, nil
}

func (s *Store) FindByClientKey(ctx context.Context, key idempotency.Key) (*trip.Trip, error) {
	query := `SELECT ` + selectTripColumns + ` FROM trips WHERE client_id = $1 AND client_created_at = $2`

	t, err := scanTrip(database.QuerierFromCtx(ctx, s.db).QueryRowContext(ctx, query, key.ClientID, key.ClientCreatedAt))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, trip.ErrNotFound
		}

		return nil, fmt.Errorf("finding trip by client key: %w", err)
	}

	return t, nil
}

func (s *Store) UpdateTrip(ctx context.Context, t *trip.Trip) error {
	query := `
		UPDATE trips
		SET trip_date = $2, location_id = $3, pricing_rule_id = $4, base_price = $5,
		    applied_price = $6, notes = $7, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING updated_at
	`

	err := database.QuerierFromCtx(ctx, s.db).QueryRowContext(ctx, query,
		t.ID,
		t.TripDate,
		t.LocationID,
		t.PricingRuleID,
		t.BasePrice,
		t.AppliedPrice,
		t.Notes,
	).Scan(&t.UpdatedAt)
	if err != nil {
		switch {
		case err == sql.ErrNoRows:
			return trip.ErrNotFound
		case database.IsForeignKeyViolation(err):
			return fmt.Errorf("%w: unknown location or pricing rule", trip.ErrValidation)
		}

		return fmt.Errorf("updating trip: %w", err)
	}

	return nil
}

// DeleteTrip soft deletes the trip. The row keeps its idempotency key so a
// late replay of its creation is still recognised.
func (s *Store) DeleteTrip(ctx context.Context, id uuid.UUID) error {
	res, err := database.QuerierFromCtx(ctx, s.db).ExecContext(ctx,
		`UPDATE trips SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("deleting trip: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}

	if n == 0 {
		return trip.ErrNotFound
	}

	return nil
}

func (s *Store) ListTrips(ctx context.Context, filter trip.ListFilter) ([]*trip.Trip, error) {
	query := `SELECT ` + selectTripColumns + ` FROM trips WHERE deleted_at IS NULL`

	var args []any

	argIdx := 1

	if filter.PlateNumber != nil {
		query += fmt.Sprintf(" AND plate_number = $%d", argIdx)

		args = append(args, *filter.PlateNumber)
		argIdx++
	}

	if filter.StartDate != nil {
		query += fmt.Sprintf(" AND trip_date >= $%d", argIdx)

		args = append(args, *filter.StartDate)
		argIdx++
	}

	if filter.EndDate != nil {
		query += fmt.Sprintf(" AND trip_date <= $%d", argIdx)

		args = append(args, *filter.EndDate)
		argIdx++
	}

	query += " ORDER BY trip_date DESC, created_at DESC"

	rows, err := database.QuerierFromCtx(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing trips: %w", err)
	}
	defer rows.Close()

	var trips []*trip.Trip

	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning trip: %w", err)
		}

		trips = append(trips, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating trips: %w", err)
	}

	return trips, nil
}

// EnsureVehicle registers the plate the first time it is seen.
func (s *Store) EnsureVehicle(ctx context.Context, plateNumber string) error {
	_, err := database.QuerierFromCtx(ctx, s.db).ExecContext(ctx,
		`INSERT INTO vehicles (plate_number) VALUES ($1) ON CONFLICT (plate_number) DO NOTHING`, plateNumber)
	if err != nil {
		return fmt.Errorf("ensuring vehicle: %w", err)
	}

	return nil
}
