// Package discount maintains the expense that mirrors a trip's price
// reduction. A trip with base price above its applied price owns exactly one
// DISCOUNT expense for the difference; any other trip owns none.
package discount

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/haulbook/internal/expense"
	"github.com/MrJamesThe3rd/haulbook/internal/trip"
)

//go:generate mockgen -source=synchronizer.go -destination=synchronizer_mock.go -package=discount
type TripReader interface {
	GetTrip(ctx context.Context, id uuid.UUID) (*trip.Trip, error)
}

type ExpenseRepository interface {
	FindDiscountExpense(ctx context.Context, tripID uuid.UUID) (*expense.Expense, error)
	DiscountCategoryID(ctx context.Context) (uuid.UUID, error)
	CreateExpense(ctx context.Context, e *expense.Expense) error
	UpdateExpense(ctx context.Context, e *expense.Expense) error
	DeleteExpense(ctx context.Context, id uuid.UUID) error
}

// Synchronizer must run inside the transaction that changed the trip.
type Synchronizer struct {
	trips    TripReader
	expenses ExpenseRepository
}

func NewSynchronizer(trips TripReader, expenses ExpenseRepository) *Synchronizer {
	return &Synchronizer{trips: trips, expenses: expenses}
}

// ReconcileDiscount brings the trip's discount expense in line with its
// current prices. Calling it again without a trip change is a no-op.
func (s *Synchronizer) ReconcileDiscount(ctx context.Context, tripID uuid.UUID) error {
	t, err := s.trips.GetTrip(ctx, tripID)
	if err != nil {
		if errors.Is(err, trip.ErrNotFound) {
			return nil
		}

		return fmt.Errorf("loading trip: %w", err)
	}

	existing, err := s.find(ctx, tripID)
	if err != nil {
		return err
	}

	amount := t.Discount()

	if amount <= 0 {
		if existing == nil {
			return nil
		}

		if err := s.expenses.DeleteExpense(ctx, existing.ID); err != nil {
			return fmt.Errorf("deleting discount expense: %w", err)
		}

		slog.Info("discount expense removed", "trip_id", tripID, "expense_id", existing.ID)

		return nil
	}

	if existing != nil {
		if !needsUpdate(existing, t, amount) {
			return nil
		}

		apply(existing, t, amount)

		if err := s.expenses.UpdateExpense(ctx, existing); err != nil {
			return fmt.Errorf("updating discount expense: %w", err)
		}

		return nil
	}

	categoryID, err := s.expenses.DiscountCategoryID(ctx)
	if err != nil {
		return fmt.Errorf("resolving discount category: %w", err)
	}

	e := &expense.Expense{
		CategoryID:  categoryID,
		SaleTripID:  &t.ID,
		Description: fmt.Sprintf("Discount on trip %s", t.PlateNumber),
	}
	apply(e, t, amount)

	if err := s.expenses.CreateExpense(ctx, e); err != nil {
		return fmt.Errorf("creating discount expense: %w", err)
	}

	slog.Info("discount expense created", "trip_id", tripID, "expense_id", e.ID, "amount", amount)

	return nil
}

// RemoveDiscount deletes the trip's discount expense if it has one.
func (s *Synchronizer) RemoveDiscount(ctx context.Context, tripID uuid.UUID) error {
	existing, err := s.find(ctx, tripID)
	if err != nil || existing == nil {
		return err
	}

	if err := s.expenses.DeleteExpense(ctx, existing.ID); err != nil {
		return fmt.Errorf("deleting discount expense: %w", err)
	}

	return nil
}

func (s *Synchronizer) find(ctx context.Context, tripID uuid.UUID) (*expense.Expense, error) {
	e, err := s.expenses.FindDiscountExpense(ctx, tripID)
	if err != nil {
		if errors.Is(err, expense.ErrNotFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("finding discount expense: %w", err)
	}

	return e, nil
}

func apply(e *expense.Expense, t *trip.Trip, amount int64) {
	e.Amount = amount
	e.ExpenseDate = t.TripDate
	e.LocationID = &t.LocationID
	e.RelatedPlateNumber = t.PlateNumber
}

func needsUpdate(e *expense.Expense, t *trip.Trip, amount int64) bool {
	return e.Amount != amount ||
		!e.ExpenseDate.Equal(t.TripDate) ||
		e.LocationID == nil || *e.LocationID != t.LocationID ||
		e.RelatedPlateNumber != t.PlateNumber
}
