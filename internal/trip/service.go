package trip

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/haulbook/internal/idempotency"
	"github.com/MrJamesThe3rd/haulbook/internal/pricing"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=trip
type Repository interface {
	CreateTrip(ctx context.Context, t *Trip) error
	GetTrip(ctx context.Context, id uuid.UUID) (*Trip, error)
	// FindByClientKey matches the exact pair and includes deleted trips.
	FindByClientKey(ctx context.Context, key idempotency.Key) (*Trip, error)
	UpdateTrip(ctx context.Context, t *Trip) error
	DeleteTrip(ctx context.Context, id uuid.UUID) error
	ListTrips(ctx context.Context, filter ListFilter) ([]*Trip, error)
	EnsureVehicle(ctx context.Context, plateNumber string) error
}

type PriceResolver interface {
	ResolvePrice(ctx context.Context, ruleID, locationID uuid.UUID) (int64, error)
}

type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// DiscountReconciler keeps the derived discount expense in line with a trip.
type DiscountReconciler interface {
	ReconcileDiscount(ctx context.Context, tripID uuid.UUID) error
	RemoveDiscount(ctx context.Context, tripID uuid.UUID) error
}

type Service struct {
	repo      Repository
	prices    PriceResolver
	tx        TxRunner
	discounts DiscountReconciler
}

func NewService(repo Repository, prices PriceResolver, tx TxRunner, discounts DiscountReconciler) *Service {
	return &Service{repo: repo, prices: prices, tx: tx, discounts: discounts}
}

type CreateParams struct {
	TripDate      time.Time
	PlateNumber   string
	LocationID    uuid.UUID
	PricingRuleID *uuid.UUID
	BasePrice     int64
	AppliedPrice  int64
	Notes         string
	Key           *idempotency.Key
}

type UpdateParams struct {
	TripDate      *time.Time
	LocationID    *uuid.UUID
	PricingRuleID *uuid.UUID
	BasePrice     *int64
	AppliedPrice  *int64
	Notes         *string
}

type ListFilter struct {
	PlateNumber *string
	StartDate   *time.Time
	EndDate     *time.Time
}

// Create stores a new trip. When params carries an idempotency key that was
// already used, the existing trip is returned with created set to false and
// nothing else happens.
func (s *Service) Create(ctx context.Context, params CreateParams) (t *Trip, created bool, err error) {
	var key *idempotency.Key

	if params.Key != nil {
		key = &idempotency.Key{
			ClientID:        params.Key.ClientID,
			ClientCreatedAt: idempotency.Normalize(params.Key.ClientCreatedAt),
		}

		existing, err := s.repo.FindByClientKey(ctx, *key)
		if err == nil {
			slog.Info("duplicate trip create suppressed", "trip_id", existing.ID, "key", key.String())
			return existing, false, nil
		}

		if !errors.Is(err, ErrNotFound) {
			return nil, false, fmt.Errorf("looking up client key: %w", err)
		}
	}

	t = &Trip{
		TripDate:      params.TripDate,
		PlateNumber:   normalizePlate(params.PlateNumber),
		LocationID:    params.LocationID,
		PricingRuleID: params.PricingRuleID,
		BasePrice:     params.BasePrice,
		AppliedPrice:  params.AppliedPrice,
		Notes:         strings.TrimSpace(params.Notes),
		Key:           key,
	}

	if err := s.resolveBasePrice(ctx, t); err != nil {
		return nil, false, err
	}

	if err := validate(t); err != nil {
		return nil, false, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.repo.EnsureVehicle(ctx, t.PlateNumber); err != nil {
			return fmt.Errorf("provisioning vehicle: %w", err)
		}

		if err := s.repo.CreateTrip(ctx, t); err != nil {
			return err
		}

		return s.discounts.ReconcileDiscount(ctx, t.ID)
	})

	if errors.Is(err, ErrAlreadyExists) && key != nil {
		// Lost the race against a concurrent replay of the same create.
		existing, ferr := s.repo.FindByClientKey(ctx, *key)
		if ferr != nil {
			return nil, false, fmt.Errorf("refetching trip after conflict: %w", ferr)
		}

		return existing, false, nil
	}

	if err != nil {
		return nil, false, err
	}

	return t, true, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Trip, error) {
	return s.repo.GetTrip(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Trip, error) {
	return s.repo.ListTrips(ctx, filter)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (*Trip, error) {
	var t *Trip

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error

		t, err = s.repo.GetTrip(ctx, id)
		if err != nil {
			return err
		}

		repriced := applyUpdate(t, params)
		if repriced {
			if err := s.resolveBasePrice(ctx, t); err != nil {
				return err
			}
		}

		if err := validate(t); err != nil {
			return err
		}

		if err := s.repo.UpdateTrip(ctx, t); err != nil {
			return err
		}

		return s.discounts.ReconcileDiscount(ctx, t.ID)
	})
	if err != nil {
		return nil, err
	}

	return t, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.repo.DeleteTrip(ctx, id); err != nil {
			return err
		}

		return s.discounts.RemoveDiscount(ctx, id)
	})
}

// applyUpdate copies the set fields onto t and reports whether the base price
// has to be resolved again.
func applyUpdate(t *Trip, p UpdateParams) bool {
	repriced := false

	if p.TripDate != nil {
		t.TripDate = *p.TripDate
	}

	if p.LocationID != nil && *p.LocationID != t.LocationID {
		t.LocationID = *p.LocationID
		repriced = t.PricingRuleID != nil
	}

	if p.PricingRuleID != nil {
		t.PricingRuleID = p.PricingRuleID
		repriced = true
	}

	if p.BasePrice != nil {
		t.BasePrice = *p.BasePrice
	}

	if p.AppliedPrice != nil {
		t.AppliedPrice = *p.AppliedPrice
	}

	if p.Notes != nil {
		t.Notes = strings.TrimSpace(*p.Notes)
	}

	return repriced
}

func (s *Service) resolveBasePrice(ctx context.Context, t *Trip) error {
	if t.PricingRuleID == nil {
		return nil
	}

	price, err := s.prices.ResolvePrice(ctx, *t.PricingRuleID, t.LocationID)
	if errors.Is(err, pricing.ErrNotFound) || errors.Is(err, pricing.ErrInactiveRule) {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	if err != nil {
		return fmt.Errorf("resolving base price: %w", err)
	}

	t.BasePrice = price

	return nil
}

func validate(t *Trip) error {
	switch {
	case t.PlateNumber == "":
		return fmt.Errorf("%w: plate number is required", ErrValidation)
	case t.LocationID == uuid.Nil:
		return fmt.Errorf("%w: location is required", ErrValidation)
	case t.TripDate.IsZero():
		return fmt.Errorf("%w: trip date is required", ErrValidation)
	case t.BasePrice < 0 || t.AppliedPrice < 0:
		return fmt.Errorf("%w: prices cannot be negative", ErrValidation)
	}

	return nil
}

func normalizePlate(p string) string {
	return strings.ToUpper(strings.Join(strings.Fields(p), " "))
}
