package trip

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/haulbook/internal/idempotency"
)

var (
	ErrNotFound = errors.New("trip not found")
	// ErrAlreadyExists is returned by the repository when a trip with the same
	// idempotency key was inserted concurrently.
	ErrAlreadyExists = errors.New("trip already exists")
	ErrValidation    = errors.New("invalid trip")
)

// Trip is one delivery run. Prices are in the smallest currency unit.
type Trip struct {
	ID            uuid.UUID
	TripDate      time.Time
	PlateNumber   string
	LocationID    uuid.UUID
	PricingRuleID *uuid.UUID
	BasePrice     int64 // list price from the pricing rule
	AppliedPrice  int64 // what the customer was actually charged
	Notes         string
	Key           *idempotency.Key
	CreatedAt     time.Time
	UpdatedAt     *time.Time
	DeletedAt     *time.Time
}

// Discount is the price reduction granted on the trip. Only positive values
// produce a discount expense.
func (t *Trip) Discount() int64 {
	return t.BasePrice - t.AppliedPrice
}
