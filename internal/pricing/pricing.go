package pricing

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("location already exists")
	ErrInactiveRule  = errors.New("pricing rule is inactive")
	ErrValidation    = errors.New("invalid pricing data")
)

// Location is a destination trips are priced against.
type Location struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

// Rule is the list price for a run to a location. Amounts are in the
// smallest currency unit.
type Rule struct {
	ID         uuid.UUID
	LocationID uuid.UUID
	Name       string
	Price      int64
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  *time.Time
}
