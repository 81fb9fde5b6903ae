package expense

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/haulbook/internal/idempotency"
)

var (
	ErrNotFound      = errors.New("expense not found")
	ErrAlreadyExists = errors.New("expense already exists")
	ErrValidation    = errors.New("invalid expense")
	// ErrDiscountManaged rejects direct changes to derived discount expenses.
	ErrDiscountManaged = errors.New("discount expenses are managed automatically")
)

// CategoryType separates user categories from the system discount category.
type CategoryType string

const (
	CategoryRegular  CategoryType = "REGULAR"
	CategoryDiscount CategoryType = "DISCOUNT"
)

type Category struct {
	ID        uuid.UUID
	Name      string
	Type      CategoryType
	CreatedAt time.Time
}

// Expense is money spent. Amount is in the smallest currency unit.
type Expense struct {
	ID                 uuid.UUID
	CategoryID         uuid.UUID
	Category           *Category // Loaded via JOIN
	Amount             int64
	ExpenseDate        time.Time
	LocationID         *uuid.UUID
	RelatedPlateNumber string
	Description        string
	SaleTripID         *uuid.UUID // set on discount expenses only
	Key                *idempotency.Key
	CreatedAt          time.Time
	UpdatedAt          *time.Time
}

// IsDiscount reports whether e is a derived discount expense.
func (e *Expense) IsDiscount() bool {
	return e.Category != nil && e.Category.Type == CategoryDiscount
}
