package apiclient

import "time"

// Paths the outbox replays against.
const (
	TripsPath    = "/api/v1/trips"
	ExpensesPath = "/api/v1/expenses"
)

// TripInput is the body of a trip create. BasePrice is ignored by the server
// when PricingRuleID is set.
type TripInput struct {
	TripDate      time.Time `json:"tripDate"`
	PlateNumber   string    `json:"plateNumber"`
	LocationID    string    `json:"locationId"`
	PricingRuleID *string   `json:"pricingRuleId,omitempty"`
	BasePrice     int64     `json:"basePrice,omitempty"`
	AppliedPrice  int64     `json:"appliedPrice"`
	Notes         string    `json:"notes,omitempty"`
}

type TripPatch struct {
	TripDate      *time.Time `json:"tripDate,omitempty"`
	LocationID    *string    `json:"locationId,omitempty"`
	PricingRuleID *string    `json:"pricingRuleId,omitempty"`
	BasePrice     *int64     `json:"basePrice,omitempty"`
	AppliedPrice  *int64     `json:"appliedPrice,omitempty"`
	Notes         *string    `json:"notes,omitempty"`
}

type ExpenseInput struct {
	CategoryID         string    `json:"categoryId"`
	Amount             int64     `json:"amount"`
	ExpenseDate        time.Time `json:"expenseDate"`
	LocationID         *string   `json:"locationId,omitempty"`
	RelatedPlateNumber string    `json:"relatedPlateNumber,omitempty"`
	Description        string    `json:"description,omitempty"`
}

type ExpensePatch struct {
	CategoryID         *string    `json:"categoryId,omitempty"`
	Amount             *int64     `json:"amount,omitempty"`
	ExpenseDate        *time.Time `json:"expenseDate,omitempty"`
	LocationID         *string    `json:"locationId,omitempty"`
	RelatedPlateNumber *string    `json:"relatedPlateNumber,omitempty"`
	Description        *string    `json:"description,omitempty"`
}
