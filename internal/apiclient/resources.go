package apiclient

import (
	"context"
	"net/url"
	"time"
)

// Trip mirrors the server's trip representation.
type Trip struct {
	ID              string     `json:"id"`
	TripDate        time.Time  `json:"tripDate"`
	PlateNumber     string     `json:"plateNumber"`
	LocationID      string     `json:"locationId"`
	PricingRuleID   *string    `json:"pricingRuleId,omitempty"`
	BasePrice       int64      `json:"basePrice"`
	AppliedPrice    int64      `json:"appliedPrice"`
	Notes           string     `json:"notes,omitempty"`
	ClientID        *string    `json:"clientId,omitempty"`
	ClientCreatedAt *time.Time `json:"clientCreatedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type Expense struct {
	ID                 string    `json:"id"`
	Category           Category  `json:"category"`
	Amount             int64     `json:"amount"`
	ExpenseDate        time.Time `json:"expenseDate"`
	LocationID         *string   `json:"locationId,omitempty"`
	RelatedPlateNumber string    `json:"relatedPlateNumber,omitempty"`
	Description        string    `json:"description,omitempty"`
	SaleTripID         *string   `json:"saleTripId,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
}

type Location struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type PricingRule struct {
	ID         string `json:"id"`
	LocationID string `json:"locationId"`
	Name       string `json:"name"`
	Price      int64  `json:"price"`
	Active     bool   `json:"active"`
}

func (c *Client) ListTrips(ctx context.Context) ([]Trip, error) {
	var trips []Trip
	if err := c.getJSON(ctx, "/api/v1/trips", &trips); err != nil {
		return nil, err
	}

	return trips, nil
}

// ListExpenses returns all expenses, or only those derived from tripID when
// it is non-empty.
func (c *Client) ListExpenses(ctx context.Context, tripID string) ([]Expense, error) {
	path := "/api/v1/expenses"
	if tripID != "" {
		path += "?" + url.Values{"tripId": {tripID}}.Encode()
	}

	var expenses []Expense
	if err := c.getJSON(ctx, path, &expenses); err != nil {
		return nil, err
	}

	return expenses, nil
}

func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	var cats []Category
	if err := c.getJSON(ctx, "/api/v1/expense-categories", &cats); err != nil {
		return nil, err
	}

	return cats, nil
}

func (c *Client) ListLocations(ctx context.Context) ([]Location, error) {
	var locs []Location
	if err := c.getJSON(ctx, "/api/v1/locations", &locs); err != nil {
		return nil, err
	}

	return locs, nil
}

func (c *Client) ListPricingRules(ctx context.Context) ([]PricingRule, error) {
	var rules []PricingRule
	if err := c.getJSON(ctx, "/api/v1/pricing-rules", &rules); err != nil {
		return nil, err
	}

	return rules, nil
}
