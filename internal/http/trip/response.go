package trip

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/haulbook/internal/trip"
)

type tripResponse struct {
	ID              uuid.UUID  `json:"id"`
	TripDate        time.Time  `json:"tripDate"`
	PlateNumber     string     `json:"plateNumber"`
	LocationID      uuid.UUID  `json:"locationId"`
	PricingRuleID   *uuid.UUID `json:"pricingRuleId,omitempty"`
	BasePrice       int64      `json:"basePrice"`
	AppliedPrice    int64      `json:"appliedPrice"`
	Notes           string     `json:"notes,omitempty"`
	ClientID        *string    `json:"clientId,omitempty"`
	ClientCreatedAt *time.Time `json:"clientCreatedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       *time.Time `json:"updatedAt,omitempty"`
}

func toResponse(t *trip.Trip) tripResponse {
	resp := tripResponse{
		ID:            t.ID,
		TripDate:      t.TripDate,
		PlateNumber:   t.PlateNumber,
		LocationID:    t.LocationID,
		PricingRuleID: t.PricingRuleID,
		BasePrice:     t.BasePrice,
		AppliedPrice:  t.AppliedPrice,
		Notes:         t.Notes,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}

	if t.Key != nil {
		resp.ClientID = &t.Key.ClientID
		resp.ClientCreatedAt = &t.Key.ClientCreatedAt
	}

	return resp
}

func toResponseList(trips []*trip.Trip) []tripResponse {
	resp := make([]tripResponse, len(trips))
	for i, t := range trips {
		resp[i] = toResponse(t)
	}

	return resp
}
