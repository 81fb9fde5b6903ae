package pricing

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/haulbook/internal/pricing"
)

type ruleResponse struct {
	ID         uuid.UUID  `json:"id"`
	LocationID uuid.UUID  `json:"locationId"`
	Name       string     `json:"name"`
	Price      int64      `json:"price"`
	Active     bool       `json:"active"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  *time.Time `json:"updatedAt,omitempty"`
}

type locationResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

func toRuleResponse(r *pricing.Rule) ruleResponse {
	return ruleResponse{
		ID:         r.ID,
		LocationID: r.LocationID,
		Name:       r.Name,
		Price:      r.Price,
		Active:     r.Active,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func toLocationResponse(l *pricing.Location) locationResponse {
	return locationResponse{ID: l.ID, Name: l.Name}
}
