package trip

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

var notNilUUID = validation.By(func(v any) error {
	switch id := v.(type) {
	case uuid.UUID:
		if id == uuid.Nil {
			return errors.New("cannot be blank")
		}
	case *uuid.UUID:
		if id != nil && *id == uuid.Nil {
			return errors.New("cannot be blank")
		}
	}

	return nil
})

type createTripRequest struct {
	TripDate        time.Time  `json:"tripDate"`
	PlateNumber     string     `json:"plateNumber"`
	LocationID      uuid.UUID  `json:"locationId"`
	PricingRuleID   *uuid.UUID `json:"pricingRuleId,omitempty"`
	BasePrice       int64      `json:"basePrice"`
	AppliedPrice    int64      `json:"appliedPrice"`
	Notes           string     `json:"notes"`
	ClientID        *string    `json:"clientId,omitempty"`
	ClientCreatedAt *time.Time `json:"clientCreatedAt,omitempty"`
}

func (r createTripRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.TripDate, validation.Required),
		validation.Field(&r.PlateNumber, validation.Required, validation.Length(1, 20)),
		validation.Field(&r.LocationID, notNilUUID),
		validation.Field(&r.PricingRuleID, notNilUUID),
		validation.Field(&r.BasePrice, validation.Min(int64(0))),
		validation.Field(&r.AppliedPrice, validation.Min(int64(0))),
		validation.Field(&r.Notes, validation.Length(0, 1000)),
	)
}

type updateTripRequest struct {
	TripDate      *time.Time `json:"tripDate,omitempty"`
	LocationID    *uuid.UUID `json:"locationId,omitempty"`
	PricingRuleID *uuid.UUID `json:"pricingRuleId,omitempty"`
	BasePrice     *int64     `json:"basePrice,omitempty"`
	AppliedPrice  *int64     `json:"appliedPrice,omitempty"`
	Notes         *string    `json:"notes,omitempty"`
}

func (r updateTripRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.LocationID, notNilUUID),
		validation.Field(&r.PricingRuleID, notNilUUID),
		validation.Field(&r.BasePrice, validation.Min(int64(0))),
		validation.Field(&r.AppliedPrice, validation.Min(int64(0))),
		validation.Field(&r.Notes, validation.Length(0, 1000)),
	)
}
