package expense

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/haulbook/internal/expense"
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

type createExpenseRequest struct {
	CategoryID         uuid.UUID  `json:"categoryId"`
	Amount             int64      `json:"amount"`
	ExpenseDate        time.Time  `json:"expenseDate"`
	LocationID         *uuid.UUID `json:"locationId,omitempty"`
	RelatedPlateNumber string     `json:"relatedPlateNumber"`
	Description        string     `json:"description"`
	ClientID           *string    `json:"clientId,omitempty"`
	ClientCreatedAt    *time.Time `json:"clientCreatedAt,omitempty"`
}

func (r createExpenseRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CategoryID, notNilUUID),
		validation.Field(&r.Amount, validation.Required, validation.Min(int64(1))),
		validation.Field(&r.ExpenseDate, validation.Required),
		validation.Field(&r.LocationID, notNilUUID),
		validation.Field(&r.RelatedPlateNumber, validation.Length(0, 20)),
		validation.Field(&r.Description, validation.Length(0, 500)),
	)
}

type updateExpenseRequest struct {
	CategoryID         *uuid.UUID `json:"categoryId,omitempty"`
	Amount             *int64     `json:"amount,omitempty"`
	ExpenseDate        *time.Time `json:"expenseDate,omitempty"`
	LocationID         *uuid.UUID `json:"locationId,omitempty"`
	RelatedPlateNumber *string    `json:"relatedPlateNumber,omitempty"`
	Description        *string    `json:"description,omitempty"`
}

func (r updateExpenseRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CategoryID, notNilUUID),
		validation.Field(&r.Amount, validation.Min(int64(1))),
		validation.Field(&r.LocationID, notNilUUID),
		validation.Field(&r.RelatedPlateNumber, validation.Length(0, 20)),
		validation.Field(&r.Description, validation.Length(0, 500)),
	)
}

type createCategoryRequest struct {
	Name string               `json:"name"`
	Type expense.CategoryType `json:"type"`
}

func (r createCategoryRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Type, validation.In(expense.CategoryRegular, expense.CategoryDiscount)),
	)
}
