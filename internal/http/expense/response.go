package expense

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/haulbook/internal/expense"
)

type categoryResponse struct {
	ID   uuid.UUID            `json:"id"`
	Name string               `json:"name"`
	Type expense.CategoryType `json:"type"`
}

type expenseResponse struct {
	ID                 uuid.UUID         `json:"id"`
	CategoryID         uuid.UUID         `json:"categoryId"`
	Category           *categoryResponse `json:"category,omitempty"`
	Amount             int64             `json:"amount"`
	ExpenseDate        time.Time         `json:"expenseDate"`
	LocationID         *uuid.UUID        `json:"locationId,omitempty"`
	RelatedPlateNumber string            `json:"relatedPlateNumber,omitempty"`
	Description        string            `json:"description,omitempty"`
	SaleTripID         *uuid.UUID        `json:"saleTripId,omitempty"`
	ClientID           *string           `json:"clientId,omitempty"`
	ClientCreatedAt    *time.Time        `json:"clientCreatedAt,omitempty"`
	CreatedAt          time.Time         `json:"createdAt"`
	UpdatedAt          *time.Time        `json:"updatedAt,omitempty"`
}

func toCategoryResponse(c *expense.Category) categoryResponse {
	return categoryResponse{ID: c.ID, Name: c.Name, Type: c.Type}
}

func toResponse(e *expense.Expense) expenseResponse {
	resp := expenseResponse{
		ID:                 e.ID,
		CategoryID:         e.CategoryID,
		Amount:             e.Amount,
		ExpenseDate:        e.ExpenseDate,
		LocationID:         e.LocationID,
		RelatedPlateNumber: e.RelatedPlateNumber,
		Description:        e.Description,
		SaleTripID:         e.SaleTripID,
		CreatedAt:          e.CreatedAt,
		UpdatedAt:          e.UpdatedAt,
	}

	if e.Category != nil {
		resp.Category = new(toCategoryResponse(e.Category))
	}

	if e.Key != nil {
		resp.ClientID = &e.Key.ClientID
		resp.ClientCreatedAt = &e.Key.ClientCreatedAt
	}

	return resp
}

func toResponseList(expenses []*expense.Expense) []expenseResponse {
	resp := make([]expenseResponse, len(expenses))
	for i, e := range expenses {
		resp[i] = toResponse(e)
	}

	return resp
}
