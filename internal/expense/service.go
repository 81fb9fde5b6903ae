package expense

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/haulbook/internal/idempotency"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=expense
type Repository interface {
	CreateExpense(ctx context.Context, e *Expense) error
	GetExpense(ctx context.Context, id uuid.UUID) (*Expense, error)
	FindByClientKey(ctx context.Context, key idempotency.Key) (*Expense, error)
	UpdateExpense(ctx context.Context, e *Expense) error
	DeleteExpense(ctx context.Context, id uuid.UUID) error
	ListExpenses(ctx context.Context, filter ListFilter) ([]*Expense, error)

	GetCategory(ctx context.Context, id uuid.UUID) (*Category, error)
	ListCategories(ctx context.Context) ([]*Category, error)
	CreateCategory(ctx context.Context, c *Category) error

	BeginImport(ctx context.Context, minDate, maxDate time.Time) (ImportTx, error)
}

type ImportTx interface {
	FindDuplicates(ctx context.Context, params []CreateParams) ([]*Expense, error)
	CreateExpenses(ctx context.Context, expenses []*Expense) error
	Commit() error
	Rollback() error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type CreateParams struct {
	CategoryID         uuid.UUID
	Amount             int64
	ExpenseDate        time.Time
	LocationID         *uuid.UUID
	RelatedPlateNumber string
	Description        string
	Key                *idempotency.Key
}

type UpdateParams struct {
	CategoryID         *uuid.UUID
	Amount             *int64
	ExpenseDate        *time.Time
	LocationID         *uuid.UUID
	RelatedPlateNumber *string
	Description        *string
}

type ListFilter struct {
	SaleTripID *uuid.UUID
	CategoryID *uuid.UUID
	StartDate  *time.Time
	EndDate    *time.Time
}

// Create stores a user expense. A repeated idempotency key returns the
// expense created the first time with created set to false.
func (s *Service) Create(ctx context.Context, params CreateParams) (e *Expense, created bool, err error) {
	var key *idempotency.Key

	if params.Key != nil {
		key = &idempotency.Key{
			ClientID:        params.Key.ClientID,
			ClientCreatedAt: idempotency.Normalize(params.Key.ClientCreatedAt),
		}

		existing, err := s.repo.FindByClientKey(ctx, *key)
		if err == nil {
			slog.Info("duplicate expense create suppressed", "expense_id", existing.ID, "key", key.String())
			return existing, false, nil
		}

		if !errors.Is(err, ErrNotFound) {
			return nil, false, fmt.Errorf("looking up client key: %w", err)
		}
	}

	cat, err := s.regularCategory(ctx, params.CategoryID)
	if err != nil {
		return nil, false, err
	}

	e = &Expense{
		CategoryID:         cat.ID,
		Category:           cat,
		Amount:             params.Amount,
		ExpenseDate:        params.ExpenseDate,
		LocationID:         params.LocationID,
		RelatedPlateNumber: strings.TrimSpace(params.RelatedPlateNumber),
		Description:        strings.TrimSpace(params.Description),
		Key:                key,
	}

	if err := validate(e); err != nil {
		return nil, false, err
	}

	err = s.repo.CreateExpense(ctx, e)
	if errors.Is(err, ErrAlreadyExists) && key != nil {
		existing, ferr := s.repo.FindByClientKey(ctx, *key)
		if ferr != nil {
			return nil, false, fmt.Errorf("refetching expense after conflict: %w", ferr)
		}

		return existing, false, nil
	}

	if err != nil {
		return nil, false, err
	}

	return e, true, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Expense, error) {
	return s.repo.GetExpense(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Expense, error) {
	return s.repo.ListExpenses(ctx, filter)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (*Expense, error) {
	e, err := s.repo.GetExpense(ctx, id)
	if err != nil {
		return nil, err
	}

	if e.IsDiscount() {
		return nil, ErrDiscountManaged
	}

	if params.CategoryID != nil && *params.CategoryID != e.CategoryID {
		cat, err := s.regularCategory(ctx, *params.CategoryID)
		if err != nil {
			return nil, err
		}

		e.CategoryID = cat.ID
		e.Category = cat
	}

	if params.Amount != nil {
		e.Amount = *params.Amount
	}

	if params.ExpenseDate != nil {
		e.ExpenseDate = *params.ExpenseDate
	}

	if params.LocationID != nil {
		e.LocationID = params.LocationID
	}

	if params.RelatedPlateNumber != nil {
		e.RelatedPlateNumber = strings.TrimSpace(*params.RelatedPlateNumber)
	}

	if params.Description != nil {
		e.Description = strings.TrimSpace(*params.Description)
	}

	if err := validate(e); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateExpense(ctx, e); err != nil {
		return nil, err
	}

	return e, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	e, err := s.repo.GetExpense(ctx, id)
	if err != nil {
		return err
	}

	if e.IsDiscount() {
		return ErrDiscountManaged
	}

	return s.repo.DeleteExpense(ctx, id)
}

func (s *Service) ListCategories(ctx context.Context) ([]*Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) CreateCategory(ctx context.Context, name string, typ CategoryType) (*Category, error) {
	if typ == "" {
		typ = CategoryRegular
	}

	if typ == CategoryDiscount {
		return nil, ErrDiscountManaged
	}

	if typ != CategoryRegular {
		return nil, fmt.Errorf("%w: unknown category type %q", ErrValidation, typ)
	}

	cat := &Category{Name: strings.TrimSpace(name), Type: typ}
	if cat.Name == "" {
		return nil, fmt.Errorf("%w: category name is required", ErrValidation)
	}

	if err := s.repo.CreateCategory(ctx, cat); err != nil {
		return nil, err
	}

	return cat, nil
}

// regularCategory loads a category a user may file expenses under.
func (s *Service) regularCategory(ctx context.Context, id uuid.UUID) (*Category, error) {
	cat, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown category", ErrValidation)
		}

		return nil, err
	}

	if cat.Type == CategoryDiscount {
		return nil, ErrDiscountManaged
	}

	return cat, nil
}

func validate(e *Expense) error {
	switch {
	case e.Amount <= 0:
		return fmt.Errorf("%w: amount must be positive", ErrValidation)
	case e.ExpenseDate.IsZero():
		return fmt.Errorf("%w: expense date is required", ErrValidation)
	}

	return nil
}
