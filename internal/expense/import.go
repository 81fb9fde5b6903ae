package expense

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type ImportResult struct {
	Imported []*Expense
	// Skipped holds statement lines that match an expense already on file.
	Skipped []CreateParams
}

// ImportBatch stores statement lines as expenses, skipping any line whose
// date, amount and description already exist. Lines must use regular
// categories.
func (s *Service) ImportBatch(ctx context.Context, params []CreateParams) (*ImportResult, error) {
	if len(params) == 0 {
		return &ImportResult{}, nil
	}

	checked := make(map[uuid.UUID]bool)

	for _, p := range params {
		if p.Amount <= 0 || p.ExpenseDate.IsZero() {
			return nil, fmt.Errorf("%w: statement line %q has no amount or date", ErrValidation, p.Description)
		}

		if checked[p.CategoryID] {
			continue
		}

		if _, err := s.regularCategory(ctx, p.CategoryID); err != nil {
			return nil, err
		}

		checked[p.CategoryID] = true
	}

	minDate, maxDate := dateRange(params)

	itx, err := s.repo.BeginImport(ctx, minDate, maxDate)
	if err != nil {
		return nil, fmt.Errorf("begin import: %w", err)
	}
	defer itx.Rollback()

	duplicates, err := itx.FindDuplicates(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("find duplicates: %w", err)
	}

	type dupKey struct {
		Date        string
		Amount      int64
		Description string
	}

	seen := make(map[dupKey]bool, len(duplicates))
	for _, d := range duplicates {
		seen[dupKey{d.ExpenseDate.Format(time.DateOnly), d.Amount, d.Description}] = true
	}

	result := &ImportResult{}

	var fresh []*Expense

	for _, p := range params {
		k := dupKey{p.ExpenseDate.Format(time.DateOnly), p.Amount, p.Description}
		if seen[k] {
			result.Skipped = append(result.Skipped, p)
			continue
		}

		seen[k] = true

		fresh = append(fresh, &Expense{
			CategoryID:         p.CategoryID,
			Amount:             p.Amount,
			ExpenseDate:        p.ExpenseDate,
			LocationID:         p.LocationID,
			RelatedPlateNumber: p.RelatedPlateNumber,
			Description:        p.Description,
		})
	}

	if len(fresh) > 0 {
		if err := itx.CreateExpenses(ctx, fresh); err != nil {
			return nil, fmt.Errorf("create expenses: %w", err)
		}
	}

	if err := itx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import: %w", err)
	}

	result.Imported = fresh

	return result, nil
}

func dateRange(params []CreateParams) (time.Time, time.Time) {
	minDate, maxDate := params[0].ExpenseDate, params[0].ExpenseDate

	for _, p := range params[1:] {
		if p.ExpenseDate.Before(minDate) {
			minDate = p.ExpenseDate
		}

		if p.ExpenseDate.After(maxDate) {
			maxDate = p.ExpenseDate
		}
	}

	return minDate, maxDate
}
