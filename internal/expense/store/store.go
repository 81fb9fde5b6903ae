package store

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/haulbook/internal/database"
	"github.com/MrJamesThe3rd/haulbook/internal/expense"
	"github.com/MrJamesThe3rd/haulbook/internal/idempotency"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanExpense expects the columns of selectExpenseColumns in order.
func scanExpense(s scanner) (*expense.Expense, error) {
	var e expense.Expense

	var cat expense.Category

	var clientID *string

	var clientCreatedAt *time.Time

	if err := s.Scan(
		&e.ID, &e.CategoryID, &cat.Name, &cat.Type, &e.Amount, &e.ExpenseDate,
		&e.LocationID, &e.RelatedPlateNumber, &e.Description, &e.SaleTripID,
		&clientID, &clientCreatedAt, &e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return nil, err
	}

	key, err := idempotency.FromParts(clientID, clientCreatedAt)
	if err != nil {
		return nil, fmt.Errorf("expense %s: %w", e.ID, err)
	}

	cat.ID = e.CategoryID
	e.Category = &cat
	e.Key = key

	return &e, nil
}

const selectExpenseColumns = `
	e.id, e.category_id, c.name, c.type, e.amount, e.expense_date,
	e.location_id, e.related_plate_number, e.description, e.sale_trip_id,
	e.client_id, e.client_created_at, e.created_at, e.updated_at
`

const fromExpenses = ` FROM expenses e JOIN expense_categories c ON c.id = e.category_id`

const insertExpense = `
	INSERT INTO expenses (category_id, amount, expense_date, location_id, related_plate_number, description, sale_trip_id, client_id, client_created_at, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
	RETURNING id, created_at
`

func insertArgs(e *expense.Expense) []any {
	var clientID *string

	var clientCreatedAt *time.Time

	if e.Key != nil {
		clientID = &e.Key.ClientID
		clientCreatedAt = &e.Key.ClientCreatedAt
	}

	return []any{
		e.CategoryID,
		e.Amount,
		e.ExpenseDate,
		e.LocationID,
		e.RelatedPlateNumber,
		e.Description,
		e.SaleTripID,
		clientID,
		clientCreatedAt,
	}
}

func (s *Store) CreateExpense(ctx context.Context, e *expense.Expense) error {
	err := database.QuerierFromCtx(ctx, s.db).QueryRowContext(ctx, insertExpense, insertArgs(e)...).
		Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		switch {
		case database.IsUniqueViolation(err):
			return expense.ErrAlreadyExists
		case database.IsForeignKeyViolation(err):
			return fmt.Errorf("%w: unknown category, location or trip", expense.ErrValidation)
		}

		return fmt.Errorf("creating expense: %w", err)
	}

	return nil
}

func (s *Store) getOne(ctx context.Context, where string, args ...any) (*expense.Expense, error) {
	query := `SELECT ` + selectExpenseColumns + fromExpenses + ` WHERE ` + where

	e, err := scanExpense(database.QuerierFromCtx(ctx, s.db).QueryRowContext(ctx, query, args...))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, expense.ErrNotFound
		}

		return nil, fmt.Errorf("getting expense: %w", err)
	}

	return e, nil
}

func (s *Store) GetExpense(ctx context.Context, id uuid.UUID) (*expense.Expense, error) {
	return s.getOne(ctx, `e.id = $1`, id)
}

func (s *Store) FindByClientKey(ctx context.Context, key idempotency.Key) (*expense.Expense, error) {
	return s.getOne(ctx, `e.client_id = $1 AND e.client_created_at = $2`, key.ClientID, key.ClientCreatedAt)
}

// FindDiscountExpense returns the derived discount expense of a trip.
func (s *Store) FindDiscountExpense(ctx context.Context, tripID uuid.UUID) (*expense.Expense, error) {
	return s.getOne(ctx, `e.sale_trip_id = $1 AND c.type = 'DISCOUNT'`, tripID)
}

func (s *Store) DiscountCategoryID(ctx context.Context) (uuid.UUID, error) {
	var id uuid.UUID

	err := database.QuerierFromCtx(ctx, s.db).QueryRowContext(ctx,
		`SELECT id FROM expense_categories WHERE type = 'DISCOUNT'`,
	).Scan(&id)
	if err != nil {
		if err == sql.ErrNoRows {
			return uuid.Nil, fmt.Errorf("discount category missing, run migrations: %w", expense.ErrNotFound)
		}

		return uuid.Nil, fmt.Errorf("getting discount category: %w", err)
	}

	return id, nil
}

func (s *Store) UpdateExpense(ctx context.Context, e *expense.Expense) error {
	query := `
		UPDATE expenses
		SET category_id = $2, amount = $3, expense_date = $4, location_id = $5,
		    related_plate_number = $6, description = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := database.QuerierFromCtx(ctx, s.db).QueryRowContext(ctx, query,
		e.ID,
		e.CategoryID,
		e.Amount,
		e.ExpenseDate,
		e.LocationID,
		e.RelatedPlateNumber,
		e.Description,
	).Scan(&e.UpdatedAt)
	if err != nil {
		switch {
		case err == sql.ErrNoRows:
			return expense.ErrNotFound
		case database.IsForeignKeyViolation(err):
			return fmt.Errorf("%w: unknown category or location", expense.ErrValidation)
		}

		return fmt.Errorf("updating expense: %w", err)
	}

	return nil
}

func (s *Store) DeleteExpense(ctx context.Context, id uuid.UUID) error {
	res, err := database.QuerierFromCtx(ctx, s.db).ExecContext(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting expense: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}

	if n == 0 {
		return expense.ErrNotFound
	}

	return nil
}

func (s *Store) ListExpenses(ctx context.Context, filter expense.ListFilter) ([]*expense.Expense, error) {
	query := `SELECT ` + selectExpenseColumns + fromExpenses + ` WHERE 1=1`

	var args []any

	argIdx := 1

	if filter.SaleTripID != nil {
		query += fmt.Sprintf(" AND e.sale_trip_id = $%d", argIdx)

		args = append(args, *filter.SaleTripID)
		argIdx++
	}

	if filter.CategoryID != nil {
		query += fmt.Sprintf(" AND e.category_id = $%d", argIdx)

		args = append(args, *filter.CategoryID)
		argIdx++
	}

	if filter.StartDate != nil {
		query += fmt.Sprintf(" AND e.expense_date >= $%d", argIdx)

		args = append(args, *filter.StartDate)
		argIdx++
	}

	if filter.EndDate != nil {
		query += fmt.Sprintf(" AND e.expense_date <= $%d", argIdx)

		args = append(args, *filter.EndDate)
		argIdx++
	}

	query += " ORDER BY e.expense_date DESC, e.created_at DESC"

	return queryExpenses(ctx, database.QuerierFromCtx(ctx, s.db), query, args...)
}

func queryExpenses(ctx context.Context, q database.Querier, query string, args ...any) ([]*expense.Expense, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*expense.Expense

	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning expense: %w", err)
		}

		expenses = append(expenses, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating expenses: %w", err)
	}

	return expenses, nil
}

func scanCategory(s scanner) (*expense.Category, error) {
	var c expense.Category
	if err := s.Scan(&c.ID, &c.Name, &c.Type, &c.CreatedAt); err != nil {
		return nil, err
	}

	return &c, nil
}

func (s *Store) GetCategory(ctx context.Context, id uuid.UUID) (*expense.Category, error) {
	c, err := scanCategory(database.QuerierFromCtx(ctx, s.db).QueryRowContext(ctx,
		`SELECT id, name, type, created_at FROM expense_categories WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, expense.ErrNotFound
		}

		return nil, fmt.Errorf("getting category: %w", err)
	}

	return c, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]*expense.Category, error) {
	rows, err := database.QuerierFromCtx(ctx, s.db).QueryContext(ctx,
		`SELECT id, name, type, created_at FROM expense_categories ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	var cats []*expense.Category

	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}

		cats = append(cats, c)
	}

	return cats, rows.Err()
}

func (s *Store) CreateCategory(ctx context.Context, c *expense.Category) error {
	err := database.QuerierFromCtx(ctx, s.db).QueryRowContext(ctx,
		`INSERT INTO expense_categories (name, type) VALUES ($1, $2) RETURNING id, created_at`,
		c.Name, c.Type,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("%w: category %q exists", expense.ErrValidation, c.Name)
		}

		return fmt.Errorf("creating category: %w", err)
	}

	return nil
}

func importLockKey(minDate, maxDate time.Time) int64 {
	h := fnv.New64a()
	h.Write([]byte("expenses"))
	h.Write([]byte{0})
	h.Write([]byte(minDate.Format(time.DateOnly)))
	h.Write([]byte{0})
	h.Write([]byte(maxDate.Format(time.DateOnly)))

	return int64(h.Sum64())
}

type importTx struct {
	tx *sql.Tx
}

// BeginImport opens a transaction holding an advisory lock on the date range,
// so two imports of overlapping statements cannot both miss each other's rows.
func (s *Store) BeginImport(ctx context.Context, minDate, maxDate time.Time) (expense.ImportTx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning import tx: %w", err)
	}

	if _, err := dbTx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", importLockKey(minDate, maxDate)); err != nil {
		dbTx.Rollback()
		return nil, fmt.Errorf("acquiring import lock: %w", err)
	}

	return &importTx{tx: dbTx}, nil
}

func (itx *importTx) Commit() error   { return itx.tx.Commit() }
func (itx *importTx) Rollback() error { return itx.tx.Rollback() }

func (itx *importTx) FindDuplicates(ctx context.Context, params []expense.CreateParams) ([]*expense.Expense, error) {
	if len(params) == 0 {
		return nil, nil
	}

	type lookupKey struct {
		Date        string
		Amount      int64
		Description string
	}

	minDate, maxDate := params[0].ExpenseDate, params[0].ExpenseDate
	keySet := make(map[lookupKey]struct{}, len(params))

	for _, p := range params {
		if p.ExpenseDate.Before(minDate) {
			minDate = p.ExpenseDate
		}

		if p.ExpenseDate.After(maxDate) {
			maxDate = p.ExpenseDate
		}

		keySet[lookupKey{p.ExpenseDate.Format(time.DateOnly), p.Amount, p.Description}] = struct{}{}
	}

	query := `SELECT ` + selectExpenseColumns + fromExpenses + `
		WHERE e.expense_date >= $1 AND e.expense_date < $2 AND c.type = 'REGULAR'`

	candidates, err := queryExpenses(ctx, itx.tx, query, minDate, maxDate.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("finding duplicates: %w", err)
	}

	var duplicates []*expense.Expense

	for _, e := range candidates {
		if _, found := keySet[lookupKey{e.ExpenseDate.Format(time.DateOnly), e.Amount, e.Description}]; found {
			duplicates = append(duplicates, e)
		}
	}

	return duplicates, nil
}

func (itx *importTx) CreateExpenses(ctx context.Context, expenses []*expense.Expense) error {
	for _, e := range expenses {
		if err := itx.tx.QueryRowContext(ctx, insertExpense, insertArgs(e)...).Scan(&e.ID, &e.CreatedAt); err != nil {
			return fmt.Errorf("creating expense: %w", err)
		}
	}

	return nil
}
