package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/haulbook/internal/database"
	"github.com/MrJamesThe3rd/haulbook/internal/pricing"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateLocation(ctx context.Context, loc *pricing.Location) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO locations (name) VALUES ($1) RETURNING id, created_at`,
		loc.Name,
	).Scan(&loc.ID, &loc.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return pricing.ErrAlreadyExists
		}

		return fmt.Errorf("creating location: %w", err)
	}

	return nil
}

func (s *Store) GetLocation(ctx context.Context, id uuid.UUID) (*pricing.Location, error) {
	var loc pricing.Location

	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM locations WHERE id = $1`, id,
	).Scan(&loc.ID, &loc.Name, &loc.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, pricing.ErrNotFound
		}

		return nil, fmt.Errorf("getting location: %w", err)
	}

	return &loc, nil
}

func (s *Store) ListLocations(ctx context.Context) ([]*pricing.Location, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, created_at FROM locations ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing locations: %w", err)
	}
	defer rows.Close()

	var locs []*pricing.Location

	for rows.Next() {
		var loc pricing.Location
		if err := rows.Scan(&loc.ID, &loc.Name, &loc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning location: %w", err)
		}

		locs = append(locs, &loc)
	}

	return locs, rows.Err()
}

const selectRuleColumns = `id, location_id, name, price, active, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRule(s scanner) (*pricing.Rule, error) {
	var r pricing.Rule
	if err := s.Scan(&r.ID, &r.LocationID, &r.Name, &r.Price, &r.Active, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}

	return &r, nil
}

func (s *Store) CreateRule(ctx context.Context, rule *pricing.Rule) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO pricing_rules (location_id, name, price, active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		rule.LocationID, rule.Name, rule.Price, rule.Active,
	).Scan(&rule.ID, &rule.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating pricing rule: %w", err)
	}

	return nil
}

func (s *Store) GetRule(ctx context.Context, id uuid.UUID) (*pricing.Rule, error) {
	rule, err := scanRule(s.db.QueryRowContext(ctx,
		`SELECT `+selectRuleColumns+` FROM pricing_rules WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, pricing.ErrNotFound
		}

		return nil, fmt.Errorf("getting pricing rule: %w", err)
	}

	return rule, nil
}

func (s *Store) ListRules(ctx context.Context, filter pricing.RuleFilter) ([]*pricing.Rule, error) {
	query := `SELECT ` + selectRuleColumns + ` FROM pricing_rules WHERE 1=1`

	var args []any

	argIdx := 1

	if filter.LocationID != nil {
		query += fmt.Sprintf(" AND location_id = $%d", argIdx)

		args = append(args, *filter.LocationID)
		argIdx++
	}

	if filter.ActiveOnly {
		query += " AND active"
	}

	query += " ORDER BY name ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing pricing rules: %w", err)
	}
	defer rows.Close()

	var rules []*pricing.Rule

	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning pricing rule: %w", err)
		}

		rules = append(rules, r)
	}

	return rules, rows.Err()
}

func (s *Store) SetRuleActive(ctx context.Context, id uuid.UUID, active bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE pricing_rules SET active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("updating pricing rule: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}

	if n == 0 {
		return pricing.ErrNotFound
	}

	return nil
}
