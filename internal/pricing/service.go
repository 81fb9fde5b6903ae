package pricing

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=pricing
type Repository interface {
	CreateLocation(ctx context.Context, loc *Location) error
	GetLocation(ctx context.Context, id uuid.UUID) (*Location, error)
	ListLocations(ctx context.Context) ([]*Location, error)

	CreateRule(ctx context.Context, rule *Rule) error
	GetRule(ctx context.Context, id uuid.UUID) (*Rule, error)
	ListRules(ctx context.Context, filter RuleFilter) ([]*Rule, error)
	SetRuleActive(ctx context.Context, id uuid.UUID, active bool) error
}

type RuleFilter struct {
	LocationID *uuid.UUID
	ActiveOnly bool
}

type CreateRuleParams struct {
	LocationID uuid.UUID
	Name       string
	Price      int64
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateLocation(ctx context.Context, name string) (*Location, error) {
	loc := &Location{Name: strings.TrimSpace(name)}
	if loc.Name == "" {
		return nil, fmt.Errorf("%w: location name is required", ErrValidation)
	}

	if err := s.repo.CreateLocation(ctx, loc); err != nil {
		return nil, err
	}

	return loc, nil
}

func (s *Service) ListLocations(ctx context.Context) ([]*Location, error) {
	return s.repo.ListLocations(ctx)
}

func (s *Service) CreateRule(ctx context.Context, params CreateRuleParams) (*Rule, error) {
	if params.Price < 0 {
		return nil, fmt.Errorf("%w: price cannot be negative", ErrValidation)
	}

	if _, err := s.repo.GetLocation(ctx, params.LocationID); err != nil {
		return nil, fmt.Errorf("checking location: %w", err)
	}

	rule := &Rule{
		LocationID: params.LocationID,
		Name:       strings.TrimSpace(params.Name),
		Price:      params.Price,
		Active:     true,
	}
	if err := s.repo.CreateRule(ctx, rule); err != nil {
		return nil, err
	}

	return rule, nil
}

func (s *Service) GetRule(ctx context.Context, id uuid.UUID) (*Rule, error) {
	return s.repo.GetRule(ctx, id)
}

func (s *Service) ListRules(ctx context.Context, filter RuleFilter) ([]*Rule, error) {
	return s.repo.ListRules(ctx, filter)
}

func (s *Service) DeactivateRule(ctx context.Context, id uuid.UUID) error {
	return s.repo.SetRuleActive(ctx, id, false)
}

// ResolvePrice returns the base price a trip to locationID earns under
// ruleID. The rule must be active and belong to the location.
func (s *Service) ResolvePrice(ctx context.Context, ruleID, locationID uuid.UUID) (int64, error) {
	rule, err := s.repo.GetRule(ctx, ruleID)
	if err != nil {
		return 0, fmt.Errorf("loading pricing rule: %w", err)
	}

	if !rule.Active {
		return 0, ErrInactiveRule
	}

	if rule.LocationID != locationID {
		return 0, fmt.Errorf("pricing rule %s does not apply to location %s: %w", ruleID, locationID, ErrNotFound)
	}

	return rule.Price, nil
}
