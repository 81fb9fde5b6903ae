// Package importer turns uploaded card statements into expense lines ready
// for expense.Service.ImportBatch.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/MrJamesThe3rd/haulbook/internal/expense"
	"github.com/MrJamesThe3rd/haulbook/internal/importer/card"
)

var (
	ErrUnknownProvider = errors.New("unknown statement provider")
	ErrNoCategory      = errors.New("no expense category for statement")
)

type Provider string

const (
	ProviderAuto  Provider = ""
	ProviderFuel  Provider = "fuel"
	ProviderTolls Provider = "tolls"
)

//go:generate mockgen -source=importer.go -destination=importer_mock.go -package=importer

type Parser interface {
	Parse(r io.Reader) (*card.Statement, error)
}

type CategoryLister interface {
	ListCategories(ctx context.Context) ([]*expense.Category, error)
}

// categoryNames maps a statement kind to the seeded category it books into.
var categoryNames = map[card.Kind]string{
	card.KindFuel: "Fuel",
	card.KindToll: "Tolls",
}

type Service struct {
	parsers    map[Provider]Parser
	categories CategoryLister
}

func NewService(categories CategoryLister) *Service {
	return &Service{
		parsers: map[Provider]Parser{
			ProviderAuto:  card.NewParser(),
			ProviderFuel:  card.NewParser(card.KindFuel),
			ProviderTolls: card.NewParser(card.KindToll),
		},
		categories: categories,
	}
}

// Import parses r and returns one CreateParams per charge, booked into the
// regular category matching the statement kind.
func (s *Service) Import(ctx context.Context, provider Provider, r io.Reader) ([]expense.CreateParams, error) {
	parser, ok := s.parsers[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}

	stmt, err := parser.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing statement: %w", err)
	}

	cat, err := s.category(ctx, stmt.Kind)
	if err != nil {
		return nil, err
	}

	params := make([]expense.CreateParams, 0, len(stmt.Lines))

	for _, l := range stmt.Lines {
		params = append(params, expense.CreateParams{
			CategoryID:         cat.ID,
			Amount:             l.Amount,
			ExpenseDate:        l.Date,
			RelatedPlateNumber: strings.ToUpper(strings.Join(strings.Fields(l.PlateNumber), " ")),
			Description:        l.Description,
		})
	}

	return params, nil
}

func (s *Service) category(ctx context.Context, kind card.Kind) (*expense.Category, error) {
	name, ok := categoryNames[kind]
	if !ok {
		return nil, fmt.Errorf("%w: kind %q", ErrNoCategory, kind)
	}

	cats, err := s.categories.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}

	for _, c := range cats {
		if c.Type == expense.CategoryRegular && strings.EqualFold(c.Name, name) {
			return c, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrNoCategory, name)
}
