package view

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/MrJamesThe3rd/haulbook/internal/apiclient"
	"github.com/MrJamesThe3rd/haulbook/internal/outbox"
	"github.com/MrJamesThe3rd/haulbook/internal/syncer"
)

// View is the interface that all TUI screens implement.
type View interface {
	tea.Model
	Title() string
	ShortHelp() string
}

// CommonModel is embedded by all views.
type CommonModel struct {
	Width  int
	Height int
}

type BackMsg struct{}

func Back() tea.Msg {
	return BackMsg{}
}

//go:generate mockgen -source=view.go -destination=view_mock.go -package=view

// Reader is the cached read side of the API.
type Reader interface {
	ListTrips(ctx context.Context) ([]apiclient.Trip, error)
	ListExpenses(ctx context.Context, tripID string) ([]apiclient.Expense, error)
	ListCategories(ctx context.Context) ([]apiclient.Category, error)
	ListLocations(ctx context.Context) ([]apiclient.Location, error)
	ListPricingRules(ctx context.Context) ([]apiclient.PricingRule, error)
	Purge()
}

// Writer queues mutations. Nothing here talks to the API directly.
type Writer interface {
	CreateTrip(ctx context.Context, in apiclient.TripInput) (*outbox.Item, error)
	UpdateTrip(ctx context.Context, id string, patch apiclient.TripPatch) (*outbox.Item, error)
	DeleteTrip(ctx context.Context, id string) (*outbox.Item, error)
	CreateExpense(ctx context.Context, in apiclient.ExpenseInput) (*outbox.Item, error)
}

type Engine interface {
	Drain(ctx context.Context, opts syncer.DrainOptions) syncer.Result
	Discard(ctx context.Context, id string) error
	Status() syncer.Status
}

type Queue interface {
	ListByStatus(ctx context.Context, statuses ...outbox.Status) ([]*outbox.Item, error)
}
