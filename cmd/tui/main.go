package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/haulbook/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/haulbook/internal/apiclient"
	"github.com/MrJamesThe3rd/haulbook/internal/config"
	"github.com/MrJamesThe3rd/haulbook/internal/idempotency"
	"github.com/MrJamesThe3rd/haulbook/internal/logging"
	"github.com/MrJamesThe3rd/haulbook/internal/offline"
	"github.com/MrJamesThe3rd/haulbook/internal/outbox"
	"github.com/MrJamesThe3rd/haulbook/internal/syncer"
)

type model struct {
	reader view.Reader
	writer view.Writer
	queue  view.Queue
	engine view.Engine
	tick   time.Duration

	currentView View
	width       int
	height      int

	tripsView   view.TripsModel
	tripForm    view.TripFormModel
	expenseForm view.ExpenseFormModel
	importView  view.ImportModel
	queueView   view.QueueModel
}

type View int

const (
	ViewMenu        View = 0
	ViewTrips       View = 1
	ViewTripForm    View = 2
	ViewExpenseForm View = 3
	ViewImport      View = 4
	ViewQueue       View = 5
)

type tickMsg struct{}

func newModel(reader view.Reader, writer view.Writer, queue view.Queue, engine view.Engine, tick time.Duration) model {
	return model{
		reader:      reader,
		writer:      writer,
		queue:       queue,
		engine:      engine,
		tick:        tick,
		currentView: ViewMenu,
	}
}

func (m model) Init() tea.Cmd {
	return m.tickCmd()
}

func (m model) tickCmd() tea.Cmd {
	return tea.Tick(m.tick, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.currentView == ViewMenu {
			return m.updateMenu(msg)
		}
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tickMsg:
		// The status bar re-renders on every tick; open views may refresh.
		next, cmd := m.updateView(view.TickMsg{})
		return next, tea.Batch(cmd, m.tickCmd())
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil
	}

	return m.updateView(msg)
}

func (m model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "1":
		m.currentView = ViewTrips
		m.tripsView = view.NewTripsModel(m.reader, m.writer)

		return m, tea.Batch(m.tripsView.Init(), m.resize())
	case "2":
		m.currentView = ViewTripForm
		m.tripForm = view.NewTripFormModel(m.reader, m.writer)

		return m, m.tripForm.Init()
	case "3":
		m.currentView = ViewExpenseForm
		m.expenseForm = view.NewExpenseFormModel(m.reader, m.writer)

		return m, m.expenseForm.Init()
	case "4":
		m.currentView = ViewImport
		m.importView = view.NewImportModel(m.reader, m.writer)

		return m, m.importView.Init()
	case "5":
		m.currentView = ViewQueue
		m.queueView = view.NewQueueModel(m.queue, m.engine)

		return m, tea.Batch(m.queueView.Init(), m.resize())
	}

	return m, nil
}

// resize replays the last window size to a freshly built view.
func (m model) resize() tea.Cmd {
	if m.width == 0 {
		return nil
	}

	w, h := m.width, m.height

	return func() tea.Msg { return tea.WindowSizeMsg{Width: w, Height: h} }
}

func (m model) updateView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewTrips:
		var newModel tea.Model
		newModel, cmd = m.tripsView.Update(msg)
		m.tripsView = newModel.(view.TripsModel)
	case ViewTripForm:
		var newModel tea.Model
		newModel, cmd = m.tripForm.Update(msg)
		m.tripForm = newModel.(view.TripFormModel)
	case ViewExpenseForm:
		var newModel tea.Model
		newModel, cmd = m.expenseForm.Update(msg)
		m.expenseForm = newModel.(view.ExpenseFormModel)
	case ViewImport:
		var newModel tea.Model
		newModel, cmd = m.importView.Update(msg)
		m.importView = newModel.(view.ImportModel)
	case ViewQueue:
		var newModel tea.Model
		newModel, cmd = m.queueView.Update(msg)
		m.queueView = newModel.(view.QueueModel)
	}

	return m, cmd
}

func (m model) View() string {
	var body string
	var current view.View

	switch m.currentView {
	case ViewMenu:
		body = lipgloss.NewStyle().Padding(2).Render(
			"Haulbook\n\n" +
				"1. Trips\n" +
				"2. New Trip\n" +
				"3. New Expense\n" +
				"4. Import Card Statement\n" +
				"5. Sync Queue\n\n" +
				"q. Quit",
		)
	case ViewTrips:
		current = m.tripsView
	case ViewTripForm:
		current = m.tripForm
	case ViewExpenseForm:
		current = m.expenseForm
	case ViewImport:
		current = m.importView
	case ViewQueue:
		current = m.queueView
	default:
		body = "Unknown View"
	}

	if current != nil {
		body = lipgloss.JoinVertical(lipgloss.Left,
			lipgloss.NewStyle().Bold(true).PaddingLeft(1).Render(current.Title()),
			current.View(),
			lipgloss.NewStyle().Faint(true).PaddingLeft(1).Render(current.ShortHelp()),
		)
	}

	return lipgloss.JoinVertical(lipgloss.Left, body, view.StatusBar(m.engine.Status()))
}

func logWriter(path string) (io.Writer, func(), error) {
	if path == "" {
		return io.Discard, func() {}, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	return f, func() { f.Close() }, nil
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// The terminal owns stdout and stderr while the program runs.
	w, closeLog, err := logWriter(cfg.Client.LogPath)
	if err != nil {
		return err
	}
	defer closeLog()

	logging.NewWithWriter(cfg.Log, w)

	store, err := outbox.Open(cfg.Client.OutboxPath, outbox.WithLeaseTTL(cfg.Client.LeaseTTL))
	if err != nil {
		return err
	}
	defer store.Close()

	client := apiclient.New(apiclient.Config{
		BaseURL:  cfg.Client.APIURL,
		Token:    cfg.Client.APIToken,
		Timeout:  cfg.Client.RequestTimeout,
		CacheTTL: cfg.Client.CacheTTL,
	})

	engine := syncer.New(store, client, syncer.Options{
		PollInterval: cfg.Client.PollInterval,
		Invalidator:  client,
		Prober:       client,
	})

	writer := offline.NewWriter(store, engine, idempotency.NewGenerator())

	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Go(func() {
		if err := engine.Run(ctx); err != nil && ctx.Err() == nil {
			slog.Error("sync engine stopped", "error", err)
		}
	})

	p := tea.NewProgram(newModel(client, writer, store, engine, cfg.Client.PollInterval), tea.WithAltScreen())
	_, err = p.Run()

	cancel()
	wg.Wait()
	writer.Wait()

	if err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}

	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "haulbook:", err)
		os.Exit(1)
	}
}
