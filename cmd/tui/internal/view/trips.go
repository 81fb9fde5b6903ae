package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/haulbook/internal/apiclient"
)

type tripsState int

const (
	tripsStateBrowse tripsState = iota
	tripsStateEdit
	tripsStateTimeframe
	tripsStateConfirmDelete
)

// TripsModel lists trips as the server last reported them. Edits and deletes
// are queued and show up here after the next sync.
type TripsModel struct {
	CommonModel
	reader Reader
	writer Writer

	state   tripsState
	table   table.Model
	all     []apiclient.Trip
	trips   []apiclient.Trip
	places  map[string]string
	picker  TimeframePicker
	form    *huh.Form
	notes   *string
	confirm *bool

	rangeLabel string
	start, end time.Time

	// discount of the selected trip, loaded on Enter
	detailFor string
	detail    []apiclient.Expense

	loading bool
	err     error
	status  string
}

func NewTripsModel(reader Reader, writer Writer) TripsModel {
	columns := []table.Column{
		{Title: "Date", Width: 12},
		{Title: "Plate", Width: 10},
		{Title: "Location", Width: 20},
		{Title: "Base", Width: 10},
		{Title: "Applied", Width: 10},
		{Title: "Discount", Width: 10},
		{Title: "Notes", Width: 30},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return TripsModel{
		reader:     reader,
		writer:     writer,
		table:      t,
		picker:     NewTimeframePicker(),
		rangeLabel: TimeframeAll.String(),
		loading:    true,
	}
}

func (m TripsModel) Title() string { return "Trips" }

func (m TripsModel) ShortHelp() string {
	switch m.state {
	case tripsStateEdit, tripsStateConfirmDelete:
		return "Navigate form | Esc: cancel"
	case tripsStateTimeframe:
		return "Up/Down: choose | Enter: select | Esc: cancel"
	}

	return "Esc: back | Enter: discount | e: edit notes | x: delete | t: timeframe | r: refresh"
}

func (m TripsModel) Init() tea.Cmd {
	return m.loadTripsCmd()
}

func (m TripsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadTripsMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.err = nil
		m.all = msg.trips
		m.places = msg.places
		m.applyRange()

		return m, nil

	case tripDetailMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Error loading discount: %v", msg.err)
			return m, nil
		}

		m.detailFor = msg.tripID
		m.detail = msg.expenses

		return m, nil

	case tripQueuedMsg:
		m.state = tripsStateBrowse
		m.form = nil
		m.table.Focus()

		if msg.err != nil {
			m.status = fmt.Sprintf("Error queueing %s: %v", msg.what, msg.err)
			return m, nil
		}

		m.status = fmt.Sprintf("Queued %s. It will apply on the next sync.", msg.what)

		return m, nil

	case TimeframeSelectedMsg:
		m.state = tripsStateBrowse
		m.table.Focus()
		m.rangeLabel = msg.Label
		m.start, m.end = msg.Start, msg.End
		m.applyRange()

		return m, nil

	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
		m.table.SetHeight(max(msg.Height-12, 5))

		return m, nil
	}

	switch m.state {
	case tripsStateBrowse:
		return m.updateBrowse(msg)
	case tripsStateEdit, tripsStateConfirmDelete:
		return m.updateForm(msg)
	case tripsStateTimeframe:
		return m.updateTimeframe(msg)
	}

	return m, nil
}

func (m TripsModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			m.reader.Purge()

			return m, m.loadTripsCmd()
		case "t":
			m.state = tripsStateTimeframe
			m.picker = NewTimeframePicker()
			m.table.Blur()

			return m, m.picker.Init()
		case "e":
			return m.enterEdit()
		case "x":
			return m.enterDelete()
		case "enter":
			if trip, ok := m.selected(); ok {
				return m, m.loadDetailCmd(trip.ID)
			}

			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m TripsModel) updateTimeframe(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc && m.picker.IsSelecting() {
		m.state = tripsStateBrowse
		m.table.Focus()

		return m, nil
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)

	return m, cmd
}

func (m TripsModel) enterEdit() (tea.Model, tea.Cmd) {
	trip, ok := m.selected()
	if !ok {
		return m, nil
	}

	m.notes = new(trip.Notes)
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Key("notes").
				Title("Notes").
				CharLimit(500).
				Value(m.notes),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = tripsStateEdit
	m.table.Blur()

	return m, m.form.Init()
}

func (m TripsModel) enterDelete() (tea.Model, tea.Cmd) {
	trip, ok := m.selected()
	if !ok {
		return m, nil
	}

	m.confirm = new(false)
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete trip %s on %s?", trip.PlateNumber, FormatDate(trip.TripDate))).
				Description("Its discount expense goes with it.").
				Affirmative("Delete").
				Negative("Keep").
				Value(m.confirm),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = tripsStateConfirmDelete
	m.table.Blur()

	return m, m.form.Init()
}

func (m TripsModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = tripsStateBrowse
		m.form = nil
		m.table.Focus()

		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	trip, ok := m.selected()
	if !ok {
		m.state = tripsStateBrowse
		m.form = nil
		m.table.Focus()

		return m, nil
	}

	if m.state == tripsStateConfirmDelete {
		if !*m.confirm {
			m.state = tripsStateBrowse
			m.form = nil
			m.table.Focus()

			return m, nil
		}

		return m, m.deleteCmd(trip.ID)
	}

	return m, m.updateNotesCmd(trip.ID, strings.TrimSpace(*m.notes))
}

func (m TripsModel) selected() (apiclient.Trip, bool) {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.trips) {
		return apiclient.Trip{}, false
	}

	return m.trips[idx], true
}

func (m *TripsModel) applyRange() {
	m.trips = make([]apiclient.Trip, 0, len(m.all))

	for _, t := range m.all {
		if !m.start.IsZero() && (t.TripDate.Before(m.start) || t.TripDate.After(m.end)) {
			continue
		}

		m.trips = append(m.trips, t)
	}

	rows := make([]table.Row, 0, len(m.trips))
	for _, t := range m.trips {
		rows = append(rows, table.Row{
			FormatDate(t.TripDate),
			t.PlateNumber,
			m.placeName(t.LocationID),
			FormatAmount(t.BasePrice),
			FormatAmount(t.AppliedPrice),
			FormatAmount(max(t.BasePrice-t.AppliedPrice, 0)),
			t.Notes,
		})
	}

	m.table.SetRows(rows)
}

func (m TripsModel) placeName(id string) string {
	if name, ok := m.places[id]; ok {
		return name
	}

	return id
}

func (m TripsModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading trips...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(
			fmt.Sprintf("Error: %v\n\nThe API may be unreachable. Queued work is kept.\n(r to retry, Esc to go back)", m.err),
		)
	}

	header := fmt.Sprintf("Timeframe: [t] %s | %d trips", activeStyle(m.rangeLabel), len(m.trips))

	tableView := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		tableView,
	)

	if panel := m.sidePanel(); panel != "" {
		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panelStyle.Render(panel))
	}

	if m.status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

var panelStyle = lipgloss.NewStyle().
	Padding(1, 2).
	BorderStyle(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("63")).
	Width(48)

func (m TripsModel) sidePanel() string {
	switch m.state {
	case tripsStateEdit, tripsStateConfirmDelete:
		if m.form != nil {
			return "Edit Trip\n\n" + m.form.View()
		}
	case tripsStateTimeframe:
		return m.picker.View()
	}

	trip, ok := m.selected()
	if !ok || trip.ID != m.detailFor {
		return ""
	}

	if len(m.detail) == 0 {
		return "Discount\n\nNo discount expense for this trip."
	}

	var b strings.Builder
	b.WriteString("Discount\n\n")

	for _, e := range m.detail {
		fmt.Fprintf(&b, "%s  %s\n%s\n", FormatDate(e.ExpenseDate), FormatAmount(e.Amount), e.Description)
	}

	return b.String()
}

func activeStyle(s string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Render(s)
}

// Messages

type loadTripsMsg struct {
	trips  []apiclient.Trip
	places map[string]string
	err    error
}

func (m TripsModel) loadTripsCmd() tea.Cmd {
	reader := m.reader

	return func() tea.Msg {
		ctx, cancel := RequestCtx()
		defer cancel()

		trips, err := reader.ListTrips(ctx)
		if err != nil {
			return loadTripsMsg{err: err}
		}

		locs, err := reader.ListLocations(ctx)
		if err != nil {
			return loadTripsMsg{err: err}
		}

		places := make(map[string]string, len(locs))
		for _, l := range locs {
			places[l.ID] = l.Name
		}

		return loadTripsMsg{trips: trips, places: places}
	}
}

type tripDetailMsg struct {
	tripID   string
	expenses []apiclient.Expense
	err      error
}

func (m TripsModel) loadDetailCmd(tripID string) tea.Cmd {
	reader := m.reader

	return func() tea.Msg {
		ctx, cancel := RequestCtx()
		defer cancel()

		expenses, err := reader.ListExpenses(ctx, tripID)

		return tripDetailMsg{tripID: tripID, expenses: expenses, err: err}
	}
}

type tripQueuedMsg struct {
	what string
	err  error
}

func (m TripsModel) updateNotesCmd(id, notes string) tea.Cmd {
	writer := m.writer

	return func() tea.Msg {
		ctx, cancel := RequestCtx()
		defer cancel()

		_, err := writer.UpdateTrip(ctx, id, apiclient.TripPatch{Notes: &notes})

		return tripQueuedMsg{what: "trip update", err: err}
	}
}

func (m TripsModel) deleteCmd(id string) tea.Cmd {
	writer := m.writer

	return func() tea.Msg {
		ctx, cancel := RequestCtx()
		defer cancel()

		_, err := writer.DeleteTrip(ctx, id)

		return tripQueuedMsg{what: "trip delete", err: err}
	}
}
