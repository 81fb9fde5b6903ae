package view

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/haulbook/internal/apiclient"
)

var errAppliedAboveBase = errors.New("applied price cannot exceed the base price")

type formState int

const (
	formStateLoading formState = iota
	formStateEditing
	formStateResult
)

// tripFields holds the form bindings. It lives behind a pointer so the huh
// form and every copy of the model see the same values.
type tripFields struct {
	date         string
	plate        string
	locationID   string
	ruleID       string
	basePrice    string
	appliedPrice string
	notes        string
}

// input turns the filled form into a create body. With a pricing rule the
// server takes the base price from the rule, so it is only sent for manual
// prices. An empty applied price means no discount.
func (f *tripFields) input(rules map[string]apiclient.PricingRule) (apiclient.TripInput, error) {
	date, err := ParseDate(f.date)
	if err != nil {
		return apiclient.TripInput{}, err
	}

	in := apiclient.TripInput{
		TripDate:    date,
		PlateNumber: strings.ToUpper(strings.Join(strings.Fields(f.plate), " ")),
		LocationID:  f.locationID,
		Notes:       strings.TrimSpace(f.notes),
	}

	var base int64

	if rule, ok := rules[f.ruleID]; ok && f.ruleID != "" {
		in.PricingRuleID = new(rule.ID)
		base = rule.Price
	} else {
		base, err = ParseAmount(f.basePrice)
		if err != nil {
			return apiclient.TripInput{}, fmt.Errorf("base price: %w", err)
		}

		in.BasePrice = base
	}

	in.AppliedPrice = base

	if strings.TrimSpace(f.appliedPrice) != "" {
		applied, err := ParseAmount(f.appliedPrice)
		if err != nil {
			return apiclient.TripInput{}, fmt.Errorf("applied price: %w", err)
		}

		if applied > base {
			return apiclient.TripInput{}, errAppliedAboveBase
		}

		in.AppliedPrice = applied
	}

	return in, nil
}

// TripFormModel records a new trip into the outbox.
type TripFormModel struct {
	CommonModel
	reader Reader
	writer Writer

	state  formState
	fields *tripFields
	rules  map[string]apiclient.PricingRule
	form   *huh.Form

	status string
	err    error
}

func NewTripFormModel(reader Reader, writer Writer) TripFormModel {
	return TripFormModel{
		reader: reader,
		writer: writer,
		fields: &tripFields{date: FormatDate(time.Now())},
	}
}

func (m TripFormModel) Title() string { return "New Trip" }

func (m TripFormModel) ShortHelp() string {
	return "Enter: next | Shift+Tab: previous | Esc: back"
}

func (m TripFormModel) Init() tea.Cmd {
	return m.loadRefsCmd()
}

func (m TripFormModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return m, Back
		}

	case tripRefsMsg:
		if msg.err != nil {
			m.state = formStateResult
			m.err = msg.err
			m.status = fmt.Sprintf("Cannot load locations: %v", msg.err)

			return m, nil
		}

		m.rules = make(map[string]apiclient.PricingRule, len(msg.rules))
		for _, r := range msg.rules {
			m.rules[r.ID] = r
		}

		m.form = m.buildForm(msg.locations, msg.rules)
		m.state = formStateEditing

		return m, m.form.Init()

	case queuedMsg:
		m.state = formStateResult
		if msg.err != nil {
			m.err = msg.err
			m.status = fmt.Sprintf("Error: %v", msg.err)

			return m, nil
		}

		m.status = fmt.Sprintf("Trip queued (outbox item %s).", msg.itemID)

		return m, nil
	}

	if m.state != formStateEditing {
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateAborted:
		return m, Back
	case huh.StateCompleted:
		return m, m.queueCmd()
	}

	return m, cmd
}

func (m TripFormModel) buildForm(locations []apiclient.Location, rules []apiclient.PricingRule) *huh.Form {
	f := m.fields

	locOptions := make([]huh.Option[string], 0, len(locations))
	for _, l := range locations {
		locOptions = append(locOptions, huh.NewOption(l.Name, l.ID))
	}

	ruleOptions := func() []huh.Option[string] {
		opts := []huh.Option[string]{huh.NewOption("Manual price", "")}

		for _, r := range rules {
			if r.Active && r.LocationID == f.locationID {
				opts = append(opts, huh.NewOption(fmt.Sprintf("%s (%s)", r.Name, FormatAmount(r.Price)), r.ID))
			}
		}

		return opts
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Date").Placeholder("YYYY-MM-DD").
				Value(&f.date).Validate(validateDate),
			huh.NewInput().Title("Plate").
				Value(&f.plate).Validate(required("plate")),
			huh.NewSelect[string]().Title("Location").
				Options(locOptions...).Value(&f.locationID).Validate(required("location")),
		),
		huh.NewGroup(
			huh.NewSelect[string]().Title("Pricing rule").
				OptionsFunc(ruleOptions, &f.locationID).Value(&f.ruleID),
		),
		huh.NewGroup(
			huh.NewInput().Title("Base price").Placeholder("0.00").
				Value(&f.basePrice).Validate(validateAmount),
		).WithHideFunc(func() bool { return f.ruleID != "" }),
		huh.NewGroup(
			huh.NewInput().Title("Applied price").
				Description("Leave empty to charge the base price.").
				Value(&f.appliedPrice).Validate(func(string) error {
					_, err := f.input(m.rules)
					return err
				}),
			huh.NewText().Title("Notes").CharLimit(500).Value(&f.notes),
		),
	).WithWidth(50).WithShowHelp(true)
}

func required(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}

		return nil
	}
}

func validateAmount(s string) error {
	_, err := ParseAmount(s)
	return err
}

func (m TripFormModel) View() string {
	style := lipgloss.NewStyle().Padding(2)

	switch m.state {
	case formStateLoading:
		return style.Render("Loading locations...")
	case formStateResult:
		return resultView(m.status, m.err)
	}

	return style.Render("New Trip\n\n" + m.form.View())
}

func resultView(status string, err error) string {
	color := lipgloss.Color("46")
	if err != nil {
		color = lipgloss.Color("196")
	}

	return lipgloss.NewStyle().Padding(2).Render(
		lipgloss.NewStyle().Foreground(color).Render(status) + "\n\n(Esc to go back)",
	)
}

// Messages

type tripRefsMsg struct {
	locations []apiclient.Location
	rules     []apiclient.PricingRule
	err       error
}

func (m TripFormModel) loadRefsCmd() tea.Cmd {
	reader := m.reader

	return func() tea.Msg {
		ctx, cancel := RequestCtx()
		defer cancel()

		locs, err := reader.ListLocations(ctx)
		if err != nil {
			return tripRefsMsg{err: err}
		}

		rules, err := reader.ListPricingRules(ctx)
		if err != nil {
			return tripRefsMsg{err: err}
		}

		return tripRefsMsg{locations: locs, rules: rules}
	}
}

type queuedMsg struct {
	itemID string
	err    error
}

func (m TripFormModel) queueCmd() tea.Cmd {
	writer := m.writer
	fields := *m.fields
	rules := m.rules

	return func() tea.Msg {
		in, err := fields.input(rules)
		if err != nil {
			return queuedMsg{err: err}
		}

		ctx, cancel := RequestCtx()
		defer cancel()

		item, err := writer.CreateTrip(ctx, in)
		if err != nil {
			return queuedMsg{err: err}
		}

		return queuedMsg{itemID: item.ID}
	}
}
