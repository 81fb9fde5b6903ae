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

var errZeroAmount = errors.New("amount must be positive")

// categoryRegular is the only category type users may book into.
const categoryRegular = "REGULAR"

type expenseFields struct {
	categoryID  string
	amount      string
	date        string
	plate       string
	locationID  string
	description string
}

func (f *expenseFields) input() (apiclient.ExpenseInput, error) {
	date, err := ParseDate(f.date)
	if err != nil {
		return apiclient.ExpenseInput{}, err
	}

	if err := validatePositiveAmount(f.amount); err != nil {
		return apiclient.ExpenseInput{}, err
	}

	amount, _ := ParseAmount(f.amount)

	in := apiclient.ExpenseInput{
		CategoryID:         f.categoryID,
		Amount:             amount,
		ExpenseDate:        date,
		RelatedPlateNumber: strings.ToUpper(strings.Join(strings.Fields(f.plate), " ")),
		Description:        strings.TrimSpace(f.description),
	}

	if f.locationID != "" {
		in.LocationID = new(f.locationID)
	}

	return in, nil
}

// ExpenseFormModel records a regular expense into the outbox.
type ExpenseFormModel struct {
	CommonModel
	reader Reader
	writer Writer

	state  formState
	fields *expenseFields
	form   *huh.Form

	status string
	err    error
}

func NewExpenseFormModel(reader Reader, writer Writer) ExpenseFormModel {
	return ExpenseFormModel{
		reader: reader,
		writer: writer,
		fields: &expenseFields{date: FormatDate(time.Now())},
	}
}

func (m ExpenseFormModel) Title() string { return "New Expense" }

func (m ExpenseFormModel) ShortHelp() string {
	return "Enter: next | Shift+Tab: previous | Esc: back"
}

func (m ExpenseFormModel) Init() tea.Cmd {
	return m.loadRefsCmd()
}

func (m ExpenseFormModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return m, Back
		}

	case expenseRefsMsg:
		if msg.err != nil {
			m.state = formStateResult
			m.err = msg.err
			m.status = fmt.Sprintf("Cannot load categories: %v", msg.err)

			return m, nil
		}

		m.form = m.buildForm(msg.categories, msg.locations)
		m.state = formStateEditing

		return m, m.form.Init()

	case queuedMsg:
		m.state = formStateResult
		if msg.err != nil {
			m.err = msg.err
			m.status = fmt.Sprintf("Error: %v", msg.err)

			return m, nil
		}

		m.status = fmt.Sprintf("Expense queued (outbox item %s).", msg.itemID)

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

func (m ExpenseFormModel) buildForm(categories []apiclient.Category, locations []apiclient.Location) *huh.Form {
	f := m.fields

	locOptions := []huh.Option[string]{huh.NewOption("None", "")}
	for _, l := range locations {
		locOptions = append(locOptions, huh.NewOption(l.Name, l.ID))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().Title("Category").
				Options(categoryOptions(categories)...).Value(&f.categoryID).Validate(required("category")),
			huh.NewInput().Title("Amount").Placeholder("0.00").
				Value(&f.amount).Validate(validatePositiveAmount),
			huh.NewInput().Title("Date").Placeholder("YYYY-MM-DD").
				Value(&f.date).Validate(validateDate),
		),
		huh.NewGroup(
			huh.NewInput().Title("Plate").Description("Optional.").Value(&f.plate),
			huh.NewSelect[string]().Title("Location").Options(locOptions...).Value(&f.locationID),
			huh.NewText().Title("Description").CharLimit(500).Value(&f.description),
		),
	).WithWidth(50).WithShowHelp(true)
}

// categoryOptions leaves out the discount category, which only the server
// books into.
func categoryOptions(categories []apiclient.Category) []huh.Option[string] {
	opts := make([]huh.Option[string], 0, len(categories))
	for _, c := range categories {
		if c.Type == categoryRegular {
			opts = append(opts, huh.NewOption(c.Name, c.ID))
		}
	}

	return opts
}

func validatePositiveAmount(s string) error {
	amount, err := ParseAmount(s)
	if err != nil {
		return err
	}

	if amount == 0 {
		return errZeroAmount
	}

	return nil
}

func (m ExpenseFormModel) View() string {
	switch m.state {
	case formStateLoading:
		return lipgloss.NewStyle().Padding(2).Render("Loading categories...")
	case formStateResult:
		return resultView(m.status, m.err)
	}

	return lipgloss.NewStyle().Padding(2).Render("New Expense\n\n" + m.form.View())
}

// Messages

type expenseRefsMsg struct {
	categories []apiclient.Category
	locations  []apiclient.Location
	err        error
}

func (m ExpenseFormModel) loadRefsCmd() tea.Cmd {
	reader := m.reader

	return func() tea.Msg {
		ctx, cancel := RequestCtx()
		defer cancel()

		cats, err := reader.ListCategories(ctx)
		if err != nil {
			return expenseRefsMsg{err: err}
		}

		locs, err := reader.ListLocations(ctx)
		if err != nil {
			return expenseRefsMsg{err: err}
		}

		return expenseRefsMsg{categories: cats, locations: locs}
	}
}

func (m ExpenseFormModel) queueCmd() tea.Cmd {
	writer := m.writer
	fields := *m.fields

	return func() tea.Msg {
		in, err := fields.input()
		if err != nil {
			return queuedMsg{err: err}
		}

		ctx, cancel := RequestCtx()
		defer cancel()

		item, err := writer.CreateExpense(ctx, in)
		if err != nil {
			return queuedMsg{err: err}
		}

		return queuedMsg{itemID: item.ID}
	}
}
