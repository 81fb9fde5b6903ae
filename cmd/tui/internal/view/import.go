package view

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/haulbook/internal/apiclient"
	"github.com/MrJamesThe3rd/haulbook/internal/expense"
	"github.com/MrJamesThe3rd/haulbook/internal/importer"
)

const importTimeout = 2 * time.Minute

type importState int

const (
	importStateProviderSelect importState = iota
	importStateFilePick
	importStateImporting
	importStateResult
)

type providerOption struct {
	label    string
	provider importer.Provider
}

var providerOptions = []providerOption{
	{"Detect automatically", importer.ProviderAuto},
	{"Fuel card", importer.ProviderFuel},
	{"Toll statement", importer.ProviderTolls},
}

// ImportModel reads a card statement from disk and queues one expense per
// charge. Charges already on the server are skipped.
type ImportModel struct {
	CommonModel
	reader   Reader
	writer   Writer
	importer *importer.Service

	state          importState
	filePicker     filepicker.Model
	providerCursor int

	status string
	err    error
}

func NewImportModel(reader Reader, writer Writer) ImportModel {
	fp := filepicker.New()
	fp.CurrentDirectory, _ = os.Getwd()
	fp.AllowedTypes = []string{".csv", ".txt"}
	fp.ShowHidden = false
	fp.DirAllowed = false
	fp.FileAllowed = true
	fp.SetHeight(15)

	return ImportModel{
		reader:     reader,
		writer:     writer,
		importer:   importer.NewService(categorySource{reader: reader}),
		filePicker: fp,
	}
}

func (m ImportModel) Title() string { return "Import Statement" }

func (m ImportModel) ShortHelp() string {
	return "Esc: back | Enter: select"
}

func (m ImportModel) Init() tea.Cmd {
	return m.filePicker.Init()
}

func (m ImportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return m.handleEsc()
		}

		if m.state == importStateProviderSelect {
			return m.updateProviderSelect(msg)
		}

	case importQueuedMsg:
		m.state = importStateResult
		if msg.err != nil {
			m.err = msg.err
			m.status = fmt.Sprintf("Error: %v", msg.err)

			return m, nil
		}

		m.status = fmt.Sprintf("Queued %d expenses, skipped %d already recorded.", msg.queued, msg.skipped)

		return m, nil
	}

	if m.state != importStateFilePick {
		return m, nil
	}

	var cmd tea.Cmd
	m.filePicker, cmd = m.filePicker.Update(msg)

	if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
		m.state = importStateImporting
		m.status = fmt.Sprintf("Importing from %s...", path)

		return m, m.importCmd(path)
	}

	return m, cmd
}

func (m ImportModel) handleEsc() (tea.Model, tea.Cmd) {
	switch m.state {
	case importStateFilePick:
		m.state = importStateProviderSelect
		return m, nil
	case importStateResult:
		m.state = importStateProviderSelect
		m.err = nil
		m.status = ""

		return m, nil
	}

	return m, Back
}

func (m ImportModel) updateProviderSelect(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyUp:
		if m.providerCursor > 0 {
			m.providerCursor--
		}
	case tea.KeyDown:
		if m.providerCursor < len(providerOptions)-1 {
			m.providerCursor++
		}
	case tea.KeyEnter:
		m.state = importStateFilePick
		return m, m.filePicker.Init()
	}

	return m, nil
}

func (m ImportModel) View() string {
	switch m.state {
	case importStateProviderSelect:
		return m.viewProviderSelect()
	case importStateFilePick:
		return lipgloss.NewStyle().Padding(1).Render(
			fmt.Sprintf("Select statement (%s):\n\n%s", providerOptions[m.providerCursor].label, m.filePicker.View()),
		)
	case importStateImporting:
		return lipgloss.NewStyle().Padding(2).Render(m.status)
	case importStateResult:
		return resultView(m.status, m.err)
	}

	return ""
}

func (m ImportModel) viewProviderSelect() string {
	s := "Statement type:\n\n"

	for i, opt := range providerOptions {
		cursor := " "
		if i == m.providerCursor {
			cursor = ">"
		}

		s += fmt.Sprintf("%s %s\n", cursor, opt.label)
	}

	return lipgloss.NewStyle().Padding(2).Render(s)
}

// Messages

type importQueuedMsg struct {
	queued  int
	skipped int
	err     error
}

func (m ImportModel) importCmd(path string) tea.Cmd {
	provider := providerOptions[m.providerCursor].provider
	svc := m.importer
	reader := m.reader
	writer := m.writer

	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return importQueuedMsg{err: err}
		}
		defer f.Close()

		ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
		defer cancel()

		params, err := svc.Import(ctx, provider, f)
		if err != nil {
			return importQueuedMsg{err: err}
		}

		existing, err := reader.ListExpenses(ctx, "")
		if err != nil {
			return importQueuedMsg{err: fmt.Errorf("checking existing expenses: %w", err)}
		}

		seen := make(map[string]bool, len(existing))
		for _, e := range existing {
			seen[chargeKey(e.Category.ID, e.ExpenseDate, e.Amount, e.Description)] = true
		}

		var res importQueuedMsg

		for _, p := range params {
			key := chargeKey(p.CategoryID.String(), p.ExpenseDate, p.Amount, p.Description)
			if seen[key] {
				res.skipped++
				continue
			}

			seen[key] = true

			_, err := writer.CreateExpense(ctx, apiclient.ExpenseInput{
				CategoryID:         p.CategoryID.String(),
				Amount:             p.Amount,
				ExpenseDate:        p.ExpenseDate,
				RelatedPlateNumber: p.RelatedPlateNumber,
				Description:        p.Description,
			})
			if err != nil {
				res.err = fmt.Errorf("queued %d before failing: %w", res.queued, err)
				return res
			}

			res.queued++
		}

		return res
	}
}

// chargeKey identifies a statement line for duplicate detection.
func chargeKey(categoryID string, date time.Time, amount int64, description string) string {
	return fmt.Sprintf("%s|%s|%d|%s", categoryID, date.UTC().Format(time.RFC3339), amount, description)
}

// categorySource lets the statement importer resolve categories from the API.
type categorySource struct {
	reader Reader
}

func (c categorySource) ListCategories(ctx context.Context) ([]*expense.Category, error) {
	cats, err := c.reader.ListCategories(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*expense.Category, 0, len(cats))

	for _, cat := range cats {
		id, err := uuid.Parse(cat.ID)
		if err != nil {
			return nil, fmt.Errorf("category %q: %w", cat.Name, err)
		}

		out = append(out, &expense.Category{ID: id, Name: cat.Name, Type: expense.CategoryType(cat.Type)})
	}

	return out, nil
}
