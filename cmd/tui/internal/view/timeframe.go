package view

import (
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// Timeframe is a predefined or custom trip date range.
type Timeframe int

const (
	TimeframeThisWeek Timeframe = iota
	TimeframeLastWeek
	TimeframeThisMonth
	TimeframeLastMonth
	TimeframeAll
	TimeframeCustom
)

func (t Timeframe) String() string {
	switch t {
	case TimeframeThisWeek:
		return "This Week"
	case TimeframeLastWeek:
		return "Last Week"
	case TimeframeThisMonth:
		return "This Month"
	case TimeframeLastMonth:
		return "Last Month"
	case TimeframeAll:
		return "All Time"
	case TimeframeCustom:
		return "Custom Range"
	}

	return "Unknown"
}

// DateRange returns the inclusive day range of tf as of now, in UTC since
// trip dates are stored that way. Weeks start on Monday.
func (t Timeframe) DateRange(now time.Time) (time.Time, time.Time) {
	weekday := int(now.Weekday())
	if weekday == 0 {
		weekday = 7
	}

	var start, end time.Time

	switch t {
	case TimeframeThisWeek:
		start = now.AddDate(0, 0, -weekday+1)
		end = now
	case TimeframeLastWeek:
		end = now.AddDate(0, 0, -weekday)
		start = end.AddDate(0, 0, -6)
	case TimeframeThisMonth:
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		end = now
	case TimeframeLastMonth:
		start = time.Date(now.Year(), now.Month()-1, 1, 0, 0, 0, 0, now.Location())
		end = start.AddDate(0, 1, -1)
	}

	return dayBounds(start, end)
}

func dayBounds(start, end time.Time) (time.Time, time.Time) {
	return time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC),
		time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, 0, time.UTC)
}

// TimeframeSelectedMsg is emitted once a range is chosen. Start and End are
// zero when All is set.
type TimeframeSelectedMsg struct {
	Label string
	Start time.Time
	End   time.Time
	All   bool
}

type customRange struct {
	start string
	end   string
}

// TimeframePicker is a reusable date range selector. The custom range is
// entered through a small huh form.
type TimeframePicker struct {
	selected Timeframe
	now      func() time.Time

	custom *customRange
	form   *huh.Form
}

func NewTimeframePicker() TimeframePicker {
	return TimeframePicker{selected: TimeframeThisMonth, now: time.Now}
}

func (m TimeframePicker) Init() tea.Cmd {
	return nil
}

func (m TimeframePicker) Update(msg tea.Msg) (TimeframePicker, tea.Cmd) {
	if m.form != nil {
		return m.updateCustom(msg)
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.Type {
	case tea.KeyUp:
		if m.selected > TimeframeThisWeek {
			m.selected--
		}
	case tea.KeyDown:
		if m.selected < TimeframeCustom {
			m.selected++
		}
	case tea.KeyEnter:
		return m.choose()
	}

	return m, nil
}

func (m TimeframePicker) choose() (TimeframePicker, tea.Cmd) {
	switch m.selected {
	case TimeframeCustom:
		m.custom = &customRange{}
		m.form = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().Title("Start date").Placeholder("YYYY-MM-DD").
					Value(&m.custom.start).Validate(validateDate),
				huh.NewInput().Title("End date").Placeholder("YYYY-MM-DD").
					Value(&m.custom.end).Validate(validateDate),
			),
		).WithWidth(30).WithShowHelp(false)

		return m, m.form.Init()
	case TimeframeAll:
		label := m.selected.String()

		return m, func() tea.Msg { return TimeframeSelectedMsg{Label: label, All: true} }
	}

	start, end := m.selected.DateRange(m.now())
	label := m.selected.String()

	return m, func() tea.Msg {
		return TimeframeSelectedMsg{Label: label, Start: start, End: end}
	}
}

func (m TimeframePicker) updateCustom(msg tea.Msg) (TimeframePicker, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.form = nil
		m.custom = nil

		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	start, _ := ParseDate(m.custom.start)
	end, _ := ParseDate(m.custom.end)
	m.form = nil

	if end.Before(start) {
		start, end = end, start
	}

	start, end = dayBounds(start, end)
	label := fmt.Sprintf("%s to %s", FormatDate(start), FormatDate(end))

	return m, func() tea.Msg {
		return TimeframeSelectedMsg{Label: label, Start: start, End: end}
	}
}

func validateDate(s string) error {
	if s == "" {
		return errors.New("date is required")
	}

	_, err := ParseDate(s)

	return err
}

func (m TimeframePicker) View() string {
	if m.form != nil {
		return "Custom range\n\n" + m.form.View() + "\n(Esc to go back)"
	}

	s := "Select timeframe:\n\n"

	for tf := TimeframeThisWeek; tf <= TimeframeCustom; tf++ {
		cursor := " "
		if tf == m.selected {
			cursor = ">"
		}

		s += fmt.Sprintf("%s %s\n", cursor, tf)
	}

	return s + lipgloss.NewStyle().Faint(true).Render("\n(Enter to select, Esc to cancel)")
}

// IsSelecting reports whether the picker is on its list, where Esc belongs to
// the caller.
func (m TimeframePicker) IsSelecting() bool {
	return m.form == nil
}
