package view

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/MrJamesThe3rd/haulbook/internal/outbox"
	"github.com/MrJamesThe3rd/haulbook/internal/syncer"
)

// TickMsg is sent by the program on every poll interval so open views can
// refresh what they show.
type TickMsg struct{}

// QueueModel shows everything still waiting in the outbox, oldest first.
type QueueModel struct {
	CommonModel
	queue  Queue
	engine Engine

	list    list.Model
	items   []*outbox.Item
	confirm string // id awaiting discard confirmation
	busy    bool

	status string
	err    error
}

func NewQueueModel(queue Queue, engine Engine) QueueModel {
	l := list.New(nil, queueDelegate{}, 90, 20)
	l.Title = "Outbox"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)

	return QueueModel{queue: queue, engine: engine, list: l}
}

func (m QueueModel) Title() string { return "Sync Queue" }

func (m QueueModel) ShortHelp() string {
	if m.confirm != "" {
		return "y: discard | n: keep"
	}

	return "Esc: back | s: sync now | r: retry all | x: discard failed item"
}

func (m QueueModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m QueueModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case queueLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.err = nil
		m.items = msg.items

		items := make([]list.Item, len(msg.items))
		for i, it := range msg.items {
			items[i] = queueItem{item: it}
		}

		return m, m.list.SetItems(items)

	case drainedMsg:
		m.busy = false
		m.status = describeResult(msg.result)

		return m, m.loadCmd()

	case discardedMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Discard failed: %v", msg.err)
		} else {
			m.status = "Item discarded."
		}

		return m, m.loadCmd()

	case TickMsg:
		return m, m.loadCmd()

	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
		m.list.SetSize(msg.Width-4, max(msg.Height-8, 5))

		return m, nil

	case tea.KeyMsg:
		if m.confirm != "" {
			return m.updateConfirm(msg)
		}

		switch msg.String() {
		case "esc":
			return m, Back
		case "s":
			return m.drain(syncer.DrainOptions{})
		case "r":
			return m.drain(syncer.DrainOptions{IncludeFailed: true})
		case "x":
			it, ok := m.selected()
			if !ok {
				return m, nil
			}

			if it.Status != outbox.StatusFailed {
				m.status = "Only failed items can be discarded."
				return m, nil
			}

			m.confirm = it.ID

			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)

	return m, cmd
}

func (m QueueModel) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	id := m.confirm
	m.confirm = ""

	if msg.String() != "y" {
		return m, nil
	}

	return m, m.discardCmd(id)
}

func (m QueueModel) drain(opts syncer.DrainOptions) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}

	m.busy = true
	m.status = "Syncing..."

	return m, m.drainCmd(opts)
}

func (m QueueModel) selected() (*outbox.Item, bool) {
	idx := m.list.Index()
	if idx < 0 || idx >= len(m.items) {
		return nil, false
	}

	return m.items[idx], true
}

func describeResult(res syncer.Result) string {
	switch {
	case res.Skipped:
		return "A sync is already running."
	case res.Err != nil:
		return fmt.Sprintf("Synced %d, stopped at %s: %v", res.Synced, shortID(res.FailedID), res.Err)
	case res.Synced == 0:
		return "Nothing to sync."
	}

	return fmt.Sprintf("Synced %d %s.", res.Synced, pluralize(res.Synced, "item", "items"))
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return one
	}

	return many
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}

	return id
}

func (m QueueModel) View() string {
	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error reading outbox: %v", m.err))
	}

	var b strings.Builder

	if len(m.items) == 0 {
		b.WriteString("The outbox is empty. Everything is synced.\n")
	} else {
		b.WriteString(m.list.View())
	}

	if m.confirm != "" {
		b.WriteString("\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("196")).
			Render(fmt.Sprintf("Discard %s for good? (y/n)", shortID(m.confirm))))
	}

	if m.status != "" {
		b.WriteString("\n" + lipgloss.NewStyle().Faint(true).Render(m.status))
	}

	return lipgloss.NewStyle().Padding(1).Render(b.String())
}

// Messages

type queueLoadedMsg struct {
	items []*outbox.Item
	err   error
}

func (m QueueModel) loadCmd() tea.Cmd {
	queue := m.queue

	return func() tea.Msg {
		ctx, cancel := RequestCtx()
		defer cancel()

		items, err := queue.ListByStatus(ctx, outbox.StatusPending, outbox.StatusSyncing, outbox.StatusFailed)

		return queueLoadedMsg{items: items, err: err}
	}
}

type drainedMsg struct {
	result syncer.Result
}

func (m QueueModel) drainCmd(opts syncer.DrainOptions) tea.Cmd {
	engine := m.engine

	return func() tea.Msg {
		// Each request is bounded by the HTTP client timeout.
		return drainedMsg{result: engine.Drain(context.Background(), opts)}
	}
}

type discardedMsg struct {
	err error
}

func (m QueueModel) discardCmd(id string) tea.Cmd {
	engine := m.engine

	return func() tea.Msg {
		ctx, cancel := RequestCtx()
		defer cancel()

		return discardedMsg{err: engine.Discard(ctx, id)}
	}
}

// Queue list item

type queueItem struct {
	item *outbox.Item
}

func (i queueItem) Title() string       { return string(i.item.Action) + " " + string(i.item.EntityType) }
func (i queueItem) Description() string { return i.item.URL }
func (i queueItem) FilterValue() string { return i.item.ID }

// Queue list delegate

type queueDelegate struct{}

func (d queueDelegate) Height() int                             { return 2 }
func (d queueDelegate) Spacing() int                            { return 1 }
func (d queueDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

var statusColors = map[outbox.Status]lipgloss.Color{
	outbox.StatusPending: lipgloss.Color("214"),
	outbox.StatusSyncing: lipgloss.Color("39"),
	outbox.StatusFailed:  lipgloss.Color("196"),
}

func (d queueDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	qi, ok := listItem.(queueItem)
	if !ok {
		return
	}

	it := qi.item

	cursor := "  "
	if index == m.Index() {
		cursor = "> "
	}

	status := lipgloss.NewStyle().Foreground(statusColors[it.Status]).Render(fmt.Sprintf("%-8s", it.Status))

	line1 := fmt.Sprintf("%s%s %s %-7s %s %s  %s",
		cursor, status, shortID(it.ID), it.Action, it.Method, it.URL,
		humanize.Time(it.CreatedAt),
	)

	line2 := fmt.Sprintf("    attempts: %d", it.Attempts)
	if it.LastError != "" {
		line2 += "  last error: " + it.LastError
	}

	fmt.Fprintf(w, "%s\n%s", line1, line2)
}
