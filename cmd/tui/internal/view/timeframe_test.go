package view

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeframe_DateRange(t *testing.T) {
	// A Wednesday.
	now := time.Date(2026, 10, 14, 15, 0, 0, 0, time.UTC)

	day := func(m time.Month, d int) time.Time { return time.Date(2026, m, d, 0, 0, 0, 0, time.UTC) }
	endOf := func(m time.Month, d int) time.Time { return time.Date(2026, m, d, 23, 59, 59, 0, time.UTC) }

	tests := []struct {
		tf         Timeframe
		start, end time.Time
	}{
		{TimeframeThisWeek, day(10, 12), endOf(10, 14)},
		{TimeframeLastWeek, day(10, 5), endOf(10, 11)},
		{TimeframeThisMonth, day(10, 1), endOf(10, 14)},
		{TimeframeLastMonth, day(9, 1), endOf(9, 30)},
	}

	for _, tt := range tests {
		t.Run(tt.tf.String(), func(t *testing.T) {
			start, end := tt.tf.DateRange(now)
			assert.Equal(t, tt.start, start)
			assert.Equal(t, tt.end, end)
		})
	}
}

func TestTimeframePicker_SelectsPreset(t *testing.T) {
	p := NewTimeframePicker()
	p.now = func() time.Time { return time.Date(2026, 10, 14, 15, 0, 0, 0, time.UTC) }

	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyDown})
	p, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	msg, ok := cmd().(TimeframeSelectedMsg)
	require.True(t, ok)
	assert.Equal(t, "Last Month", msg.Label)
	assert.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), msg.Start)
	assert.True(t, p.IsSelecting())
}

func TestTimeframePicker_All(t *testing.T) {
	p := NewTimeframePicker()

	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyDown})
	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyDown})
	_, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	msg := cmd().(TimeframeSelectedMsg)
	assert.True(t, msg.All)
	assert.True(t, msg.Start.IsZero())
}

func TestTimeframePicker_CustomOpensForm(t *testing.T) {
	p := NewTimeframePicker()

	for range 3 {
		p, _ = p.Update(tea.KeyMsg{Type: tea.KeyDown})
	}

	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, p.IsSelecting())

	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.True(t, p.IsSelecting())
}
