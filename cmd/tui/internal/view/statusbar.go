package view

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/MrJamesThe3rd/haulbook/internal/syncer"
)

const maxErrorWidth = 60

var (
	onlineStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	offlineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	barStyle     = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(lipgloss.Color("240")).
			PaddingLeft(1)
)

// StatusBar renders the sync engine status as a single line.
func StatusBar(st syncer.Status) string {
	parts := make([]string, 0, 5)

	if st.IsOnline {
		parts = append(parts, onlineStyle.Render("● online"))
	} else {
		parts = append(parts, offlineStyle.Render("○ offline"))
	}

	if st.IsSyncing {
		parts = append(parts, "syncing...")
	}

	parts = append(parts, fmt.Sprintf("pending %d", st.PendingCount))

	if st.FailedCount > 0 {
		parts = append(parts, offlineStyle.Render(fmt.Sprintf("failed %d", st.FailedCount)))
	}

	last := "never"
	if !st.LastSyncTime.IsZero() {
		last = humanize.Time(st.LastSyncTime)
	}

	parts = append(parts, "last sync "+last)

	if st.LastError != "" {
		parts = append(parts, offlineStyle.Render(truncate(st.LastError, maxErrorWidth)))
	}

	return barStyle.Render(strings.Join(parts, " | "))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}

	return string(r[:n-1]) + "…"
}
