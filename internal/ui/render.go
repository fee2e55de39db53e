package ui

import (
	"fmt"
	"strings"

	"github.com/igralabs/nodedeck/internal/tail"
)

func (m Model) renderHeader() string {
	styles := m.theme.Styles()

	left := styles.Logo.Render("NODEDECK")
	var right string
	if !m.lastUpdated.IsZero() {
		right = styles.MutedText.Render("updated " + m.lastUpdated.Format("15:04:05"))
	}

	gap := m.width - visibleWidth(left) - visibleWidth(right) - 2
	if gap < 1 {
		gap = 1
	}
	return styles.Header.Render(left + strings.Repeat(" ", gap) + right)
}

func (m Model) renderDeck() string {
	styles := m.theme.Styles()
	var b strings.Builder

	if len(m.sources) == 0 {
		b.WriteString(styles.MutedText.Render("No sources configured."))
		return b.String()
	}

	header := fmt.Sprintf("  %-18s %-12s %-11s %-16s %-16s %8s", "SOURCE", "TYPE", "STATE", "METRIC", "DETAIL", "LINES")
	b.WriteString(styles.FaintText.Render(header))
	b.WriteString("\n")

	for i, st := range m.sources {
		snap := m.metrics[st.ID]
		row := fmt.Sprintf("  %-18s %-12s %-11s %-16s %-16s %8d",
			st.ID,
			st.ServiceType,
			st.State.String()+staleMarker(st.Stale),
			snap.Primary,
			snap.Secondary,
			st.Total,
		)
		if i == m.selectedRow {
			b.WriteString(styles.Selected.Render("> " + row[2:]))
		} else if st.State == tail.StateStopped {
			b.WriteString(styles.MutedText.Render(row))
		} else {
			b.WriteString(styles.Text.Render(row))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderLogs() string {
	styles := m.theme.Styles()
	var b strings.Builder

	snap := m.metrics[m.activeSource]
	status := m.activeSource
	if snap.Primary != "" {
		status += "  " + snap.Primary
	}
	if snap.Secondary != "" {
		status += "  " + snap.Secondary
	}
	if snap.Stale {
		status += "  " + styles.DangerText.Render("STALE")
	}

	mode := "chrono"
	if m.grouped {
		mode = "grouped"
	}
	flags := fmt.Sprintf("[%s] [%s]", mode, m.filter.label())
	if m.follow {
		flags += " [follow]"
	}
	if m.search != "" {
		flags += fmt.Sprintf(" [/%s]", m.search)
	}

	b.WriteString(styles.AccentText.Render(status))
	b.WriteString("  ")
	b.WriteString(styles.MutedText.Render(flags))
	b.WriteString("\n")

	if m.searching {
		b.WriteString(m.searchInput.View())
		b.WriteString("\n")
	}
	b.WriteString(m.logViewport.View())
	return b.String()
}

func (m Model) renderFooter() string {
	styles := m.theme.Styles()
	var hints string
	switch m.currentView {
	case ViewDeck:
		hints = "enter open · s start/stop · j/k move · h help · e quit"
	case ViewLogs:
		hints = "g group · f level · / search · Space follow · esc back · h help"
	}
	return styles.Footer.Render(hints)
}

func (m Model) renderHelp() string {
	styles := m.theme.Styles()
	var b strings.Builder
	b.WriteString(styles.Logo.Render("NODEDECK KEYS"))
	b.WriteString("\n\n")
	for _, group := range m.keys.FullHelp() {
		for _, binding := range group {
			help := binding.Help()
			b.WriteString(fmt.Sprintf("  %-12s %s\n",
				styles.AccentText.Render(help.Key),
				styles.Text.Render(help.Desc)))
		}
		b.WriteString("\n")
	}
	b.WriteString(styles.MutedText.Render("Press any key to close."))
	return b.String()
}

// visibleWidth approximates rendered width ignoring style escapes by
// measuring the raw text before styling. Styled fragments passed here are
// short and single-line.
func visibleWidth(s string) int {
	width := 0
	inEscape := false
	for _, r := range s {
		switch {
		case r == 0x1b:
			inEscape = true
		case inEscape:
			if (r >= 0x40 && r <= 0x7e) && r != '[' {
				inEscape = false
			}
		default:
			width++
		}
	}
	return width
}
