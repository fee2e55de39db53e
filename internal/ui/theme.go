package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/igralabs/nodedeck/internal/logfmt"
)

// Theme defines colors for the UI.
type Theme struct {
	Name string

	Background string
	Surface    string

	SelectionBg   string
	SelectionText string

	Border      string
	BorderFocus string

	Text    string
	Muted   string
	Faint   string
	Accent  string
	Success string
	Warning string
	Danger  string
	Info    string
}

// Styles returns Lipgloss styles for this theme.
func (t Theme) Styles() Styles {
	return Styles{
		Text:       lipgloss.NewStyle().Foreground(lipgloss.Color(t.Text)),
		MutedText:  lipgloss.NewStyle().Foreground(lipgloss.Color(t.Muted)),
		FaintText:  lipgloss.NewStyle().Foreground(lipgloss.Color(t.Faint)),
		AccentText: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Accent)),
		SuccessText: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Success)).
			Bold(true),
		WarningText: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Warning)),
		DangerText: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Danger)).
			Bold(true),
		InfoText: lipgloss.NewStyle().Foreground(lipgloss.Color(t.Info)),

		Header: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Surface)).
			Foreground(lipgloss.Color(t.Text)).
			Padding(0, 1),
		Footer: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Surface)).
			Foreground(lipgloss.Color(t.Muted)).
			Padding(0, 1),
		Logo: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Warning)).
			Bold(true),
		Selected: lipgloss.NewStyle().
			Background(lipgloss.Color(t.SelectionBg)).
			Foreground(lipgloss.Color(t.SelectionText)),
	}
}

// Styles contains pre-built Lipgloss styles for the theme.
type Styles struct {
	Text        lipgloss.Style
	MutedText   lipgloss.Style
	FaintText   lipgloss.Style
	AccentText  lipgloss.Style
	SuccessText lipgloss.Style
	WarningText lipgloss.Style
	DangerText  lipgloss.Style
	InfoText    lipgloss.Style

	Header   lipgloss.Style
	Footer   lipgloss.Style
	Logo     lipgloss.Style
	Selected lipgloss.Style
}

// LevelStyle maps a log level to its display style.
func (s Styles) LevelStyle(level logfmt.Level) lipgloss.Style {
	switch level {
	case logfmt.LevelError:
		return s.DangerText
	case logfmt.LevelWarn:
		return s.WarningText
	case logfmt.LevelDebug, logfmt.LevelTrace:
		return s.FaintText
	case logfmt.LevelInfo:
		return s.InfoText
	default:
		return s.MutedText
	}
}

var themes = []Theme{
	{
		Name:          "Dracula",
		Background:    "#282a36",
		Surface:       "#343746",
		SelectionBg:   "#44475a",
		SelectionText: "#f8f8f2",
		Border:        "#6272a4",
		BorderFocus:   "#bd93f9",
		Text:          "#f8f8f2",
		Muted:         "#9ba3c7",
		Faint:         "#6272a4",
		Accent:        "#bd93f9",
		Success:       "#50fa7b",
		Warning:       "#f1fa8c",
		Danger:        "#ff5555",
		Info:          "#8be9fd",
	},
	{
		Name:          "Slate",
		Background:    "#1e293b",
		Surface:       "#273449",
		SelectionBg:   "#334155",
		SelectionText: "#f1f5f9",
		Border:        "#475569",
		BorderFocus:   "#7dd3fc",
		Text:          "#e2e8f0",
		Muted:         "#94a3b8",
		Faint:         "#64748b",
		Accent:        "#7dd3fc",
		Success:       "#4ade80",
		Warning:       "#facc15",
		Danger:        "#f87171",
		Info:          "#93c5fd",
	},
}

// GetTheme returns the named theme, falling back to the first.
func GetTheme(name string) Theme {
	for _, t := range themes {
		if t.Name == name {
			return t
		}
	}
	return themes[0]
}

// NextTheme returns the name following the given one, wrapping around.
func NextTheme(name string) string {
	for i, t := range themes {
		if t.Name == name {
			return themes[(i+1)%len(themes)].Name
		}
	}
	return themes[0].Name
}
