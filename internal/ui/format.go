package ui

import (
	"fmt"
	"strings"

	"github.com/igralabs/nodedeck/internal/logfmt"
)

// levelFilter is the cycling minimum-severity filter for the logs view.
type levelFilter int

const (
	filterAll levelFilter = iota
	filterInfo
	filterWarn
	filterError
)

func (f levelFilter) next() levelFilter {
	switch f {
	case filterAll:
		return filterInfo
	case filterInfo:
		return filterWarn
	case filterWarn:
		return filterError
	default:
		return filterAll
	}
}

func (f levelFilter) label() string {
	switch f {
	case filterInfo:
		return "info+"
	case filterWarn:
		return "warn+"
	case filterError:
		return "error"
	default:
		return "all"
	}
}

// levels returns the allow-list for the filter, nil meaning everything.
func (f levelFilter) levels() []logfmt.Level {
	switch f {
	case filterInfo:
		return []logfmt.Level{logfmt.LevelInfo, logfmt.LevelWarn, logfmt.LevelError}
	case filterWarn:
		return []logfmt.Level{logfmt.LevelWarn, logfmt.LevelError}
	case filterError:
		return []logfmt.Level{logfmt.LevelError}
	default:
		return nil
	}
}

func formatLine(l logfmt.Line) string {
	var b strings.Builder
	if l.TimeShort != "" {
		b.WriteString(l.TimeShort)
		b.WriteString(" ")
	}
	b.WriteString(fmt.Sprintf("%-5s", l.Level.String()))
	if l.ModuleShort != "" {
		b.WriteString(" ")
		b.WriteString(l.ModuleShort)
	}
	b.WriteString("  ")
	b.WriteString(l.Message)
	return b.String()
}

func groupHeader(g logfmt.Group) string {
	module := g.Module
	if module == "" {
		module = "-"
	}
	return fmt.Sprintf("[%s] %s (%d)", g.Level.String(), module, len(g.Lines))
}

func staleMarker(stale bool) string {
	if stale {
		return " STALE"
	}
	return ""
}
