// Package metrics extracts per-service health signals from recent log
// windows. Each monitored service type registers an ordered pattern table at
// startup; extraction normalizes heterogeneous log output (sync status,
// throughput, block heights, queue depth, TLS state) into a uniform snapshot
// with a primary/secondary display pair.
package metrics

import (
	"regexp"
	"strings"
	"time"
)

// Snapshot is the last extracted state for one source. Fields carry over
// from pass to pass until a fresh match replaces them.
type Snapshot struct {
	Fields    map[string]string
	Primary   string // first preferred field with a value
	Secondary string
	Stale     bool
	UpdatedAt time.Time
}

// Field returns a field value, or "" when absent.
func (s Snapshot) Field(name string) string {
	return s.Fields[name]
}

// Normalizer converts regex captures into a display value. The full match is
// captures[0].
type Normalizer func(captures []string) string

// Pattern binds one compiled matcher to a snapshot field.
type Pattern struct {
	Field     string
	re        *regexp.Regexp
	normalize Normalizer
}

// NewPattern compiles a pattern entry. The expression must be valid; tables
// are built from literals at startup, so a bad expression is a programming
// error and panics.
func NewPattern(field, expr string, normalize Normalizer) Pattern {
	return Pattern{Field: field, re: regexp.MustCompile(expr), normalize: normalize}
}

// Capture returns the n-th capture group, optionally wrapped with a prefix
// and suffix.
func Capture(n int, prefix, suffix string) Normalizer {
	return func(captures []string) string {
		if n >= len(captures) || captures[n] == "" {
			return ""
		}
		return prefix + captures[n] + suffix
	}
}

// Const ignores captures and always reports value; used for presence-style
// indicators such as sync phases.
func Const(value string) Normalizer {
	return func([]string) string { return value }
}

type typeEntry struct {
	patterns  []Pattern
	primary   []string // field preference for the primary display slot
	secondary []string
}

// Table maps service-type tags to their pattern sets. It is resolved once at
// startup; extraction does no reflection or recompilation.
type Table struct {
	types map[string]*typeEntry
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{types: make(map[string]*typeEntry)}
}

// Register adds patterns for a service type. Pattern order matters: when two
// patterns target the same field, the earlier one wins for a given window.
func (t *Table) Register(serviceType string, patterns []Pattern, primary, secondary []string) {
	t.types[serviceType] = &typeEntry{patterns: patterns, primary: primary, secondary: secondary}
}

// Known reports whether a service type has registered patterns.
func (t *Table) Known(serviceType string) bool {
	_, ok := t.types[serviceType]
	return ok
}

// Extract runs all patterns registered for serviceType over a recent line
// window (oldest..newest) and merges with the previous snapshot. Within the
// window the most recent match wins. Fields with no fresh match keep their
// previous value: individual log lines do not repeat all state, so matched
// values are sticky until replaced. Unregistered types yield an empty
// snapshot.
func (t *Table) Extract(serviceType string, window []string, prev Snapshot) Snapshot {
	entry, ok := t.types[serviceType]
	if !ok {
		return Snapshot{UpdatedAt: time.Now()}
	}

	fields := make(map[string]string, len(prev.Fields))
	for k, v := range prev.Fields {
		fields[k] = v
	}

	matched := make(map[string]bool)
	for _, p := range entry.patterns {
		if matched[p.Field] {
			continue
		}
		// Newest line first: the most recent match wins.
		for i := len(window) - 1; i >= 0; i-- {
			caps := p.re.FindStringSubmatch(window[i])
			if caps == nil {
				continue
			}
			if value := p.normalize(caps); value != "" {
				fields[p.Field] = value
				matched[p.Field] = true
			}
			break
		}
	}

	snap := Snapshot{Fields: fields, UpdatedAt: time.Now()}
	snap.Primary = firstField(fields, entry.primary)
	snap.Secondary = firstField(fields, entry.secondary)
	return snap
}

func firstField(fields map[string]string, prefs []string) string {
	for _, name := range prefs {
		if v, ok := fields[name]; ok && v != "" {
			return v
		}
	}
	return ""
}

// GroupDigits inserts comma separators into a decimal number string.
func GroupDigits(s string) string {
	if len(s) <= 3 || strings.ContainsAny(s, ".,") {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
