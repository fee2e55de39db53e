package logfmt

import "strings"

// Filters narrow a line sequence before display. Zero value matches
// everything. An empty result is valid, not an error.
type Filters struct {
	Levels    []Level // allow-list; empty allows all levels
	Substring string  // case-insensitive match against the message
	Module    string  // case-insensitive match against full or short module
}

// IsZero reports whether no filter is set.
func (f Filters) IsZero() bool {
	return len(f.Levels) == 0 && f.Substring == "" && f.Module == ""
}

// Match reports whether a single line passes all filters.
func (f Filters) Match(line Line) bool {
	if len(f.Levels) > 0 {
		allowed := false
		for _, lvl := range f.Levels {
			if line.Level == lvl {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}
	if f.Substring != "" &&
		!strings.Contains(strings.ToLower(line.Message), strings.ToLower(f.Substring)) {
		return false
	}
	if f.Module != "" {
		want := strings.ToLower(f.Module)
		if !strings.Contains(strings.ToLower(line.Module), want) &&
			!strings.Contains(strings.ToLower(line.ModuleShort), want) {
			return false
		}
	}
	return true
}

// Apply returns the lines passing all filters, in original order. It operates
// purely on already-parsed data.
func (f Filters) Apply(lines []Line) []Line {
	if f.IsZero() {
		return lines
	}
	var out []Line
	for _, line := range lines {
		if f.Match(line) {
			out = append(out, line)
		}
	}
	return out
}
