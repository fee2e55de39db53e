package logfmt

import (
	"regexp"
	"strings"
	"sync/atomic"
)

// Line layouts emitted by the monitored services. The source name is a hint
// only; services change logging frameworks across releases, so detection is
// structural.
var (
	// "[2025-10-21T08:48:40Z INFO viaduct::bridge] synced to height 100"
	// "[10:00:00 INFO viaduct::bridge] synced to height 100"
	bracketedRe = regexp.MustCompile(`^\[([^\]\s]+)\s+((?i:ERROR|WARN|INFO|DEBUG|TRACE))\s+([^\]]+)\]\s*(.*)$`)

	// "2025-10-21T10:37:06.342076Z  INFO reth_node_events::node: Canonical chain committed"
	isoRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:?\d{2})?)\s+((?i:ERROR|WARN|INFO|DEBUG|TRACE))\s+([\w:]+):\s+(.*)$`)

	// "builder::payload: src/payload.rs:142: building on parent 0xabc"
	fileLocRe = regexp.MustCompile(`^([\w:]+):\s+(\S+\.[A-Za-z]+):(\d+):\s*(.*)$`)

	// Loose level token for the fallback path.
	levelTokenRe = regexp.MustCompile(`(?i)\b(ERROR|WARN|INFO|DEBUG|TRACE)\b`)
)

// Parser converts sanitized lines into Line records. It counts invocations so
// callers can verify the parse-once contract: re-rendering, re-filtering, and
// re-grouping must not come back through here.
type Parser struct {
	calls atomic.Int64
}

// NewParser returns a ready Parser. The zero value is also usable.
func NewParser() *Parser {
	return &Parser{}
}

// Calls reports how many times Parse has run.
func (p *Parser) Calls() int64 {
	return p.calls.Load()
}

// Parse decomposes one sanitized line. It never fails: lines that match no
// known layout degrade to LevelUnknown with the full line as the message.
func (p *Parser) Parse(source, line string) Line {
	p.calls.Add(1)

	if m := bracketedRe.FindStringSubmatch(line); m != nil {
		module := strings.TrimSpace(m[3])
		// Some services append a file annotation inside the bracket:
		// "module::path: src/file.rs:42". Strip it from the module.
		if idx := strings.Index(module, ": "); idx >= 0 {
			if looksLikeFilePath(module[idx+2:]) {
				module = strings.TrimSpace(module[:idx])
			}
		}
		return Line{
			Source:      source,
			Timestamp:   m[1],
			TimeShort:   CompactTime(m[1]),
			Level:       ParseLevel(m[2]),
			Module:      module,
			ModuleShort: shortModule(module),
			Message:     m[4],
			Format:      FormatBracketed,
			Raw:         line,
		}
	}

	if m := isoRe.FindStringSubmatch(line); m != nil {
		module := strings.TrimSpace(m[3])
		return Line{
			Source:      source,
			Timestamp:   m[1],
			TimeShort:   CompactTime(m[1]),
			Level:       ParseLevel(m[2]),
			Module:      module,
			ModuleShort: shortModule(module),
			Message:     m[4],
			Format:      FormatISO,
			Raw:         line,
		}
	}

	if m := fileLocRe.FindStringSubmatch(line); m != nil && looksLikeFilePath(m[2]) {
		module := strings.TrimSpace(m[1])
		return Line{
			Source:      source,
			Level:       LevelUnknown,
			Module:      module,
			ModuleShort: shortModule(module),
			Message:     m[4],
			Format:      FormatFileLocation,
			Raw:         line,
		}
	}

	// Fallback: never an error. Lift a level token if one appears anywhere,
	// keep the whole line as the message.
	level := LevelUnknown
	if tok := levelTokenRe.FindString(line); tok != "" {
		level = ParseLevel(tok)
	}
	return Line{
		Source:  source,
		Level:   level,
		Message: line,
		Format:  FormatUnknown,
		Raw:     line,
	}
}

// shortModule reduces "viaduct::uni_storage" to "uni_storage".
func shortModule(module string) string {
	if module == "" {
		return ""
	}
	parts := strings.Split(module, "::")
	return parts[len(parts)-1]
}

// looksLikeFilePath reports whether s starts a source-file annotation such as
// "src/payload.rs:142" or "/app/main.go:10".
func looksLikeFilePath(s string) bool {
	return strings.HasPrefix(s, "src/") || strings.HasPrefix(s, "/") ||
		(strings.Contains(s, "/") && strings.Contains(s, "."))
}
