package logfmt

import "strings"

// Level classifies the severity of a parsed log line.
type Level int

const (
	LevelUnknown Level = iota
	LevelTrace
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel matches a level token case-insensitively. Unrecognized input
// maps to LevelUnknown.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ERROR":
		return LevelError
	case "WARN":
		return LevelWarn
	case "INFO":
		return LevelInfo
	case "DEBUG":
		return LevelDebug
	case "TRACE":
		return LevelTrace
	default:
		return LevelUnknown
	}
}

func (l Level) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	case LevelTrace:
		return "TRACE"
	default:
		return "UNKNOWN"
	}
}

// Format tags which line layout the detector recognized.
type Format int

const (
	FormatUnknown Format = iota
	FormatBracketed
	FormatISO
	FormatFileLocation
)

func (f Format) String() string {
	switch f {
	case FormatBracketed:
		return "bracketed"
	case FormatISO:
		return "iso"
	case FormatFileLocation:
		return "fileloc"
	default:
		return "unknown"
	}
}

// Line is the structured decomposition of one sanitized log line. It is
// immutable once created: views, filters, and grouping all operate on the
// cached value and never re-invoke the parser.
type Line struct {
	Source      string // owning source id (hint passed at parse time)
	Timestamp   string // original timestamp text, may be empty
	TimeShort   string // HH:MM:SS for compact display
	Level       Level
	Module      string // full module path, e.g. "viaduct::bridge"
	ModuleShort string // final segment, e.g. "bridge"
	Message     string
	Format      Format
	Raw         string // sanitized input line, kept for metrics extraction
}
