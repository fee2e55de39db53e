package logfmt

import "strings"

// CompactTime reduces a timestamp to HH:MM:SS for compact display.
// It handles ISO 8601 ("2025-10-21T10:28:44.123Z"), space-separated
// ("2025-10-21 10:55:19.338+00:00"), and bare time ("10:28:44") inputs.
// Unrecognized input is returned unchanged.
func CompactTime(ts string) string {
	if ts == "" {
		return ""
	}

	timePart := ts
	if idx := strings.IndexByte(ts, 'T'); idx >= 0 {
		timePart = ts[idx+1:]
	} else if strings.ContainsRune(ts, ' ') {
		fields := strings.Fields(ts)
		if len(fields) >= 2 {
			timePart = fields[1]
		}
	}

	// Drop fractional seconds and timezone suffixes.
	for _, sep := range []byte{'.', 'Z', '+'} {
		if idx := strings.IndexByte(timePart, sep); idx >= 0 {
			timePart = timePart[:idx]
		}
	}
	if len(timePart) > 8 {
		timePart = timePart[:8]
	}
	return timePart
}
