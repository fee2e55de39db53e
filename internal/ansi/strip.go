package ansi

import "strings"

const esc = '\x1b'

// Strip removes CSI escape sequences (ESC '[' parameters final-byte) from s.
// It is idempotent and never fails; ordinary bracket characters in message
// text are left untouched.
func Strip(s string) string {
	if !strings.ContainsRune(s, esc) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); {
		if s[i] != esc {
			b.WriteByte(s[i])
			i++
			continue
		}
		// Lone ESC at end of line: drop it.
		if i+1 >= len(s) {
			break
		}
		if s[i+1] != '[' {
			// Not a CSI sequence; keep the ESC byte as-is.
			b.WriteByte(s[i])
			i++
			continue
		}
		// Skip ESC '[' then parameter and intermediate bytes (0x20-0x3f)
		// until the final byte (0x40-0x7e) terminates the sequence.
		j := i + 2
		for j < len(s) && s[j] >= 0x20 && s[j] <= 0x3f {
			j++
		}
		if j < len(s) && s[j] >= 0x40 && s[j] <= 0x7e {
			j++
		}
		i = j
	}
	return b.String()
}
