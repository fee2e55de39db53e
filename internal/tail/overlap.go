package tail

// overlapLen returns the length of the longest suffix of prev that equals a
// prefix of next. Fetch windows have no stable offsets, so consecutive
// windows are aligned by content; the longest alignment wins because fetch
// windows are sized above the per-cycle line volume and a shorter match
// would re-ingest steady-state lines.
func overlapLen(prev, next []string) int {
	max := len(prev)
	if len(next) < max {
		max = len(next)
	}
	for n := max; n > 0; n-- {
		if windowsEqual(prev[len(prev)-n:], next[:n]) {
			return n
		}
	}
	return 0
}

// dedup returns the lines of next not already seen at the end of prev. With
// no overlap the whole window is new.
func dedup(prev, next []string) []string {
	return next[overlapLen(prev, next):]
}

func windowsEqual(a, b []string) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
