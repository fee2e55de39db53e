package logfmt

// Group is a run of consecutive lines sharing level and short module name,
// collapsed for compact display.
type Group struct {
	Level  Level
	Module string // short module name
	Lines  []Line
}

// GroupLines collapses consecutive lines with identical (level, module-short)
// into groups. Any change in level or module starts a new group; original
// order is preserved across group boundaries. The input is already parsed:
// this function must stay pure over Line values.
func GroupLines(lines []Line) []Group {
	var groups []Group
	for _, line := range lines {
		if n := len(groups); n > 0 {
			last := &groups[n-1]
			if last.Level == line.Level && last.Module == line.ModuleShort {
				last.Lines = append(last.Lines, line)
				continue
			}
		}
		groups = append(groups, Group{
			Level:  line.Level,
			Module: line.ModuleShort,
			Lines:  []Line{line},
		})
	}
	return groups
}
