package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
)

// FileSource reads the tail of local log files, one file per source id. A
// missing file is not an error: the service may simply not have started
// logging yet, so the fetch reports no lines.
type FileSource struct {
	paths map[string]string
}

// NewFileSource maps source ids to log file paths.
func NewFileSource(paths map[string]string) *FileSource {
	copied := make(map[string]string, len(paths))
	for id, p := range paths {
		copied[id] = p
	}
	return &FileSource{paths: copied}
}

// FetchRecent returns at most maxLines from the end of the source's file,
// oldest first. The whole file is scanned once with O(maxLines) memory.
func (f *FileSource) FetchRecent(ctx context.Context, id string, maxLines int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, ok := f.paths[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, id)
	}
	if maxLines <= 0 {
		return nil, nil
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: open %s: %v", ErrSourceUnavailable, path, err)
	}
	defer file.Close()

	ring := make([]string, maxLines)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrSourceUnavailable, path, err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}
