package source

import "context"

// Mux routes fetches per source id: ids with a configured log file go to the
// file reader, everything else to the fallback (the agent client).
type Mux struct {
	file     *FileSource
	fileIDs  map[string]bool
	fallback Source
}

// NewMux builds a router over the file-backed ids and a fallback source.
func NewMux(paths map[string]string, fallback Source) *Mux {
	ids := make(map[string]bool, len(paths))
	for id := range paths {
		ids[id] = true
	}
	return &Mux{
		file:     NewFileSource(paths),
		fileIDs:  ids,
		fallback: fallback,
	}
}

// FetchRecent implements Source.
func (m *Mux) FetchRecent(ctx context.Context, id string, maxLines int) ([]string, error) {
	if m.fileIDs[id] {
		return m.file.FetchRecent(ctx, id, maxLines)
	}
	return m.fallback.FetchRecent(ctx, id, maxLines)
}
