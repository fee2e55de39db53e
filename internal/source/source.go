// Package source defines the raw log collaborators the tail pipeline reads
// from, plus the registry mapping source ids to service-type tags.
package source

import (
	"context"
	"errors"
)

// ErrSourceUnavailable reports that a backing process could not be reached.
// It is recoverable: schedulers retry on the next cycle and surface it only
// as a staleness indicator.
var ErrSourceUnavailable = errors.New("log source unavailable")

// ErrUnknownSource reports a source id absent from the registry. This is a
// configuration error and the only error control operations surface.
var ErrUnknownSource = errors.New("unknown source")

// Source fetches the newest raw lines for a source id, oldest first. Offsets
// are not stable across fetches; callers dedup overlap by content.
type Source interface {
	FetchRecent(ctx context.Context, id string, maxLines int) ([]string, error)
}

// Registry resolves a source id to its service-type tag for metric pattern
// selection.
type Registry struct {
	types map[string]string
}

// NewRegistry builds a registry from an id → service-type map.
func NewRegistry(types map[string]string) *Registry {
	copied := make(map[string]string, len(types))
	for id, tag := range types {
		copied[id] = tag
	}
	return &Registry{types: copied}
}

// ServiceType returns the tag for id, or "" with ErrUnknownSource.
func (r *Registry) ServiceType(id string) (string, error) {
	tag, ok := r.types[id]
	if !ok {
		return "", ErrUnknownSource
	}
	return tag, nil
}

// Known reports whether id is registered.
func (r *Registry) Known(id string) bool {
	_, ok := r.types[id]
	return ok
}

// IDs returns all registered source ids.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.types))
	for id := range r.types {
		ids = append(ids, id)
	}
	return ids
}
