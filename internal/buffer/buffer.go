// Package buffer provides the bounded per-source store of parsed log lines.
//
// Each Buffer has exactly one writer (the tail scheduler that owns the
// source); readers receive copies and never observe a partially-applied
// append. Capacity overflow evicts oldest entries first. Entries carry
// absolute sequence numbers so scroll positions stay stable across appends
// and clamp to the oldest surviving entry after eviction.
package buffer

import (
	"sync"
	"time"

	"github.com/igralabs/nodedeck/internal/logfmt"
)

// DefaultCapacity bounds a buffer when the caller does not choose one.
const DefaultCapacity = 10000

// Buffer is a bounded FIFO deque of parsed lines backed by a ring.
type Buffer struct {
	mu         sync.RWMutex
	entries    []logfmt.Line
	head       int // index of oldest entry
	count      int
	total      uint64 // lines ever appended
	lastUpdate time.Time
}

// New returns a buffer holding at most capacity lines. Non-positive capacity
// falls back to DefaultCapacity.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{entries: make([]logfmt.Line, capacity)}
}

// Append adds lines in order, evicting oldest entries on overflow. Only the
// owning scheduler may call Append.
func (b *Buffer) Append(lines ...logfmt.Line) {
	if len(lines) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	capacity := len(b.entries)
	for _, line := range lines {
		idx := (b.head + b.count) % capacity
		b.entries[idx] = line
		if b.count < capacity {
			b.count++
		} else {
			b.head = (b.head + 1) % capacity
		}
	}
	b.total += uint64(len(lines))
	b.lastUpdate = time.Now()
}

// Len reports the number of stored lines.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Cap reports the fixed capacity.
func (b *Buffer) Cap() int {
	return len(b.entries)
}

// Total reports how many lines were ever appended, including evicted ones.
func (b *Buffer) Total() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.total
}

// LastUpdate reports when the buffer last changed.
func (b *Buffer) LastUpdate() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastUpdate
}

// Lines returns a copy of all stored lines, oldest first.
func (b *Buffer) Lines() []logfmt.Line {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.copyLast(b.count)
}

// Last returns a copy of the newest k lines (fewer when the buffer holds
// fewer), oldest first.
func (b *Buffer) Last(k int) []logfmt.Line {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if k > b.count {
		k = b.count
	}
	return b.copyLast(k)
}

func (b *Buffer) copyLast(k int) []logfmt.Line {
	if k <= 0 {
		return nil
	}
	out := make([]logfmt.Line, k)
	capacity := len(b.entries)
	start := b.head + (b.count - k)
	for i := 0; i < k; i++ {
		out[i] = b.entries[(start+i)%capacity]
	}
	return out
}

// FirstSeq returns the absolute sequence number of the oldest stored line.
func (b *Buffer) FirstSeq() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.total - uint64(b.count)
}

// ClampPos keeps a scroll position valid across appends: positions that still
// reference a stored line are returned unchanged, positions whose line was
// evicted clamp to the oldest valid sequence, and positions past the end
// clamp to the newest.
func (b *Buffer) ClampPos(pos uint64) uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	first := b.total - uint64(b.count)
	if pos < first {
		return first
	}
	if b.total > 0 && pos >= b.total {
		return b.total - 1
	}
	return pos
}
