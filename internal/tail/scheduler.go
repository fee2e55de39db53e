package tail

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/igralabs/nodedeck/internal/ansi"
	"github.com/igralabs/nodedeck/internal/buffer"
	"github.com/igralabs/nodedeck/internal/logfmt"
	"github.com/igralabs/nodedeck/internal/metrics"
	"github.com/igralabs/nodedeck/internal/source"
)

// State describes where a tailer is in its lifecycle.
type State int32

const (
	// StateStopped means no goroutine is polling the source.
	StateStopped State = iota
	// StateStarting covers the first fetch after StartTail.
	StateStarting
	// StatePolling means the tailer is waiting for the next cycle or
	// fetching a window.
	StatePolling
	// StateDelivering covers parse, append and notify for a cycle's new
	// lines.
	StateDelivering
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StatePolling:
		return "polling"
	case StateDelivering:
		return "delivering"
	default:
		return "stopped"
	}
}

// tailer polls one source. It owns the overlap window, the metric snapshot
// and the staleness flag; the buffer is shared with the coordinator so views
// survive a stop/start cycle.
type tailer struct {
	id          string
	serviceType string
	src         source.Source
	parser      *logfmt.Parser
	table       *metrics.Table
	buf         *buffer.Buffer
	notify      func()
	log         *zap.Logger

	interval     time.Duration
	fetchLimit   int
	fetchTimeout time.Duration

	state  atomic.Int32
	cancel context.CancelFunc
	done   chan struct{}

	mu         sync.Mutex
	lastWindow []string
	snap       metrics.Snapshot
	stale      bool
}

func (t *tailer) setState(s State) { t.state.Store(int32(s)) }

func (t *tailer) State() State { return State(t.state.Load()) }

// start launches the poll goroutine. The first cycle runs immediately; a
// failed first fetch marks the source stale and stops the tailer.
func (t *tailer) start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	t.cancel = cancel
	t.done = make(chan struct{})
	t.setState(StateStarting)

	go func() {
		defer close(t.done)
		defer t.setState(StateStopped)

		if err := t.cycle(ctx, true); err != nil {
			t.markStale(true)
			t.log.Warn("initial fetch failed, tail stopped",
				zap.String("source", t.id),
				zap.Error(err))
			return
		}

		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := t.cycle(ctx, false); err != nil {
					if errors.Is(err, context.Canceled) {
						return
					}
					t.markStale(true)
					t.log.Debug("fetch cycle failed",
						zap.String("source", t.id),
						zap.Error(err))
				}
			}
		}
	}()
}

// stop cancels the poll goroutine without waiting for an in-flight fetch; a
// result that lands after cancellation is discarded by the ctx check in
// cycle.
func (t *tailer) stop() {
	if t.cancel != nil {
		t.cancel()
	}
}

// cycle performs one fetch, dedup, parse, append, notify pass. After the
// initial cycle, a source that cannot be reached yields no new lines and a
// stale marker rather than an error; on the initial cycle it fails the start.
func (t *tailer) cycle(ctx context.Context, initial bool) error {
	t.setState(StatePolling)

	fetchCtx, cancel := context.WithTimeout(ctx, t.fetchTimeout)
	window, err := t.src.FetchRecent(fetchCtx, t.id, t.fetchLimit)
	cancel()
	if err != nil {
		if !initial && (errors.Is(err, source.ErrSourceUnavailable) || errors.Is(err, context.DeadlineExceeded)) {
			t.markStale(true)
			return nil
		}
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	t.markStale(false)

	t.mu.Lock()
	fresh := dedup(t.lastWindow, window)
	t.lastWindow = window
	t.mu.Unlock()
	if len(fresh) == 0 {
		return nil
	}

	t.setState(StateDelivering)
	clean := make([]string, len(fresh))
	parsed := make([]logfmt.Line, len(fresh))
	for i, raw := range fresh {
		clean[i] = ansi.Strip(raw)
		parsed[i] = t.parser.Parse(t.id, clean[i])
	}
	t.buf.Append(parsed...)

	t.mu.Lock()
	t.snap = t.table.Extract(t.serviceType, clean, t.snap)
	t.mu.Unlock()

	t.notify()
	t.setState(StatePolling)
	return nil
}

func (t *tailer) markStale(stale bool) {
	t.mu.Lock()
	t.stale = stale
	t.snap.Stale = stale
	t.mu.Unlock()
}

// snapshot returns a copy of the current metric snapshot and staleness.
func (t *tailer) snapshot() (metrics.Snapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	snap := t.snap
	if t.snap.Fields != nil {
		snap.Fields = make(map[string]string, len(t.snap.Fields))
		for k, v := range t.snap.Fields {
			snap.Fields[k] = v
		}
	}
	return snap, t.stale
}
