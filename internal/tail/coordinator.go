package tail

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/igralabs/nodedeck/internal/buffer"
	"github.com/igralabs/nodedeck/internal/logfmt"
	"github.com/igralabs/nodedeck/internal/metrics"
	"github.com/igralabs/nodedeck/internal/source"
)

// Defaults for coordinator options left zero.
const (
	DefaultInterval     = 500 * time.Millisecond
	DefaultFetchLimit   = 200
	DefaultFetchTimeout = 3 * time.Second
)

// metricsRefreshInterval paces the aggregate re-extraction pass over each
// buffer's recent window.
const metricsRefreshInterval = 5 * time.Second

// Options tune the per-source tailers.
type Options struct {
	// Interval is the poll period per source.
	Interval time.Duration
	// FetchLimit is the window size requested per fetch. It must exceed
	// the per-interval line volume or overlap dedup cannot align windows.
	FetchLimit int
	// FetchTimeout bounds a single fetch; an expired fetch counts as a
	// stale cycle, not a failure.
	FetchTimeout time.Duration
	// BufferCapacity is the rolling line cap per source.
	BufferCapacity int
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.FetchLimit <= 0 {
		o.FetchLimit = DefaultFetchLimit
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = DefaultFetchTimeout
	}
	if o.BufferCapacity <= 0 {
		o.BufferCapacity = buffer.DefaultCapacity
	}
	return o
}

// ViewMode selects how View arranges lines.
type ViewMode int

const (
	// ModeChronological returns lines in ingest order.
	ModeChronological ViewMode = iota
	// ModeGrouped collapses consecutive same-level, same-module lines.
	ModeGrouped
)

// View is a read-only rendering of one source's buffer.
type View struct {
	Source     string
	Mode       ViewMode
	Lines      []logfmt.Line
	Groups     []logfmt.Group
	Total      uint64
	FirstSeq   uint64
	LastUpdate time.Time
	Stale      bool
	State      State
}

// SourceStatus summarizes one registered source for listings.
type SourceStatus struct {
	ID          string
	ServiceType string
	State       State
	Stale       bool
	Lines       int
	Total       uint64
}

// Coordinator owns the buffers, tailers, metric snapshots and subscriber
// fanout for every registered source. All methods are safe for concurrent
// use.
type Coordinator struct {
	reg      *source.Registry
	src      source.Source
	parser   *logfmt.Parser
	table    *metrics.Table
	notifier *Notifier
	opts     Options
	log      *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	tails map[string]*tailer
	bufs  map[string]*buffer.Buffer
	snaps map[string]metrics.Snapshot
}

// NewCoordinator wires a coordinator over a registry and a source backend.
func NewCoordinator(reg *source.Registry, src source.Source, table *metrics.Table, opts Options, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		reg:      reg,
		src:      src,
		parser:   logfmt.NewParser(),
		table:    table,
		notifier: NewNotifier(),
		opts:     opts.withDefaults(),
		log:      log,
		ctx:      ctx,
		cancel:   cancel,
		tails:    make(map[string]*tailer),
		bufs:     make(map[string]*buffer.Buffer),
		snaps:    make(map[string]metrics.Snapshot),
	}
	go c.refreshMetricsLoop()
	return c
}

func (c *Coordinator) refreshMetricsLoop() {
	ticker := time.NewTicker(metricsRefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.refreshMetrics()
		}
	}
}

// refreshMetrics re-extracts every running source's snapshot from its
// buffer's recent window. The per-cycle extraction only sees net-new lines;
// this pass recovers fields whose matching lines arrived before the current
// tailer existed, such as after a stop/start.
func (c *Coordinator) refreshMetrics() {
	c.mu.Lock()
	tails := make(map[string]*tailer, len(c.tails))
	for id, t := range c.tails {
		tails[id] = t
	}
	bufs := make(map[string]*buffer.Buffer, len(c.bufs))
	for id, buf := range c.bufs {
		bufs[id] = buf
	}
	c.mu.Unlock()

	for id, t := range tails {
		buf := bufs[id]
		if buf == nil {
			continue
		}
		lines := buf.Last(c.opts.FetchLimit)
		if len(lines) == 0 {
			continue
		}
		raws := make([]string, len(lines))
		for i, l := range lines {
			raws[i] = l.Raw
		}
		t.mu.Lock()
		stale := t.stale
		t.snap = c.table.Extract(t.serviceType, raws, t.snap)
		t.snap.Stale = stale
		t.mu.Unlock()
	}
}

// StartTail begins polling a source. Starting an already-running source is a
// no-op; the only error is an id absent from the registry. The buffer
// persists across stop/start so earlier lines remain viewable.
func (c *Coordinator) StartTail(id string) error {
	serviceType, err := c.reg.ServiceType(id)
	if err != nil {
		return fmt.Errorf("start tail %s: %w", id, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if t, ok := c.tails[id]; ok && t.State() != StateStopped {
		return nil
	}

	buf, ok := c.bufs[id]
	if !ok {
		buf = buffer.New(c.opts.BufferCapacity)
		c.bufs[id] = buf
	}

	t := &tailer{
		id:           id,
		serviceType:  serviceType,
		src:          c.src,
		parser:       c.parser,
		table:        c.table,
		buf:          buf,
		notify:       c.notifier.Publish,
		log:          c.log,
		interval:     c.opts.Interval,
		fetchLimit:   c.opts.FetchLimit,
		fetchTimeout: c.opts.FetchTimeout,
	}
	if snap, ok := c.snaps[id]; ok {
		t.snap = snap
	}
	c.tails[id] = t
	t.start(c.ctx)
	c.log.Info("tail started", zap.String("source", id), zap.String("type", serviceType))
	return nil
}

// StopTail cancels a source's tailer. Stopping a stopped or unstarted source
// is a no-op; an unknown id is the only error. The call does not wait for an
// in-flight fetch, whose result is discarded.
func (c *Coordinator) StopTail(id string) error {
	if !c.reg.Known(id) {
		return fmt.Errorf("stop tail %s: %w", id, source.ErrUnknownSource)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.tails[id]
	if !ok {
		return nil
	}
	snap, _ := t.snapshot()
	c.snaps[id] = snap
	t.stop()
	delete(c.tails, id)
	c.log.Info("tail stopped", zap.String("source", id))
	return nil
}

// View renders a source's buffered lines with the given filters and mode.
// Filtering and grouping run over already-parsed lines; the parser is never
// invoked here.
func (c *Coordinator) View(id string, mode ViewMode, filters logfmt.Filters) (View, error) {
	if !c.reg.Known(id) {
		return View{}, fmt.Errorf("view %s: %w", id, source.ErrUnknownSource)
	}

	c.mu.Lock()
	buf := c.bufs[id]
	t := c.tails[id]
	c.mu.Unlock()

	v := View{Source: id, Mode: mode, State: StateStopped}
	if t != nil {
		v.State = t.State()
		_, v.Stale = t.snapshot()
	}
	if buf == nil {
		return v, nil
	}

	v.Lines = filters.Apply(buf.Lines())
	v.Total = buf.Total()
	v.FirstSeq = buf.FirstSeq()
	v.LastUpdate = buf.LastUpdate()
	if mode == ModeGrouped {
		v.Groups = logfmt.GroupLines(v.Lines)
	}
	return v, nil
}

// Metrics returns the current snapshot for a source. A stopped source keeps
// its last snapshot; a never-started source reports an empty one.
func (c *Coordinator) Metrics(id string) (metrics.Snapshot, error) {
	if !c.reg.Known(id) {
		return metrics.Snapshot{}, fmt.Errorf("metrics %s: %w", id, source.ErrUnknownSource)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if t, ok := c.tails[id]; ok {
		snap, _ := t.snapshot()
		return snap, nil
	}
	return c.snaps[id], nil
}

// MetricsAll returns snapshots for every registered source.
func (c *Coordinator) MetricsAll() map[string]metrics.Snapshot {
	out := make(map[string]metrics.Snapshot, len(c.reg.IDs()))
	for _, id := range c.reg.IDs() {
		snap, err := c.Metrics(id)
		if err != nil {
			continue
		}
		out[id] = snap
	}
	return out
}

// Sources lists every registered source with its tail state, sorted by id.
func (c *Coordinator) Sources() []SourceStatus {
	ids := c.reg.IDs()
	sort.Strings(ids)

	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]SourceStatus, 0, len(ids))
	for _, id := range ids {
		serviceType, _ := c.reg.ServiceType(id)
		st := SourceStatus{ID: id, ServiceType: serviceType, State: StateStopped}
		if t, ok := c.tails[id]; ok {
			st.State = t.State()
			_, st.Stale = t.snapshot()
		}
		if buf, ok := c.bufs[id]; ok {
			st.Lines = buf.Len()
			st.Total = buf.Total()
		}
		out = append(out, st)
	}
	return out
}

// Subscribe registers an update mailbox; the channel receives a coalesced
// signal whenever any tailer delivers new lines.
func (c *Coordinator) Subscribe() (string, <-chan struct{}) {
	return c.notifier.Subscribe()
}

// Unsubscribe drops a mailbox.
func (c *Coordinator) Unsubscribe(id string) {
	c.notifier.Unsubscribe(id)
}

// ClampPos clamps an absolute scroll position into a source's live window.
func (c *Coordinator) ClampPos(id string, pos uint64) uint64 {
	c.mu.Lock()
	buf := c.bufs[id]
	c.mu.Unlock()
	if buf == nil {
		return 0
	}
	return buf.ClampPos(pos)
}

// Close stops every tailer and waits for their goroutines to exit.
func (c *Coordinator) Close() {
	c.cancel()

	c.mu.Lock()
	tails := make([]*tailer, 0, len(c.tails))
	for id, t := range c.tails {
		snap, _ := t.snapshot()
		c.snaps[id] = snap
		tails = append(tails, t)
	}
	c.tails = make(map[string]*tailer)
	c.mu.Unlock()

	for _, t := range tails {
		<-t.done
	}
}
