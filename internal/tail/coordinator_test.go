package tail

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/igralabs/nodedeck/internal/logfmt"
	"github.com/igralabs/nodedeck/internal/metrics"
	"github.com/igralabs/nodedeck/internal/source"
)

// scriptedSource replays a fixed sequence of fetch windows; the last window
// repeats forever, which mimics a quiet service between new lines.
type scriptedSource struct {
	mu      sync.Mutex
	windows [][]string
	idx     int
	err     error
}

func (s *scriptedSource) FetchRecent(ctx context.Context, id string, maxLines int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if len(s.windows) == 0 {
		return nil, nil
	}
	w := s.windows[s.idx]
	if s.idx < len(s.windows)-1 {
		s.idx++
	}
	return append([]string(nil), w...), nil
}

func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func testRegistry() *source.Registry {
	return source.NewRegistry(map[string]string{
		"bridge": metrics.TypeViaduct,
		"kaspad": metrics.TypeKaspad,
	})
}

func testOptions() Options {
	return Options{Interval: 5 * time.Millisecond, FetchLimit: 50, FetchTimeout: time.Second}
}

func TestCoordinatorIngestsAndDedups(t *testing.T) {
	src := &scriptedSource{windows: [][]string{
		{"[10:00:00 INFO viaduct::bridge] one", "[10:00:01 INFO viaduct::bridge] two"},
		{"[10:00:01 INFO viaduct::bridge] two", "[10:00:02 INFO viaduct::bridge] three"},
	}}
	c := NewCoordinator(testRegistry(), src, metrics.DefaultTable(), testOptions(), nil)
	defer c.Close()

	if err := c.StartTail("bridge"); err != nil {
		t.Fatalf("StartTail: %v", err)
	}
	waitFor(t, 2*time.Second, "3 unique lines", func() bool {
		v, _ := c.View("bridge", ModeChronological, logfmt.Filters{})
		return v.Total == 3
	})

	// Let several more cycles replay the final window; full overlap means
	// nothing new is ingested or parsed.
	time.Sleep(50 * time.Millisecond)
	v, err := c.View("bridge", ModeChronological, logfmt.Filters{})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if v.Total != 3 {
		t.Fatalf("Total = %d, want 3 (overlap re-ingested)", v.Total)
	}
	if got := c.parser.Calls(); got != 3 {
		t.Fatalf("parser invocations = %d, want 3 (each line parsed once)", got)
	}
	if v.Lines[2].Message != "three" {
		t.Fatalf("last message = %q, want three", v.Lines[2].Message)
	}
}

func TestCoordinatorViewDoesNotReparse(t *testing.T) {
	src := &scriptedSource{windows: [][]string{
		{"[10:00:00 INFO viaduct::bridge] hello", "[10:00:01 WARN viaduct::bridge] careful"},
	}}
	c := NewCoordinator(testRegistry(), src, metrics.DefaultTable(), testOptions(), nil)
	defer c.Close()

	if err := c.StartTail("bridge"); err != nil {
		t.Fatalf("StartTail: %v", err)
	}
	waitFor(t, 2*time.Second, "ingest", func() bool {
		v, _ := c.View("bridge", ModeChronological, logfmt.Filters{})
		return v.Total == 2
	})

	before := c.parser.Calls()
	for _, f := range []logfmt.Filters{
		{},
		{Levels: []logfmt.Level{logfmt.LevelWarn}},
		{Substring: "hello"},
		{Module: "bridge"},
	} {
		if _, err := c.View("bridge", ModeGrouped, f); err != nil {
			t.Fatalf("View: %v", err)
		}
	}
	if got := c.parser.Calls(); got != before {
		t.Fatalf("parser invocations changed %d -> %d; views must not reparse", before, got)
	}
}

func TestCoordinatorViaductEndToEnd(t *testing.T) {
	src := &scriptedSource{windows: [][]string{
		{
			"[10:00:00 INFO viaduct::bridge] synced to height 100",
			"[10:00:01 INFO viaduct::bridge] synced to height 101",
		},
	}}
	c := NewCoordinator(testRegistry(), src, metrics.DefaultTable(), testOptions(), nil)
	defer c.Close()

	subID, updates := c.Subscribe()
	defer c.Unsubscribe(subID)

	if err := c.StartTail("bridge"); err != nil {
		t.Fatalf("StartTail: %v", err)
	}

	select {
	case <-updates:
	case <-time.After(2 * time.Second):
		t.Fatal("no update signal after ingest")
	}

	v, err := c.View("bridge", ModeGrouped, logfmt.Filters{})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if len(v.Groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(v.Groups))
	}
	g := v.Groups[0]
	if g.Level != logfmt.LevelInfo || g.Module != "bridge" {
		t.Fatalf("group = %v/%q, want INFO/bridge", g.Level, g.Module)
	}
	if len(g.Lines) != 2 {
		t.Fatalf("group lines = %d, want 2", len(g.Lines))
	}

	snap, err := c.Metrics("bridge")
	if err != nil {
		t.Fatalf("Metrics: %v", err)
	}
	if got := snap.Field("height"); got != "101" {
		t.Fatalf("height = %q, want 101", got)
	}
}

func TestCoordinatorUnknownSource(t *testing.T) {
	c := NewCoordinator(testRegistry(), &scriptedSource{}, metrics.DefaultTable(), testOptions(), nil)
	defer c.Close()

	if err := c.StartTail("ghost"); !errors.Is(err, source.ErrUnknownSource) {
		t.Fatalf("StartTail error = %v, want ErrUnknownSource", err)
	}
	if err := c.StopTail("ghost"); !errors.Is(err, source.ErrUnknownSource) {
		t.Fatalf("StopTail error = %v, want ErrUnknownSource", err)
	}
	if _, err := c.View("ghost", ModeChronological, logfmt.Filters{}); !errors.Is(err, source.ErrUnknownSource) {
		t.Fatalf("View error = %v, want ErrUnknownSource", err)
	}
	if _, err := c.Metrics("ghost"); !errors.Is(err, source.ErrUnknownSource) {
		t.Fatalf("Metrics error = %v, want ErrUnknownSource", err)
	}
}

func TestCoordinatorStartStopIdempotent(t *testing.T) {
	src := &scriptedSource{windows: [][]string{{"[10:00:00 INFO viaduct::bridge] hi"}}}
	c := NewCoordinator(testRegistry(), src, metrics.DefaultTable(), testOptions(), nil)
	defer c.Close()

	if err := c.StartTail("bridge"); err != nil {
		t.Fatalf("StartTail: %v", err)
	}
	if err := c.StartTail("bridge"); err != nil {
		t.Fatalf("second StartTail: %v", err)
	}
	waitFor(t, 2*time.Second, "ingest", func() bool {
		v, _ := c.View("bridge", ModeChronological, logfmt.Filters{})
		return v.Total >= 1
	})

	if err := c.StopTail("bridge"); err != nil {
		t.Fatalf("StopTail: %v", err)
	}
	if err := c.StopTail("bridge"); err != nil {
		t.Fatalf("second StopTail: %v", err)
	}

	// The buffer and last snapshot survive the stop.
	v, err := c.View("bridge", ModeChronological, logfmt.Filters{})
	if err != nil {
		t.Fatalf("View after stop: %v", err)
	}
	if v.Total != 1 || v.State != StateStopped {
		t.Fatalf("after stop: total=%d state=%v, want 1/stopped", v.Total, v.State)
	}
	if _, err := c.Metrics("bridge"); err != nil {
		t.Fatalf("Metrics after stop: %v", err)
	}
}

func TestCoordinatorInitialFetchFailsClosed(t *testing.T) {
	src := &scriptedSource{err: source.ErrSourceUnavailable}
	c := NewCoordinator(testRegistry(), src, metrics.DefaultTable(), testOptions(), nil)
	defer c.Close()

	if err := c.StartTail("kaspad"); err != nil {
		t.Fatalf("StartTail: %v", err)
	}
	waitFor(t, 2*time.Second, "tail to stop", func() bool {
		v, _ := c.View("kaspad", ModeChronological, logfmt.Filters{})
		return v.State == StateStopped && v.Stale
	})

	snap, err := c.Metrics("kaspad")
	if err != nil {
		t.Fatalf("Metrics: %v", err)
	}
	if !snap.Stale {
		t.Fatal("snapshot not marked stale after failed start")
	}
}

func TestCoordinatorMetricsSurviveRestart(t *testing.T) {
	src := &scriptedSource{windows: [][]string{
		{"[10:00:00 INFO viaduct::bridge] synced to height 100"},
	}}
	c := NewCoordinator(testRegistry(), src, metrics.DefaultTable(), testOptions(), nil)
	defer c.Close()

	if err := c.StartTail("bridge"); err != nil {
		t.Fatalf("StartTail: %v", err)
	}
	waitFor(t, 2*time.Second, "height extraction", func() bool {
		snap, _ := c.Metrics("bridge")
		return snap.Field("height") == "100"
	})

	if err := c.StopTail("bridge"); err != nil {
		t.Fatalf("StopTail: %v", err)
	}
	if err := c.StartTail("bridge"); err != nil {
		t.Fatalf("restart: %v", err)
	}

	// The restored snapshot must be visible before the new tailer's first
	// extraction pass lands.
	snap, err := c.Metrics("bridge")
	if err != nil {
		t.Fatalf("Metrics after restart: %v", err)
	}
	if got := snap.Field("height"); got != "100" {
		t.Fatalf("height after restart = %q, want 100", got)
	}
}

func TestCoordinatorClampPos(t *testing.T) {
	src := &scriptedSource{windows: [][]string{
		{"one", "two", "three"},
	}}
	opts := testOptions()
	opts.BufferCapacity = 2
	c := NewCoordinator(testRegistry(), src, metrics.DefaultTable(), opts, nil)
	defer c.Close()

	if err := c.StartTail("bridge"); err != nil {
		t.Fatalf("StartTail: %v", err)
	}
	waitFor(t, 2*time.Second, "ingest", func() bool {
		v, _ := c.View("bridge", ModeChronological, logfmt.Filters{})
		return v.Total == 3
	})

	// Capacity 2 with 3 appends: line 0 was evicted, valid range is [1, 2].
	if got := c.ClampPos("bridge", 0); got != 1 {
		t.Fatalf("ClampPos(0) = %d, want 1", got)
	}
	if got := c.ClampPos("bridge", 2); got != 2 {
		t.Fatalf("ClampPos(2) = %d, want 2", got)
	}
	if got := c.ClampPos("bridge", 99); got != 2 {
		t.Fatalf("ClampPos(99) = %d, want 2", got)
	}
	if got := c.ClampPos("ghost", 5); got != 0 {
		t.Fatalf("ClampPos on unknown source = %d, want 0", got)
	}
}

func TestCoordinatorSources(t *testing.T) {
	src := &scriptedSource{windows: [][]string{{"[10:00:00 INFO viaduct::bridge] hi"}}}
	c := NewCoordinator(testRegistry(), src, metrics.DefaultTable(), testOptions(), nil)
	defer c.Close()

	if err := c.StartTail("bridge"); err != nil {
		t.Fatalf("StartTail: %v", err)
	}
	waitFor(t, 2*time.Second, "ingest", func() bool {
		for _, s := range c.Sources() {
			if s.ID == "bridge" && s.Total >= 1 {
				return true
			}
		}
		return false
	})

	statuses := c.Sources()
	if len(statuses) != 2 {
		t.Fatalf("sources = %d, want 2", len(statuses))
	}
	if statuses[0].ID != "bridge" || statuses[1].ID != "kaspad" {
		t.Fatalf("order = %s,%s, want bridge,kaspad", statuses[0].ID, statuses[1].ID)
	}
	if statuses[1].State != StateStopped {
		t.Fatalf("kaspad state = %v, want stopped", statuses[1].State)
	}
}
