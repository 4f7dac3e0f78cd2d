package sync

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alfredjeanlab/graphview/internal/model"
	"github.com/alfredjeanlab/graphview/internal/store/memory"
)

// mockDestination records calls to Write.
type mockDestination struct {
	name   string
	writes atomic.Int64
	last   atomic.Value // Snapshot
	err    error
}

func (d *mockDestination) Name() string {
	if d.name == "" {
		return "mock"
	}
	return d.name
}

func (d *mockDestination) Write(_ context.Context, snap Snapshot) error {
	d.writes.Add(1)
	cp := snap
	cp.Data = append([]byte(nil), snap.Data...)
	d.last.Store(cp)
	return d.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func TestTakeSnapshot(t *testing.T) {
	snap, err := TakeSnapshot(context.Background(), sampleStore(t))
	if err != nil {
		t.Fatalf("TakeSnapshot: %v", err)
	}
	if snap.Nodes != 2 || snap.Links != 2 {
		t.Fatalf("unexpected counts: %d nodes, %d links", snap.Nodes, snap.Links)
	}
	// 1 header + 2 nodes + 2 links
	if lines := nonEmptyLines(string(snap.Data)); len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d", len(lines))
	}
	if snap.TakenAt.IsZero() {
		t.Error("TakenAt should be set")
	}
}

func TestSnapshotDigest_IgnoresHeader(t *testing.T) {
	ctx := context.Background()
	s := sampleStore(t)
	a, _ := TakeSnapshot(ctx, s)
	time.Sleep(2 * time.Millisecond)
	b, _ := TakeSnapshot(ctx, s)
	if a.digest() != b.digest() {
		t.Fatal("snapshots of the same graph should share a digest")
	}

	if err := s.AddEdge(ctx, &model.Edge{Source: "node_1", Target: "node_2", Kind: model.EdgeContains}); err != nil {
		t.Fatal(err)
	}
	c, _ := TakeSnapshot(ctx, s)
	if a.digest() == c.digest() {
		t.Fatal("a changed graph should change the digest")
	}
}

func TestSchedulerStartStop(t *testing.T) {
	dest := &mockDestination{}
	sched := NewScheduler(sampleStore(t), []Destination{dest}, 20*time.Millisecond, testLogger())
	sched.Start(context.Background())

	time.Sleep(100 * time.Millisecond)
	sched.Stop()

	// The graph never changes, so only the initial sync writes.
	if writes := dest.writes.Load(); writes != 1 {
		t.Fatalf("expected exactly 1 write, got %d", writes)
	}
	snap, ok := dest.last.Load().(Snapshot)
	if !ok || snap.Nodes != 2 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestSchedulerPushesChanges(t *testing.T) {
	ctx := context.Background()
	s := sampleStore(t)
	dest := &mockDestination{}
	sched := NewScheduler(s, []Destination{dest}, 20*time.Millisecond, testLogger())
	sched.Start(ctx)
	defer sched.Stop()

	time.Sleep(50 * time.Millisecond)
	if err := s.UpsertNode(ctx, &model.Node{ID: "node_3", Kind: model.NodeData}); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for dest.writes.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("change was never pushed")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if snap := dest.last.Load().(Snapshot); snap.Nodes != 3 {
		t.Fatalf("expected 3 nodes in the pushed snapshot, got %d", snap.Nodes)
	}
}

func TestSchedulerStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sched := NewScheduler(memory.New(), []Destination{&mockDestination{}}, time.Hour, testLogger())
	sched.Start(ctx)
	cancel()

	done := make(chan struct{})
	go func() {
		sched.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after context cancel")
	}
}

func TestSchedulerStop_NoStart(t *testing.T) {
	sched := NewScheduler(memory.New(), nil, time.Minute, testLogger())
	// Stop without Start should not panic.
	sched.Stop()
}

func TestSchedulerRetriesAfterFailure(t *testing.T) {
	dest := &mockDestination{err: errors.New("bucket gone")}
	sched := NewScheduler(sampleStore(t), []Destination{dest}, time.Minute, testLogger())

	ctx := context.Background()
	sched.syncIfChanged(ctx)
	sched.syncIfChanged(ctx)
	if got := dest.writes.Load(); got != 2 {
		t.Fatalf("a failed push must not mark the graph as sent; writes = %d", got)
	}
}

func TestSyncNow_ReportsFirstError(t *testing.T) {
	failing := &mockDestination{name: "s3://bucket/key", err: errors.New("bucket gone")}
	ok := &mockDestination{}

	sched := NewScheduler(sampleStore(t), []Destination{failing, ok}, time.Minute, testLogger())
	err := sched.SyncNow(context.Background())
	if err == nil || !errors.Is(err, failing.err) || !strings.Contains(err.Error(), "s3://bucket/key") {
		t.Fatalf("expected wrapped bucket gone error, got %v", err)
	}
	if ok.writes.Load() != 1 {
		t.Error("second destination should still be written")
	}
}

func TestSyncNow_AlwaysWrites(t *testing.T) {
	dest := &mockDestination{}
	sched := NewScheduler(sampleStore(t), []Destination{dest}, time.Minute, testLogger())
	for range 2 {
		if err := sched.SyncNow(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if dest.writes.Load() != 2 {
		t.Fatalf("SyncNow should write even when unchanged; writes = %d", dest.writes.Load())
	}
}
