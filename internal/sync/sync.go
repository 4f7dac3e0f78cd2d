// Package sync exports the full graph as JSONL, imports it back, and
// periodically pushes exports to remote destinations.
package sync

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alfredjeanlab/graphview/internal/store"
)

// Snapshot is one JSONL export handed to every destination.
type Snapshot struct {
	Data    []byte
	Nodes   int
	Links   int
	TakenAt time.Time
}

// digest identifies the graph content of a snapshot. The header line carries
// the export time and is left out, so equal graphs share a digest.
func (s Snapshot) digest() [sha256.Size]byte {
	body := s.Data
	if i := bytes.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	}
	return sha256.Sum256(body)
}

// Destination is a sync target (S3, git, ...).
type Destination interface {
	// Name identifies the destination in logs.
	Name() string
	// Write stores the snapshot, replacing the previous one.
	Write(ctx context.Context, snap Snapshot) error
}

// TakeSnapshot exports s into memory.
func TakeSnapshot(ctx context.Context, s store.Store) (Snapshot, error) {
	nodes, edges, err := readGraph(ctx, s)
	if err != nil {
		return Snapshot{}, fmt.Errorf("export graph: %w", err)
	}
	snap := Snapshot{Nodes: len(nodes), Links: len(edges), TakenAt: time.Now().UTC()}
	var buf bytes.Buffer
	if err := encodeJSONL(&buf, nodes, edges, snap.TakenAt); err != nil {
		return Snapshot{}, fmt.Errorf("export graph: %w", err)
	}
	snap.Data = buf.Bytes()
	return snap, nil
}

// Scheduler pushes exports to its destinations on a fixed interval. Ticks
// where the graph has not changed since the last fully successful push are
// skipped.
type Scheduler struct {
	store        store.Store
	destinations []Destination
	interval     time.Duration
	logger       *slog.Logger

	mu       sync.Mutex
	lastSent [sha256.Size]byte
	sentOnce bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler that exports from the store to the given
// destinations at the specified interval.
func NewScheduler(s store.Store, destinations []Destination, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		store:        s,
		destinations: destinations,
		interval:     interval,
		logger:       logger,
	}
}

// Start syncs once immediately and then on every tick until ctx is
// cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Stop cancels the scheduler and waits for an in-flight sync to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	s.syncIfChanged(ctx)
	if s.interval <= 0 {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.syncIfChanged(ctx)
		}
	}
}

// SyncNow exports once and writes to every destination, changed or not. It
// returns the first destination error; every destination is attempted.
func (s *Scheduler) SyncNow(ctx context.Context) error {
	snap, err := TakeSnapshot(ctx, s.store)
	if err != nil {
		return err
	}
	return s.push(ctx, snap)
}

func (s *Scheduler) syncIfChanged(ctx context.Context) {
	snap, err := TakeSnapshot(ctx, s.store)
	if err != nil {
		s.logger.Error("sync failed", "err", err)
		return
	}
	s.mu.Lock()
	unchanged := s.sentOnce && s.lastSent == snap.digest()
	s.mu.Unlock()
	if unchanged {
		s.logger.Debug("sync skipped, graph unchanged")
		return
	}
	if err := s.push(ctx, snap); err != nil {
		s.logger.Error("sync failed", "err", err)
	}
}

func (s *Scheduler) push(ctx context.Context, snap Snapshot) error {
	var first error
	for _, dest := range s.destinations {
		if err := dest.Write(ctx, snap); err != nil {
			s.logger.Error("sync destination write failed", "destination", dest.Name(), "err", err)
			if first == nil {
				first = fmt.Errorf("%s: %w", dest.Name(), err)
			}
		}
	}
	if first == nil {
		s.mu.Lock()
		s.lastSent, s.sentOnce = snap.digest(), true
		s.mu.Unlock()
	}

	s.logger.Info("sync completed",
		"destinations", len(s.destinations),
		"nodes", snap.Nodes,
		"links", snap.Links,
		"bytes", len(snap.Data),
	)
	return first
}
