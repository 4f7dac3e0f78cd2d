package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/alfredjeanlab/graphview/internal/model"
	"github.com/alfredjeanlab/graphview/internal/store"
)

func TestUpsertNode_KeepsPosition(t *testing.T) {
	s := New()
	ctx := context.Background()

	_ = s.UpsertNode(ctx, &model.Node{ID: "a", Kind: model.NodeRule})
	_ = s.UpsertNode(ctx, &model.Node{ID: "b", Kind: model.NodeData})
	_ = s.UpsertNode(ctx, &model.Node{ID: "a", Kind: model.NodeData, Description: "new"})

	nodes, _ := s.ListNodes(ctx)
	if len(nodes) != 2 || nodes[0].ID != "a" || nodes[1].ID != "b" {
		t.Fatalf("unexpected nodes %v", nodes)
	}
	if nodes[0].Description != "new" || nodes[0].Kind != model.NodeData {
		t.Errorf("node a not replaced: %+v", nodes[0])
	}
}

func TestGetNode_ReturnsCopy(t *testing.T) {
	s := New()
	ctx := context.Background()
	_ = s.UpsertNode(ctx, &model.Node{ID: "a", Kind: model.NodeRule})

	n, err := s.GetNode(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	n.Kind = "mutated"
	again, _ := s.GetNode(ctx, "a")
	if again.Kind != model.NodeRule {
		t.Error("GetNode leaked internal state")
	}

	if _, err := s.GetNode(ctx, "missing"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestSearchNodeIDs(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, id := range []string{"node_10", "Node_1", "x"} {
		_ = s.UpsertNode(ctx, &model.Node{ID: id, Kind: model.NodeData})
	}

	ids, _ := s.SearchNodeIDs(ctx, "NODE_1", 10)
	if len(ids) != 2 || ids[0] != "Node_1" || ids[1] != "node_10" {
		t.Errorf("got %v", ids)
	}
	ids, _ = s.SearchNodeIDs(ctx, "node", 1)
	if len(ids) != 1 {
		t.Errorf("limit ignored: %v", ids)
	}
	ids, _ = s.SearchNodeIDs(ctx, "zzz", 10)
	if ids == nil || len(ids) != 0 {
		t.Errorf("expected empty slice, got %#v", ids)
	}
}

func TestSearchNodeIDs_PrefixMatchesFirst(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, id := range []string{"xa", "b_a", "ab", "A", "ca", "aa"} {
		_ = s.UpsertNode(ctx, &model.Node{ID: id, Kind: model.NodeData})
	}

	ids, _ := s.SearchNodeIDs(ctx, "a", 0)
	want := []string{"A", "aa", "ab", "b_a", "ca", "xa"}
	if !slices.Equal(ids, want) {
		t.Errorf("got %v, want %v", ids, want)
	}
	ids, _ = s.SearchNodeIDs(ctx, "a", 4)
	if !slices.Equal(ids, want[:4]) {
		t.Errorf("limit 4: got %v", ids)
	}
}

func TestSearchNodeIDs_DefaultLimit(t *testing.T) {
	s := New()
	ctx := context.Background()
	for i := range model.DefaultSearchLimit + 5 {
		_ = s.UpsertNode(ctx, &model.Node{ID: fmt.Sprintf("n%02d", i), Kind: model.NodeData})
	}
	ids, _ := s.SearchNodeIDs(ctx, "", 0)
	if len(ids) != model.DefaultSearchLimit {
		t.Errorf("got %d ids, want %d", len(ids), model.DefaultSearchLimit)
	}
}

func TestRunInTransaction_RollbackDiscardsWrites(t *testing.T) {
	s := New()
	ctx := context.Background()
	_ = s.UpsertNode(ctx, &model.Node{ID: "keep", Kind: model.NodeRule})

	boom := errors.New("boom")
	err := s.RunInTransaction(ctx, func(tx store.Store) error {
		if err := tx.Truncate(ctx); err != nil {
			return err
		}
		_ = tx.AddEdge(ctx, &model.Edge{Source: "x", Target: "y", Kind: model.EdgeOutput})
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if n, _ := s.CountNodes(ctx); n != 1 {
		t.Errorf("nodes = %d, want 1", n)
	}
	if n, _ := s.CountEdges(ctx); n != 0 {
		t.Errorf("edges = %d, want 0", n)
	}
}

func TestRunInTransaction_Commit(t *testing.T) {
	s := New()
	ctx := context.Background()

	err := s.RunInTransaction(ctx, func(tx store.Store) error {
		_ = tx.UpsertNode(ctx, &model.Node{ID: "a", Kind: model.NodeRule})
		return tx.RunInTransaction(ctx, func(inner store.Store) error {
			return inner.AddEdge(ctx, &model.Edge{Source: "a", Target: "a", Kind: model.EdgeOutput})
		})
	})
	if err != nil {
		t.Fatal(err)
	}
	edges, _ := s.ListEdges(ctx)
	if len(edges) != 1 || edges[0].Source != "a" {
		t.Errorf("got %v", edges)
	}
}

func TestRunInTransaction_ConcurrentWriteSurvivesReadOnlyTransaction(t *testing.T) {
	s := New()
	ctx := context.Background()
	_ = s.UpsertNode(ctx, &model.Node{ID: "a", Kind: model.NodeRule})

	read := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- s.RunInTransaction(ctx, func(tx store.Store) error {
			if _, err := tx.ListNodes(ctx); err != nil {
				return err
			}
			close(read)
			<-release
			return nil
		})
	}()

	<-read
	written := make(chan error, 1)
	go func() {
		written <- s.UpsertNode(ctx, &model.Node{ID: "b", Kind: model.NodeData})
	}()
	close(release)

	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if err := <-written; err != nil {
		t.Fatal(err)
	}
	if n, _ := s.CountNodes(ctx); n != 2 {
		t.Fatalf("nodes = %d, want 2", n)
	}
}

func TestRunInTransaction_ReadOnlyKeepsState(t *testing.T) {
	s := New()
	ctx := context.Background()
	_ = s.UpsertNode(ctx, &model.Node{ID: "a", Kind: model.NodeRule})
	before := s.st

	err := s.RunInTransaction(ctx, func(tx store.Store) error {
		_, err := tx.ListEdges(ctx)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if s.st != before {
		t.Error("read-only transaction replaced the store state")
	}
}
