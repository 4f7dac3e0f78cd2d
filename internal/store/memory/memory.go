// Package memory implements store.Store in process memory. It backs
// "memory://" database URLs and is shared by tests that need a real store.
package memory

import (
	"context"
	"database/sql"
	"slices"
	"strings"
	"sync"

	"github.com/alfredjeanlab/graphview/internal/model"
	"github.com/alfredjeanlab/graphview/internal/store"
)

// state is the graph data guarded by MemoryStore.mu.
type state struct {
	nodes []*model.Node
	index map[string]int
	edges []*model.Edge
}

func newState() *state {
	return &state{index: make(map[string]int)}
}

func (st *state) clone() *state {
	c := &state{
		nodes: make([]*model.Node, len(st.nodes)),
		index: make(map[string]int, len(st.index)),
		edges: make([]*model.Edge, len(st.edges)),
	}
	for i, n := range st.nodes {
		cp := *n
		c.nodes[i] = &cp
	}
	for id, i := range st.index {
		c.index[id] = i
	}
	for i, e := range st.edges {
		cp := *e
		c.edges[i] = &cp
	}
	return c
}

// MemoryStore implements store.Store with slices kept in insertion order.
type MemoryStore struct {
	// txMu serializes transactions against writes; mu guards st.
	txMu  sync.Mutex
	mu    sync.RWMutex
	st    *state
	dirty bool // set by any write
}

var _ store.Store = (*MemoryStore)(nil)

// New returns an empty store.
func New() *MemoryStore {
	return &MemoryStore{st: newState()}
}

// lockWrite takes both locks in transaction order.
func (s *MemoryStore) lockWrite() func() {
	s.txMu.Lock()
	s.mu.Lock()
	s.dirty = true
	return func() {
		s.mu.Unlock()
		s.txMu.Unlock()
	}
}

func (s *MemoryStore) UpsertNode(_ context.Context, node *model.Node) error {
	defer s.lockWrite()()
	s.st.upsertNode(node)
	return nil
}

func (s *MemoryStore) GetNode(_ context.Context, id string) (*model.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.getNode(id)
}

func (s *MemoryStore) ListNodes(_ context.Context) ([]*model.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.listNodes(), nil
}

func (s *MemoryStore) SearchNodeIDs(_ context.Context, term string, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.searchNodeIDs(term, limit), nil
}

func (s *MemoryStore) CountNodes(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.st.nodes), nil
}

func (s *MemoryStore) AddEdge(_ context.Context, edge *model.Edge) error {
	defer s.lockWrite()()
	cp := *edge
	s.st.edges = append(s.st.edges, &cp)
	return nil
}

func (s *MemoryStore) ListEdges(_ context.Context) ([]*model.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.listEdges(), nil
}

func (s *MemoryStore) CountEdges(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.st.edges), nil
}

func (s *MemoryStore) Truncate(_ context.Context) error {
	defer s.lockWrite()()
	s.st = newState()
	return nil
}

// RunInTransaction runs fn against a private copy of the data and publishes
// the copy only if fn succeeds and wrote something. Writes on s wait until
// the transaction ends, so they are never overwritten by the copy.
func (s *MemoryStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	work := &MemoryStore{st: s.st.clone()}
	s.mu.RUnlock()

	if err := fn(&txStore{MemoryStore: work}); err != nil {
		return err
	}
	if !work.dirty {
		return nil
	}

	s.mu.Lock()
	s.st = work.st
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// txStore is a MemoryStore whose nested transactions reuse the outer one.
type txStore struct {
	*MemoryStore
}

func (s *txStore) RunInTransaction(_ context.Context, fn func(tx store.Store) error) error {
	return fn(s)
}

func (st *state) upsertNode(node *model.Node) {
	cp := *node
	if i, ok := st.index[node.ID]; ok {
		st.nodes[i] = &cp
		return
	}
	st.index[node.ID] = len(st.nodes)
	st.nodes = append(st.nodes, &cp)
}

func (st *state) getNode(id string) (*model.Node, error) {
	i, ok := st.index[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *st.nodes[i]
	return &cp, nil
}

func (st *state) listNodes() []*model.Node {
	out := make([]*model.Node, len(st.nodes))
	for i, n := range st.nodes {
		cp := *n
		out[i] = &cp
	}
	return out
}

func (st *state) listEdges() []*model.Edge {
	out := make([]*model.Edge, len(st.edges))
	for i, e := range st.edges {
		cp := *e
		out[i] = &cp
	}
	return out
}

// searchNodeIDs matches term case-insensitively. Ids starting with term come
// first, then ids containing it elsewhere; each group is ordered by lower-cased
// id, then id.
func (st *state) searchNodeIDs(term string, limit int) []string {
	if limit <= 0 {
		limit = model.DefaultSearchLimit
	}
	term = strings.ToLower(term)

	type match struct {
		lower, id string
		prefix    bool
	}
	var matches []match
	for _, n := range st.nodes {
		lower := strings.ToLower(n.ID)
		if strings.Contains(lower, term) {
			matches = append(matches, match{lower, n.ID, strings.HasPrefix(lower, term)})
		}
	}
	slices.SortFunc(matches, func(a, b match) int {
		if a.prefix != b.prefix {
			if a.prefix {
				return -1
			}
			return 1
		}
		if c := strings.Compare(a.lower, b.lower); c != 0 {
			return c
		}
		return strings.Compare(a.id, b.id)
	})

	ids := make([]string, 0, min(limit, len(matches)))
	for _, m := range matches[:min(limit, len(matches))] {
		ids = append(ids, m.id)
	}
	return ids
}
