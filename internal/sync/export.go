package sync

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/alfredjeanlab/graphview/internal/model"
	"github.com/alfredjeanlab/graphview/internal/store"
)

// formatVersion is written in the header and checked on import.
const formatVersion = "1"

// maxLineSize bounds a single JSONL record on import.
const maxLineSize = 1 << 20

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version   string    `json:"version"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	NodeCount int       `json:"node_count"`
	LinkCount int       `json:"link_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// rawRecord is record as read back, with the payload left undecoded.
type rawRecord struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ExportJSONL writes the full graph as JSONL to w: a header, every node in
// storage order, then every edge in storage order. Re-importing the output
// reproduces the same storage order and therefore the same traversals.
func ExportJSONL(ctx context.Context, s store.Store, w io.Writer) error {
	nodes, edges, err := readGraph(ctx, s)
	if err != nil {
		return err
	}
	return encodeJSONL(w, nodes, edges, time.Now().UTC())
}

// readGraph lists nodes and edges from one consistent view of s.
func readGraph(ctx context.Context, s store.Store) (nodes []*model.Node, edges []*model.Edge, err error) {
	err = s.RunInTransaction(ctx, func(tx store.Store) error {
		var err error
		if nodes, err = tx.ListNodes(ctx); err != nil {
			return fmt.Errorf("list nodes: %w", err)
		}
		if edges, err = tx.ListEdges(ctx); err != nil {
			return fmt.Errorf("list edges: %w", err)
		}
		return nil
	})
	return nodes, edges, err
}

func encodeJSONL(w io.Writer, nodes []*model.Node, edges []*model.Edge, at time.Time) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:   formatVersion,
		Type:      "header",
		Timestamp: at,
		NodeCount: len(nodes),
		LinkCount: len(edges),
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	for _, n := range nodes {
		if err := enc.Encode(record{Type: "node", Data: n}); err != nil {
			return fmt.Errorf("encode node %s: %w", n.ID, err)
		}
	}
	for _, e := range edges {
		if err := enc.Encode(record{Type: "link", Data: e}); err != nil {
			return fmt.Errorf("encode link %s->%s: %w", e.Source, e.Target, err)
		}
	}
	return nil
}

// ImportResult counts the records applied by ImportJSONL.
type ImportResult struct {
	Nodes int `json:"nodes"`
	Links int `json:"links"`
}

// ImportJSONL reads records produced by ExportJSONL and writes them to s in a
// single transaction. When truncate is set the existing graph is removed
// first. Nodes and links are validated; any invalid record aborts the import
// without changing the store.
func ImportJSONL(ctx context.Context, s store.Store, r io.Reader, truncate bool) (*ImportResult, error) {
	res := &ImportResult{}
	err := s.RunInTransaction(ctx, func(tx store.Store) error {
		if truncate {
			if err := tx.Truncate(ctx); err != nil {
				return err
			}
		}

		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 64*1024), maxLineSize)
		line := 0
		for sc.Scan() {
			line++
			if len(sc.Bytes()) == 0 {
				continue
			}
			if err := applyRecord(ctx, tx, sc.Bytes(), res); err != nil {
				return fmt.Errorf("line %d: %w", line, err)
			}
		}
		if err := sc.Err(); err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("import graph: %w", err)
	}
	return res, nil
}

func applyRecord(ctx context.Context, tx store.Store, line []byte, res *ImportResult) error {
	var rec rawRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}

	switch rec.Type {
	case "header":
		var h header
		if err := json.Unmarshal(line, &h); err != nil {
			return fmt.Errorf("decode header: %w", err)
		}
		if h.Version != formatVersion {
			return fmt.Errorf("unsupported export version %q", h.Version)
		}
		return nil

	case "node":
		var n model.Node
		if err := json.Unmarshal(rec.Data, &n); err != nil {
			return fmt.Errorf("decode node: %w", err)
		}
		if err := model.ValidateNode(&n); err != nil {
			return err
		}
		if err := tx.UpsertNode(ctx, &n); err != nil {
			return fmt.Errorf("upsert node %s: %w", n.ID, err)
		}
		res.Nodes++
		return nil

	case "link":
		var e model.Edge
		if err := json.Unmarshal(rec.Data, &e); err != nil {
			return fmt.Errorf("decode link: %w", err)
		}
		if err := model.ValidateEdge(&e); err != nil {
			return err
		}
		if err := tx.AddEdge(ctx, &e); err != nil {
			return fmt.Errorf("add link %s->%s: %w", e.Source, e.Target, err)
		}
		res.Links++
		return nil

	case "":
		return errors.New("record has no type")

	default:
		return fmt.Errorf("unknown record type %q", rec.Type)
	}
}
