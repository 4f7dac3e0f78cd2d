package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"text/tabwriter"

	"github.com/alfredjeanlab/graphview/internal/model"
	"github.com/alfredjeanlab/graphview/internal/ui"
)

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func renderError(err error) string {
	if !ui.ColorEnabled(os.Stderr) {
		return "Error: " + err.Error()
	}
	return ui.RenderError("Error: ") + err.Error()
}

func printNode(w io.Writer, n *model.Node) {
	fmt.Fprintf(w, "ID:          %s\n", n.ID)
	fmt.Fprintf(w, "Type:        %s\n", n.Kind)
	if n.Label != "" {
		fmt.Fprintf(w, "Label:       %s\n", n.Label)
	}
	if n.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", n.Description)
	}
}

// printSubgraph lists nodes in discovery order, then links, then a summary.
func printSubgraph(w io.Writer, start string, resp *model.SubgraphResponse) {
	color := ui.ShouldUseColor()
	kind := func(k model.NodeKind) string {
		if color {
			return ui.RenderKind(string(k))
		}
		return string(k)
	}
	muted := func(s string) string {
		if color {
			return ui.RenderMuted(s)
		}
		return s
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NODE\tTYPE\tDESCRIPTION")
	for _, n := range resp.Nodes {
		id := n.ID
		if id == start {
			id += " *"
		}
		desc := n.Description
		if len(desc) > 60 {
			desc = desc[:57] + "..."
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", id, kind(n.Kind), desc)
	}
	tw.Flush()

	if len(resp.Links) > 0 {
		fmt.Fprintln(w)
		for _, e := range resp.Links {
			fmt.Fprintf(w, "%s %s %s\n", e.Source, muted("--("+string(e.Kind)+")-->"), e.Target)
		}
	}
	fmt.Fprintf(w, "\n%d nodes, %d links\n", len(resp.Nodes), len(resp.Links))
}

func printStats(w io.Writer, s *model.GraphStats) {
	fmt.Fprintf(w, "Nodes: %d\n", s.NodeCount)
	for _, k := range sortedKeys(s.NodeKinds) {
		fmt.Fprintf(w, "  %-10s %d\n", k, s.NodeKinds[k])
	}
	fmt.Fprintf(w, "Links: %d\n", s.LinkCount)
	for _, k := range sortedKeys(s.LinkKinds) {
		fmt.Fprintf(w, "  %-10s %d\n", k, s.LinkKinds[k])
	}
	if s.DroppedLinks > 0 {
		fmt.Fprintf(w, "Dropped links: %d (endpoint not found)\n", s.DroppedLinks)
	}
	if !s.LoadedAt.IsZero() {
		fmt.Fprintf(w, "Loaded at: %s\n", s.LoadedAt.Format("2006-01-02 15:04:05"))
	}
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
