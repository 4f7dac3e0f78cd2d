package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/graphview/internal/client"
)

var subgraphReq client.SubgraphRequest

var subgraphCmd = &cobra.Command{
	Use:     "subgraph <node-id>",
	Aliases: []string{"sg"},
	Short:   "Show the bounded neighborhood of a node",
	Long: `Show the nodes reachable from <node-id> by following outgoing links up to
--forward hops and incoming links up to --backward hops. At most
--edge-limit links are followed per node and direction.`,
	GroupID: "query",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := subgraphReq
		req.StartNodeID = args[0]
		resp, err := graphClient.Subgraph(cmd.Context(), &req)
		if err != nil {
			return fmt.Errorf("querying subgraph: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), resp)
		}
		printSubgraph(cmd.OutOrStdout(), req.StartNodeID, resp)
		return nil
	},
}

var nodesLimit int

var nodesCmd = &cobra.Command{
	Use:     "nodes [<term>]",
	Short:   "Search node ids",
	GroupID: "query",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		term := ""
		if len(args) == 1 {
			term = args[0]
		}
		ids, err := graphClient.SearchNodes(cmd.Context(), term, nodesLimit)
		if err != nil {
			return fmt.Errorf("searching nodes: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), ids)
		}
		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}

var nodeCmd = &cobra.Command{
	Use:     "node <node-id>",
	Short:   "Show a single node",
	GroupID: "query",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := graphClient.GetNode(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("getting node: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), n)
		}
		printNode(cmd.OutOrStdout(), n)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:     "stats",
	Short:   "Show counts for the loaded graph",
	GroupID: "query",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := graphClient.Stats(cmd.Context())
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), stats)
		}
		printStats(cmd.OutOrStdout(), stats)
		return nil
	},
}

var reloadCmd = &cobra.Command{
	Use:     "reload",
	Short:   "Make the server rebuild its graph from the database",
	GroupID: "data",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := graphClient.Reload(cmd.Context())
		if err != nil {
			return fmt.Errorf("reloading: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), stats)
		}
		printStats(cmd.OutOrStdout(), stats)
		return nil
	},
}

var healthCmd = &cobra.Command{
	Use:     "health",
	Short:   "Check the health of the graphview server",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := graphClient.Health(cmd.Context())
		if err != nil {
			return fmt.Errorf("checking health: %w", err)
		}
		if jsonOutput {
			if err := printJSON(cmd.OutOrStdout(), map[string]string{"status": status}); err != nil {
				return err
			}
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Health: %s\n", status)
		}
		if status != "ok" {
			return fmt.Errorf("unhealthy: %s", status)
		}
		return nil
	},
}

func init() {
	subgraphCmd.Flags().IntVarP(&subgraphReq.ForwardDepth, "forward", "f", 2, "hops to follow along outgoing links")
	subgraphCmd.Flags().IntVarP(&subgraphReq.BackwardDepth, "backward", "b", 2, "hops to follow along incoming links")
	subgraphCmd.Flags().IntVarP(&subgraphReq.EdgeLimit, "edge-limit", "l", 10, "links followed per node and direction")

	nodesCmd.Flags().IntVarP(&nodesLimit, "limit", "n", 0, "maximum ids returned (0 = server default)")
}
