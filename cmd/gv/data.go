package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/graphview/internal/seed"
	"github.com/alfredjeanlab/graphview/internal/store"
	gvsync "github.com/alfredjeanlab/graphview/internal/sync"
)

var (
	seedFlags   localFlags
	importFlags localFlags
	exportFlags localFlags

	seedOpts     = seed.DefaultOptions()
	seedTruncate bool
)

var seedCmd = &cobra.Command{
	Use:               "seed",
	Short:             "Fill the database with a random sample graph",
	GroupID:           "data",
	Args:              cobra.NoArgs,
	PersistentPreRunE: noClient,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := seedFlags.resolve()
		if err != nil {
			return err
		}
		logger := newLogger(cfg.LogLevel)

		st, _, err := openStore(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer st.Close()

		res, err := seed.Populate(cmd.Context(), st, seedOpts, seedTruncate)
		if err != nil {
			return err
		}
		announceChange(cfg.NATSURL, "seed", res.Nodes, res.Edges, logger)

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), res)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d nodes and %d links\n", res.Nodes, res.Edges)
		return nil
	},
}

var (
	importTruncate bool
	importFromS3   bool
)

var importCmd = &cobra.Command{
	Use:   "import [<file>]",
	Short: "Load a JSONL graph export into the database",
	Long: `Load a JSONL graph export into the database.

Reads from <file>, from stdin when <file> is "-" or omitted, or from the
configured S3 sync object with --from-s3. The import runs in a single
transaction: an invalid record leaves the database unchanged.`,
	GroupID:           "data",
	Args:              cobra.MaximumNArgs(1),
	PersistentPreRunE: noClient,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := importFlags.resolve()
		if err != nil {
			return err
		}
		logger := newLogger(cfg.LogLevel)
		ctx := cmd.Context()

		var r io.ReadCloser
		switch {
		case importFromS3:
			if len(args) > 0 {
				return fmt.Errorf("--from-s3 does not take a file argument")
			}
			if cfg.SyncS3Bucket == "" {
				return fmt.Errorf("--from-s3 requires GRAPHVIEW_SYNC_S3_BUCKET")
			}
			dest, err := gvsync.NewS3Destination(ctx, cfg.SyncS3Bucket, cfg.SyncS3Key, cfg.SyncS3Region, cfg.SyncS3Endpoint)
			if err != nil {
				return err
			}
			if r, err = dest.Read(ctx); err != nil {
				return err
			}
		case len(args) == 0 || args[0] == "-":
			r = io.NopCloser(cmd.InOrStdin())
		default:
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			r = f
		}
		defer r.Close()

		st, _, err := openStore(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer st.Close()

		res, err := gvsync.ImportJSONL(ctx, st, r, importTruncate)
		if err != nil {
			return err
		}
		announceChange(cfg.NATSURL, "import", res.Nodes, res.Links, logger)

		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), res)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d nodes and %d links\n", res.Nodes, res.Links)
		return nil
	},
}

var exportSync bool

var exportCmd = &cobra.Command{
	Use:   "export [<file>]",
	Short: "Write the stored graph as JSONL",
	Long: `Write the stored graph as JSONL to <file>, or to stdout when <file> is
"-" or omitted. With --sync the export is pushed once to every configured
sync destination (S3, git) instead.`,
	GroupID:           "data",
	Args:              cobra.MaximumNArgs(1),
	PersistentPreRunE: noClient,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := exportFlags.resolve()
		if err != nil {
			return err
		}
		logger := newLogger(cfg.LogLevel)
		ctx := cmd.Context()

		st, _, err := openStore(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer st.Close()

		if exportSync {
			dests := syncDestinations(ctx, cfg, logger)
			if len(dests) == 0 {
				return fmt.Errorf("no sync destinations configured (set GRAPHVIEW_SYNC_S3_BUCKET or GRAPHVIEW_SYNC_GIT_REPO)")
			}
			return gvsync.NewScheduler(st, dests, cfg.SyncInterval, logger).SyncNow(ctx)
		}

		if len(args) == 0 || args[0] == "-" {
			return exportTo(ctx, st, cmd.OutOrStdout())
		}
		f, err := os.Create(args[0])
		if err != nil {
			return err
		}
		if err := exportTo(ctx, st, f); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	},
}

func exportTo(ctx context.Context, st store.Store, w io.Writer) error {
	bw := bufio.NewWriter(w)
	if err := gvsync.ExportJSONL(ctx, st, bw); err != nil {
		return err
	}
	return bw.Flush()
}

func init() {
	seedFlags.register(seedCmd)
	seedCmd.Flags().IntVar(&seedOpts.Nodes, "nodes", seedOpts.Nodes, "number of nodes to generate")
	seedCmd.Flags().IntVar(&seedOpts.MaxLinks, "max-links", seedOpts.MaxLinks, "maximum outgoing link attempts per node")
	seedCmd.Flags().Uint64Var(&seedOpts.Seed, "seed", seedOpts.Seed, "random seed; equal seeds produce equal graphs")
	seedCmd.Flags().BoolVar(&seedTruncate, "truncate", false, "remove the existing graph first")

	importFlags.register(importCmd)
	importCmd.Flags().BoolVar(&importTruncate, "truncate", false, "remove the existing graph first")
	importCmd.Flags().BoolVar(&importFromS3, "from-s3", false, "read the configured S3 sync object")

	exportFlags.register(exportCmd)
	exportCmd.Flags().BoolVar(&exportSync, "sync", false, "push to the configured sync destinations")
}
