package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var remoteCmd = &cobra.Command{
	Use:               "remote",
	Short:             "Manage named server remotes",
	GroupID:           "system",
	PersistentPreRunE: noClient,
}

var remoteAddCmd = &cobra.Command{
	Use:   "add <name> <http-url>",
	Short: "Add or update a named remote",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		r := Remote{URL: args[1]}
		r.GRPCAddr, _ = cmd.Flags().GetString("grpc")
		r.Token, _ = cmd.Flags().GetString("token")
		r.NATSURL, _ = cmd.Flags().GetString("nats")

		err := updateRemotes(func(cfg *RemotesConfig) error {
			cfg.Remotes[args[0]] = r
			return nil
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "remote %q -> %s\n", args[0], r.URL)
		return nil
	},
}

var remoteRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Remove a named remote",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := updateRemotes(func(cfg *RemotesConfig) error { return cfg.remove(args[0]) }); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "remote %q removed\n", args[0])
		return nil
	},
}

var remoteUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Make a remote the default for query commands",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := updateRemotes(func(cfg *RemotesConfig) error { return cfg.use(args[0]) }); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "using remote %q\n", args[0])
		return nil
	},
}

var remoteListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List remotes; the active one is starred",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadRemotesConfig()
		if err != nil {
			return err
		}
		names := cfg.names()
		if len(names) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no remotes configured")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "  NAME\tHTTP\tGRPC\tNATS\tTOKEN")
		for _, name := range names {
			r := cfg.Remotes[name]
			mark := "  "
			if name == cfg.Active {
				mark = "* "
			}
			fmt.Fprintf(w, "%s%s\t%s\t%s\t%s\t%s\n", mark, name, r.URL, dash(r.GRPCAddr), dash(r.NATSURL), dash(maskToken(r.Token)))
		}
		return w.Flush()
	},
}

var remoteShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show one remote, the active one by default",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadRemotesConfig()
		if err != nil {
			return err
		}
		name := cfg.Active
		if len(args) == 1 {
			name = args[0]
		}
		r, err := cfg.lookup(name)
		if err != nil {
			return err
		}

		if name == cfg.Active {
			name += " (active)"
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		for _, row := range [][2]string{
			{"name", name},
			{"http", r.URL},
			{"grpc", dash(r.GRPCAddr)},
			{"nats", dash(r.NATSURL)},
			{"token", dash(maskToken(r.Token))},
		} {
			fmt.Fprintf(w, "%s:\t%s\n", row[0], row[1])
		}
		return w.Flush()
	},
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	remoteAddCmd.Flags().String("grpc", "", "gRPC address of the server")
	remoteAddCmd.Flags().String("token", "", "bearer token for authentication")
	remoteAddCmd.Flags().String("nats", "", "NATS URL that data commands publish change events to")

	remoteCmd.AddCommand(remoteAddCmd, remoteRemoveCmd, remoteUseCmd, remoteListCmd, remoteShowCmd)
}
