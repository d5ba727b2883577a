package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

type rootOptions struct {
	configFile string
}

func NewRoot() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "routesched",
		Short:         "Route-aware booking scheduler for a single service vehicle",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default ./config.yaml)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newKeysCmd())
	cmd.AddCommand(newHashKeyCmd())
	cmd.AddCommand(newServerCmd(opts))
	cmd.AddCommand(newMigrateCmd(opts))
	cmd.AddCommand(newPingCmd(opts))
	cmd.AddCommand(newValidateCmd(opts))
	cmd.AddCommand(newScheduleCmd(opts))
	cmd.AddCommand(newBookCmd(opts))
	cmd.AddCommand(newConfirmCmd(opts))
	cmd.AddCommand(newBookingsCmd(opts))
	cmd.AddCommand(newDayCmd(opts))
	return cmd
}

func Execute() {
	if err := NewRoot().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "routesched %s (commit=%s, built=%s)\n", Version, CommitSHA, BuildDate)
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
