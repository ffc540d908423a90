// Command fleetctl runs maintenance tasks against the fleet database.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fleetctl",
		Short: "Maintenance tool for the fleet consistency service",
		Long: `fleetctl applies the schema, inspects and adjusts the fuel ledger,
manages assignments and runs the notification consumer. It reads the same
environment (.env, DB_DRIVER, RABBITMQ_URL, ...) as the API server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().Bool("debug", false, "verbose logging")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		level := slog.LevelInfo
		if debug, _ := cmd.Flags().GetBool("debug"); debug {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(fuelCmd())
	rootCmd.AddCommand(assignmentCmd())
	rootCmd.AddCommand(notificationsCmd())
	rootCmd.AddCommand(tokensCmd())
	return rootCmd
}
