// Package cli implements the rutero command line.
//
// The binary is the headless surface over the sync core: it records
// payments, loans, expenses, and cash bases into the outbox, shows the
// pending settlement, and runs the download/sync cycle. Presentation
// concerns stay here; the core packages never format or print.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	AgentID    string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the rutero CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "rutero",
		Short: "Offline-first field collection for micro-lending routes",
		Long: "rutero keeps a durable outbox of the working day's payments and loans,\n" +
			"derives loan balances locally, and reconciles everything with the\n" +
			"server in one idempotent batch.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			level := slog.LevelWarn
			if opts.Verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "rutero.yaml", "configuration file")
	cmd.PersistentFlags().StringVar(&opts.AgentID, "agent", "", "active field agent id")

	// Add subcommands
	cmd.AddCommand(NewDownloadCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewPaymentCommand(opts))
	cmd.AddCommand(NewLoanCommand(opts))
	cmd.AddCommand(NewExpenseCommand(opts))
	cmd.AddCommand(NewCashBaseCommand(opts))
	cmd.AddCommand(NewPreflightCommand(opts))
	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewResetCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
