package cli

import (
	"github.com/spf13/cobra"
)

// NewResetCommand wipes the local store. Refused while outbox entries
// are still pending: unsynced captures are the only copy of the day's
// work.
func NewResetCommand(opts *RootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete the local store and start empty",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(opts)
			if err != nil {
				return err
			}
			defer e.Close()

			if force {
				entries, err := e.store.ListOutbox(cmd.Context())
				if err != nil {
					return WrapExitError(ExitFailure, "reading outbox", err)
				}
				ids := make([]string, len(entries))
				for i, entry := range entries {
					ids[i] = entry.ID
				}
				if err := e.store.DeleteOutbox(cmd.Context(), ids); err != nil {
					return WrapExitError(ExitFailure, "discarding outbox", err)
				}
			}

			if err := e.store.Reset(cmd.Context()); err != nil {
				return WrapExitError(ExitFailure, "reset refused: sync first or pass --force", err)
			}

			out := NewOutputFormatter(opts.Format, cmd.OutOrStdout())
			out.Printf("Local store reset.\n")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "discard pending outbox entries")
	return cmd
}
