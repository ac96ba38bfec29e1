package cli

import (
	"github.com/spf13/cobra"
)

// NewDownloadCommand fetches the agent's working set for the day.
func NewDownloadCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "download",
		Short: "Download today's working set from the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(opts)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.service.Download(cmd.Context(), e.sess); err != nil {
				return flowExitError("download", err)
			}

			loans, err := e.service.Loans(cmd.Context(), e.sess)
			if err != nil {
				return WrapExitError(ExitFailure, "reading working set", err)
			}

			out := NewOutputFormatter(opts.Format, cmd.OutOrStdout())
			if out.JSON() {
				return out.EmitJSON(map[string]any{
					"agent_id": e.sess.AgentID,
					"loans":    len(loans),
				})
			}
			out.Printf("Downloaded working set for %s: %d loans.\n", e.sess.AgentID, len(loans))
			return nil
		},
	}
}
