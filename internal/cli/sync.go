package cli

import (
	"bufio"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mfigueroa/rutero/internal/api"
	"github.com/mfigueroa/rutero/internal/syncer"
)

// NewSyncCommand runs the full reconciliation flow: build the preflight,
// show the settlement summary, confirm, submit.
func NewSyncCommand(opts *RootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Submit the pending outbox to the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(opts)
			if err != nil {
				return err
			}
			defer e.Close()

			snapshot, err := e.service.BuildPreflight(cmd.Context(), e.sess)
			if err != nil {
				return flowExitError("building preflight", err)
			}

			out := NewOutputFormatter(opts.Format, cmd.OutOrStdout())
			if !out.JSON() {
				RenderPreflight(cmd.OutOrStdout(), snapshot)
			}

			if !yes && !out.JSON() {
				out.Printf("Submit? [y/N] ")
				reader := bufio.NewReader(cmd.InOrStdin())
				line, _ := reader.ReadString('\n')
				switch strings.ToLower(strings.TrimSpace(line)) {
				case "y", "yes":
				default:
					out.Printf("Aborted. Nothing was submitted.\n")
					return nil
				}
			}

			result, err := e.service.Commit(cmd.Context(), e.sess, snapshot)
			if err != nil {
				return flowExitError("sync", err)
			}

			if out.JSON() {
				return out.EmitJSON(result)
			}
			if !result.Submitted {
				out.Printf("Settled %d shadow entries locally; nothing to submit.\n", result.DeletedEntries)
				return nil
			}
			if result.AlreadyProcessed {
				out.Printf("Server had already processed batch %s; local queue cleared.\n", result.IdempotencyKey)
			} else {
				out.Printf("Synced batch %s.\n", result.IdempotencyKey)
			}
			out.Printf("  loans: %d  payments: %d  expenses: %d  cash bases: %d\n",
				result.CreatedLoans, result.CreatedPayments, result.CreatedExpenses, result.CreatedCashBases)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "submit without asking for confirmation")
	return cmd
}

// flowExitError converts service errors into exit-coded CLI errors with
// actionable messages.
func flowExitError(action string, err error) error {
	switch {
	case syncer.IsEmptyBatch(err):
		return WrapExitError(ExitFailure, "nothing pending for this agent", err)
	case syncer.IsStaleSnapshot(err):
		return WrapExitError(ExitFailure, "outbox changed since preflight; run sync again", err)
	case syncer.IsAlreadyDownloaded(err):
		return WrapExitError(ExitFailure, "working set already downloaded today", err)
	}
	switch api.CodeOf(err) {
	case api.CodeAlreadyUsedToday:
		return WrapExitError(ExitFailure, "this agent already synced today", err)
	case api.CodePermissionDenied:
		return WrapExitError(ExitFailure, "server denied the upload", err)
	case api.CodeUnknownOutcome:
		return WrapExitError(ExitFailure, "submission outcome unknown; entries kept, retry is safe", err)
	case api.CodeNetworkTimeout, api.CodeNetworkUnreachable:
		return WrapExitError(ExitFailure, "network unavailable; entries kept", err)
	case api.CodeValidationRejected:
		return WrapExitError(ExitFailure, "server rejected the batch", err)
	}
	return WrapExitError(ExitFailure, action, err)
}
