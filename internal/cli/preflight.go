package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/mfigueroa/rutero/internal/model"
)

// NewPreflightCommand builds and prints the settlement summary without
// submitting anything.
func NewPreflightCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "preflight",
		Short: "Preview the settlement that the next sync would submit",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(opts)
			if err != nil {
				return err
			}
			defer e.Close()

			snapshot, err := e.service.BuildPreflight(cmd.Context(), e.sess)
			if err != nil {
				return WrapExitError(ExitFailure, "building preflight", err)
			}

			out := NewOutputFormatter(opts.Format, cmd.OutOrStdout())
			if out.JSON() {
				return out.EmitJSON(map[string]any{
					"agent_id":  snapshot.AgentID,
					"totals":    snapshot.Totals,
					"counts":    snapshot.Counts,
					"signature": snapshot.Signature,
					"shadow":    len(snapshot.Shadow),
				})
			}
			RenderPreflight(cmd.OutOrStdout(), snapshot)
			return nil
		},
	}
}

// RenderPreflight writes the settlement summary an agent reviews before
// confirming a sync.
func RenderPreflight(w io.Writer, snapshot *model.PreflightSnapshot) {
	out := NewOutputFormatter("text", w)
	out.Printf("Settlement for agent %s\n", snapshot.AgentID)
	out.Printf("  collected cash:     %s\n", Currency(snapshot.Totals.CashCollected))
	out.Printf("  collected deposits: %s\n", Currency(snapshot.Totals.DepositCollected))
	out.Printf("  collected other:    %s\n", Currency(snapshot.Totals.OtherCollected))
	out.Printf("  collected total:    %s\n", Currency(snapshot.Totals.TotalCollected))
	out.Printf("  cash base:          %s\n", Currency(snapshot.Totals.CashBaseTotal))
	out.Printf("  new loans:          %s\n", Currency(snapshot.Totals.NewLoanPrincipal))
	out.Printf("  expenses:           %s\n", Currency(snapshot.Totals.ExpenseTotal))
	out.Printf("  net cash due:       %s\n", Currency(snapshot.Totals.NetCashDue))
	out.Printf("Entries: %d loans, %d payments, %d expenses, %d cash bases",
		snapshot.Counts.Loans, snapshot.Counts.Payments, snapshot.Counts.Expenses, snapshot.Counts.CashBases)
	if n := len(snapshot.Shadow); n > 0 {
		out.Printf(" (%d shadow, kept local)", n)
	}
	out.Printf("\n")
	if len(snapshot.Payments) > 0 {
		out.Printf("Payments:\n")
		for _, line := range snapshot.Payments {
			out.Printf("  %s  %-8s %s\n", line.LoanCode, string(line.Method), Currency(line.Amount))
		}
	}
}
