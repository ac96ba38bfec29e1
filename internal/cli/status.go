package cli

import (
	"github.com/spf13/cobra"

	"github.com/mfigueroa/rutero/internal/model"
)

// NewStatusCommand shows the pending outbox and the day's aggregate.
func NewStatusCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show pending outbox entries and daily totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(opts)
			if err != nil {
				return err
			}
			defer e.Close()
			ctx := cmd.Context()

			entries, err := e.store.ListOutbox(ctx)
			if err != nil {
				return WrapExitError(ExitCommandError, "reading outbox", err)
			}
			stats, err := e.store.DailyStats(ctx)
			if err != nil {
				return WrapExitError(ExitCommandError, "reading daily stats", err)
			}

			var counts model.EntryCounts
			shadow := 0
			for _, entry := range entries {
				switch entry.Op.(type) {
				case model.LoanNew:
					counts.Loans++
				case model.PaymentNew:
					counts.Payments++
				case model.ExpenseNew:
					counts.Expenses++
				case model.CashBaseSet:
					counts.CashBases++
				case model.LoanShadow:
					shadow++
				}
			}

			out := NewOutputFormatter(opts.Format, cmd.OutOrStdout())
			if out.JSON() {
				return out.EmitJSON(map[string]any{
					"pending":       len(entries),
					"counts":        counts,
					"shadow":        shadow,
					"collected":     stats.Collected,
					"payment_count": stats.PaymentCount,
				})
			}

			out.Printf("Pending entries: %d\n", len(entries))
			out.Printf("  loans: %d  payments: %d  expenses: %d  cash bases: %d  shadow: %d\n",
				counts.Loans, counts.Payments, counts.Expenses, counts.CashBases, shadow)
			out.Printf("Collected today: %s in %d payments\n", Currency(stats.Collected), stats.PaymentCount)
			return nil
		},
	}
}
