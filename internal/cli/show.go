package cli

import (
	"github.com/spf13/cobra"
)

// NewShowCommand derives and prints one loan's current state.
func NewShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show LOAN_CODE",
		Short: "Show a loan's derived balance and installment position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(opts)
			if err != nil {
				return err
			}
			defer e.Close()

			loan, st, err := e.service.LoanState(cmd.Context(), e.sess, args[0])
			if err != nil {
				return WrapExitError(ExitFailure, "deriving loan state", err)
			}

			out := NewOutputFormatter(opts.Format, cmd.OutOrStdout())
			if out.JSON() {
				return out.EmitJSON(map[string]any{"loan": loan, "derived": st})
			}

			out.Printf("Loan %s  %s  (route %d, %s x%d)\n",
				loan.Code, loan.ClientName, loan.RouteNumber, loan.Modality, loan.Installments)
			out.Printf("  total due:    %s\n", Currency(st.TotalDue))
			out.Printf("  paid:         %s  (%d installments)\n", Currency(st.TotalPaid), st.PaidInstallments)
			out.Printf("  outstanding:  %s  (%d whole + %s residual)\n",
				Currency(st.OutstandingBalance), st.WholeInstallmentsLeft, Currency(st.ResidualAmount))
			switch {
			case st.ArrearsInstallments.IsPositive():
				out.Printf("  position:     %s installments behind\n", st.ArrearsInstallments)
			case st.AdvanceInstallments.IsPositive():
				out.Printf("  position:     %s installments ahead\n", st.AdvanceInstallments)
			default:
				out.Printf("  position:     on schedule\n")
			}
			if st.DueDate != "" {
				out.Printf("  due:          %s", st.DueDate)
				if st.DaysPastDue > 0 {
					out.Printf("  (%d days past due)", st.DaysPastDue)
				}
				out.Printf("\n")
			}
			out.Printf("  this period:  %s collected\n", Currency(st.PeriodCollected))
			return nil
		},
	}
}
