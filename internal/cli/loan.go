package cli

import (
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/mfigueroa/rutero/internal/model"
	"github.com/mfigueroa/rutero/internal/syncer"
)

// NewLoanCommand creates a loan offline with a freshly allocated route
// number.
func NewLoanCommand(opts *RootOptions) *cobra.Command {
	var (
		clientID     string
		clientName   string
		principal    string
		interest     string
		installments int
		modality     string
		notes        string
		after        int
		before       int
	)

	cmd := &cobra.Command{
		Use:   "loan",
		Short: "Create a loan offline, inserted into the visiting order",
		RunE: func(cmd *cobra.Command, args []string) error {
			principalDec, err := decimal.NewFromString(principal)
			if err != nil {
				return WrapExitError(ExitCommandError, "parsing --principal", err)
			}
			interestDec, err := decimal.NewFromString(interest)
			if err != nil {
				return WrapExitError(ExitCommandError, "parsing --interest", err)
			}

			draft := syncer.LoanDraft{
				ClientID:     clientID,
				ClientName:   clientName,
				Principal:    principalDec,
				InterestRate: interestDec,
				Installments: installments,
				Modality:     model.NormalizeModality(modality),
				Notes:        notes,
			}
			if cmd.Flags().Changed("after") {
				draft.InsertAfter = &after
			}
			if cmd.Flags().Changed("before") {
				draft.InsertBefore = &before
			}

			e, err := setup(opts)
			if err != nil {
				return err
			}
			defer e.Close()

			loan, err := e.service.CreateLoan(cmd.Context(), e.sess, draft)
			if err != nil {
				return WrapExitError(ExitFailure, "creating loan", err)
			}

			out := NewOutputFormatter(opts.Format, cmd.OutOrStdout())
			if out.JSON() {
				return out.EmitJSON(loan)
			}
			out.Printf("Loan %s created at route %d: %s over %d installments (%s)\n",
				loan.Code, loan.RouteNumber, Currency(loan.TotalDue()), loan.Installments, loan.Modality)
			return nil
		},
	}

	cmd.Flags().StringVar(&clientID, "client-id", "", "client identifier")
	cmd.Flags().StringVar(&clientName, "client", "", "client name")
	cmd.Flags().StringVar(&principal, "principal", "0", "loan principal")
	cmd.Flags().StringVar(&interest, "interest", "0", "interest percent, applied once")
	cmd.Flags().IntVar(&installments, "installments", 0, "number of installments")
	cmd.Flags().StringVar(&modality, "modality", "daily", "payment cadence (daily|weekly|biweekly|monthly)")
	cmd.Flags().StringVar(&notes, "notes", "", "free-form notes")
	cmd.Flags().IntVar(&after, "after", 0, "route number of the preceding stop")
	cmd.Flags().IntVar(&before, "before", 0, "route number of the following stop")
	cmd.MarkFlagRequired("client")
	cmd.MarkFlagRequired("principal")
	return cmd
}
