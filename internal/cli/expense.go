package cli

import (
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// NewExpenseCommand queues a field expense.
func NewExpenseCommand(opts *RootOptions) *cobra.Command {
	var note string

	cmd := &cobra.Command{
		Use:   "expense CATEGORY AMOUNT",
		Short: "Record a field expense",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[1])
			if err != nil {
				return WrapExitError(ExitCommandError, "parsing amount", err)
			}

			e, err := setup(opts)
			if err != nil {
				return err
			}
			defer e.Close()

			entry, err := e.service.AddExpense(cmd.Context(), e.sess, args[0], amount, note)
			if err != nil {
				return WrapExitError(ExitFailure, "recording expense", err)
			}
			NewOutputFormatter(opts.Format, cmd.OutOrStdout()).
				Printf("Expense of %s queued (entry %s)\n", Currency(amount), entry.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "free-form note")
	return cmd
}

// NewCashBaseCommand declares the day's starting cash float.
func NewCashBaseCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cash-base AMOUNT",
		Short: "Declare the cash float the day started with",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "parsing amount", err)
			}

			e, err := setup(opts)
			if err != nil {
				return err
			}
			defer e.Close()

			entry, err := e.service.SetCashBase(cmd.Context(), e.sess, amount)
			if err != nil {
				return WrapExitError(ExitFailure, "recording cash base", err)
			}
			NewOutputFormatter(opts.Format, cmd.OutOrStdout()).
				Printf("Cash base of %s queued (entry %s)\n", Currency(amount), entry.ID)
			return nil
		},
	}
}
