package cli

import (
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/mfigueroa/rutero/internal/model"
)

// NewPaymentCommand records or reverses a payment.
func NewPaymentCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payment",
		Short: "Record or reverse a payment",
	}
	cmd.AddCommand(newPaymentAddCommand(opts))
	cmd.AddCommand(newPaymentReverseCommand(opts))
	return cmd
}

func newPaymentAddCommand(opts *RootOptions) *cobra.Command {
	var method string

	cmd := &cobra.Command{
		Use:   "add LOAN_CODE AMOUNT",
		Short: "Record a payment against a loan",
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

			entry, err := e.service.RecordPayment(cmd.Context(), e.sess, args[0], amount, model.NormalizeMethod(method))
			if err != nil {
				return WrapExitError(ExitFailure, "recording payment", err)
			}

			out := NewOutputFormatter(opts.Format, cmd.OutOrStdout())
			if out.JSON() {
				return out.EmitJSON(map[string]any{"entry_id": entry.ID})
			}
			out.Printf("Payment of %s queued for loan %s (entry %s)\n", Currency(amount), args[0], entry.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&method, "method", "cash", "payment method (cash|deposit|other)")
	return cmd
}

func newPaymentReverseCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reverse ENTRY_ID",
		Short: "Reverse a payment recorded today",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(opts)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.service.ReversePayment(cmd.Context(), e.sess, args[0]); err != nil {
				return WrapExitError(ExitFailure, "reversing payment", err)
			}
			NewOutputFormatter(opts.Format, cmd.OutOrStdout()).Printf("Payment entry %s reversed\n", args[0])
			return nil
		},
	}
}
