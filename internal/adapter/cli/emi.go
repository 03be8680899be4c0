package cli

import (
	"fmt"

	"finagent/internal/apperr"
	"finagent/pkg/finmath"

	"github.com/spf13/cobra"
)

func newEMICmd() *cobra.Command {
	var amount, rate float64
	var tenure int
	cmd := &cobra.Command{
		Use:   "emi",
		Short: "Work out the monthly instalment for a loan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			terms, err := finmath.NewLoanTerms(amount, rate, tenure)
			if err != nil {
				return apperr.Wrap(apperr.KindValidation,
					"Amount and tenure must be positive and the rate cannot be negative.", err)
			}
			for _, line := range finmath.NewOffer(terms, finmath.RoundWhole).Lines() {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			if err := finmath.ValidateLoanRequest(amount, tenure); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "Note: outside the offered range of",
					finmath.FormatCurrency(finmath.MinLoanAmount), "to", finmath.FormatCurrency(finmath.MaxLoanAmount),
					fmt.Sprintf("over %d to %d months.", finmath.MinTenureMonths, finmath.MaxTenureMonths))
			}
			return nil
		},
	}
	cmd.Flags().Float64VarP(&amount, "amount", "a", 0, "principal in rupees")
	cmd.Flags().Float64VarP(&rate, "rate", "r", finmath.DefaultAnnualRatePercent, "annual interest rate in percent")
	cmd.Flags().IntVarP(&tenure, "tenure", "t", 0, "tenure in months")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("tenure")
	return cmd
}
