package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"finagent/internal/dto"
	"finagent/pkg/finmath"

	"github.com/spf13/cobra"
)

func newLoanCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loan",
		Short: "Look up loan applications and sanction letters",
	}

	show := &cobra.Command{
		Use:   "show <loan-id>",
		Short: "Show one loan application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, _, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			l, err := deps.API.GetLoan(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printLoan(a, l)
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List your recent applications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, u, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			loans, err := deps.API.UserLoans(cmd.Context(), u.UserID)
			if err != nil {
				return err
			}
			if len(loans) == 0 {
				fmt.Fprintln(a.out, "No loan applications yet.")
				return nil
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "LOAN ID\tAMOUNT\tTENURE\tEMI\tDECISION\tDATE")
			for _, l := range loans {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n", l.LoanID,
					finmath.FormatCurrency(amountOf(l)), l.TenureMonths, finmath.FormatCurrency(l.EMI),
					l.Decision, finmath.FormatTime(l.CreatedAt))
			}
			return tw.Flush()
		},
	}

	var out string
	letter := &cobra.Command{
		Use:   "sanction <loan-id>",
		Short: "Download the sanction letter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, _, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			doc, err := deps.Letters.Fetch(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			path := out
			if path == "" {
				path = doc.Filename
			} else if st, err := os.Stat(path); err == nil && st.IsDir() {
				path = filepath.Join(path, doc.Filename)
			}
			if err := os.WriteFile(path, doc.Body, 0o644); err != nil {
				return fmt.Errorf("save sanction letter: %w", err)
			}
			okColor.Fprintf(a.out, "Saved sanction letter to %s (%s)\n", path, doc.Source)
			return nil
		},
	}
	letter.Flags().StringVarP(&out, "out", "o", "", "file or directory to write the letter to")

	cmd.AddCommand(show, list, letter)
	return cmd
}

func printLoan(a *App, l *dto.LoanSummary) {
	field(a.out, "Loan ID", l.LoanID)
	field(a.out, "Applicant", l.FullName)
	field(a.out, "Decision", l.Decision)
	field(a.out, "Requested", finmath.FormatCurrency(l.RequestedAmount))
	if l.ApprovedAmount > 0 {
		field(a.out, "Approved", finmath.FormatCurrency(l.ApprovedAmount))
	}
	field(a.out, "Tenure", fmt.Sprintf("%d months", l.TenureMonths))
	field(a.out, "Interest rate", fmt.Sprintf("%.2f%% p.a.", l.InterestRate))
	if l.EMI > 0 {
		field(a.out, "Monthly EMI", finmath.FormatCurrency(l.EMI))
	}
	field(a.out, "Risk band", l.RiskBand)
	field(a.out, "Applied on", finmath.FormatTime(l.CreatedAt))
	if l.Explanation != "" {
		field(a.out, "Notes", l.Explanation)
	}
}

func amountOf(l dto.LoanSummary) float64 {
	if l.ApprovedAmount > 0 {
		return l.ApprovedAmount
	}
	return l.RequestedAmount
}
