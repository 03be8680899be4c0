package cli

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"finagent/internal/dto"
	"finagent/pkg/finmath"

	"github.com/spf13/cobra"
)

func newAdminCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Portfolio dashboard",
	}

	metrics := &cobra.Command{
		Use:   "metrics",
		Short: "Show application totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, _, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			m, err := deps.API.AdminMetrics(cmd.Context())
			if err != nil {
				return err
			}
			field(a.out, "Total applications", m.TotalApplications)
			field(a.out, "Today", m.TodayApplications)
			field(a.out, "Approved", m.ApprovedCount)
			field(a.out, "Adjusted", m.AdjustCount)
			field(a.out, "Rejected", m.RejectedCount)
			field(a.out, "Average amount", finmath.FormatCurrency(m.AvgLoanAmount))
			field(a.out, "Average EMI", finmath.FormatCurrency(m.AvgEMI))
			field(a.out, "Average score", fmt.Sprintf("%.0f", m.AvgCreditScore))
			bands := make([]string, 0, len(m.RiskDistribution))
			for b := range m.RiskDistribution {
				bands = append(bands, b)
			}
			sort.Strings(bands)
			for _, b := range bands {
				field(a.out, "Risk band "+b, m.RiskDistribution[b])
			}
			return nil
		},
	}

	var f dto.LoanFilter
	loans := &cobra.Command{
		Use:   "loans",
		Short: "List applications, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, _, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			page, err := deps.API.AdminLoans(cmd.Context(), f)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "LOAN ID\tAPPLICANT\tREQUESTED\tAPPROVED\tDECISION\tBAND\tDATE")
			for _, l := range page.Loans {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", l.LoanID, l.FullName,
					finmath.FormatCurrency(l.RequestedAmount), finmath.FormatCurrency(l.ApprovedAmount),
					l.Decision, l.RiskBand, finmath.FormatTime(l.CreatedAt))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Page %d, %d of %d applications\n", page.Page, len(page.Loans), page.Total)
			return nil
		},
	}
	loans.Flags().IntVar(&f.Page, "page", 1, "page number")
	loans.Flags().IntVar(&f.PageSize, "page-size", 20, "applications per page (max 100)")
	loans.Flags().StringVar(&f.Decision, "decision", "", "APPROVED, REJECTED or ADJUST")
	loans.Flags().StringVar(&f.RiskBand, "risk-band", "", "A, B or C")

	cmd.AddCommand(metrics, loans)
	return cmd
}
