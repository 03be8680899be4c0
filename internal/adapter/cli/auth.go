package cli

import (
	"fmt"

	"finagent/internal/domain/auth"
	"finagent/internal/dto"
	"finagent/internal/usecase/session"
	"finagent/pkg/finmath"

	"github.com/spf13/cobra"
)

func newLoginCmd(a *App) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to your account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := a.Deps(cmd.Context())
			if err != nil {
				return err
			}
			u, err := deps.Sessions.SignIn(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			okColor.Fprintf(a.out, "Welcome back, %s!\n", u.FullName)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newRegisterCmd(a *App) *cobra.Command {
	var in session.SignUpInput
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := a.Deps(cmd.Context())
			if err != nil {
				return err
			}
			u, err := deps.Sessions.SignUp(cmd.Context(), in)
			if err != nil {
				return err
			}
			okColor.Fprintf(a.out, "Welcome, %s! Your account is ready.\n", u.FullName)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&in.Email, "email", "e", "", "account email")
	f.StringVarP(&in.Password, "password", "p", "", "account password (6+ characters)")
	f.StringVarP(&in.FullName, "name", "n", "", "full name")
	f.Float64Var(&in.MonthlyIncome, "income", 0, "monthly income in rupees")
	f.Float64Var(&in.ExistingEMI, "emi", 0, "existing monthly EMIs in rupees")
	f.IntVar(&in.CreditScoreEstimate, "score", 0, "credit score estimate")
	f.StringVar(&in.Segment, "segment", "", "customer segment")
	for _, name := range []string{"email", "password", "name", "income"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newLogoutCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := a.Deps(cmd.Context())
			if err != nil {
				return err
			}
			deps.Sessions.SignOut(cmd.Context())
			okColor.Fprintln(a.out, "Signed out.")
			return nil
		},
	}
}

func newWhoamiCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, err := a.Deps(cmd.Context())
			if err != nil {
				return err
			}
			u := deps.Sessions.User()
			if u == nil {
				fmt.Fprintln(a.out, "Not signed in.")
				return nil
			}
			field(a.out, "Name", u.FullName)
			field(a.out, "Email", u.Email)
			field(a.out, "User ID", u.UserID)
			return nil
		},
	}
}

func newProfileCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show the saved profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, u, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			printProfile(a, u)
			return nil
		},
	}

	sync := &cobra.Command{
		Use:   "sync",
		Short: "Fetch the profile from the server and save it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, _, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			u, err := deps.Sessions.SyncProfile(cmd.Context())
			if err != nil {
				return err
			}
			printProfile(a, u)
			return nil
		},
	}

	var name, phone string
	var income, emi float64
	update := &cobra.Command{
		Use:   "update",
		Short: "Change profile fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, _, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			var upd dto.ProfileUpdate
			f := cmd.Flags()
			if f.Changed("name") {
				upd.FullName = &name
			}
			if f.Changed("phone") {
				upd.Phone = &phone
			}
			if f.Changed("income") {
				upd.MonthlyIncome = &income
			}
			if f.Changed("emi") {
				upd.ExistingEMI = &emi
			}
			u, err := deps.Sessions.UpdateProfile(cmd.Context(), upd)
			if err != nil {
				return err
			}
			okColor.Fprintln(a.out, "Profile updated.")
			printProfile(a, u)
			return nil
		},
	}
	update.Flags().StringVar(&name, "name", "", "full name")
	update.Flags().StringVar(&phone, "phone", "", "10-digit mobile number")
	update.Flags().Float64Var(&income, "income", 0, "monthly income in rupees")
	update.Flags().Float64Var(&emi, "emi", 0, "existing monthly EMIs in rupees")

	cmd.AddCommand(sync, update)
	return cmd
}

func printProfile(a *App, u *auth.User) {
	field(a.out, "Name", u.FullName)
	field(a.out, "Email", u.Email)
	if u.Phone != "" {
		field(a.out, "Phone", u.Phone)
	}
	field(a.out, "Monthly income", finmath.FormatCurrency(u.MonthlyIncome))
	field(a.out, "Existing EMI", finmath.FormatCurrency(u.ExistingEMI))
	field(a.out, "Credit score", u.CreditScoreEstimate)
	field(a.out, "Segment", u.Segment)
}
