package cli

import (
	"context"
	"fmt"
	"io"

	"finagent/internal/apperr"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	okColor    = color.New(color.FgGreen)
	errColor   = color.New(color.FgRed)
	labelColor = color.New(color.FgCyan)
	botColor   = color.New(color.FgMagenta)
)

func NewRootCommand(a *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "finagent",
		Short:         "Personal loan assistant in your terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)
	root.PersistentFlags().Bool(flagDebugMetrics, false, "print API call metrics to stderr after the command")

	root.AddCommand(
		newLoginCmd(a),
		newRegisterCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newProfileCmd(a),
		newChatCmd(a),
		newLoanCmd(a),
		newAdminCmd(a),
		newEMICmd(),
	)
	return root
}

const flagDebugMetrics = "debug-metrics"

// Execute runs one command line and returns the process exit code.
func Execute(ctx context.Context, a *App, args []string) int {
	root := NewRootCommand(a)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if dump, _ := root.PersistentFlags().GetBool(flagDebugMetrics); dump {
		if werr := a.metrics.WriteText(a.errOut); werr != nil {
			errColor.Fprintln(a.errOut, "metrics:", werr)
		}
	}
	if err != nil {
		errColor.Fprintln(a.errOut, "Error: "+apperr.Message(err, err.Error()))
		return 1
	}
	return 0
}

// field prints one "label: value" line.
func field(w io.Writer, label string, value any) {
	labelColor.Fprintf(w, "%-20s", label+":")
	fmt.Fprintln(w, value)
}
