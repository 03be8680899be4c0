package cli

import (
	"fmt"
	"strings"

	"finagent/internal/domain/chat"
	"finagent/pkg/finmath"

	"github.com/spf13/cobra"
)

func newChatCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the loan assistant",
	}

	send := &cobra.Command{
		Use:   "send <message>",
		Short: "Send one message in the current conversation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, _, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			reply, err := deps.Chat.Send(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			botColor.Fprintln(a.out, reply.Text)
			if reply.LoanID != "" && reply.Step == chat.StepSanctionGenerated {
				fmt.Fprintln(a.out)
				field(a.out, "Loan ID", reply.LoanID)
				fmt.Fprintf(a.out, "Download the letter with: finagent loan sanction %s\n", reply.LoanID)
			}
			return nil
		},
	}

	history := &cobra.Command{
		Use:   "history",
		Short: "Show the current conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, _, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			msgs, err := deps.Chat.History(cmd.Context())
			if err != nil {
				return err
			}
			if len(msgs) == 0 {
				fmt.Fprintln(a.out, "No messages yet.")
				return nil
			}
			for _, m := range msgs {
				if m.Role == chat.RoleUser {
					labelColor.Fprint(a.out, "you: ")
					fmt.Fprintln(a.out, m.Content)
					continue
				}
				botColor.Fprint(a.out, "assistant: ")
				fmt.Fprintln(a.out, m.Content)
			}
			return nil
		},
	}

	info := &cobra.Command{
		Use:   "info",
		Short: "Show where the current conversation stands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, _, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			s, err := deps.Chat.Info(cmd.Context())
			if err != nil {
				return err
			}
			if s == nil {
				fmt.Fprintln(a.out, "No active conversation.")
				return nil
			}
			field(a.out, "Session", s.SessionID)
			field(a.out, "Step", s.CurrentStep)
			field(a.out, "Messages", s.MessageCount)
			field(a.out, "Started", finmath.FormatTime(s.CreatedAt))
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "End the current conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, _, err := a.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			if err := deps.Chat.Clear(cmd.Context()); err != nil {
				return err
			}
			okColor.Fprintln(a.out, "Conversation cleared.")
			return nil
		},
	}

	cmd.AddCommand(send, history, info, clearCmd)
	return cmd
}
