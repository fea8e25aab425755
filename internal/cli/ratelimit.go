package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/lqviet45/light-novel-BE/internal/domain"
)

func newRateLimitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ratelimit",
		Short: "Inspect or clear rate-limit counters",
	}

	var operation string
	info := &cobra.Command{
		Use:     "info <identifier>",
		Short:   "Show the counter for an identifier",
		Example: "  authctl ratelimit info alice@example.com --operation login",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := envFrom(cmd)
			if err != nil {
				return err
			}
			state, err := env.Limiter.Info(cmd.Context(), operation, args[0])
			if err != nil {
				return err
			}

			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Operation", "Max", "Remaining", "Reset (s)", "Limited"})
			t.AppendRow(table.Row{state.Operation, state.MaxRequests, state.Remaining, state.ResetInSeconds, state.Limited})
			t.Render()
			return nil
		},
	}

	reset := &cobra.Command{
		Use:   "reset <identifier>",
		Short: "Delete the counter for an identifier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := envFrom(cmd)
			if err != nil {
				return err
			}
			if err := env.Limiter.Reset(cmd.Context(), operation, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s counter cleared for %s\n", operation, args[0])
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&operation, "operation", domain.OperationLogin, "Rate-limited operation (login, refresh)")
	cmd.AddCommand(info, reset)
	return cmd
}
