package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSessionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Count or revoke a user's refresh sessions",
	}

	count := &cobra.Command{
		Use:   "count <email>",
		Short: "Print the number of registered refresh tokens",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := envFrom(cmd)
			if err != nil {
				return err
			}
			n, err := env.Sessions.SessionCount(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s has %d active session(s)\n", args[0], n)
			return nil
		},
	}

	revoke := &cobra.Command{
		Use:   "revoke <email>",
		Short: "Revoke every refresh token of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := envFrom(cmd)
			if err != nil {
				return err
			}
			n, err := env.Sessions.RevokeAll(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			env.Logger.Info("sessions revoked from cli", zap.String("email", args[0]), zap.Int("sessions", n))
			fmt.Fprintf(cmd.OutOrStdout(), "revoked %d session(s) for %s\n", n, args[0])
			return nil
		},
	}

	cmd.AddCommand(count, revoke)
	return cmd
}
