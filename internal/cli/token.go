package cli

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Work with issued tokens",
	}

	inspect := &cobra.Command{
		Use:   "inspect <token>",
		Short: "Verify a token and print its claims",
		Long: `Verifies the signature and issuer of a token with the configured secret
and prints its claims together with its expiry and revocation state.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := envFrom(cmd)
			if err != nil {
				return err
			}
			token := strings.TrimSpace(args[0])
			claims, err := env.Tokens.Verify(token)
			if err != nil {
				return err
			}
			revoked, err := env.Sessions.IsBlacklisted(cmd.Context(), token)
			if err != nil {
				return err
			}

			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Claim", "Value"})
			t.AppendRows([]table.Row{
				{"subject", claims.Subject},
				{"type", string(claims.Kind)},
				{"user id", claims.UserID},
				{"roles", strings.Join(claims.Roles, ",")},
				{"jti", claims.ID},
				{"issued", formatDate(claims.IssuedAt)},
				{"expires", formatDate(claims.ExpiresAt)},
				{"expired", env.Tokens.Expired(claims)},
				{"revoked", revoked},
			})
			t.Render()
			return nil
		},
	}

	cmd.AddCommand(inspect)
	return cmd
}

func formatDate(d *jwt.NumericDate) string {
	if d == nil {
		return "-"
	}
	return d.Format(time.RFC3339)
}
