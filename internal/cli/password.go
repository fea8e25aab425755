package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lqviet45/light-novel-BE/internal/auth"
)

func newPasswordCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Password hash utilities",
	}

	hash := &cobra.Command{
		Use:   "hash",
		Short: "Read a password from stdin and print its bcrypt hash",
		Long: `Reads one line from stdin and prints a bcrypt hash using AUTH_BCRYPT_COST,
suitable for the password_hash column read by the postgres directory.`,
		Example: "  printf '%s' \"$PASSWORD\" | authctl password hash",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := envFrom(cmd)
			if err != nil {
				return err
			}
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			password := strings.TrimRight(line, "\r\n")
			if password == "" {
				if err != nil {
					return fmt.Errorf("read password: %w", err)
				}
				return fmt.Errorf("empty password")
			}
			hashed, err := auth.HashPassword(password, env.BcryptCost)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hashed)
			return nil
		},
	}

	cmd.AddCommand(hash)
	return cmd
}
