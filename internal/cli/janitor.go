package cli

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/lqviet45/light-novel-BE/internal/worker"
)

func newJanitorCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "janitor",
		Short: "Session set maintenance",
	}

	run := &cobra.Command{
		Use:   "run",
		Short: "Run one sweep that prunes expired tokens from session sets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := envFrom(cmd)
			if err != nil {
				return err
			}
			result, err := worker.NewSessionJanitor(env.Sessions, 0, env.Logger, nil).Sweep(cmd.Context())
			if err != nil {
				return err
			}

			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Owners", "Pruned", "Failed", "Elapsed"})
			t.AppendRow(table.Row{result.Owners, result.Pruned, result.Failed, result.Elapsed.String()})
			t.Render()
			return nil
		},
	}

	cmd.AddCommand(run)
	return cmd
}
