package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"upmon/internal/server"
)

func newRunCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Execute one scheduling pass and exit",
		Long: `Checks every monitor that is due right now and exits.

Intended to be called from cron, for example every minute:
  * * * * * upmon run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			components, err := server.Open(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			defer components.Close()

			summary := components.Engine.RunPass(cmd.Context())

			out, err := json.Marshal(summary)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}
