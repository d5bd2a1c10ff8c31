package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"upmon/internal/server"
)

func newCheckCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "check <monitor-id>",
		Short: "Check one monitor now and store the result",
		Long: `Probes a single monitor immediately, regardless of its periodicity,
and prints the stored status.

Example:
  upmon check 42`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id < 1 {
				return fmt.Errorf("invalid monitor id %q", args[0])
			}

			components, err := server.Open(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			defer components.Close()

			status, err := components.Engine.CheckMonitor(cmd.Context(), id)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(status, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}
