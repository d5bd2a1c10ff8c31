package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"upmon/internal/storage"
)

func newMigrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// storage.New applies pending migrations
			store, err := storage.New(cmd.Context(), c.cfg.Storage)
			if err != nil {
				return err
			}
			defer store.Close()

			applied, pending, err := store.MigrationStatus(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, record := range applied {
				fmt.Fprintf(out, "%3d  %-32s  applied %s\n", record.Version, record.Name, record.AppliedAt.Format(time.RFC3339))
			}
			for _, migration := range pending {
				fmt.Fprintf(out, "%3d  %-32s  pending\n", migration.Version, migration.Name)
			}
			fmt.Fprintf(out, "database %s: %d applied, %d pending\n", c.cfg.Storage.Path, len(applied), len(pending))
			return nil
		},
	}
}
