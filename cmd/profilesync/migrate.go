package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"customer-profile-sync/internal/store"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the target profile tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := a.openPool()
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := store.NewProfileStore(pool.Target(), a.cfg.Sync.QueryTimeout).Migrate(cmd.Context()); err != nil {
				return err
			}

			a.log.Info("target tables migrated")
			fmt.Fprintln(cmd.OutOrStdout(), "Target tables are up to date")
			return nil
		},
	}
}
