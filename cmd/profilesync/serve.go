package main

import (
	"github.com/spf13/cobra"

	"customer-profile-sync/internal/api"
	"customer-profile-sync/internal/scheduler"
	"customer-profile-sync/internal/store"
	"customer-profile-sync/internal/syncer"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run syncs on a schedule and expose a status API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			opts, err := syncer.OptionsFromConfig(a.cfg.Sync)
			if err != nil {
				return err
			}

			pool, err := a.openPool()
			if err != nil {
				return err
			}
			defer pool.Close()

			profiles := store.NewProfileStore(pool.Target(), a.cfg.Sync.QueryTimeout)
			runs := store.NewRunStore(pool.Target(), a.cfg.Sync.QueryTimeout)
			if err := profiles.Migrate(ctx); err != nil {
				return err
			}

			sched := scheduler.New(syncer.NewFromPool(a.cfg, pool, a.log), opts, a.cfg.Sync.Interval, a.log)
			if err := sched.Start(ctx); err != nil {
				return err
			}
			defer sched.Stop()

			handler := api.NewHandler(sched, profiles, runs, a.log)
			return api.NewServer(handler, a.cfg.Server.Port, a.log).Run(ctx)
		},
	}

	cmd.Flags().Int("port", 0, "HTTP port")
	cmd.Flags().Duration("interval", 0, "time between scheduled syncs")
	a.bindFlags(cmd.Flags(), map[string]string{
		"server.port":   "port",
		"sync.interval": "interval",
	})

	return cmd
}
