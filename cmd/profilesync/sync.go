package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"customer-profile-sync/internal/store"
	"customer-profile-sync/internal/syncer"
)

func newSyncCmd(a *app) *cobra.Command {
	var noMigrate bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one profile sync pass",
		Long: `Read qualifying orders, aggregate them per customer and upsert the
resulting profiles. Exits 0 when every profile was written, 2 when some
profiles failed to write and 1 on fatal errors.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if noMigrate {
				a.cfg.Sync.AutoMigrate = false
			}
			return a.runSync(cmd.Context(), cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.Int("limit", 0, "process at most N customers (0 = all)")
	f.Bool("dry-run", false, "compute profiles without writing them")
	f.String("since", "", "only orders recorded on or after this date (YYYY-MM-DD)")
	f.String("until", "", "only orders recorded before this date (YYYY-MM-DD)")
	f.Int("workers", 0, "concurrent profile writers")
	f.Int("batch-size", 0, "profiles per write batch")
	f.BoolVar(&noMigrate, "no-migrate", false, "do not create or update target tables before syncing")
	a.bindFlags(f, map[string]string{
		"sync.limit":      "limit",
		"sync.dry_run":    "dry-run",
		"sync.since":      "since",
		"sync.until":      "until",
		"sync.workers":    "workers",
		"sync.batch_size": "batch-size",
	})

	return cmd
}

// runSync 执行一次同步并输出报告
func (a *app) runSync(ctx context.Context, out io.Writer) error {
	opts, err := syncer.OptionsFromConfig(a.cfg.Sync)
	if err != nil {
		return err
	}

	pool, err := a.openPool()
	if err != nil {
		return err
	}
	defer pool.Close()

	if a.cfg.Sync.AutoMigrate && !opts.DryRun {
		profiles := store.NewProfileStore(pool.Target(), a.cfg.Sync.QueryTimeout)
		if err := profiles.Migrate(ctx); err != nil {
			return err
		}
	}

	driver := syncer.NewFromPool(a.cfg, pool, a.log)
	report, err := driver.Run(ctx, opts)
	printReport(out, report)

	if errors.Is(err, syncer.ErrPartialFailure) {
		return &exitError{code: exitPartial, err: err}
	}
	return err
}

// printReport 输出同步报告
func printReport(out io.Writer, r *syncer.Report) {
	if r == nil {
		return
	}

	mode := ""
	if r.DryRun {
		mode = " (dry run)"
	}
	fmt.Fprintf(out, "Sync %s%s: %s\n", r.RunID, mode, r.Status)
	fmt.Fprintf(out, "  orders read:      %d\n", r.OrdersRead)
	fmt.Fprintf(out, "  profiles read:    %d\n", r.ProfilesRead)
	fmt.Fprintf(out, "  profiles written: %d\n", r.ProfilesWritten)
	fmt.Fprintf(out, "  profiles failed:  %d\n", r.ProfilesFailed)
	fmt.Fprintf(out, "  anomalies:        %d\n", r.Anomalies)
	fmt.Fprintf(out, "  duration:         %s\n", r.Duration())
	if len(r.FailedIDs) > 0 {
		fmt.Fprintf(out, "  failed customers: %s\n", strings.Join(r.FailedIDs, ", "))
	}
}
