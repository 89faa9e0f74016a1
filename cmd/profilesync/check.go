package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check connectivity to the source and target databases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			pool, err := a.openPool()
			if err != nil {
				fmt.Fprintf(out, "FAIL %v\n", err)
				return err
			}
			defer pool.Close()

			failed := 0
			for _, r := range pool.Ping(cmd.Context(), a.cfg.Sync.QueryTimeout) {
				if r.Err != nil {
					failed++
					fmt.Fprintf(out, "FAIL %s: %v\n", r.Name, r.Err)
					continue
				}
				fmt.Fprintf(out, "OK   %s (%s)\n", r.Name, r.Latency)
			}

			if failed > 0 {
				return errors.New("database health check failed")
			}
			return nil
		},
	}
}
