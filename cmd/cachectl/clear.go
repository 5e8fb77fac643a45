package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newClearCmd() *cobra.Command {
	var countersOnly bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear cached entries and counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := newService(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			if countersOnly {
				if err := svc.stats.Reset(ctx); err != nil {
					return err
				}
				fmt.Println("Statistics counters cleared.")
				return nil
			}

			if err := svc.engine.Clear(ctx); err != nil {
				return err
			}
			fmt.Println("All cache entries cleared.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&countersOnly, "counters", false, "only reset statistics counters")
	return cmd
}
