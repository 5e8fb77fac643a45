package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Probe the active backing store",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := newService(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			if err := svc.supervisor.Ping(ctx); err != nil {
				return err
			}
			fmt.Printf("ok (%s)\n", svc.supervisor.Mode())
			return nil
		},
	}
}
