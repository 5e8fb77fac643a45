package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newReconnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconnect",
		Short: "Re-establish the remote store connection",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := newService(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			if err := svc.supervisor.Reconnect(ctx); err != nil {
				return err
			}
			fmt.Printf("mode: %s\n", svc.supervisor.Mode())
			return nil
		},
	}
}
