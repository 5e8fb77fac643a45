package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/objones25/mnemosyne/internal/stats"
)

func newTopCmd() *cobra.Command {
	var (
		users bool
		limit int
	)

	cmd := &cobra.Command{
		Use:   "top",
		Short: "Rank models or users by resident cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := newService(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			var rows []stats.Usage
			label := "MODEL"
			if users {
				label = "USER"
				rows, err = svc.stats.TopUsers(ctx, limit)
			} else {
				rows, err = svc.stats.TopModels(ctx, limit)
			}
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Println("No cache entries found.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "%s\tENTRIES\n", label)
			for _, row := range rows {
				fmt.Fprintf(w, "%s\t%d\n", row.Name, row.Count)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&users, "users", false, "rank users instead of models")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of rows")
	return cmd
}
