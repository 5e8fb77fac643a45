package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache effectiveness counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := newService(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			snap := svc.stats.Snapshot(ctx)

			if asJSON {
				out, err := json.MarshalIndent(snap, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Total requests:\t%d\n", snap.TotalRequests)
			fmt.Fprintf(w, "Hits:\t%d\n", snap.Hits)
			fmt.Fprintf(w, "Misses:\t%d\n", snap.Misses)
			fmt.Fprintf(w, "Hit rate:\t%.2f%%\n", snap.HitRate*100)
			fmt.Fprintf(w, "Exact matches:\t%d\n", snap.ExactMatches)
			fmt.Fprintf(w, "Semantic matches:\t%d\n", snap.SemanticMatches)
			fmt.Fprintf(w, "Deduplicated:\t%d\n", snap.DeduplicationCount)
			fmt.Fprintf(w, "Tokens saved:\t%d\n", snap.TokensSaved)
			fmt.Fprintf(w, "Cost saved:\t$%.4f\n", snap.CostSaved)
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "emit JSON")
	return cmd
}
