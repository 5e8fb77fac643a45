package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/objones25/mnemosyne/internal/cache"
)

func newCheckCmd() *cobra.Command {
	var (
		userID     string
		model      string
		provider   string
		noDedup    bool
		noSemantic bool
		threshold  float64
	)

	cmd := &cobra.Command{
		Use:   "check <content>",
		Short: "Look content up through every cache strategy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := newService(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			res := svc.engine.Check(ctx, args[0], cache.CheckOptions{
				UserID:              userID,
				Model:               model,
				Provider:            provider,
				SkipDedup:           noDedup,
				SkipSemantic:        noSemantic,
				SimilarityThreshold: threshold,
			})

			if !res.Hit {
				fmt.Println("miss")
				return nil
			}

			if res.Strategy == cache.StrategySemantic {
				fmt.Printf("hit (%s, similarity %.4f)\n", res.Strategy, res.Similarity)
			} else {
				fmt.Printf("hit (%s)\n", res.Strategy)
			}

			out, err := json.MarshalIndent(res.Value, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user identity scope")
	cmd.Flags().StringVar(&model, "model", "", "model scope")
	cmd.Flags().StringVar(&provider, "provider", "", "provider scope")
	cmd.Flags().BoolVar(&noDedup, "no-dedup", false, "skip the deduplication strategy")
	cmd.Flags().BoolVar(&noSemantic, "no-semantic", false, "skip the semantic strategy")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "similarity threshold override")
	return cmd
}
