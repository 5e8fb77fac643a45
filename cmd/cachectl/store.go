package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/objones25/mnemosyne/internal/cache"
)

func newStoreCmd() *cobra.Command {
	var (
		userID     string
		model      string
		provider   string
		ttl        time.Duration
		tokens     int
		cost       float64
		noDedup    bool
		noSemantic bool
	)

	cmd := &cobra.Command{
		Use:   "store <content> <value>",
		Short: "Store a response for future lookups",
		Long: `Store a response for future lookups.

The value argument is parsed as JSON when possible and kept as a plain
string otherwise.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := newService(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			var value interface{}
			if err := json.Unmarshal([]byte(args[1]), &value); err != nil {
				value = args[1]
			}

			svc.engine.Store(ctx, args[0], value, cache.StoreOptions{
				UserID:       userID,
				Model:        model,
				Provider:     provider,
				TTL:          ttl,
				SkipDedup:    noDedup,
				SkipSemantic: noSemantic,
				TokenCount:   tokens,
				Cost:         cost,
			})

			fmt.Println("stored")
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user identity scope")
	cmd.Flags().StringVar(&model, "model", "", "model scope")
	cmd.Flags().StringVar(&provider, "provider", "", "provider scope")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "entry lifetime override")
	cmd.Flags().IntVar(&tokens, "tokens", 0, "token count of the generated response")
	cmd.Flags().Float64Var(&cost, "cost", 0, "cost of the generated response")
	cmd.Flags().BoolVar(&noDedup, "no-dedup", false, "suppress the deduplication entry")
	cmd.Flags().BoolVar(&noSemantic, "no-semantic", false, "suppress the semantic entry")
	return cmd
}
