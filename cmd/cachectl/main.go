package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	var verbose bool

	root := &cobra.Command{
		Use:     "cachectl",
		Short:   "Inspect and operate a mnemosyne response cache",
		Version: version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
			log.Logger = zerolog.New(output).With().Timestamp().Logger()
			zerolog.SetGlobalLevel(zerolog.WarnLevel)
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newCheckCmd(),
		newStoreCmd(),
		newStatsCmd(),
		newTopCmd(),
		newClearCmd(),
		newPingCmd(),
		newReconnectCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
