// Command vitrinctl runs the vitrin ranking core on local JSON files.
package main

import (
	"fmt"
	"os"

	"github.com/findalleasy/vitrin/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// rootOptions holds the flags shared by every subcommand
type rootOptions struct {
	verbose  bool
	keywords string
	logger   *zap.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{logger: zap.NewNop()}

	cmd := &cobra.Command{
		Use:   "vitrinctl",
		Short: "FindAllEasy vitrin ranking tools",
		Long: `vitrinctl cleans search queries and ranks search results the same way
the vitrin service does, without a backend.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !opts.verbose {
				return nil
			}
			logger, err := logging.New("debug", true)
			if err != nil {
				return err
			}
			opts.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = opts.logger.Sync()
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&opts.keywords, "keywords", "", "YAML keyword table laid over the built-in lists")

	cmd.AddCommand(newRankCmd(opts))
	cmd.AddCommand(newOptimizeCmd(opts))

	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
