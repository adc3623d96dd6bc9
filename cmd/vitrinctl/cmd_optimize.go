package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newOptimizeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "optimize [query...]",
		Short: "Strip filler phrases from a search query",
		Example: `  vitrinctl optimize en ucuz iphone fiyatı
  vitrinctl optimize "8690 5040 0001 1"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vitrin, err := newVitrin(root)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), vitrin.OptimizeQuery(strings.Join(args, " ")))
			return err
		},
	}
}
