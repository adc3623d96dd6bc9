package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/findalleasy/vitrin/internal/domain"
	"github.com/findalleasy/vitrin/internal/usecase"
	"github.com/spf13/cobra"
)

type rankOptions struct {
	*rootOptions
	query string
	hint  string
	input string
}

func newRankCmd(root *rootOptions) *cobra.Command {
	opts := &rankOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Filter and order search results",
		Long: `Reads search results as JSON and prints the ranked vitrin.

The input is either a bare array of result objects or {"query": ..., "results": [...]}.
--query overrides the query found in the input.

Example:
  vitrinctl rank --query "en ucuz iphone" --input results.json
  curl -s $BACKEND/api/search | vitrinctl rank --hint electronics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRank(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.query, "query", "q", "", "Search query")
	cmd.Flags().StringVar(&opts.hint, "hint", "", "Category hint (e.g. electronics, hotel)")
	cmd.Flags().StringVarP(&opts.input, "input", "i", "-", "Results file, - for stdin")

	return cmd
}

func runRank(cmd *cobra.Command, opts *rankOptions) error {
	data, err := readInput(cmd, opts.input)
	if err != nil {
		return err
	}

	input, err := parseRankInput(data)
	if err != nil {
		return err
	}
	if opts.query != "" {
		input.Query = opts.query
	}

	vitrin, err := newVitrin(opts.rootOptions)
	if err != nil {
		return err
	}

	output := vitrin.Process(input, opts.hint)
	if output.Results == nil {
		output.Results = []domain.ResultItem{}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(output)
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" || path == "" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}
	return data, nil
}

// parseRankInput accepts a bare result array or a {query, results} object.
// Numbers stay json.Number so prices keep their exact text.
func parseRankInput(data []byte) (domain.ProcessInput, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return domain.ProcessInput{}, fmt.Errorf("no input")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if data[0] == '[' {
		var results []domain.ResultItem
		if err := dec.Decode(&results); err != nil {
			return domain.ProcessInput{}, fmt.Errorf("parse results: %w", err)
		}
		return domain.ProcessInput{Results: results}, nil
	}

	var input domain.ProcessInput
	if err := dec.Decode(&input); err != nil {
		return domain.ProcessInput{}, fmt.Errorf("parse input: %w", err)
	}
	return input, nil
}

func newVitrin(opts *rootOptions) (*usecase.VitrinService, error) {
	keywords, err := usecase.LoadKeywordTable(opts.keywords)
	if err != nil {
		return nil, err
	}
	return usecase.NewVitrinService(usecase.VitrinConfig{
		Keywords:           keywords,
		Logger:             opts.logger,
		EnableDebugLogging: opts.verbose,
	}), nil
}
