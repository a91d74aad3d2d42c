package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/static-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/static-search/internal/searcher/parser"
)

func newSearchCmd(global *globalOptions) *cobra.Command {
	var (
		indexPath string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search an index artifact",
		Long: `Search an index artifact and print the best matching sections.

Sections are ranked by how many query terms they contain.

Examples:
  searchctl search --index book/searcher/searchindex.bin "rust install"
  searchctl search -n 3 --format json cargo`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return fmt.Errorf("limit must be non-negative, got %d", limit)
			}
			if !cmd.Flags().Changed("limit") {
				limit = global.cfg.Search.DefaultLimit
			}
			data, err := readArtifact(cmd.Context(), global.cfg, indexPath)
			if err != nil {
				return err
			}
			engine, err := executor.Load(data)
			if err != nil {
				return err
			}
			result, err := engine.Execute(cmd.Context(), parser.Parse(strings.Join(args, " ")), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if resolveFormat(global.format, out) == formatJSON {
				return writeJSON(out, result)
			}
			if len(result.Results) == 0 {
				fmt.Fprintf(out, "No results for %q\n", result.Query)
				return nil
			}
			fmt.Fprintf(out, "%d of %d matching sections for %q\n\n", len(result.Results), result.TotalHits, result.Query)
			for i, m := range result.Results {
				title := m.Locator.Title
				if m.Locator.Breadcrumb != "" {
					title = m.Locator.Breadcrumb + " » " + title
				}
				fmt.Fprintf(out, "%2d. %s (score %d)\n    %s\n", i+1, title, m.Score, m.Locator.URL)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&indexPath, "index", "i", "", "Path to the index artifact (defaults to the configured publish store)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of results")
	return cmd
}
