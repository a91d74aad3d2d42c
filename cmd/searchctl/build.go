package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer/publish"
	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer/source"
)

func newBuildCmd(global *globalOptions) *cobra.Command {
	var (
		bookDir     string
		outDir      string
		filterKind  string
		compression string
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the index of a book and publish it",
		Long: `Build the index of a book laid out by SUMMARY.md and publish it.

Flags override the matching config values. With --out the artifact is
written to that directory regardless of the configured publish target.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := global.cfg
			if bookDir != "" {
				cfg.Source.BookDir = bookDir
			}
			if outDir != "" {
				cfg.Publish.Target = "file"
				cfg.Publish.Dir = outDir
			}
			if filterKind != "" {
				cfg.Indexer.FilterKind = filterKind
			}
			if compression != "" {
				cfg.Indexer.Compression = compression
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			opts, err := indexer.OptionsFromConfig(cfg.Indexer)
			if err != nil {
				return err
			}
			store, err := publish.Open(cmd.Context(), cfg.Publish)
			if err != nil {
				return err
			}
			book := source.NewBook(os.DirFS(cfg.Source.BookDir), cfg.Source.Summary, cfg.Source.ReadWorkers)
			result, err := indexer.NewBuilder(opts, indexer.WithStore(store)).Run(cmd.Context(), book)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if resolveFormat(global.format, out) == formatJSON {
				return writeJSON(out, result)
			}
			fmt.Fprintf(out, "Indexed %d sections (%d bytes, %s/%s) to %s\n",
				result.Entries, result.Bytes, result.FilterKind, result.Compression, result.Location)
			return nil
		},
	}

	cmd.Flags().StringVar(&bookDir, "book", "", "Book source directory containing SUMMARY.md")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Write the artifact to this directory")
	cmd.Flags().StringVar(&filterKind, "filter", "", "Filter kind: cuckoo, bloom")
	cmd.Flags().StringVar(&compression, "compression", "", "Artifact compression: none, lz4, zstd")
	return cmd
}
