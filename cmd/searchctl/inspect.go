package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/static-search/internal/searcher/executor"
)

type inspectOutput struct {
	executor.ArtifactInfo
	Sections []string `json:"sections,omitempty"`
}

func newInspectCmd(global *globalOptions) *cobra.Command {
	var (
		indexPath string
		sections  bool
	)

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show the header and contents of an index artifact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := readArtifact(cmd.Context(), global.cfg, indexPath)
			if err != nil {
				return err
			}
			engine, err := executor.Load(data)
			if err != nil {
				return err
			}
			output := inspectOutput{ArtifactInfo: engine.Info()}
			if sections {
				for _, loc := range engine.Locators() {
					output.Sections = append(output.Sections, loc.URL)
				}
			}

			out := cmd.OutOrStdout()
			if resolveFormat(global.format, out) == formatJSON {
				return writeJSON(out, output)
			}
			fmt.Fprintf(out, "Version:     %d\n", output.Version)
			fmt.Fprintf(out, "Filter:      %s\n", output.FilterKind)
			fmt.Fprintf(out, "Compression: %s\n", output.Compression)
			fmt.Fprintf(out, "Checksum:    %08x\n", output.Checksum)
			fmt.Fprintf(out, "Entries:     %d\n", output.Entries)
			fmt.Fprintf(out, "Bytes:       %d\n", output.Bytes)
			for _, url := range output.Sections {
				fmt.Fprintf(out, "  %s\n", url)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&indexPath, "index", "i", "", "Path to the index artifact (defaults to the configured publish store)")
	cmd.Flags().BoolVar(&sections, "sections", false, "List the URL of every indexed section")
	return cmd
}
