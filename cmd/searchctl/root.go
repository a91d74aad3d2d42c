package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer/publish"
	"github.com/Adithya-Monish-Kumar-K/static-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/static-search/pkg/logger"
)

type globalOptions struct {
	configPath string
	format     string
	logLevel   string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	var opts globalOptions

	cmd := &cobra.Command{
		Use:          "searchctl",
		Short:        "Build and query static search indexes",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch opts.format {
			case formatAuto, formatText, formatJSON:
			default:
				return fmt.Errorf("unknown format %q (want auto, text or json)", opts.format)
			}
			slog.SetDefault(logger.New(cmd.ErrOrStderr(), opts.logLevel, "text"))
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to config file (defaults apply when empty)")
	cmd.PersistentFlags().StringVarP(&opts.format, "format", "f", formatAuto, "Output format: auto, text, json")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	cmd.AddCommand(newBuildCmd(&opts))
	cmd.AddCommand(newSearchCmd(&opts))
	cmd.AddCommand(newInspectCmd(&opts))
	cmd.AddCommand(newLoadTestCmd(&opts))
	return cmd
}

// readArtifact reads the artifact at path, or from the configured publish
// store when path is empty.
func readArtifact(ctx context.Context, cfg *config.Config, path string) ([]byte, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading index %s: %w", path, err)
		}
		return data, nil
	}
	store, err := publish.Open(ctx, cfg.Publish)
	if err != nil {
		return nil, err
	}
	return store.Get(ctx, cfg.Indexer.OutputName)
}
