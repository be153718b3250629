package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ndokutovich/claude-code-history-viewer/internal/config"
	"github.com/ndokutovich/claude-code-history-viewer/internal/index"
	"github.com/ndokutovich/claude-code-history-viewer/internal/session"
)

func indexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Scan and catalog Claude Code conversation logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			db, err := index.OpenDB(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer db.Close()

			fmt.Fprintf(os.Stderr, "Scanning %s...\n", cfg.ClaudeRoot)

			ix := index.NewIndexer(db, session.NewStore(cfg.ExcludeSidechain), nil)
			stats, err := ix.IndexAll(cmd.Context(), cfg.ClaudeRoot)
			if err != nil {
				return fmt.Errorf("index: %w", err)
			}

			fmt.Fprintf(os.Stderr, "Done. %s\n", stats)
			return nil
		},
	}
}
