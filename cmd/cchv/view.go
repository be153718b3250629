package main

import (
	"github.com/spf13/cobra"

	"github.com/ndokutovich/claude-code-history-viewer/internal/config"
	"github.com/ndokutovich/claude-code-history-viewer/internal/index"
	"github.com/ndokutovich/claude-code-history-viewer/internal/session"
	"github.com/ndokutovich/claude-code-history-viewer/internal/tui"
)

func viewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "view",
		Short: "Browse sessions and their chat history interactively",
		Long:  `Opens a TUI with the session list on the left and the paged chat transcript on the right. The newest messages load first; Ctrl+O pulls in older chunks.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			db, err := index.OpenDB(cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			store := session.NewStore(cfg.ExcludeSidechain)
			ix := index.NewIndexer(db, store, nil)
			ix.IndexAll(cmd.Context(), cfg.ClaudeRoot)

			svc := session.NewService(store, cfg.PageSize, nil)
			return tui.Run(db, svc)
		},
	}
}
