package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ndokutovich/claude-code-history-viewer/internal/api"
	"github.com/ndokutovich/claude-code-history-viewer/internal/config"
	"github.com/ndokutovich/claude-code-history-viewer/internal/index"
	"github.com/ndokutovich/claude-code-history-viewer/internal/session"
)

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the session catalog and message pages over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.ListenAddr = addr
			}

			db, err := index.OpenDB(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer db.Close()

			store := session.NewStore(cfg.ExcludeSidechain)
			ix := index.NewIndexer(db, store, nil)
			if _, err := ix.IndexAll(cmd.Context(), cfg.ClaudeRoot); err != nil {
				return fmt.Errorf("initial index: %w", err)
			}

			svc := session.NewService(store, cfg.PageSize, nil)
			srv := api.NewServer(cfg.ListenAddr, svc, db, ix, cfg.ClaudeRoot, nil)
			return srv.Start()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")

	return cmd
}
