package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ndokutovich/claude-code-history-viewer/internal/config"
	"github.com/ndokutovich/claude-code-history-viewer/internal/index"
	"github.com/ndokutovich/claude-code-history-viewer/internal/session"
)

func listCmd() *cobra.Command {
	var project string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cataloged sessions, newest first",
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

			ix := index.NewIndexer(db, session.NewStore(cfg.ExcludeSidechain), nil)
			if _, err := ix.IndexAll(cmd.Context(), cfg.ClaudeRoot); err != nil {
				fmt.Fprintf(os.Stderr, "warning: reindex failed: %v\n", err)
			}

			rows, err := db.ListSessions(project, limit)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Println("No sessions found. Is claude_root configured?")
				return nil
			}

			width := 100
			if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 40 {
				width = w
			}

			for _, s := range rows {
				date := s.LastMessageTime
				if len(date) >= 10 {
					date = date[:10]
				}
				flags := ""
				if s.HasErrors {
					flags += " !"
				}
				prefix := fmt.Sprintf("%s  %-20s %4d msgs%s  ", date, runewidth.Truncate(s.Project, 20, "…"), s.MessageCount, flags)
				summary := strings.ReplaceAll(s.Summary, "\n", " ")
				avail := width - runewidth.StringWidth(prefix)
				if avail > 0 && runewidth.StringWidth(summary) > avail {
					summary = runewidth.Truncate(summary, avail, "…")
				}
				fmt.Printf("%s%s\n", prefix, summary)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "Filter by project name")
	cmd.Flags().IntVar(&limit, "limit", 0, "Max sessions (0 = no limit)")

	return cmd
}
