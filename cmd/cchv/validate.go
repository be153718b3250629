package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ndokutovich/claude-code-history-viewer/internal/config"
	"github.com/ndokutovich/claude-code-history-viewer/internal/session"
	"github.com/ndokutovich/claude-code-history-viewer/internal/validate"
)

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <session.jsonl>",
		Short: "Audit a session file for duplicates, ordering, and parse failures",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			store := session.NewStore(cfg.ExcludeSidechain)
			msgs, failures, err := store.ReadAll(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			res := validate.New().Validate(msgs)

			fmt.Printf("=== %s ===\n", args[0])
			fmt.Printf("Messages:  %d (user %d, assistant %d, system %d, summary %d, unknown %d)\n",
				res.Stats.Total, res.Stats.User, res.Stats.Assistant,
				res.Stats.System, res.Stats.Summary, res.Stats.Unknown)
			fmt.Printf("Bad lines: %d\n", len(failures))
			for _, f := range failures {
				fmt.Printf("  line %d: %s\n", f.Line, f.Reason)
			}
			for _, w := range res.Warnings {
				fmt.Printf("Warning: %s\n", w)
			}
			for _, e := range res.Errors {
				fmt.Printf("Error: %s\n", e)
			}

			if !res.Valid {
				return fmt.Errorf("validation failed with %d error(s)", len(res.Errors))
			}
			fmt.Println("OK")
			return nil
		},
	}
}
