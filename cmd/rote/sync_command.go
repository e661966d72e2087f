package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rote-srs/rote/internal/config"
	"github.com/rote-srs/rote/internal/storage"
	rotesync "github.com/rote-srs/rote/internal/sync"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Pull git sources and reconcile cards with the deck files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDB(func(cfg *config.Config, db *storage.DB) error {
				summary, err := rotesync.Run(db, cfg.ReposDir, time.Now())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Synced %d sources: %d cards parsed, %d new, %d orphans removed.\n",
					summary.Sources, summary.CardsParsed, summary.CardsInserted, summary.OrphansDeleted)
				for _, msg := range summary.Errors {
					fmt.Fprintf(out, "  error: %s\n", msg)
				}
				return nil
			})
		},
	}
}
