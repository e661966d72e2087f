package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/rote-srs/rote/internal/config"
	"github.com/rote-srs/rote/internal/storage"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show collection statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDB(func(cfg *config.Config, db *storage.DB) error {
				stats, err := db.Stats(time.Now())
				if err != nil {
					return err
				}

				rows := [][]string{
					{"Total cards", strconv.Itoa(stats.TotalCards)},
					{"Sources", strconv.Itoa(stats.TotalSources)},
					{"Reviews recorded", strconv.Itoa(stats.TotalReviews)},
					{"Due now", strconv.Itoa(stats.DueNow)},
					{"Learned", strconv.Itoa(stats.Learned)},
					{"Average ease", fmt.Sprintf("%.2f", stats.AverageEase)},
				}

				out := cmd.OutOrStdout()
				aligns := []columnAlignment{alignLeft, alignRight}
				fmt.Fprintln(out, renderTable(out, []string{"Stat", "Value"}, rows, aligns))
				return nil
			})
		},
	}
}
