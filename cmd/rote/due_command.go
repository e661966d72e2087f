package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/rote-srs/rote/internal/config"
	"github.com/rote-srs/rote/internal/storage"
)

func newDueCommand(ctx *commandContext) *cobra.Command {
	var limit int

	dueCmd := &cobra.Command{
		Use:   "due",
		Short: "List the cards that are due for review",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDB(func(cfg *config.Config, db *storage.DB) error {
				cards, err := db.DueCards(time.Now(), limit)
				if err != nil {
					return err
				}
				if len(cards) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No cards due.")
					return nil
				}

				rows := make([][]string, 0, len(cards))
				for _, card := range cards {
					rows = append(rows, []string{
						card.NextReview.Local().Format("2006-01-02 15:04"),
						truncate(card.Question, 60),
						strconv.Itoa(card.Repetitions),
						fmt.Sprintf("%.2f", card.EaseFactor),
					})
				}

				out := cmd.OutOrStdout()
				aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignRight}
				fmt.Fprintln(out, renderTable(out, []string{"Due", "Question", "Reps", "Ease"}, rows, aligns))
				return nil
			})
		},
	}

	dueCmd.Flags().IntVar(&limit, "limit", 0, "Maximum cards to list, 0 for all")

	return dueCmd
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
