package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rote-srs/rote/internal/parser"
)

func newGenCommand(ctx *commandContext) *cobra.Command {
	var outPath string

	genCmd := &cobra.Command{
		Use:   "gen <notes.txt>",
		Short: "Generate a flashcard deck from prose notes",
		Long: `Generate Q&A cards from definition sentences and glossary lines in a
plain-text file. The result is a markdown deck that sync understands;
review it by hand before adding it to a source.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read notes: %w", err)
			}

			cards := parser.GenerateCards(string(text))
			if len(cards) == 0 {
				return fmt.Errorf("no cards could be generated from %s", args[0])
			}
			deck := parser.FormatDeck(cards)

			if outPath == "" {
				fmt.Fprint(cmd.OutOrStdout(), deck)
				return nil
			}

			if err := os.WriteFile(outPath, []byte(deck), 0o644); err != nil {
				return fmt.Errorf("failed to write deck: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Generated %d cards to %s.\n", len(cards), outPath)
			return nil
		},
	}

	genCmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the deck to a file instead of stdout")

	return genCmd
}
