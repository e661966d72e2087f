package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rote-srs/rote/internal/cardid"
	"github.com/rote-srs/rote/internal/config"
	"github.com/rote-srs/rote/internal/domain"
	"github.com/rote-srs/rote/internal/excel"
	"github.com/rote-srs/rote/internal/storage"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var (
		questionCol string
		answerCol   string
		contextCol  string
		sheet       string
		startRow    int
	)

	importCmd := &cobra.Command{
		Use:   "import <file.xlsx|file.csv>",
		Short: "Import cards from a spreadsheet deck",
		Long: `Import cards from an Excel workbook or CSV file.

Cards whose content already exists in the collection are left untouched,
so re-importing a sheet never resets scheduling state.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			importCfg := excel.DefaultImportConfig(args[0])
			importCfg.QuestionColumn = questionCol
			importCfg.AnswerColumn = answerCol
			importCfg.ContextColumn = contextCol
			importCfg.SheetName = sheet
			importCfg.StartRow = startRow

			cards, result, err := excel.ReadCards(importCfg)
			if err != nil {
				return err
			}

			return ctx.withDB(func(cfg *config.Config, db *storage.DB) error {
				now := time.Now()
				for _, parsed := range cards {
					card := domain.NewCard(parsed.Question, parsed.Answer, parsed.Context, now)
					card.Hash = cardid.Hash(card)

					existing, err := db.FindCardByHash(card.Hash)
					if err != nil {
						return err
					}
					if existing != nil {
						result.Updated++
						continue
					}
					// Imported cards carry no source, so sync never
					// removes them as orphans.
					if err := db.InsertCard(card, 0); err != nil {
						return err
					}
					result.Created++
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Imported %d rows: %d new cards, %d already known, %d skipped.\n",
					result.Processed, result.Created, result.Updated, result.Skipped)
				for _, msg := range result.Errors {
					fmt.Fprintf(out, "  error: %s\n", msg)
				}
				return nil
			})
		},
	}

	def := excel.DefaultImportConfig("")
	importCmd.Flags().StringVar(&questionCol, "question-col", def.QuestionColumn, "Column holding the question")
	importCmd.Flags().StringVar(&answerCol, "answer-col", def.AnswerColumn, "Column holding the answer")
	importCmd.Flags().StringVar(&contextCol, "context-col", def.ContextColumn, "Column holding optional context")
	importCmd.Flags().StringVar(&sheet, "sheet", def.SheetName, "Worksheet to read (Excel only)")
	importCmd.Flags().IntVar(&startRow, "start-row", def.StartRow, "First data row, 1-based")

	return importCmd
}
