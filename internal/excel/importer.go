// Package excel reads flashcard decks out of spreadsheet files. Both
// xlsx and csv layouts are supported; a row becomes one card.
package excel

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rote-srs/rote/internal/domain"
	"github.com/xuri/excelize/v2"
)

// ImportConfig controls how spreadsheet decks are read.
type ImportConfig struct {
	FilePath       string // Path to the Excel or CSV file
	QuestionColumn string // Column with the question
	AnswerColumn   string // Column with the answer
	ContextColumn  string // Column with the optional context
	SheetName      string // Name of the sheet to import
	StartRow       int    // The row to start importing from (1-based index)
}

// DefaultImportConfig returns a configuration for the conventional deck
// layout: question in column A, answer in B, context in C, one header row.
func DefaultImportConfig(path string) ImportConfig {
	return ImportConfig{
		FilePath:       path,
		QuestionColumn: "A",
		AnswerColumn:   "B",
		ContextColumn:  "C",
		SheetName:      "Sheet1",
		StartRow:       2,
	}
}

// ImportResult tallies what an import did. ReadCards fills Processed,
// Skipped and Errors; the caller reconciling the cards against storage
// fills Created and Updated.
type ImportResult struct {
	Processed int
	Created   int
	Updated   int
	Skipped   int
	Errors    []string
}

// ReadCards extracts cards from an Excel or CSV deck. The returned cards
// carry content only; scheduling state is assigned when they are stored.
func ReadCards(config ImportConfig) ([]domain.Card, *ImportResult, error) {
	ext := strings.ToLower(filepath.Ext(config.FilePath))
	if ext == ".csv" {
		return readCSV(config)
	}
	return readExcel(config)
}

func readExcel(config ImportConfig) ([]domain.Card, *ImportResult, error) {
	f, err := excelize.OpenFile(config.FilePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(config.SheetName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get rows: %w", err)
	}

	result := &ImportResult{Errors: make([]string, 0)}
	var cards []domain.Card

	for i, row := range rows {
		if i < config.StartRow-1 {
			continue
		}
		result.Processed++

		card, err := rowToCard(row, config)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", i+1, err))
			continue
		}
		cards = append(cards, card)
	}

	return cards, result, nil
}

func readCSV(config ImportConfig) ([]domain.Card, *ImportResult, error) {
	file, err := os.Open(config.FilePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true

	result := &ImportResult{Errors: make([]string, 0)}
	var cards []domain.Card

	rowNum := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("error reading CSV: %w", err)
		}

		rowNum++
		if rowNum < config.StartRow {
			continue
		}
		result.Processed++

		card, err := rowToCard(row, config)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", rowNum, err))
			continue
		}
		cards = append(cards, card)
	}

	return cards, result, nil
}

func rowToCard(row []string, config ImportConfig) (domain.Card, error) {
	var question, answer, context string

	if colIdx := columnToIndex(config.QuestionColumn); colIdx >= 0 && colIdx < len(row) {
		question = strings.TrimSpace(row[colIdx])
	}
	if colIdx := columnToIndex(config.AnswerColumn); colIdx >= 0 && colIdx < len(row) {
		answer = strings.TrimSpace(row[colIdx])
	}
	if config.ContextColumn != "" {
		if colIdx := columnToIndex(config.ContextColumn); colIdx >= 0 && colIdx < len(row) {
			context = strings.TrimSpace(row[colIdx])
		}
	}

	if question == "" {
		return domain.Card{}, fmt.Errorf("question cannot be empty")
	}
	if answer == "" {
		return domain.Card{}, fmt.Errorf("answer cannot be empty")
	}

	return domain.Card{Question: question, Answer: answer, Context: context}, nil
}

// columnToIndex converts an Excel column letter to a zero-based index.
// Unknown columns map to -1 so out-of-range lookups fall through.
func columnToIndex(column string) int {
	column = strings.ToUpper(strings.TrimSpace(column))
	if column == "" {
		return -1
	}
	index := 0
	for i := 0; i < len(column); i++ {
		c := column[i]
		if c < 'A' || c > 'Z' {
			return -1
		}
		index = index*26 + int(c-'A'+1)
	}
	return index - 1
}
