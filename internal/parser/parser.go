package parser

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/rote-srs/rote/internal/domain"
)

const (
	questionPrefix = "Q:"
	answerPrefix   = "A:"
	contextPrefix  = "C:"
)

type state int

const (
	seeking state = iota
	readingQuestion
	readingAnswer
	readingContext
)

// ParseFile reads a deck file from the given path and extracts all cards.
func ParseFile(path string) ([]domain.Card, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads a deck from r and extracts all cards. A card starts at a
// "Q:" line; "A:" and "C:" lines open the answer and context blocks, each
// of which may continue over following lines. A "---" line or the next
// "Q:" line ends the card. Cards without a question are dropped.
func Parse(r io.Reader) ([]domain.Card, error) {
	scanner := bufio.NewScanner(r)
	var cards []domain.Card
	var current domain.Card
	var block []string
	st := seeking

	flushBlock := func() {
		if len(block) == 0 {
			return
		}
		content := strings.Join(block, "\n")
		switch st {
		case readingQuestion:
			current.Question = content
		case readingAnswer:
			current.Answer = content
		case readingContext:
			current.Context = content
		}
		block = nil
	}

	finishCard := func() {
		flushBlock()
		if current.Question != "" {
			cards = append(cards, current)
		}
		current = domain.Card{}
		st = seeking
	}

	for scanner.Scan() {
		line := scanner.Text()

		if line == "---" {
			finishCard()
			continue
		}

		switch {
		case strings.HasPrefix(line, questionPrefix):
			// A new question always starts a new card.
			if st != seeking {
				finishCard()
			}
			st = readingQuestion
			block = append(block, stripMarker(line, questionPrefix))
		case strings.HasPrefix(line, answerPrefix):
			flushBlock()
			st = readingAnswer
			block = append(block, stripMarker(line, answerPrefix))
		case strings.HasPrefix(line, contextPrefix):
			flushBlock()
			st = readingContext
			block = append(block, stripMarker(line, contextPrefix))
		default:
			if st != seeking {
				block = append(block, line)
			}
		}
	}
	finishCard() // the last card has no trailing separator

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cards, nil
}

// stripMarker removes the field marker and at most one following space.
func stripMarker(line, prefix string) string {
	return strings.TrimPrefix(line[len(prefix):], " ")
}
