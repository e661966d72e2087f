package parser

import (
	"regexp"
	"strings"

	"github.com/rote-srs/rote/internal/domain"
)

// Definition shapes recognized by GenerateCards.
var (
	sentencePattern = regexp.MustCompile(`[^.!?\n]+[.!?]`)
	definitionLine  = regexp.MustCompile(`^([A-Z][A-Za-z0-9 '()/-]{0,60}?)\s*[:\x{2013}\x{2014}-]\s+(.{3,240})$`)
	definitionSent  = regexp.MustCompile(`^([A-Z][A-Za-z0-9 '()/-]{0,60}?)\s+(is|are)\s+(.{3,240}[.!?])$`)
)

// Pronoun subjects make junk cards.
var skipTerms = map[string]bool{
	"it": true, "this": true, "that": true, "there": true,
	"these": true, "those": true, "he": true, "she": true, "they": true,
}

// GenerateCards scans prose for simple definition shapes and produces
// flashcards from them. It recognizes "Term: definition" lines and
// "Term is/are ..." sentences. The extraction is deliberately naive; it
// gives a deck a starting point, not an understanding of the text.
func GenerateCards(text string) []domain.Card {
	var cards []domain.Card
	seen := make(map[string]bool)

	add := func(question, answer string) {
		key := strings.ToLower(question)
		if seen[key] {
			return
		}
		seen[key] = true
		cards = append(cards, domain.Card{
			Question: question,
			Answer:   strings.TrimSpace(answer),
		})
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || isDeckLine(trimmed) {
			continue
		}
		if m := definitionLine.FindStringSubmatch(trimmed); m != nil {
			add("What is "+m[1]+"?", m[2])
		}
	}

	for _, sentence := range sentencePattern.FindAllString(text, -1) {
		trimmed := strings.TrimSpace(sentence)
		if isDeckLine(trimmed) {
			continue
		}
		m := definitionSent.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		term := stripArticle(m[1])
		if term == "" || skipTerms[strings.ToLower(term)] {
			continue
		}
		add("What "+m[2]+" "+term+"?", m[3])
	}

	return cards
}

func stripArticle(term string) string {
	for _, article := range []string{"A ", "An ", "The "} {
		if strings.HasPrefix(term, article) {
			return strings.TrimSpace(term[len(article):])
		}
	}
	return strings.TrimSpace(term)
}

// isDeckLine reports whether a line is already deck syntax, so running
// generation over an existing deck file does not produce cards about cards.
func isDeckLine(line string) bool {
	return line == "---" ||
		strings.HasPrefix(line, questionPrefix) ||
		strings.HasPrefix(line, answerPrefix) ||
		strings.HasPrefix(line, contextPrefix)
}

// FormatDeck renders cards in the deck format understood by Parse.
func FormatDeck(cards []domain.Card) string {
	var b strings.Builder
	for i, c := range cards {
		if i > 0 {
			b.WriteString("\n---\n\n")
		}
		b.WriteString(questionPrefix + " " + c.Question + "\n")
		b.WriteString(answerPrefix + " " + c.Answer + "\n")
		if c.Context != "" {
			b.WriteString(contextPrefix + " " + c.Context + "\n")
		}
	}
	return b.String()
}
