// Package cardid derives a stable content-addressed identity for cards.
// Two cards that differ only in whitespace, letter case or line endings
// hash to the same identity, so re-parsing a deck never duplicates them.
package cardid

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/rote-srs/rote/internal/domain"
)

// Normalize concatenates the card's content after cleaning each part.
// It trims whitespace, lowercases, and normalizes line endings for each
// field before joining them.
func Normalize(card domain.Card) string {
	normalizePart := func(part string) string {
		p := strings.ToLower(part)
		p = strings.TrimSpace(p)
		p = strings.ReplaceAll(p, "\r\n", "\n")
		return p
	}

	q := normalizePart(card.Question)
	a := normalizePart(card.Answer)
	c := normalizePart(card.Context)

	// Fields are joined with a newline so that adjacent fields can never
	// run together, e.g. "question" + "answer" becoming "questionanswer".
	return strings.Join([]string{q, a, c}, "\n")
}

// Hash normalizes the card and returns its SHA-256 hash as a hex string.
func Hash(card domain.Card) string {
	normalized := Normalize(card)
	hashBytes := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", hashBytes)
}
