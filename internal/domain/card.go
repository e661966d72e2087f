package domain

import "time"

// DefaultEaseFactor is the ease assigned to cards that have never been reviewed.
const DefaultEaseFactor = 2.5

// Card represents a single question-answer-context entry together with
// its scheduling state. Content fields identify the card (see the cardid
// package); the remaining fields are owned by the scheduler and must only
// change through a review.
type Card struct {
	Hash     string
	Question string
	Answer   string
	Context  string

	Repetitions  int
	EaseFactor   float64
	IntervalDays int
	NextReview   time.Time
	LastReviewed *time.Time // nil before first review
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewCard creates a card that is immediately due for review.
func NewCard(question, answer, context string, now time.Time) Card {
	return Card{
		Question:     question,
		Answer:       answer,
		Context:      context,
		Repetitions:  0,
		EaseFactor:   DefaultEaseFactor,
		IntervalDays: 0,
		NextReview:   now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Clone returns a deep copy of the card. Pointer fields are copied by value.
func (c Card) Clone() Card {
	out := c
	if c.LastReviewed != nil {
		v := *c.LastReviewed
		out.LastReviewed = &v
	}
	return out
}

// Review records a single review event for a card. Quality is the 0-5
// recall rating that was fed to the scheduler. PrevInterval and PrevEase
// capture the scheduling state before the review, so a card's history can
// be audited or replayed.
type Review struct {
	ID           string
	CardHash     string
	Quality      int
	ReviewedAt   time.Time
	PrevInterval int
	PrevEase     float64
}
