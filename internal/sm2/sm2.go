// Package sm2 implements the SM-2 spaced-repetition algorithm used to
// schedule card reviews: given a card's scheduling state and a 0-5 quality
// rating, it computes the next repetition count, ease factor, interval and
// due date. All operations are pure; inputs are never mutated, and callers
// supply the reference time explicitly.
package sm2

import (
	"fmt"
	"math"
	"time"

	"github.com/rote-srs/rote/internal/domain"
)

// MinEaseFactor is the hard floor for a card's ease factor.
const MinEaseFactor = 1.3

// State is the scheduling triple the algorithm operates on.
type State struct {
	Repetitions int     // consecutive successful reviews since the last failure
	EaseFactor  float64 // >= MinEaseFactor
	Interval    int     // days until the next review, as of the last computation
}

// NewState returns the state assigned to a card that has never been reviewed.
func NewState() State {
	return State{Repetitions: 0, EaseFactor: domain.DefaultEaseFactor, Interval: 0}
}

// StateOf extracts the scheduling triple from a card.
func StateOf(card domain.Card) State {
	return State{
		Repetitions: card.Repetitions,
		EaseFactor:  card.EaseFactor,
		Interval:    card.IntervalDays,
	}
}

// NextState computes the scheduling state that follows a review with the
// given quality. The ease factor is adjusted on every review, failures
// included: a failed recall (quality < 3) resets repetitions and interval
// while the ease penalty remains. The first successful review schedules
// 1 day out, the second 6 days, and later ones scale the previous interval
// by the new ease factor.
func NextState(s State, q Quality) (State, error) {
	if !q.IsValid() {
		return State{}, fmt.Errorf("%w: %d", ErrInvalidQuality, int(q))
	}

	ef := s.EaseFactor + (0.1 - (5.0-float64(q))*(0.08+(5.0-float64(q))*0.02))
	if ef < MinEaseFactor {
		ef = MinEaseFactor
	}

	var next State
	if q < CorrectDifficult {
		next.Repetitions = 0
		next.Interval = 1
	} else {
		next.Repetitions = s.Repetitions + 1
		switch next.Repetitions {
		case 1:
			next.Interval = 1
		case 2:
			next.Interval = 6
		default:
			// The previous interval scaled by the unrounded new ease factor.
			next.Interval = roundHalfUp(float64(s.Interval) * ef)
		}
	}
	next.EaseFactor = roundEase(ef)
	return next, nil
}

// NextDue returns when a card with the given state comes due again,
// counted in calendar days from the review time.
func NextDue(s State, reviewedAt time.Time) time.Time {
	return reviewedAt.AddDate(0, 0, s.Interval)
}

// ReviewCard applies a review to a card at the given time and returns the
// updated copy. The input card is not mutated; callers holding the old
// value keep it unchanged even after the call.
func ReviewCard(card domain.Card, q Quality, now time.Time) (domain.Card, error) {
	next, err := NextState(StateOf(card), q)
	if err != nil {
		return domain.Card{}, err
	}

	c := card.Clone()
	c.Repetitions = next.Repetitions
	c.EaseFactor = next.EaseFactor
	c.IntervalDays = next.Interval
	c.NextReview = NextDue(next, now)
	reviewed := now
	c.LastReviewed = &reviewed
	c.UpdatedAt = now
	return c, nil
}

// roundHalfUp rounds positive x to the nearest integer, with .5 rounding up.
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

// roundEase rounds an ease factor to two decimal places, with halves up.
func roundEase(ef float64) float64 {
	return math.Floor(ef*100+0.5) / 100
}
