package sm2

import (
	"sort"
	"time"

	"github.com/rote-srs/rote/internal/domain"
)

// DueCards returns the cards whose NextReview is at or before asOf, sorted
// ascending by NextReview (most overdue first). The sort is stable: cards
// with equal NextReview keep their relative input order. The input slice
// is not modified.
func DueCards(cards []domain.Card, asOf time.Time) []domain.Card {
	var due []domain.Card
	for _, c := range cards {
		if !c.NextReview.After(asOf) {
			due = append(due, c)
		}
	}
	sortByNextReview(due)
	return due
}

// CountDue returns the number of due cards without materializing the sorted
// subset. It agrees with len(DueCards(cards, asOf)) for all inputs.
func CountDue(cards []domain.Card, asOf time.Time) int {
	n := 0
	for _, c := range cards {
		if !c.NextReview.After(asOf) {
			n++
		}
	}
	return n
}

// Buckets groups cards by how urgently they need review.
type Buckets struct {
	Overdue     []domain.Card // missed on an earlier calendar day
	DueToday    []domain.Card // due today, including earlier today
	DueTomorrow []domain.Card
	Upcoming    []domain.Card
}

// BucketByUrgency partitions cards against the reference time asOf.
// A card whose NextReview passed earlier the same calendar day lands in
// DueToday, not Overdue: overdue means the card was due on a previous
// calendar day. Day boundaries are taken in asOf's location, with today
// ending at 23:59:59.999. Each bucket is sorted ascending by NextReview.
func BucketByUrgency(cards []domain.Card, asOf time.Time) Buckets {
	y, m, d := asOf.Date()
	endOfToday := time.Date(y, m, d, 23, 59, 59, 999_000_000, asOf.Location())
	endOfTomorrow := endOfToday.AddDate(0, 0, 1)

	var b Buckets
	for _, c := range cards {
		nr := c.NextReview
		switch {
		case nr.Before(asOf):
			if sameDay(nr, asOf) {
				b.DueToday = append(b.DueToday, c)
			} else {
				b.Overdue = append(b.Overdue, c)
			}
		case !nr.After(endOfToday):
			b.DueToday = append(b.DueToday, c)
		case !nr.After(endOfTomorrow):
			b.DueTomorrow = append(b.DueTomorrow, c)
		default:
			b.Upcoming = append(b.Upcoming, c)
		}
	}

	sortByNextReview(b.Overdue)
	sortByNextReview(b.DueToday)
	sortByNextReview(b.DueTomorrow)
	sortByNextReview(b.Upcoming)
	return b
}

// sameDay reports whether a falls on b's calendar day, in b's location.
func sameDay(a, b time.Time) bool {
	ay, am, ad := a.In(b.Location()).Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func sortByNextReview(cards []domain.Card) {
	sort.SliceStable(cards, func(i, j int) bool {
		return cards[i].NextReview.Before(cards[j].NextReview)
	})
}
