package sm2

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rote-srs/rote/internal/domain"
)

var t0 = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

const epsilon = 1e-9

func assertFloat(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > epsilon {
		t.Errorf("%s = %.6f, want %.6f (diff %.6f)", name, got, want, math.Abs(got-want))
	}
}

func mustNextState(t *testing.T, s State, q Quality) State {
	t.Helper()
	next, err := NextState(s, q)
	if err != nil {
		t.Fatalf("NextState(%+v, %d): %v", s, q, err)
	}
	return next
}

// --- NextState: canonical progressions ---

func TestNextStateNewCardGood(t *testing.T) {
	next := mustNextState(t, NewState(), CorrectHesitation)

	if next.Repetitions != 1 {
		t.Errorf("Repetitions = %d, want 1", next.Repetitions)
	}
	if next.Interval != 1 {
		t.Errorf("Interval = %d, want 1", next.Interval)
	}
	// quality 4 has a zero ease delta
	assertFloat(t, "EaseFactor", next.EaseFactor, 2.5)
}

func TestNextStateSecondSuccess(t *testing.T) {
	next := mustNextState(t, State{Repetitions: 1, EaseFactor: 2.5, Interval: 1}, CorrectHesitation)

	if next.Repetitions != 2 {
		t.Errorf("Repetitions = %d, want 2", next.Repetitions)
	}
	if next.Interval != 6 {
		t.Errorf("Interval = %d, want 6", next.Interval)
	}
	assertFloat(t, "EaseFactor", next.EaseFactor, 2.5)
}

func TestNextStateThirdSuccessScalesInterval(t *testing.T) {
	next := mustNextState(t, State{Repetitions: 2, EaseFactor: 2.6, Interval: 6}, CorrectHesitation)

	if next.Repetitions != 3 {
		t.Errorf("Repetitions = %d, want 3", next.Repetitions)
	}
	// round(6 * 2.6) = round(15.6) = 16
	if next.Interval != 16 {
		t.Errorf("Interval = %d, want 16", next.Interval)
	}
	assertFloat(t, "EaseFactor", next.EaseFactor, 2.6)
}

func TestNextStateIntervalRoundsHalfUp(t *testing.T) {
	next := mustNextState(t, State{Repetitions: 2, EaseFactor: 2.5, Interval: 5}, CorrectHesitation)

	// 5 * 2.5 = 12.5 rounds up to 13, not down to 12.
	if next.Interval != 13 {
		t.Errorf("Interval = %d, want 13", next.Interval)
	}
}

func TestNextStatePerfectRaisesEase(t *testing.T) {
	next := mustNextState(t, NewState(), Perfect)

	// quality 5 delta is +0.1
	assertFloat(t, "EaseFactor", next.EaseFactor, 2.6)
	if next.Repetitions != 1 || next.Interval != 1 {
		t.Errorf("got {reps:%d interval:%d}, want {reps:1 interval:1}", next.Repetitions, next.Interval)
	}
}

func TestNextStateDifficultLowersEase(t *testing.T) {
	next := mustNextState(t, NewState(), CorrectDifficult)

	// quality 3 delta is -0.14
	assertFloat(t, "EaseFactor", next.EaseFactor, 2.36)
	if next.Repetitions != 1 || next.Interval != 1 {
		t.Errorf("got {reps:%d interval:%d}, want {reps:1 interval:1}", next.Repetitions, next.Interval)
	}
}

// --- NextState: failures ---

func TestNextStateFailureResets(t *testing.T) {
	next := mustNextState(t, State{Repetitions: 5, EaseFactor: 2.8, Interval: 30}, IncorrectFamiliar)

	if next.Repetitions != 0 {
		t.Errorf("Repetitions = %d, want 0", next.Repetitions)
	}
	if next.Interval != 1 {
		t.Errorf("Interval = %d, want 1", next.Interval)
	}
	// quality 2 delta is -0.32; the penalty still lands on a failed review
	assertFloat(t, "EaseFactor", next.EaseFactor, 2.48)
}

func TestNextStateFailureKeepsEasePenalty(t *testing.T) {
	// Current behavior: the ease delta applies even when recall failed,
	// so a lapse leaves a lasting mark on the card's ease.
	next := mustNextState(t, State{Repetitions: 3, EaseFactor: 2.5, Interval: 15}, Incorrect)

	// quality 1 delta is -0.54
	assertFloat(t, "EaseFactor", next.EaseFactor, 1.96)
	if next.Repetitions != 0 || next.Interval != 1 {
		t.Errorf("got {reps:%d interval:%d}, want {reps:0 interval:1}", next.Repetitions, next.Interval)
	}
}

func TestNextStateEaseClampedAtFloor(t *testing.T) {
	next := mustNextState(t, State{Repetitions: 2, EaseFactor: 1.35, Interval: 6}, Blackout)

	// quality 0 delta is -0.8; 1.35 - 0.8 clamps to the 1.3 floor
	assertFloat(t, "EaseFactor", next.EaseFactor, 1.3)
	if next.Repetitions != 0 || next.Interval != 1 {
		t.Errorf("got {reps:%d interval:%d}, want {reps:0 interval:1}", next.Repetitions, next.Interval)
	}
}

func TestNextStateEaseNeverBelowFloor(t *testing.T) {
	for q := Blackout; q <= Perfect; q++ {
		s := State{Repetitions: 1, EaseFactor: MinEaseFactor, Interval: 1}
		next := mustNextState(t, s, q)
		if next.EaseFactor < MinEaseFactor {
			t.Errorf("quality %d: EaseFactor = %v, want >= %v", q, next.EaseFactor, MinEaseFactor)
		}
	}
}

// --- NextState: input validation ---

func TestNextStateInvalidQuality(t *testing.T) {
	for _, q := range []Quality{-1, 6, 100} {
		_, err := NextState(NewState(), q)
		if !errors.Is(err, ErrInvalidQuality) {
			t.Errorf("NextState(q=%d) error = %v, want ErrInvalidQuality", q, err)
		}
	}
}

func TestNextStateDoesNotMutateInput(t *testing.T) {
	s := State{Repetitions: 2, EaseFactor: 2.6, Interval: 6}
	snapshot := s
	mustNextState(t, s, Perfect)
	if s != snapshot {
		t.Errorf("input state mutated: %+v, want %+v", s, snapshot)
	}
}

// --- NextDue ---

func TestNextDueAddsCalendarDays(t *testing.T) {
	s := State{Repetitions: 2, EaseFactor: 2.5, Interval: 6}
	want := time.Date(2025, 6, 21, 10, 0, 0, 0, time.UTC)
	if got := NextDue(s, t0); !got.Equal(want) {
		t.Errorf("NextDue = %v, want %v", got, want)
	}
}

func TestNextDueCrossesMonthBoundary(t *testing.T) {
	reviewed := time.Date(2025, 6, 28, 9, 30, 0, 0, time.UTC)
	s := State{Interval: 5}
	want := time.Date(2025, 7, 3, 9, 30, 0, 0, time.UTC)
	if got := NextDue(s, reviewed); !got.Equal(want) {
		t.Errorf("NextDue = %v, want %v", got, want)
	}
}

// --- ReviewCard ---

func TestReviewCardUpdatesCopy(t *testing.T) {
	card := domain.NewCard("Q", "A", "", t0.AddDate(0, 0, -7))
	card.Hash = "abc"

	now := t0
	updated, err := ReviewCard(card, CorrectHesitation, now)
	if err != nil {
		t.Fatalf("ReviewCard: %v", err)
	}

	if updated.Repetitions != 1 || updated.IntervalDays != 1 {
		t.Errorf("got {reps:%d interval:%d}, want {reps:1 interval:1}", updated.Repetitions, updated.IntervalDays)
	}
	assertFloat(t, "EaseFactor", updated.EaseFactor, 2.5)

	wantDue := now.AddDate(0, 0, updated.IntervalDays)
	if !updated.NextReview.Equal(wantDue) {
		t.Errorf("NextReview = %v, want %v", updated.NextReview, wantDue)
	}
	if updated.LastReviewed == nil || !updated.LastReviewed.Equal(now) {
		t.Errorf("LastReviewed = %v, want %v", updated.LastReviewed, now)
	}
	if !updated.UpdatedAt.Equal(now) {
		t.Errorf("UpdatedAt = %v, want %v", updated.UpdatedAt, now)
	}
	if updated.Hash != "abc" || updated.Question != "Q" || updated.Answer != "A" {
		t.Errorf("content fields changed: %+v", updated)
	}
}

func TestReviewCardDoesNotMutateOriginal(t *testing.T) {
	prev := t0.AddDate(0, 0, -6)
	card := domain.NewCard("Q", "A", "C", t0.AddDate(0, 0, -30))
	card.Repetitions = 2
	card.EaseFactor = 2.5
	card.IntervalDays = 6
	card.NextReview = t0
	card.LastReviewed = &prev

	snapshot := card.Clone()

	updated, err := ReviewCard(card, Perfect, t0)
	if err != nil {
		t.Fatalf("ReviewCard: %v", err)
	}

	if card.Repetitions != snapshot.Repetitions ||
		card.EaseFactor != snapshot.EaseFactor ||
		card.IntervalDays != snapshot.IntervalDays ||
		!card.NextReview.Equal(snapshot.NextReview) ||
		!card.UpdatedAt.Equal(snapshot.UpdatedAt) {
		t.Errorf("original card mutated: %+v, want %+v", card, snapshot)
	}
	if card.LastReviewed == nil || !card.LastReviewed.Equal(prev) {
		t.Errorf("original LastReviewed = %v, want %v", card.LastReviewed, prev)
	}

	// The copy must not share the LastReviewed pointer with the original.
	if updated.LastReviewed == card.LastReviewed {
		t.Error("updated card shares LastReviewed pointer with original")
	}
}

func TestReviewCardInvalidQuality(t *testing.T) {
	card := domain.NewCard("Q", "A", "", t0)
	snapshot := card.Clone()

	_, err := ReviewCard(card, Quality(9), t0)
	if !errors.Is(err, ErrInvalidQuality) {
		t.Fatalf("error = %v, want ErrInvalidQuality", err)
	}
	if card.Repetitions != snapshot.Repetitions || !card.NextReview.Equal(snapshot.NextReview) {
		t.Errorf("card mutated on failed review: %+v", card)
	}
}

func TestReviewCardFullProgression(t *testing.T) {
	// Good reviews on consecutive due dates: 1 day, 6 days, then ease-scaled.
	card := domain.NewCard("Q", "A", "", t0)
	card.Hash = "abc"

	now := t0
	intervals := []int{1, 6, 15} // round(6*2.5) = 15
	for i, want := range intervals {
		var err error
		card, err = ReviewCard(card, CorrectHesitation, now)
		if err != nil {
			t.Fatalf("review %d: %v", i+1, err)
		}
		if card.IntervalDays != want {
			t.Errorf("review %d: IntervalDays = %d, want %d", i+1, card.IntervalDays, want)
		}
		if card.Repetitions != i+1 {
			t.Errorf("review %d: Repetitions = %d, want %d", i+1, card.Repetitions, i+1)
		}
		now = card.NextReview
	}
}
