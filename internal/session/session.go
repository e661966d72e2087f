// Package session runs a study session over the due cards: it hands out
// the most urgent card, applies grades through the scheduler and records
// every review. A file lock keeps concurrent sessions from double-
// scheduling the same cards.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/rote-srs/rote/internal/domain"
	"github.com/rote-srs/rote/internal/sm2"
)

var (
	// ErrActiveSession means another process already holds the session lock.
	ErrActiveSession = errors.New("session: another study session is active")

	// ErrCardNotFound means a grade referenced a card that is not stored.
	ErrCardNotFound = errors.New("session: card not found")
)

// Store is the part of the card repository a session needs.
type Store interface {
	DueCards(asOf time.Time, limit int) ([]domain.Card, error)
	CountDue(asOf time.Time) (int, error)
	FindCardByHash(hash string) (*domain.Card, error)
	SaveCard(card domain.Card) error
	InsertReview(review domain.Review) error
}

// Session serves due cards one at a time and applies grades.
type Session struct {
	store  Store
	lock   *flock.Flock
	limit  int
	graded int
}

// Start opens a session, acquiring the lock file at lockPath. limit caps
// how many cards the session will grade; zero or less means no cap.
func Start(store Store, lockPath string, limit int) (*Session, error) {
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire session lock: %w", err)
	}
	if !ok {
		return nil, ErrActiveSession
	}

	slog.Info("study session started", "lock", lockPath, "limit", limit)
	return &Session{store: store, lock: lock, limit: limit}, nil
}

// Close releases the session lock.
func (s *Session) Close() error {
	if err := s.lock.Unlock(); err != nil {
		return fmt.Errorf("failed to release session lock: %w", err)
	}
	slog.Info("study session closed", "graded", s.graded)
	return nil
}

// Next returns the most urgent due card, or nil when nothing is due or
// the session limit has been reached.
func (s *Session) Next(asOf time.Time) (*domain.Card, error) {
	if s.limit > 0 && s.graded >= s.limit {
		return nil, nil
	}

	cards, err := s.store.DueCards(asOf, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch next due card: %w", err)
	}
	if len(cards) == 0 {
		return nil, nil
	}
	card := cards[0]
	return &card, nil
}

// Remaining reports how many cards are still due at asOf.
func (s *Session) Remaining(asOf time.Time) (int, error) {
	return s.store.CountDue(asOf)
}

// Graded reports how many cards this session has graded so far.
func (s *Session) Graded() int {
	return s.graded
}

// Grade applies a recall rating to a card: the scheduler computes the
// new state, the card is saved and the review joins the audit trail.
// The updated card is returned.
func (s *Session) Grade(hash string, quality sm2.Quality, now time.Time) (*domain.Card, error) {
	card, err := s.store.FindCardByHash(hash)
	if err != nil {
		return nil, fmt.Errorf("failed to load card %s: %w", hash, err)
	}
	if card == nil {
		return nil, ErrCardNotFound
	}

	// Capture the pre-review state before the scheduler replaces it.
	review := domain.Review{
		ID:           uuid.New().String(),
		CardHash:     card.Hash,
		Quality:      int(quality),
		ReviewedAt:   now,
		PrevInterval: card.IntervalDays,
		PrevEase:     card.EaseFactor,
	}

	updated, err := sm2.ReviewCard(*card, quality, now)
	if err != nil {
		return nil, err
	}

	if err := s.store.SaveCard(updated); err != nil {
		return nil, fmt.Errorf("failed to save card %s: %w", hash, err)
	}
	if err := s.store.InsertReview(review); err != nil {
		return nil, fmt.Errorf("failed to record review for card %s: %w", hash, err)
	}

	s.graded++
	slog.Info("card graded",
		"hash", hash,
		"quality", int(quality),
		"interval_days", updated.IntervalDays,
		"next_review", updated.NextReview,
	)
	return &updated, nil
}
