package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rote-srs/rote/internal/domain"
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// Source kinds.
const (
	SourceKindLocal = "local"
	SourceKindGit   = "git"
)

// DetectSourceKind infers whether a path names a git repository or a
// local directory.
func DetectSourceKind(path string) string {
	if strings.HasSuffix(path, ".git") ||
		strings.HasPrefix(path, "git@") ||
		strings.HasPrefix(path, "https://") ||
		strings.HasPrefix(path, "http://") {
		return SourceKindGit
	}
	return SourceKindLocal
}

// timeLayout is how timestamps persist: ISO-8601 with millisecond
// precision, always UTC, so TEXT comparison matches time order.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// DB represents a wrapper around the SQL database connection.
type DB struct {
	conn *sql.DB
}

// Open creates a new database connection and ensures the schema is up to date.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// sqlite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: db}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse stored timestamp %q: %w", s, err)
	}
	return t, nil
}

func formatNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

const cardColumns = `hash, question, answer, context, repetitions, ease_factor,
	interval_days, next_review, last_reviewed, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (domain.Card, error) {
	var card domain.Card
	var nextReview, createdAt, updatedAt string
	var lastReviewed sql.NullString

	err := row.Scan(
		&card.Hash,
		&card.Question,
		&card.Answer,
		&card.Context,
		&card.Repetitions,
		&card.EaseFactor,
		&card.IntervalDays,
		&nextReview,
		&lastReviewed,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return domain.Card{}, err
	}

	if card.NextReview, err = parseTime(nextReview); err != nil {
		return domain.Card{}, err
	}
	if card.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.Card{}, err
	}
	if card.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return domain.Card{}, err
	}
	if lastReviewed.Valid {
		t, err := parseTime(lastReviewed.String)
		if err != nil {
			return domain.Card{}, err
		}
		card.LastReviewed = &t
	}

	return card, nil
}

// InsertCard inserts a new card, scheduling state included, into the
// database. A sourceID of zero or less records the card as sourceless.
func (db *DB) InsertCard(card domain.Card, sourceID int64) error {
	var src any
	if sourceID > 0 {
		src = sourceID
	}

	_, err := db.conn.Exec(`
		INSERT INTO cards (hash, question, answer, context, repetitions, ease_factor,
			interval_days, next_review, last_reviewed, created_at, updated_at, source_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		card.Hash,
		card.Question,
		card.Answer,
		card.Context,
		card.Repetitions,
		card.EaseFactor,
		card.IntervalDays,
		formatTime(card.NextReview),
		formatNullableTime(card.LastReviewed),
		formatTime(card.CreatedAt),
		formatTime(card.UpdatedAt),
		src,
	)
	if err != nil {
		return fmt.Errorf("failed to insert card %s: %w", card.Hash, err)
	}
	return nil
}

// SaveCard updates an existing card's scheduling state.
func (db *DB) SaveCard(card domain.Card) error {
	res, err := db.conn.Exec(`
		UPDATE cards
		SET repetitions = ?, ease_factor = ?, interval_days = ?,
			next_review = ?, last_reviewed = ?, updated_at = ?
		WHERE hash = ?
	`,
		card.Repetitions,
		card.EaseFactor,
		card.IntervalDays,
		formatTime(card.NextReview),
		formatNullableTime(card.LastReviewed),
		formatTime(card.UpdatedAt),
		card.Hash,
	)
	if err != nil {
		return fmt.Errorf("failed to save card %s: %w", card.Hash, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to save card %s: no such card", card.Hash)
	}
	return nil
}

// FindCardByHash retrieves a card by its hash. It returns (nil, nil)
// when the card does not exist.
func (db *DB) FindCardByHash(hash string) (*domain.Card, error) {
	row := db.conn.QueryRow(`
		SELECT `+cardColumns+`
		FROM cards WHERE hash = ?
	`, hash)

	card, err := scanCard(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Card not found
		}
		return nil, fmt.Errorf("failed to find card by hash %s: %w", hash, err)
	}
	return &card, nil
}

// GetAllCards retrieves every stored card, earliest next review first.
func (db *DB) GetAllCards() ([]domain.Card, error) {
	rows, err := db.conn.Query(`
		SELECT ` + cardColumns + `
		FROM cards ORDER BY next_review, rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all cards: %w", err)
	}
	defer rows.Close()

	return collectCards(rows)
}

// DueCards retrieves cards whose next review is at or before asOf,
// earliest first. A limit of zero or less means no limit.
func (db *DB) DueCards(asOf time.Time, limit int) ([]domain.Card, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.conn.Query(`
		SELECT `+cardColumns+`
		FROM cards WHERE next_review <= ?
		ORDER BY next_review, rowid
		LIMIT ?
	`, formatTime(asOf), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get due cards: %w", err)
	}
	defer rows.Close()

	return collectCards(rows)
}

// CountDue reports how many cards are due at asOf.
func (db *DB) CountDue(asOf time.Time) (int, error) {
	var count int
	err := db.conn.QueryRow(`
		SELECT COUNT(*) FROM cards WHERE next_review <= ?
	`, formatTime(asOf)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count due cards: %w", err)
	}
	return count, nil
}

// GetCardsBySourceID retrieves all cards associated with a specific source.
func (db *DB) GetCardsBySourceID(sourceID int64) ([]domain.Card, error) {
	rows, err := db.conn.Query(`
		SELECT `+cardColumns+`
		FROM cards WHERE source_id = ?
		ORDER BY rowid
	`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cards for source ID %d: %w", sourceID, err)
	}
	defer rows.Close()

	return collectCards(rows)
}

func collectCards(rows *sql.Rows) ([]domain.Card, error) {
	var cards []domain.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card row: %w", err)
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read card rows: %w", err)
	}
	return cards, nil
}

// DeleteCardByHash removes a card and its review history by hash.
func (db *DB) DeleteCardByHash(hash string) error {
	if _, err := db.conn.Exec(`DELETE FROM reviews WHERE card_hash = ?`, hash); err != nil {
		return fmt.Errorf("failed to delete reviews for card %s: %w", hash, err)
	}
	if _, err := db.conn.Exec(`DELETE FROM cards WHERE hash = ?`, hash); err != nil {
		return fmt.Errorf("failed to delete card with hash %s: %w", hash, err)
	}
	return nil
}

// InsertReview appends a review to the audit trail.
func (db *DB) InsertReview(review domain.Review) error {
	_, err := db.conn.Exec(`
		INSERT INTO reviews (id, card_hash, quality, reviewed_at, prev_interval, prev_ease)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		review.ID,
		review.CardHash,
		review.Quality,
		formatTime(review.ReviewedAt),
		review.PrevInterval,
		review.PrevEase,
	)
	if err != nil {
		return fmt.Errorf("failed to insert review for card %s: %w", review.CardHash, err)
	}
	return nil
}

// ReviewsForCard retrieves a card's review history, oldest first.
func (db *DB) ReviewsForCard(hash string) ([]domain.Review, error) {
	rows, err := db.conn.Query(`
		SELECT id, card_hash, quality, reviewed_at, prev_interval, prev_ease
		FROM reviews WHERE card_hash = ?
		ORDER BY reviewed_at, rowid
	`, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to get reviews for card %s: %w", hash, err)
	}
	defer rows.Close()

	var reviews []domain.Review
	for rows.Next() {
		var r domain.Review
		var reviewedAt string
		if err := rows.Scan(&r.ID, &r.CardHash, &r.Quality, &reviewedAt, &r.PrevInterval, &r.PrevEase); err != nil {
			return nil, fmt.Errorf("failed to scan review row: %w", err)
		}
		if r.ReviewedAt, err = parseTime(reviewedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read review rows: %w", err)
	}
	return reviews, nil
}

// Source represents a card source, either a local path or a Git URL.
type Source struct {
	ID          int64
	Path        string
	Kind        string
	LastScanned *time.Time
}

// InsertSource inserts a new source and returns its ID.
func (db *DB) InsertSource(path, kind string) (int64, error) {
	res, err := db.conn.Exec(`
		INSERT INTO sources (path, kind)
		VALUES (?, ?)
	`, path, kind)
	if err != nil {
		return 0, fmt.Errorf("failed to insert source %s: %w", path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for source %s: %w", path, err)
	}
	return id, nil
}

// FindSourceByPath retrieves a source by its path. It returns (nil, nil)
// when the source does not exist.
func (db *DB) FindSourceByPath(path string) (*Source, error) {
	row := db.conn.QueryRow(`
		SELECT id, path, kind, last_scanned
		FROM sources WHERE path = ?
	`, path)

	s, err := scanSource(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Source not found
		}
		return nil, fmt.Errorf("failed to find source by path %s: %w", path, err)
	}
	return &s, nil
}

// GetAllSources retrieves all stored sources.
func (db *DB) GetAllSources() ([]Source, error) {
	rows, err := db.conn.Query(`
		SELECT id, path, kind, last_scanned
		FROM sources ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		s, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read source rows: %w", err)
	}
	return sources, nil
}

func scanSource(row rowScanner) (Source, error) {
	var s Source
	var lastScanned sql.NullString
	if err := row.Scan(&s.ID, &s.Path, &s.Kind, &lastScanned); err != nil {
		return Source{}, err
	}
	if lastScanned.Valid {
		t, err := parseTime(lastScanned.String)
		if err != nil {
			return Source{}, err
		}
		s.LastScanned = &t
	}
	return s, nil
}

// DeleteSource removes a source. Cards that came from it are kept but
// detached, so their review history survives.
func (db *DB) DeleteSource(id int64) error {
	if _, err := db.conn.Exec(`UPDATE cards SET source_id = NULL WHERE source_id = ?`, id); err != nil {
		return fmt.Errorf("failed to detach cards for source ID %d: %w", id, err)
	}
	if _, err := db.conn.Exec(`DELETE FROM sources WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete source ID %d: %w", id, err)
	}
	return nil
}

// UpdateSourceLastScanned updates the last_scanned timestamp for a source.
func (db *DB) UpdateSourceLastScanned(sourceID int64, at time.Time) error {
	_, err := db.conn.Exec(`
		UPDATE sources
		SET last_scanned = ?
		WHERE id = ?
	`, formatTime(at), sourceID)
	if err != nil {
		return fmt.Errorf("failed to update last scanned for source ID %d: %w", sourceID, err)
	}
	return nil
}

// Stats summarizes the state of the collection.
type Stats struct {
	TotalCards   int
	TotalSources int
	TotalReviews int
	DueNow       int
	Learned      int // cards with at least one successful review
	AverageEase  float64
}

// Stats computes collection-wide counters as of the given time.
func (db *DB) Stats(asOf time.Time) (*Stats, error) {
	var s Stats
	err := db.conn.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM cards),
			(SELECT COUNT(*) FROM sources),
			(SELECT COUNT(*) FROM reviews),
			(SELECT COUNT(*) FROM cards WHERE next_review <= ?),
			(SELECT COUNT(*) FROM cards WHERE repetitions > 0),
			(SELECT COALESCE(AVG(ease_factor), 0) FROM cards)
	`, formatTime(asOf)).Scan(
		&s.TotalCards,
		&s.TotalSources,
		&s.TotalReviews,
		&s.DueNow,
		&s.Learned,
		&s.AverageEase,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}
	return &s, nil
}
