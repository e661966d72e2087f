package storage

const schema = `
-- The 'cards' table stores each flashcard together with its scheduling state.
-- Timestamps are ISO-8601 text in UTC so lexical order is chronological.
CREATE TABLE IF NOT EXISTS cards (
    hash TEXT PRIMARY KEY,
    question TEXT NOT NULL,
    answer TEXT NOT NULL DEFAULT '',
    context TEXT NOT NULL DEFAULT '',
    repetitions INTEGER NOT NULL DEFAULT 0,
    ease_factor REAL NOT NULL DEFAULT 2.5,
    interval_days INTEGER NOT NULL DEFAULT 0,
    next_review TEXT NOT NULL,
    last_reviewed TEXT,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    source_id INTEGER,

    FOREIGN KEY(source_id) REFERENCES sources(id)
);

CREATE INDEX IF NOT EXISTS idx_cards_next_review ON cards(next_review);

-- The 'reviews' table is an append-only audit trail of every grading,
-- keeping the scheduling state the card had before the review.
CREATE TABLE IF NOT EXISTS reviews (
    id TEXT PRIMARY KEY,
    card_hash TEXT NOT NULL,
    quality INTEGER NOT NULL,
    reviewed_at TEXT NOT NULL,
    prev_interval INTEGER NOT NULL,
    prev_ease REAL NOT NULL,

    FOREIGN KEY(card_hash) REFERENCES cards(hash)
);

CREATE INDEX IF NOT EXISTS idx_reviews_card_hash ON reviews(card_hash);

-- The 'sources' table tracks the origin of the cards, either a local
-- directory or a git repository.
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    kind TEXT NOT NULL DEFAULT 'local',
    last_scanned TEXT
);
`
