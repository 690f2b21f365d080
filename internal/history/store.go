// Package history persists watch progress and favorites in a local SQLite
// database so resume points survive restarts.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/iptvdeck/iptvdeck/internal/log"
)

// ErrNotFound is returned when no progress record exists for an item.
var ErrNotFound = errors.New("history: not found")

// completedThreshold marks an item as finished; finished VOD entries are
// pruned from the resume list rather than resuming in the credits.
const completedThreshold = 0.95

// Entry is a single watch-progress record.
type Entry struct {
	ContentKind string    `json:"kind"` // live, movie, series
	ContentID   string    `json:"content_id"`
	Title       string    `json:"title"`
	Position    float64   `json:"position"`
	Duration    float64   `json:"duration"`
	WatchedAt   time.Time `json:"watched_at"`
}

// Favorite is a pinned channel or title.
type Favorite struct {
	ContentKind string    `json:"kind"`
	ContentID   string    `json:"content_id"`
	Title       string    `json:"title"`
	AddedAt     time.Time `json:"added_at"`
}

// Store wraps the SQLite connection.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS progress (
	kind       TEXT NOT NULL,
	content_id TEXT NOT NULL,
	title      TEXT NOT NULL DEFAULT '',
	position   REAL NOT NULL,
	duration   REAL NOT NULL,
	watched_at INTEGER NOT NULL,
	PRIMARY KEY (kind, content_id)
);
CREATE TABLE IF NOT EXISTS favorites (
	kind       TEXT NOT NULL,
	content_id TEXT NOT NULL,
	title      TEXT NOT NULL DEFAULT '',
	added_at   INTEGER NOT NULL,
	PRIMARY KEY (kind, content_id)
);
CREATE INDEX IF NOT EXISTS idx_progress_watched ON progress (watched_at DESC);
`

// Open creates or opens the database at path and applies the schema.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	// modernc/sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent updates.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply history schema: %w", err)
	}
	return &Store{db: db, log: log.WithComponent("history")}, nil
}

// Close releases the database.
func (s *Store) Close() error { return s.db.Close() }

// SaveProgress upserts the resume point for an item. Items watched past the
// completion threshold are removed instead, so they start over next time.
func (s *Store) SaveProgress(ctx context.Context, e Entry) error {
	if e.ContentID == "" || e.ContentKind == "" {
		return errors.New("history: kind and content id are required")
	}
	if e.Duration > 0 && e.Position/e.Duration >= completedThreshold {
		return s.DeleteProgress(ctx, e.ContentKind, e.ContentID)
	}
	if e.WatchedAt.IsZero() {
		e.WatchedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO progress (kind, content_id, title, position, duration, watched_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (kind, content_id) DO UPDATE SET
			title = excluded.title,
			position = excluded.position,
			duration = excluded.duration,
			watched_at = excluded.watched_at`,
		e.ContentKind, e.ContentID, e.Title, e.Position, e.Duration, e.WatchedAt.Unix())
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

// Progress returns the resume point for an item.
func (s *Store) Progress(ctx context.Context, kind, contentID string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT kind, content_id, title, position, duration, watched_at
		FROM progress WHERE kind = ? AND content_id = ?`, kind, contentID)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	return e, err
}

// DeleteProgress removes the resume point for an item.
func (s *Store) DeleteProgress(ctx context.Context, kind, contentID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM progress WHERE kind = ? AND content_id = ?`, kind, contentID)
	return err
}

// Recent lists resume points, most recently watched first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, content_id, title, position, duration, watched_at
		FROM progress ORDER BY watched_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// AddFavorite pins an item. Adding twice is a no-op.
func (s *Store) AddFavorite(ctx context.Context, f Favorite) error {
	if f.ContentID == "" || f.ContentKind == "" {
		return errors.New("history: kind and content id are required")
	}
	if f.AddedAt.IsZero() {
		f.AddedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO favorites (kind, content_id, title, added_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (kind, content_id) DO NOTHING`,
		f.ContentKind, f.ContentID, f.Title, f.AddedAt.Unix())
	if err != nil {
		return fmt.Errorf("add favorite: %w", err)
	}
	return nil
}

// RemoveFavorite unpins an item.
func (s *Store) RemoveFavorite(ctx context.Context, kind, contentID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM favorites WHERE kind = ? AND content_id = ?`, kind, contentID)
	return err
}

// Favorites lists pinned items, newest first.
func (s *Store) Favorites(ctx context.Context) ([]Favorite, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, content_id, title, added_at
		FROM favorites ORDER BY added_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()

	var out []Favorite
	for rows.Next() {
		var f Favorite
		var ts int64
		if err := rows.Scan(&f.ContentKind, &f.ContentID, &f.Title, &ts); err != nil {
			return nil, err
		}
		f.AddedAt = time.Unix(ts, 0)
		out = append(out, f)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(r rowScanner) (Entry, error) {
	var e Entry
	var ts int64
	if err := r.Scan(&e.ContentKind, &e.ContentID, &e.Title, &e.Position, &e.Duration, &ts); err != nil {
		return Entry{}, err
	}
	e.WatchedAt = time.Unix(ts, 0)
	return e, nil
}
