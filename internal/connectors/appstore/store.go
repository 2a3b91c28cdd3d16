package appstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"go-indexing-qa-console/internal/qa"
)

// Pages a saved view can belong to.
var viewPages = map[string]struct{}{
	"dashboard":    {},
	"records":      {},
	"analytics":    {},
	"dead_letters": {},
}

// ErrInvalidView is returned when a saved view fails validation.
var ErrInvalidView = errors.New("invalid saved view")

// SavedView is a named filter selection persisted by the console.
type SavedView struct {
	ID        int64            `json:"id"`
	Name      string           `json:"name"`
	Page      string           `json:"page"`
	Filters   qa.RecordFilters `json:"filters"`
	CreatedAt *time.Time       `json:"created_at,omitempty"`
	UpdatedAt *time.Time       `json:"updated_at,omitempty"`
}

// JournalEntry records one mutation issued through the console.
type JournalEntry struct {
	ID        int64      `json:"id"`
	Action    string     `json:"action"`
	Target    string     `json:"target"`
	Actor     string     `json:"actor"`
	OK        bool       `json:"ok"`
	Detail    string     `json:"detail,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// Store is the console's own SQLite database.
type Store struct {
	db *sql.DB
}

var schema = []string{
	`
CREATE TABLE IF NOT EXISTS saved_views (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL UNIQUE,
  page TEXT NOT NULL DEFAULT 'records',
  filters_json TEXT NOT NULL,
  created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);`,
	`CREATE INDEX IF NOT EXISTS idx_sv_page ON saved_views(page);`,
	`
CREATE TABLE IF NOT EXISTS action_journal (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  action TEXT NOT NULL,
  target TEXT NOT NULL DEFAULT '',
  actor TEXT NOT NULL DEFAULT '',
  ok INTEGER NOT NULL DEFAULT 1,
  detail TEXT NOT NULL DEFAULT '',
  created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);`,
	`CREATE INDEX IF NOT EXISTS idx_aj_action ON action_journal(action);`,
}

func NewSQLiteStore(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite path required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ListViews(ctx context.Context, page string, limit int) ([]SavedView, error) {
	page = strings.ToLower(strings.TrimSpace(page))
	rows, err := s.db.QueryContext(ctx, `
SELECT id, name, page, filters_json, created_at, updated_at
FROM saved_views
WHERE (? = '' OR page = ?)
ORDER BY name ASC
LIMIT ?;
`, page, page, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]SavedView, 0)
	for rows.Next() {
		var (
			item      SavedView
			filters   string
			createdAt sql.NullTime
			updatedAt sql.NullTime
		)
		if err := rows.Scan(&item.ID, &item.Name, &item.Page, &filters, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(filters), &item.Filters); err != nil {
			return nil, fmt.Errorf("view %d: decode filters: %w", item.ID, err)
		}
		item.CreatedAt = utcPtr(createdAt)
		item.UpdatedAt = utcPtr(updatedAt)
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveView creates a view or replaces the filters of the view with the same name.
func (s *Store) SaveView(ctx context.Context, name, page string, filters qa.RecordFilters) (int64, error) {
	name = strings.TrimSpace(name)
	page = strings.ToLower(strings.TrimSpace(page))
	if name == "" {
		return 0, fmt.Errorf("%w: name is required", ErrInvalidView)
	}
	if page == "" {
		page = "records"
	}
	if _, ok := viewPages[page]; !ok {
		return 0, fmt.Errorf("%w: unsupported page %s", ErrInvalidView, page)
	}
	blob, err := json.Marshal(filters)
	if err != nil {
		return 0, err
	}

	if _, err := s.db.ExecContext(ctx, `
INSERT INTO saved_views (name, page, filters_json, created_at, updated_at)
VALUES (?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
ON CONFLICT(name) DO UPDATE SET
  page = excluded.page,
  filters_json = excluded.filters_json,
  updated_at = CURRENT_TIMESTAMP;
`, name, page, string(blob)); err != nil {
		return 0, err
	}

	// LastInsertId is not reliable after the conflict branch.
	var id int64
	if err := s.db.QueryRowContext(ctx, `SELECT id FROM saved_views WHERE name = ?`, name).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Store) DeleteView(ctx context.Context, id int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM saved_views WHERE id = ?`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Record appends an entry to the action journal.
func (s *Store) Record(ctx context.Context, e JournalEntry) error {
	action := strings.TrimSpace(e.Action)
	if action == "" {
		return fmt.Errorf("journal action is required")
	}
	ok := 0
	if e.OK {
		ok = 1
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO action_journal (action, target, actor, ok, detail)
VALUES (?, ?, ?, ?, ?);
`, action, strings.TrimSpace(e.Target), strings.TrimSpace(e.Actor), ok, e.Detail)
	return err
}

// Journal lists the newest entries first, optionally filtered by action.
func (s *Store) Journal(ctx context.Context, action string, limit, offset int) ([]JournalEntry, error) {
	action = strings.TrimSpace(action)
	rows, err := s.db.QueryContext(ctx, `
SELECT id, action, target, actor, ok, detail, created_at
FROM action_journal
WHERE (? = '' OR action = ?)
ORDER BY id DESC
LIMIT ? OFFSET ?;
`, action, action, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]JournalEntry, 0)
	for rows.Next() {
		var (
			item      JournalEntry
			ok        int
			createdAt sql.NullTime
		)
		if err := rows.Scan(&item.ID, &item.Action, &item.Target, &item.Actor, &ok, &item.Detail, &createdAt); err != nil {
			return nil, err
		}
		item.OK = ok != 0
		item.CreatedAt = utcPtr(createdAt)
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func utcPtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time.UTC()
	return &t
}
