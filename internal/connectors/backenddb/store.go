// Package backenddb is an optional read-only view of the QA backend's MySQL database.
package backenddb

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"go-indexing-qa-console/internal/config"
)

// Store wraps backend database access.
type Store struct {
	db           *sql.DB
	queryTimeout time.Duration
}

// ServiceStats contains lightweight DB health and volume counters.
type ServiceStats struct {
	PingMS             int64 `json:"ping_ms"`
	UptimeSeconds      int64 `json:"uptime_seconds"`
	RecordsTotal       int64 `json:"records_total"`
	RecordsLast24h     int64 `json:"records_last_24h"`
	DeadLettersTotal   int64 `json:"dead_letters_total"`
	DeadLettersBacklog int64 `json:"dead_letters_unresolved"`
}

func NewStore(cfg config.Config) (*Store, error) {
	return Open(cfg.BackendDSN(), cfg.DBConnTimeout, cfg.DBQueryTimeout)
}

// Open connects with an explicit DSN.
func Open(dsn string, connTimeout, queryTimeout time.Duration) (*Store, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)

	if connTimeout <= 0 {
		connTimeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), connTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return newStore(db, queryTimeout), nil
}

func newStore(db *sql.DB, queryTimeout time.Duration) *Store {
	if queryTimeout <= 0 {
		queryTimeout = 10 * time.Second
	}
	return &Store{db: db, queryTimeout: queryTimeout}
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ServiceStats returns database health and record/dead letter counters.
func (s *Store) ServiceStats(ctx context.Context) (*ServiceStats, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	start := time.Now()
	if err := s.db.PingContext(ctx); err != nil {
		return nil, err
	}

	out := &ServiceStats{
		PingMS: time.Since(start).Milliseconds(),
	}

	var statusName string
	var statusValue sql.NullString
	if err := s.db.QueryRowContext(ctx, `SHOW GLOBAL STATUS LIKE 'Uptime';`).Scan(&statusName, &statusValue); err == nil && statusValue.Valid {
		if v, err := time.ParseDuration(statusValue.String + "s"); err == nil {
			out.UptimeSeconds = int64(v.Seconds())
		}
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM processed_records;`).Scan(&out.RecordsTotal); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, `
SELECT COUNT(*)
FROM processed_records
WHERE created_at >= UTC_TIMESTAMP() - INTERVAL 24 HOUR;
`).Scan(&out.RecordsLast24h); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dead_letter_records;`).Scan(&out.DeadLettersTotal); err != nil {
		return nil, err
	}
	backlog, err := s.unresolved(ctx)
	if err != nil {
		return nil, err
	}
	out.DeadLettersBacklog = backlog
	return out, nil
}

// DeadLetterBacklog counts unresolved dead letters.
func (s *Store) DeadLetterBacklog(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	n, err := s.unresolved(ctx)
	return int(n), err
}

func (s *Store) unresolved(ctx context.Context) (int64, error) {
	var n sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `
SELECT COUNT(*)
FROM dead_letter_records
WHERE COALESCE(resolved, 0) = 0;
`).Scan(&n); err != nil {
		return 0, err
	}
	return n.Int64, nil
}
