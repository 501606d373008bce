package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLiteMarker keeps the restart marker as a unix timestamp in a small
// key/value table "<jobTable>_marker".
type SQLiteMarker struct {
	db    *sql.DB
	table string
	key   string
}

// NewSQLiteMarker creates the marker table and binds the store to key
func NewSQLiteMarker(db *sql.DB, jobTable, key string) (*SQLiteMarker, error) {
	if err := validateTableName(jobTable); err != nil {
		return nil, err
	}

	m := &SQLiteMarker{
		db:    db,
		table: jobTable + "_marker",
		key:   key,
	}

	_, err := db.Exec(fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key TEXT PRIMARY KEY,
			value INTEGER NOT NULL,
			update_time TEXT NOT NULL
		)`, m.table))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize marker table: %w", err)
	}
	return m, nil
}

// Load returns the marker time; ok is false when it was never set
func (m *SQLiteMarker) Load(ctx context.Context) (time.Time, bool, error) {
	var value int64
	err := m.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT value FROM %s WHERE key = ?", m.table), m.key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("failed to load marker %s: %w", m.key, err)
	}
	return time.Unix(value, 0), true, nil
}

// Store overwrites the marker with t
func (m *SQLiteMarker) Store(ctx context.Context, t time.Time) error {
	_, err := m.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (key, value, update_time) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, update_time = excluded.update_time`, m.table),
		m.key, t.Unix(), formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to store marker %s: %w", m.key, err)
	}
	return nil
}
