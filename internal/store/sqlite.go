package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tradewind/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ FillStore = (*SQLiteStore)(nil)

// SQLiteStore implements FillStore backed by a SQLite database. The fills
// table is the durable trade log: order_ref is the primary key, so the
// exactly-once guarantee survives restarts.
type SQLiteStore struct {
	db *sql.DB
}

const createFillsTable = `
CREATE TABLE IF NOT EXISTS fills (
	order_ref     TEXT PRIMARY KEY,
	instrument_id TEXT NOT NULL,
	direction     TEXT NOT NULL,
	quantity      INTEGER NOT NULL,
	price         REAL NOT NULL,
	timestamp     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fills_timestamp ON fills (timestamp);
`

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns
// a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(createFillsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating fills table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveFill appends one fill to the log. A duplicate order_ref fails the
// primary-key constraint.
func (s *SQLiteStore) SaveFill(ctx context.Context, f domain.Fill) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO fills (order_ref, instrument_id, direction, quantity, price, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		f.OrderRef, f.InstrumentID, string(f.Direction), f.Quantity, f.Price,
		f.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("saving fill %s: %w", f.OrderRef, err)
	}
	return nil
}

// ListFills returns all recorded fills ordered by timestamp ascending, with
// insertion order breaking ties so a replay applies fills exactly as they
// happened.
func (s *SQLiteStore) ListFills(ctx context.Context) ([]domain.Fill, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT order_ref, instrument_id, direction, quantity, price, timestamp
		 FROM fills ORDER BY timestamp ASC, rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing fills: %w", err)
	}
	defer rows.Close()

	var fills []domain.Fill
	for rows.Next() {
		var (
			f   domain.Fill
			dir string
			ts  string
		)
		if err := rows.Scan(&f.OrderRef, &f.InstrumentID, &dir, &f.Quantity, &f.Price, &ts); err != nil {
			return nil, err
		}
		f.Direction = domain.Direction(dir)
		f.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parsing fill timestamp %q: %w", ts, err)
		}
		fills = append(fills, f)
	}
	return fills, rows.Err()
}
