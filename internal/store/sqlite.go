package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"serprank/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS current_scan (
	slot       INTEGER PRIMARY KEY CHECK (slot = 1),
	state      TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS scan_history (
	id         TEXT PRIMARY KEY,
	keyword    TEXT NOT NULL,
	started_at TIMESTAMP NOT NULL,
	state      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_started ON scan_history (started_at DESC);
`

// SQLiteStore persists scans as JSON blobs in SQLite. The full state
// record is the unit of storage; relational breakdown buys nothing for
// a read-whole/write-whole access pattern.
type SQLiteStore struct {
	db         *sql.DB
	historyCap int
}

// NewSQLite opens (and creates if needed) the database at path.
func NewSQLite(path string, historyCap int) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite handles one writer; a bigger pool just queues on the lock.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{db: db, historyCap: historyCap}, nil
}

func (s *SQLiteStore) SaveCurrent(ctx context.Context, state *models.ScanState) error {
	blob, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode scan: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO current_scan (slot, state, updated_at) VALUES (1, ?, ?)
		ON CONFLICT (slot) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		string(blob), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save current scan: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LoadCurrent(ctx context.Context) (*models.ScanState, error) {
	var blob string
	err := s.db.QueryRowContext(ctx, `SELECT state FROM current_scan WHERE slot = 1`).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load current scan: %w", err)
	}
	return decodeState(blob)
}

func (s *SQLiteStore) ClearCurrent(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM current_scan`); err != nil {
		return fmt.Errorf("clear current scan: %w", err)
	}
	return nil
}

// AppendHistory stores a finished scan and evicts the oldest entries
// beyond the cap in the same transaction.
func (s *SQLiteStore) AppendHistory(ctx context.Context, state *models.ScanState) error {
	blob, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode scan: %w", err)
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO scan_history (id, keyword, started_at, state)
			VALUES (?, ?, ?, ?)`,
			state.ID, state.Keyword, state.StartedAt.UTC(), string(blob))
		if err != nil {
			return fmt.Errorf("insert history: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			DELETE FROM scan_history WHERE id NOT IN (
				SELECT id FROM scan_history ORDER BY started_at DESC LIMIT ?
			)`, s.historyCap)
		if err != nil {
			return fmt.Errorf("evict history: %w", err)
		}
		return nil
	})
}

func (s *SQLiteStore) History(ctx context.Context) ([]*models.ScanState, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT state FROM scan_history ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []*models.ScanState
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		state, err := decodeState(blob)
		if err != nil {
			return nil, err
		}
		out = append(out, state)
	}
	return out, rows.Err()
}

// Get looks up a scan by ID in history first, then in the current slot.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*models.ScanState, error) {
	var blob string
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM scan_history WHERE id = ?`, id).Scan(&blob)
	if err == nil {
		return decodeState(blob)
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("get scan: %w", err)
	}

	current, err := s.LoadCurrent(ctx)
	if err != nil {
		return nil, err
	}
	if current.ID != id {
		return nil, ErrNotFound
	}
	return current, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func decodeState(blob string) (*models.ScanState, error) {
	var state models.ScanState
	if err := json.Unmarshal([]byte(blob), &state); err != nil {
		return nil, fmt.Errorf("decode scan: %w", err)
	}
	return &state, nil
}
