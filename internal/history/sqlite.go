package history

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore creates a new SQLite-based history store.
// Use ":memory:" for an in-memory database, or a file path for persistence.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS legs (
		id TEXT PRIMARY KEY,
		variant TEXT NOT NULL,
		branch TEXT NOT NULL,
		phase TEXT NOT NULL DEFAULT 'INIT',
		error TEXT NOT NULL DEFAULT '',
		started_at INTEGER NOT NULL,
		finished_at INTEGER
	);
	CREATE TABLE IF NOT EXISTS transitions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		leg_id TEXT NOT NULL,
		phase TEXT NOT NULL,
		at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_transitions_leg_id ON transitions(leg_id);
	CREATE INDEX IF NOT EXISTS idx_legs_started_at ON legs(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) StartLeg(ctx context.Context, id, variant, branch string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO legs (id, variant, branch, started_at) VALUES (?, ?, ?, ?)",
		id, variant, branch, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert leg: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RecordTransition(ctx context.Context, legID, phase string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO transitions (leg_id, phase, at) VALUES (?, ?, ?)",
		legID, phase, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert transition: %w", err)
	}
	_, err = s.db.ExecContext(ctx, "UPDATE legs SET phase = ? WHERE id = ?", phase, legID)
	if err != nil {
		return fmt.Errorf("update leg phase: %w", err)
	}
	return nil
}

func (s *SQLiteStore) FinishLeg(ctx context.Context, legID, phase string, legErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	errText := ""
	if legErr != nil {
		errText = legErr.Error()
	}
	_, err := s.db.ExecContext(ctx,
		"UPDATE legs SET phase = ?, error = ?, finished_at = ? WHERE id = ?",
		phase, errText, time.Now().Unix(), legID,
	)
	if err != nil {
		return fmt.Errorf("finish leg: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RecentLegs(ctx context.Context, limit int) ([]LegRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, variant, branch, phase, error, started_at, finished_at FROM legs ORDER BY started_at DESC, id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query legs: %w", err)
	}
	defer rows.Close()

	var legs []LegRecord
	for rows.Next() {
		var rec LegRecord
		var started int64
		var finished sql.NullInt64
		if err := rows.Scan(&rec.ID, &rec.Variant, &rec.Branch, &rec.Phase, &rec.Error, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan leg: %w", err)
		}
		rec.StartedAt = time.Unix(started, 0)
		if finished.Valid {
			rec.FinishedAt = time.Unix(finished.Int64, 0)
		}
		legs = append(legs, rec)
	}
	return legs, rows.Err()
}

func (s *SQLiteStore) Transitions(ctx context.Context, legID string) ([]Transition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT leg_id, phase, at FROM transitions WHERE leg_id = ? ORDER BY id",
		legID,
	)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	var transitions []Transition
	for rows.Next() {
		var tr Transition
		var at int64
		if err := rows.Scan(&tr.LegID, &tr.Phase, &at); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		tr.At = time.Unix(at, 0)
		transitions = append(transitions, tr)
	}
	return transitions, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
