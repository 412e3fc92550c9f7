// Package storage provides SQLite-based persistence for finished matches.
// Uses the pure-Go modernc.org/sqlite driver to avoid CGO dependencies.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/dkarpov/netarcade/internal/engine"
)

// Store manages the SQLite database connection for match persistence.
type Store struct {
	db *sql.DB
}

// MatchEntry is one stored game record.
type MatchEntry struct {
	ID          int64
	GameName    string
	Player1     string
	Player2     string
	Winner      string
	OutcomeData map[string]any
	StartedAt   time.Time
	FinishedAt  time.Time
	CreatedAt   time.Time
}

// Open creates or opens a SQLite database at the given path.
// It creates the parent directories if needed and runs migrations.
func Open(dbPath string) (*Store, error) {
	// Expand ~ to home directory
	if dbPath != "" && dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("storage: cannot expand home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: cannot create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: cannot connect to database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: migration failed: %w", err)
	}

	return store, nil
}

// migrate creates the database schema if it doesn't exist.
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS game_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			game_name TEXT NOT NULL,
			player1 TEXT NOT NULL,
			player2 TEXT NOT NULL,
			winner TEXT NOT NULL,
			outcome_data TEXT NOT NULL DEFAULT '{}',
			started_at DATETIME NOT NULL,
			finished_at DATETIME NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_game_records_game ON game_records(game_name);
		CREATE INDEX IF NOT EXISTS idx_game_records_player1 ON game_records(player1);
		CREATE INDEX IF NOT EXISTS idx_game_records_player2 ON game_records(player2);
		CREATE INDEX IF NOT EXISTS idx_game_records_recent ON game_records(finished_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Persist implements engine.ResultSink.
func (s *Store) Persist(rec engine.GameRecord) error {
	outcome, err := json.Marshal(rec.OutcomeData)
	if err != nil {
		return fmt.Errorf("storage: cannot encode outcome data: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO game_records
		 (game_name, player1, player2, winner, outcome_data, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.GameName,
		rec.Player1,
		rec.Player2,
		rec.Winner,
		string(outcome),
		rec.StartedAt.UTC().Format("2006-01-02 15:04:05"),
		rec.FinishedAt.UTC().Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		return fmt.Errorf("storage: cannot save game record: %w", err)
	}
	return nil
}

var _ engine.ResultSink = (*Store)(nil)

// RecentRecords retrieves the most recently finished matches.
func (s *Store) RecentRecords(limit int) ([]MatchEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT id, game_name, player1, player2, winner, outcome_data, started_at, finished_at, created_at
		 FROM game_records
		 ORDER BY finished_at DESC, id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query game records: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// PlayerHistory retrieves matches a named player took part in.
func (s *Store) PlayerHistory(player string, limit int) ([]MatchEntry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT id, game_name, player1, player2, winner, outcome_data, started_at, finished_at, created_at
		 FROM game_records
		 WHERE player1 = ? OR player2 = ?
		 ORDER BY finished_at DESC, id DESC
		 LIMIT ?`,
		player, player, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: cannot query player history: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// WinCount returns how many stored matches the named player won.
func (s *Store) WinCount(player string) (int, error) {
	var n int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM game_records WHERE winner = ?",
		player,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("storage: cannot count wins: %w", err)
	}
	return n, nil
}

func scanEntries(rows *sql.Rows) ([]MatchEntry, error) {
	var entries []MatchEntry
	for rows.Next() {
		var e MatchEntry
		var outcome string
		var startedAt, finishedAt, createdAt any

		if err := rows.Scan(&e.ID, &e.GameName, &e.Player1, &e.Player2, &e.Winner, &outcome, &startedAt, &finishedAt, &createdAt); err != nil {
			return nil, fmt.Errorf("storage: cannot scan row: %w", err)
		}

		if err := json.Unmarshal([]byte(outcome), &e.OutcomeData); err != nil {
			return nil, fmt.Errorf("storage: cannot decode outcome data: %w", err)
		}
		e.StartedAt = parseTime(startedAt)
		e.FinishedAt = parseTime(finishedAt)
		e.CreatedAt = parseTime(createdAt)

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: row iteration error: %w", err)
	}
	return entries, nil
}

// parseTime handles both time.Time and string datetime columns.
func parseTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if parsed, err := time.Parse("2006-01-02 15:04:05", t); err == nil {
			return parsed
		}
	}
	return time.Time{}
}
