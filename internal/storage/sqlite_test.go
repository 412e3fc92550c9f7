package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dkarpov/netarcade/internal/engine"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func record(game, p1, p2, winner string, finished time.Time) engine.GameRecord {
	return engine.GameRecord{
		GameName:   game,
		Player1:    p1,
		Player2:    p2,
		Winner:     winner,
		StartedAt:  finished.Add(-time.Minute),
		FinishedAt: finished,
		OutcomeData: map[string]any{
			"score1": 10,
			"score2": 4,
			"reason": engine.ReasonCompleted,
		},
	}
}

func TestStoreOpenClose(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestStoreOpenNestedPath(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "subdir", "deep", "test.db")

	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() with nested path failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created in nested directory")
	}
}

func TestPersistAndRecent(t *testing.T) {
	store := openTestStore(t)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	if err := store.Persist(record("pong", "alice", "bob", "alice", base)); err != nil {
		t.Fatalf("Persist() failed: %v", err)
	}
	if err := store.Persist(record("pong_ai", "carol", "ai", "ai", base.Add(time.Hour))); err != nil {
		t.Fatalf("Persist() failed: %v", err)
	}

	entries, err := store.RecentRecords(10)
	if err != nil {
		t.Fatalf("RecentRecords() failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(entries))
	}

	// Most recent first.
	if entries[0].GameName != "pong_ai" || entries[0].Winner != "ai" {
		t.Errorf("Unexpected first entry: %+v", entries[0])
	}
	if entries[1].Player1 != "alice" || entries[1].Player2 != "bob" {
		t.Errorf("Unexpected second entry: %+v", entries[1])
	}

	// Outcome data survives the JSON round trip.
	if entries[1].OutcomeData["reason"] != engine.ReasonCompleted {
		t.Errorf("Outcome reason = %v", entries[1].OutcomeData["reason"])
	}
	if entries[1].OutcomeData["score1"] != float64(10) {
		t.Errorf("Outcome score1 = %v", entries[1].OutcomeData["score1"])
	}
}

func TestRecentRecordsLimit(t *testing.T) {
	store := openTestStore(t)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		if err := store.Persist(record("pong", "alice", "bob", "alice", base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("Persist() failed: %v", err)
		}
	}

	entries, err := store.RecentRecords(3)
	if err != nil {
		t.Fatalf("RecentRecords() failed: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("Expected 3 records with limit, got %d", len(entries))
	}
}

func TestPlayerHistory(t *testing.T) {
	store := openTestStore(t)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	store.Persist(record("pong", "alice", "bob", "alice", base))
	store.Persist(record("pong", "bob", "carol", "carol", base.Add(time.Minute)))
	store.Persist(record("tetris", "dave", "N/A", "N/A", base.Add(2*time.Minute)))

	history, err := store.PlayerHistory("bob", 10)
	if err != nil {
		t.Fatalf("PlayerHistory() failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("Expected 2 matches for bob, got %d", len(history))
	}

	history, err = store.PlayerHistory("dave", 10)
	if err != nil {
		t.Fatalf("PlayerHistory() failed: %v", err)
	}
	if len(history) != 1 || history[0].GameName != "tetris" {
		t.Errorf("Unexpected history for dave: %+v", history)
	}
}

func TestWinCount(t *testing.T) {
	store := openTestStore(t)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	store.Persist(record("pong", "alice", "bob", "alice", base))
	store.Persist(record("pong", "alice", "carol", "alice", base.Add(time.Minute)))
	store.Persist(record("pong", "alice", "bob", "bob", base.Add(2*time.Minute)))

	n, err := store.WinCount("alice")
	if err != nil {
		t.Fatalf("WinCount() failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 wins for alice, got %d", n)
	}

	n, err = store.WinCount("nobody")
	if err != nil {
		t.Fatalf("WinCount() failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected 0 wins for unknown player, got %d", n)
	}
}
