package store

import (
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// Store provides SQLite persistence for widget toggle flags and run history.
type Store struct {
	db *sql.DB

	// toggleMu guards the per-widget mutex table. Each widget id gets its
	// own mutex so rapid re-taps on one widget serialize without blocking
	// toggles on other widgets.
	toggleMu sync.Mutex
	toggles  map[int]*sync.Mutex
}

// New creates a new Store with the specified database path.
// Use ":memory:" for in-memory databases (useful for testing).
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	// SQLite only allows one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// WAL mode keeps the toggle path responsive while a run is writing.
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: enable WAL mode: %w", err)
	}

	return &Store{
		db:      db,
		toggles: make(map[int]*sync.Mutex),
	}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// DB returns the underlying database connection for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// CreateSchema creates all tables and indexes.
func (s *Store) CreateSchema() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("store: create schema: %w", err)
	}
	return nil
}

// lockToggle returns the mutex guarding the given widget id, creating it on
// first use.
func (s *Store) lockToggle(widgetID int) *sync.Mutex {
	s.toggleMu.Lock()
	defer s.toggleMu.Unlock()

	mu, ok := s.toggles[widgetID]
	if !ok {
		mu = &sync.Mutex{}
		s.toggles[widgetID] = mu
	}
	return mu
}
