package storage

import (
	"database/sql"
	"fmt"
	"os"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// AnalysisCacheEntry is a cached raw model answer.
type AnalysisCacheEntry struct {
	Model     string
	Response  string
	CreatedAt time.Time
}

// AnalysisCache defines the interface for the model answer cache.
type AnalysisCache interface {
	GetAnalysisCache(key string) (*AnalysisCacheEntry, error)
	SetAnalysisCache(key string, entry *AnalysisCacheEntry) error
}

// SQLiteStore implements AnalysisCache using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

// NewSQLiteStore opens (or creates) the SQLite database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Configure SQLite with WAL mode and busy timeout for better concurrency
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db, now: time.Now}

	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}

	// Set file permissions once the file exists
	_ = os.Chmod(dbPath, 0600)

	return store, nil
}

func (s *SQLiteStore) init() error {
	query := `
	CREATE TABLE IF NOT EXISTS analysis_cache (
		cache_key TEXT PRIMARY KEY,
		model TEXT NOT NULL,
		response TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create analysis_cache table: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetAnalysisCache retrieves a cached answer by key.
// Returns nil, nil if there is no entry.
func (s *SQLiteStore) GetAnalysisCache(key string) (*AnalysisCacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entry AnalysisCacheEntry
	err := s.db.QueryRow(
		"SELECT model, response, created_at FROM analysis_cache WHERE cache_key = ?",
		key,
	).Scan(&entry.Model, &entry.Response, &entry.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis cache: %w", err)
	}

	return &entry, nil
}

// SetAnalysisCache stores or replaces a cached answer.
func (s *SQLiteStore) SetAnalysisCache(key string, entry *AnalysisCacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	_, err := s.db.Exec(
		`INSERT INTO analysis_cache (cache_key, model, response, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET
		   model = excluded.model,
		   response = excluded.response,
		   created_at = excluded.created_at`,
		key, entry.Model, entry.Response, createdAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save analysis cache: %w", err)
	}
	return nil
}

// PruneAnalysisCache deletes entries created before the cutoff and returns
// how many were removed.
func (s *SQLiteStore) PruneAnalysisCache(before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("DELETE FROM analysis_cache WHERE created_at < ?", before.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune analysis cache: %w", err)
	}
	return res.RowsAffected()
}
