package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// SQLiteStore is a persistent key/value store with a byte ceiling.
// Once the sum of stored payloads exceeds the ceiling, least recently
// used entries are evicted until it fits again.
type SQLiteStore struct {
	db        *sql.DB
	path      string
	sizeLimit int64

	mu         sync.Mutex
	lastAccess int64
}

// NewSQLiteStore opens (or creates) the cache database at path
func NewSQLiteStore(path string, sizeLimit int64) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("cache path is required")
	}
	if sizeLimit <= 0 {
		return nil, fmt.Errorf("cache size limit must be positive, got %d", sizeLimit)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time keeps eviction consistent with the size sum.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS responses (
		key TEXT PRIMARY KEY,
		payload BLOB NOT NULL,
		size INTEGER NOT NULL,
		accessed_at INTEGER NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create responses table: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS responses_accessed_at ON responses (accessed_at)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create accessed_at index: %w", err)
	}

	s := &SQLiteStore{db: db, path: path, sizeLimit: sizeLimit}
	if err := db.QueryRow(`SELECT COALESCE(MAX(accessed_at), 0) FROM responses`).Scan(&s.lastAccess); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("read access clock: %w", err)
	}
	return s, nil
}

// tick returns a strictly increasing access stamp; callers hold s.mu
func (s *SQLiteStore) tick() int64 {
	now := time.Now().UnixNano()
	if now <= s.lastAccess {
		now = s.lastAccess + 1
	}
	s.lastAccess = now
	return now
}

// Get returns the payload stored under key and marks it recently used
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM responses WHERE key = ?`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select %s: %w", key, err)
	}

	if _, err := s.db.ExecContext(ctx, `UPDATE responses SET accessed_at = ? WHERE key = ?`, s.tick(), key); err != nil {
		return nil, false, fmt.Errorf("touch %s: %w", key, err)
	}
	return payload, true, nil
}

// Put stores value under key, replacing any previous value, then evicts
// least recently used entries while the store is over its ceiling
func (s *SQLiteStore) Put(ctx context.Context, key string, value []byte) (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if value == nil {
		value = []byte{}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `INSERT INTO responses (key, payload, size, accessed_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, size = excluded.size, accessed_at = excluded.accessed_at`,
		key, value, len(value), s.tick()); err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}

	if err := s.evict(ctx, tx); err != nil {
		return err
	}
	return tx.Commit()
}

// evict deletes oldest entries until the payload sum fits the ceiling
func (s *SQLiteStore) evict(ctx context.Context, tx *sql.Tx) error {
	var total int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(SUM(size), 0) FROM responses`).Scan(&total); err != nil {
		return fmt.Errorf("sum sizes: %w", err)
	}
	if total <= s.sizeLimit {
		return nil
	}

	rows, err := tx.QueryContext(ctx, `SELECT key, size FROM responses ORDER BY accessed_at ASC`)
	if err != nil {
		return fmt.Errorf("select eviction candidates: %w", err)
	}
	var victims []string
	for rows.Next() && total > s.sizeLimit {
		var (
			key  string
			size int64
		)
		if err := rows.Scan(&key, &size); err != nil {
			_ = rows.Close()
			return fmt.Errorf("scan eviction candidate: %w", err)
		}
		victims = append(victims, key)
		total -= size
	}
	if err := rows.Close(); err != nil {
		return fmt.Errorf("close eviction rows: %w", err)
	}

	for _, key := range victims {
		if _, err := tx.ExecContext(ctx, `DELETE FROM responses WHERE key = ?`, key); err != nil {
			return fmt.Errorf("evict %s: %w", key, err)
		}
	}
	return nil
}

// Delete removes key if present
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM responses WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Stats reports entry count and payload bytes
func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{Path: s.path, Limit: s.sizeLimit}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(size), 0) FROM responses`).Scan(&st.Entries, &st.Bytes); err != nil {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}
	return st, nil
}

// Clear removes every entry
func (s *SQLiteStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM responses`); err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	return nil
}

// Close releases the database handle
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
