package database

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Cache is a key/value store with per-entry expiry, backed by one table.
type Cache struct {
	db        *Database
	tableName string
	now       func() time.Time

	// gen is bumped by Clear; SetIfGeneration refuses writes from older generations
	mu  sync.Mutex
	gen uint64
}

// NewCache creates a new cache instance
func NewCache(db *Database, tableName string) *Cache {
	return &Cache{
		db:        db,
		tableName: tableName,
		now:       time.Now,
	}
}

// InitializeCache creates the cache table if it doesn't exist
func (c *Cache) InitializeCache() error {
	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			expires_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_%s_expires ON %s(expires_at);
	`, c.tableName, c.tableName, c.tableName)

	if err := c.db.ExecuteSchema(schema); err != nil {
		return fmt.Errorf("failed to initialize cache table %s: %w", c.tableName, err)
	}
	return nil
}

// Get retrieves a value from the cache. Expired entries are reported as missing.
func (c *Cache) Get(key string) ([]byte, bool, error) {
	query := fmt.Sprintf(`SELECT value FROM %s WHERE key = ? AND expires_at > ?`, c.tableName)

	var value []byte
	err := c.db.DB().QueryRow(query, key, c.now().UnixNano()).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get cache value: %w", err)
	}

	return value, true, nil
}

// Set stores a value in the cache
func (c *Cache) Set(key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.set(key, value, ttl)
}

// Generation returns the current cache generation. Read it before computing a
// value and pass it to SetIfGeneration.
func (c *Cache) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// SetIfGeneration stores value only if Clear has not run since gen was read.
// It reports whether the value was stored.
func (c *Cache) SetIfGeneration(gen uint64, key string, value []byte, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		slog.Debug("Discarding stale cache write", "table", c.tableName, "key", key)
		return false, nil
	}
	if err := c.set(key, value, ttl); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Cache) set(key string, value []byte, ttl time.Duration) error {
	now := c.now()

	query := fmt.Sprintf(`
		INSERT OR REPLACE INTO %s (key, value, expires_at, updated_at)
		VALUES (?, ?, ?, ?)
	`, c.tableName)

	if _, err := c.db.DB().Exec(query, key, value, now.Add(ttl).UnixNano(), now.UnixNano()); err != nil {
		return fmt.Errorf("failed to set cache value: %w", err)
	}

	return nil
}

// Delete removes a value from the cache
func (c *Cache) Delete(key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE key = ?`, c.tableName)

	if _, err := c.db.DB().Exec(query, key); err != nil {
		return fmt.Errorf("failed to delete cache value: %w", err)
	}

	return nil
}

// CleanupExpired removes expired entries from the cache
func (c *Cache) CleanupExpired() error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE expires_at <= ?`, c.tableName)

	result, err := c.db.DB().Exec(query, c.now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to cleanup expired entries: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected > 0 {
		slog.Debug("Cleaned up expired cache entries", "table", c.tableName, "count", rowsAffected)
	}

	return nil
}

// Clear removes all entries from the cache and starts a new generation
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	query := fmt.Sprintf(`DELETE FROM %s`, c.tableName)

	if _, err := c.db.DB().Exec(query); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}

	return nil
}

// Len returns the number of entries that have not expired
func (c *Cache) Len() (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE expires_at > ?`, c.tableName)

	var n int
	if err := c.db.DB().QueryRow(query, c.now().UnixNano()).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cache entries: %w", err)
	}
	return n, nil
}
