// Package database wraps the SQLite connections used by the content index
// and the rendered-feed cache.
package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/lepinkainen/site-feed/pkg/filesystem"

	_ "modernc.org/sqlite"
)

var (
	// dbCache stores active database connections, keyed by path
	dbCache = make(map[string]*Database)
	// cacheMutex protects the dbCache
	cacheMutex = &sync.Mutex{}
)

// Database represents a thread-safe database connection
type Database struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// Config holds database configuration
type Config struct {
	Path   string
	Driver string
}

// DefaultConfig returns the default database configuration
func DefaultConfig() Config {
	return Config{
		Driver: "sqlite",
	}
}

// Open is a shortcut for NewDatabase with the default driver. The parent
// directory of path is created when missing.
func Open(path string) (*Database, error) {
	if path != ":memory:" {
		if err := filesystem.EnsureDirectoryExists(path); err != nil {
			return nil, err
		}
	}
	config := DefaultConfig()
	config.Path = path
	return NewDatabase(config)
}

// NewDatabase creates a new database connection. Connections are shared per path.
func NewDatabase(config Config) (*Database, error) {
	cacheMutex.Lock()
	defer cacheMutex.Unlock()

	if db, ok := dbCache[config.Path]; ok {
		return db, nil
	}

	if config.Driver == "" {
		config.Driver = "sqlite"
	}

	db, err := sql.Open(config.Driver, config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", config.Path, err)
	}

	closeOnErr := func(err error) (*Database, error) {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("Failed to close database", "error", closeErr)
		}
		return nil, fmt.Errorf("failed to configure database %s: %w", config.Path, err)
	}

	if config.Driver == "sqlite" {
		if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
			return closeOnErr(err)
		}

		var journalMode string
		if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
			return closeOnErr(err)
		}

		// in-memory databases report "memory" and cannot switch to WAL
		if !strings.EqualFold(journalMode, "wal") && !strings.EqualFold(journalMode, "memory") {
			if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
				return closeOnErr(err)
			}
		}

		pragmas := []string{
			"PRAGMA synchronous=NORMAL",
			"PRAGMA temp_store=memory",
		}

		for _, pragma := range pragmas {
			if _, err := db.Exec(pragma); err != nil {
				return closeOnErr(err)
			}
		}
	}

	// a single connection keeps :memory: databases coherent
	if config.Path == ":memory:" {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
	}
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return closeOnErr(err)
	}

	database := &Database{
		db:     db,
		dbPath: config.Path,
	}

	dbCache[config.Path] = database

	return database, nil
}

// Close closes the database connection
func (db *Database) Close() error {
	cacheMutex.Lock()
	defer cacheMutex.Unlock()

	delete(dbCache, db.dbPath)

	db.mu.Lock()
	defer db.mu.Unlock()

	if db.db != nil {
		return db.db.Close()
	}
	return nil
}

// DB returns the underlying sql.DB instance (thread-safe)
func (db *Database) DB() *sql.DB {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.db
}

// Path returns the database file path
func (db *Database) Path() string {
	return db.dbPath
}

// ExecuteSchema executes a schema statement
func (db *Database) ExecuteSchema(schema string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.db.Exec(schema)
	return err
}

// Transaction executes a function within a database transaction
func (db *Database) Transaction(fn func(*sql.Tx) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.db.Begin()
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				slog.Error("Failed to rollback transaction", "error", rollbackErr)
			}
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			slog.Error("Failed to rollback transaction", "error", rollbackErr)
		}
		return err
	}

	return tx.Commit()
}
