package content

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lepinkainen/site-feed/pkg/database"
)

const storeSchema = `
CREATE TABLE IF NOT EXISTS collections (
	name TEXT PRIMARY KEY,
	indexed_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS entries (
	collection TEXT NOT NULL,
	slug TEXT NOT NULL,
	position INTEGER NOT NULL,
	data TEXT NOT NULL,
	body TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (collection, slug)
);

CREATE INDEX IF NOT EXISTS idx_entries_position ON entries(collection, position);
`

func init() {
	MustRegister("sqlite", func(opts Options) (Source, error) {
		db, err := database.Open(opts.Database)
		if err != nil {
			return nil, err
		}
		return OpenStore(db)
	})
}

// Store is a content index kept in SQLite.
type Store struct {
	db *database.Database
}

// OpenStore prepares the schema and returns a Store.
func OpenStore(db *database.Database) (*Store, error) {
	if err := db.ExecuteSchema(storeSchema); err != nil {
		return nil, fmt.Errorf("failed to initialize content store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ReplaceCollection rewrites a collection in a single transaction.
func (s *Store) ReplaceCollection(ctx context.Context, collection string, entries []Entry) error {
	if err := checkUnique(collection, entries); err != nil {
		return err
	}

	rows := make([][]byte, len(entries))
	for i, e := range entries {
		data, err := json.Marshal(normalizeData(e.Data))
		if err != nil {
			return fmt.Errorf("failed to encode %s/%s: %w", collection, e.Slug, err)
		}
		rows[i] = data
	}

	err := s.db.Transaction(func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE collection = ?`, collection); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO collections (name, indexed_at) VALUES (?, ?)`,
			collection, time.Now().Unix()); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO entries (collection, slug, position, data, body) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, e := range entries {
			if _, err := stmt.ExecContext(ctx, collection, e.Slug, i, string(rows[i]), e.Body); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to index collection %s: %w", collection, err)
	}

	slog.Debug("Indexed collection", "collection", collection, "entries", len(entries))
	return nil
}

// ListEntries returns the indexed entries in their original order.
func (s *Store) ListEntries(ctx context.Context, collection string) ([]Entry, error) {
	var name string
	err := s.db.DB().QueryRowContext(ctx, `SELECT name FROM collections WHERE name = ?`, collection).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, unavailable(collection, ErrCollectionNotFound)
	}
	if err != nil {
		return nil, unavailable(collection, err)
	}

	rows, err := s.db.DB().QueryContext(ctx,
		`SELECT slug, data, body FROM entries WHERE collection = ? ORDER BY position`, collection)
	if err != nil {
		return nil, unavailable(collection, err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e    = Entry{Collection: collection}
			data string
		)
		if err := rows.Scan(&e.Slug, &data, &e.Body); err != nil {
			return nil, unavailable(collection, err)
		}
		if err := json.Unmarshal([]byte(data), &e.Data); err != nil {
			return nil, unavailable(collection, fmt.Errorf("corrupt entry %s: %w", e.Slug, err))
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(collection, err)
	}

	return entries, nil
}
