package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// OpenSQLite opens (or creates) a SQLite-backed object store at the given
// path. Use ":memory:" for an ephemeral store.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite store: %w", err)
	}

	// SQLite serializes writers; a single connection avoids lock contention
	// between the replace-delete and insert halves of a save.
	db.SetMaxOpenConns(1)

	s := &SQLStore{db: db}
	if err := s.migrate(ctx, "BLOB"); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}
