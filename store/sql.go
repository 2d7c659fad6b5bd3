package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// SQLStore implements Client over a database/sql connection. The SQLite and
// Postgres adapters share this implementation and differ only in driver,
// DDL, and placeholder style.
type SQLStore struct {
	db       *sql.DB
	numbered bool // true when the dialect uses $1-style placeholders
}

// DB exposes the underlying connection, mainly for tests
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// Close closes the underlying connection
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders to $N for numbered dialects
func (s *SQLStore) rebind(query string) string {
	if !s.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Save persists the full object state, replacing any previous version.
// The write is a single transaction: either the whole state (object row,
// properties, edges, content) lands, or none of it does.
func (s *SQLStore) Save(ctx context.Context, state *State) error {
	if err := state.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.saveInTx(ctx, tx, state); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// saveInTx writes a state within a transaction
func (s *SQLStore) saveInTx(ctx context.Context, tx *sql.Tx, state *State) error {
	// Replace semantics: clear existing rows for this id, then insert.
	for _, table := range []string{"lattice_edges", "lattice_properties", "lattice_contents", "lattice_objects"} {
		query := s.rebind(fmt.Sprintf("DELETE FROM %s WHERE object_id = ?", table))
		if table == "lattice_objects" {
			query = s.rebind("DELETE FROM lattice_objects WHERE id = ?")
		}
		if _, err := tx.ExecContext(ctx, query, state.ID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	query := s.rebind("INSERT INTO lattice_objects (id, model) VALUES (?, ?)")
	if _, err := tx.ExecContext(ctx, query, state.ID, state.Model); err != nil {
		return fmt.Errorf("failed to insert object row: %w", err)
	}

	query = s.rebind("INSERT INTO lattice_properties (object_id, name, value) VALUES (?, ?, ?)")
	for name, value := range state.Properties {
		if _, err := tx.ExecContext(ctx, query, state.ID, name, value); err != nil {
			return fmt.Errorf("failed to insert property %s: %w", name, err)
		}
	}

	// Edge position preserves the in-memory ordering across round-trips.
	query = s.rebind("INSERT INTO lattice_edges (object_id, predicate, target, position) VALUES (?, ?, ?, ?)")
	for predicate, targets := range state.Edges {
		for i, target := range targets {
			if _, err := tx.ExecContext(ctx, query, state.ID, predicate, target, i); err != nil {
				return fmt.Errorf("failed to insert edge %s: %w", predicate, err)
			}
		}
	}

	query = s.rebind("INSERT INTO lattice_contents (object_id, name, data) VALUES (?, ?, ?)")
	for name, data := range state.Content {
		if _, err := tx.ExecContext(ctx, query, state.ID, name, data); err != nil {
			return fmt.Errorf("failed to insert content %s: %w", name, err)
		}
	}

	return nil
}

// Fetch loads the full state for an id
func (s *SQLStore) Fetch(ctx context.Context, id string) (*State, error) {
	var model string
	query := s.rebind("SELECT model FROM lattice_objects WHERE id = ?")
	if err := s.db.QueryRowContext(ctx, query, id).Scan(&model); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("fetch %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch object row: %w", err)
	}

	state := NewState(id, model)

	query = s.rebind("SELECT name, value FROM lattice_properties WHERE object_id = ?")
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch properties: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		state.Properties[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	query = s.rebind("SELECT predicate, target FROM lattice_edges WHERE object_id = ? ORDER BY predicate, position")
	edgeRows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch edges: %w", err)
	}
	defer edgeRows.Close()
	for edgeRows.Next() {
		var predicate, target string
		if err := edgeRows.Scan(&predicate, &target); err != nil {
			return nil, err
		}
		state.Edges[predicate] = append(state.Edges[predicate], target)
	}
	if err := edgeRows.Err(); err != nil {
		return nil, err
	}

	query = s.rebind("SELECT name, data FROM lattice_contents WHERE object_id = ?")
	contentRows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch content: %w", err)
	}
	defer contentRows.Close()
	for contentRows.Next() {
		var name string
		var data []byte
		if err := contentRows.Scan(&name, &data); err != nil {
			return nil, err
		}
		state.Content[name] = data
	}
	if err := contentRows.Err(); err != nil {
		return nil, err
	}

	return state, nil
}

// Delete removes an object and all its rows. An absent id is an error, not
// an idempotent no-op.
func (s *SQLStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := s.rebind("DELETE FROM lattice_objects WHERE id = ?")
	result, err := tx.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete object row: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}

	for _, table := range []string{"lattice_edges", "lattice_properties", "lattice_contents"} {
		query := s.rebind(fmt.Sprintf("DELETE FROM %s WHERE object_id = ?", table))
		if _, err := tx.ExecContext(ctx, query, id); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// migrate creates the store tables if they do not exist
func (s *SQLStore) migrate(ctx context.Context, blobType string) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS lattice_objects (
			id TEXT PRIMARY KEY,
			model TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS lattice_properties (
			object_id TEXT NOT NULL,
			name TEXT NOT NULL,
			value TEXT NOT NULL,
			PRIMARY KEY (object_id, name)
		)`,
		`CREATE TABLE IF NOT EXISTS lattice_edges (
			object_id TEXT NOT NULL,
			predicate TEXT NOT NULL,
			target TEXT NOT NULL,
			position INTEGER NOT NULL,
			PRIMARY KEY (object_id, predicate, target)
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS lattice_contents (
			object_id TEXT NOT NULL,
			name TEXT NOT NULL,
			data %s,
			PRIMARY KEY (object_id, name)
		)`, blobType),
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to run store migration: %w", err)
		}
	}
	return nil
}
