// ABOUTME: Embedded single-file chunk store for fragment text
// ABOUTME: Batched writes in one transaction for write throughput
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"strata/internal/models"
)

// ChunkStore persists fragments in a single-file SQLite database
type ChunkStore struct {
	db       *DB
	readOnly bool
}

// Open opens or creates a chunk store at the given path in read-write mode
func Open(path string) (*ChunkStore, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	return &ChunkStore{db: db}, nil
}

// OpenReadOnly opens an existing chunk store without write access.
// Readers may open the file while a writer holds it read-write.
func OpenReadOnly(path string) (*ChunkStore, error) {
	db, err := openDBReadOnly(path)
	if err != nil {
		return nil, err
	}
	return &ChunkStore{db: db, readOnly: true}, nil
}

// OpenInMemory creates an in-memory chunk store (for testing)
func OpenInMemory() (*ChunkStore, error) {
	db, err := openDBInMemory()
	if err != nil {
		return nil, err
	}
	return &ChunkStore{db: db}, nil
}

// Path returns the backing file path
func (s *ChunkStore) Path() string {
	return s.db.Path()
}

// Get returns the fragment with the given id, or (nil, nil) if missing
func (s *ChunkStore) Get(id int64) (*models.Fragment, error) {
	row := s.db.conn.QueryRow(`SELECT id, text, metadata FROM chunks WHERE id = ?`, id)

	f, err := scanFragment(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chunk %d: %w", id, err)
	}
	return f, nil
}

// GetMany returns the stored fragments in input-id order, omitting ids
// that were never stored
func (s *ChunkStore) GetMany(ids []int64) ([]models.Fragment, error) {
	if len(ids) == 0 {
		return []models.Fragment{}, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.conn.Query(
		`SELECT id, text, metadata FROM chunks WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	byID := make(map[int64]models.Fragment, len(ids))
	for rows.Next() {
		f, err := scanFragment(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		byID[f.ID] = *f
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read chunks: %w", err)
	}

	// Reassemble in input order, dropping missing ids
	out := make([]models.Fragment, 0, len(ids))
	for _, id := range ids {
		if f, ok := byID[id]; ok {
			out = append(out, f)
		}
	}
	return out, nil
}

// Put stores a fragment, replacing any previous row with the same id
func (s *ChunkStore) Put(f models.Fragment) error {
	metadata, err := marshalMetadata(f.Metadata)
	if err != nil {
		return err
	}

	_, err = s.db.conn.Exec(`
		INSERT INTO chunks (id, text, metadata) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET text = excluded.text, metadata = excluded.metadata
	`, f.ID, f.Text, metadata)
	if err != nil {
		return fmt.Errorf("failed to insert chunk %d: %w", f.ID, err)
	}
	return nil
}

// PutMany stores a batch of fragments in one transaction
func (s *ChunkStore) PutMany(fs []models.Fragment) error {
	if len(fs) == 0 {
		return nil
	}

	tx, err := s.db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO chunks (id, text, metadata) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET text = excluded.text, metadata = excluded.metadata
	`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range fs {
		metadata, err := marshalMetadata(f.Metadata)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
		if _, err := stmt.Exec(f.ID, f.Text, metadata); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert chunk %d: %w", f.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit chunk batch: %w", err)
	}
	return nil
}

// Count returns the number of stored fragments
func (s *ChunkStore) Count() (int, error) {
	var n int
	if err := s.db.conn.QueryRow(`SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return n, nil
}

// Close closes the underlying database
func (s *ChunkStore) Close() error {
	return s.db.Close()
}

// scanFragment reads one chunks row into a Fragment
func scanFragment(scan func(...any) error) (*models.Fragment, error) {
	var (
		f        models.Fragment
		metadata sql.NullString
	)
	if err := scan(&f.ID, &f.Text, &metadata); err != nil {
		return nil, err
	}
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &f.Metadata); err != nil {
			f.Metadata = nil
		}
	}
	return &f, nil
}

// marshalMetadata serializes the open key/value map, empty maps as NULL
func marshalMetadata(m map[string]string) (any, error) {
	if len(m) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return string(data), nil
}
