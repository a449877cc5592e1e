// ABOUTME: ChunkStore contract and backend selection for fragment storage
// ABOUTME: A closed set of backends (in-memory | sqlite) behind one interface
package store

import (
	"fmt"

	"strata/internal/models"
	"strata/internal/store/sqlite"
)

// ChunkStore is keyed storage for fragment text. Get returns (nil, nil)
// for ids that were never stored. GetMany preserves input-id order and
// silently omits missing ids. Write failures come back as error results
// that callers may treat as non-fatal: partial persistence of
// already-processed fragments should not void earlier work.
type ChunkStore interface {
	Get(id int64) (*models.Fragment, error)
	GetMany(ids []int64) ([]models.Fragment, error)
	Put(f models.Fragment) error
	PutMany(fs []models.Fragment) error
	Count() (int, error)
	Close() error
}

// Backend names one of the two storage strategies
type Backend string

const (
	// BackendMemory keeps fragments in an in-process map (default,
	// suited to small corpora)
	BackendMemory Backend = "memory"

	// BackendSQLite keeps fragments in a single-file embedded store,
	// letting large corpora stay off the heap
	BackendSQLite Backend = "sqlite"
)

// Options selects and configures a backend at construction time
type Options struct {
	Backend  Backend
	Path     string // required for BackendSQLite
	ReadOnly bool   // sqlite only
}

// Open constructs the chosen backend. Unknown backends and a missing path
// for the sqlite backend are configuration errors surfaced immediately.
func Open(opts Options) (ChunkStore, error) {
	switch opts.Backend {
	case BackendMemory, "":
		return NewMemoryStore(), nil
	case BackendSQLite:
		if opts.Path == "" {
			return nil, fmt.Errorf("sqlite backend requires a path")
		}
		if opts.ReadOnly {
			return sqlite.OpenReadOnly(opts.Path)
		}
		return sqlite.Open(opts.Path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}
