package kv

import (
	"context"
	"database/sql"

	"github.com/credlink/credlink/internal/dbx"
)

// Transactor runs a function against a transactional view of the store so
// multi-key mutations (logout) are all-or-nothing.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error
}

// Store is the production Repository: a SQLiteRepository bound to the full
// database handle, plus transaction support.
type Store struct {
	*SQLiteRepository
	db *sql.DB
}

// NewStore wraps an open database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{SQLiteRepository: NewSQLiteRepository(db), db: db}
}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, NewSQLiteRepository(tx))
	})
}

// WithTx on the memory repository just runs fn directly; each operation is
// already atomic and tests do not need rollback fidelity.
func (r *MemoryRepository) WithTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error {
	return fn(ctx, r)
}

var (
	_ Transactor = (*Store)(nil)
	_ Transactor = (*MemoryRepository)(nil)
)
