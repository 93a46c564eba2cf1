package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store groups the repositories over one connection pool or one transaction.
type Store struct {
	db   *DB
	inTx bool

	Users         *UserRepository
	RefreshTokens *RefreshTokenRepository
}

// NewStore creates a Store whose repositories run directly on the pool.
func NewStore(db *DB) *Store {
	return newStore(db, db.DB, false)
}

func newStore(db *DB, q querier, inTx bool) *Store {
	return &Store{
		db:            db,
		inTx:          inTx,
		Users:         &UserRepository{q: q, dialect: db.dialect},
		RefreshTokens: &RefreshTokenRepository{q: q, dialect: db.dialect},
	}
}

// InTx runs fn with a Store bound to a single transaction. The transaction commits
// when fn returns nil and rolls back otherwise. Calling InTx on a Store that is
// already transactional reuses the open transaction.
func (s *Store) InTx(ctx context.Context, fn func(tx *Store) error) error {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(newStore(s.db, tx, true)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
