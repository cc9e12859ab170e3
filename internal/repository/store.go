// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Common errors for repository operations.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrComplimentNotFound = errors.New("compliment not found")
	ErrExchangeNotFound   = errors.New("exchange not found")
	ErrInsufficientTokens = errors.New("insufficient tokens")
	ErrConcurrentUpdate   = errors.New("row was modified concurrently")
	ErrDuplicate          = errors.New("row already exists")
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store groups the repositories over one connection handle. A Store
// returned by InTx is bound to a transaction and every repository on it
// shares that transaction.
type Store struct {
	pool *pgxpool.Pool
	inTx bool

	Users       *UserRepository
	Tokens      *TransactionRepository
	Compliments *ComplimentRepository
	Exchanges   *ExchangeRepository
	Relations   *RelationRepository
}

// NewStore creates a Store backed by pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return newStore(pool, pool, false)
}

func newStore(pool *pgxpool.Pool, db DBTX, inTx bool) *Store {
	return &Store{
		pool:        pool,
		inTx:        inTx,
		Users:       NewUserRepository(db),
		Tokens:      NewTransactionRepository(db),
		Compliments: NewComplimentRepository(db),
		Exchanges:   NewExchangeRepository(db),
		Relations:   NewRelationRepository(db),
	}
}

// InTx runs fn inside a database transaction. The transaction commits when
// fn returns nil and rolls back otherwise. Calling InTx on a Store that is
// already transaction-bound runs fn on the same transaction.
func (s *Store) InTx(ctx context.Context, fn func(tx *Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(newStore(s.pool, tx, true))
	})
}

// isUniqueViolation reports whether err is a Postgres unique_violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// IsRetryable reports whether err is a Postgres deadlock or serialization
// failure, after which the whole transaction may be retried.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40P01" || pgErr.Code == "40001"
}

// isCheckViolation reports whether err is a Postgres check_violation.
func isCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23514"
}
