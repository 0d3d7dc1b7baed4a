// Package repository is the MySQL persistence layer.  It implements
// the booking.Store interface used by the capacity core plus the
// ancillary queries the HTTP layer needs (user accounts, booking
// listings).  All timestamps are stored and compared in UTC.
package repository

import (
	"context"
	"database/sql"
)

// txKey carries an open transaction through a context so repository
// methods called inside Store.WithTx join it transparently.
type txKey struct{}

// runner is the subset of *sql.DB and *sql.Tx the queries use.
type runner interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Store implements booking.Store on MySQL.  The row lock taken by
// GetMatchForUpdate serializes all capacity decisions for one match;
// different matches never contend.
type Store struct {
	db *sql.DB
}

// NewStore returns a Store bound to the given database.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// WithTx opens a transaction, runs fn with the transaction attached to
// the context, and commits when fn returns nil.  Any error (including
// a context deadline, which MySQL answers with a rollback of its own)
// rolls the whole transaction back, so a failed attempt has zero
// partial effect.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		// Already inside a transaction; join it.
		return fn(ctx)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// q returns the transaction from ctx when present, else the pool.
func (s *Store) q(ctx context.Context) runner {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return s.db
}
