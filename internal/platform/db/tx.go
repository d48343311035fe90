package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// maxAttempts bounds how often a transaction is re-run after a transient failure.
const maxAttempts = 3

// WithTx executes fn within a RepeatableRead transaction. Header and line
// writes issued through the tx commit together or not at all. Failures that
// happened before anything reached the server are retried; every other error
// is classified and returned.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	return WithTxLevel(ctx, pool, pgx.RepeatableRead, fn)
}

// WithTxLevel is WithTx at the given isolation level. Guards that lock a row
// with SELECT ... FOR UPDATE and then read rows written by the previous lock
// holder need pgx.ReadCommitted: a RepeatableRead snapshot is fixed at the
// first statement and would not see that holder's commit.
func WithTxLevel(ctx context.Context, pool *pgxpool.Pool, level pgx.TxIsoLevel, fn func(pgx.Tx) error) error {
	opts := pgx.TxOptions{IsoLevel: level}
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = pgx.BeginTxFunc(ctx, pool, opts, fn)
		if err == nil || !pgconn.SafeToRetry(err) {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 50 * time.Millisecond):
		}
	}
	return Classify("platform/db", err)
}
