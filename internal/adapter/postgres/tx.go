package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// querier is the subset of pgx operations the adapters need. Both
// *pgxpool.Pool and pgx.Tx satisfy it, so a store runs on the
// request-scoped transaction when one is open and directly on the pool
// otherwise.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// txKey is a private context key type for the request transaction.
type txKey struct{}

// WithTx returns a context carrying the given transaction. Stores created
// over the pool pick it up for every statement issued under this context.
func WithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromContext extracts the request transaction, if any.
func TxFromContext(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	return tx, ok
}

// db selects the request transaction when present, else the fallback.
func db(ctx context.Context, fallback querier) querier {
	if tx, ok := TxFromContext(ctx); ok {
		return tx
	}
	return fallback
}
