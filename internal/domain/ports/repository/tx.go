package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager executes a function within a database transaction,
// passing the underlying transaction handle via `tx`.
//
// Every mutation of a job and the transition-log append that records it run
// inside one WithTx call, so a failed callback leaves no partial state.
// Repositories that receive the handle must use it for all their statements,
// and FindByIDForUpdate must serialize concurrent callers on the same job.
//
// USAGE
// tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
// job, err := jobs.FindByIDForUpdate(ctx, tx, id)
// ...
// return logs.Append(ctx, tx, entry)
// })
//
// The concrete type of `tx` is infra-defined (e.g., pgx.Tx for Postgres).
// Repositories MUST gracefully accept `nil` tx (non-transactional path).
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
