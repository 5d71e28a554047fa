package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX interface{}

// TransactionManager executes fn within a database transaction and passes the
// underlying handle as tx. Repositories detect the handle and run tx-bound
// statements (SELECT ... FOR UPDATE, guarded UPDATE) on it.
//
//	tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
//		c, err := codes.FindForRedeem(ctx, tx, code, scope)
//		...
//		return err
//	})
//
// The concrete type of tx is infra-defined (pgx.Tx for Postgres).
// Repositories MUST accept NoTX (non-transactional path).
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
