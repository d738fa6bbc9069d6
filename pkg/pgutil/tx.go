package pgutil

import (
	"context"

	"github.com/uptrace/bun"
)

type txKey struct{}

// WithTx returns a copy of ctx carrying tx. Writers that find it run their statements
// in tx instead of opening a transaction of their own.
func WithTx(ctx context.Context, tx bun.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromContext returns the transaction stored by WithTx.
func TxFromContext(ctx context.Context) (bun.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(bun.Tx)
	return tx, ok
}

// IDB returns the transaction carried by ctx, or db when there is none.
func IDB(ctx context.Context, db *bun.DB) bun.IDB {
	if tx, ok := TxFromContext(ctx); ok {
		return tx
	}
	return db
}
