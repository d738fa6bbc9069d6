package bridgedb

import (
	"context"
	"log"

	"github.com/chainsafe/spiral-bridge/pkg/ledger"
	mghelper "github.com/chainsafe/spiral-bridge/pkg/pgutil/migrations"

	"github.com/uptrace/bun"
)

// Tables of the postgres ledger driver. They are unused with the memory driver.
func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating ledger_assets and ledger_balances tables...")
		return mghelper.CreateSchema(ctx, db, &ledger.LedgerAssetDao{}, &ledger.LedgerBalanceDao{})
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping ledger_assets and ledger_balances tables...")
		return mghelper.DropTables(ctx, db, &ledger.LedgerBalanceDao{}, &ledger.LedgerAssetDao{})
	})
}
