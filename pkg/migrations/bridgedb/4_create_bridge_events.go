package bridgedb

import (
	"context"
	"log"

	"github.com/chainsafe/spiral-bridge/pkg/bridgestore/dao"
	mghelper "github.com/chainsafe/spiral-bridge/pkg/pgutil/migrations"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating bridge_events table...")
		if err := mghelper.CreateSchema(ctx, db, &dao.BridgeEventDao{}); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &dao.BridgeEventDao{}, "asset_id", "kind")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping bridge_events table...")
		return mghelper.DropTables(ctx, db, &dao.BridgeEventDao{})
	})
}
