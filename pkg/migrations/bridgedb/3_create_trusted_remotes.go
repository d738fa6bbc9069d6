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
		log.Println("creating trusted_remotes table...")
		return mghelper.CreateSchema(ctx, db, &dao.TrustedRemoteDao{})
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping trusted_remotes table...")
		return mghelper.DropTables(ctx, db, &dao.TrustedRemoteDao{})
	})
}
