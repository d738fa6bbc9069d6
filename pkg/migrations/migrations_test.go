package migrations

import (
	"context"
	"testing"

	"github.com/uptrace/bun/migrate"

	"github.com/chainsafe/spiral-bridge/pkg/bridgestore/dao"
	"github.com/chainsafe/spiral-bridge/pkg/migrations/bridgedb"
	mghelper "github.com/chainsafe/spiral-bridge/pkg/pgutil"
)

var bridgeTables = []string{
	"supply_ledgers",
	"used_nonces",
	"trusted_remotes",
	"bridge_events",
	"ledger_assets",
	"ledger_balances",
}

func TestBridgeDBMigrations_Apply(t *testing.T) {
	db, cleanup := mghelper.SetupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	migrator := migrate.NewMigrator(db, bridgedb.Migrations)

	// Initialize migration system
	err := migrator.Init(ctx)
	if err != nil {
		t.Fatalf("Init() failed: %v", err)
	}

	// Run all migrations up
	group, err := migrator.Migrate(ctx)
	if err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}
	if group.IsZero() {
		t.Error("Expected migrations to run, but none were applied")
	}

	for _, table := range append(bridgeTables, "bun_migrations") {
		mghelper.AssertTableExists(t, db, table)
	}

	mghelper.AssertIndexExists(t, db, "idx_bridge_events_asset_id")
	mghelper.AssertIndexExists(t, db, "idx_bridge_events_kind")
}

func TestBridgeDBMigrations_Idempotency(t *testing.T) {
	db, cleanup := mghelper.SetupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	migrator := migrate.NewMigrator(db, bridgedb.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("First Migrate() failed: %v", err)
	}

	// Run migrations second time - should not fail
	group, err := migrator.Migrate(ctx)
	if err != nil {
		t.Fatalf("Second Migrate() failed: %v", err)
	}
	if !group.IsZero() {
		t.Error("Expected no new migrations on second run")
	}
	mghelper.AssertTableExists(t, db, "supply_ledgers")
}

func TestBridgeDBMigrations_Rollback(t *testing.T) {
	db, cleanup := mghelper.SetupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	migrator := migrate.NewMigrator(db, bridgedb.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}

	// Rollback last migration group (all migrations run in one group by Migrate())
	group, err := migrator.Rollback(ctx)
	if err != nil {
		t.Fatalf("Rollback() failed: %v", err)
	}
	if group.IsZero() {
		t.Error("Expected rollback to process a migration")
	}

	for _, table := range bridgeTables {
		mghelper.AssertTableNotExists(t, db, table)
	}
}

func TestUsedNonces_PrimaryKeyRejectsReplay(t *testing.T) {
	db, cleanup := mghelper.SetupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	migrator := migrate.NewMigrator(db, bridgedb.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}

	nonce := &dao.UsedNonceDao{
		AssetID:  "asset-1",
		Nonce:    "0x0101010101010101010101010101010101010101010101010101010101010101",
		Position: 0,
	}
	if _, err := db.NewInsert().Model(nonce).Exec(ctx); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	mghelper.AssertRowCount(t, db, "used_nonces", 1)

	replay := *nonce
	replay.Position = 1
	if _, err := db.NewInsert().Model(&replay).Exec(ctx); err == nil {
		t.Error("Expected duplicate (asset_id, nonce) insert to fail")
	}
	mghelper.AssertRowCount(t, db, "used_nonces", 1)
}
