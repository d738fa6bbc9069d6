package main

import (
	"context"
	"flag"
	"log"

	"github.com/uptrace/bun/migrate"

	"github.com/chainsafe/spiral-bridge/pkg/config"
	"github.com/chainsafe/spiral-bridge/pkg/migrations/bridgedb"
	"github.com/chainsafe/spiral-bridge/pkg/pgutil"
	mghelper "github.com/chainsafe/spiral-bridge/pkg/pgutil/migrations"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Usage = mghelper.Usage
	flag.Parse()

	// Only the database section is needed to migrate
	dbCfg, err := config.LoadDatabase(*cfgPath)
	if err != nil {
		log.Fatalf("error reading configuration file: %s", err.Error())
	}

	db, err := pgutil.ConnectDB(dbCfg)
	if err != nil {
		log.Fatalf("error connecting to database: %s", err.Error())
	}
	defer db.Close()

	log.Printf("Running migrations for bridge database (%s)...\n", dbCfg.Database)

	migrator := migrate.NewMigrator(db, bridgedb.Migrations)

	if err := mghelper.RunMigrations(context.Background(), migrator, flag.Args()...); err != nil {
		mghelper.Exitf("%s", err)
	}
}
