// Package migrations holds the helpers shared by the bridge database migrations and
// the migrate command.
package migrations

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

const usageText = `Usage:
  go run cmd/bridge/migrate/main.go [-config path] <command>

Commands:
  init    create the bun_migrations and bun_migration_locks tables
  up      apply every pending migration as one group
  down    roll back the last applied group
  status  print applied and pending migrations

Examples:
  go run cmd/bridge/migrate/main.go -config config.yaml init
  go run cmd/bridge/migrate/main.go -config config.yaml up
`

// ErrNoCommand is returned by RunMigrations when args is empty.
var ErrNoCommand = errors.New("no migration command provided")

// Usage prints command usage and exits with status 2.
func Usage() {
	fmt.Fprint(os.Stderr, usageText)
	flag.PrintDefaults()
	os.Exit(2)
}

// Exitf prints the message followed by the usage text and exits.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	Usage()
}

// CreateSchema creates the table of every model unless it already exists.
func CreateSchema(ctx context.Context, db bun.IDB, models ...any) error {
	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", model, err)
		}
	}
	return nil
}

// DropTables drops the table of every model, cascading to dependent objects.
func DropTables(ctx context.Context, db bun.IDB, models ...any) error {
	for _, model := range models {
		if _, err := db.NewDropTable().Model(model).IfExists().Cascade().Exec(ctx); err != nil {
			return fmt.Errorf("drop table for %T: %w", model, err)
		}
	}
	return nil
}

// CreateModelIndexes creates one index per column on the table of model, named
// idx_<table>_<column>.
func CreateModelIndexes(ctx context.Context, db bun.IDB, model any, columns ...string) error {
	table := strings.NewReplacer(`"`, "", ".", "_").Replace(db.NewCreateIndex().Model(model).GetTableName())
	if table == "" {
		return fmt.Errorf("no table for model %T", model)
	}
	for _, column := range columns {
		_, err := db.NewCreateIndex().
			Model(model).
			Index(IndexName(table, column)).
			Column(column).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("create index on %s(%s): %w", table, column, err)
		}
	}
	return nil
}

// IndexName returns the name CreateModelIndexes gives the index on table(column).
func IndexName(table, column string) string {
	return "idx_" + table + "_" + column
}

// RunMigrations executes the migrate command in args[0] against migrator.
// up and down hold the migration lock while they run.
func RunMigrations(ctx context.Context, migrator *migrate.Migrator, args ...string) error {
	if len(args) == 0 {
		return ErrNoCommand
	}

	switch args[0] {
	case "init":
		if err := migrator.Init(ctx); err != nil {
			return err
		}
		log.Println("migration tables created")
		return nil

	case "up":
		return withLock(ctx, migrator, func() error {
			group, err := migrator.Migrate(ctx)
			if err != nil {
				return err
			}
			if group.IsZero() {
				log.Println("database is up to date")
				return nil
			}
			log.Printf("migrated to %s", group)
			return nil
		})

	case "down":
		return withLock(ctx, migrator, func() error {
			group, err := migrator.Rollback(ctx)
			if err != nil {
				return err
			}
			if group.IsZero() {
				log.Println("nothing to roll back")
				return nil
			}
			log.Printf("rolled back %s", group)
			return nil
		})

	case "status":
		ms, err := migrator.MigrationsWithStatus(ctx)
		if err != nil {
			return err
		}
		log.Printf("applied: %s", ms.Applied())
		log.Printf("pending: %s", ms.Unapplied())
		log.Printf("last group: %s", ms.LastGroup())
		return nil

	default:
		return fmt.Errorf("unknown migration command %q", args[0])
	}
}

func withLock(ctx context.Context, migrator *migrate.Migrator, run func() error) error {
	if err := migrator.Lock(ctx); err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	defer func() {
		if err := migrator.Unlock(ctx); err != nil {
			log.Printf("failed to release migration lock: %v", err)
		}
	}()
	return run()
}
