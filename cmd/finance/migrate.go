package main

import (
	"context"
	"flag"
	"log"

	"github.com/google/subcommands"

	"finance-sim/config"
)

type migrateCmd struct{}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "create or update the database schema" }
func (*migrateCmd) Usage() string {
	return `migrate

  Applies the schema to SQLITE_PATH and BIRTHDAYS_SQLITE_PATH. Safe to rerun.
`
}

func (*migrateCmd) SetFlags(*flag.FlagSet) {}

func (*migrateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	// Migrations need no quote provider, so the config is not validated.
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("[migrate] %v", err)
		return subcommands.ExitFailure
	}

	for _, path := range []string{cfg.Storage.SQLitePath, cfg.Storage.BirthdaysSQLitePath} {
		db, err := openDB(path)
		if err != nil {
			log.Printf("[migrate] %s: %v", path, err)
			return subcommands.ExitFailure
		}
		err = db.Migrate(ctx)
		db.Close()
		if err != nil {
			log.Printf("[migrate] %s: %v", path, err)
			return subcommands.ExitFailure
		}
		log.Printf("[migrate] %s up to date", path)
	}
	return subcommands.ExitSuccess
}
