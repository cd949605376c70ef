package main

import (
	"context"
	"fmt"
	"io"

	"github.com/felixgeelhaar/signup/internal/config"
	"github.com/felixgeelhaar/signup/internal/storage/postgres"
	"github.com/felixgeelhaar/signup/internal/storage/sqlite"
)

// cmdMigrate applies migrations regardless of DATABASE_AUTO_MIGRATE
func cmdMigrate() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()

	switch cfg.Database.Driver {
	case config.DriverPostgres:
		if err := postgres.Migrate(ctx, cfg.Database.URL); err != nil {
			return err
		}
		fmt.Println("postgres migrations applied")

	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.Database.SQLitePath)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Migrate(ctx); err != nil {
			return err
		}
		version, err := db.Version(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("sqlite %s at schema version %d\n", db.Path(), version)

	default:
		return fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
	return nil
}

func cmdConfig(w io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	return cfg.WriteYAML(w)
}
