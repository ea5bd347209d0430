package db

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/tiancizhuang/apiserver/config"
)

//go:embed migrations
var migrationsFS embed.FS

// MigrateUp applies all pending up migrations.
func MigrateUp(cfg config.Config) error {
	return withMigrator(cfg, func(m *migrate.Migrate) error {
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate up failed: %w", err)
		}
		return nil
	})
}

// MigrateDown reverts every applied migration.
func MigrateDown(cfg config.Config) error {
	return withMigrator(cfg, func(m *migrate.Migrate) error {
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate down failed: %w", err)
		}
		return nil
	})
}

// Reset drops the schema and recreates it, leaving empty tables.
func Reset(cfg config.Config) error {
	if err := MigrateDown(cfg); err != nil {
		return err
	}
	return MigrateUp(cfg)
}

func withMigrator(cfg config.Config, fn func(m *migrate.Migrate) error) error {
	driver, databaseURL, err := migrationTarget(cfg)
	if err != nil {
		return err
	}

	src, err := iofs.New(migrationsFS, "migrations/"+driver)
	if err != nil {
		return fmt.Errorf("load migrations failed: %w", err)
	}

	migrator, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return fmt.Errorf("init migrator failed: %w", err)
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	return fn(migrator)
}

func migrationTarget(cfg config.Config) (driver, databaseURL string, err error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres, "":
		return config.DriverPostgres, PostgresURL(cfg), nil
	case config.DriverSQLite:
		if err := ensureDir(cfg.Database.Path); err != nil {
			return "", "", err
		}
		return config.DriverSQLite, "sqlite://" + cfg.Database.Path, nil
	default:
		return "", "", fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}
