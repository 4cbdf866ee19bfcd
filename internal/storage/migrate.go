package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunMigrations applies the embedded versioned migrations.
func RunMigrations(dsn string) error {
	// Create a separate connection for migrations; closing the migrate
	// instance closes the connection it was given.
	migrateDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("open migration database: %w", err)
	}
	defer migrateDB.Close()

	driver, err := sqlite.WithInstance(migrateDB, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite driver: %w", err)
	}

	d, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", d, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// EnsureSchema creates or upgrades the schema. It is safe to call on every
// start: versioned migrations run first, then missing columns of tables that
// predate the migration history are added in place.
func EnsureSchema(ctx context.Context, db *sql.DB, dsn string) error {
	if err := RunMigrations(dsn); err != nil {
		return err
	}
	added, err := ensureColumns(ctx, db)
	if err != nil {
		return fmt.Errorf("ensure columns: %w", err)
	}
	if len(added) > 0 {
		slog.InfoContext(ctx, "Schema upgraded with additive columns", "columns", added)
	}
	return nil
}
