//-------------------------------------------------------------------------
//
// Order Delivery Warehouse ETL
//
// Copyright (c) 2025 - 2026, orderdw contributors
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package db

import (
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/orderdw/orderdw-etl/internal/logging"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrator applies the embedded schema migrations.
type Migrator struct {
	m *migrate.Migrate
}

// NewMigrator opens a dedicated database/sql handle using the pool's
// connection settings and prepares the embedded migration source.
func NewMigrator(pool *pgxpool.Pool, verbose bool) (*Migrator, error) {
	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	sqlDB := stdlib.OpenDB(*pool.Config().ConnConfig)
	driver, err := pgxmigrate.WithInstance(sqlDB, &pgxmigrate.Config{})
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "pgx5", driver)
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = logging.MigrationLogger{Verbosity: verbose}

	return &Migrator{m: m}, nil
}

// Up applies every pending migration. Having nothing to apply is not an
// error.
func (mg *Migrator) Up() error {
	start := time.Now()
	err := mg.m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		logging.Info().Msg("No new migrations to apply")
		return nil
	}
	if err != nil {
		return mg.describe("up", err)
	}
	logging.Info().Dur("elapsed", time.Since(start)).Msg("Successfully applied migrations")
	return nil
}

// Down rolls back steps migrations, or all of them when steps is zero.
func (mg *Migrator) Down(steps int) error {
	var err error
	if steps > 0 {
		err = mg.m.Steps(-steps)
	} else {
		err = mg.m.Down()
	}
	if errors.Is(err, migrate.ErrNoChange) {
		logging.Info().Msg("No migrations to roll back")
		return nil
	}
	if err != nil {
		return mg.describe("down", err)
	}
	return nil
}

// Version returns the applied schema version. A database with no
// migrations applied reports version 0.
func (mg *Migrator) Version() (version uint, dirty bool, err error) {
	version, dirty, err = mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// Force marks the schema as being at version without running migrations,
// clearing the dirty flag after a failed migration was repaired by hand.
func (mg *Migrator) Force(version int) error {
	return mg.m.Force(version)
}

// Close releases the migration source and database handle.
func (mg *Migrator) Close() error {
	srcErr, dbErr := mg.m.Close()
	if srcErr != nil {
		return srcErr
	}
	if dbErr != nil {
		return dbErr
	}
	return nil
}

func (mg *Migrator) describe(direction string, err error) error {
	version, dirty, verr := mg.m.Version()
	if verr != nil {
		return fmt.Errorf("migrate %s failed: %w", direction, err)
	}
	return fmt.Errorf("migrate %s failed (version %d, dirty=%t): %w", direction, version, dirty, err)
}

// MigrateUp applies all pending migrations using pool's settings.
func MigrateUp(pool *pgxpool.Pool) error {
	mg, err := NewMigrator(pool, false)
	if err != nil {
		return err
	}
	defer mg.Close()
	return mg.Up()
}
