// Copyright 2026 The Slabseller Accounts Authors
// Licensed under the EUPL-1.2

package database

import (
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/vinovest/sqlx"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var embedMigrations embed.FS

// dialect returns the goose dialect and migration directory for a connection.
func dialect(db *sqlx.DB) (string, string, error) {
	switch db.DriverName() {
	case driverSQLite:
		return "sqlite3", "migrations/sqlite", nil
	case driverPostgres:
		return "postgres", "migrations/postgres", nil
	default:
		return "", "", fmt.Errorf("unsupported database driver %q", db.DriverName())
	}
}

func prepare(db *sqlx.DB) (string, error) {
	name, dir, err := dialect(db)
	if err != nil {
		return "", err
	}

	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect(name); err != nil {
		return "", err
	}
	return dir, nil
}

// RunMigrations runs all pending goose migrations.
func RunMigrations(db *sqlx.DB) error {
	dir, err := prepare(db)
	if err != nil {
		return err
	}
	return goose.Up(db.DB, dir)
}

// MigrateDown rolls back the last migration.
func MigrateDown(db *sqlx.DB) error {
	dir, err := prepare(db)
	if err != nil {
		return err
	}
	return goose.Down(db.DB, dir)
}

// MigrateReset rolls back all migrations.
func MigrateReset(db *sqlx.DB) error {
	dir, err := prepare(db)
	if err != nil {
		return err
	}
	return goose.Reset(db.DB, dir)
}

// MigrationVersion returns the currently applied schema version.
func MigrationVersion(db *sqlx.DB) (int64, error) {
	if _, err := prepare(db); err != nil {
		return 0, err
	}
	return goose.GetDBVersion(db.DB)
}
