// Copyright 2026 The Slabseller Accounts Authors
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"fmt"
	"log/slog"

	"codeberg.org/slabseller/accounts/internal/database"
	"github.com/urfave/cli/v3"
	"github.com/vinovest/sqlx"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Manage the database schema",
		Commands: []*cli.Command{
			{
				Name:   "up",
				Usage:  "Apply all pending migrations",
				Action: withDatabase(database.RunMigrations),
			},
			{
				Name:   "down",
				Usage:  "Roll back the last migration",
				Action: withDatabase(database.MigrateDown),
			},
			{
				Name:   "reset",
				Usage:  "Roll back all migrations",
				Action: withDatabase(database.MigrateReset),
			},
			{
				Name:  "status",
				Usage: "Print the current schema version",
				Action: withDatabase(func(db *sqlx.DB) error {
					version, err := database.MigrationVersion(db)
					if err != nil {
						return err
					}
					fmt.Println(version)
					return nil
				}),
			},
		},
	}
}

func withDatabase(fn func(*sqlx.DB) error) cli.ActionFunc {
	return func(_ context.Context, cmd *cli.Command) error {
		db, err := database.Connect(cmd.String("database-dsn"))
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer func() {
			if closeErr := db.Close(); closeErr != nil {
				slog.Error("failed to close database", "error", closeErr)
			}
		}()

		if err := fn(db); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		return nil
	}
}
