package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/subbase-api/pkg/config"
	"github.com/FACorreiaa/subbase-api/pkg/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Database migration commands",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(func(d *db.DB) error { return d.RunMigrations() })
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the latest migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(func(d *db.DB) error { return d.RollbackMigration() })
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the state of every migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(func(d *db.DB) error { return d.MigrationStatus() })
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)
}

func withDatabase(fn func(*db.DB) error) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := newLogger(cfg.Log)

	database, err := db.New(db.Config{DSN: cfg.Database.DSN(), MaxConns: 2}, logger)
	if err != nil {
		return err
	}
	defer database.Close()

	return fn(database)
}
