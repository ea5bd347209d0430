/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/tiancizhuang/apiserver/config"
	"github.com/tiancizhuang/apiserver/internal/db"
	"github.com/tiancizhuang/apiserver/pkg/logging"
)

// migrateCmd represents the migrate command.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all up migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadMigrateConfig()
		if err := db.MigrateUp(cfg); err != nil {
			return err
		}
		slog.Info("Migrations applied", "driver", cfg.Database.Driver)
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Revert all migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadMigrateConfig()
		if err := db.MigrateDown(cfg); err != nil {
			return err
		}
		slog.Info("Migrations reverted", "driver", cfg.Database.Driver)
		return nil
	},
}

// initDBCmd drops every table and recreates the schema.
var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Clear the existing data and create new tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadMigrateConfig()
		if err := db.Reset(cfg); err != nil {
			return err
		}
		slog.Info("Initialized the database", "driver", cfg.Database.Driver)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(initDBCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
}

func loadMigrateConfig() config.Config {
	cfg := config.LoadConfig()
	logging.Setup(cfg.LogLevel)
	return cfg
}
