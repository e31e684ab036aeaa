package main

import (
	"fmt"
	"os"

	"github.com/ostrander/workbench/internal/config"
	"github.com/ostrander/workbench/internal/db"
	"github.com/spf13/cobra"
)

func newDBCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management",
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "workbench.yaml", "path to Workbench config file")

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create or update the schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBInit(cmd, configPath)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Drop all data and recreate the schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBReset(cmd, configPath)
		},
	})
	return cmd
}

func runDBInit(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	gdb, err := db.Open(cfg.Database)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(gdb); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Schema up to date.")
	return nil
}

func runDBReset(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	switch cfg.Database.Driver {
	case config.DriverSQLite:
		if err := os.Remove(cfg.Database.Path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", cfg.Database.Path, err)
		}
	case config.DriverMySQL:
		adminDB, err := db.OpenAdmin(cfg.Database)
		if err != nil {
			return err
		}
		if err := db.DropDatabase(adminDB, cfg.Database.Name); err != nil {
			return err
		}
		if err := db.CreateDatabase(adminDB, cfg.Database.Name); err != nil {
			return err
		}
	}

	gdb, err := db.Open(cfg.Database)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(gdb); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Database reset.")
	return nil
}
