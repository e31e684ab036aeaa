package main

import (
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/ostrander/workbench/internal/config"
	"github.com/ostrander/workbench/internal/db"
	"github.com/ostrander/workbench/internal/notify"
	"github.com/ostrander/workbench/internal/server"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Workbench API server",
		Long:  "Runs the HTTP API plus the scheduled stock/delivery digest. Stops gracefully on SIGINT/SIGTERM.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "workbench.yaml", "path to Workbench config file")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string) error {
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

	notifier, err := notify.FromConfig(cfg.Notify)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Scheduled digest: upcoming deliveries and low/short materials.
	if notifier != nil {
		sched := cron.New()
		_, err := sched.AddFunc(cfg.Digest.Schedule, func() {
			text, err := notify.BuildDigest(gdb, time.Now(), cfg.Digest.DeliveryWindowDays)
			if err != nil {
				log.Printf("digest: %v", err)
				return
			}
			if text == "" {
				return
			}
			notifier.Send(text)
		})
		if err != nil {
			return fmt.Errorf("serve: digest schedule %q: %w", cfg.Digest.Schedule, err)
		}
		sched.Start()
		defer sched.Stop()
	}

	return server.Start(ctx, server.StartOpts{
		DB:       gdb,
		Port:     cfg.ListenPort,
		Notifier: notifier,
		Out:      cmd.OutOrStdout(),
	})
}
