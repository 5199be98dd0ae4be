package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/deskbot/internal/config"
	"github.com/zulandar/deskbot/internal/db"
	"github.com/zulandar/deskbot/internal/state"
	"github.com/zulandar/deskbot/internal/telegraph"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
		Long:  "Maintains the SQL database that holds bot state and transcripts.",
	}

	cmd.AddCommand(newDBMigrateCmd())
	cmd.AddCommand(newDBPurgeCmd())
	return cmd
}

func newDBMigrateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the bot state and transcript tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBMigrate(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to deskbot config file")
	return cmd
}

func runDBMigrate(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	gormDB, err := openDB(cfg)
	if err != nil {
		return err
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		defer sqlDB.Close()
	}
	fmt.Fprintf(out, "Connected to %s\n", cfg.Storage.Driver)

	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	fmt.Fprintf(out, "Migrated %d tables\n", len(db.AllModels()))
	return nil
}

func newDBPurgeCmd() *cobra.Command {
	var (
		configPath string
		days       int
	)

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete bot state and transcripts older than the retention window",
		Long: `Deletes state records and transcript entries last touched before the
retention window. The window defaults to storage.retention_days; --days
overrides it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBPurge(cmd, configPath, days)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to deskbot config file")
	cmd.Flags().IntVar(&days, "days", 0, "retention window in days (default storage.retention_days)")
	return cmd
}

func runDBPurge(cmd *cobra.Command, configPath string, days int) error {
	out := cmd.OutOrStdout()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if days < 0 {
		return fmt.Errorf("--days must be >= 0")
	}
	if days == 0 {
		days = cfg.Storage.RetentionDays
	}
	gormDB, err := openDB(cfg)
	if err != nil {
		return err
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		defer sqlDB.Close()
	}

	store, err := state.NewGormStore(gormDB)
	if err != nil {
		return err
	}
	transcripts, err := telegraph.NewTranscriptStore(telegraph.TranscriptStoreOpts{DB: gormDB})
	if err != nil {
		return err
	}

	ctx := context.Background()
	cutoff := time.Now().Add(-time.Duration(days) * 24 * time.Hour)
	purgers := []struct {
		name string
		p    telegraph.Purger
	}{
		{"state", store},
		{"transcripts", transcripts},
	}
	var total int64
	for _, pg := range purgers {
		n, err := pg.p.PurgeBefore(ctx, cutoff)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Purged %d %s records\n", n, pg.name)
		total += n
	}
	fmt.Fprintf(out, "Purged %d records older than %s\n", total, cutoff.Format(time.RFC3339))
	return nil
}
