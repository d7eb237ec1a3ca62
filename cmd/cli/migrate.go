package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ridopark/jonbu-patterns/internal/logger"
	"github.com/ridopark/jonbu-patterns/internal/store"
)

var (
	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Database migration management",
		Long:  `Manage the schema backing the analysis result store.`,
	}

	migrateUpCmd = &cobra.Command{
		Use:   "up",
		Short: "Create the analysis_results table if missing",
		RunE:  runMigrateUp,
	}

	migrateStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "Report whether the analysis_results table exists",
		RunE:  runMigrateStatus,
	}
)

func init() {
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateStatusCmd)
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS analysis_results (
	id                 TEXT PRIMARY KEY,
	symbol             TEXT NOT NULL,
	timeframe          TEXT NOT NULL,
	outcome            TEXT NOT NULL,
	data_points        INTEGER NOT NULL,
	total_patterns     INTEGER NOT NULL,
	average_confidence DOUBLE PRECISION NOT NULL,
	highest_confidence DOUBLE PRECISION NOT NULL,
	patterns           JSONB NOT NULL,
	recommendations    JSONB NOT NULL,
	warnings           JSONB NOT NULL,
	created_at         TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_analysis_results_symbol_timeframe
	ON analysis_results (symbol, timeframe, created_at DESC);
`

func runMigrateUp(cmd *cobra.Command, args []string) error {
	cfg, err := loadAppConfig()
	if err != nil {
		return err
	}

	db, err := store.NewConnection(cfg.Database, logger.New(cfg.Environment, cfg.LogLevel))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(context.Background(), schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	fmt.Println("analysis_results table is up to date")
	return nil
}

func runMigrateStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadAppConfig()
	if err != nil {
		return err
	}

	db, err := store.NewConnection(cfg.Database, logger.New(cfg.Environment, cfg.LogLevel))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	var exists bool
	row := db.QueryRowContext(context.Background(),
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'analysis_results')`)
	if err := row.Scan(&exists); err != nil {
		return fmt.Errorf("failed to check schema status: %w", err)
	}

	if exists {
		fmt.Println("analysis_results: applied")
	} else {
		fmt.Println("analysis_results: pending (run 'migrate up')")
	}
	return nil
}
