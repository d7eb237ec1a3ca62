package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ridopark/jonbu-patterns/internal/config"
	"github.com/ridopark/jonbu-patterns/internal/logger"
)

// CLI for running the pattern detection engine against a bar file and for
// generating synthetic scenarios to exercise it with.

var (
	rootCmd = &cobra.Command{
		Use:   "jonbu-patterns",
		Short: "Chart pattern detection tool",
		Long:  `A CLI tool for running chart pattern analysis over OHLCV bar data.`,
	}

	// Global flags
	configFile string
	logLevel   string
	format     string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "ignored: configuration is always loaded from config/.env")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&format, "format", "json", "output format (json, table)")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(mockCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadAppConfig loads configuration and initializes the logger, honoring
// the --log-level override the way the analyze and migrate commands both
// need to.
func loadAppConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	logger.InitLogger(cfg.LogLevel, cfg.Environment)
	return cfg, nil
}
