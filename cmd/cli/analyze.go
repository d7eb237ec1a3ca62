package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ridopark/jonbu-patterns/internal/engine"
	"github.com/ridopark/jonbu-patterns/internal/logger"
	"github.com/ridopark/jonbu-patterns/internal/models"
)

var (
	analyzeSymbol      string
	analyzeTimeframe   string
	analyzeSensitivity string
	analyzeFile        string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run pattern analysis over a bar file",
	Long:  `Reads a JSON array of OHLCV bars and runs the full detection pipeline over them.`,
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeSymbol, "symbol", "", "symbol the bars belong to (required)")
	analyzeCmd.Flags().StringVar(&analyzeTimeframe, "timeframe", "1day", "bar timeframe")
	analyzeCmd.Flags().StringVar(&analyzeSensitivity, "sensitivity", "medium", "sensitivity preset (very_low, low, medium, high, very_high)")
	analyzeCmd.Flags().StringVar(&analyzeFile, "file", "", "path to a JSON bar array (required)")
	analyzeCmd.MarkFlagRequired("symbol")
	analyzeCmd.MarkFlagRequired("file")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if err := validateSymbol(analyzeSymbol); err != nil {
		return err
	}
	if err := validateTimeframe(analyzeTimeframe); err != nil {
		return err
	}
	if err := validateOutputFormat(format); err != nil {
		return err
	}

	cfg, err := loadAppConfig()
	if err != nil {
		return err
	}

	level := engine.SensitivityLevel(analyzeSensitivity)
	analysisConfig := engine.SensitivityPreset(level)
	analysisConfig.Analysis.MinDataPoints = cfg.Analysis.Analysis.MinDataPoints
	analysisConfig.Analysis.MaxDataPoints = cfg.Analysis.Analysis.MaxDataPoints

	bars, err := readBarFile(analyzeFile)
	if err != nil {
		return fmt.Errorf("failed to read bar file: %w", err)
	}

	series := models.Series{Symbol: analyzeSymbol, Timeframe: analyzeTimeframe, Bars: bars}

	eng := engine.New(analysisConfig, logger.New(cfg.Environment, cfg.LogLevel))
	result := eng.Analyze(context.Background(), series)

	return printResult(result)
}

func readBarFile(path string) ([]models.Bar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var bars []models.Bar
	if err := json.Unmarshal(data, &bars); err != nil {
		return nil, fmt.Errorf("malformed bar JSON: %w", err)
	}
	return bars, nil
}

func printResult(result models.AnalysisResult) error {
	switch format {
	case "table":
		printResultTable(result)
		return nil
	default:
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		fmt.Println(string(out))
		return nil
	}
}

func printResultTable(result models.AnalysisResult) {
	fmt.Printf("Analysis %s (%s %s): %s\n", result.AnalysisID, result.Symbol, result.Timeframe, result.Outcome)
	if result.Err != nil {
		fmt.Printf("  error: %v\n", result.Err)
		return
	}
	fmt.Printf("  data points: %d    patterns: %d    elapsed: %.3fs\n", result.DataPoints, result.Summary.Total, result.AnalysisTimeSeconds)
	fmt.Println()
	fmt.Printf("%-28s %-20s %-10s %-8s %s\n", "KIND", "CATEGORY", "CONFIDENCE", "BARS", "DESCRIPTION")
	for _, p := range result.Patterns {
		fmt.Printf("%-28s %-20s %-10.2f %-8d %s\n", p.Kind, p.Category, p.Confidence, p.DurationBars(), p.Description)
	}
	fmt.Println()
	for _, rec := range result.Recommendations {
		fmt.Printf("  - %s\n", rec)
	}
}
