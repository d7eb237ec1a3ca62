package engine_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ridopark/jonbu-patterns/internal/engine"
	"github.com/ridopark/jonbu-patterns/internal/indicators"
	"github.com/ridopark/jonbu-patterns/internal/logger"
	"github.com/ridopark/jonbu-patterns/internal/models"
)

func testLogger() zerolog.Logger {
	return logger.New("test", "error")
}

func generateSeries(n int) models.Series {
	bars := make([]models.Bar, n)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	price := 100.0
	for i := 0; i < n; i++ {
		price += math.Sin(float64(i)/5) * 2
		open := price
		closeP := price + math.Sin(float64(i)/3)
		high := math.Max(open, closeP) + 1
		low := math.Min(open, closeP) - 1
		bars[i] = models.Bar{
			Timestamp: base.Add(time.Duration(i) * 24 * time.Hour),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closeP,
			Volume:    1000 + float64(i*10),
		}
	}
	return models.Series{Symbol: "TEST", Timeframe: "1day", Bars: bars}
}

func TestAnalyzeRejectsTooFewBars(t *testing.T) {
	eng := engine.New(engine.DefaultConfiguration(), testLogger())
	series := generateSeries(5)

	result := eng.Analyze(context.Background(), series)

	if result.Outcome != models.InputError {
		t.Fatalf("expected InputError outcome, got %v", result.Outcome)
	}
	if result.Success() {
		t.Error("Success() should be false for an InputError outcome")
	}
	if result.Err == nil {
		t.Error("expected a non-nil Err describing the rejection")
	}
}

func TestAnalyzeSucceedsWithEnoughBars(t *testing.T) {
	eng := engine.New(engine.DefaultConfiguration(), testLogger())
	series := generateSeries(120)

	result := eng.Analyze(context.Background(), series)

	if result.Outcome != models.Success {
		t.Fatalf("expected Success outcome, got %v (%v)", result.Outcome, result.Err)
	}
	if !result.Success() {
		t.Error("Success() should be true for a Success outcome")
	}
	if result.DataPoints != 120 {
		t.Errorf("expected 120 data points, got %d", result.DataPoints)
	}
	if result.AnalysisTimeSeconds <= 0 {
		t.Error("expected AnalysisTimeSeconds to be recorded")
	}
	if result.Summary.Total != len(result.Patterns) {
		t.Errorf("summary total %d does not match pattern count %d", result.Summary.Total, len(result.Patterns))
	}
}

func TestAnalyzeHonorsCancelledContext(t *testing.T) {
	eng := engine.New(engine.DefaultConfiguration(), testLogger())
	series := generateSeries(120)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := eng.Analyze(ctx, series)

	if result.Outcome != models.Cancelled {
		t.Fatalf("expected Cancelled outcome, got %v", result.Outcome)
	}
}

func TestAnalyzeTruncatesToMaxDataPoints(t *testing.T) {
	cfg := engine.DefaultConfiguration()
	cfg.Analysis.MaxDataPoints = 50
	eng := engine.New(cfg, testLogger())
	series := generateSeries(200)

	result := eng.Analyze(context.Background(), series)

	if result.Outcome != models.Success {
		t.Fatalf("expected Success outcome, got %v (%v)", result.Outcome, result.Err)
	}
	if result.DataPoints != 50 {
		t.Errorf("expected truncation to 50 data points, got %d", result.DataPoints)
	}
}

func TestAnalyzeWithCacheReturnsConsistentIndicators(t *testing.T) {
	cache := indicators.NewCache(time.Minute)
	eng := engine.NewWithCache(engine.DefaultConfiguration(), testLogger(), cache)
	series := generateSeries(120)

	first := eng.Analyze(context.Background(), series)
	second := eng.Analyze(context.Background(), series)

	if first.Outcome != models.Success || second.Outcome != models.Success {
		t.Fatalf("expected both analyses to succeed, got %v / %v", first.Outcome, second.Outcome)
	}
	if cache.Size() == 0 {
		t.Error("expected the cache to hold an entry after a successful analysis")
	}
	if first.Indicators.RSI.Current == nil || second.Indicators.RSI.Current == nil {
		t.Fatal("expected RSI current value to be populated")
	}
	if *first.Indicators.RSI.Current != *second.Indicators.RSI.Current {
		t.Errorf("cached RSI snapshot diverged: %v vs %v", *first.Indicators.RSI.Current, *second.Indicators.RSI.Current)
	}
}

func TestAnalyzeRejectsInvalidSensitivityConfiguration(t *testing.T) {
	cfg := engine.DefaultConfiguration()
	cfg.Sensitivity.GeometricPatterns = 5.0 // out of [0,1] range
	eng := engine.New(cfg, testLogger())
	series := generateSeries(120)

	result := eng.Analyze(context.Background(), series)

	if result.Outcome != models.InputError {
		t.Fatalf("expected InputError for out-of-range sensitivity, got %v", result.Outcome)
	}
}
