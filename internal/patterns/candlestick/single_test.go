package candlestick

import (
	"testing"
	"time"

	"github.com/ridopark/jonbu-patterns/internal/models"
)

func bar(t time.Time, open, high, low, close float64) models.Bar {
	return models.Bar{Timestamp: t, Open: open, High: high, Low: low, Close: close, Volume: 1000}
}

func seriesWithDowntrendThen(last models.Bar) models.Series {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := []models.Bar{
		bar(base, 110, 111, 105, 106),
		bar(base.Add(time.Hour), 106, 107, 101, 102),
		bar(base.Add(2*time.Hour), 102, 103, 97, 98),
		bar(base.Add(3*time.Hour), 98, 99, 93, 94),
		bar(base.Add(4*time.Hour), 94, 95, 89, 90),
		last,
	}
	return models.Series{Symbol: "TEST", Timeframe: "1h", Bars: bars}
}

func TestDetectSingleBarFindsHammerAfterDowntrend(t *testing.T) {
	last := bar(time.Date(2026, 1, 1, 5, 0, 0, 0, time.UTC), 90, 90.5, 82, 89.8)
	series := seriesWithDowntrendThen(last)

	result := DetectSingleBar(series, 0.5)

	found := false
	for _, p := range result.Patterns {
		if p.Kind == models.Hammer && p.StartIndex == 5 {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a Hammer at the final bar, got %+v", result.Patterns)
	}
}

func TestDetectSingleBarFindsDojiOnTinyBody(t *testing.T) {
	last := bar(time.Date(2026, 1, 1, 5, 0, 0, 0, time.UTC), 90, 95, 85, 90.1)
	series := seriesWithDowntrendThen(last)

	result := DetectSingleBar(series, 0.9)

	found := false
	for _, p := range result.Patterns {
		if p.Kind == models.Doji && p.StartIndex == 5 {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a Doji at the final bar, got %+v", result.Patterns)
	}
}

func TestDetectSingleBarSkipsZeroRangeBars(t *testing.T) {
	flat := bar(time.Date(2026, 1, 1, 5, 0, 0, 0, time.UTC), 100, 100, 100, 100)
	series := seriesWithDowntrendThen(flat)

	result := DetectSingleBar(series, 0.5)

	for _, p := range result.Patterns {
		if p.StartIndex == 5 {
			t.Errorf("expected a zero-range bar to never produce a pattern, got %+v", p)
		}
	}
}

func TestDetectSingleBarHigherSensitivityFindsNoFewerPatterns(t *testing.T) {
	last := bar(time.Date(2026, 1, 1, 5, 0, 0, 0, time.UTC), 90, 90.5, 82, 89.8)
	series := seriesWithDowntrendThen(last)

	low := DetectSingleBar(series, 0.1)
	high := DetectSingleBar(series, 0.9)

	if len(high.Patterns) < len(low.Patterns) {
		t.Errorf("expected higher sensitivity to find at least as many patterns, low=%d high=%d", len(low.Patterns), len(high.Patterns))
	}
}
