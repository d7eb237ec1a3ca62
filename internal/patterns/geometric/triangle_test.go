package geometric

import (
	"testing"
	"time"

	"github.com/ridopark/jonbu-patterns/internal/models"
)

// ascendingTriangleSeries builds a synthetic 24-bar series with a flat
// resistance (highs peaking at 110 at indices 3, 9, 15, 21) and a rising
// support (lows troughing at 95, 98, 101 at indices 6, 12, 18): the
// textbook ascending-triangle shape.
func ascendingTriangleSeries() models.Series {
	highs := []float64{
		104, 109, 109.5, 110, 109.5, 109,
		104, 109, 109.5, 110, 109.5, 109,
		104, 109, 109.5, 110, 109.5, 109,
		104, 109, 109.5, 110, 109.5, 109,
	}
	lows := []float64{
		92, 93.5, 94.5, 95.5, 95.5, 95.5,
		95, 96.5, 97.5, 98.5, 98.5, 98.5,
		98, 99.5, 100.5, 101.5, 101.5, 101.5,
		101, 102.5, 103.5, 104.5, 104.5, 104.5,
	}

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, len(highs))
	for i := range highs {
		mid := (highs[i] + lows[i]) / 2
		bars[i] = models.Bar{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Open:      mid,
			Close:     mid,
			High:      highs[i],
			Low:       lows[i],
			Volume:    float64(2000 - i*60),
		}
	}
	return models.Series{Symbol: "TEST", Timeframe: "1h", Bars: bars}
}

func TestDetectTrianglesFindsAscendingTriangle(t *testing.T) {
	series := ascendingTriangleSeries()

	result := DetectTriangles(series, 0.5)

	found := false
	for _, p := range result.Patterns {
		if p.Kind == models.AscendingTriangle {
			found = true
			if p.Confidence <= 0 || p.Confidence > 1 {
				t.Errorf("expected confidence in (0,1], got %v", p.Confidence)
			}
			if _, ok := p.KeyLevels["upper_resistance"]; !ok {
				t.Error("expected an upper_resistance key level")
			}
		}
	}
	if !found {
		t.Errorf("expected an ascending triangle, got patterns: %+v", result.Patterns)
	}
}

func TestDetectTrianglesFindsNothingOnFlatSeries(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, 24)
	for i := range bars {
		bars[i] = models.Bar{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Open:      100, High: 100, Low: 100, Close: 100, Volume: 1000,
		}
	}
	series := models.Series{Symbol: "TEST", Timeframe: "1h", Bars: bars}

	result := DetectTriangles(series, 0.5)

	if len(result.Patterns) != 0 {
		t.Errorf("expected no triangles on a perfectly flat series, got %+v", result.Patterns)
	}
}

func TestDetectTrianglesHigherSensitivityFindsNoFewerPatterns(t *testing.T) {
	series := ascendingTriangleSeries()

	low := DetectTriangles(series, 0.1)
	high := DetectTriangles(series, 0.9)

	if len(high.Patterns) < len(low.Patterns) {
		t.Errorf("expected higher sensitivity to find at least as many patterns, low=%d high=%d", len(low.Patterns), len(high.Patterns))
	}
}
