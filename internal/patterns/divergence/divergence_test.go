package divergence

import (
	"strings"
	"testing"
	"time"

	"github.com/ridopark/jonbu-patterns/internal/models"
)

// vShape writes a symmetric V-dip of the given depth centered at idx into
// dst, leaving values elsewhere untouched.
func vShape(dst []float64, idx int, base, trough float64) {
	step := (base - trough) / 5
	for offset := -5; offset <= 5; offset++ {
		i := idx + offset
		depth := 5 - int(abs(float64(offset)))
		dst[i] = base - float64(depth)*step
	}
}

func bullishDivergenceSeries() (models.Series, []float64, []bool) {
	n := 40
	lows := make([]float64, n)
	highs := make([]float64, n)
	indicator := make([]float64, n)
	present := make([]bool, n)
	for i := range lows {
		lows[i] = 100
		highs[i] = 120
		indicator[i] = 50
		present[i] = true
	}
	vShape(lows, 10, 100, 90)
	vShape(lows, 30, 100, 85) // price makes a lower low
	vShape(indicator, 10, 50, 25)
	vShape(indicator, 30, 50, 35) // indicator makes a higher low

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, n)
	for i := range bars {
		bars[i] = models.Bar{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Open:      lows[i] + 5, Close: lows[i] + 5,
			High: highs[i], Low: lows[i], Volume: 1000,
		}
	}
	return models.Series{Symbol: "TEST", Timeframe: "1h", Bars: bars}, indicator, present
}

func TestDetectFindsBullishDivergence(t *testing.T) {
	series, indicator, present := bullishDivergenceSeries()

	result := Detect(series, indicator, present, 0.5, "RSI")

	found := false
	for _, p := range result.Patterns {
		if p.Kind == models.BullishDivergence {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a bullish divergence, got %+v", result.Patterns)
	}
}

func TestDetectRecordsIndicatorNameInDescription(t *testing.T) {
	series, indicator, present := bullishDivergenceSeries()

	result := Detect(series, indicator, present, 0.5, "RSI")

	if len(result.Patterns) == 0 {
		t.Fatalf("expected at least one divergence pattern")
	}
	for _, p := range result.Patterns {
		if !strings.Contains(p.Description, "RSI") {
			t.Errorf("expected description to name the indicator, got %q", p.Description)
		}
	}
}

func TestDetectFindsNothingWhenPriceAndIndicatorAgree(t *testing.T) {
	n := 40
	lows := make([]float64, n)
	highs := make([]float64, n)
	indicator := make([]float64, n)
	present := make([]bool, n)
	for i := range lows {
		lows[i] = 100
		highs[i] = 120
		indicator[i] = 50
		present[i] = true
	}
	vShape(lows, 10, 100, 90)
	vShape(lows, 30, 100, 85)
	vShape(indicator, 10, 50, 40)
	vShape(indicator, 30, 50, 30) // indicator also makes a lower low: no divergence

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, n)
	for i := range bars {
		bars[i] = models.Bar{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Open:      lows[i] + 5, Close: lows[i] + 5,
			High: highs[i], Low: lows[i], Volume: 1000,
		}
	}
	series := models.Series{Symbol: "TEST", Timeframe: "1h", Bars: bars}

	result := Detect(series, indicator, present, 0.5, "RSI")

	for _, p := range result.Patterns {
		if p.Kind == models.BullishDivergence || p.Kind == models.HiddenBullishDivergence {
			t.Errorf("expected no bullish divergence when price and indicator move together, got %+v", p)
		}
	}
}

func TestDetectIgnoresAbsentIndicatorValuesAtExtrema(t *testing.T) {
	series, indicator, present := bullishDivergenceSeries()
	present[10] = false

	result := Detect(series, indicator, present, 0.5, "RSI")

	for _, p := range result.Patterns {
		if p.StartIndex == 10 {
			t.Errorf("expected an absent indicator value at a price extremum to suppress that pairing, got %+v", p)
		}
	}
}
