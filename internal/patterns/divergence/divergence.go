// Package divergence implements spec.md §4.10's price-vs-indicator
// divergence detector, grounded on cryptvault/patterns/divergence.py's
// peak/trough-pairing approach, expressed over the shared primitives
// extrema extractor instead of the source's own peak scan.
package divergence

import (
	"fmt"

	"github.com/ridopark/jonbu-patterns/internal/models"
	"github.com/ridopark/jonbu-patterns/internal/patterns/common"
	"github.com/ridopark/jonbu-patterns/internal/primitives"
)

const (
	divergenceMinDistance = 5
	minDivergenceLength   = 10
	maxDivergenceLength   = 50
	indicatorTolerance    = 5
)

var divergenceLengthBand = primitives.LengthBand{Lo: 10, Hi: 50}

// Detect implements spec.md §4.10: given a series and an aligned indicator
// value sequence (nulls allowed, represented as NaN-free with a presence
// mask), finds bullish/bearish and hidden divergences between price
// extrema and the nearest indicator extrema. indicatorName (e.g. "RSI")
// is recorded in each pattern's description since DetectedPattern has no
// dedicated field for which indicator a divergence was measured against.
func Detect(series models.Series, indicatorValues []float64, present []bool, sensitivity float64, indicatorName string) common.Result {
	var result common.Result

	lows := series.Lows()
	highs := series.Highs()
	threshold := primitives.AcceptanceThreshold(0.3, 0.4, sensitivity)

	priceTroughs := primitives.Troughs(primitives.FindTurningPoints(lows, divergenceMinDistance))
	pricePeaks := primitives.Peaks(primitives.FindTurningPoints(highs, divergenceMinDistance))

	indicatorSeries := maskedSeries(indicatorValues, present)
	indicatorTroughs := primitives.Troughs(primitives.FindTurningPoints(indicatorSeries, divergenceMinDistance))
	indicatorPeaks := primitives.Peaks(primitives.FindTurningPoints(indicatorSeries, divergenceMinDistance))

	result.Add(scanPricePairs(series, priceTroughs, indicatorTroughs, indicatorValues, present, true, sensitivity, threshold, indicatorName))
	result.Add(scanPricePairs(series, pricePeaks, indicatorPeaks, indicatorValues, present, false, sensitivity, threshold, indicatorName))

	return result
}

// maskedSeries replaces absent indicator values with the neighboring
// present value so the turning-point extractor never sees a gap, per
// spec.md §4.1's extractor contract of operating over a dense slice.
func maskedSeries(values []float64, present []bool) []float64 {
	out := make([]float64, len(values))
	last := 0.0
	for i := range values {
		if present[i] {
			last = values[i]
		}
		out[i] = last
	}
	return out
}

func scanPricePairs(series models.Series, priceExtrema, indicatorExtrema []models.TurningPoint, indicatorValues []float64, present []bool, isTrough bool, sensitivity, threshold float64, indicatorName string) common.Result {
	var result common.Result

	for i := 0; i+1 < len(priceExtrema); i++ {
		p1, p2 := priceExtrema[i], priceExtrema[i+1]
		span := p2.Index - p1.Index
		if span < minDivergenceLength || span > maxDivergenceLength {
			continue
		}

		ind1, ok1 := nearestIndicator(indicatorExtrema, p1.Index, indicatorTolerance)
		ind2, ok2 := nearestIndicator(indicatorExtrema, p2.Index, indicatorTolerance)
		if !ok1 || !ok2 {
			continue
		}
		if !present[p1.Index] || !present[p2.Index] {
			continue
		}

		kind, ok := classify(p1.Value, p2.Value, ind1.Value, ind2.Value, isTrough)
		if !ok {
			continue
		}

		priceChange := (p2.Value - p1.Value) / p1.Value
		indicatorChange := 0.0
		if ind1.Value != 0 {
			indicatorChange = (ind2.Value - ind1.Value) / ind1.Value
		}

		magnitude := clamp01score(abs(priceChange-indicatorChange) / 0.10)
		lengthScore := primitives.LengthScore(span, divergenceLengthBand)
		directionClarity := directionClarityScore(priceChange, indicatorChange)
		strengthFactor := clamp01score(minf(abs(priceChange), abs(indicatorChange)) / 0.05)

		confidence := primitives.AggregateConfidence([]primitives.Factor{
			{Value: magnitude, Weight: 0.4},
			{Value: lengthScore, Weight: 0.3},
			{Value: directionClarity, Weight: 0.2},
			{Value: strengthFactor, Weight: 0.1},
		}, sensitivity)

		if confidence < threshold {
			continue
		}

		pattern := models.DetectedPattern{
			Kind:       kind,
			Category:   models.CategoryOf(kind),
			Confidence: confidence,
			StartTime:  series.Bars[p1.Index].Timestamp,
			EndTime:    series.Bars[p2.Index].Timestamp,
			StartIndex: p1.Index,
			EndIndex:   p2.Index,
			KeyLevels: map[string]float64{
				"price_1":     p1.Value,
				"price_2":     p2.Value,
				"indicator_1": ind1.Value,
				"indicator_2": ind2.Value,
			},
			Description: fmt.Sprintf("%s (%s) between bars %d and %d", divergenceName(kind), indicatorName, p1.Index, p2.Index),
		}
		result.Patterns = append(result.Patterns, pattern)
	}

	return result
}

func nearestIndicator(extrema []models.TurningPoint, index, tolerance int) (models.TurningPoint, bool) {
	var best models.TurningPoint
	bestDist := tolerance + 1
	found := false
	for _, e := range extrema {
		dist := e.Index - index
		if dist < 0 {
			dist = -dist
		}
		if dist <= tolerance && dist < bestDist {
			best = e
			bestDist = dist
			found = true
		}
	}
	return best, found
}

// classify implements spec.md §4.10's four-way classification for the
// trough-pair case (bullish family) and its peak-pair mirror (bearish
// family).
func classify(price1, price2, ind1, ind2 float64, isTrough bool) (models.PatternKind, bool) {
	if isTrough {
		priceLower := price2 < price1
		indicatorHigher := ind2 > ind1
		priceHigher := price2 > price1
		indicatorLower := ind2 < ind1
		switch {
		case priceLower && indicatorHigher:
			return models.BullishDivergence, true
		case priceHigher && indicatorLower:
			return models.HiddenBullishDivergence, true
		default:
			return "", false
		}
	}

	priceHigher := price2 > price1
	indicatorLower := ind2 < ind1
	priceLower := price2 < price1
	indicatorHigher := ind2 > ind1
	switch {
	case priceHigher && indicatorLower:
		return models.BearishDivergence, true
	case priceLower && indicatorHigher:
		return models.HiddenBearishDivergence, true
	default:
		return "", false
	}
}

func directionClarityScore(priceChange, indicatorChange float64) float64 {
	if priceChange == 0 {
		return 0
	}
	oppositeSign := (priceChange > 0) != (indicatorChange > 0)
	if !oppositeSign {
		return 0.3
	}
	return clamp01score(abs(indicatorChange) / (abs(priceChange) + abs(indicatorChange)) * 2)
}

func divergenceName(kind models.PatternKind) string {
	switch kind {
	case models.BullishDivergence:
		return "Bullish divergence"
	case models.BearishDivergence:
		return "Bearish divergence"
	case models.HiddenBullishDivergence:
		return "Hidden bullish divergence"
	case models.HiddenBearishDivergence:
		return "Hidden bearish divergence"
	default:
		return string(kind)
	}
}

func clamp01score(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
