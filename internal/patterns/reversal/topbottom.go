// Package reversal implements spec.md §4.6's reversal detector family:
// double/triple tops and bottoms, and head-and-shoulders plus its inverse.
// Grounded on internal/analysis/chart.go
// (detectDoubleTopBottom/detectHeadAndShoulders) generalized to the full
// confidence recipe spec.md names, and cryptvault/patterns/reversal.py for
// the neckline/measured-move target formulas a bare chart-shape scan skips.
package reversal

import (
	"fmt"

	"github.com/ridopark/jonbu-patterns/internal/models"
	"github.com/ridopark/jonbu-patterns/internal/patterns/common"
	"github.com/ridopark/jonbu-patterns/internal/primitives"
)

const (
	extremaMinDistance   = 5
	peakSimilarityTol    = 0.03
	minRetracementRatio  = 0.10
	centralSpanLo        = 0.20
	centralSpanHi        = 0.80
)

var topBottomLengthBand = primitives.LengthBand{Lo: 10, Hi: 60}

// DetectTopsAndBottoms implements spec.md §4.6's double/triple top and
// bottom family.
func DetectTopsAndBottoms(series models.Series, sensitivity float64) common.Result {
	var result common.Result

	highs := series.Highs()
	lows := series.Lows()
	peaks := primitives.Peaks(primitives.FindTurningPoints(highs, extremaMinDistance))
	troughs := primitives.Troughs(primitives.FindTurningPoints(lows, extremaMinDistance))

	threshold := primitives.AcceptanceThreshold(0.3, 0.4, sensitivity)

	result.Add(scanExtrema(series, peaks, lows, true, 2, sensitivity, threshold))
	result.Add(scanExtrema(series, peaks, lows, true, 3, sensitivity, threshold))
	result.Add(scanExtrema(series, troughs, highs, false, 2, sensitivity, threshold))
	result.Add(scanExtrema(series, troughs, highs, false, 3, sensitivity, threshold))

	return result
}

// scanExtrema enumerates contiguous groups of `count` same-kind extrema
// (tops from peaks, bottoms from troughs) whose values are mutually within
// peakSimilarityTol, and scores the intervening valleys/peaks.
func scanExtrema(series models.Series, extrema []models.TurningPoint, opposite []float64, isTop bool, count int, sensitivity, threshold float64) common.Result {
	var result common.Result
	if len(extrema) < count {
		return result
	}

	for i := 0; i+count-1 < len(extrema); i++ {
		group := extrema[i : i+count]
		if !withinTolerance(group, peakSimilarityTol) {
			continue
		}

		intervening, ok := interveningExtrema(group, opposite, isTop)
		if !ok {
			continue
		}

		pattern, ok := buildTopBottom(series, group, intervening, isTop, count, sensitivity, threshold)
		if !ok {
			continue
		}
		result.Patterns = append(result.Patterns, pattern)
	}

	return result
}

func withinTolerance(group []models.TurningPoint, tolerance float64) bool {
	mean := 0.0
	for _, g := range group {
		mean += g.Value
	}
	mean /= float64(len(group))
	if mean == 0 {
		return false
	}
	for _, g := range group {
		if abs(g.Value-mean)/mean > tolerance {
			return false
		}
	}
	return true
}

// interveningExtrema finds, between each adjacent pair in group, the
// deepest valley (for tops) or highest peak (for bottoms) in the opposite
// series, requiring it to sit in the central 20-80% of the outer span.
func interveningExtrema(group []models.TurningPoint, opposite []float64, isTop bool) ([]models.TurningPoint, bool) {
	var out []models.TurningPoint
	for i := 0; i+1 < len(group); i++ {
		lo, hi := group[i].Index, group[i+1].Index
		if hi-lo < 2 {
			return nil, false
		}

		bestIdx := lo + 1
		bestVal := opposite[bestIdx]
		for j := lo + 1; j < hi; j++ {
			if isTop && opposite[j] < bestVal {
				bestVal = opposite[j]
				bestIdx = j
			}
			if !isTop && opposite[j] > bestVal {
				bestVal = opposite[j]
				bestIdx = j
			}
		}

		span := float64(hi - lo)
		pos := float64(bestIdx-lo) / span
		if pos < centralSpanLo || pos > centralSpanHi {
			return nil, false
		}

		out = append(out, models.TurningPoint{Index: bestIdx, Value: bestVal})
	}
	return out, true
}

func buildTopBottom(series models.Series, group, intervening []models.TurningPoint, isTop bool, count int, sensitivity, threshold float64) (models.DetectedPattern, bool) {
	mean := 0.0
	for _, g := range group {
		mean += g.Value
	}
	mean /= float64(len(group))

	var variance float64
	for _, g := range group {
		d := g.Value - mean
		variance += d * d
	}
	variance /= float64(len(group))
	peakSimilarity := clamp01score(1 - variance/(mean*mean))

	var avgRetracement float64
	for i, mid := range intervening {
		outer := (group[i].Value + group[i+1].Value) / 2
		if outer == 0 {
			return models.DetectedPattern{}, false
		}
		var retr float64
		if isTop {
			retr = (outer - mid.Value) / outer
		} else {
			retr = (mid.Value - outer) / outer
		}
		avgRetracement += retr
	}
	avgRetracement /= float64(len(intervening))
	if avgRetracement < minRetracementRatio {
		return models.DetectedPattern{}, false
	}
	depthScore := clamp01score(avgRetracement / 0.20)

	startIndex := group[0].Index
	endIndex := group[len(group)-1].Index
	length := endIndex - startIndex + 1

	volumes := series.Volumes()
	volProfile := primitives.BuildVolumeProfile(volumes, startIndex, endIndex, primitives.ConfirmOnIncreasing)
	volumeScore := primitives.VolumeScore(volProfile, primitives.ConfirmOnIncreasing)
	lengthScore := primitives.LengthScore(length, topBottomLengthBand)

	confidence := primitives.AggregateConfidence([]primitives.Factor{
		{Value: peakSimilarity, Weight: 0.3},
		{Value: depthScore, Weight: 0.3},
		{Value: volumeScore, Weight: 0.2},
		{Value: lengthScore, Weight: 0.2},
	}, sensitivity)

	if confidence < threshold {
		return models.DetectedPattern{}, false
	}

	kind := topBottomKind(isTop, count)
	keyLevels := map[string]float64{"extrema_level": mean}
	for i, mid := range intervening {
		keyLevels[fmt.Sprintf("valley_%d", i+1)] = mid.Value
	}

	return models.DetectedPattern{
		Kind:          kind,
		Category:      models.CategoryOf(kind),
		Confidence:    confidence,
		StartTime:     series.Bars[startIndex].Timestamp,
		EndTime:       series.Bars[endIndex].Timestamp,
		StartIndex:    startIndex,
		EndIndex:      endIndex,
		KeyLevels:     keyLevels,
		VolumeProfile: volProfile,
		Description:   fmt.Sprintf("%s near %.2f", topBottomName(kind), mean),
	}, true
}

func topBottomKind(isTop bool, count int) models.PatternKind {
	switch {
	case isTop && count == 2:
		return models.DoubleTop
	case isTop && count == 3:
		return models.TripleTop
	case !isTop && count == 2:
		return models.DoubleBottom
	default:
		return models.TripleBottom
	}
}

func topBottomName(kind models.PatternKind) string {
	switch kind {
	case models.DoubleTop:
		return "Double top"
	case models.TripleTop:
		return "Triple top"
	case models.DoubleBottom:
		return "Double bottom"
	case models.TripleBottom:
		return "Triple bottom"
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
