package geometric

import (
	"fmt"

	"github.com/ridopark/jonbu-patterns/internal/models"
	"github.com/ridopark/jonbu-patterns/internal/patterns/common"
	"github.com/ridopark/jonbu-patterns/internal/primitives"
)

const (
	minFlagpoleBars  = 3
	maxFlagpoleBars  = 20
	minConsolidation = 5
	maxConsolidation = 30
	flagpoleMinR2    = 0.6
	flagSlopeParallel = 0.7
	pennantConvergenceFloor = 0.5
)

// flagpoleMinChange returns spec.md §4.5's flagpole threshold
// 0.03 - 0.015*sensitivity: a higher sensitivity accepts a shallower move.
func flagpoleMinChange(sensitivity float64) float64 {
	return 0.03 - 0.015*sensitivity
}

// DetectFlagsAndPennants implements spec.md §4.5: locate flagpoles, then
// for each, scan immediately-following consolidations and classify them as
// a Flag (parallel bounds) or Pennant (converging bounds).
func DetectFlagsAndPennants(series models.Series, sensitivity float64) common.Result {
	var result common.Result

	closes := series.Closes()
	highs := series.Highs()
	lows := series.Lows()
	n := len(closes)

	minChange := flagpoleMinChange(sensitivity)
	threshold := primitives.AcceptanceThreshold(0.3, 0.4, sensitivity)

	for poleStart := 0; poleStart < n; poleStart++ {
		for poleLen := minFlagpoleBars; poleLen <= maxFlagpoleBars; poleLen++ {
			poleEnd := poleStart + poleLen - 1
			if poleEnd >= n {
				break
			}

			indices := indexRange(poleStart, poleEnd)
			slice := sliceOf(closes, poleStart, poleEnd)
			line, ok := primitives.FitLeastSquares(indices, slice)
			if !ok || line.RSquared < flagpoleMinR2 {
				continue
			}

			priceChange := (slice[len(slice)-1] - slice[0]) / slice[0]
			if abs(priceChange) < minChange {
				continue
			}
			bullish := priceChange > 0

			maxConsolLen := poleLen
			if maxConsolLen > maxConsolidation {
				maxConsolLen = maxConsolidation
			}

			for consolLen := minConsolidation; consolLen <= maxConsolLen; consolLen++ {
				consolStart := poleEnd + 1
				consolEnd := consolStart + consolLen - 1
				if consolEnd >= n {
					break
				}

				pattern, ok := tryFlagOrPennant(series, highs, lows, closes, poleStart, poleEnd, consolStart, consolEnd, bullish, line.RSquared, sensitivity, threshold)
				if !ok {
					continue
				}
				result.Patterns = append(result.Patterns, pattern)
			}
		}
	}

	return result
}

func tryFlagOrPennant(series models.Series, highs, lows, closes []float64, poleStart, poleEnd, consolStart, consolEnd int, bullish bool, poleR2 float64, sensitivity, threshold float64) (models.DetectedPattern, bool) {
	upperIdx := indexRange(consolStart, consolEnd)
	upperLine, ok := primitives.FitLeastSquares(upperIdx, sliceOf(highs, consolStart, consolEnd))
	if !ok {
		return models.DetectedPattern{}, false
	}
	lowerLine, ok := primitives.FitLeastSquares(upperIdx, sliceOf(lows, consolStart, consolEnd))
	if !ok {
		return models.DetectedPattern{}, false
	}

	// Consolidation must not extend the flagpole: its mid slope is near zero
	// or opposite the flagpole direction. The size of an opposite slope is
	// not bounded here.
	midSlope := (upperLine.Slope + lowerLine.Slope) / 2
	if bullish && midSlope > slopeThreshold {
		return models.DetectedPattern{}, false
	}
	if !bullish && midSlope < -slopeThreshold {
		return models.DetectedPattern{}, false
	}

	var kind models.PatternKind
	var slopeAppropriateness float64

	if slopesSimilar(upperLine.Slope, lowerLine.Slope, flagSlopeParallel) {
		if bullish {
			kind = models.BullFlag
		} else {
			kind = models.BearFlag
		}
		slopeAppropriateness = 1.0
	} else if upperLine.Slope < 0 && lowerLine.Slope > 0 {
		convergence := primitives.ConvergencePoint(upperLine, lowerLine)
		length := consolEnd - consolStart + 1
		factor := wedgeConvergenceScore(convergence, consolEnd, length)
		if factor < pennantConvergenceFloor {
			return models.DetectedPattern{}, false
		}
		if bullish {
			kind = models.BullPennant
		} else {
			kind = models.BearPennant
		}
		slopeAppropriateness = factor
	} else {
		return models.DetectedPattern{}, false
	}

	poleLen := poleEnd - poleStart + 1
	consolLen := consolEnd - consolStart + 1
	ratio := float64(consolLen) / float64(poleLen)
	lengthRelative := ratioIdealScore(ratio, 1.0/3, 2.0/3)

	volProfile := primitives.BuildVolumeProfile(series.Volumes(), consolStart, consolEnd, primitives.ConfirmOnDecreasing)
	volumeScore := primitives.VolumeScore(volProfile, primitives.ConfirmOnDecreasing)

	confidence := primitives.AggregateConfidence([]primitives.Factor{
		{Value: poleR2, Weight: 0.3},
		{Value: slopeAppropriateness, Weight: 0.3},
		{Value: lengthRelative, Weight: 0.2},
		{Value: volumeScore, Weight: 0.2},
	}, sensitivity)

	if confidence < threshold {
		return models.DetectedPattern{}, false
	}

	pattern := models.DetectedPattern{
		Kind:       kind,
		Category:   models.CategoryOf(kind),
		Confidence: confidence,
		StartTime:  series.Bars[poleStart].Timestamp,
		EndTime:    series.Bars[consolEnd].Timestamp,
		StartIndex: poleStart,
		EndIndex:   consolEnd,
		KeyLevels: map[string]float64{
			"flagpole_start": closes[poleStart],
			"flagpole_end":   closes[poleEnd],
		},
		VolumeProfile: volProfile,
		Description:   fmt.Sprintf("%s after a %d-bar flagpole", flagName(kind), poleLen),
	}
	return pattern, true
}

// ratioIdealScore scores how close ratio is to the [lo,hi] ideal band,
// falling off linearly outside it.
func ratioIdealScore(ratio, lo, hi float64) float64 {
	if ratio >= lo && ratio <= hi {
		return 1.0
	}
	if ratio < lo {
		if lo == 0 {
			return 0
		}
		return clamp01score(ratio / lo)
	}
	over := ratio - hi
	return clamp01score(1 - over)
}

func flagName(kind models.PatternKind) string {
	switch kind {
	case models.BullFlag:
		return "Bull flag"
	case models.BearFlag:
		return "Bear flag"
	case models.BullPennant:
		return "Bull pennant"
	case models.BearPennant:
		return "Bear pennant"
	default:
		return string(kind)
	}
}
