package geometric

import (
	"fmt"

	"github.com/ridopark/jonbu-patterns/internal/models"
	"github.com/ridopark/jonbu-patterns/internal/patterns/common"
	"github.com/ridopark/jonbu-patterns/internal/primitives"
)

var rectangleLengthBand = primitives.LengthBand{Lo: 10, Hi: 60}

const (
	rectangleClusterTolerance = 0.02
	rectangleMinTouches       = 2
	rectangleBandPad          = 0.05
	minRectangleLength        = 10
)

// DetectRectangles implements spec.md §4.5's rectangle family: for every
// (support, resistance) pair from the S/R clusterer, find the longest
// contiguous run of bars contained in the padded band, classified by the
// prior trend over the 10 bars before the run starts.
func DetectRectangles(series models.Series, sensitivity float64) common.Result {
	var result common.Result

	bars := series.Bars
	closes := series.Closes()
	levels := primitives.DetectLevels(series, minDistance, rectangleClusterTolerance, rectangleMinTouches)
	threshold := primitives.AcceptanceThreshold(0.3, 0.4, sensitivity)

	for _, support := range levels.Support {
		for _, resistance := range levels.Resistance {
			if resistance.Price <= support.Price {
				continue
			}
			rng := resistance.Price - support.Price
			lo := support.Price - rectangleBandPad*rng
			hi := resistance.Price + rectangleBandPad*rng

			start, end, ok := longestContainedRun(bars, lo, hi)
			if !ok || end-start+1 < minRectangleLength {
				continue
			}

			prior := classifyPriorTrend(closes, start)
			var kind models.PatternKind
			switch prior {
			case TrendUp:
				kind = models.RectangleBullish
			case TrendDown:
				kind = models.RectangleBearish
			default:
				kind = models.RectangleNeutral
			}

			touches := support.Touches + resistance.Touches
			length := end - start + 1
			normalizedTouches := clamp01score(float64(touches) / float64(length))
			levelRespect := clamp01score((support.Strength + resistance.Strength) / 200)
			lengthScore := primitives.LengthScore(length, rectangleLengthBand)

			volumes := series.Volumes()
			volStability := volumeStabilityScore(volumes, start, end)

			confidence := primitives.AggregateConfidence([]primitives.Factor{
				{Value: levelRespect, Weight: 0.4},
				{Value: normalizedTouches, Weight: 0.3},
				{Value: lengthScore, Weight: 0.2},
				{Value: volStability, Weight: 0.1},
			}, sensitivity)

			if confidence < threshold {
				continue
			}

			pattern := models.DetectedPattern{
				Kind:       kind,
				Category:   models.CategoryOf(kind),
				Confidence: confidence,
				StartTime:  bars[start].Timestamp,
				EndTime:    bars[end].Timestamp,
				StartIndex: start,
				EndIndex:   end,
				KeyLevels: map[string]float64{
					"support":    support.Price,
					"resistance": resistance.Price,
				},
				VolumeProfile: primitives.BuildVolumeProfile(volumes, start, end, primitives.ConfirmOnDecreasing),
				Description:   fmt.Sprintf("Rectangle between %.2f and %.2f", support.Price, resistance.Price),
			}
			result.Patterns = append(result.Patterns, pattern)
		}
	}

	return result
}

// longestContainedRun finds the longest contiguous index run whose bars'
// [low, high] both lie within [lo, hi].
func longestContainedRun(bars []models.Bar, lo, hi float64) (start, end int, ok bool) {
	bestStart, bestEnd, bestLen := 0, -1, 0
	curStart := -1

	for i, bar := range bars {
		contained := bar.Low >= lo && bar.High <= hi
		if contained {
			if curStart == -1 {
				curStart = i
			}
			if i-curStart+1 > bestLen {
				bestLen = i - curStart + 1
				bestStart = curStart
				bestEnd = i
			}
		} else {
			curStart = -1
		}
	}

	if bestEnd < bestStart {
		return 0, 0, false
	}
	return bestStart, bestEnd, true
}

// volumeStabilityScore rewards a "stable" volume trend within a range-bound
// rectangle, where neither a volume spike nor a drought is expected.
func volumeStabilityScore(volumes []float64, start, end int) float64 {
	profile := primitives.BuildVolumeProfile(volumes, start, end, primitives.ConfirmOnDecreasing)
	if profile.Trend == models.VolumeStable {
		return 1.0
	}
	if profile.Trend == models.VolumeUnknown {
		return 0.5
	}
	return 0.3
}
