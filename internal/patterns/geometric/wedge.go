package geometric

import (
	"fmt"

	"github.com/ridopark/jonbu-patterns/internal/models"
	"github.com/ridopark/jonbu-patterns/internal/patterns/common"
	"github.com/ridopark/jonbu-patterns/internal/primitives"
)

var wedgeLengthBand = primitives.LengthBand{Lo: 10, Hi: 60}

// wedgeConvergenceMultiplier is the "end_index + 1.5*len" wedge-specific
// convergence bound noted as a tunable that diverges from the triangle
// family's 2*len bound.
const wedgeConvergenceMultiplier = 1.5

func wedgeConvergenceInRange(convergence float64, endIndex, length int) bool {
	if length <= 0 {
		return false
	}
	lo := float64(endIndex) - 0.1*float64(length)
	hi := float64(endIndex) + wedgeConvergenceMultiplier*float64(length)
	return convergence >= lo && convergence <= hi
}

// wedgeConvergenceScore rewards a tighter, nearer convergence point over a
// distant or barely-converging one, substituting for the triangle family's
// touch_score per spec.md §4.5.
func wedgeConvergenceScore(convergence float64, endIndex, length int) float64 {
	if length <= 0 {
		return 0
	}
	dist := convergence - float64(endIndex)
	if dist < 0 {
		dist = -dist
	}
	span := wedgeConvergenceMultiplier * float64(length)
	score := 1 - dist/span
	return clamp01score(score)
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

// DetectWedges implements spec.md §4.5's wedge family: rising and falling,
// each classified as continuation or reversal against the prior trend over
// the 10 bars before the wedge starts.
func DetectWedges(series models.Series, sensitivity float64) common.Result {
	var result common.Result

	highs := series.Highs()
	lows := series.Lows()
	closes := series.Closes()

	peaks := primitives.Peaks(primitives.FindTurningPoints(highs, minDistance))
	troughs := primitives.Troughs(primitives.FindTurningPoints(lows, minDistance))

	threshold := primitives.AcceptanceThreshold(0.3, 0.4, sensitivity)

	for pi := 0; pi < len(peaks); pi++ {
		for pj := pi + 1; pj < len(peaks); pj++ {
			p1, p2 := peaks[pi], peaks[pj]

			var trBetween []models.TurningPoint
			for _, t := range troughs {
				if t.Index > p1.Index && t.Index < p2.Index {
					trBetween = append(trBetween, t)
				}
			}
			for ti := 0; ti < len(trBetween); ti++ {
				for tj := ti + 1; tj < len(trBetween); tj++ {
					t1, t2 := trBetween[ti], trBetween[tj]

					pattern, ok := tryWedge(series, highs, lows, closes, p1, p2, t1, t2, sensitivity, threshold)
					if !ok {
						continue
					}
					result.Patterns = append(result.Patterns, pattern)
				}
			}
		}
	}

	return result
}

func tryWedge(series models.Series, highs, lows, closes []float64, p1, p2, t1, t2 models.TurningPoint, sensitivity, threshold float64) (models.DetectedPattern, bool) {
	upperLine, ok := primitives.FitTwoPoint(p1.Index, p1.Value, p2.Index, p2.Value)
	if !ok {
		return models.DetectedPattern{}, false
	}
	lowerLine, ok := primitives.FitTwoPoint(t1.Index, t1.Value, t2.Index, t2.Value)
	if !ok {
		return models.DetectedPattern{}, false
	}

	upperSlope, lowerSlope := upperLine.Slope, lowerLine.Slope

	var rising bool
	switch {
	case upperSlope > slopeThreshold && lowerSlope > slopeThreshold && lowerSlope > upperSlope:
		rising = true
	case upperSlope < -slopeThreshold && lowerSlope < -slopeThreshold && upperSlope < lowerSlope:
		rising = false
	default:
		return models.DetectedPattern{}, false
	}

	startIndex := minInt(p1.Index, t1.Index)
	endIndex := maxInt(p2.Index, t2.Index)
	length := endIndex - startIndex + 1
	if length <= 0 {
		return models.DetectedPattern{}, false
	}

	convergence := primitives.ConvergencePoint(upperLine, lowerLine)
	if !wedgeConvergenceInRange(convergence, endIndex, length) {
		return models.DetectedPattern{}, false
	}

	prior := classifyPriorTrend(closes, startIndex)

	var kind models.PatternKind
	switch {
	case rising && prior == TrendUp:
		kind = models.RisingWedgeContinuation
	case rising:
		kind = models.RisingWedgeReversal
	case !rising && prior == TrendDown:
		kind = models.FallingWedgeContinuation
	default:
		kind = models.FallingWedgeReversal
	}

	upperQuality, _ := fitQualityAndTouches(upperLine, highs, startIndex, endIndex, true)
	lowerQuality, _ := fitQualityAndTouches(lowerLine, lows, startIndex, endIndex, false)
	convScore := wedgeConvergenceScore(convergence, endIndex, length)

	volProfile := primitives.BuildVolumeProfile(series.Volumes(), startIndex, endIndex, primitives.ConfirmOnDecreasing)
	volumeScore := primitives.VolumeScore(volProfile, primitives.ConfirmOnDecreasing)
	lengthScore := primitives.LengthScore(length, wedgeLengthBand)

	confidence := primitives.AggregateConfidence([]primitives.Factor{
		{Value: upperQuality, Weight: 0.3},
		{Value: lowerQuality, Weight: 0.3},
		{Value: convScore, Weight: 0.2},
		{Value: volumeScore, Weight: 0.1},
		{Value: lengthScore, Weight: 0.1},
	}, sensitivity)

	if confidence < threshold {
		return models.DetectedPattern{}, false
	}

	upperAtEnd := upperLine.ValueAt(endIndex)
	lowerAtEnd := lowerLine.ValueAt(endIndex)

	pattern := models.DetectedPattern{
		Kind:       kind,
		Category:   models.CategoryOf(kind),
		Confidence: confidence,
		StartTime:  series.Bars[startIndex].Timestamp,
		EndTime:    series.Bars[endIndex].Timestamp,
		StartIndex: startIndex,
		EndIndex:   endIndex,
		KeyLevels: map[string]float64{
			"upper_line": upperAtEnd,
			"lower_line": lowerAtEnd,
		},
		VolumeProfile: volProfile,
		Description:   fmt.Sprintf("%s converging near %.2f/%.2f", wedgeName(kind), upperAtEnd, lowerAtEnd),
	}
	return pattern, true
}

func wedgeName(kind models.PatternKind) string {
	switch kind {
	case models.RisingWedgeContinuation:
		return "Rising wedge (continuation)"
	case models.RisingWedgeReversal:
		return "Rising wedge (reversal)"
	case models.FallingWedgeContinuation:
		return "Falling wedge (continuation)"
	case models.FallingWedgeReversal:
		return "Falling wedge (reversal)"
	default:
		return string(kind)
	}
}
