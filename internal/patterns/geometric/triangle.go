package geometric

import (
	"fmt"

	"github.com/ridopark/jonbu-patterns/internal/models"
	"github.com/ridopark/jonbu-patterns/internal/patterns/common"
	"github.com/ridopark/jonbu-patterns/internal/primitives"
)

var triangleLengthBand = primitives.LengthBand{Lo: 15, Hi: 50}

// DetectTriangles implements spec.md §4.5's triangle family: ascending,
// descending, and symmetrical, classified from the slope pair of a fitted
// upper (peak) line and lower (trough) line.
func DetectTriangles(series models.Series, sensitivity float64) common.Result {
	var result common.Result

	highs := series.Highs()
	lows := series.Lows()

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

					pattern, ok := tryTriangle(series, highs, lows, p1, p2, t1, t2, sensitivity, threshold)
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

func tryTriangle(series models.Series, highs, lows []float64, p1, p2, t1, t2 models.TurningPoint, sensitivity, threshold float64) (models.DetectedPattern, bool) {
	upperLine, ok := primitives.FitTwoPoint(p1.Index, p1.Value, p2.Index, p2.Value)
	if !ok {
		return models.DetectedPattern{}, false
	}
	lowerLine, ok := primitives.FitTwoPoint(t1.Index, t1.Value, t2.Index, t2.Value)
	if !ok {
		return models.DetectedPattern{}, false
	}

	upperSlope, lowerSlope := upperLine.Slope, lowerLine.Slope

	var kind models.PatternKind
	switch {
	case abs(upperSlope) < slopeThreshold && lowerSlope > slopeThreshold:
		kind = models.AscendingTriangle
	case upperSlope < -slopeThreshold && abs(lowerSlope) < slopeThreshold:
		kind = models.DescendingTriangle
	case upperSlope < -slopeThreshold && lowerSlope > slopeThreshold && abs(upperSlope-lowerSlope)*2 > maxAbs(upperSlope, lowerSlope):
		kind = models.SymmetricalTriangle
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
	if !convergenceInRange(convergence, endIndex, length) {
		return models.DetectedPattern{}, false
	}

	upperQuality, upperTouch := fitQualityAndTouches(upperLine, highs, startIndex, endIndex, true)
	lowerQuality, lowerTouch := fitQualityAndTouches(lowerLine, lows, startIndex, endIndex, false)
	touchScore := (upperTouch + lowerTouch) / 2

	volProfile := primitives.BuildVolumeProfile(series.Volumes(), startIndex, endIndex, primitives.ConfirmOnDecreasing)
	volumeScore := primitives.VolumeScore(volProfile, primitives.ConfirmOnDecreasing)
	lengthScore := primitives.LengthScore(length, triangleLengthBand)

	confidence := primitives.AggregateConfidence([]primitives.Factor{
		{Value: upperQuality, Weight: 0.3},
		{Value: lowerQuality, Weight: 0.3},
		{Value: touchScore, Weight: 0.2},
		{Value: volumeScore, Weight: 0.1},
		{Value: lengthScore, Weight: 0.1},
	}, sensitivity)

	if confidence < threshold {
		return models.DetectedPattern{}, false
	}

	// Anchored to the first peak/trough themselves rather than the fitted
	// line evaluated at endIndex, so the level reported is the extremum a
	// trader actually saw form, not a slope-projected value.
	upperLevel := p1.Value
	lowerLevel := t1.Value

	category := models.CategoryOf(kind)
	pattern := models.DetectedPattern{
		Kind:       kind,
		Category:   category,
		Confidence: confidence,
		StartTime:  series.Bars[startIndex].Timestamp,
		EndTime:    series.Bars[endIndex].Timestamp,
		StartIndex: startIndex,
		EndIndex:   endIndex,
		KeyLevels: map[string]float64{
			"upper_resistance": upperLevel,
			"lower_support":    lowerLevel,
		},
		VolumeProfile: volProfile,
		Description:   fmt.Sprintf("%s with resistance near %.2f and support near %.2f", triangleName(kind), upperLevel, lowerLevel),
	}
	return pattern, true
}

func triangleName(kind models.PatternKind) string {
	switch kind {
	case models.AscendingTriangle:
		return "Ascending triangle"
	case models.DescendingTriangle:
		return "Descending triangle"
	case models.SymmetricalTriangle:
		return "Symmetrical triangle"
	default:
		return string(kind)
	}
}

func maxAbs(a, b float64) float64 {
	aa, ab := abs(a), abs(b)
	if aa > ab {
		return aa
	}
	return ab
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
