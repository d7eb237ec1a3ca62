package advanced

import (
	"fmt"

	"github.com/ridopark/jonbu-patterns/internal/models"
	"github.com/ridopark/jonbu-patterns/internal/patterns/common"
	"github.com/ridopark/jonbu-patterns/internal/primitives"
)

const (
	diamondMinBars        = 15
	diamondMaxBars        = 80
	diamondExpansionRatio = 1.2
	diamondContractRatio  = 0.8
)

var diamondLengthBand = primitives.LengthBand{Lo: 15, Hi: 80}

// DetectDiamonds implements spec.md §4.8's diamond: an expansion-then-
// contraction shape across thirds of a window.
func DetectDiamonds(series models.Series, sensitivity float64) common.Result {
	var result common.Result

	highs := series.Highs()
	lows := series.Lows()
	n := len(highs)
	threshold := primitives.AcceptanceThreshold(0.3, 0.4, sensitivity)

	for start := 0; start < n; start++ {
		for length := diamondMinBars; length <= diamondMaxBars; length++ {
			end := start + length - 1
			if end >= n {
				break
			}

			third := length / 3
			if third < 2 {
				continue
			}
			earlyEnd := start + third - 1
			midEnd := start + 2*third - 1

			earlyRange := rangeOf(highs, lows, start, earlyEnd)
			midRange := rangeOf(highs, lows, earlyEnd+1, midEnd)
			lateRange := rangeOf(highs, lows, midEnd+1, end)
			if earlyRange == 0 || midRange == 0 {
				continue
			}

			if midRange < diamondExpansionRatio*earlyRange {
				continue
			}
			if lateRange > diamondContractRatio*midRange {
				continue
			}

			expansionScore := clamp01score((midRange / earlyRange) / diamondExpansionRatio)
			contractionScore := clamp01score(1 - lateRange/midRange)

			leftSpan := float64(midEnd - start)
			rightSpan := float64(end - midEnd)
			var timeSymmetry float64
			if leftSpan > 0 && rightSpan > 0 {
				if leftSpan < rightSpan {
					timeSymmetry = leftSpan / rightSpan
				} else {
					timeSymmetry = rightSpan / leftSpan
				}
			}

			volumes := series.Volumes()
			midVol := meanVolume(volumes, earlyEnd+1, midEnd)
			lateVol := meanVolume(volumes, midEnd+1, end)
			earlyVol := meanVolume(volumes, start, earlyEnd)
			volumeRiseThenFall := 0.5
			if earlyVol > 0 && midVol > earlyVol && lateVol < midVol {
				volumeRiseThenFall = 1.0
			} else if earlyVol > 0 && midVol <= earlyVol {
				volumeRiseThenFall = 0.0
			}

			lengthScore := primitives.LengthScore(length, diamondLengthBand)

			confidence := primitives.AggregateConfidence([]primitives.Factor{
				{Value: expansionScore, Weight: 0.3},
				{Value: contractionScore, Weight: 0.3},
				{Value: timeSymmetry, Weight: 0.2},
				{Value: volumeRiseThenFall, Weight: 0.1},
				{Value: lengthScore, Weight: 0.1},
			}, sensitivity)

			if confidence < threshold {
				continue
			}

			pattern := models.DetectedPattern{
				Kind:       models.Diamond,
				Category:   models.CategoryOf(models.Diamond),
				Confidence: confidence,
				StartTime:  series.Bars[start].Timestamp,
				EndTime:    series.Bars[end].Timestamp,
				StartIndex: start,
				EndIndex:   end,
				KeyLevels: map[string]float64{
					"early_range": earlyRange,
					"mid_range":   midRange,
					"late_range":  lateRange,
				},
				VolumeProfile: primitives.BuildVolumeProfile(volumes, start, end, primitives.ConfirmOnDecreasing),
				Description:   fmt.Sprintf("Diamond over %d bars", length),
			}
			result.Patterns = append(result.Patterns, pattern)
		}
	}

	return result
}

func rangeOf(highs, lows []float64, start, end int) float64 {
	if start > end || start < 0 || end >= len(highs) {
		return 0
	}
	hi := highs[start]
	lo := lows[start]
	for i := start; i <= end; i++ {
		if highs[i] > hi {
			hi = highs[i]
		}
		if lows[i] < lo {
			lo = lows[i]
		}
	}
	return hi - lo
}

func meanVolume(volumes []float64, start, end int) float64 {
	if start > end || start < 0 || end >= len(volumes) {
		return 0
	}
	var sum float64
	count := 0
	for i := start; i <= end; i++ {
		if volumes[i] > 0 {
			sum += volumes[i]
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

const expandingTriangleMinDivergence = 0.3
const expandingTriangleRangeGrowth = 1.3

var expandingTriangleLengthBand = primitives.LengthBand{Lo: 15, Hi: 80}

// DetectExpandingTriangles implements spec.md §4.8: two peaks and two
// troughs with upper slope > 0, lower slope < 0, and either a divergence
// ratio of |slopes| >= 0.3 or an end-range >= 1.3x the start-range.
func DetectExpandingTriangles(series models.Series, sensitivity float64) common.Result {
	var result common.Result

	highs := series.Highs()
	lows := series.Lows()
	threshold := primitives.AcceptanceThreshold(0.3, 0.4, sensitivity)

	peaks := primitives.Peaks(primitives.FindTurningPoints(highs, minDistance))
	troughs := primitives.Troughs(primitives.FindTurningPoints(lows, minDistance))

	for pi := 0; pi < len(peaks); pi++ {
		for pj := pi + 1; pj < len(peaks); pj++ {
			p1, p2 := peaks[pi], peaks[pj]
			for ti := 0; ti < len(troughs); ti++ {
				for tj := ti + 1; tj < len(troughs); tj++ {
					t1, t2 := troughs[ti], troughs[tj]
					if t1.Index <= p1.Index || t2.Index >= p2.Index {
						continue
					}

					pattern, ok := tryExpandingTriangle(series, highs, lows, p1, p2, t1, t2, sensitivity, threshold)
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

func tryExpandingTriangle(series models.Series, highs, lows []float64, p1, p2, t1, t2 models.TurningPoint, sensitivity, threshold float64) (models.DetectedPattern, bool) {
	upperLine, ok := primitives.FitTwoPoint(p1.Index, p1.Value, p2.Index, p2.Value)
	if !ok || upperLine.Slope <= 0 {
		return models.DetectedPattern{}, false
	}
	lowerLine, ok := primitives.FitTwoPoint(t1.Index, t1.Value, t2.Index, t2.Value)
	if !ok || lowerLine.Slope >= 0 {
		return models.DetectedPattern{}, false
	}

	minSlope, maxSlope := abs(upperLine.Slope), abs(lowerLine.Slope)
	if minSlope > maxSlope {
		minSlope, maxSlope = maxSlope, minSlope
	}
	divergenceRatio := 0.0
	if maxSlope > 0 {
		divergenceRatio = minSlope / maxSlope
	}

	startIndex := minInt(p1.Index, t1.Index)
	endIndex := maxInt(p2.Index, t2.Index)
	length := endIndex - startIndex + 1
	if length <= 0 {
		return models.DetectedPattern{}, false
	}

	startRange := rangeOf(highs, lows, startIndex, startIndex+2)
	endRange := rangeOf(highs, lows, endIndex-2, endIndex)
	endRangeGrowth := startRange > 0 && endRange >= expandingTriangleRangeGrowth*startRange

	if divergenceRatio < expandingTriangleMinDivergence && !endRangeGrowth {
		return models.DetectedPattern{}, false
	}

	upperQuality := primitives.LineFitQuality(upperLine, indexRange(startIndex, endIndex), sliceOf(highs, startIndex, endIndex), true)
	lowerQuality := primitives.LineFitQuality(lowerLine, indexRange(startIndex, endIndex), sliceOf(lows, startIndex, endIndex), false)
	divergenceScore := clamp01score(divergenceRatio / expandingTriangleMinDivergence)
	lengthScore := primitives.LengthScore(length, expandingTriangleLengthBand)

	confidence := primitives.AggregateConfidence([]primitives.Factor{
		{Value: upperQuality, Weight: 0.3},
		{Value: lowerQuality, Weight: 0.3},
		{Value: divergenceScore, Weight: 0.3},
		{Value: lengthScore, Weight: 0.1},
	}, sensitivity)

	if confidence < threshold {
		return models.DetectedPattern{}, false
	}

	return models.DetectedPattern{
		Kind:       models.ExpandingTriangle,
		Category:   models.CategoryOf(models.ExpandingTriangle),
		Confidence: confidence,
		StartTime:  series.Bars[startIndex].Timestamp,
		EndTime:    series.Bars[endIndex].Timestamp,
		StartIndex: startIndex,
		EndIndex:   endIndex,
		KeyLevels: map[string]float64{
			"upper_line": upperLine.ValueAt(endIndex),
			"lower_line": lowerLine.ValueAt(endIndex),
		},
		VolumeProfile: primitives.BuildVolumeProfile(series.Volumes(), startIndex, endIndex, primitives.ConfirmOnIncreasing),
		Description:   fmt.Sprintf("Expanding triangle over %d bars", length),
	}, true
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

func indexRange(start, end int) []int {
	out := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		out = append(out, i)
	}
	return out
}

func sliceOf(values []float64, start, end int) []float64 {
	return values[start : end+1]
}

const minDistance = 3
