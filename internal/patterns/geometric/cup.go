package geometric

import (
	"fmt"

	"github.com/ridopark/jonbu-patterns/internal/models"
	"github.com/ridopark/jonbu-patterns/internal/patterns/common"
	"github.com/ridopark/jonbu-patterns/internal/primitives"
)

const (
	minCupBars       = 15
	maxCupBars       = 80
	cupRimTolerance  = 0.05
	cupMinDepthRatio = 0.12
	cupMaxDepthRatio = 0.50
	cupUShapeFloor   = 0.6
	cupSymmetryFloor = 0.5

	minHandleBars   = 3
	maxHandleBars   = 20
	handleMinRetrace = 0.05
	handleMaxRetrace = 0.50
	handleMaxSlope   = 0.01
)

// DetectCupAndHandle implements spec.md §4.5's cup-and-handle family
// (bullish) and its inverted mirror (bearish).
func DetectCupAndHandle(series models.Series, sensitivity float64) common.Result {
	var result common.Result

	closes := series.Closes()
	n := len(closes)
	threshold := primitives.AcceptanceThreshold(0.3, 0.4, sensitivity)

	for start := 0; start < n; start++ {
		for length := minCupBars; length <= maxCupBars; length++ {
			end := start + length - 1
			if end >= n {
				break
			}

			cup, ok := evaluateCup(closes, start, end)
			if !ok {
				continue
			}

			handleEnd, handleOK := findHandle(closes, end, cup.depth, false)
			if !handleOK {
				continue
			}

			pattern := buildCupPattern(series, start, end, handleEnd, cup, models.CupAndHandle, sensitivity, threshold)
			if pattern != nil {
				result.Patterns = append(result.Patterns, *pattern)
			}

			invCup, ok := evaluateInvertedCup(closes, start, end)
			if ok {
				invHandleEnd, invOK := findHandle(closes, end, invCup.depth, true)
				if invOK {
					invPattern := buildCupPattern(series, start, end, invHandleEnd, invCup, models.InvertedCupHandle, sensitivity, threshold)
					if invPattern != nil {
						result.Patterns = append(result.Patterns, *invPattern)
					}
				}
			}
		}
	}

	return result
}

type cupShape struct {
	bottomIndex int
	bottomValue float64
	depth       float64
	uShape      float64
	symmetry    float64
}

// evaluateCup scores a [start,end] window as a normal (bullish) cup: rims
// within tolerance, a bottom between them, left decline and right rise.
func evaluateCup(closes []float64, start, end int) (cupShape, bool) {
	leftRim := closes[start]
	rightRim := closes[end]
	if leftRim == 0 {
		return cupShape{}, false
	}
	if abs(rightRim-leftRim)/leftRim > cupRimTolerance {
		return cupShape{}, false
	}

	bottomIdx, bottomVal := start, closes[start]
	for i := start; i <= end; i++ {
		if closes[i] < bottomVal {
			bottomVal = closes[i]
			bottomIdx = i
		}
	}
	if bottomIdx == start || bottomIdx == end {
		return cupShape{}, false
	}

	rimAvg := (leftRim + rightRim) / 2
	if rimAvg == 0 {
		return cupShape{}, false
	}
	depth := (rimAvg - bottomVal) / rimAvg
	if depth < cupMinDepthRatio || depth > cupMaxDepthRatio {
		return cupShape{}, false
	}

	leftIdx := indexRange(start, bottomIdx)
	leftLine, ok := primitives.FitLeastSquares(leftIdx, sliceOf(closes, start, bottomIdx))
	if !ok || leftLine.Slope >= 0 {
		return cupShape{}, false
	}
	rightIdx := indexRange(bottomIdx, end)
	rightLine, ok := primitives.FitLeastSquares(rightIdx, sliceOf(closes, bottomIdx, end))
	if !ok || rightLine.Slope <= 0 {
		return cupShape{}, false
	}

	uShape := clamp01score((leftLine.RSquared + rightLine.RSquared) / 2)
	if uShape < cupUShapeFloor {
		return cupShape{}, false
	}

	leftSpan := float64(bottomIdx - start)
	rightSpan := float64(end - bottomIdx)
	timeSymmetry := 1 - abs(leftSpan-rightSpan)/(leftSpan+rightSpan)
	priceSymmetry := 1 - abs(leftRim-rightRim)/rimAvg
	symmetry := clamp01score((timeSymmetry + priceSymmetry) / 2)
	if symmetry < cupSymmetryFloor {
		return cupShape{}, false
	}

	return cupShape{bottomIndex: bottomIdx, bottomValue: bottomVal, depth: depth, uShape: uShape, symmetry: symmetry}, true
}

// evaluateInvertedCup is evaluateCup's mirror: a dome shape (bearish),
// bottom replaced by a peak, left rise and right decline.
func evaluateInvertedCup(closes []float64, start, end int) (cupShape, bool) {
	leftRim := closes[start]
	rightRim := closes[end]
	if leftRim == 0 {
		return cupShape{}, false
	}
	if abs(rightRim-leftRim)/leftRim > cupRimTolerance {
		return cupShape{}, false
	}

	topIdx, topVal := start, closes[start]
	for i := start; i <= end; i++ {
		if closes[i] > topVal {
			topVal = closes[i]
			topIdx = i
		}
	}
	if topIdx == start || topIdx == end {
		return cupShape{}, false
	}

	rimAvg := (leftRim + rightRim) / 2
	if rimAvg == 0 {
		return cupShape{}, false
	}
	depth := (topVal - rimAvg) / rimAvg
	if depth < cupMinDepthRatio || depth > cupMaxDepthRatio {
		return cupShape{}, false
	}

	leftIdx := indexRange(start, topIdx)
	leftLine, ok := primitives.FitLeastSquares(leftIdx, sliceOf(closes, start, topIdx))
	if !ok || leftLine.Slope <= 0 {
		return cupShape{}, false
	}
	rightIdx := indexRange(topIdx, end)
	rightLine, ok := primitives.FitLeastSquares(rightIdx, sliceOf(closes, topIdx, end))
	if !ok || rightLine.Slope >= 0 {
		return cupShape{}, false
	}

	uShape := clamp01score((leftLine.RSquared + rightLine.RSquared) / 2)
	if uShape < cupUShapeFloor {
		return cupShape{}, false
	}

	leftSpan := float64(topIdx - start)
	rightSpan := float64(end - topIdx)
	timeSymmetry := 1 - abs(leftSpan-rightSpan)/(leftSpan+rightSpan)
	priceSymmetry := 1 - abs(leftRim-rightRim)/rimAvg
	symmetry := clamp01score((timeSymmetry + priceSymmetry) / 2)
	if symmetry < cupSymmetryFloor {
		return cupShape{}, false
	}

	return cupShape{bottomIndex: topIdx, bottomValue: topVal, depth: depth, uShape: uShape, symmetry: symmetry}, true
}

// findHandle scans [cupEnd+1, ...] for a handle: a shallow retracement of
// the cup's depth with a near-flat-or-declining (normal) or
// near-flat-or-rising (inverted) slope. Volume is not checked here;
// buildCupPattern scores the handle's volume trend.
func findHandle(closes []float64, cupEnd int, cupDepthRatio float64, inverted bool) (handleEnd int, ok bool) {
	n := len(closes)
	for length := minHandleBars; length <= maxHandleBars; length++ {
		start := cupEnd + 1
		end := start + length - 1
		if end >= n {
			break
		}

		indices := indexRange(start, end)
		slice := sliceOf(closes, start, end)
		line, fitOK := primitives.FitLeastSquares(indices, slice)
		if !fitOK {
			continue
		}

		if !inverted && line.Slope > handleMaxSlope {
			continue
		}
		if inverted && line.Slope < -handleMaxSlope {
			continue
		}

		rimValue := closes[cupEnd]
		if rimValue == 0 {
			continue
		}
		var retrace float64
		if !inverted {
			low := slice[0]
			for _, v := range slice {
				if v < low {
					low = v
				}
			}
			retrace = (rimValue - low) / rimValue
		} else {
			high := slice[0]
			for _, v := range slice {
				if v > high {
					high = v
				}
			}
			retrace = (high - rimValue) / rimValue
		}

		retraceOfCup := retrace / cupDepthRatio
		if retraceOfCup < handleMinRetrace || retraceOfCup > handleMaxRetrace {
			continue
		}

		return end, true
	}
	return 0, false
}

func buildCupPattern(series models.Series, cupStart, cupEnd, handleEnd int, shape cupShape, kind models.PatternKind, sensitivity, threshold float64) *models.DetectedPattern {
	handleStart := cupEnd + 1
	volumes := series.Volumes()
	handleVol := primitives.BuildVolumeProfile(volumes, handleStart, handleEnd, primitives.ConfirmOnDecreasing)
	volumeScore := primitives.VolumeScore(handleVol, primitives.ConfirmOnDecreasing)

	handleIdx := indexRange(handleStart, handleEnd)
	handleLine, ok := primitives.FitLeastSquares(handleIdx, sliceOf(series.Closes(), handleStart, handleEnd))
	handleScore := 0.5
	if ok {
		handleScore = clamp01score(handleLine.RSquared)
	}

	confidence := primitives.AggregateConfidence([]primitives.Factor{
		{Value: shape.uShape, Weight: 0.4},
		{Value: shape.symmetry, Weight: 0.2},
		{Value: handleScore, Weight: 0.3},
		{Value: volumeScore, Weight: 0.1},
	}, sensitivity)

	if confidence < threshold {
		return nil
	}

	return &models.DetectedPattern{
		Kind:       kind,
		Category:   models.CategoryOf(kind),
		Confidence: confidence,
		StartTime:  series.Bars[cupStart].Timestamp,
		EndTime:    series.Bars[handleEnd].Timestamp,
		StartIndex: cupStart,
		EndIndex:   handleEnd,
		KeyLevels: map[string]float64{
			"rim":    (series.Closes()[cupStart] + series.Closes()[cupEnd]) / 2,
			"bottom": shape.bottomValue,
		},
		VolumeProfile: handleVol,
		Description:   fmt.Sprintf("%s with rim near %.2f", cupName(kind), (series.Closes()[cupStart]+series.Closes()[cupEnd])/2),
	}
}

func cupName(kind models.PatternKind) string {
	switch kind {
	case models.CupAndHandle:
		return "Cup and handle"
	case models.InvertedCupHandle:
		return "Inverted cup and handle"
	default:
		return string(kind)
	}
}
