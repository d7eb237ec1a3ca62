package reversal

import (
	"fmt"

	"github.com/ridopark/jonbu-patterns/internal/models"
	"github.com/ridopark/jonbu-patterns/internal/patterns/common"
	"github.com/ridopark/jonbu-patterns/internal/primitives"
)

const (
	headProminenceMin  = 0.03
	shoulderSimilarity = 0.05
	headCentralLo      = 0.20
	headCentralHi      = 0.80
)

var headShouldersLengthBand = primitives.LengthBand{Lo: 10, Hi: 60}

// DetectHeadAndShoulders implements spec.md §4.6: a triple L, H, R of
// peaks (or troughs for the inverse) with H prominent over both shoulders,
// shoulders mutually similar, and H central in [L.index, R.index].
func DetectHeadAndShoulders(series models.Series, sensitivity float64) common.Result {
	var result common.Result
	threshold := primitives.AcceptanceThreshold(0.3, 0.4, sensitivity)

	highs := series.Highs()
	lows := series.Lows()
	peaks := primitives.Peaks(primitives.FindTurningPoints(highs, extremaMinDistance))
	troughs := primitives.Troughs(primitives.FindTurningPoints(lows, extremaMinDistance))

	result.Add(scanHeadShoulders(series, peaks, lows, true, sensitivity, threshold))
	result.Add(scanHeadShoulders(series, troughs, highs, false, sensitivity, threshold))

	return result
}

func scanHeadShoulders(series models.Series, extrema []models.TurningPoint, opposite []float64, normal bool, sensitivity, threshold float64) common.Result {
	var result common.Result
	if len(extrema) < 3 {
		return result
	}

	for i := 0; i+2 < len(extrema); i++ {
		left, head, right := extrema[i], extrema[i+1], extrema[i+2]

		if !headProminent(left, head, right, normal) {
			continue
		}
		shoulderAvg := (left.Value + right.Value) / 2
		if shoulderAvg == 0 {
			continue
		}
		if abs(left.Value-right.Value)/shoulderAvg > shoulderSimilarity {
			continue
		}

		span := float64(right.Index - left.Index)
		if span <= 0 {
			continue
		}
		pos := float64(head.Index-left.Index) / span
		if pos < headCentralLo || pos > headCentralHi {
			continue
		}

		valleyLeft, okL := extremumBetween(opposite, left.Index, head.Index, normal)
		valleyRight, okR := extremumBetween(opposite, head.Index, right.Index, normal)
		if !okL || !okR {
			continue
		}
		neckline := (valleyLeft + valleyRight) / 2

		prominence := abs(head.Value-shoulderAvg) / shoulderAvg
		prominenceScore := clamp01score(prominence / 0.10)
		shoulderSymmetry := clamp01score(1 - abs(left.Value-right.Value)/shoulderAvg)

		// Neckline proximity rewards a neckline that sits roughly midway
		// between the shoulder level and the head: too close to either
		// makes for a weak, barely-distinguishable break level.
		var necklineProximity float64
		if shoulderAvg != neckline {
			relPos := (neckline - shoulderAvg) / (head.Value - shoulderAvg)
			necklineProximity = clamp01score(1 - abs(relPos-0.5)*2)
		}

		leftSpan := float64(head.Index - left.Index)
		rightSpan := float64(right.Index - head.Index)
		var timeSymmetry float64
		if leftSpan > 0 && rightSpan > 0 {
			if leftSpan < rightSpan {
				timeSymmetry = leftSpan / rightSpan
			} else {
				timeSymmetry = rightSpan / leftSpan
			}
		}

		volumes := series.Volumes()
		volProfile := primitives.BuildVolumeProfile(volumes, left.Index, right.Index, primitives.ConfirmOnIncreasing)
		classicVolume := classicVolumeScore(volumes, left.Index, head.Index, right.Index)

		confidence := primitives.AggregateConfidence([]primitives.Factor{
			{Value: shoulderSymmetry, Weight: 0.25},
			{Value: prominenceScore, Weight: 0.25},
			{Value: necklineProximity, Weight: 0.2},
			{Value: classicVolume, Weight: 0.15},
			{Value: timeSymmetry, Weight: 0.15},
		}, sensitivity)

		if confidence < threshold {
			continue
		}

		var kind models.PatternKind
		var target float64
		if normal {
			kind = models.HeadShoulders
			target = neckline - (head.Value - neckline)
		} else {
			kind = models.InverseHeadShoulders
			target = neckline + (neckline - head.Value)
		}

		pattern := models.DetectedPattern{
			Kind:       kind,
			Category:   models.CategoryOf(kind),
			Confidence: confidence,
			StartTime:  series.Bars[left.Index].Timestamp,
			EndTime:    series.Bars[right.Index].Timestamp,
			StartIndex: left.Index,
			EndIndex:   right.Index,
			KeyLevels: map[string]float64{
				"left_shoulder":  left.Value,
				"head":           head.Value,
				"right_shoulder": right.Value,
				"neckline":       neckline,
				"target":         target,
			},
			VolumeProfile: volProfile,
			Description:   fmt.Sprintf("%s with neckline near %.2f, target %.2f", headShouldersName(kind), neckline, target),
		}
		result.Patterns = append(result.Patterns, pattern)
	}

	return result
}

// classicVolumeScore implements spec.md §4.6's "classic volume pattern":
// both shoulders trading on heavier volume than the head.
func classicVolumeScore(volumes []float64, leftIdx, headIdx, rightIdx int) float64 {
	if leftIdx < 0 || rightIdx >= len(volumes) {
		return 0.5
	}
	leftVol, headVol, rightVol := volumes[leftIdx], volumes[headIdx], volumes[rightIdx]
	score := 0.0
	if leftVol > headVol {
		score += 0.5
	}
	if rightVol > headVol {
		score += 0.5
	}
	return score
}

func headProminent(left, head, right models.TurningPoint, normal bool) bool {
	if normal {
		return head.Value > left.Value*(1+headProminenceMin) && head.Value > right.Value*(1+headProminenceMin)
	}
	return head.Value < left.Value*(1-headProminenceMin) && head.Value < right.Value*(1-headProminenceMin)
}

// extremumBetween finds the deepest valley (normal=true) or highest peak
// (normal=false) strictly between lo and hi in the opposite series.
func extremumBetween(opposite []float64, lo, hi int, normal bool) (float64, bool) {
	if hi-lo < 2 {
		return 0, false
	}
	best := opposite[lo+1]
	for j := lo + 1; j < hi; j++ {
		if normal && opposite[j] < best {
			best = opposite[j]
		}
		if !normal && opposite[j] > best {
			best = opposite[j]
		}
	}
	return best, true
}

func headShouldersName(kind models.PatternKind) string {
	switch kind {
	case models.HeadShoulders:
		return "Head and shoulders"
	case models.InverseHeadShoulders:
		return "Inverse head and shoulders"
	default:
		return string(kind)
	}
}
