package geometric

import (
	"fmt"

	"github.com/ridopark/jonbu-patterns/internal/models"
	"github.com/ridopark/jonbu-patterns/internal/patterns/common"
	"github.com/ridopark/jonbu-patterns/internal/primitives"
)

var channelLengthBand = primitives.LengthBand{Lo: 15, Hi: 60}

const (
	channelSlopeSimilarity = 0.7
	channelMinTouches      = 3
)

// DetectChannels implements spec.md §4.5's channel family: pairs of
// parallel sloped lines fit through peaks and troughs, both sloped the
// same direction with enough touches.
func DetectChannels(series models.Series, sensitivity float64) common.Result {
	var result common.Result

	highs := series.Highs()
	lows := series.Lows()
	threshold := primitives.AcceptanceThreshold(0.3, 0.4, sensitivity)

	peaks := primitives.Peaks(primitives.FindTurningPoints(highs, minDistance))
	troughs := primitives.Troughs(primitives.FindTurningPoints(lows, minDistance))
	if len(peaks) < 2 || len(troughs) < 2 {
		return result
	}

	upperLine, ok := primitives.FitTurningPoints(peaks)
	if !ok {
		return result
	}
	lowerLine, ok := primitives.FitTurningPoints(troughs)
	if !ok {
		return result
	}

	upperSlope, lowerSlope := upperLine.Slope, lowerLine.Slope

	var kind models.PatternKind
	switch {
	case upperSlope > slopeThreshold && lowerSlope > slopeThreshold:
		kind = models.RisingChannel
	case upperSlope < -slopeThreshold && lowerSlope < -slopeThreshold:
		kind = models.FallingChannel
	default:
		return result
	}

	if !slopesSimilar(upperSlope, lowerSlope, channelSlopeSimilarity) {
		return result
	}

	startIndex := minInt(peaks[0].Index, troughs[0].Index)
	endIndex := maxInt(peaks[len(peaks)-1].Index, troughs[len(troughs)-1].Index)
	length := endIndex - startIndex + 1
	if length <= 0 {
		return result
	}

	upperQuality, upperTouch := fitQualityAndTouches(upperLine, highs, startIndex, endIndex, true)
	lowerQuality, lowerTouch := fitQualityAndTouches(lowerLine, lows, startIndex, endIndex, false)
	touchScore := (upperTouch + lowerTouch) / 2
	totalTouches := primitives.TouchCount(upperLine, indexRange(startIndex, endIndex), sliceOf(highs, startIndex, endIndex), 0.02) +
		primitives.TouchCount(lowerLine, indexRange(startIndex, endIndex), sliceOf(lows, startIndex, endIndex), 0.02)
	if totalTouches < channelMinTouches {
		return result
	}

	volProfile := primitives.BuildVolumeProfile(series.Volumes(), startIndex, endIndex, primitives.ConfirmOnDecreasing)
	volumeScore := primitives.VolumeScore(volProfile, primitives.ConfirmOnDecreasing)
	lengthScore := primitives.LengthScore(length, channelLengthBand)

	confidence := primitives.AggregateConfidence([]primitives.Factor{
		{Value: upperQuality, Weight: 0.3},
		{Value: lowerQuality, Weight: 0.3},
		{Value: touchScore, Weight: 0.2},
		{Value: volumeScore, Weight: 0.1},
		{Value: lengthScore, Weight: 0.1},
	}, sensitivity)

	if confidence < threshold {
		return result
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
			"upper_channel": upperAtEnd,
			"lower_channel": lowerAtEnd,
		},
		VolumeProfile: volProfile,
		Description:   fmt.Sprintf("%s between %.2f and %.2f", channelName(kind), lowerAtEnd, upperAtEnd),
	}
	result.Patterns = append(result.Patterns, pattern)

	return result
}

// slopesSimilar reports whether two slopes' ratio is within the given
// similarity floor, guarding against a division by a near-zero slope.
func slopesSimilar(a, b, floor float64) bool {
	if abs(a) < 1e-9 || abs(b) < 1e-9 {
		return false
	}
	ratio := a / b
	if ratio > 1 {
		ratio = b / a
	}
	return ratio >= floor
}

func channelName(kind models.PatternKind) string {
	switch kind {
	case models.RisingChannel:
		return "Rising channel"
	case models.FallingChannel:
		return "Falling channel"
	default:
		return string(kind)
	}
}
