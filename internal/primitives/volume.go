package primitives

import "github.com/ridopark/jonbu-patterns/internal/models"

// VolumeConfirmConvention tells BuildVolumeProfile which trend direction
// counts as confirmation for the calling detector family, per spec.md §4.3
// ("detectors choose the convention explicitly").
type VolumeConfirmConvention int

const (
	// ConfirmOnDecreasing is used by triangles and flags: shrinking volume
	// into the apex/consolidation confirms the pattern.
	ConfirmOnDecreasing VolumeConfirmConvention = iota
	// ConfirmOnIncreasing is used by reversals and harmonics: rising volume
	// into the pattern's completion confirms it.
	ConfirmOnIncreasing
)

// BuildVolumeProfile implements spec.md §4.3 over volumes[startIndex:endIndex+1].
func BuildVolumeProfile(volumes []float64, startIndex, endIndex int, convention VolumeConfirmConvention) models.VolumeProfile {
	if startIndex < 0 {
		startIndex = 0
	}
	if endIndex >= len(volumes) {
		endIndex = len(volumes) - 1
	}
	if startIndex > endIndex {
		return models.VolumeProfile{Trend: models.VolumeUnknown}
	}

	slice := volumes[startIndex : endIndex+1]

	var sum float64
	var count int
	for _, v := range slice {
		if v > 0 {
			sum += v
			count++
		}
	}
	if count == 0 {
		return models.VolumeProfile{Trend: models.VolumeUnknown}
	}
	average := sum / float64(count)

	trend := volumeTrend(slice)
	confirms := false
	switch convention {
	case ConfirmOnDecreasing:
		confirms = trend == models.VolumeDecreasing
	case ConfirmOnIncreasing:
		confirms = trend == models.VolumeIncreasing
	}

	return models.VolumeProfile{
		AverageVolume:   average,
		Trend:           trend,
		ConfirmsPattern: confirms,
	}
}

func volumeTrend(slice []float64) models.VolumeTrend {
	n := len(slice)
	if n < 2 {
		return models.VolumeUnknown
	}
	mid := n / 2
	first := meanOf(slice[:mid])
	second := meanOf(slice[mid:])

	if first == 0 {
		return models.VolumeUnknown
	}
	changeRatio := (second - first) / first

	switch {
	case changeRatio > 0.10:
		return models.VolumeIncreasing
	case changeRatio < -0.10:
		return models.VolumeDecreasing
	default:
		return models.VolumeStable
	}
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// VolumeScore maps a VolumeProfile to a [0,1] contribution for a detector's
// weighted confidence recipe: 1.0 if it confirms, 0.5 if stable/unknown,
// 0.0 if it runs opposite to the detector's convention.
func VolumeScore(profile models.VolumeProfile, convention VolumeConfirmConvention) float64 {
	if profile.Trend == models.VolumeUnknown {
		return 0.5
	}
	if profile.ConfirmsPattern {
		return 1.0
	}
	if profile.Trend == models.VolumeStable {
		return 0.5
	}
	return 0.0
}
