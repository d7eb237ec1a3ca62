// Package primitives implements the shared, pure-function building blocks
// every detector is built from: the peak/trough extractor, trendline
// fitter, scoring utilities, volume-profile builder, and support/resistance
// clusterer (spec.md §4.1-4.4). Nothing here mutates its inputs or holds
// state across calls; detectors borrow these read-only, per spec.md §9's
// "Cyclic references" note.
package primitives

import "github.com/ridopark/jonbu-patterns/internal/models"

// FindTurningPoints implements spec.md §4.1: a point at index i is a peak
// iff it is greater than or equal to every value in [i-minDistance,
// i+minDistance] and strictly greater than both immediate neighbors;
// trough is the symmetric case. Boundary indices closer than minDistance
// to either end are never emitted. Ties within a window resolve to the
// earlier index: a point equal in value to an already-accepted point of the
// same kind at most minDistance before it is skipped.
func FindTurningPoints(values []float64, minDistance int) []models.TurningPoint {
	n := len(values)
	if minDistance < 1 {
		minDistance = 1
	}
	var points []models.TurningPoint
	lastPeak, lastTrough := -1, -1

	for i := minDistance; i < n-minDistance; i++ {
		if isPeakAt(values, i, minDistance) {
			if lastPeak < 0 || i-lastPeak > minDistance || values[lastPeak] != values[i] {
				points = append(points, models.TurningPoint{Index: i, Value: values[i], Kind: models.Peak})
				lastPeak = i
			}
			continue
		}
		if isTroughAt(values, i, minDistance) {
			if lastTrough < 0 || i-lastTrough > minDistance || values[lastTrough] != values[i] {
				points = append(points, models.TurningPoint{Index: i, Value: values[i], Kind: models.Trough})
				lastTrough = i
			}
		}
	}
	return points
}

func isPeakAt(values []float64, i, minDistance int) bool {
	n := len(values)
	lo := i - minDistance
	if lo < 0 {
		lo = 0
	}
	hi := i + minDistance
	if hi > n-1 {
		hi = n - 1
	}
	for j := lo; j <= hi; j++ {
		if j == i {
			continue
		}
		if values[j] > values[i] {
			return false
		}
	}
	// Strictly greater than both immediate neighbors.
	return values[i] > values[i-1] && values[i] > values[i+1]
}

func isTroughAt(values []float64, i, minDistance int) bool {
	n := len(values)
	lo := i - minDistance
	if lo < 0 {
		lo = 0
	}
	hi := i + minDistance
	if hi > n-1 {
		hi = n - 1
	}
	for j := lo; j <= hi; j++ {
		if j == i {
			continue
		}
		if values[j] < values[i] {
			return false
		}
	}
	return values[i] < values[i-1] && values[i] < values[i+1]
}

// Peaks filters FindTurningPoints' result down to peaks only.
func Peaks(points []models.TurningPoint) []models.TurningPoint {
	return filterKind(points, models.Peak)
}

// Troughs filters FindTurningPoints' result down to troughs only.
func Troughs(points []models.TurningPoint) []models.TurningPoint {
	return filterKind(points, models.Trough)
}

func filterKind(points []models.TurningPoint, kind models.TurningKind) []models.TurningPoint {
	out := make([]models.TurningPoint, 0, len(points))
	for _, p := range points {
		if p.Kind == kind {
			out = append(out, p)
		}
	}
	return out
}

// Alternating returns true if points strictly alternate peak/trough/peak...
// required by the harmonic detectors (spec.md §4.7) before ratio matching.
func Alternating(points []models.TurningPoint) bool {
	for i := 1; i < len(points); i++ {
		if points[i].Kind == points[i-1].Kind {
			return false
		}
	}
	return true
}
