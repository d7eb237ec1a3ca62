package primitives

import (
	"math"

	"github.com/ridopark/jonbu-patterns/internal/models"
)

// FitTwoPoint implements spec.md §4.2's two-point fit: slope = (v2-v1)/(i2-i1)
// exactly. Fails (ok=false) if i2 == i1.
func FitTwoPoint(i1 int, v1 float64, i2 int, v2 float64) (line models.Trendline, ok bool) {
	if i2 == i1 {
		return models.Trendline{}, false
	}
	slope := (v2 - v1) / float64(i2-i1)
	intercept := v1 - slope*float64(i1)
	return models.Trendline{
		StartIndex: i1,
		EndIndex:   i2,
		Slope:      slope,
		Intercept:  intercept,
		RSquared:   1.0,
	}, true
}

// FitLeastSquares fits a line to (index, value) pairs via ordinary least
// squares and reports R^2 over the span, per spec.md §4.2.
func FitLeastSquares(indices []int, values []float64) (line models.Trendline, ok bool) {
	n := len(indices)
	if n < 2 || n != len(values) {
		return models.Trendline{}, false
	}

	var sumX, sumY, sumXY, sumX2 float64
	for i := 0; i < n; i++ {
		x := float64(indices[i])
		y := values[i]
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}
	nf := float64(n)
	denom := nf*sumX2 - sumX*sumX
	if denom == 0 {
		return models.Trendline{}, false
	}

	slope := (nf*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / nf

	meanY := sumY / nf
	var ssTot, ssRes float64
	for i := 0; i < n; i++ {
		x := float64(indices[i])
		y := values[i]
		pred := intercept + slope*x
		ssRes += (y - pred) * (y - pred)
		ssTot += (y - meanY) * (y - meanY)
	}
	rSquared := 1.0
	if ssTot > 0 {
		rSquared = 1 - ssRes/ssTot
	}
	if rSquared < 0 {
		rSquared = 0
	}

	return models.Trendline{
		StartIndex: indices[0],
		EndIndex:   indices[n-1],
		Slope:      slope,
		Intercept:  intercept,
		RSquared:   rSquared,
	}, true
}

// FitTurningPoints is a convenience wrapper fitting a line through a set of
// TurningPoints (used by triangle/wedge/channel detectors).
func FitTurningPoints(points []models.TurningPoint) (models.Trendline, bool) {
	if len(points) < 2 {
		return models.Trendline{}, false
	}
	if len(points) == 2 {
		return FitTwoPoint(points[0].Index, points[0].Value, points[1].Index, points[1].Value)
	}
	indices := make([]int, len(points))
	values := make([]float64, len(points))
	for i, p := range points {
		indices[i] = p.Index
		values[i] = p.Value
	}
	return FitLeastSquares(indices, values)
}

// LineFitQuality implements spec.md §4.2's asymmetric-penalty residual
// score: points exceeding a resistance line (above=true, residual measured
// upward) or breaking a support line (above=false, residual measured
// downward) contribute 2x their residual. quality = max(0, 1 -
// 2*normalized_error), where normalized_error is the total absolute
// (penalized) residual divided by the price range of the slice times the
// number of points, i.e. the mean residual per point relative to the range.
func LineFitQuality(line models.Trendline, indices []int, values []float64, above bool) float64 {
	if len(indices) == 0 {
		return 0
	}

	priceRange := sliceRange(values)
	if priceRange == 0 {
		return 0
	}

	var totalResidual float64
	for i, idx := range indices {
		predicted := line.ValueAt(idx)
		actual := values[i]
		residual := actual - predicted

		var penalized float64
		if above {
			// Resistance: points above the line are violations.
			if residual > 0 {
				penalized = 2 * residual
			} else {
				penalized = -residual
			}
		} else {
			// Support: points below the line are violations.
			if residual < 0 {
				penalized = 2 * -residual
			} else {
				penalized = residual
			}
		}
		totalResidual += math.Abs(penalized)
	}

	normalizedError := totalResidual / (priceRange * float64(len(indices)))
	quality := 1 - 2*normalizedError
	if quality < 0 {
		quality = 0
	}
	return quality
}

func sliceRange(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return hi - lo
}

// TouchCount implements spec.md §4.2: the number of indices in the slice
// within relative tolerance (default 2%) of the fitted line's value.
func TouchCount(line models.Trendline, indices []int, values []float64, tolerance float64) int {
	if tolerance <= 0 {
		tolerance = 0.02
	}
	count := 0
	for i, idx := range indices {
		lineValue := line.ValueAt(idx)
		if lineValue == 0 {
			continue
		}
		if math.Abs(values[i]-lineValue)/math.Abs(lineValue) <= tolerance {
			count++
		}
	}
	return count
}

// TouchScore normalizes TouchCount to [0,1] against the slice length.
func TouchScore(line models.Trendline, indices []int, values []float64, tolerance float64) float64 {
	if len(indices) == 0 {
		return 0
	}
	return float64(TouchCount(line, indices, values, tolerance)) / float64(len(indices))
}

// LengthBand is an ideal [lo,hi] bar-count band for a pattern family, used
// by LengthScore.
type LengthBand struct {
	Lo, Hi int
}

// LengthScore implements spec.md §4.2's piecewise length score: a plateau
// of 1.0 over the ideal band, scaling linearly to 0 below it, and
// asymptotically down to a floor of 0.3 above it.
func LengthScore(length int, band LengthBand) float64 {
	l := float64(length)
	lo, hi := float64(band.Lo), float64(band.Hi)

	switch {
	case l < lo:
		if lo == 0 {
			return 0
		}
		score := l / lo
		if score < 0 {
			return 0
		}
		return score
	case l <= hi:
		return 1.0
	default:
		over := l - hi
		// Asymptotic decay toward the 0.3 floor.
		decay := 1.0 / (1.0 + over/hi)
		score := 0.3 + 0.7*decay
		if score < 0.3 {
			return 0.3
		}
		return score
	}
}

// ConvergencePoint returns the x-coordinate where two lines intersect, or
// +Inf if they are parallel within epsilon, per spec.md §4.2.
func ConvergencePoint(a, b models.Trendline) float64 {
	const epsilon = 1e-9
	if math.Abs(a.Slope-b.Slope) < epsilon {
		return math.Inf(1)
	}
	return (b.Intercept - a.Intercept) / (a.Slope - b.Slope)
}
