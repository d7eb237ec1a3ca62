// Package geometric implements spec.md §4.5's geometric detector family:
// triangles, wedges, rectangles, channels, flags/pennants, and
// cup-and-handle. Grounded on internal/analysis/chart.go
// (detectTriangle/detectHeadAndShoulders methodology for shape
// classification) and cryptvault/patterns/geometric.py + continuation.py
// for the per-shape confidence recipes spec.md §4.5 summarizes.
package geometric

import (
	"github.com/ridopark/jonbu-patterns/internal/models"
	"github.com/ridopark/jonbu-patterns/internal/primitives"
)

const slopeThreshold = 0.001

// minDistance is the peak/trough extractor's window for geometric shapes.
// Not pinned by spec.md to a single value; chosen so that triangles,
// wedges, and channels over the 15-80 bar windows spec.md names can see at
// least a handful of extrema without drowning in single-bar noise.
const minDistance = 3

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

// fitQualityAndTouches fits no new line (line is given) and scores it
// against a slice of the series, combining spec.md §4.2's line-fit-quality
// and touch-count utilities.
func fitQualityAndTouches(line models.Trendline, values []float64, start, end int, above bool) (quality, touchScore float64) {
	indices := indexRange(start, end)
	slice := sliceOf(values, start, end)
	quality = primitives.LineFitQuality(line, indices, slice, above)
	touchScore = primitives.TouchScore(line, indices, slice, 0.02)
	return quality, touchScore
}

func convergenceInRange(convergence float64, endIndex, length int) bool {
	if length <= 0 {
		return false
	}
	lo := float64(endIndex) - 0.1*float64(length)
	hi := float64(endIndex) + 2*float64(length)
	return convergence >= lo && convergence <= hi
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// PriorTrend classifies the bar-over-bar direction of the closes
// immediately preceding a pattern's start index.
type PriorTrend int

const (
	TrendSideways PriorTrend = iota
	TrendUp
	TrendDown
)

// priorTrendLookback is the window rectangles and wedges look back over to
// decide whether a shape continues or reverses the preceding move.
const priorTrendLookback = 10

// classifyPriorTrend fits a least-squares line over the lookback bars
// immediately before startIndex and classifies its sign against
// slopeThreshold, scaled by the average close so the threshold is
// comparable across symbols and price levels.
func classifyPriorTrend(closes []float64, startIndex int) PriorTrend {
	from := startIndex - priorTrendLookback
	if from < 0 {
		from = 0
	}
	if startIndex-from < 2 {
		return TrendSideways
	}

	indices := indexRange(from, startIndex-1)
	slice := sliceOf(closes, from, startIndex-1)
	line, ok := primitives.FitLeastSquares(indices, slice)
	if !ok {
		return TrendSideways
	}

	mean := meanOf(slice)
	if mean == 0 {
		return TrendSideways
	}
	relSlope := line.Slope / mean

	switch {
	case relSlope > slopeThreshold:
		return TrendUp
	case relSlope < -slopeThreshold:
		return TrendDown
	default:
		return TrendSideways
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
