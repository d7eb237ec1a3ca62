package primitives

import (
	"math"
	"sort"

	"github.com/ridopark/jonbu-patterns/internal/models"
)

// Level is one clustered support or resistance level.
type Level struct {
	Price    float64
	Touches  int
	Strength float64
	Indices  []int
}

// ClusterLevels implements spec.md §4.4: cluster the given (index, value)
// pivot points into levels within a relative-distance tolerance, keeping
// clusters with at least minTouches. Grounded on
// internal/analysis/support.go's clusterLevels/calculateClusterStrength,
// generalized into a pure function over plain values instead of *OHLCV.
func ClusterLevels(indices []int, values []float64, tolerance float64, minTouches int) []Level {
	type pivot struct {
		index int
		value float64
	}
	pivots := make([]pivot, len(values))
	for i := range values {
		pivots[i] = pivot{indices[i], values[i]}
	}

	used := make([]bool, len(pivots))
	var clusters []Level

	for i, p := range pivots {
		if used[i] {
			continue
		}
		cluster := Level{Price: p.value, Indices: []int{p.index}}
		used[i] = true

		for j := i + 1; j < len(pivots); j++ {
			if used[j] {
				continue
			}
			if p.value == 0 {
				continue
			}
			diff := math.Abs(pivots[j].value-p.value) / p.value
			if diff <= tolerance {
				cluster.Indices = append(cluster.Indices, pivots[j].index)
				used[j] = true

				var total float64
				for _, idx := range cluster.Indices {
					total += valueAt(indices, values, idx)
				}
				cluster.Price = total / float64(len(cluster.Indices))
			}
		}

		cluster.Touches = len(cluster.Indices)
		cluster.Strength = float64(cluster.Touches) * 20
		clusters = append(clusters, cluster)
	}

	var kept []Level
	for _, c := range clusters {
		if c.Touches >= minTouches {
			kept = append(kept, c)
		}
	}

	sort.Slice(kept, func(i, j int) bool {
		if kept[i].Strength != kept[j].Strength {
			return kept[i].Strength > kept[j].Strength
		}
		return kept[i].Price < kept[j].Price
	})

	return kept
}

func valueAt(indices []int, values []float64, target int) float64 {
	for i, idx := range indices {
		if idx == target {
			return values[i]
		}
	}
	return 0
}

// SupportResistance holds the two sorted level lists spec.md §4.4 emits.
type SupportResistance struct {
	Support    []Level
	Resistance []Level
}

// DetectLevels finds pivot highs/lows over series and clusters them into
// support and resistance levels, per spec.md §4.4.
func DetectLevels(series models.Series, lookback int, tolerance float64, minTouches int) SupportResistance {
	bars := series.Bars
	n := len(bars)
	var highIdx, lowIdx []int
	var highVal, lowVal []float64

	for i := lookback; i < n-lookback; i++ {
		isHigh, isLow := true, true
		for j := i - lookback; j <= i+lookback; j++ {
			if j == i {
				continue
			}
			if bars[j].High >= bars[i].High {
				isHigh = false
			}
			if bars[j].Low <= bars[i].Low {
				isLow = false
			}
		}
		if isHigh {
			highIdx = append(highIdx, i)
			highVal = append(highVal, bars[i].High)
		}
		if isLow {
			lowIdx = append(lowIdx, i)
			lowVal = append(lowVal, bars[i].Low)
		}
	}

	return SupportResistance{
		Support:    ClusterLevels(lowIdx, lowVal, tolerance, minTouches),
		Resistance: ClusterLevels(highIdx, highVal, tolerance, minTouches),
	}
}
