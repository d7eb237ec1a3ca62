// Package indicators implements the RSI/MACD sub-engine used by the
// divergence detector and the analysis summary (spec.md §4.11).
package indicators

import "github.com/ridopark/jonbu-patterns/internal/models"

// RSI computes Wilder-smoothed Relative Strength Index over closes with the
// given period (14 per spec.md §4.11). The returned slice is the same
// length as closes; positions before the indicator has enough history are
// nil. Grounded on internal/indicators/momentum.go's RSI(), whose
// single-window average is replaced here with true Wilder smoothing: the
// original recomputes a flat average over the trailing `period`
// bars every call and never smooths forward, which cannot reproduce
// two spaced-out RSI troughs consistently.
func RSI(closes []float64, period int) []*float64 {
	n := len(closes)
	out := make([]*float64, n)
	if n < period+1 {
		return out
	}

	var gainSum, lossSum float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gainSum += change
		} else {
			lossSum += -change
		}
	}
	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < n; i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}

	return out
}

func rsiValue(avgGain, avgLoss float64) *float64 {
	var rsi float64
	if avgLoss == 0 {
		rsi = 100
	} else {
		rs := avgGain / avgLoss
		rsi = 100 - (100 / (1 + rs))
	}
	return &rsi
}

// RSISnapshot builds the current-value view spec.md §4.11 requires:
// current, overbought (>70), oversold (<30).
func RSISnapshot(values []*float64) models.RSISnapshot {
	current := lastNonNil(values)
	snap := models.RSISnapshot{Current: current}
	if current != nil {
		snap.Overbought = *current > 70
		snap.Oversold = *current < 30
	}
	return snap
}

func lastNonNil(values []*float64) *float64 {
	for i := len(values) - 1; i >= 0; i-- {
		if values[i] != nil {
			return values[i]
		}
	}
	return nil
}

// ComputeRSI is the default in-engine RSI source used when the caller does
// not supply its own indicator_values for divergence detection, per
// spec.md §6.
func ComputeRSI(series models.Series) []*float64 {
	return RSI(series.Closes(), 14)
}
