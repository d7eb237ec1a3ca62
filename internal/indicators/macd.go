package indicators

import "github.com/ridopark/jonbu-patterns/internal/models"

// EMA computes the exponential moving average over prices with the given
// period, same length as prices, nil before the EMA has `period` bars of
// history to seed from. Grounded on internal/indicators/trend.go's EMA(),
// corrected to seed from an SMA of the first `period` closes instead of
// seeding from prices[0]: seeding from a single price biases every early
// value toward whatever that first price happened to be.
func EMA(prices []float64, period int) []*float64 {
	n := len(prices)
	out := make([]*float64, n)
	if n < period {
		return out
	}

	var sum float64
	for i := 0; i < period; i++ {
		sum += prices[i]
	}
	ema := sum / float64(period)
	seed := ema
	out[period-1] = &seed

	multiplier := 2.0 / (float64(period) + 1.0)
	for i := period; i < n; i++ {
		ema = (prices[i]-ema)*multiplier + ema
		v := ema
		out[i] = &v
	}
	return out
}

// MACDSeries computes the MACD line, signal line, and histogram over
// closes, per spec.md §4.11 (12,26,9 by default). Grounded on
// internal/indicators/trend.go's MACD(), whose signal = macd*0.9 placeholder
// is replaced with a true EMA(9) of the MACD line.
func MACDSeries(closes []float64, fast, slow, signalPeriod int) (macdLine, signalLine, histogram []*float64) {
	n := len(closes)
	fastEMA := EMA(closes, fast)
	slowEMA := EMA(closes, slow)

	macdLine = make([]*float64, n)
	for i := 0; i < n; i++ {
		if fastEMA[i] != nil && slowEMA[i] != nil {
			v := *fastEMA[i] - *slowEMA[i]
			macdLine[i] = &v
		}
	}

	macdValues, firstValid := compact(macdLine)
	signalValues := EMA(macdValues, signalPeriod)

	signalLine = make([]*float64, n)
	histogram = make([]*float64, n)
	for i, sv := range signalValues {
		if sv == nil {
			continue
		}
		idx := firstValid + i
		signalLine[idx] = sv
		h := *macdLine[idx] - *sv
		histogram[idx] = &h
	}

	return macdLine, signalLine, histogram
}

func compact(values []*float64) ([]float64, int) {
	first := -1
	for i, v := range values {
		if v != nil {
			first = i
			break
		}
	}
	if first == -1 {
		return nil, 0
	}
	out := make([]float64, 0, len(values)-first)
	for _, v := range values[first:] {
		out = append(out, *v)
	}
	return out, first
}

// MACDSnapshot builds the current-value view spec.md §4.11 requires.
func MACDSnapshot(macdLine, signalLine []*float64) models.MACDSnapshot {
	snap := models.MACDSnapshot{
		CurrentMACD:   lastNonNil(macdLine),
		CurrentSignal: lastNonNil(signalLine),
	}
	if snap.CurrentMACD != nil && snap.CurrentSignal != nil {
		snap.BullishCrossover = *snap.CurrentMACD > *snap.CurrentSignal
	}
	return snap
}

// ComputeMACD runs the default 12/26/9 MACD over a series' closes.
func ComputeMACD(series models.Series) (macdLine, signalLine, histogram []*float64) {
	return MACDSeries(series.Closes(), 12, 26, 9)
}
