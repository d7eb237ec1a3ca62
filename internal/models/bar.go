// Package models holds the plain data types shared across the pattern
// detection engine: bars, series, turning points, trendlines, volume
// profiles, and detected patterns.
package models

import "time"

// Bar is one OHLCV observation. Immutable once constructed.
type Bar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Validate enforces the OHLC ordering invariant: low <= min(open,close) <=
// max(open,close) <= high, and non-negative volume.
func (b Bar) Validate() error {
	if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
		return ErrMalformedBar
	}
	lo := min2(b.Open, b.Close)
	hi := max2(b.Open, b.Close)
	if b.Low > lo || hi > b.High {
		return ErrMalformedBar
	}
	if b.Volume < 0 {
		return ErrMalformedBar
	}
	return nil
}

func min2(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func max2(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// Series is an ordered, read-only sequence of Bars for one symbol/timeframe.
type Series struct {
	Symbol    string
	Timeframe string
	Bars      []Bar
}

// Len returns the number of bars in the series.
func (s Series) Len() int { return len(s.Bars) }

// Closes returns the close price of every bar, in index order.
func (s Series) Closes() []float64 { return s.column(func(b Bar) float64 { return b.Close }) }

// Highs returns the high price of every bar, in index order.
func (s Series) Highs() []float64 { return s.column(func(b Bar) float64 { return b.High }) }

// Lows returns the low price of every bar, in index order.
func (s Series) Lows() []float64 { return s.column(func(b Bar) float64 { return b.Low }) }

// Opens returns the open price of every bar, in index order.
func (s Series) Opens() []float64 { return s.column(func(b Bar) float64 { return b.Open }) }

// Volumes returns the traded volume of every bar, in index order.
func (s Series) Volumes() []float64 { return s.column(func(b Bar) float64 { return b.Volume }) }

func (s Series) column(f func(Bar) float64) []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = f(b)
	}
	return out
}

// Validate enforces that every bar is well-formed and timestamps are
// strictly increasing with no duplicates.
func (s Series) Validate(minDataPoints int) error {
	if len(s.Bars) < minDataPoints {
		return ErrSeriesTooShort
	}
	for i, b := range s.Bars {
		if err := b.Validate(); err != nil {
			return err
		}
		if i > 0 && !s.Bars[i].Timestamp.After(s.Bars[i-1].Timestamp) {
			return ErrNonMonotonicTimestamps
		}
	}
	return nil
}

// Truncate keeps only the most recent maxDataPoints bars, per spec.md §4.12
// step 1 ("truncate from the head if oversized").
func (s Series) Truncate(maxDataPoints int) Series {
	if maxDataPoints <= 0 || len(s.Bars) <= maxDataPoints {
		return s
	}
	out := s
	out.Bars = s.Bars[len(s.Bars)-maxDataPoints:]
	return out
}
