package models

import (
	"errors"
	"testing"
	"time"
)

func validBar(ts time.Time, close float64) Bar {
	return Bar{
		Timestamp: ts,
		Open:      close,
		High:      close + 1,
		Low:       close - 1,
		Close:     close,
		Volume:    1000,
	}
}

func TestBarValidateAcceptsWellFormedBar(t *testing.T) {
	b := validBar(time.Now(), 100)
	if err := b.Validate(); err != nil {
		t.Errorf("expected a well-formed bar to validate, got %v", err)
	}
}

func TestBarValidateRejectsHighBelowOpenClose(t *testing.T) {
	b := validBar(time.Now(), 100)
	b.High = 99 // lower than both Open and Close
	if err := b.Validate(); !errors.Is(err, ErrMalformedBar) {
		t.Errorf("expected ErrMalformedBar, got %v", err)
	}
}

func TestBarValidateRejectsLowAboveOpenClose(t *testing.T) {
	b := validBar(time.Now(), 100)
	b.Low = 101 // higher than both Open and Close
	if err := b.Validate(); !errors.Is(err, ErrMalformedBar) {
		t.Errorf("expected ErrMalformedBar, got %v", err)
	}
}

func TestBarValidateRejectsNonPositivePrices(t *testing.T) {
	b := validBar(time.Now(), 100)
	b.Close = 0
	if err := b.Validate(); !errors.Is(err, ErrMalformedBar) {
		t.Errorf("expected ErrMalformedBar for a zero close, got %v", err)
	}
}

func TestBarValidateRejectsNegativeVolume(t *testing.T) {
	b := validBar(time.Now(), 100)
	b.Volume = -1
	if err := b.Validate(); !errors.Is(err, ErrMalformedBar) {
		t.Errorf("expected ErrMalformedBar for negative volume, got %v", err)
	}
}

func seriesOf(n int) Series {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]Bar, n)
	for i := 0; i < n; i++ {
		bars[i] = validBar(base.Add(time.Duration(i)*24*time.Hour), 100+float64(i))
	}
	return Series{Symbol: "AAPL", Timeframe: "1day", Bars: bars}
}

func TestSeriesValidateRejectsTooFewBars(t *testing.T) {
	s := seriesOf(10)
	if err := s.Validate(30); !errors.Is(err, ErrSeriesTooShort) {
		t.Errorf("expected ErrSeriesTooShort, got %v", err)
	}
}

func TestSeriesValidateRejectsNonMonotonicTimestamps(t *testing.T) {
	s := seriesOf(40)
	s.Bars[10].Timestamp = s.Bars[9].Timestamp // duplicate timestamp
	if err := s.Validate(30); !errors.Is(err, ErrNonMonotonicTimestamps) {
		t.Errorf("expected ErrNonMonotonicTimestamps, got %v", err)
	}
}

func TestSeriesValidateAcceptsWellFormedSeries(t *testing.T) {
	s := seriesOf(40)
	if err := s.Validate(30); err != nil {
		t.Errorf("expected a well-formed series to validate, got %v", err)
	}
}

func TestSeriesTruncateKeepsMostRecentBars(t *testing.T) {
	s := seriesOf(100)
	truncated := s.Truncate(20)

	if truncated.Len() != 20 {
		t.Fatalf("expected 20 bars after truncation, got %d", truncated.Len())
	}
	if truncated.Bars[0].Timestamp != s.Bars[80].Timestamp {
		t.Errorf("expected truncation to keep the most recent bars, got first timestamp %v", truncated.Bars[0].Timestamp)
	}
}

func TestSeriesTruncateNoOpWhenUnderLimit(t *testing.T) {
	s := seriesOf(20)
	truncated := s.Truncate(50)

	if truncated.Len() != 20 {
		t.Errorf("expected no truncation when the series is already under the limit, got %d", truncated.Len())
	}
}

func TestSeriesClosesMatchesBarOrder(t *testing.T) {
	s := seriesOf(5)
	closes := s.Closes()

	if len(closes) != 5 {
		t.Fatalf("expected 5 closes, got %d", len(closes))
	}
	for i, c := range closes {
		if c != s.Bars[i].Close {
			t.Errorf("close at index %d: expected %v, got %v", i, s.Bars[i].Close, c)
		}
	}
}
