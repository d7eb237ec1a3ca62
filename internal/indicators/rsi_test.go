package indicators

import "testing"

func TestRSIMonotonicRiseApproachesHundred(t *testing.T) {
	closes := make([]float64, 30)
	price := 100.0
	for i := range closes {
		price += 1.0
		closes[i] = price
	}

	values := RSI(closes, 14)

	last := lastNonNil(values)
	if last == nil {
		t.Fatal("expected a non-nil RSI value for a 30-bar steadily rising series")
	}
	if *last < 90 {
		t.Errorf("expected RSI near 100 for a steady rise, got %v", *last)
	}
}

func TestRSIMonotonicFallApproachesZero(t *testing.T) {
	closes := make([]float64, 30)
	price := 100.0
	for i := range closes {
		price -= 1.0
		closes[i] = price
	}

	values := RSI(closes, 14)

	last := lastNonNil(values)
	if last == nil {
		t.Fatal("expected a non-nil RSI value for a 30-bar steadily falling series")
	}
	if *last > 10 {
		t.Errorf("expected RSI near 0 for a steady fall, got %v", *last)
	}
}

func TestRSIShortSeriesReturnsAllNil(t *testing.T) {
	closes := []float64{100, 101, 102}

	values := RSI(closes, 14)

	for i, v := range values {
		if v != nil {
			t.Errorf("expected nil at index %d for a series shorter than the period, got %v", i, *v)
		}
	}
}

func TestRSISnapshotFlagsOverboughtAndOversold(t *testing.T) {
	high := 85.0
	low := 15.0
	mid := 50.0

	if snap := RSISnapshot([]*float64{&high}); !snap.Overbought || snap.Oversold {
		t.Errorf("expected overbought=true oversold=false for RSI 85, got %+v", snap)
	}
	if snap := RSISnapshot([]*float64{&low}); snap.Overbought || !snap.Oversold {
		t.Errorf("expected overbought=false oversold=true for RSI 15, got %+v", snap)
	}
	if snap := RSISnapshot([]*float64{&mid}); snap.Overbought || snap.Oversold {
		t.Errorf("expected neither flag for RSI 50, got %+v", snap)
	}
	if snap := RSISnapshot(nil); snap.Current != nil {
		t.Errorf("expected nil current for an empty input, got %+v", snap)
	}
}
