package indicators

import "testing"

func TestEMASeedsFromSMAOfFirstPeriod(t *testing.T) {
	prices := []float64{1, 2, 3, 4, 5}

	values := EMA(prices, 5)

	if values[4] == nil {
		t.Fatal("expected the EMA to be seeded at index period-1")
	}
	want := 3.0 // SMA(1..5)
	if *values[4] != want {
		t.Errorf("expected EMA seed %v, got %v", want, *values[4])
	}
	for i := 0; i < 4; i++ {
		if values[i] != nil {
			t.Errorf("expected nil before the seed index, got %v at %d", *values[i], i)
		}
	}
}

func TestMACDSeriesPositiveOnRisingPrices(t *testing.T) {
	closes := make([]float64, 60)
	price := 100.0
	for i := range closes {
		price += 0.5
		closes[i] = price
	}

	macdLine, signalLine, histogram := MACDSeries(closes, 12, 26, 9)

	macd := lastNonNil(macdLine)
	signal := lastNonNil(signalLine)
	hist := lastNonNil(histogram)
	if macd == nil || signal == nil || hist == nil {
		t.Fatal("expected MACD/signal/histogram to be populated for a 60-bar series")
	}
	if *macd <= 0 {
		t.Errorf("expected a positive MACD line on a steady uptrend, got %v", *macd)
	}
}

func TestMACDSnapshotDetectsBullishCrossover(t *testing.T) {
	macd := 1.5
	signal := 1.0
	snap := MACDSnapshot([]*float64{&macd}, []*float64{&signal})

	if !snap.BullishCrossover {
		t.Error("expected bullish crossover when MACD line is above signal line")
	}

	higherSignal := 2.0
	snap2 := MACDSnapshot([]*float64{&macd}, []*float64{&higherSignal})
	if snap2.BullishCrossover {
		t.Error("expected no bullish crossover when the signal line is above the MACD line")
	}
}
