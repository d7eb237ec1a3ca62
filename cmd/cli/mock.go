package main

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ridopark/jonbu-patterns/internal/models"
)

// mock generates synthetic OHLCV series shaped like named chart patterns,
// for exercising the analyze command and the detector suite without a
// live data feed.

var (
	mockScenario string
	mockBars     int
	mockOut      string
	mockSeed     int64
)

var mockCmd = &cobra.Command{
	Use:   "mock",
	Short: "Generate a synthetic OHLCV bar series",
	Long:  `Generates a synthetic bar series shaped like a named chart pattern scenario, for feeding into analyze.`,
	RunE:  runMock,
}

func init() {
	mockCmd.Flags().StringVar(&mockScenario, "scenario", "ascending_triangle", "scenario to generate (see mock list)")
	mockCmd.Flags().IntVar(&mockBars, "bars", 120, "number of bars to generate")
	mockCmd.Flags().StringVar(&mockOut, "out", "", "output file (default stdout)")
	mockCmd.Flags().Int64Var(&mockSeed, "seed", 1, "random seed")
	mockCmd.AddCommand(mockListCmd)
}

var mockListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available mock scenarios",
	Run: func(cmd *cobra.Command, args []string) {
		for name := range scenarioGenerators {
			fmt.Println(name)
		}
	},
}

func runMock(cmd *cobra.Command, args []string) error {
	gen, ok := scenarioGenerators[mockScenario]
	if !ok {
		return fmt.Errorf("unknown scenario: %s (run 'mock list' for valid names)", mockScenario)
	}
	if mockBars < 30 {
		return fmt.Errorf("bars must be at least 30 for a valid series")
	}

	rng := rand.New(rand.NewSource(mockSeed))
	bars := gen(rng, mockBars)

	data, err := json.MarshalIndent(bars, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal bars: %w", err)
	}

	if mockOut == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(mockOut, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", mockOut, err)
	}
	fmt.Printf("wrote %d bars to %s\n", len(bars), mockOut)
	return nil
}

type scenarioGenerator func(rng *rand.Rand, n int) []models.Bar

var scenarioGenerators = map[string]scenarioGenerator{
	"ascending_triangle": genAscendingTriangle,
	"double_top":         genDoubleTop,
	"head_and_shoulders":  genHeadAndShoulders,
	"bull_flag":          genBullFlag,
	"cup_and_handle":     genCupAndHandle,
	"bullish_divergence": genBullishDivergence,
	"random_walk":        genRandomWalk,
}

// barsFromCloses builds a bar series from a sequence of close prices, with
// open/high/low synthesized around each close and volume scaled by the
// magnitude of the bar's move (larger moves carry more volume, so a strong
// late move reads as rising volume in primitives.BuildVolumeProfile's
// first-half versus second-half comparison).
func barsFromCloses(rng *rand.Rand, closes []float64, baseVolume float64) []models.Bar {
	bars := make([]models.Bar, len(closes))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	prevClose := closes[0] * (1 - 0.002)
	for i, close := range closes {
		open := prevClose
		high := math.Max(open, close) * (1 + 0.001 + 0.002*rng.Float64())
		low := math.Min(open, close) * (1 - 0.001 - 0.002*rng.Float64())
		move := math.Abs(close-open) / open
		volume := baseVolume * (1 + 5*move) * (0.8 + 0.4*rng.Float64())
		bars[i] = models.Bar{
			Timestamp: start.Add(time.Duration(i) * 24 * time.Hour),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     close,
			Volume:    volume,
		}
		prevClose = close
	}
	return bars
}

// genAscendingTriangle builds a flat resistance ceiling with a rising
// sequence of higher lows, the canonical ascending-triangle shape.
func genAscendingTriangle(rng *rand.Rand, n int) []models.Bar {
	resistance := 100.0
	closes := make([]float64, n)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(n)
		floor := 85.0 + 12.0*t
		amplitude := resistance - floor
		phase := float64(i%12) / 12.0
		wave := amplitude * math.Abs(math.Sin(math.Pi*phase))
		closes[i] = floor + wave + (rng.Float64()-0.5)*0.6
		if closes[i] > resistance {
			closes[i] = resistance - 0.2
		}
	}
	return barsFromCloses(rng, closes, 1_000_000)
}

// genDoubleTop builds two roughly equal peaks separated by a pullback,
// followed by a breakdown below the intervening trough.
func genDoubleTop(rng *rand.Rand, n int) []models.Bar {
	closes := make([]float64, n)
	peak := 120.0
	trough := 100.0
	for i := 0; i < n; i++ {
		t := float64(i) / float64(n)
		switch {
		case t < 0.3:
			closes[i] = trough + (peak-trough)*t/0.3
		case t < 0.45:
			closes[i] = peak - (peak-trough)*0.6*(t-0.3)/0.15
		case t < 0.6:
			closes[i] = (peak - (peak-trough)*0.6) + (peak-trough)*0.6*(t-0.45)/0.15
		case t < 0.85:
			closes[i] = peak - (peak-trough)*(t-0.6)/0.25
		default:
			closes[i] = trough - (peak-trough)*0.3*(t-0.85)/0.15
		}
		closes[i] += (rng.Float64() - 0.5) * 0.5
	}
	return barsFromCloses(rng, closes, 1_000_000)
}

// genHeadAndShoulders builds a left shoulder, a higher head, a right
// shoulder near the left shoulder's height, and a neckline breakdown.
func genHeadAndShoulders(rng *rand.Rand, n int) []models.Bar {
	closes := make([]float64, n)
	base := 100.0
	shoulder := 115.0
	head := 125.0
	for i := 0; i < n; i++ {
		t := float64(i) / float64(n)
		var target float64
		switch {
		case t < 0.15:
			target = base + (shoulder-base)*t/0.15
		case t < 0.3:
			target = shoulder - (shoulder-base)*0.5*(t-0.15)/0.15
		case t < 0.45:
			target = (shoulder - (shoulder-base)*0.5) + (head-(shoulder-(shoulder-base)*0.5))*(t-0.3)/0.15
		case t < 0.6:
			target = head - (head-base)*0.5*(t-0.45)/0.15
		case t < 0.75:
			target = (head - (head-base)*0.5) + (shoulder-(head-(head-base)*0.5))*(t-0.6)/0.15
		case t < 0.9:
			target = shoulder - (shoulder-base)*(t-0.75)/0.15
		default:
			target = base - (shoulder-base)*0.3*(t-0.9)/0.1
		}
		closes[i] = target + (rng.Float64()-0.5)*0.5
	}
	return barsFromCloses(rng, closes, 1_000_000)
}

// genBullFlag builds a sharp pole rally followed by a shallow, parallel
// downward-drifting consolidation.
func genBullFlag(rng *rand.Rand, n int) []models.Bar {
	closes := make([]float64, n)
	poleEnd := int(float64(n) * 0.35)
	start := 90.0
	poleTop := 115.0
	for i := 0; i < n; i++ {
		switch {
		case i <= poleEnd:
			t := float64(i) / float64(poleEnd)
			closes[i] = start + (poleTop-start)*t
		default:
			t := float64(i-poleEnd) / float64(n-poleEnd)
			drift := poleTop - 6.0*t
			wobble := 1.2 * math.Sin(math.Pi*2*t*3)
			closes[i] = drift + wobble
		}
		closes[i] += (rng.Float64() - 0.5) * 0.4
	}
	return barsFromCloses(rng, closes, 1_200_000)
}

// genCupAndHandle builds a rounded U-shaped recovery (the cup) followed by
// a shallow short pullback (the handle) near the cup's rim.
func genCupAndHandle(rng *rand.Rand, n int) []models.Bar {
	closes := make([]float64, n)
	rim := 110.0
	cupBottom := 90.0
	handleEnd := int(float64(n) * 0.9)
	for i := 0; i < n; i++ {
		switch {
		case i < handleEnd:
			t := float64(i) / float64(handleEnd)
			closes[i] = rim - (rim-cupBottom)*math.Sin(math.Pi*t)
		default:
			t := float64(i-handleEnd) / float64(n-handleEnd)
			closes[i] = rim - (rim-cupBottom)*0.15*math.Sin(math.Pi*t)
		}
		closes[i] += (rng.Float64() - 0.5) * 0.4
	}
	return barsFromCloses(rng, closes, 1_000_000)
}

// genBullishDivergence builds a price series that carves a lower low while
// the underlying momentum (and therefore RSI) is rising, price grinds
// down with decaying downward velocity, the classic bullish-divergence
// shape.
func genBullishDivergence(rng *rand.Rand, n int) []models.Bar {
	closes := make([]float64, n)
	price := 100.0
	for i := 0; i < n; i++ {
		t := float64(i) / float64(n)
		decay := math.Exp(-3 * t)
		price -= 0.4 * decay
		closes[i] = price + (rng.Float64()-0.5)*0.2
	}
	return barsFromCloses(rng, closes, 900_000)
}

// genRandomWalk builds a plain random walk with no engineered structure,
// useful as a negative control (few or no patterns should survive).
func genRandomWalk(rng *rand.Rand, n int) []models.Bar {
	closes := make([]float64, n)
	price := 100.0
	for i := 0; i < n; i++ {
		price += (rng.Float64() - 0.5) * 1.5
		if price < 10 {
			price = 10
		}
		closes[i] = price
	}
	return barsFromCloses(rng, closes, 1_000_000)
}
