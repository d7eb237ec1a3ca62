package candlestick

import (
	"fmt"

	"github.com/ridopark/jonbu-patterns/internal/models"
	"github.com/ridopark/jonbu-patterns/internal/patterns/common"
	"github.com/ridopark/jonbu-patterns/internal/primitives"
)

const (
	minSubstantialBody  = 0.3
	tweezerTolerance    = 0.02
	darkCloudPenetration = 0.5
)

// DetectTwoBar implements spec.md §4.9's two-bar family: engulfing,
// harami, piercing line, dark cloud cover, tweezer tops/bottoms.
func DetectTwoBar(series models.Series, sensitivity float64) common.Result {
	var result common.Result

	stats := allStats(series)
	closes := series.Closes()
	bars := series.Bars
	threshold := primitives.AcceptanceThreshold(0.3, 0.4, sensitivity)

	for i := 1; i < len(bars); i++ {
		prev, curr := stats[i-1], stats[i]
		if prev.Range == 0 || curr.Range == 0 {
			continue
		}
		context := priorContext(closes, i-1)

		kind, shapeScore, ok := matchTwoBar(bars[i-1], bars[i], prev, curr, context)
		if !ok {
			continue
		}

		contextScore := 0.7
		sizeScore := clamp01score((prev.Range + curr.Range) / (2 * averageRangeOr1(stats, i-1)))

		confidence := primitives.AggregateConfidence([]primitives.Factor{
			{Value: shapeScore, Weight: 0.5},
			{Value: contextScore, Weight: 0.3},
			{Value: sizeScore, Weight: 0.2},
		}, sensitivity)
		if confidence < threshold {
			continue
		}

		pattern := models.DetectedPattern{
			Kind:       kind,
			Category:   models.CategoryOf(kind),
			Confidence: confidence,
			StartTime:  bars[i-1].Timestamp,
			EndTime:    bars[i].Timestamp,
			StartIndex: i - 1,
			EndIndex:   i,
			KeyLevels: map[string]float64{
				"prev_close": bars[i-1].Close,
				"curr_close": bars[i].Close,
			},
			Description: fmt.Sprintf("%s at bars %d-%d", twoBarName(kind), i-1, i),
		}
		result.Patterns = append(result.Patterns, pattern)
	}

	return result
}

func matchTwoBar(prevBar, currBar models.Bar, prev, curr barStats, context contextTrend) (models.PatternKind, float64, bool) {
	prevBody := prev.Body
	currBody := curr.Body

	engulfs := currBody > prevBody && minf(currBar.Open, currBar.Close) <= minf(prevBar.Open, prevBar.Close) &&
		maxf(currBar.Open, currBar.Close) >= maxf(prevBar.Open, prevBar.Close)

	switch {
	case !prev.IsBullish && curr.IsBullish && engulfs && context != contextUp:
		return models.BullishEngulfing, clamp01score(currBody / maxf(prevBody, 1e-9) / 2), true
	case prev.IsBullish && !curr.IsBullish && engulfs && context != contextDown:
		return models.BearishEngulfing, clamp01score(currBody / maxf(prevBody, 1e-9) / 2), true
	}

	contained := maxf(currBar.Open, currBar.Close) <= maxf(prevBar.Open, prevBar.Close) &&
		minf(currBar.Open, currBar.Close) >= minf(prevBar.Open, prevBar.Close)
	if prevBody >= minSubstantialBody*prev.Range && currBody < prevBody && contained {
		if prev.IsBullish && !curr.IsBullish {
			return models.BearishHarami, clamp01score(1 - currBody/maxf(prevBody, 1e-9)), true
		}
		if !prev.IsBullish && curr.IsBullish {
			return models.BullishHarami, clamp01score(1 - currBody/maxf(prevBody, 1e-9)), true
		}
	}

	// Piercing line: prior bearish, current opens below prior close and
	// closes above the midpoint of the prior body (below prior open).
	if !prev.IsBullish && curr.IsBullish && currBar.Open < prevBar.Close {
		mid := (prevBar.Open + prevBar.Close) / 2
		if currBar.Close > mid && currBar.Close < prevBar.Open {
			penetration := (currBar.Close - mid) / maxf(prevBody/2, 1e-9)
			return models.PiercingLine, clamp01score(penetration), true
		}
	}

	// Dark cloud cover: prior bullish, current opens above prior close and
	// closes below the midpoint, penetrating >= 50% of the prior body.
	if prev.IsBullish && !curr.IsBullish && currBar.Open > prevBar.Close {
		penetration := (prevBar.Close - currBar.Close) / maxf(prevBody, 1e-9)
		if penetration >= darkCloudPenetration {
			return models.DarkCloudCover, clamp01score(penetration), true
		}
	}

	avgRange := (prev.Range + curr.Range) / 2
	if avgRange > 0 {
		if abs(prevBar.High-currBar.High)/avgRange <= tweezerTolerance && context == contextUp {
			return models.TweezerTops, clamp01score(1 - abs(prevBar.High-currBar.High)/avgRange/tweezerTolerance), true
		}
		if abs(prevBar.Low-currBar.Low)/avgRange <= tweezerTolerance && context == contextDown {
			return models.TweezerBottoms, clamp01score(1 - abs(prevBar.Low-currBar.Low)/avgRange/tweezerTolerance), true
		}
	}

	return "", 0, false
}

func twoBarName(kind models.PatternKind) string {
	switch kind {
	case models.BullishEngulfing:
		return "Bullish engulfing"
	case models.BearishEngulfing:
		return "Bearish engulfing"
	case models.BullishHarami:
		return "Bullish harami"
	case models.BearishHarami:
		return "Bearish harami"
	case models.PiercingLine:
		return "Piercing line"
	case models.DarkCloudCover:
		return "Dark cloud cover"
	case models.TweezerTops:
		return "Tweezer tops"
	case models.TweezerBottoms:
		return "Tweezer bottoms"
	default:
		return string(kind)
	}
}
