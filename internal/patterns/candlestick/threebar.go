package candlestick

import (
	"fmt"

	"github.com/ridopark/jonbu-patterns/internal/models"
	"github.com/ridopark/jonbu-patterns/internal/patterns/common"
	"github.com/ridopark/jonbu-patterns/internal/primitives"
)

const starCentralBodyRatio = 0.3

// DetectThreeBar implements spec.md §4.9's three-bar family: morning/
// evening star, three white soldiers/black crows, rising/falling three
// methods.
func DetectThreeBar(series models.Series, sensitivity float64) common.Result {
	var result common.Result

	stats := allStats(series)
	bars := series.Bars
	threshold := primitives.AcceptanceThreshold(0.3, 0.4, sensitivity)

	for i := 2; i < len(bars); i++ {
		first, second, third := stats[i-2], stats[i-1], stats[i]
		if first.Range == 0 || second.Range == 0 || third.Range == 0 {
			continue
		}

		if kind, score, ok := matchStar(bars[i-2], bars[i-1], bars[i], first, second, third); ok {
			emit(&result, series, stats, i-2, i, kind, score, sensitivity, threshold)
		}
		if kind, score, ok := matchThreeSame(bars[i-2], bars[i-1], bars[i], first, second, third); ok {
			emit(&result, series, stats, i-2, i, kind, score, sensitivity, threshold)
		}
	}

	for i := 4; i < len(bars); i++ {
		if kind, score, ok := matchThreeMethods(bars, stats, i); ok {
			emit(&result, series, stats, i-4, i, kind, score, sensitivity, threshold)
		}
	}

	return result
}

func emit(result *common.Result, series models.Series, stats []barStats, start, end int, kind models.PatternKind, shapeScore, sensitivity, threshold float64) {
	sizeScore := clamp01score(averageRange(stats, start, end) / averageRangeOr1(stats, start))

	confidence := primitives.AggregateConfidence([]primitives.Factor{
		{Value: shapeScore, Weight: 0.6},
		{Value: sizeScore, Weight: 0.4},
	}, sensitivity)
	if confidence < threshold {
		return
	}

	result.Patterns = append(result.Patterns, models.DetectedPattern{
		Kind:       kind,
		Category:   models.CategoryOf(kind),
		Confidence: confidence,
		StartTime:  series.Bars[start].Timestamp,
		EndTime:    series.Bars[end].Timestamp,
		StartIndex: start,
		EndIndex:   end,
		Description: fmt.Sprintf("%s at bars %d-%d", threeBarName(kind), start, end),
	})
}

// matchStar handles MorningStar/EveningStar: a large first candle, a small
// "star" body gapping away, and a third candle closing past the first
// candle's midpoint.
func matchStar(b1, b2, b3 models.Bar, s1, s2, s3 barStats) (models.PatternKind, float64, bool) {
	if s2.BodyRatio > starCentralBodyRatio {
		return "", 0, false
	}

	mid1 := (b1.Open + b1.Close) / 2

	if !s1.IsBullish && s1.BodyRatio >= minSubstantialBody {
		gapDown := maxf(b2.Open, b2.Close) < b1.Close
		closesPast := s3.IsBullish && b3.Close > mid1
		if gapDown && closesPast {
			score := clamp01score((b3.Close - mid1) / maxf(s1.Body/2, 1e-9))
			return models.MorningStar, score, true
		}
	}

	if s1.IsBullish && s1.BodyRatio >= minSubstantialBody {
		gapUp := minf(b2.Open, b2.Close) > b1.Close
		closesPast := !s3.IsBullish && b3.Close < mid1
		if gapUp && closesPast {
			score := clamp01score((mid1 - b3.Close) / maxf(s1.Body/2, 1e-9))
			return models.EveningStar, score, true
		}
	}

	return "", 0, false
}

// matchThreeSame handles ThreeWhiteSoldiers/ThreeBlackCrows: three
// substantial same-direction candles, each opening inside the previous
// body and closing progressively further.
func matchThreeSame(b1, b2, b3 models.Bar, s1, s2, s3 barStats) (models.PatternKind, float64, bool) {
	substantial := s1.BodyRatio >= minSubstantialBody && s2.BodyRatio >= minSubstantialBody && s3.BodyRatio >= minSubstantialBody

	if !substantial {
		return "", 0, false
	}

	if s1.IsBullish && s2.IsBullish && s3.IsBullish &&
		b2.Open > b1.Open && b2.Open < b1.Close &&
		b3.Open > b2.Open && b3.Open < b2.Close &&
		b2.Close > b1.Close && b3.Close > b2.Close {
		progress := (b3.Close - b1.Close) / maxf(b1.Close-b1.Open, 1e-9)
		return models.ThreeWhiteSoldiers, clamp01score(progress / 3), true
	}

	if !s1.IsBullish && !s2.IsBullish && !s3.IsBullish &&
		b2.Open < b1.Open && b2.Open > b1.Close &&
		b3.Open < b2.Open && b3.Open > b2.Close &&
		b2.Close < b1.Close && b3.Close < b2.Close {
		progress := (b1.Close - b3.Close) / maxf(b1.Open-b1.Close, 1e-9)
		return models.ThreeBlackCrows, clamp01score(progress / 3), true
	}

	return "", 0, false
}

// matchThreeMethods handles RisingThreeMethods/FallingThreeMethods over a
// 5-bar window ending at i: a large trend candle, three small counter-trend
// candles contained within its range, and a large continuation candle.
func matchThreeMethods(bars []models.Bar, stats []barStats, i int) (models.PatternKind, float64, bool) {
	first := stats[i-4]
	last := stats[i]
	if first.BodyRatio < minSubstantialBody || last.BodyRatio < minSubstantialBody {
		return "", 0, false
	}

	firstBar := bars[i-4]
	lastBar := bars[i]

	contained := true
	for j := i - 3; j <= i-1; j++ {
		if stats[j].BodyRatio >= minSubstantialBody {
			contained = false
			break
		}
		hi := maxf(firstBar.Open, firstBar.Close)
		lo := minf(firstBar.Open, firstBar.Close)
		if bars[j].High > hi || bars[j].Low < lo {
			contained = false
			break
		}
	}
	if !contained {
		return "", 0, false
	}

	if first.IsBullish && last.IsBullish && lastBar.Close > firstBar.Close {
		score := clamp01score((lastBar.Close - firstBar.Close) / maxf(first.Body, 1e-9))
		return models.RisingThreeMethods, score, true
	}
	if !first.IsBullish && !last.IsBullish && lastBar.Close < firstBar.Close {
		score := clamp01score((firstBar.Close - lastBar.Close) / maxf(first.Body, 1e-9))
		return models.FallingThreeMethods, score, true
	}

	return "", 0, false
}

func threeBarName(kind models.PatternKind) string {
	switch kind {
	case models.MorningStar:
		return "Morning star"
	case models.EveningStar:
		return "Evening star"
	case models.ThreeWhiteSoldiers:
		return "Three white soldiers"
	case models.ThreeBlackCrows:
		return "Three black crows"
	case models.RisingThreeMethods:
		return "Rising three methods"
	case models.FallingThreeMethods:
		return "Falling three methods"
	default:
		return string(kind)
	}
}
