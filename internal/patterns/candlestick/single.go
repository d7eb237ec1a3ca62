package candlestick

import (
	"fmt"

	"github.com/ridopark/jonbu-patterns/internal/models"
	"github.com/ridopark/jonbu-patterns/internal/patterns/common"
	"github.com/ridopark/jonbu-patterns/internal/primitives"
)

// DetectSingleBar implements spec.md §4.9's single-bar family: Hammer,
// ShootingStar, Doji, SpinningTop, Marubozu, GravestoneDoji.
func DetectSingleBar(series models.Series, sensitivity float64) common.Result {
	var result common.Result

	stats := allStats(series)
	closes := series.Closes()
	threshold := primitives.AcceptanceThreshold(0.3, 0.4, sensitivity)

	for i, s := range stats {
		if s.Range == 0 {
			continue
		}
		context := priorContext(closes, i)

		if kind, ok := matchHammerOrStar(s, context); ok {
			if pattern, ok := buildSingle(series, stats, i, kind, sensitivity, threshold); ok {
				result.Patterns = append(result.Patterns, pattern)
			}
		}
		if kind, ok := matchBodyShape(s); ok {
			if pattern, ok := buildSingle(series, stats, i, kind, sensitivity, threshold); ok {
				result.Patterns = append(result.Patterns, pattern)
			}
		}
	}

	return result
}

func matchHammerOrStar(s barStats, context contextTrend) (models.PatternKind, bool) {
	switch {
	case s.LowerRatio >= 0.6 && s.BodyRatio <= 0.3 && s.UpperRatio <= 0.1 && context != contextUp:
		return models.Hammer, true
	case s.UpperRatio >= 0.6 && s.BodyRatio <= 0.3 && s.LowerRatio <= 0.1 && context != contextDown:
		return models.ShootingStar, true
	default:
		return "", false
	}
}

func matchBodyShape(s barStats) (models.PatternKind, bool) {
	switch {
	case s.BodyRatio <= 0.05 && s.UpperRatio >= 0.4 && s.LowerRatio <= 0.1:
		return models.GravestoneDoji, true
	case s.BodyRatio <= 0.05:
		return models.Doji, true
	case s.BodyRatio >= 0.8 && s.UpperRatio <= 0.1 && s.LowerRatio <= 0.1:
		return models.Marubozu, true
	case s.BodyRatio > 0.05 && s.BodyRatio <= 0.3 && s.UpperRatio >= 0.3 && s.LowerRatio >= 0.3:
		return models.SpinningTop, true
	default:
		return "", false
	}
}

// buildSingle scores a single-bar candidate by how comfortably it clears
// its shape thresholds (body/wick ratio margins) and context fit.
func buildSingle(series models.Series, stats []barStats, i int, kind models.PatternKind, sensitivity, threshold float64) (models.DetectedPattern, bool) {
	s := stats[i]

	shapeScore := singleShapeScore(kind, s)
	contextScore := 0.7
	sizeScore := clamp01score(s.Range / averageRangeOr1(stats, i))

	confidence := primitives.AggregateConfidence([]primitives.Factor{
		{Value: shapeScore, Weight: 0.5},
		{Value: contextScore, Weight: 0.3},
		{Value: sizeScore, Weight: 0.2},
	}, sensitivity)

	if confidence < threshold {
		return models.DetectedPattern{}, false
	}

	bar := series.Bars[i]
	return models.DetectedPattern{
		Kind:       kind,
		Category:   models.CategoryOf(kind),
		Confidence: confidence,
		StartTime:  bar.Timestamp,
		EndTime:    bar.Timestamp,
		StartIndex: i,
		EndIndex:   i,
		KeyLevels: map[string]float64{
			"open": bar.Open, "high": bar.High, "low": bar.Low, "close": bar.Close,
		},
		Description: fmt.Sprintf("%s at bar %d", singleName(kind), i),
	}, true
}

func averageRangeOr1(stats []barStats, i int) float64 {
	avg := averageRange(stats, i-contextWindow, i-1)
	if avg == 0 {
		return 1
	}
	return avg
}

func singleShapeScore(kind models.PatternKind, s barStats) float64 {
	switch kind {
	case models.Hammer:
		return clamp01score(s.LowerRatio)
	case models.ShootingStar:
		return clamp01score(s.UpperRatio)
	case models.Doji, models.GravestoneDoji:
		return clamp01score(1 - s.BodyRatio/0.05)
	case models.Marubozu:
		return clamp01score(s.BodyRatio)
	case models.SpinningTop:
		return clamp01score(minf(s.UpperRatio, s.LowerRatio))
	default:
		return 0.5
	}
}

func singleName(kind models.PatternKind) string {
	switch kind {
	case models.Hammer:
		return "Hammer"
	case models.ShootingStar:
		return "Shooting star"
	case models.Doji:
		return "Doji"
	case models.SpinningTop:
		return "Spinning top"
	case models.Marubozu:
		return "Marubozu"
	case models.GravestoneDoji:
		return "Gravestone doji"
	default:
		return string(kind)
	}
}
