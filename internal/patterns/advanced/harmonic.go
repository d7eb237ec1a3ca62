// Package advanced implements spec.md §4.7/4.8's advanced detector family:
// diamond, expanding triangle, and the harmonic XABCD/ABCD patterns.
// Grounded on cryptvault/patterns/advanced.py and harmonic.py for the
// Fibonacci ratio tables no Go reference in the pack carries, expressed over the
// shared primitives layer instead of the source's per-pattern classes.
package advanced

import (
	"fmt"

	"github.com/ridopark/jonbu-patterns/internal/models"
	"github.com/ridopark/jonbu-patterns/internal/patterns/common"
	"github.com/ridopark/jonbu-patterns/internal/primitives"
)

const (
	harmonicMinDistance = 5
	harmonicMinSpan     = 20
	harmonicMaxSpan     = 100
	harmonicTolerance   = 0.05
)

// ratioTarget is either a pinned value (Lo==Hi) or a [Lo,Hi] band, matched
// against spec.md §4.7's per-pattern table within harmonicTolerance.
type ratioTarget struct {
	Lo, Hi float64
}

func pinned(v float64) ratioTarget { return ratioTarget{Lo: v, Hi: v} }

type harmonicRule struct {
	kind  models.PatternKind
	abXA  ratioTarget
	bcAB  ratioTarget
	xdXA  ratioTarget
}

var harmonicRules = []harmonicRule{
	{kind: models.Gartley, abXA: pinned(0.618), bcAB: ratioTarget{0.382, 0.886}, xdXA: pinned(0.786)},
	{kind: models.Butterfly, abXA: pinned(0.786), bcAB: ratioTarget{0.382, 0.886}, xdXA: ratioTarget{1.27, 1.618}},
	{kind: models.Bat, abXA: ratioTarget{0.382, 0.5}, bcAB: ratioTarget{0.382, 0.886}, xdXA: pinned(0.886)},
	{kind: models.Crab, abXA: ratioTarget{0.382, 0.618}, bcAB: ratioTarget{0.382, 0.886}, xdXA: pinned(1.618)},
	{kind: models.Cypher, abXA: pinned(0.382), bcAB: pinned(1.272), xdXA: pinned(0.786)},
}

// DetectHarmonics implements spec.md §4.7: scan 5-point alternating
// XABCD windows and match each against the harmonic ratio table.
func DetectHarmonics(series models.Series, sensitivity float64) common.Result {
	var result common.Result

	closes := series.Closes()
	points := primitives.FindTurningPoints(closes, harmonicMinDistance)
	if len(points) < 5 {
		return result
	}
	threshold := primitives.AcceptanceThreshold(0.3, 0.4, sensitivity)

	for i := 0; i+4 < len(points); i++ {
		window := points[i : i+5]
		if !primitives.Alternating(window) {
			continue
		}

		span := window[4].Index - window[0].Index
		if span < harmonicMinSpan || span > harmonicMaxSpan {
			continue
		}

		for _, rule := range harmonicRules {
			pattern, ok := matchHarmonic(series, window, rule, sensitivity, threshold)
			if !ok {
				continue
			}
			result.Patterns = append(result.Patterns, pattern)
		}

		abcd, ok := matchABCD(series, window, sensitivity, threshold)
		if ok {
			result.Patterns = append(result.Patterns, abcd)
		}
	}

	return result
}

func harmonicRatios(window []models.TurningPoint) (abXA, bcAB, cdBC, xdXA, cdAB float64, ok bool) {
	x, a, b, c, d := window[0].Value, window[1].Value, window[2].Value, window[3].Value, window[4].Value
	xa := abs(a - x)
	ab := abs(b - a)
	bc := abs(c - b)
	cd := abs(d - c)
	if xa == 0 || ab == 0 || bc == 0 {
		return 0, 0, 0, 0, 0, false
	}
	return ab / xa, bc / ab, cd / bc, abs(d-x) / xa, cd / ab, true
}

func matchHarmonic(series models.Series, window []models.TurningPoint, rule harmonicRule, sensitivity, threshold float64) (models.DetectedPattern, bool) {
	abXA, bcAB, _, xdXA, _, ok := harmonicRatios(window)
	if !ok {
		return models.DetectedPattern{}, false
	}

	abAcc, abOK := ratioAccuracy(abXA, rule.abXA)
	bcAcc, bcOK := ratioAccuracy(bcAB, rule.bcAB)
	xdAcc, xdOK := ratioAccuracy(xdXA, rule.xdXA)
	if !abOK || !bcOK || !xdOK {
		return models.DetectedPattern{}, false
	}

	avg := (abAcc + bcAcc + xdAcc) / 3
	if avg > 0.9 {
		avg = clamp01score(avg * 1.1)
	}
	confidence := primitives.SensitivityAdjust(avg, sensitivity)
	if confidence < threshold {
		return models.DetectedPattern{}, false
	}

	x, a, b, c, d := window[0], window[1], window[2], window[3], window[4]
	xa := abs(a.Value - x.Value)

	fib := map[string]float64{
		"XA_0.618": x.Value + signOf(d.Value-x.Value)*xa*0.618,
		"XA_0.786": x.Value + signOf(d.Value-x.Value)*xa*0.786,
		"target_1": d.Value + signOf(d.Value-x.Value)*xa*0.382,
		"target_2": d.Value + signOf(d.Value-x.Value)*xa*0.618,
	}

	return models.DetectedPattern{
		Kind:       rule.kind,
		Category:   models.CategoryOf(rule.kind),
		Confidence: confidence,
		StartTime:  series.Bars[x.Index].Timestamp,
		EndTime:    series.Bars[d.Index].Timestamp,
		StartIndex: x.Index,
		EndIndex:   d.Index,
		KeyLevels: map[string]float64{
			"X": x.Value, "A": a.Value, "B": b.Value, "C": c.Value, "D": d.Value,
		},
		FibonacciLevels: fib,
		Description:     fmt.Sprintf("%s harmonic pattern, D near %.2f", harmonicName(rule.kind), d.Value),
	}, true
}

// matchABCD implements spec.md §4.7's ABCD pattern on the inner 4 points
// (A,B,C,D) of the same alternating window: CD/AB in [0.618,1.618] and
// time(CD)/time(AB) in [0.5,2.0].
func matchABCD(series models.Series, window []models.TurningPoint, sensitivity, threshold float64) (models.DetectedPattern, bool) {
	a, b, c, d := window[1], window[2], window[3], window[4]
	ab := abs(b.Value - a.Value)
	cd := abs(d.Value - c.Value)
	if ab == 0 {
		return models.DetectedPattern{}, false
	}
	cdAB := cd / ab
	if cdAB < 0.618 || cdAB > 1.618 {
		return models.DetectedPattern{}, false
	}

	timeAB := float64(b.Index - a.Index)
	timeCD := float64(d.Index - c.Index)
	if timeAB == 0 {
		return models.DetectedPattern{}, false
	}
	timeRatio := timeCD / timeAB
	if timeRatio < 0.5 || timeRatio > 2.0 {
		return models.DetectedPattern{}, false
	}

	ratioAcc, _ := ratioAccuracy(cdAB, ratioTarget{0.618, 1.618})
	timeAcc := 1 - clamp01score(abs(timeRatio-1.0)/1.0)

	confidence := primitives.AggregateConfidence([]primitives.Factor{
		{Value: ratioAcc, Weight: 0.6},
		{Value: timeAcc, Weight: 0.4},
	}, sensitivity)
	if confidence < threshold {
		return models.DetectedPattern{}, false
	}

	return models.DetectedPattern{
		Kind:       models.ABCD,
		Category:   models.CategoryOf(models.ABCD),
		Confidence: confidence,
		StartTime:  series.Bars[a.Index].Timestamp,
		EndTime:    series.Bars[d.Index].Timestamp,
		StartIndex: a.Index,
		EndIndex:   d.Index,
		KeyLevels: map[string]float64{
			"A": a.Value, "B": b.Value, "C": c.Value, "D": d.Value,
		},
		Description: fmt.Sprintf("ABCD pattern, D near %.2f", d.Value),
	}, true
}

// ratioAccuracy scores actual against target (pinned or ranged), returning
// ok=false if actual falls outside target.Lo-tolerance/target.Hi+tolerance.
func ratioAccuracy(actual float64, target ratioTarget) (accuracy float64, ok bool) {
	if target.Lo == target.Hi {
		diff := abs(actual - target.Lo)
		if diff > harmonicTolerance {
			return 0, false
		}
		if target.Lo == 0 {
			return 0, false
		}
		return clamp01score(1 - diff/target.Lo), true
	}

	if actual >= target.Lo && actual <= target.Hi {
		mid := (target.Lo + target.Hi) / 2
		if mid == 0 {
			return 1, true
		}
		return clamp01score(1 - abs(actual-mid)/mid*0.1), true
	}

	var nearest float64
	if actual < target.Lo {
		nearest = target.Lo
	} else {
		nearest = target.Hi
	}
	diff := abs(actual - nearest)
	if diff > harmonicTolerance || nearest == 0 {
		return 0, false
	}
	return clamp01score(1 - diff/nearest), true
}

func signOf(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

func harmonicName(kind models.PatternKind) string {
	switch kind {
	case models.Gartley:
		return "Gartley"
	case models.Butterfly:
		return "Butterfly"
	case models.Bat:
		return "Bat"
	case models.Crab:
		return "Crab"
	case models.Cypher:
		return "Cypher"
	default:
		return string(kind)
	}
}

func clamp01score(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
