// Package patterns holds cross-family formatting shared by the orchestrator's
// summary and recommendation text, grounded on cryptvault/core/analyzer.py's
// inline f-string building in _generate_recommendations.
package patterns

import (
	"fmt"

	"github.com/ridopark/jonbu-patterns/internal/models"
)

// Summarize renders a one-line human-readable callout for a pattern,
// combining its kind, bias, and confidence; used by the orchestrator when
// building the "strongest pattern" recommendation line rather than reusing
// a single detector's raw Description verbatim.
func Summarize(p models.DetectedPattern) string {
	bias := "neutral"
	switch {
	case p.IsBullish():
		bias = "bullish"
	case p.IsBearish():
		bias = "bearish"
	}
	return fmt.Sprintf("%s (%s, %.0f%% confidence)", displayName(p.Kind), bias, p.Confidence*100)
}

// displayName turns a PatternKind's snake_case value into a readable
// title; Summarize uses it for every pattern.
func displayName(kind models.PatternKind) string {
	raw := string(kind)
	out := make([]byte, 0, len(raw))
	upperNext := true
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c == '_' {
			out = append(out, ' ')
			upperNext = true
			continue
		}
		if upperNext && c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		upperNext = false
		out = append(out, c)
	}
	return string(out)
}
