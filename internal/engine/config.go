// Package engine implements the L5 orchestrator: it wires the detector
// families together, applies the acceptance/filtering pipeline, and
// assembles the final AnalysisResult (spec.md §4.12).
package engine

import (
	"fmt"

	"github.com/ridopark/jonbu-patterns/internal/models"
)

// Family names the pattern families the orchestrator dispatches and gates
// independently.
type Family string

const (
	FamilyGeometric   Family = "geometric"
	FamilyReversal    Family = "reversal"
	FamilyAdvanced    Family = "advanced"
	FamilyCandlestick Family = "candlestick"
	FamilyHarmonic    Family = "harmonic"
	FamilyDivergence  Family = "divergence"
)

// SensitivityConfig groups spec.md §3's "sensitivity" option group.
// Grounded on internal/config/config.go mapstructure-tagged
// struct shape, applied to the Configuration surface of spec.md §6.
type SensitivityConfig struct {
	GeometricPatterns   float64 `mapstructure:"geometric_patterns"`
	ReversalPatterns    float64 `mapstructure:"reversal_patterns"`
	AdvancedPatterns    float64 `mapstructure:"advanced_patterns"`
	CandlestickPatterns float64 `mapstructure:"candlestick_patterns"`
	HarmonicPatterns    float64 `mapstructure:"harmonic_patterns"`
	DivergencePatterns  float64 `mapstructure:"divergence_patterns"`

	MinConfidence map[models.Category]float64 `mapstructure:"min_confidence"`

	MinPatternDuration int  `mapstructure:"min_pattern_duration"`
	MaxPatternDuration int  `mapstructure:"max_pattern_duration"`
	RequireVolumeConfirmation bool `mapstructure:"require_volume_confirmation"`
}

// ForFamily returns the configured sensitivity dial for a family.
func (s SensitivityConfig) ForFamily(family Family) float64 {
	switch family {
	case FamilyGeometric:
		return s.GeometricPatterns
	case FamilyReversal:
		return s.ReversalPatterns
	case FamilyAdvanced:
		return s.AdvancedPatterns
	case FamilyCandlestick:
		return s.CandlestickPatterns
	case FamilyHarmonic:
		return s.HarmonicPatterns
	case FamilyDivergence:
		return s.DivergencePatterns
	default:
		return 0.5
	}
}

// PatternsConfig groups spec.md §3's "patterns" option group.
type PatternsConfig struct {
	EnabledGeometric   bool `mapstructure:"enabled_geometric"`
	EnabledReversal    bool `mapstructure:"enabled_reversal"`
	EnabledAdvanced    bool `mapstructure:"enabled_advanced"`
	EnabledCandlestick bool `mapstructure:"enabled_candlestick"`
	EnabledHarmonic    bool `mapstructure:"enabled_harmonic"`
	EnabledDivergence  bool `mapstructure:"enabled_divergence"`

	Enabled map[models.PatternKind]bool `mapstructure:"enabled"`

	MaxPatternsPerType int     `mapstructure:"max_patterns_per_type"`
	MaxTotalPatterns   int     `mapstructure:"max_total_patterns"`
	FilterOverlapping  bool    `mapstructure:"filter_overlapping"`
	OverlapThreshold   float64 `mapstructure:"overlap_threshold"`
}

// FamilyEnabled reports whether the given family is enabled.
func (p PatternsConfig) FamilyEnabled(family Family) bool {
	switch family {
	case FamilyGeometric:
		return p.EnabledGeometric
	case FamilyReversal:
		return p.EnabledReversal
	case FamilyAdvanced:
		return p.EnabledAdvanced
	case FamilyCandlestick:
		return p.EnabledCandlestick
	case FamilyHarmonic:
		return p.EnabledHarmonic
	case FamilyDivergence:
		return p.EnabledDivergence
	default:
		return false
	}
}

// KindEnabled reports whether kind is enabled; absent entries default to
// enabled (the per-kind map is an override, not an allow-list).
func (p PatternsConfig) KindEnabled(kind models.PatternKind) bool {
	if p.Enabled == nil {
		return true
	}
	if enabled, ok := p.Enabled[kind]; ok {
		return enabled
	}
	return true
}

// AnalysisConfig groups spec.md §3's "analysis" option group.
type AnalysisConfig struct {
	MinDataPoints int `mapstructure:"min_data_points"`
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Configuration is the complete control surface of spec.md §3/§6.
type Configuration struct {
	Sensitivity SensitivityConfig `mapstructure:"sensitivity"`
	Patterns    PatternsConfig    `mapstructure:"patterns"`
	Analysis    AnalysisConfig    `mapstructure:"analysis"`
}

// Validate enforces spec.md §7's fatal InputError conditions that concern
// configuration: sensitivities out of [0,1] and malformed bounds.
func (c Configuration) Validate() error {
	sens := []float64{
		c.Sensitivity.GeometricPatterns,
		c.Sensitivity.ReversalPatterns,
		c.Sensitivity.AdvancedPatterns,
		c.Sensitivity.CandlestickPatterns,
		c.Sensitivity.HarmonicPatterns,
		c.Sensitivity.DivergencePatterns,
	}
	for _, s := range sens {
		if s < 0 || s > 1 {
			return models.ErrSensitivityOutOfRange
		}
	}
	for cat, v := range c.Sensitivity.MinConfidence {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: min_confidence.%s", models.ErrSensitivityOutOfRange, cat)
		}
	}
	if c.Sensitivity.MinPatternDuration <= 0 || c.Sensitivity.MaxPatternDuration < c.Sensitivity.MinPatternDuration {
		return fmt.Errorf("%w: min/max_pattern_duration", models.ErrUnknownConfigOption)
	}
	if c.Patterns.MaxPatternsPerType <= 0 || c.Patterns.MaxTotalPatterns <= 0 {
		return fmt.Errorf("%w: max_patterns_per_type/max_total_patterns", models.ErrUnknownConfigOption)
	}
	if c.Patterns.OverlapThreshold < 0 || c.Patterns.OverlapThreshold > 1 {
		return fmt.Errorf("%w: overlap_threshold", models.ErrUnknownConfigOption)
	}
	if c.Analysis.MinDataPoints <= 0 {
		return fmt.Errorf("%w: min_data_points", models.ErrUnknownConfigOption)
	}
	return nil
}

// MinConfidenceFor returns the configured minimum confidence for a
// category, defaulting to 0.3 if unset.
func (c Configuration) MinConfidenceFor(category models.Category) float64 {
	if c.Sensitivity.MinConfidence == nil {
		return 0.3
	}
	if v, ok := c.Sensitivity.MinConfidence[category]; ok {
		return v
	}
	return 0.3
}

// SensitivityLevel is a named preset, per spec.md §3/§6.
type SensitivityLevel string

const (
	VeryLow  SensitivityLevel = "very_low"
	Low      SensitivityLevel = "low"
	Medium   SensitivityLevel = "medium"
	High     SensitivityLevel = "high"
	VeryHigh SensitivityLevel = "very_high"
)

// levelValue maps a named preset to the scalar sensitivity shared by every
// family at that level, grounded on cryptvault/analyzer.py's sensitivity
// preset table (SPEC_FULL.md §4).
var levelValue = map[SensitivityLevel]float64{
	VeryLow:  0.2,
	Low:      0.35,
	Medium:   0.5,
	High:     0.65,
	VeryHigh: 0.8,
}

// DefaultConfiguration returns the Medium preset expanded to concrete
// values, the engine's out-of-the-box configuration.
func DefaultConfiguration() Configuration {
	return SensitivityPreset(Medium)
}

// SensitivityPreset expands a named level into a full Configuration,
// per spec.md §3 ("A sensitivity preset expands to concrete values").
func SensitivityPreset(level SensitivityLevel) Configuration {
	v, ok := levelValue[level]
	if !ok {
		v = levelValue[Medium]
	}

	// Minimum category confidences loosen as the preset's sensitivity
	// rises: a higher sensitivity should accept more, weaker candidates,
	// keeping the pattern count monotonic in sensitivity.
	minConfidence := map[models.Category]float64{
		models.BullishContinuation: 0.45 - (v-0.5)*0.2,
		models.BearishContinuation: 0.45 - (v-0.5)*0.2,
		models.BullishReversal:     0.40 - (v-0.5)*0.2,
		models.BearishReversal:     0.40 - (v-0.5)*0.2,
		models.BilateralNeutral:    0.45 - (v-0.5)*0.2,
		models.HarmonicCategory:    0.55 - (v-0.5)*0.2,
		models.CandlestickCategory: 0.40 - (v-0.5)*0.2,
		models.DivergenceCategory:  0.40 - (v-0.5)*0.2,
	}

	return Configuration{
		Sensitivity: SensitivityConfig{
			GeometricPatterns:         v,
			ReversalPatterns:          v,
			AdvancedPatterns:          v,
			CandlestickPatterns:       v,
			HarmonicPatterns:          v,
			DivergencePatterns:        v,
			MinConfidence:             minConfidence,
			MinPatternDuration:        3,
			MaxPatternDuration:        200,
			RequireVolumeConfirmation: false,
		},
		Patterns: PatternsConfig{
			EnabledGeometric:   true,
			EnabledReversal:    true,
			EnabledAdvanced:    true,
			EnabledCandlestick: true,
			EnabledHarmonic:    true,
			EnabledDivergence:  true,
			MaxPatternsPerType: 3,
			MaxTotalPatterns:   20,
			FilterOverlapping:  true,
			OverlapThreshold:   0.5,
		},
		Analysis: AnalysisConfig{
			MinDataPoints: 30,
			MaxDataPoints: 2000,
		},
	}
}
