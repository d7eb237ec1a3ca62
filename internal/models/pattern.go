package models

import "time"

// PatternKind is the closed enumeration of every pattern family this engine
// detects. Grounded on cryptvault/patterns/types.py's PatternType.
type PatternKind string

const (
	// Bullish continuation
	AscendingTriangle      PatternKind = "ascending_triangle"
	BullFlag               PatternKind = "bull_flag"
	BullPennant             PatternKind = "bull_pennant"
	CupAndHandle            PatternKind = "cup_and_handle"
	RisingChannel           PatternKind = "rising_channel"
	RisingWedgeContinuation PatternKind = "rising_wedge_continuation"
	RectangleBullish        PatternKind = "rectangle_bullish"

	// Bearish continuation
	DescendingTriangle       PatternKind = "descending_triangle"
	BearFlag                 PatternKind = "bear_flag"
	BearPennant               PatternKind = "bear_pennant"
	InvertedCupHandle         PatternKind = "inverted_cup_handle"
	FallingChannel            PatternKind = "falling_channel"
	FallingWedgeContinuation  PatternKind = "falling_wedge_continuation"
	RectangleBearish          PatternKind = "rectangle_bearish"

	// Bullish reversal
	DoubleBottom          PatternKind = "double_bottom"
	TripleBottom          PatternKind = "triple_bottom"
	InverseHeadShoulders  PatternKind = "inverse_head_shoulders"
	FallingWedgeReversal  PatternKind = "falling_wedge_reversal"
	Hammer                PatternKind = "hammer"
	MorningStar           PatternKind = "morning_star"
	BullishEngulfing      PatternKind = "bullish_engulfing"

	// Bearish reversal
	DoubleTop            PatternKind = "double_top"
	TripleTop            PatternKind = "triple_top"
	HeadShoulders        PatternKind = "head_shoulders"
	RisingWedgeReversal  PatternKind = "rising_wedge_reversal"
	ShootingStar         PatternKind = "shooting_star"
	EveningStar          PatternKind = "evening_star"
	BearishEngulfing     PatternKind = "bearish_engulfing"

	// Bilateral / neutral
	SymmetricalTriangle PatternKind = "symmetrical_triangle"
	Diamond             PatternKind = "diamond"
	RectangleNeutral    PatternKind = "rectangle_neutral"
	ExpandingTriangle   PatternKind = "expanding_triangle"
	PennantNeutral      PatternKind = "pennant_neutral"

	// Harmonic
	Gartley  PatternKind = "gartley"
	Butterfly PatternKind = "butterfly"
	Bat      PatternKind = "bat"
	Crab     PatternKind = "crab"
	ABCD     PatternKind = "abcd"
	Cypher   PatternKind = "cypher"

	// Candlestick - single bar
	Doji           PatternKind = "doji"
	SpinningTop    PatternKind = "spinning_top"
	Marubozu       PatternKind = "marubozu"
	GravestoneDoji PatternKind = "gravestone_doji"

	// Candlestick - multi bar
	BullishHarami        PatternKind = "bullish_harami"
	BearishHarami        PatternKind = "bearish_harami"
	PiercingLine         PatternKind = "piercing_line"
	DarkCloudCover       PatternKind = "dark_cloud_cover"
	ThreeWhiteSoldiers   PatternKind = "three_white_soldiers"
	ThreeBlackCrows      PatternKind = "three_black_crows"
	TweezerTops          PatternKind = "tweezer_tops"
	TweezerBottoms       PatternKind = "tweezer_bottoms"
	RisingThreeMethods   PatternKind = "rising_three_methods"
	FallingThreeMethods  PatternKind = "falling_three_methods"

	// Divergence
	BullishDivergence       PatternKind = "bullish_divergence"
	BearishDivergence       PatternKind = "bearish_divergence"
	HiddenBullishDivergence PatternKind = "hidden_bullish_divergence"
	HiddenBearishDivergence PatternKind = "hidden_bearish_divergence"
)

// Category partitions every PatternKind. Grounded on
// cryptvault/patterns/types.py's PatternCategory.
type Category string

const (
	BullishContinuation Category = "bullish_continuation"
	BearishContinuation Category = "bearish_continuation"
	BullishReversal     Category = "bullish_reversal"
	BearishReversal     Category = "bearish_reversal"
	BilateralNeutral    Category = "bilateral_neutral"
	HarmonicCategory    Category = "harmonic"
	CandlestickCategory Category = "candlestick"
	DivergenceCategory  Category = "divergence"
)

// categoryOf is the static, total kind->category mapping required by
// spec.md §3. Grounded on cryptvault/patterns/
// types.py's PATTERN_CATEGORIES dict (note the source lists HAMMER,
// SHOOTING_STAR, MORNING_STAR, EVENING_STAR, BULLISH_ENGULFING and
// BEARISH_ENGULFING under both a reversal category AND
// CANDLESTICK_PATTERN; this engine treats candlestick shapes as a single
// category (spec.md's Categories list has no such double-membership) and
// keeps them under CandlestickCategory, matching spec.md §3's partition.
var categoryOf = map[PatternKind]Category{
	AscendingTriangle:       BullishContinuation,
	BullFlag:                BullishContinuation,
	BullPennant:             BullishContinuation,
	CupAndHandle:            BullishContinuation,
	RisingChannel:           BullishContinuation,
	RisingWedgeContinuation: BullishContinuation,
	RectangleBullish:        BullishContinuation,

	DescendingTriangle:       BearishContinuation,
	BearFlag:                 BearishContinuation,
	BearPennant:              BearishContinuation,
	InvertedCupHandle:        BearishContinuation,
	FallingChannel:           BearishContinuation,
	FallingWedgeContinuation: BearishContinuation,
	RectangleBearish:         BearishContinuation,

	DoubleBottom:         BullishReversal,
	TripleBottom:         BullishReversal,
	InverseHeadShoulders: BullishReversal,
	FallingWedgeReversal: BullishReversal,

	DoubleTop:           BearishReversal,
	TripleTop:           BearishReversal,
	HeadShoulders:        BearishReversal,
	RisingWedgeReversal: BearishReversal,

	SymmetricalTriangle: BilateralNeutral,
	Diamond:             BilateralNeutral,
	RectangleNeutral:    BilateralNeutral,
	ExpandingTriangle:   BilateralNeutral,
	PennantNeutral:      BilateralNeutral,

	Gartley:   HarmonicCategory,
	Butterfly: HarmonicCategory,
	Bat:       HarmonicCategory,
	Crab:      HarmonicCategory,
	ABCD:      HarmonicCategory,
	Cypher:    HarmonicCategory,

	Doji:                CandlestickCategory,
	SpinningTop:         CandlestickCategory,
	Marubozu:            CandlestickCategory,
	GravestoneDoji:      CandlestickCategory,
	Hammer:              CandlestickCategory,
	ShootingStar:        CandlestickCategory,
	MorningStar:         CandlestickCategory,
	EveningStar:         CandlestickCategory,
	BullishEngulfing:    CandlestickCategory,
	BearishEngulfing:    CandlestickCategory,
	BullishHarami:       CandlestickCategory,
	BearishHarami:       CandlestickCategory,
	PiercingLine:        CandlestickCategory,
	DarkCloudCover:      CandlestickCategory,
	ThreeWhiteSoldiers:  CandlestickCategory,
	ThreeBlackCrows:     CandlestickCategory,
	TweezerTops:         CandlestickCategory,
	TweezerBottoms:      CandlestickCategory,
	RisingThreeMethods:  CandlestickCategory,
	FallingThreeMethods: CandlestickCategory,

	BullishDivergence:       DivergenceCategory,
	BearishDivergence:       DivergenceCategory,
	HiddenBullishDivergence: DivergenceCategory,
	HiddenBearishDivergence: DivergenceCategory,
}

// CategoryOf returns the category for kind. Total over every PatternKind
// constant declared above.
func CategoryOf(kind PatternKind) Category {
	return categoryOf[kind]
}

// TurningPoint is a local extremum produced by the peak/trough extractor.
type TurningPoint struct {
	Index int         `json:"index"`
	Value float64     `json:"value"`
	Kind  TurningKind `json:"kind"`
}

// TurningKind distinguishes a peak from a trough.
type TurningKind int

const (
	Peak TurningKind = iota
	Trough
)

// Trendline is a fitted line over a value sequence.
type Trendline struct {
	StartIndex int
	EndIndex   int
	Slope      float64
	Intercept  float64
	RSquared   float64
}

// ValueAt evaluates the fitted line at index i.
func (t Trendline) ValueAt(i int) float64 {
	return t.Intercept + t.Slope*float64(i)
}

// VolumeTrend classifies the volume trend over a pattern's index range.
type VolumeTrend string

const (
	VolumeIncreasing VolumeTrend = "increasing"
	VolumeDecreasing VolumeTrend = "decreasing"
	VolumeStable     VolumeTrend = "stable"
	VolumeUnknown    VolumeTrend = "unknown"
)

// VolumeProfile summarizes volume behavior over a detected pattern's range.
type VolumeProfile struct {
	AverageVolume   float64     `json:"average_volume"`
	Trend           VolumeTrend `json:"trend"`
	ConfirmsPattern bool        `json:"confirms_pattern"`
	BreakoutVolume  *float64    `json:"breakout_volume,omitempty"`
}

// DetectedPattern is an immutable record of one matched pattern instance.
type DetectedPattern struct {
	Kind            PatternKind        `json:"kind"`
	Category        Category           `json:"category"`
	Confidence      float64            `json:"confidence"`
	StartTime       time.Time          `json:"start_time"`
	EndTime         time.Time          `json:"end_time"`
	StartIndex      int                `json:"start_index"`
	EndIndex        int                `json:"end_index"`
	KeyLevels       map[string]float64 `json:"key_levels,omitempty"`
	VolumeProfile   VolumeProfile      `json:"volume_profile"`
	Description     string             `json:"description"`
	FibonacciLevels map[string]float64 `json:"fibonacci_levels,omitempty"`
}

// DurationBars is end_index - start_index + 1, per spec.md §3.
func (p DetectedPattern) DurationBars() int {
	return p.EndIndex - p.StartIndex + 1
}

// IsBullish reports whether the pattern's category carries bullish bias.
func (p DetectedPattern) IsBullish() bool {
	return p.Category == BullishContinuation || p.Category == BullishReversal
}

// IsBearish reports whether the pattern's category carries bearish bias.
func (p DetectedPattern) IsBearish() bool {
	return p.Category == BearishContinuation || p.Category == BearishReversal
}

// IsReversal reports whether the pattern's category is a reversal family.
func (p DetectedPattern) IsReversal() bool {
	return p.Category == BullishReversal || p.Category == BearishReversal
}

// Overlap returns the number of overlapping bar indices between p and o.
func (p DetectedPattern) Overlap(o DetectedPattern) int {
	start := p.StartIndex
	if o.StartIndex > start {
		start = o.StartIndex
	}
	end := p.EndIndex
	if o.EndIndex < end {
		end = o.EndIndex
	}
	if end < start {
		return 0
	}
	return end - start + 1
}
