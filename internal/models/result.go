package models

import "encoding/json"

// Outcome distinguishes the three terminal states of an analysis call
// (Success / InputError / Cancelled); detector warnings are non-fatal and
// travel in AnalysisResult.Warnings instead.
type Outcome string

const (
	Success    Outcome = "success"
	InputError Outcome = "input_error"
	Cancelled  Outcome = "cancelled"
)

// RSISnapshot is the current-value view of the RSI indicator.
type RSISnapshot struct {
	Current    *float64 `json:"current"`
	Overbought bool     `json:"overbought"`
	Oversold   bool     `json:"oversold"`
}

// MACDSnapshot is the current-value view of the MACD indicator.
type MACDSnapshot struct {
	CurrentMACD      *float64 `json:"current_macd"`
	CurrentSignal    *float64 `json:"current_signal"`
	BullishCrossover bool     `json:"bullish_crossover"`
}

// IndicatorSnapshot bundles the indicator views in the result contract.
type IndicatorSnapshot struct {
	RSI  RSISnapshot  `json:"rsi"`
	MACD MACDSnapshot `json:"macd"`
}

// Sentiment is the bullish/bearish/neutral split across surviving patterns.
type Sentiment struct {
	Bullish int `json:"bullish"`
	Bearish int `json:"bearish"`
	Neutral int `json:"neutral"`
}

// PatternSummary aggregates the final pattern list, per spec.md §6.
type PatternSummary struct {
	Total              int              `json:"total"`
	ByCategory         map[Category]int `json:"by_category"`
	Sentiment          Sentiment        `json:"sentiment"`
	AverageConfidence  float64          `json:"average_confidence"`
	HighestConfidence  float64          `json:"highest_confidence"`
	MostCommonCategory *Category        `json:"most_common_category,omitempty"`
}

// AnalysisResult is the structured output the engine hands back to its
// caller, per spec.md §6's external interface contract.
type AnalysisResult struct {
	AnalysisID          string            `json:"analysis_id"`
	Outcome             Outcome           `json:"outcome"`
	Symbol              string            `json:"symbol"`
	Timeframe           string            `json:"timeframe"`
	DataPoints          int               `json:"data_points"`
	Patterns            []DetectedPattern `json:"patterns"`
	Summary             PatternSummary    `json:"pattern_summary"`
	Indicators          IndicatorSnapshot `json:"indicators"`
	Recommendations     []string          `json:"recommendations"`
	Warnings            []string          `json:"warnings"`
	AnalysisTimeSeconds float64           `json:"analysis_time_seconds"`
	Err                 error             `json:"-"`
}

// Success reports whether the analysis completed without an InputError or
// Cancelled outcome, matching spec.md §6's `success: bool` field.
func (r AnalysisResult) Success() bool { return r.Outcome == Success }

// MarshalJSON renders the wire contract of spec.md §6: a `success` boolean
// derived from Outcome, alongside the outcome string for diagnostics.
func (r AnalysisResult) MarshalJSON() ([]byte, error) {
	type alias AnalysisResult
	errMsg := ""
	if r.Err != nil {
		errMsg = r.Err.Error()
	}
	return json.Marshal(struct {
		Success bool  `json:"success"`
		alias
		Error string `json:"error,omitempty"`
	}{
		Success: r.Success(),
		alias:   alias(r),
		Error:   errMsg,
	})
}
