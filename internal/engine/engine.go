package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ridopark/jonbu-patterns/internal/indicators"
	"github.com/ridopark/jonbu-patterns/internal/metrics"
	"github.com/ridopark/jonbu-patterns/internal/models"
	"github.com/ridopark/jonbu-patterns/internal/patterns"
	"github.com/ridopark/jonbu-patterns/internal/patterns/advanced"
	"github.com/ridopark/jonbu-patterns/internal/patterns/candlestick"
	"github.com/ridopark/jonbu-patterns/internal/patterns/common"
	"github.com/ridopark/jonbu-patterns/internal/patterns/divergence"
	"github.com/ridopark/jonbu-patterns/internal/patterns/geometric"
	"github.com/ridopark/jonbu-patterns/internal/patterns/reversal"
	"github.com/ridopark/jonbu-patterns/internal/worker"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Engine runs spec.md §4.12's full analysis pipeline over one series.
// Grounded on CandleEnrichmentEngine (internal/enrichment/engine.go):
// a small struct holding configuration and a logger, with one exported
// entry point that fans work out and assembles a single result value.
type Engine struct {
	config Configuration
	logger zerolog.Logger
	cache  *indicators.Cache
}

// New builds an Engine with the given configuration and logger and no
// indicator cache; every call recomputes RSI/MACD from scratch.
func New(config Configuration, logger zerolog.Logger) *Engine {
	return &Engine{config: config, logger: logger}
}

// NewWithCache builds an Engine that reuses cache's RSI/MACD snapshots
// across calls sharing the same symbol:timeframe key and bar count,
// letting a fleet of instances share one Redis-backed cache.
func NewWithCache(config Configuration, logger zerolog.Logger, cache *indicators.Cache) *Engine {
	return &Engine{config: config, logger: logger, cache: cache}
}

// Analyze runs the full detection pipeline over series and returns the
// assembled AnalysisResult. Never returns a Go error for detector-internal
// trouble: those become warnings or an InputError/Cancelled outcome inside
// the result, per spec.md §7's failure semantics.
func (e *Engine) Analyze(ctx context.Context, series models.Series) (result models.AnalysisResult) {
	start := time.Now()
	analysisID := uuid.NewString()

	result = models.AnalysisResult{
		AnalysisID: analysisID,
		Symbol:     series.Symbol,
		Timeframe:  series.Timeframe,
	}

	defer func() {
		result.AnalysisTimeSeconds = time.Since(start).Seconds()
		metrics.AnalysesTotal.WithLabelValues(string(result.Outcome)).Inc()
		metrics.AnalysisDuration.WithLabelValues(string(result.Outcome)).Observe(result.AnalysisTimeSeconds)
		for _, p := range result.Patterns {
			metrics.PatternsDetected.WithLabelValues(string(p.Kind)).Inc()
		}
	}()

	if err := e.config.Validate(); err != nil {
		e.logger.Warn().Err(err).Str("analysis_id", analysisID).Msg("rejected configuration")
		result.Outcome = models.InputError
		result.Err = err
		return result
	}

	if err := series.Validate(e.config.Analysis.MinDataPoints); err != nil {
		e.logger.Warn().Err(err).Str("analysis_id", analysisID).Str("symbol", series.Symbol).Msg("rejected input series")
		result.Outcome = models.InputError
		result.Err = err
		return result
	}

	series = series.Truncate(e.config.Analysis.MaxDataPoints)
	result.DataPoints = series.Len()

	if err := ctx.Err(); err != nil {
		result.Outcome = models.Cancelled
		result.Err = models.ErrCancelled
		return result
	}

	jobs := e.buildJobs(series)
	detected, warnings, err := worker.Dispatch(ctx, jobs)
	if err != nil {
		e.logger.Info().Str("analysis_id", analysisID).Msg("analysis cancelled mid-dispatch")
		result.Outcome = models.Cancelled
		result.Err = models.ErrCancelled
		return result
	}
	result.Warnings = warnings

	if err := ctx.Err(); err != nil {
		result.Outcome = models.Cancelled
		result.Err = models.ErrCancelled
		return result
	}

	accepted := e.filter(detected)
	accepted = e.capPerKind(accepted)
	accepted = e.capTotal(accepted)
	if e.config.Patterns.FilterOverlapping {
		accepted = e.removeOverlaps(accepted)
	}

	result.Patterns = accepted
	result.Summary = summarize(accepted)
	result.Indicators = e.indicatorSnapshot(ctx, series)
	result.Recommendations = e.recommendations(accepted, result.Summary, result.Indicators)
	result.Outcome = models.Success

	e.logger.Debug().
		Str("analysis_id", analysisID).
		Int("candidates", len(detected)).
		Int("accepted", len(accepted)).
		Dur("elapsed", time.Since(start)).
		Msg("analysis complete")

	return result
}

// buildJobs wires every detector family into a worker.FamilyJob, skipping
// families the configuration disables entirely (spec.md §3's per-family
// enable switches). The geometric family is itself six sub-detectors, each
// sharing geometric's one sensitivity dial.
func (e *Engine) buildJobs(series models.Series) []worker.FamilyJob {
	var jobs []worker.FamilyJob

	if e.config.Patterns.FamilyEnabled(FamilyGeometric) {
		sensitivity := e.config.Sensitivity.ForFamily(FamilyGeometric)
		jobs = append(jobs, worker.FamilyJob{
			Name: "geometric",
			Detect: func() ([]models.DetectedPattern, []string) {
				var r patternsResult
				r.add(geometric.DetectTriangles(series, sensitivity))
				r.add(geometric.DetectWedges(series, sensitivity))
				r.add(geometric.DetectRectangles(series, sensitivity))
				r.add(geometric.DetectChannels(series, sensitivity))
				r.add(geometric.DetectFlagsAndPennants(series, sensitivity))
				r.add(geometric.DetectCupAndHandle(series, sensitivity))
				return r.patterns, r.warnings
			},
		})
	}

	if e.config.Patterns.FamilyEnabled(FamilyReversal) {
		sensitivity := e.config.Sensitivity.ForFamily(FamilyReversal)
		jobs = append(jobs, worker.FamilyJob{
			Name: "reversal",
			Detect: func() ([]models.DetectedPattern, []string) {
				var r patternsResult
				r.add(reversal.DetectTopsAndBottoms(series, sensitivity))
				r.add(reversal.DetectHeadAndShoulders(series, sensitivity))
				return r.patterns, r.warnings
			},
		})
	}

	if e.config.Patterns.FamilyEnabled(FamilyAdvanced) {
		sensitivity := e.config.Sensitivity.ForFamily(FamilyAdvanced)
		jobs = append(jobs, worker.FamilyJob{
			Name: "advanced",
			Detect: func() ([]models.DetectedPattern, []string) {
				var r patternsResult
				r.add(advanced.DetectDiamonds(series, sensitivity))
				r.add(advanced.DetectExpandingTriangles(series, sensitivity))
				return r.patterns, r.warnings
			},
		})
	}

	if e.config.Patterns.FamilyEnabled(FamilyHarmonic) {
		sensitivity := e.config.Sensitivity.ForFamily(FamilyHarmonic)
		jobs = append(jobs, worker.FamilyJob{
			Name: "harmonic",
			Detect: func() ([]models.DetectedPattern, []string) {
				r := advanced.DetectHarmonics(series, sensitivity)
				return r.Patterns, r.Warnings
			},
		})
	}

	if e.config.Patterns.FamilyEnabled(FamilyCandlestick) {
		sensitivity := e.config.Sensitivity.ForFamily(FamilyCandlestick)
		jobs = append(jobs, worker.FamilyJob{
			Name: "candlestick",
			Detect: func() ([]models.DetectedPattern, []string) {
				var r patternsResult
				r.add(candlestick.DetectSingleBar(series, sensitivity))
				r.add(candlestick.DetectTwoBar(series, sensitivity))
				r.add(candlestick.DetectThreeBar(series, sensitivity))
				return r.patterns, r.warnings
			},
		})
	}

	if e.config.Patterns.FamilyEnabled(FamilyDivergence) {
		sensitivity := e.config.Sensitivity.ForFamily(FamilyDivergence)
		jobs = append(jobs, worker.FamilyJob{
			Name: "divergence",
			Detect: func() ([]models.DetectedPattern, []string) {
				rsi := indicators.ComputeRSI(series)
				values, present := unwrap(rsi)
				r := divergence.Detect(series, values, present, sensitivity, "RSI")
				return r.Patterns, r.Warnings
			},
		})
	}

	return jobs
}

// patternsResult accumulates several common.Result-shaped calls into one
// family job's return values, for families made of multiple sub-detectors
// that each return their own common.Result.
type patternsResult struct {
	patterns []models.DetectedPattern
	warnings []string
}

func (r *patternsResult) add(other common.Result) {
	r.patterns = append(r.patterns, other.Patterns...)
	r.warnings = append(r.warnings, other.Warnings...)
}

// unwrap turns a []*float64 indicator series into a dense value slice plus
// a presence mask, the contract divergence.Detect expects.
func unwrap(values []*float64) ([]float64, []bool) {
	out := make([]float64, len(values))
	present := make([]bool, len(values))
	for i, v := range values {
		if v != nil {
			out[i] = *v
			present[i] = true
		}
	}
	return out, present
}

// filter implements spec.md §4.12's per-candidate acceptance gate: disabled
// kind, below the category's minimum confidence, outside the configured
// duration bounds, or missing volume confirmation when required. The
// volume check reads the profile the detector itself already built with
// its own convention (spec.md §4.3: triangles/flags confirm on decreasing,
// reversals/harmonics on increasing) rather than recomputing it here with
// one fixed convention. Families that never build a profile (their
// VolumeProfile.Trend is the zero value) don't participate in the gate.
func (e *Engine) filter(candidates []models.DetectedPattern) []models.DetectedPattern {
	out := make([]models.DetectedPattern, 0, len(candidates))
	for _, p := range candidates {
		if !e.config.Patterns.KindEnabled(p.Kind) {
			continue
		}
		if p.Confidence < e.config.MinConfidenceFor(p.Category) {
			continue
		}
		duration := p.DurationBars()
		if duration < e.config.Sensitivity.MinPatternDuration || duration > e.config.Sensitivity.MaxPatternDuration {
			continue
		}
		hasVolumeOpinion := p.VolumeProfile.Trend != ""
		if e.config.Sensitivity.RequireVolumeConfirmation && hasVolumeOpinion && !p.VolumeProfile.ConfirmsPattern {
			continue
		}
		out = append(out, p)
	}
	return out
}

// capPerKind keeps at most MaxPatternsPerType candidates per PatternKind,
// assuming the input is already confidence-descending.
func (e *Engine) capPerKind(candidates []models.DetectedPattern) []models.DetectedPattern {
	limit := e.config.Patterns.MaxPatternsPerType
	counts := make(map[models.PatternKind]int)
	out := make([]models.DetectedPattern, 0, len(candidates))
	for _, p := range candidates {
		if counts[p.Kind] >= limit {
			continue
		}
		counts[p.Kind]++
		out = append(out, p)
	}
	return out
}

// capTotal re-sorts by confidence descending (kind/start_index as
// tie-breaks, matching worker.Dispatch's merge order) and truncates to
// MaxTotalPatterns.
func (e *Engine) capTotal(candidates []models.DetectedPattern) []models.DetectedPattern {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.StartIndex < b.StartIndex
	})
	limit := e.config.Patterns.MaxTotalPatterns
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

// removeOverlaps implements spec.md §4.12's overlap-resolution rule:
// walking candidates confidence-descending, accept a candidate only if its
// overlap fraction against every already-accepted pattern stays below
// OverlapThreshold.
func (e *Engine) removeOverlaps(candidates []models.DetectedPattern) []models.DetectedPattern {
	threshold := e.config.Patterns.OverlapThreshold
	var accepted []models.DetectedPattern
	for _, candidate := range candidates {
		duration := candidate.DurationBars()
		conflicts := false
		for _, a := range accepted {
			if duration == 0 {
				continue
			}
			ratio := float64(candidate.Overlap(a)) / float64(duration)
			if ratio >= threshold {
				conflicts = true
				break
			}
		}
		if !conflicts {
			accepted = append(accepted, candidate)
		}
	}
	return accepted
}

// indicatorSnapshot computes the RSI/MACD current-value view attached to
// every successful result, per spec.md §6. When the Engine carries an
// indicators.Cache, a hit for the same symbol:timeframe and bar count skips
// recomputation entirely.
func (e *Engine) indicatorSnapshot(ctx context.Context, series models.Series) models.IndicatorSnapshot {
	if e.cache != nil {
		key := series.Symbol + ":" + series.Timeframe
		if cached, ok := e.cache.Get(ctx, key, len(series.Bars)); ok {
			return snapshotFromCache(cached)
		}

		snapshot := e.computeIndicatorSnapshot(series)
		e.cache.Set(ctx, key, cacheFromSnapshot(snapshot, len(series.Bars)))
		return snapshot
	}

	return e.computeIndicatorSnapshot(series)
}

func (e *Engine) computeIndicatorSnapshot(series models.Series) models.IndicatorSnapshot {
	rsi := indicators.ComputeRSI(series)
	macdLine, signalLine, _ := indicators.ComputeMACD(series)
	return models.IndicatorSnapshot{
		RSI:  indicators.RSISnapshot(rsi),
		MACD: indicators.MACDSnapshot(macdLine, signalLine),
	}
}

func cacheFromSnapshot(snapshot models.IndicatorSnapshot, dataPoints int) indicators.Snapshot {
	return indicators.Snapshot{
		RSI: indicators.RSISnapshotJSON{
			Current:    snapshot.RSI.Current,
			Overbought: snapshot.RSI.Overbought,
			Oversold:   snapshot.RSI.Oversold,
		},
		MACD: indicators.MACDSnapshotJSON{
			CurrentMACD:      snapshot.MACD.CurrentMACD,
			CurrentSignal:    snapshot.MACD.CurrentSignal,
			BullishCrossover: snapshot.MACD.BullishCrossover,
		},
		DataPoints: dataPoints,
	}
}

func snapshotFromCache(cached indicators.Snapshot) models.IndicatorSnapshot {
	return models.IndicatorSnapshot{
		RSI: models.RSISnapshot{
			Current:    cached.RSI.Current,
			Overbought: cached.RSI.Overbought,
			Oversold:   cached.RSI.Oversold,
		},
		MACD: models.MACDSnapshot{
			CurrentMACD:      cached.MACD.CurrentMACD,
			CurrentSignal:    cached.MACD.CurrentSignal,
			BullishCrossover: cached.MACD.BullishCrossover,
		},
	}
}

// summarize builds spec.md §6's PatternSummary from the final pattern list.
func summarize(accepted []models.DetectedPattern) models.PatternSummary {
	summary := models.PatternSummary{
		Total:      len(accepted),
		ByCategory: make(map[models.Category]int),
	}
	if len(accepted) == 0 {
		return summary
	}

	var confidenceSum float64
	for _, p := range accepted {
		summary.ByCategory[p.Category]++
		confidenceSum += p.Confidence
		if p.Confidence > summary.HighestConfidence {
			summary.HighestConfidence = p.Confidence
		}
		switch {
		case p.IsBullish():
			summary.Sentiment.Bullish++
		case p.IsBearish():
			summary.Sentiment.Bearish++
		default:
			summary.Sentiment.Neutral++
		}
	}
	summary.AverageConfidence = confidenceSum / float64(len(accepted))

	var best models.Category
	bestCount := -1
	for _, cat := range categoryOrder {
		if count := summary.ByCategory[cat]; count > bestCount {
			best = cat
			bestCount = count
		}
	}
	if bestCount > 0 {
		summary.MostCommonCategory = &best
	}

	return summary
}

// categoryOrder fixes a deterministic tie-break for "most common category"
// when two categories share the top count: earlier in this list wins.
var categoryOrder = []models.Category{
	models.BullishContinuation,
	models.BearishContinuation,
	models.BullishReversal,
	models.BearishReversal,
	models.BilateralNeutral,
	models.HarmonicCategory,
	models.CandlestickCategory,
	models.DivergenceCategory,
}

// recommendations builds spec.md §6's narrative recommendation list:
// overall bias, the strongest pattern, an RSI extreme note, a volume
// confirmation note, and a standing risk disclosure. Grounded on
// cryptvault/core/analyzer.py's _generate_recommendations.
func (e *Engine) recommendations(accepted []models.DetectedPattern, summary models.PatternSummary, snapshot models.IndicatorSnapshot) []string {
	var out []string

	switch {
	case summary.Total == 0:
		out = append(out, "No qualifying patterns found; insufficient evidence for a directional bias.")
	case summary.Sentiment.Bullish > summary.Sentiment.Bearish:
		out = append(out, fmt.Sprintf("Bullish bias: %d bullish pattern(s) versus %d bearish.", summary.Sentiment.Bullish, summary.Sentiment.Bearish))
	case summary.Sentiment.Bearish > summary.Sentiment.Bullish:
		out = append(out, fmt.Sprintf("Bearish bias: %d bearish pattern(s) versus %d bullish.", summary.Sentiment.Bearish, summary.Sentiment.Bullish))
	default:
		out = append(out, "Mixed signals: bullish and bearish pattern counts are balanced.")
	}

	if len(accepted) > 0 {
		strongest := accepted[0]
		for _, p := range accepted {
			if p.Confidence > strongest.Confidence {
				strongest = p
			}
		}
		out = append(out, fmt.Sprintf("Strongest signal: %s.", patterns.Summarize(strongest)))
	}

	if snapshot.RSI.Current != nil {
		switch {
		case snapshot.RSI.Overbought:
			out = append(out, fmt.Sprintf("RSI at %.1f is in overbought territory; watch for a pullback.", *snapshot.RSI.Current))
		case snapshot.RSI.Oversold:
			out = append(out, fmt.Sprintf("RSI at %.1f is in oversold territory; watch for a bounce.", *snapshot.RSI.Current))
		}
	}

	if summary.Total > 0 {
		confirmed := 0
		for _, p := range accepted {
			if p.VolumeProfile.ConfirmsPattern {
				confirmed++
			}
		}
		out = append(out, fmt.Sprintf("%d of %d patterns carry volume confirmation.", confirmed, summary.Total))
	}

	out = append(out, "Patterns are probabilistic signals, not guarantees; confirm with independent risk management before acting.")

	return out
}
