// Package handlers implements the HTTP surface over the pattern detection
// engine, grounded on the pkg/api/handlers package's shape (one handler type
// per resource, constructed with its collaborators, methods as
// http.HandlerFunc-shaped methods).
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ridopark/jonbu-patterns/internal/engine"
	"github.com/ridopark/jonbu-patterns/internal/indicators"
	"github.com/ridopark/jonbu-patterns/internal/logger"
	"github.com/ridopark/jonbu-patterns/internal/models"
	"github.com/ridopark/jonbu-patterns/internal/stream"
)

// ResultStore is the subset of internal/store.ResultRepository the handler
// needs, so it can run without a database in tests.
type ResultStore interface {
	Insert(ctx context.Context, result models.AnalysisResult) error
}

// Watcher registers a series for periodic re-analysis, satisfied by
// internal/scheduler.Scheduler.
type Watcher interface {
	Watch(series models.Series)
}

// AnalyzeHandler runs the detection pipeline over a posted bar series.
type AnalyzeHandler struct {
	defaultConfig  engine.Configuration
	hub            *stream.Hub
	store          ResultStore
	watcher        Watcher
	indicatorCache *indicators.Cache
	logger         zerolog.Logger
}

// NewAnalyzeHandler builds an AnalyzeHandler. store, hub, watcher, and
// indicatorCache may all be nil: persistence, broadcast, scheduling, and
// indicator caching are best-effort side effects of a successful analysis.
func NewAnalyzeHandler(defaultConfig engine.Configuration, hub *stream.Hub, store ResultStore, watcher Watcher, indicatorCache *indicators.Cache, logger zerolog.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{
		defaultConfig:  defaultConfig,
		hub:            hub,
		store:          store,
		watcher:        watcher,
		indicatorCache: indicatorCache,
		logger:         logger.With().Str("component", "analyze_handler").Logger(),
	}
}

// analyzeRequest is the POST /v1/analyze request body.
type analyzeRequest struct {
	Symbol      string       `json:"symbol"`
	Timeframe   string       `json:"timeframe"`
	Bars        []models.Bar `json:"bars"`
	Sensitivity string       `json:"sensitivity,omitempty"`
}

// Analyze handles POST /v1/analyze: builds a Series from the request body,
// runs the engine, persists and broadcasts the result, and responds with
// the AnalysisResult as JSON.
func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	correlationID := r.Header.Get("X-Correlation-ID")
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	reqLogger := logger.NewRequestLogger(correlationID, r.Method, r.URL.Path)
	w.Header().Set("X-Correlation-ID", correlationID)

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		reqLogger.Warn().Err(err).Msg("malformed analyze request body")
		writeJSONError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Symbol == "" || req.Timeframe == "" {
		reqLogger.Warn().Msg("analyze request missing symbol or timeframe")
		writeJSONError(w, http.StatusBadRequest, "symbol and timeframe are required")
		return
	}

	cfg := h.defaultConfig
	if req.Sensitivity != "" {
		preset := engine.SensitivityPreset(engine.SensitivityLevel(req.Sensitivity))
		preset.Analysis = cfg.Analysis
		preset.Patterns = cfg.Patterns
		cfg = preset
	}

	series := models.Series{Symbol: req.Symbol, Timeframe: req.Timeframe, Bars: req.Bars}

	var eng *engine.Engine
	if h.indicatorCache != nil {
		eng = engine.NewWithCache(cfg, h.logger, h.indicatorCache)
	} else {
		eng = engine.New(cfg, h.logger)
	}
	result := eng.Analyze(r.Context(), series)
	reqLogger.Info().
		Str("analysis_id", result.AnalysisID).
		Str("outcome", string(result.Outcome)).
		Int("pattern_count", len(result.Patterns)).
		Msg("analyze request completed")

	if h.store != nil && result.Outcome == models.Success {
		go func(res models.AnalysisResult) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := h.store.Insert(ctx, res); err != nil {
				reqLogger.Error().Err(err).Str("analysis_id", res.AnalysisID).Msg("failed to persist analysis result")
			}
		}(result)
	}

	if h.hub != nil && result.Outcome == models.Success {
		h.hub.BroadcastResult(&result)
	}

	if h.watcher != nil && result.Outcome == models.Success {
		h.watcher.Watch(series)
	}

	status := http.StatusOK
	if result.Outcome == models.InputError {
		status = http.StatusUnprocessableEntity
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		reqLogger.Error().Err(err).Msg("failed to encode analysis result")
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
