// Package scheduler periodically re-runs the detection pipeline over the
// most recently seen series for each watched symbol, grounded on
// robfig/cron/v3's standard entry-based scheduler. New patterns that only
// become visible as bars accumulate (a breakout confirming a triangle, a
// neckline finally breaking) surface without requiring a fresh request.
package scheduler

import (
	"context"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/ridopark/jonbu-patterns/internal/engine"
	"github.com/ridopark/jonbu-patterns/internal/models"
)

// ResultSink receives the outcome of a scheduled re-analysis, mirroring
// what an HTTP handler does with a fresh one: persist and broadcast.
type ResultSink interface {
	Handle(result models.AnalysisResult)
}

// Scheduler re-analyzes each watched symbol's last-known series on a cron
// schedule.
type Scheduler struct {
	cron   *cron.Cron
	engine *engine.Engine
	sink   ResultSink
	logger zerolog.Logger

	mu     sync.RWMutex
	watch  map[string]models.Series
}

// New builds a Scheduler; call Start to begin running the cron loop.
func New(eng *engine.Engine, sink ResultSink, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		engine: eng,
		sink:   sink,
		logger: logger.With().Str("component", "scheduler").Logger(),
		watch:  make(map[string]models.Series),
	}
}

// Watch registers or updates the latest known series for a symbol, so the
// next scheduled tick re-analyzes it.
func (s *Scheduler) Watch(series models.Series) {
	key := watchKey(series.Symbol, series.Timeframe)
	s.mu.Lock()
	s.watch[key] = series
	s.mu.Unlock()
}

// Unwatch removes a symbol/timeframe pair from the watchlist.
func (s *Scheduler) Unwatch(symbol, timeframe string) {
	key := watchKey(symbol, timeframe)
	s.mu.Lock()
	delete(s.watch, key)
	s.mu.Unlock()
}

// WatchedSymbols lists the symbol:timeframe pairs currently scheduled.
func (s *Scheduler) WatchedSymbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.watch))
	for key := range s.watch {
		out = append(out, key)
	}
	return out
}

// Schedule adds a cron entry that re-analyzes every watched series.
// spec is a standard 5-field cron expression (e.g. "*/15 * * * *").
func (s *Scheduler) Schedule(spec string) error {
	_, err := s.cron.AddFunc(spec, s.tick)
	return err
}

// Start begins the cron loop in a goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().Msg("scheduler started")
}

// Stop halts the cron loop, waiting for any in-flight tick to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("scheduler stopped")
}

func (s *Scheduler) tick() {
	s.mu.RLock()
	series := make([]models.Series, 0, len(s.watch))
	for _, ser := range s.watch {
		series = append(series, ser)
	}
	s.mu.RUnlock()

	for _, ser := range series {
		result := s.engine.Analyze(context.Background(), ser)
		s.logger.Debug().Str("symbol", ser.Symbol).Str("timeframe", ser.Timeframe).
			Int("patterns", result.Summary.Total).Msg("scheduled re-analysis complete")
		if s.sink != nil {
			s.sink.Handle(result)
		}
	}
}

func watchKey(symbol, timeframe string) string {
	return symbol + ":" + timeframe
}
