package scheduler

import (
	"sync"
	"testing"
	"time"

	"github.com/ridopark/jonbu-patterns/internal/engine"
	"github.com/ridopark/jonbu-patterns/internal/logger"
	"github.com/ridopark/jonbu-patterns/internal/models"
)

type recordingSink struct {
	mu      sync.Mutex
	results []models.AnalysisResult
}

func (r *recordingSink) Handle(result models.AnalysisResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.results)
}

func testSeries(n int) models.Series {
	bars := make([]models.Bar, n)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	price := 100.0
	for i := 0; i < n; i++ {
		price += 0.1
		bars[i] = models.Bar{
			Timestamp: base.Add(time.Duration(i) * 24 * time.Hour),
			Open:      price,
			High:      price + 1,
			Low:       price - 1,
			Close:     price + 0.2,
			Volume:    1000,
		}
	}
	return models.Series{Symbol: "AAPL", Timeframe: "1day", Bars: bars}
}

func newTestScheduler(sink ResultSink) *Scheduler {
	eng := engine.New(engine.DefaultConfiguration(), logger.New("test", "error"))
	return New(eng, sink, logger.New("test", "error"))
}

func TestWatchRegistersSeries(t *testing.T) {
	s := newTestScheduler(nil)
	s.Watch(testSeries(60))

	symbols := s.WatchedSymbols()
	if len(symbols) != 1 || symbols[0] != "AAPL:1day" {
		t.Fatalf("expected [AAPL:1day], got %v", symbols)
	}
}

func TestWatchOverwritesSameKey(t *testing.T) {
	s := newTestScheduler(nil)
	s.Watch(testSeries(60))
	s.Watch(testSeries(90))

	symbols := s.WatchedSymbols()
	if len(symbols) != 1 {
		t.Fatalf("expected a single watched key after re-registering the same symbol/timeframe, got %v", symbols)
	}
}

func TestUnwatchRemovesSeries(t *testing.T) {
	s := newTestScheduler(nil)
	s.Watch(testSeries(60))
	s.Unwatch("AAPL", "1day")

	if symbols := s.WatchedSymbols(); len(symbols) != 0 {
		t.Fatalf("expected no watched symbols after Unwatch, got %v", symbols)
	}
}

func TestTickReanalyzesWatchedSeriesAndNotifiesSink(t *testing.T) {
	sink := &recordingSink{}
	s := newTestScheduler(sink)
	s.Watch(testSeries(60))

	s.tick()

	if sink.count() != 1 {
		t.Fatalf("expected the sink to receive one result after tick, got %d", sink.count())
	}
}

func TestTickSkipsSinkWhenNil(t *testing.T) {
	s := newTestScheduler(nil)
	s.Watch(testSeries(60))

	// Must not panic when no sink is configured.
	s.tick()
}

func TestScheduleRejectsInvalidCronExpression(t *testing.T) {
	s := newTestScheduler(nil)
	if err := s.Schedule("not a cron expression"); err == nil {
		t.Error("expected an error scheduling a malformed cron expression")
	}
}
