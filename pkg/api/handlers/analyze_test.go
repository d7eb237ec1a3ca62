package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ridopark/jonbu-patterns/internal/engine"
	"github.com/ridopark/jonbu-patterns/internal/logger"
	"github.com/ridopark/jonbu-patterns/internal/models"
)

type fakeStore struct {
	inserted []models.AnalysisResult
}

func (f *fakeStore) Insert(ctx context.Context, result models.AnalysisResult) error {
	f.inserted = append(f.inserted, result)
	return nil
}

type fakeWatcher struct {
	watched []models.Series
}

func (f *fakeWatcher) Watch(series models.Series) {
	f.watched = append(f.watched, series)
}

func barsJSON(n int) []models.Bar {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	price := 100.0
	bars := make([]models.Bar, n)
	for i := 0; i < n; i++ {
		price += 0.3
		bars[i] = models.Bar{
			Timestamp: base.Add(time.Duration(i) * 24 * time.Hour),
			Open:      price,
			High:      price + 1,
			Low:       price - 1,
			Close:     price + 0.1,
			Volume:    1000,
		}
	}
	return bars
}

func doAnalyzeRequest(t *testing.T, handler *AnalyzeHandler, body analyzeRequest) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/analyze", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	handler.Analyze(rec, req)
	return rec
}

func TestAnalyzeHandlerSuccess(t *testing.T) {
	store := &fakeStore{}
	watcher := &fakeWatcher{}
	handler := NewAnalyzeHandler(engine.DefaultConfiguration(), nil, store, watcher, nil, logger.New("test", "error"))

	rec := doAnalyzeRequest(t, handler, analyzeRequest{Symbol: "AAPL", Timeframe: "1day", Bars: barsJSON(100)})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result models.AnalysisResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.Outcome != models.Success {
		t.Errorf("expected success outcome, got %v", result.Outcome)
	}

	// allow the async persistence goroutine to run
	time.Sleep(20 * time.Millisecond)
	if len(store.inserted) != 1 {
		t.Errorf("expected one persisted result, got %d", len(store.inserted))
	}
	if len(watcher.watched) != 1 {
		t.Errorf("expected the series to be registered with the watcher, got %d", len(watcher.watched))
	}
}

func TestAnalyzeHandlerRejectsMissingSymbol(t *testing.T) {
	handler := NewAnalyzeHandler(engine.DefaultConfiguration(), nil, nil, nil, nil, logger.New("test", "error"))

	rec := doAnalyzeRequest(t, handler, analyzeRequest{Timeframe: "1day", Bars: barsJSON(100)})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a missing symbol, got %d", rec.Code)
	}
}

func TestAnalyzeHandlerRejectsMalformedBody(t *testing.T) {
	handler := NewAnalyzeHandler(engine.DefaultConfiguration(), nil, nil, nil, nil, logger.New("test", "error"))

	req := httptest.NewRequest(http.MethodPost, "/v1/analyze", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()
	handler.Analyze(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a malformed body, got %d", rec.Code)
	}
}

func TestAnalyzeHandlerReturns422OnInputError(t *testing.T) {
	handler := NewAnalyzeHandler(engine.DefaultConfiguration(), nil, nil, nil, nil, logger.New("test", "error"))

	rec := doAnalyzeRequest(t, handler, analyzeRequest{Symbol: "AAPL", Timeframe: "1day", Bars: barsJSON(5)})

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for too few bars, got %d", rec.Code)
	}
}

func TestAnalyzeHandlerAppliesSensitivityOverride(t *testing.T) {
	handler := NewAnalyzeHandler(engine.DefaultConfiguration(), nil, nil, nil, nil, logger.New("test", "error"))

	rec := doAnalyzeRequest(t, handler, analyzeRequest{
		Symbol: "AAPL", Timeframe: "1day", Bars: barsJSON(100), Sensitivity: "very_high",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}
