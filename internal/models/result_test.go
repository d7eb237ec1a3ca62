package models

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestAnalysisResultMarshalJSONSuccess(t *testing.T) {
	result := AnalysisResult{
		AnalysisID: "abc-123",
		Outcome:    Success,
		Symbol:     "AAPL",
		Timeframe:  "1day",
		DataPoints: 100,
	}

	raw, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("unexpected marshal error: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unexpected unmarshal error: %v", err)
	}

	if decoded["success"] != true {
		t.Errorf("expected success=true for a Success outcome, got %v", decoded["success"])
	}
	if _, hasError := decoded["error"]; hasError {
		t.Error("expected no error field for a successful result")
	}
	if decoded["symbol"] != "AAPL" {
		t.Errorf("expected symbol=AAPL, got %v", decoded["symbol"])
	}
}

func TestAnalysisResultMarshalJSONFailure(t *testing.T) {
	result := AnalysisResult{
		Outcome: InputError,
		Symbol:  "AAPL",
		Err:     errors.New("series too short"),
	}

	raw, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("unexpected marshal error: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unexpected unmarshal error: %v", err)
	}

	if decoded["success"] != false {
		t.Errorf("expected success=false for an InputError outcome, got %v", decoded["success"])
	}
	if decoded["error"] != "series too short" {
		t.Errorf("expected error message to be carried into the wire contract, got %v", decoded["error"])
	}
}

func TestSuccessMethodMatchesOutcome(t *testing.T) {
	cases := []struct {
		outcome Outcome
		want    bool
	}{
		{Success, true},
		{InputError, false},
		{Cancelled, false},
	}

	for _, c := range cases {
		result := AnalysisResult{Outcome: c.outcome}
		if got := result.Success(); got != c.want {
			t.Errorf("Success() for outcome %v: expected %v, got %v", c.outcome, c.want, got)
		}
	}
}
