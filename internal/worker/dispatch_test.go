package worker

import (
	"context"
	"testing"

	"github.com/ridopark/jonbu-patterns/internal/models"
)

func pattern(kind models.PatternKind, confidence float64, startIndex int) models.DetectedPattern {
	return models.DetectedPattern{Kind: kind, Confidence: confidence, StartIndex: startIndex}
}

func TestDispatchMergesResultsFromAllJobs(t *testing.T) {
	jobs := []FamilyJob{
		{Name: "a", Detect: func() ([]models.DetectedPattern, []string) {
			return []models.DetectedPattern{pattern(models.BullFlag, 0.5, 0)}, nil
		}},
		{Name: "b", Detect: func() ([]models.DetectedPattern, []string) {
			return []models.DetectedPattern{pattern(models.BearFlag, 0.9, 0)}, nil
		}},
	}

	merged, _, err := Dispatch(context.Background(), jobs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(merged) != 2 {
		t.Fatalf("expected 2 merged patterns, got %d", len(merged))
	}
}

func TestDispatchOrdersByConfidenceDescending(t *testing.T) {
	jobs := []FamilyJob{
		{Name: "a", Detect: func() ([]models.DetectedPattern, []string) {
			return []models.DetectedPattern{pattern(models.BullFlag, 0.3, 0)}, nil
		}},
		{Name: "b", Detect: func() ([]models.DetectedPattern, []string) {
			return []models.DetectedPattern{pattern(models.BearFlag, 0.9, 0)}, nil
		}},
	}

	merged, _, err := Dispatch(context.Background(), jobs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if merged[0].Confidence != 0.9 || merged[1].Confidence != 0.3 {
		t.Errorf("expected descending confidence order, got %v then %v", merged[0].Confidence, merged[1].Confidence)
	}
}

func TestDispatchBreaksConfidenceTiesByKindThenStartIndex(t *testing.T) {
	jobs := []FamilyJob{
		{Name: "a", Detect: func() ([]models.DetectedPattern, []string) {
			return []models.DetectedPattern{
				pattern(models.BullFlag, 0.5, 5),
				pattern(models.BullFlag, 0.5, 1),
			}, nil
		}},
	}

	merged, _, err := Dispatch(context.Background(), jobs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if merged[0].StartIndex != 1 || merged[1].StartIndex != 5 {
		t.Errorf("expected the lower start index first among same-confidence same-kind patterns, got %v then %v", merged[0].StartIndex, merged[1].StartIndex)
	}
}

func TestDispatchCollectsWarningsFromAllJobs(t *testing.T) {
	jobs := []FamilyJob{
		{Name: "a", Detect: func() ([]models.DetectedPattern, []string) {
			return nil, []string{"warning from a"}
		}},
		{Name: "b", Detect: func() ([]models.DetectedPattern, []string) {
			return nil, []string{"warning from b"}
		}},
	}

	_, warnings, err := Dispatch(context.Background(), jobs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %d", len(warnings))
	}
}

func TestDispatchHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	jobs := []FamilyJob{
		{Name: "a", Detect: func() ([]models.DetectedPattern, []string) {
			return []models.DetectedPattern{pattern(models.BullFlag, 0.5, 0)}, nil
		}},
	}

	_, _, err := Dispatch(ctx, jobs)
	if err == nil {
		t.Error("expected an error when the context is already cancelled")
	}
}
