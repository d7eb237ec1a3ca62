package primitives

import (
	"testing"

	"github.com/ridopark/jonbu-patterns/internal/models"
)

func TestFindTurningPointsDetectsSinglePeakAndTrough(t *testing.T) {
	values := []float64{1, 2, 3, 2, 1, 2, 3, 4, 5, 6}

	points := FindTurningPoints(values, 2)

	peaks := Peaks(points)
	troughs := Troughs(points)

	if len(peaks) != 1 || peaks[0].Index != 2 {
		t.Errorf("expected a single peak at index 2, got %+v", peaks)
	}
	if len(troughs) != 1 || troughs[0].Index != 4 {
		t.Errorf("expected a single trough at index 4, got %+v", troughs)
	}
}

func TestFindTurningPointsRespectsMinDistance(t *testing.T) {
	values := []float64{1, 3, 1, 3, 1, 3, 1}

	wide := FindTurningPoints(values, 3)
	narrow := FindTurningPoints(values, 1)

	if len(wide) >= len(narrow) {
		t.Errorf("expected a wider minDistance to find fewer turning points, got wide=%d narrow=%d", len(wide), len(narrow))
	}
}

func TestFindTurningPointsExcludesBoundaryRegion(t *testing.T) {
	values := []float64{5, 1, 2, 3, 4, 5, 4, 3, 2, 1, 5}

	points := FindTurningPoints(values, 2)

	for _, p := range points {
		if p.Index < 2 || p.Index > len(values)-1-2 {
			t.Errorf("expected no turning point within minDistance of the boundary, got index %d", p.Index)
		}
	}
}

func TestAlternatingDetectsStrictAlternation(t *testing.T) {
	alternating := []models.TurningPoint{
		{Index: 0, Kind: models.Peak},
		{Index: 1, Kind: models.Trough},
		{Index: 2, Kind: models.Peak},
	}
	if !Alternating(alternating) {
		t.Error("expected a strictly alternating sequence to return true")
	}

	nonAlternating := []models.TurningPoint{
		{Index: 0, Kind: models.Peak},
		{Index: 1, Kind: models.Peak},
	}
	if Alternating(nonAlternating) {
		t.Error("expected two consecutive peaks to return false")
	}
}

func TestAlternatingAcceptsEmptyAndSingleton(t *testing.T) {
	if !Alternating(nil) {
		t.Error("expected an empty sequence to vacuously alternate")
	}
	if !Alternating([]models.TurningPoint{{Index: 0, Kind: models.Peak}}) {
		t.Error("expected a single point to vacuously alternate")
	}
}
