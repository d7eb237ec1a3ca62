// Package worker implements optional concurrent per-family pattern
// detection dispatch. Grounded on internal/worker/pool.go
// (goroutine-per-unit-of-work plus a sync.WaitGroup join), narrowed from a
// long-lived symbol-keyed pool down to a single fan-out/fan-in call since
// spec.md §5 only asks for "family detectors dispatched across worker
// threads, merge order deterministic"; there is no persistent worker
// state to manage here.
package worker

import (
	"context"
	"sort"
	"sync"

	"github.com/ridopark/jonbu-patterns/internal/models"
)

// FamilyJob is one detector family's unit of work: run and return its
// candidates plus any warnings.
type FamilyJob struct {
	Name   string
	Detect func() (patterns []models.DetectedPattern, warnings []string)
}

// Dispatch runs every job concurrently (bounded by Go's scheduler, no
// shared mutable state between jobs per spec.md §5) and merges results in
// a deterministic order: confidence descending, kind ascending,
// start_index ascending, regardless of which goroutine finishes first.
// Checks ctx once, after every job has returned: a cancelled ctx yields its
// error and no patterns. Jobs themselves are not interrupted.
func Dispatch(ctx context.Context, jobs []FamilyJob) ([]models.DetectedPattern, []string, error) {
	results := make([][]models.DetectedPattern, len(jobs))
	warningSets := make([][]string, len(jobs))

	var wg sync.WaitGroup
	for i, job := range jobs {
		wg.Add(1)
		go func(i int, job FamilyJob) {
			defer wg.Done()
			patterns, warnings := job.Detect()
			results[i] = patterns
			warningSets[i] = warnings
		}(i, job)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var merged []models.DetectedPattern
	var warnings []string
	for i := range jobs {
		merged = append(merged, results[i]...)
		warnings = append(warnings, warningSets[i]...)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.StartIndex < b.StartIndex
	})

	return merged, warnings, nil
}
