// Package common holds the small set of types every detector family
// package shares, kept separate from internal/engine so detector packages
// never import the orchestrator (spec.md §9's "cyclic references" note).
package common

import "github.com/ridopark/jonbu-patterns/internal/models"

// Result is what every detector function returns: the candidates it found
// plus any non-fatal warnings, per spec.md §7's DetectorWarning semantics.
type Result struct {
	Patterns []models.DetectedPattern
	Warnings []string
}

// Add appends another Result's patterns and warnings into r.
func (r *Result) Add(other Result) {
	r.Patterns = append(r.Patterns, other.Patterns...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}

// Warn appends a warning message without a pattern.
func (r *Result) Warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}
