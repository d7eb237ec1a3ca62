package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ridopark/jonbu-patterns/internal/logger"
	"github.com/ridopark/jonbu-patterns/internal/models"
)

// ResultRepository persists AnalysisResult rows, grounded on the
// OHLCVRepository shape: prepared statements held on the struct, Insert/Get
// pairs, LogPerformance around Insert.
type ResultRepository struct {
	db     *DB
	logger zerolog.Logger

	insertStmt *sql.Stmt
	getStmt    *sql.Stmt
}

// NewResultRepository prepares the repository's statements.
func NewResultRepository(db *DB) (*ResultRepository, error) {
	repo := &ResultRepository{
		db:     db,
		logger: logger.NewComponentLogger("result_repository"),
	}
	if err := repo.prepareStatements(); err != nil {
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}
	return repo, nil
}

func (r *ResultRepository) prepareStatements() error {
	var err error
	r.insertStmt, err = r.db.conn.Prepare(`
		INSERT INTO analysis_results
			(id, symbol, timeframe, outcome, data_points, total_patterns,
			 average_confidence, highest_confidence, patterns, recommendations,
			 warnings, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`)
	if err != nil {
		return err
	}

	r.getStmt, err = r.db.conn.Prepare(`
		SELECT id, symbol, timeframe, outcome, data_points, total_patterns,
		       average_confidence, highest_confidence, patterns, recommendations,
		       warnings, created_at
		FROM analysis_results WHERE id = $1
	`)
	return err
}

// Close closes the repository's prepared statements.
func (r *ResultRepository) Close() error {
	for _, stmt := range []*sql.Stmt{r.insertStmt, r.getStmt} {
		if stmt != nil {
			if err := stmt.Close(); err != nil {
				r.logger.Error().Err(err).Msg("failed to close prepared statement")
			}
		}
	}
	return nil
}

// Insert persists one AnalysisResult.
func (r *ResultRepository) Insert(ctx context.Context, result models.AnalysisResult) error {
	start := time.Now()
	defer func() { logger.LogPerformance(r.logger, "insert_analysis_result", start, true) }()

	patternsJSON, err := json.Marshal(result.Patterns)
	if err != nil {
		return fmt.Errorf("failed to marshal patterns: %w", err)
	}
	recommendationsJSON, err := json.Marshal(result.Recommendations)
	if err != nil {
		return fmt.Errorf("failed to marshal recommendations: %w", err)
	}
	warningsJSON, err := json.Marshal(result.Warnings)
	if err != nil {
		return fmt.Errorf("failed to marshal warnings: %w", err)
	}

	_, err = r.insertStmt.ExecContext(ctx,
		result.AnalysisID,
		result.Symbol,
		result.Timeframe,
		string(result.Outcome),
		result.DataPoints,
		result.Summary.Total,
		result.Summary.AverageConfidence,
		result.Summary.HighestConfidence,
		patternsJSON,
		recommendationsJSON,
		warningsJSON,
		time.Now(),
	)
	if err != nil {
		r.logger.Error().Err(err).Str("analysis_id", result.AnalysisID).Msg("failed to insert analysis result")
		return fmt.Errorf("failed to insert analysis result: %w", err)
	}

	r.logger.Debug().Str("analysis_id", result.AnalysisID).Str("symbol", result.Symbol).Msg("analysis result stored")
	return nil
}

// StoredResult is the row shape returned by GetByID, skipping the heavier
// DetectedPattern reconstruction most callers don't need.
type StoredResult struct {
	AnalysisID        string
	Symbol            string
	Timeframe         string
	Outcome           string
	DataPoints        int
	TotalPatterns     int
	AverageConfidence float64
	HighestConfidence float64
	Patterns          json.RawMessage
	Recommendations   []string
	Warnings          []string
	CreatedAt         time.Time
}

// GetByID fetches one persisted result by its analysis ID.
func (r *ResultRepository) GetByID(ctx context.Context, id string) (*StoredResult, error) {
	var out StoredResult
	var recommendationsJSON, warningsJSON []byte

	err := r.getStmt.QueryRowContext(ctx, id).Scan(
		&out.AnalysisID,
		&out.Symbol,
		&out.Timeframe,
		&out.Outcome,
		&out.DataPoints,
		&out.TotalPatterns,
		&out.AverageConfidence,
		&out.HighestConfidence,
		&out.Patterns,
		&recommendationsJSON,
		&warningsJSON,
		&out.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch analysis result: %w", err)
	}

	if err := json.Unmarshal(recommendationsJSON, &out.Recommendations); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recommendations: %w", err)
	}
	if err := json.Unmarshal(warningsJSON, &out.Warnings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal warnings: %w", err)
	}

	return &out, nil
}
