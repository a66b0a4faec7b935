package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yourusername/tipfusion/internal/database"
	"github.com/yourusername/tipfusion/internal/models"
)

// PostgresOutcomeRepository implements OutcomeRepository for PostgreSQL
type PostgresOutcomeRepository struct {
	db *database.DB
}

// NewPostgresOutcomeRepository creates a new outcome repository
func NewPostgresOutcomeRepository(db *database.DB) OutcomeRepository {
	return &PostgresOutcomeRepository{db: db}
}

// Save inserts a new settled outcome
func (o *PostgresOutcomeRepository) Save(ctx context.Context, outcome *models.Outcome) error {
	query := `
		INSERT INTO outcomes (id, engine_id, league, context_id, won, realized_value, settled_at, processed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := o.db.GetPool().Exec(ctx, query,
		outcome.ID, outcome.EngineID, outcome.League, outcome.ContextID,
		outcome.Won, outcome.RealizedValue, outcome.SettledAt, outcome.Processed, outcome.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save outcome: %w", err)
	}

	return nil
}

// GetByID retrieves an outcome by ID
func (o *PostgresOutcomeRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Outcome, error) {
	query := `
		SELECT id, engine_id, league, context_id, won, realized_value, settled_at, processed, created_at
		FROM outcomes WHERE id = $1
	`

	outcome := &models.Outcome{}
	err := o.db.GetPool().QueryRow(ctx, query, id).Scan(
		&outcome.ID, &outcome.EngineID, &outcome.League, &outcome.ContextID,
		&outcome.Won, &outcome.RealizedValue, &outcome.SettledAt, &outcome.Processed, &outcome.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get outcome: %w", err)
	}

	return outcome, nil
}

// GetRecentUnprocessed retrieves outcomes that have not yet fed a weight update
func (o *PostgresOutcomeRepository) GetRecentUnprocessed(ctx context.Context, limit int) ([]*models.Outcome, error) {
	query := `
		SELECT id, engine_id, league, context_id, won, realized_value, settled_at, processed, created_at
		FROM outcomes
		WHERE processed = false
		ORDER BY settled_at ASC
		LIMIT $1
	`

	rows, err := o.db.GetPool().Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query unprocessed outcomes: %w", err)
	}
	defer rows.Close()

	return scanOutcomes(rows)
}

// GetByEngine retrieves all outcomes for a specific engine within a date range
func (o *PostgresOutcomeRepository) GetByEngine(ctx context.Context, engineID string, start, end time.Time) ([]*models.Outcome, error) {
	query := `
		SELECT id, engine_id, league, context_id, won, realized_value, settled_at, processed, created_at
		FROM outcomes
		WHERE engine_id = $1 AND settled_at >= $2 AND settled_at <= $3
		ORDER BY settled_at DESC
	`

	rows, err := o.db.GetPool().Query(ctx, query, engineID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes by engine: %w", err)
	}
	defer rows.Close()

	return scanOutcomes(rows)
}

// MarkAsProcessed marks a batch of outcomes as consumed by the weight updater
func (o *PostgresOutcomeRepository) MarkAsProcessed(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	query := `UPDATE outcomes SET processed = true WHERE id = ANY($1)`

	commandTag, err := o.db.GetPool().Exec(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("failed to mark outcomes as processed: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// CountUnprocessed returns the number of outcomes awaiting processing
func (o *PostgresOutcomeRepository) CountUnprocessed(ctx context.Context) (int, error) {
	var count int
	err := o.db.GetPool().QueryRow(ctx, `SELECT COUNT(*) FROM outcomes WHERE processed = false`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unprocessed outcomes: %w", err)
	}
	return count, nil
}

func scanOutcomes(rows pgx.Rows) ([]*models.Outcome, error) {
	var outcomes []*models.Outcome
	for rows.Next() {
		outcome := &models.Outcome{}
		err := rows.Scan(
			&outcome.ID, &outcome.EngineID, &outcome.League, &outcome.ContextID,
			&outcome.Won, &outcome.RealizedValue, &outcome.SettledAt, &outcome.Processed, &outcome.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		outcomes = append(outcomes, outcome)
	}

	return outcomes, rows.Err()
}
