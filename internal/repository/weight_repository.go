package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/yourusername/tipfusion/internal/database"
	"github.com/yourusername/tipfusion/internal/models"
)

// PostgresWeightSnapshotRepository implements WeightSnapshotRepository for PostgreSQL
type PostgresWeightSnapshotRepository struct {
	db *database.DB
}

// NewPostgresWeightSnapshotRepository creates a new weight snapshot repository
func NewPostgresWeightSnapshotRepository(db *database.DB) WeightSnapshotRepository {
	return &PostgresWeightSnapshotRepository{db: db}
}

// SaveSnapshot inserts a new weight snapshot
func (w *PostgresWeightSnapshotRepository) SaveSnapshot(ctx context.Context, snapshot *models.WeightSnapshot) error {
	weightsJSON, err := json.Marshal(snapshot.Weights)
	if err != nil {
		return fmt.Errorf("failed to marshal weights: %w", err)
	}

	query := `
		INSERT INTO weight_snapshots (id, grouping_key, weights, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err = w.db.GetPool().Exec(ctx, query,
		snapshot.ID, snapshot.GroupingKey, weightsJSON, snapshot.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save weight snapshot: %w", err)
	}

	return nil
}

// GetLatest retrieves the most recent snapshot for a grouping key
func (w *PostgresWeightSnapshotRepository) GetLatest(ctx context.Context, groupingKey string) (*models.WeightSnapshot, error) {
	query := `
		SELECT id, grouping_key, weights, created_at
		FROM weight_snapshots
		WHERE grouping_key = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	snapshot := &models.WeightSnapshot{}
	var weightsJSON []byte
	err := w.db.GetPool().QueryRow(ctx, query, groupingKey).Scan(
		&snapshot.ID, &snapshot.GroupingKey, &weightsJSON, &snapshot.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest weight snapshot: %w", err)
	}

	if err := json.Unmarshal(weightsJSON, &snapshot.Weights); err != nil {
		return nil, fmt.Errorf("failed to unmarshal weights: %w", err)
	}

	return snapshot, nil
}

// GetHistory retrieves recent snapshots for a grouping key, newest first
func (w *PostgresWeightSnapshotRepository) GetHistory(ctx context.Context, groupingKey string, limit int) ([]*models.WeightSnapshot, error) {
	query := `
		SELECT id, grouping_key, weights, created_at
		FROM weight_snapshots
		WHERE grouping_key = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := w.db.GetPool().Query(ctx, query, groupingKey, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query weight snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*models.WeightSnapshot
	for rows.Next() {
		snapshot := &models.WeightSnapshot{}
		var weightsJSON []byte
		err := rows.Scan(&snapshot.ID, &snapshot.GroupingKey, &weightsJSON, &snapshot.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan weight snapshot: %w", err)
		}
		if err := json.Unmarshal(weightsJSON, &snapshot.Weights); err != nil {
			return nil, fmt.Errorf("failed to unmarshal weights: %w", err)
		}
		snapshots = append(snapshots, snapshot)
	}

	return snapshots, rows.Err()
}
