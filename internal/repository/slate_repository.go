package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/yourusername/tipfusion/internal/database"
	"github.com/yourusername/tipfusion/internal/models"
)

// PostgresSlateRepository implements SlateRepository for PostgreSQL
type PostgresSlateRepository struct {
	db *database.DB
}

// NewPostgresSlateRepository creates a new slate repository
func NewPostgresSlateRepository(db *database.DB) SlateRepository {
	return &PostgresSlateRepository{db: db}
}

// Save inserts a new slate with its legs stored as JSONB
func (s *PostgresSlateRepository) Save(ctx context.Context, slate *models.Slate) error {
	legsJSON, err := json.Marshal(slate.Legs)
	if err != nil {
		return fmt.Errorf("failed to marshal slate legs: %w", err)
	}

	query := `
		INSERT INTO slates (id, legs, combined_price, combined_ev, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err = s.db.GetPool().Exec(ctx, query,
		slate.ID, legsJSON, slate.CombinedPrice, slate.CombinedEV, slate.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save slate: %w", err)
	}

	return nil
}

// GetByID retrieves a slate by ID
func (s *PostgresSlateRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Slate, error) {
	query := `
		SELECT id, legs, combined_price, combined_ev, created_at
		FROM slates WHERE id = $1
	`

	slate := &models.Slate{}
	var legsJSON []byte
	err := s.db.GetPool().QueryRow(ctx, query, id).Scan(
		&slate.ID, &legsJSON, &slate.CombinedPrice, &slate.CombinedEV, &slate.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get slate: %w", err)
	}

	if err := json.Unmarshal(legsJSON, &slate.Legs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal slate legs: %w", err)
	}

	return slate, nil
}

// GetRecent retrieves the most recently built slates, newest first
func (s *PostgresSlateRepository) GetRecent(ctx context.Context, limit int) ([]*models.Slate, error) {
	query := `
		SELECT id, legs, combined_price, combined_ev, created_at
		FROM slates
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := s.db.GetPool().Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query slates: %w", err)
	}
	defer rows.Close()

	var slates []*models.Slate
	for rows.Next() {
		slate := &models.Slate{}
		var legsJSON []byte
		err := rows.Scan(&slate.ID, &legsJSON, &slate.CombinedPrice, &slate.CombinedEV, &slate.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan slate: %w", err)
		}
		if err := json.Unmarshal(legsJSON, &slate.Legs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal slate legs: %w", err)
		}
		slates = append(slates, slate)
	}

	return slates, rows.Err()
}
