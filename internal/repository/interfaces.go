package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/tipfusion/internal/models"
)

// OutcomeRepository defines data access for settled prediction outcomes
type OutcomeRepository interface {
	Save(ctx context.Context, outcome *models.Outcome) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Outcome, error)
	GetRecentUnprocessed(ctx context.Context, limit int) ([]*models.Outcome, error)
	GetByEngine(ctx context.Context, engineID string, start, end time.Time) ([]*models.Outcome, error)
	MarkAsProcessed(ctx context.Context, ids []uuid.UUID) error
	CountUnprocessed(ctx context.Context) (int, error)
}

// WeightSnapshotRepository defines data access for adaptive weight snapshots
type WeightSnapshotRepository interface {
	SaveSnapshot(ctx context.Context, snapshot *models.WeightSnapshot) error
	GetLatest(ctx context.Context, groupingKey string) (*models.WeightSnapshot, error)
	GetHistory(ctx context.Context, groupingKey string, limit int) ([]*models.WeightSnapshot, error)
}

// SlateRepository defines data access for persisted slates
type SlateRepository interface {
	Save(ctx context.Context, slate *models.Slate) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Slate, error)
	GetRecent(ctx context.Context, limit int) ([]*models.Slate, error)
}
