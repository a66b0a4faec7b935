package repository

import (
	"fmt"

	"github.com/yourusername/tipfusion/internal/database"
)

// Repositories holds all repository implementations
type Repositories struct {
	Outcome        OutcomeRepository
	WeightSnapshot WeightSnapshotRepository
	Slate          SlateRepository
}

// NewRepositories creates and returns all repository implementations
func NewRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &Repositories{
		Outcome:        NewPostgresOutcomeRepository(db),
		WeightSnapshot: NewPostgresWeightSnapshotRepository(db),
		Slate:          NewPostgresSlateRepository(db),
	}, nil
}
