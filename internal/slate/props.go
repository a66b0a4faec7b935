package slate

import (
	"sort"

	"github.com/yourusername/tipfusion/internal/models"
)

// PropConfig tunes standalone prop tip selection
type PropConfig struct {
	ValueFloor float64 // minimum value score to qualify
	Limit      int     // maximum tips returned
}

// DefaultPropConfig returns the documented defaults
func DefaultPropConfig() PropConfig {
	return PropConfig{
		ValueFloor: 0.05,
		Limit:      3,
	}
}

// SelectProps picks the best standalone prop tips from the pool: qualifying
// candidates ordered by value score descending, capped at the limit. The
// sort is stable so equal-value candidates keep their input order.
func SelectProps(pool []models.Candidate, cfg PropConfig) []models.Candidate {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultPropConfig().Limit
	}

	valid := make([]models.Candidate, 0, len(pool))
	for _, c := range pool {
		if c.ValueScore > cfg.ValueFloor {
			valid = append(valid, c)
		}
	}

	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].ValueScore > valid[j].ValueScore
	})

	if len(valid) > cfg.Limit {
		valid = valid[:cfg.Limit]
	}
	return valid
}
