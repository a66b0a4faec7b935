// Package engine defines the scoring engine contract and the static registry
// that groups engines into weighted categories.
package engine

import (
	"context"

	"github.com/yourusername/tipfusion/internal/models"
)

// Engine is an independent unit producing a scored estimate for one match
// context. Engines are stateless and side-effect-free from the core's
// perspective; a failing engine is isolated per call and never aborts a
// fusion run.
type Engine interface {
	Name() string
	Score(ctx context.Context, match models.MatchContext) (models.ScoringOutput, error)
}

// EngineFunc adapts a plain function to the Engine interface
type EngineFunc struct {
	EngineName string
	Fn         func(ctx context.Context, match models.MatchContext) (models.ScoringOutput, error)
}

// Name returns the engine name
func (e EngineFunc) Name() string {
	return e.EngineName
}

// Score invokes the wrapped function
func (e EngineFunc) Score(ctx context.Context, match models.MatchContext) (models.ScoringOutput, error) {
	return e.Fn(ctx, match)
}
