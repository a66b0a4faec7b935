// Package slate selects the best small combination of candidate bets under
// business constraints by exhaustive enumeration of the filtered pool.
package slate

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/tipfusion/internal/metrics"
	"github.com/yourusername/tipfusion/internal/models"
)

// Outcome tags the optimizer result. InsufficientCandidates,
// NoFeasibleCombination and Timeout are expected business outcomes, not
// failures; callers must branch on them.
type Outcome int

const (
	OutcomeSlate Outcome = iota
	OutcomeInsufficientCandidates
	OutcomeNoFeasibleCombination
	OutcomeTimeout
)

// String returns the outcome label
func (o Outcome) String() string {
	switch o {
	case OutcomeSlate:
		return "slate"
	case OutcomeInsufficientCandidates:
		return "insufficient_candidates"
	case OutcomeNoFeasibleCombination:
		return "no_feasible_combination"
	case OutcomeTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Result is the tagged optimizer outcome. Slate is non-nil only for
// OutcomeSlate.
type Result struct {
	Outcome Outcome
	Slate   *models.Slate
}

// CorrelationPolicy reports whether two candidates are too correlated to
// share a slate. Duplicate-event exclusion is handled separately.
type CorrelationPolicy func(a, b models.Candidate) bool

// DefaultCorrelationPolicy forbids two members of the totals market family
// and a totals/both-teams-to-score pairing.
func DefaultCorrelationPolicy(a, b models.Candidate) bool {
	if a.MarketType == models.MarketTotal && b.MarketType == models.MarketTotal {
		return true
	}
	if a.MarketType == models.MarketTotal && b.MarketType == models.MarketBTTS {
		return true
	}
	if a.MarketType == models.MarketBTTS && b.MarketType == models.MarketTotal {
		return true
	}
	return false
}

// Config tunes filtering, enumeration and feasibility
type Config struct {
	MinValueScore float64
	MinConfidence float64
	SlateSizes    []int
	MinTotalPrice float64
	MaxTotalPrice float64
	Correlated    CorrelationPolicy
}

// DefaultConfig returns the documented defaults
func DefaultConfig() Config {
	return Config{
		MinValueScore: 0.15,
		MinConfidence: 0.55,
		SlateSizes:    []int{3, 4},
		MinTotalPrice: 5.5,
		MaxTotalPrice: 8.5,
		Correlated:    DefaultCorrelationPolicy,
	}
}

// minSlateSize is the smallest slate worth combining; fewer qualifying
// candidates than this is InsufficientCandidates.
const minSlateSize = 3

// Optimizer enumerates feasible candidate combinations and returns the one
// with the greatest combined expected value.
type Optimizer struct {
	cfg    Config
	logger *logrus.Logger
}

// NewOptimizer creates an optimizer with the given config, filling unset
// fields from the defaults.
func NewOptimizer(cfg Config, logger *logrus.Logger) *Optimizer {
	def := DefaultConfig()
	if cfg.MinValueScore == 0 {
		cfg.MinValueScore = def.MinValueScore
	}
	if cfg.MinConfidence == 0 {
		cfg.MinConfidence = def.MinConfidence
	}
	if len(cfg.SlateSizes) == 0 {
		cfg.SlateSizes = def.SlateSizes
	}
	if cfg.MinTotalPrice == 0 {
		cfg.MinTotalPrice = def.MinTotalPrice
	}
	if cfg.MaxTotalPrice == 0 {
		cfg.MaxTotalPrice = def.MaxTotalPrice
	}
	if cfg.Correlated == nil {
		cfg.Correlated = def.Correlated
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Optimizer{cfg: cfg, logger: logger}
}

// Optimize filters the pool, enumerates every subset of the configured
// sizes and returns the feasible subset with the strictly greatest combined
// expected value. Ties keep the first subset in enumeration order, which
// follows the input order of the pool, so results are deterministic for a
// fixed input ordering. Cancellation of ctx yields OutcomeTimeout rather
// than a partial slate.
func (o *Optimizer) Optimize(ctx context.Context, pool []models.Candidate) Result {
	start := time.Now()
	result := o.optimize(ctx, pool)
	metrics.RecordSlateOutcome(result.Outcome.String(), time.Since(start).Seconds())

	if result.Outcome == OutcomeSlate {
		metrics.SlateCombinedEV.Set(result.Slate.CombinedEV)
		o.logger.WithFields(logrus.Fields{
			"legs":           result.Slate.Size(),
			"combined_price": result.Slate.CombinedPrice,
			"combined_ev":    result.Slate.CombinedEV,
		}).Info("Slate selected")
	} else {
		o.logger.WithField("outcome", result.Outcome.String()).Info("No slate selected")
	}
	return result
}

func (o *Optimizer) optimize(ctx context.Context, pool []models.Candidate) Result {
	candidates := o.filter(pool)
	if len(candidates) < minSlateSize {
		return Result{Outcome: OutcomeInsufficientCandidates}
	}

	var (
		best     []models.Candidate
		bestEV   float64
		found    bool
		timedOut bool
	)

	for _, size := range o.cfg.SlateSizes {
		if size > len(candidates) {
			continue
		}

		combo := make([]models.Candidate, 0, size)
		abort := o.enumerate(ctx, candidates, combo, 0, size, func(subset []models.Candidate) {
			ev := combinedEV(subset)
			if !found || ev > bestEV {
				found = true
				bestEV = ev
				best = append(best[:0], subset...)
			}
		})
		if abort {
			timedOut = true
			break
		}
	}

	if timedOut {
		return Result{Outcome: OutcomeTimeout}
	}
	if !found {
		return Result{Outcome: OutcomeNoFeasibleCombination}
	}

	legs := make([]models.Candidate, len(best))
	copy(legs, best)

	return Result{
		Outcome: OutcomeSlate,
		Slate: &models.Slate{
			ID:            uuid.New(),
			Legs:          legs,
			CombinedPrice: combinedPrice(legs),
			CombinedEV:    bestEV,
			CreatedAt:     time.Now().UTC(),
		},
	}
}

// filter retains candidates above the value and confidence thresholds,
// preserving input order.
func (o *Optimizer) filter(pool []models.Candidate) []models.Candidate {
	out := make([]models.Candidate, 0, len(pool))
	for _, c := range pool {
		if c.ValueScore > o.cfg.MinValueScore && c.Confidence > o.cfg.MinConfidence {
			out = append(out, c)
		}
	}
	return out
}

// enumerate walks every size-k combination in input order, invoking visit
// for each feasible subset. Returns true when the context was cancelled.
func (o *Optimizer) enumerate(ctx context.Context, candidates, combo []models.Candidate, start, size int, visit func([]models.Candidate)) bool {
	if len(combo) == size {
		if o.feasible(combo) {
			visit(combo)
		}
		return false
	}

	for i := start; i < len(candidates); i++ {
		if ctx.Err() != nil {
			return true
		}
		if o.enumerate(ctx, candidates, append(combo, candidates[i]), i+1, size, visit) {
			return true
		}
	}
	return false
}

// feasible applies the subset constraints, cheapest check first
func (o *Optimizer) feasible(subset []models.Candidate) bool {
	if hasDuplicateContext(subset) {
		return false
	}
	for i := 0; i < len(subset); i++ {
		for j := i + 1; j < len(subset); j++ {
			if o.cfg.Correlated(subset[i], subset[j]) {
				return false
			}
		}
	}
	price := combinedPrice(subset)
	return price >= o.cfg.MinTotalPrice && price <= o.cfg.MaxTotalPrice
}

func hasDuplicateContext(subset []models.Candidate) bool {
	seen := make(map[models.ContextID]bool, len(subset))
	for _, c := range subset {
		if seen[c.ContextID] {
			return true
		}
		seen[c.ContextID] = true
	}
	return false
}

// combinedPrice is the product of the members' market prices
func combinedPrice(subset []models.Candidate) float64 {
	total := 1.0
	for _, c := range subset {
		total *= c.Price
	}
	return total
}

// combinedEV is Π(prob) * Π(price) - (1 - Π(prob))
func combinedEV(subset []models.Candidate) float64 {
	winProb := 1.0
	for _, c := range subset {
		winProb *= c.Probability
	}
	return winProb*combinedPrice(subset) - (1 - winProb)
}
