package fusion

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/tipfusion/internal/engine"
	"github.com/yourusername/tipfusion/internal/metrics"
	"github.com/yourusername/tipfusion/internal/models"
)

// outputPrecision is the number of decimal digits fused scores are rounded
// to for output stability.
const outputPrecision = 4

// CategoryWeights resolves the fusion weight of a category, with the
// grouping key's override table shadowing the global table.
type CategoryWeights interface {
	Lookup(groupingKey, category string) (float64, bool)
}

// Config tunes one fusion pass
type Config struct {
	Workers       int           // bounded engine fan-out per context
	EngineTimeout time.Duration // deadline per engine call
	Cache         *Cache        // optional fused score cache
}

// DefaultConfig returns recommended fusion settings
func DefaultConfig() Config {
	return Config{
		Workers:       8,
		EngineTimeout: 10 * time.Second,
	}
}

// Pass fuses the outputs of every registered engine into canonical market
// scores. It holds no per-run state; concurrent Fuse calls are safe as long
// as the weight source serves consistent snapshots.
type Pass struct {
	registry      *engine.Registry
	weights       CategoryWeights
	cache         *Cache
	workers       int
	engineTimeout time.Duration
	logger        *logrus.Logger
}

// NewPass creates a fusion pass over the registry and weight source
func NewPass(registry *engine.Registry, weights CategoryWeights, cfg Config, logger *logrus.Logger) *Pass {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	if cfg.EngineTimeout <= 0 {
		cfg.EngineTimeout = DefaultConfig().EngineTimeout
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Pass{
		registry:      registry,
		weights:       weights,
		cache:         cfg.Cache,
		workers:       cfg.Workers,
		engineTimeout: cfg.EngineTimeout,
		logger:        logger,
	}
}

// Fuse runs every registered engine against each supplied context and
// returns the fused canonical scores keyed by context. Engine failures are
// isolated per engine per context; a missing category weight is a
// configuration error and fails the whole call.
func (p *Pass) Fuse(ctx context.Context, groupingKey string, contexts map[models.ContextID]models.MatchContext) (map[models.ContextID]models.FinalScore, error) {
	if p.registry.Size() == 0 {
		return nil, models.ErrNoEnginesRegistered
	}

	start := time.Now()
	scores := make(map[models.ContextID]models.FinalScore, len(contexts))

	// Fixed iteration order keeps logs and failure attribution stable.
	ids := make([]models.ContextID, 0, len(contexts))
	for id := range contexts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		if p.cache != nil {
			if score, ok := p.cache.Get(groupingKey, id); ok {
				scores[id] = score
				continue
			}
		}

		score, err := p.fuseOne(ctx, groupingKey, contexts[id])
		if err != nil {
			return nil, fmt.Errorf("fuse context %s: %w", id, err)
		}
		scores[id] = score

		if p.cache != nil {
			p.cache.Set(groupingKey, id, score)
		}
	}

	metrics.RecordFusionRun(time.Since(start).Seconds())
	return scores, nil
}

type engineResult struct {
	name     string
	category string
	output   models.ScoringOutput
	err      error
}

// runEngines invokes every registered engine concurrently with a bounded
// worker pool. One engine's failure never cancels its siblings; failures
// are collected, not propagated.
func (p *Pass) runEngines(ctx context.Context, match models.MatchContext) []engineResult {
	regs := p.registry.Registrations()
	results := make([]engineResult, len(regs))

	sem := make(chan struct{}, p.workers)
	var wg sync.WaitGroup

	for i, reg := range regs {
		wg.Add(1)
		go func(slot int, reg engine.Registration) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[slot] = p.invoke(ctx, reg, match)
		}(i, reg)
	}
	wg.Wait()

	return results
}

func (p *Pass) invoke(ctx context.Context, reg engine.Registration, match models.MatchContext) (res engineResult) {
	res = engineResult{name: reg.Engine.Name(), category: reg.Category}

	defer func() {
		if r := recover(); r != nil {
			res.err = fmt.Errorf("engine %s panicked: %v", res.name, r)
			res.output = nil
		}
		if res.err != nil {
			metrics.RecordEngineFailure(res.name)
			p.logger.WithFields(logrus.Fields{
				"engine":   res.name,
				"category": res.category,
				"context":  match.ID,
			}).WithError(res.err).Warn("Engine execution failed, output omitted")
		} else {
			metrics.RecordEngineSuccess(res.name)
		}
	}()

	callCtx, cancel := context.WithTimeout(ctx, p.engineTimeout)
	defer cancel()

	res.output, res.err = reg.Engine.Score(callCtx, match)
	return res
}

// fuseOne fuses a single context: normalize, aggregate per category,
// project onto the sport schema and combine with category weights.
func (p *Pass) fuseOne(ctx context.Context, groupingKey string, match models.MatchContext) (models.FinalScore, error) {
	results := p.runEngines(ctx, match)

	aggregates := p.aggregateByCategory(results)
	schema := schemaFor(match.Sport, aggregates)

	categories := make([]string, 0, len(aggregates))
	for cat := range aggregates {
		categories = append(categories, cat)
	}
	sort.Strings(categories)

	fields := make(map[string]float64, len(schema))
	anySignal := false

	for _, field := range schema {
		total := 0.0
		contributed := false

		for _, cat := range categories {
			value, ok := projectField(field, aggregates[cat])
			if !ok {
				// Category lacks the field: skipped, not treated as zero
				// and the remaining weights are not renormalized.
				continue
			}
			weight, ok := p.weights.Lookup(groupingKey, cat)
			if !ok {
				return models.FinalScore{}, fmt.Errorf("category %q: %w", cat, models.ErrMissingCategoryWeight)
			}
			total += value * weight
			contributed = true
		}

		if !contributed {
			// No synonym anywhere: the field is unavailable, not zero.
			continue
		}

		rounded := roundTo(total, outputPrecision)
		fields[field.Name] = rounded
		if rounded != 0 {
			anySignal = true
		}
	}

	if !anySignal {
		metrics.RecordNoPrediction()
		return models.NoPredictionScore(match.ID), nil
	}

	return models.FinalScore{ContextID: match.ID, Fields: fields}, nil
}

// aggregateByCategory normalizes successful outputs and computes the
// per-category mean of every numeric measure. Categories where no engine
// reported yield no aggregate entry.
func (p *Pass) aggregateByCategory(results []engineResult) map[string]map[string]float64 {
	sums := make(map[string]map[string]float64)
	counts := make(map[string]map[string]int)

	for _, res := range results {
		if res.err != nil || res.output == nil {
			continue
		}

		normalized, dropped := Normalize(res.output)
		metrics.RecordNormalizationDrops(dropped)

		for key, value := range normalized {
			if !value.IsNumeric() {
				continue
			}
			if sums[res.category] == nil {
				sums[res.category] = make(map[string]float64)
				counts[res.category] = make(map[string]int)
			}
			sums[res.category][key] += value.Float()
			counts[res.category][key]++
		}
	}

	aggregates := make(map[string]map[string]float64, len(sums))
	for cat, measures := range sums {
		agg := make(map[string]float64, len(measures))
		for key, sum := range measures {
			agg[key] = sum / float64(counts[cat][key])
		}
		aggregates[cat] = agg
	}
	return aggregates
}

func roundTo(v float64, digits int) float64 {
	scale := math.Pow10(digits)
	return math.Round(v*scale) / scale
}
