package adaptive

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// Default adaptive parameters
const (
	DefaultLearningRate    = 0.1
	DefaultStabilityFactor = 0.85
	DefaultMinSamples      = 10

	neutralReward = 0.5
	minReward     = 0.01
	maxReward     = 1.0
	weightSumEps  = 1e-9
)

// Params tunes the weight evolution
type Params struct {
	LearningRate    float64
	StabilityFactor float64
	MinSamples      int
}

// DefaultParams returns the documented defaults
func DefaultParams() Params {
	return Params{
		LearningRate:    DefaultLearningRate,
		StabilityFactor: DefaultStabilityFactor,
		MinSamples:      DefaultMinSamples,
	}
}

// Updater converts tracked performance into a reward signal and evolves
// engine and category weight tables toward it. The same update shape is
// applied to the global tables and to per-grouping-key override tables,
// maintained independently so local evidence can diverge from the global
// view.
type Updater struct {
	tracker    *Tracker
	engines    *WeightStore
	categories *WeightStore
	params     Params
	logger     *logrus.Logger
}

// NewUpdater creates an updater over the given tracker and weight stores
func NewUpdater(tracker *Tracker, engines, categories *WeightStore, params Params, logger *logrus.Logger) *Updater {
	if params.LearningRate <= 0 {
		params.LearningRate = DefaultLearningRate
	}
	if params.StabilityFactor <= 0 {
		params.StabilityFactor = DefaultStabilityFactor
	}
	if params.MinSamples <= 0 {
		params.MinSamples = DefaultMinSamples
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Updater{
		tracker:    tracker,
		engines:    engines,
		categories: categories,
		params:     params,
		logger:     logger,
	}
}

// Reward converts an engine's tracked performance into a reward in
// [0.01, 1.0]. Fewer than MinSamples observations yield the neutral 0.5 so
// noise cannot move weights.
func (u *Updater) Reward(engineID string) float64 {
	rec, ok := u.tracker.Record(engineID)
	if !ok {
		return neutralReward
	}
	return u.rewardFromRecord(rec)
}

// ScopedReward is Reward computed from the (groupingKey, engine) record
func (u *Updater) ScopedReward(groupingKey, engineID string) float64 {
	rec, ok := u.tracker.ScopedRecord(groupingKey, engineID)
	if !ok {
		return neutralReward
	}
	return u.rewardFromRecord(rec)
}

func (u *Updater) rewardFromRecord(rec PerformanceRecord) float64 {
	if rec.Samples < u.params.MinSamples {
		return neutralReward
	}

	reward := 0.5*rec.WinRate() + 0.4*rec.AvgRealizedValue() + 0.1*(1-rec.VarianceProxy)

	if reward < minReward {
		return minReward
	}
	if reward > maxReward {
		return maxReward
	}
	return reward
}

// UpdateWeights evolves the global engine weight table for the given
// engines. Engines with no prior weight are seeded with the uniform prior
// 1/len(engineIDs). After the update the table is renormalized to sum to
// 1.0, a hard invariant.
func (u *Updater) UpdateWeights(engineIDs []string) error {
	if len(engineIDs) == 0 {
		return fmt.Errorf("update weights: empty engine list")
	}

	table := u.engines.GlobalSnapshot()
	u.applyUpdate(table, engineIDs, func(id string) float64 { return u.Reward(id) })
	if err := normalize(table); err != nil {
		return fmt.Errorf("update weights: %w", err)
	}
	u.engines.SetGlobal(table)

	u.logger.WithField("engines", len(engineIDs)).Debug("Global engine weights updated")
	return nil
}

// UpdateGroupWeights evolves a grouping key's engine weight table using the
// scoped performance records. A key with no prior table is seeded from the
// global table's current values.
func (u *Updater) UpdateGroupWeights(groupingKey string, engineIDs []string) error {
	if len(engineIDs) == 0 {
		return fmt.Errorf("update group weights: empty engine list")
	}

	table := u.engines.EnsureOverride(groupingKey)
	u.applyUpdate(table, engineIDs, func(id string) float64 { return u.ScopedReward(groupingKey, id) })
	if err := normalize(table); err != nil {
		return fmt.Errorf("update group weights %q: %w", groupingKey, err)
	}
	u.engines.SetOverride(groupingKey, table)

	u.logger.WithFields(logrus.Fields{
		"grouping_key": groupingKey,
		"engines":      len(engineIDs),
	}).Debug("Group engine weights updated")
	return nil
}

// UpdateCategoryWeights evolves the global category weight table consumed by
// fusion. A category's reward is the mean reward of its member engines;
// categories with no engines hold their current weight through the EMA.
func (u *Updater) UpdateCategoryWeights(categoryEngines map[string][]string) error {
	if len(categoryEngines) == 0 {
		return fmt.Errorf("update category weights: no categories")
	}

	categories := make([]string, 0, len(categoryEngines))
	for cat := range categoryEngines {
		categories = append(categories, cat)
	}

	table := u.categories.GlobalSnapshot()
	u.applyUpdate(table, categories, func(cat string) float64 {
		return u.categoryReward(categoryEngines[cat], func(id string) float64 { return u.Reward(id) })
	})
	if err := normalize(table); err != nil {
		return fmt.Errorf("update category weights: %w", err)
	}
	u.categories.SetGlobal(table)
	return nil
}

// UpdateGroupCategoryWeights is UpdateCategoryWeights against a grouping
// key's override table, driven by scoped rewards.
func (u *Updater) UpdateGroupCategoryWeights(groupingKey string, categoryEngines map[string][]string) error {
	if len(categoryEngines) == 0 {
		return fmt.Errorf("update group category weights: no categories")
	}

	categories := make([]string, 0, len(categoryEngines))
	for cat := range categoryEngines {
		categories = append(categories, cat)
	}

	table := u.categories.EnsureOverride(groupingKey)
	u.applyUpdate(table, categories, func(cat string) float64 {
		return u.categoryReward(categoryEngines[cat], func(id string) float64 {
			return u.ScopedReward(groupingKey, id)
		})
	})
	if err := normalize(table); err != nil {
		return fmt.Errorf("update group category weights %q: %w", groupingKey, err)
	}
	u.categories.SetOverride(groupingKey, table)
	return nil
}

func (u *Updater) categoryReward(engineIDs []string, rewardFn func(string) float64) float64 {
	if len(engineIDs) == 0 {
		return neutralReward
	}
	total := 0.0
	for _, id := range engineIDs {
		total += rewardFn(id)
	}
	return total / float64(len(engineIDs))
}

func (u *Updater) applyUpdate(table map[string]float64, names []string, rewardFn func(string) float64) {
	uniform := 1.0 / float64(len(names))
	for _, name := range names {
		if _, ok := table[name]; !ok {
			table[name] = uniform
		}
	}
	for _, name := range names {
		table[name] = table[name]*u.params.StabilityFactor + rewardFn(name)*u.params.LearningRate
	}
}

// normalize rescales a table so its weights sum to 1.0
func normalize(table map[string]float64) error {
	total := 0.0
	for _, w := range table {
		total += w
	}
	if total <= 0 {
		return fmt.Errorf("weight total %f is not positive", total)
	}
	for name, w := range table {
		table[name] = w / total
	}
	return nil
}

// CheckInvariant verifies a table sums to 1.0 within 1e-9
func CheckInvariant(table map[string]float64) error {
	total := 0.0
	for _, w := range table {
		total += w
	}
	if math.Abs(total-1.0) > weightSumEps {
		return fmt.Errorf("weight invariant violated: sum %.12f", total)
	}
	return nil
}
