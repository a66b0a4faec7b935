package fusion

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/tipfusion/internal/engine"
	"github.com/yourusername/tipfusion/internal/models"
)

type staticWeights map[string]float64

func (w staticWeights) Lookup(_, category string) (float64, bool) {
	v, ok := w[category]
	return v, ok
}

func staticEngine(name string, output models.ScoringOutput) engine.Engine {
	return engine.EngineFunc{
		EngineName: name,
		Fn: func(context.Context, models.MatchContext) (models.ScoringOutput, error) {
			return output.Clone(), nil
		},
	}
}

func failingEngine(name string) engine.Engine {
	return engine.EngineFunc{
		EngineName: name,
		Fn: func(context.Context, models.MatchContext) (models.ScoringOutput, error) {
			return nil, errors.New("boom")
		},
	}
}

func panickingEngine(name string) engine.Engine {
	return engine.EngineFunc{
		EngineName: name,
		Fn: func(context.Context, models.MatchContext) (models.ScoringOutput, error) {
			panic("engine bug")
		},
	}
}

func footballContext(id string) models.MatchContext {
	return models.MatchContext{
		ID:    models.ContextID(id),
		Sport: models.SportFootball,
		Home:  "Home FC",
		Away:  "Away FC",
	}
}

func newTestRegistry(t *testing.T, regs map[string][]engine.Engine) *engine.Registry {
	t.Helper()
	registry := engine.NewRegistry(engine.DefaultBaseWeights())
	for category, engines := range regs {
		for _, eng := range engines {
			require.NoError(t, registry.Register(category, eng))
		}
	}
	return registry
}

func TestFuseWeightedCombination(t *testing.T) {
	registry := newTestRegistry(t, map[string][]engine.Engine{
		"sharp": {staticEngine("sharp-1", models.ScoringOutput{
			"over25": models.Numeric(0.6),
		})},
		"statistical": {staticEngine("stat-1", models.ScoringOutput{
			"over25": models.Numeric(0.4),
		})},
	})

	weights := staticWeights{"sharp": 0.3, "statistical": 0.2}
	pass := NewPass(registry, weights, DefaultConfig(), nil)

	scores, err := pass.Fuse(context.Background(), "", map[models.ContextID]models.MatchContext{
		"m1": footballContext("m1"),
	})
	require.NoError(t, err)

	score := scores["m1"]
	assert.False(t, score.NoPrediction)
	// 0.6*0.3 + 0.4*0.2 = 0.26; missing categories are skipped without
	// renormalizing the remaining weights.
	assert.InDelta(t, 0.26, score.Fields["over_2_5"], 1e-9)
	_, present := score.Fields["btts_yes"]
	assert.False(t, present, "field with no contribution must be absent, not zero")
}

func TestFuseSynonymAveraging(t *testing.T) {
	registry := newTestRegistry(t, map[string][]engine.Engine{
		"sharp": {staticEngine("sharp-1", models.ScoringOutput{
			"over25": models.Numeric(0.6),
			"o25":    models.Numeric(0.4),
		})},
	})

	pass := NewPass(registry, staticWeights{"sharp": 1.0}, DefaultConfig(), nil)

	scores, err := pass.Fuse(context.Background(), "", map[models.ContextID]models.MatchContext{
		"m1": footballContext("m1"),
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, scores["m1"].Fields["over_2_5"], 1e-9)
}

func TestFuseCategoryMeanAcrossEngines(t *testing.T) {
	registry := newTestRegistry(t, map[string][]engine.Engine{
		"sharp": {
			staticEngine("sharp-1", models.ScoringOutput{"over25": models.Numeric(0.8)}),
			staticEngine("sharp-2", models.ScoringOutput{"over25": models.Numeric(0.4)}),
		},
	})

	pass := NewPass(registry, staticWeights{"sharp": 1.0}, DefaultConfig(), nil)

	scores, err := pass.Fuse(context.Background(), "", map[models.ContextID]models.MatchContext{
		"m1": footballContext("m1"),
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.6, scores["m1"].Fields["over_2_5"], 1e-9)
}

func TestFuseFailureIsolation(t *testing.T) {
	healthy := map[string][]engine.Engine{
		"sharp": {staticEngine("sharp-1", models.ScoringOutput{"over25": models.Numeric(0.6)})},
		"deep":  {staticEngine("deep-1", models.ScoringOutput{"over25": models.Numeric(0.5)})},
	}

	clean := newTestRegistry(t, healthy)
	cleanPass := NewPass(clean, staticWeights{"sharp": 0.3, "deep": 0.25, "statistical": 0.2}, DefaultConfig(), nil)

	faulty := newTestRegistry(t, healthy)
	require.NoError(t, faulty.Register("statistical", failingEngine("stat-bad")))
	require.NoError(t, faulty.Register("statistical", panickingEngine("stat-worse")))
	faultyPass := NewPass(faulty, staticWeights{"sharp": 0.3, "deep": 0.25, "statistical": 0.2}, DefaultConfig(), nil)

	ctxs := map[models.ContextID]models.MatchContext{"m1": footballContext("m1")}

	want, err := cleanPass.Fuse(context.Background(), "", ctxs)
	require.NoError(t, err)
	got, err := faultyPass.Fuse(context.Background(), "", ctxs)
	require.NoError(t, err)

	assert.Equal(t, want["m1"].Fields, got["m1"].Fields,
		"failing engines must be equivalent to their absence")
}

func TestFuseNoPredictionSentinel(t *testing.T) {
	registry := newTestRegistry(t, map[string][]engine.Engine{
		"sharp": {staticEngine("sharp-1", models.ScoringOutput{
			"over25": models.Numeric(0.0),
			"note":   models.Opaque("low liquidity"),
		})},
	})

	pass := NewPass(registry, staticWeights{"sharp": 1.0}, DefaultConfig(), nil)

	scores, err := pass.Fuse(context.Background(), "", map[models.ContextID]models.MatchContext{
		"m1": footballContext("m1"),
	})
	require.NoError(t, err)

	score := scores["m1"]
	assert.True(t, score.NoPrediction)
	assert.Empty(t, score.Fields)
}

func TestFuseMissingCategoryWeightFatal(t *testing.T) {
	registry := newTestRegistry(t, map[string][]engine.Engine{
		"sharp": {staticEngine("sharp-1", models.ScoringOutput{"over25": models.Numeric(0.6)})},
	})

	pass := NewPass(registry, staticWeights{}, DefaultConfig(), nil)

	_, err := pass.Fuse(context.Background(), "", map[models.ContextID]models.MatchContext{
		"m1": footballContext("m1"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrMissingCategoryWeight))
}

func TestFuseNoEnginesRegistered(t *testing.T) {
	registry := engine.NewRegistry(engine.DefaultBaseWeights())
	pass := NewPass(registry, staticWeights{}, DefaultConfig(), nil)

	_, err := pass.Fuse(context.Background(), "", nil)
	assert.True(t, errors.Is(err, models.ErrNoEnginesRegistered))
}

func TestFuseDeterministic(t *testing.T) {
	registry := newTestRegistry(t, map[string][]engine.Engine{
		"sharp": {
			staticEngine("sharp-1", models.ScoringOutput{"over25": models.Numeric(0.61234567)}),
			staticEngine("sharp-2", models.ScoringOutput{"u25": models.Numeric(0.39876543)}),
		},
		"deep": {staticEngine("deep-1", models.ScoringOutput{"btts_yes": models.Numeric(0.55)})},
	})

	pass := NewPass(registry, staticWeights{"sharp": 0.3, "deep": 0.25}, Config{Workers: 2}, nil)

	ctxs := map[models.ContextID]models.MatchContext{
		"m1": footballContext("m1"),
		"m2": footballContext("m2"),
		"m3": footballContext("m3"),
	}

	first, err := pass.Fuse(context.Background(), "", ctxs)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := pass.Fuse(context.Background(), "", ctxs)
		require.NoError(t, err)
		assert.Equal(t, first, again, "run %d diverged", i)
	}
}

func TestFuseRoundsToFourDecimals(t *testing.T) {
	registry := newTestRegistry(t, map[string][]engine.Engine{
		"sharp": {staticEngine("sharp-1", models.ScoringOutput{"over25": models.Numeric(0.123456789)})},
	})

	pass := NewPass(registry, staticWeights{"sharp": 1.0}, DefaultConfig(), nil)

	scores, err := pass.Fuse(context.Background(), "", map[models.ContextID]models.MatchContext{
		"m1": footballContext("m1"),
	})
	require.NoError(t, err)
	assert.Equal(t, 0.1235, scores["m1"].Fields["over_2_5"])
}

func TestFuseUsesCache(t *testing.T) {
	calls := 0
	counting := engine.EngineFunc{
		EngineName: "sharp-1",
		Fn: func(context.Context, models.MatchContext) (models.ScoringOutput, error) {
			calls++
			return models.ScoringOutput{"over25": models.Numeric(0.6)}, nil
		},
	}

	registry := engine.NewRegistry(engine.DefaultBaseWeights())
	require.NoError(t, registry.Register("sharp", counting))

	cache := NewCache(time.Minute, 100)
	pass := NewPass(registry, staticWeights{"sharp": 1.0}, Config{Cache: cache}, nil)

	ctxs := map[models.ContextID]models.MatchContext{"m1": footballContext("m1")}

	first, err := pass.Fuse(context.Background(), "league:test", ctxs)
	require.NoError(t, err)
	second, err := pass.Fuse(context.Background(), "league:test", ctxs)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls, "second fuse must be served from cache")

	hits, misses, _ := cache.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
}

func TestFuseUnknownSportIdentitySchema(t *testing.T) {
	registry := newTestRegistry(t, map[string][]engine.Engine{
		"sharp": {staticEngine("sharp-1", models.ScoringOutput{
			"frame_handicap": models.Numeric(0.7),
		})},
	})

	pass := NewPass(registry, staticWeights{"sharp": 1.0}, DefaultConfig(), nil)

	scores, err := pass.Fuse(context.Background(), "", map[models.ContextID]models.MatchContext{
		"m1": {ID: "m1", Sport: "snooker"},
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.7, scores["m1"].Fields["frame_handicap"], 1e-9)
}

func TestNormalizeClampsAndDrops(t *testing.T) {
	output := models.ScoringOutput{
		"a":    models.Numeric(1.7),
		"b":    models.Numeric(-0.3),
		"c":    models.Numeric(0.42),
		"nan":  models.Numeric(math.NaN()),
		"inf":  models.Numeric(math.Inf(1)),
		"note": models.Opaque("keep me"),
	}

	normalized, dropped := Normalize(output)
	assert.Equal(t, 2, dropped)
	assert.Equal(t, 1.0, normalized["a"].Float())
	assert.Equal(t, 0.0, normalized["b"].Float())
	assert.Equal(t, 0.42, normalized["c"].Float())
	assert.Equal(t, "keep me", normalized["note"].Value())
	_, hasNaN := normalized["nan"]
	assert.False(t, hasNaN)
}

func TestNormalizeIdempotent(t *testing.T) {
	output := models.ScoringOutput{
		"a": models.Numeric(2.0),
		"b": models.Numeric(0.25),
	}

	once, _ := Normalize(output)
	twice, dropped := Normalize(once)
	assert.Zero(t, dropped)
	assert.Equal(t, once, twice)
}

func TestProjectFieldUnavailable(t *testing.T) {
	field := canonicalField{Name: "over_2_5", Synonyms: []string{"over25", "o25"}}

	_, ok := projectField(field, map[string]float64{"under25": 0.4})
	assert.False(t, ok)

	v, ok := projectField(field, map[string]float64{"over25": 0.6, "o25": 0.4})
	assert.True(t, ok)
	assert.InDelta(t, 0.5, v, 1e-9)
}
