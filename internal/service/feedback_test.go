package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/tipfusion/internal/adaptive"
	"github.com/yourusername/tipfusion/internal/engine"
	"github.com/yourusername/tipfusion/internal/models"
)

// In-memory repositories for exercising the service without a database.

type memOutcomeRepo struct {
	outcomes []*models.Outcome
}

func (m *memOutcomeRepo) Save(_ context.Context, outcome *models.Outcome) error {
	m.outcomes = append(m.outcomes, outcome)
	return nil
}

func (m *memOutcomeRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Outcome, error) {
	for _, o := range m.outcomes {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *memOutcomeRepo) GetRecentUnprocessed(_ context.Context, limit int) ([]*models.Outcome, error) {
	var out []*models.Outcome
	for _, o := range m.outcomes {
		if !o.Processed {
			out = append(out, o)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *memOutcomeRepo) GetByEngine(_ context.Context, engineID string, _, _ time.Time) ([]*models.Outcome, error) {
	var out []*models.Outcome
	for _, o := range m.outcomes {
		if o.EngineID == engineID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memOutcomeRepo) MarkAsProcessed(_ context.Context, ids []uuid.UUID) error {
	set := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	for _, o := range m.outcomes {
		if set[o.ID] {
			o.Processed = true
		}
	}
	return nil
}

func (m *memOutcomeRepo) CountUnprocessed(_ context.Context) (int, error) {
	count := 0
	for _, o := range m.outcomes {
		if !o.Processed {
			count++
		}
	}
	return count, nil
}

type memSnapshotRepo struct {
	snapshots []*models.WeightSnapshot
}

func (m *memSnapshotRepo) SaveSnapshot(_ context.Context, snapshot *models.WeightSnapshot) error {
	m.snapshots = append(m.snapshots, snapshot)
	return nil
}

func (m *memSnapshotRepo) GetLatest(_ context.Context, groupingKey string) (*models.WeightSnapshot, error) {
	for i := len(m.snapshots) - 1; i >= 0; i-- {
		if m.snapshots[i].GroupingKey == groupingKey {
			return m.snapshots[i], nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *memSnapshotRepo) GetHistory(_ context.Context, groupingKey string, limit int) ([]*models.WeightSnapshot, error) {
	var out []*models.WeightSnapshot
	for i := len(m.snapshots) - 1; i >= 0 && len(out) < limit; i-- {
		if m.snapshots[i].GroupingKey == groupingKey {
			out = append(out, m.snapshots[i])
		}
	}
	return out, nil
}

func settledOutcome(engineID, league string, won bool, realized float64) *models.Outcome {
	return &models.Outcome{
		ID:            uuid.New(),
		EngineID:      engineID,
		League:        league,
		ContextID:     "ctx-1",
		Won:           won,
		RealizedValue: decimal.NewFromFloat(realized),
		SettledAt:     time.Now().UTC(),
	}
}

func newFeedbackFixture(t *testing.T) (*FeedbackService, *memOutcomeRepo, *memSnapshotRepo, *adaptive.WeightStore) {
	t.Helper()

	registry := engine.NewRegistry(engine.DefaultBaseWeights())
	for _, pair := range [][2]string{{"sharp", "sharp-1"}, {"sharp", "sharp-2"}, {"meta", "meta-1"}} {
		eng := engine.EngineFunc{EngineName: pair[1], Fn: func(context.Context, models.MatchContext) (models.ScoringOutput, error) {
			return nil, nil
		}}
		require.NoError(t, registry.Register(pair[0], eng))
	}

	tracker := adaptive.NewTracker()
	engines := adaptive.NewWeightStore(nil)
	categories := adaptive.NewWeightStore(registry.BaseWeights())
	updater := adaptive.NewUpdater(tracker, engines, categories, adaptive.DefaultParams(), nil)

	outcomeRepo := &memOutcomeRepo{}
	snapshotRepo := &memSnapshotRepo{}

	svc := NewFeedbackService(outcomeRepo, snapshotRepo, tracker, updater, categories, registry, nil)
	return svc, outcomeRepo, snapshotRepo, categories
}

func TestRecordOutcomeAssignsIdentity(t *testing.T) {
	svc, repo, _, _ := newFeedbackFixture(t)

	outcome := &models.Outcome{EngineID: "sharp-1", League: "epl", Won: true}
	require.NoError(t, svc.RecordOutcome(context.Background(), outcome))

	require.Len(t, repo.outcomes, 1)
	assert.NotEqual(t, uuid.Nil, repo.outcomes[0].ID)
	assert.False(t, repo.outcomes[0].CreatedAt.IsZero())
}

func TestProcessBatchEmptyBacklog(t *testing.T) {
	svc, _, snapshotRepo, _ := newFeedbackFixture(t)

	count, err := svc.ProcessBatch(context.Background(), 100)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, snapshotRepo.snapshots, "no update means no snapshot")
}

func TestProcessBatchUpdatesWeightsAndMarksProcessed(t *testing.T) {
	svc, outcomeRepo, snapshotRepo, categories := newFeedbackFixture(t)
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		require.NoError(t, svc.RecordOutcome(ctx, settledOutcome("sharp-1", "epl", true, 0.3)))
		require.NoError(t, svc.RecordOutcome(ctx, settledOutcome("meta-1", "epl", false, -0.3)))
	}

	count, err := svc.ProcessBatch(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 30, count)

	for _, o := range outcomeRepo.outcomes {
		assert.True(t, o.Processed)
	}

	table := categories.GlobalSnapshot()
	require.NoError(t, adaptive.CheckInvariant(table))
	assert.Greater(t, table["sharp"], table["meta"])

	// One global snapshot plus one for the epl override table.
	require.Len(t, snapshotRepo.snapshots, 2)
	keys := map[string]bool{}
	for _, snap := range snapshotRepo.snapshots {
		keys[snap.GroupingKey] = true
		require.NoError(t, adaptive.CheckInvariant(snap.Weights))
	}
	assert.True(t, keys[""])
	assert.True(t, keys["epl"])
}

func TestProcessBatchRespectsBatchSize(t *testing.T) {
	svc, _, _, _ := newFeedbackFixture(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, svc.RecordOutcome(ctx, settledOutcome("sharp-1", "epl", true, 0.1)))
	}

	count, err := svc.ProcessBatch(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	pending, _, err := svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, pending)
}

func TestRestoreWeights(t *testing.T) {
	svc, _, snapshotRepo, categories := newFeedbackFixture(t)
	ctx := context.Background()

	stored := map[string]float64{"sharp": 0.6, "meta": 0.4}
	snapshotRepo.snapshots = append(snapshotRepo.snapshots, &models.WeightSnapshot{
		ID: uuid.New(), Weights: stored, CreatedAt: time.Now().UTC(),
	})
	snapshotRepo.snapshots = append(snapshotRepo.snapshots, &models.WeightSnapshot{
		ID: uuid.New(), GroupingKey: "epl", Weights: map[string]float64{"sharp": 0.8, "meta": 0.2}, CreatedAt: time.Now().UTC(),
	})

	require.NoError(t, svc.RestoreWeights(ctx, []string{"epl", "missing"}))

	assert.Equal(t, stored, categories.GlobalSnapshot())
	override, ok := categories.OverrideSnapshot("epl")
	require.True(t, ok)
	assert.Equal(t, 0.8, override["sharp"])
}

func TestRestoreWeightsNoSnapshot(t *testing.T) {
	svc, _, _, categories := newFeedbackFixture(t)

	before := categories.GlobalSnapshot()
	require.NoError(t, svc.RestoreWeights(context.Background(), nil))
	assert.Equal(t, before, categories.GlobalSnapshot(), "base weights must survive an empty history")
}

func TestStatusSummaries(t *testing.T) {
	svc, _, _, _ := newFeedbackFixture(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, svc.RecordOutcome(ctx, settledOutcome("sharp-1", "epl", true, 0.2)))
	}
	_, err := svc.ProcessBatch(ctx, 100)
	require.NoError(t, err)

	pending, summaries, err := svc.Status(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
	require.Len(t, summaries, 1)
	assert.Equal(t, "sharp-1", summaries[0].EngineID)
	assert.Equal(t, 5, summaries[0].Samples)
}
