package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/tipfusion/internal/adaptive"
	"github.com/yourusername/tipfusion/internal/engine"
	"github.com/yourusername/tipfusion/internal/metrics"
	"github.com/yourusername/tipfusion/internal/models"
	"github.com/yourusername/tipfusion/internal/repository"
)

// FeedbackService drains settled outcomes into the performance tracker and
// evolves the engine and category weight tables.
type FeedbackService struct {
	outcomeRepo  repository.OutcomeRepository
	snapshotRepo repository.WeightSnapshotRepository
	tracker      *adaptive.Tracker
	updater      *adaptive.Updater
	categories   *adaptive.WeightStore
	registry     *engine.Registry
	logger       *logrus.Logger
}

// NewFeedbackService creates a new feedback service
func NewFeedbackService(
	outcomeRepo repository.OutcomeRepository,
	snapshotRepo repository.WeightSnapshotRepository,
	tracker *adaptive.Tracker,
	updater *adaptive.Updater,
	categories *adaptive.WeightStore,
	registry *engine.Registry,
	logger *logrus.Logger,
) *FeedbackService {
	if logger == nil {
		logger = logrus.New()
	}
	return &FeedbackService{
		outcomeRepo:  outcomeRepo,
		snapshotRepo: snapshotRepo,
		tracker:      tracker,
		updater:      updater,
		categories:   categories,
		registry:     registry,
		logger:       logger,
	}
}

// RecordOutcome persists a single settled outcome for a later batch run
func (s *FeedbackService) RecordOutcome(ctx context.Context, outcome *models.Outcome) error {
	if outcome.ID == uuid.Nil {
		outcome.ID = uuid.New()
	}
	if outcome.CreatedAt.IsZero() {
		outcome.CreatedAt = time.Now().UTC()
	}

	if err := s.outcomeRepo.Save(ctx, outcome); err != nil {
		return fmt.Errorf("failed to record outcome: %w", err)
	}

	metrics.RecordOutcomeObserved()
	s.logger.WithFields(logrus.Fields{
		"engine_id": outcome.EngineID,
		"league":    outcome.League,
		"won":       outcome.Won,
	}).Debug("Outcome recorded")

	return nil
}

// ProcessBatch drains up to batchSize unprocessed outcomes into the tracker,
// runs the adaptive weight updates for every engine and every grouping key
// seen in the batch, snapshots the evolved tables and marks the outcomes as
// processed. Returns the number of outcomes consumed.
func (s *FeedbackService) ProcessBatch(ctx context.Context, batchSize int) (int, error) {
	outcomes, err := s.outcomeRepo.GetRecentUnprocessed(ctx, batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to get unprocessed outcomes: %w", err)
	}

	if len(outcomes) == 0 {
		s.logger.Info("No unprocessed outcomes to apply")
		return 0, nil
	}

	keys := make(map[string]bool)
	ids := make([]uuid.UUID, 0, len(outcomes))
	for _, outcome := range outcomes {
		s.tracker.RecordOutcome(outcome.EngineID, outcome.League, outcome.Won, outcome.RealizedFloat())
		if outcome.League != "" {
			keys[outcome.League] = true
		}
		ids = append(ids, outcome.ID)
	}

	if err := s.updateWeights(keys); err != nil {
		return 0, err
	}

	if err := s.snapshotWeights(ctx, keys); err != nil {
		s.logger.WithError(err).Warn("Failed to snapshot weights")
		// Weight tables are already updated in memory; the next batch
		// snapshots again.
	}

	if err := s.outcomeRepo.MarkAsProcessed(ctx, ids); err != nil {
		return 0, fmt.Errorf("failed to mark outcomes as processed: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"outcomes":      len(outcomes),
		"grouping_keys": len(keys),
	}).Info("Feedback batch applied")

	return len(outcomes), nil
}

func (s *FeedbackService) updateWeights(keys map[string]bool) error {
	engineIDs := s.registry.EngineNames()
	categoryEngines := s.registry.CategoryEngines()

	if err := s.updater.UpdateWeights(engineIDs); err != nil {
		return fmt.Errorf("failed to update engine weights: %w", err)
	}
	if err := s.updater.UpdateCategoryWeights(categoryEngines); err != nil {
		return fmt.Errorf("failed to update category weights: %w", err)
	}

	sorted := make([]string, 0, len(keys))
	for key := range keys {
		sorted = append(sorted, key)
	}
	sort.Strings(sorted)

	for _, key := range sorted {
		if err := s.updater.UpdateGroupWeights(key, engineIDs); err != nil {
			return fmt.Errorf("failed to update group weights for %q: %w", key, err)
		}
		if err := s.updater.UpdateGroupCategoryWeights(key, categoryEngines); err != nil {
			return fmt.Errorf("failed to update group category weights for %q: %w", key, err)
		}
	}

	metrics.RecordWeightUpdate(s.categories.GlobalSnapshot())
	return nil
}

func (s *FeedbackService) snapshotWeights(ctx context.Context, keys map[string]bool) error {
	now := time.Now().UTC()

	snapshot := &models.WeightSnapshot{
		ID:        uuid.New(),
		Weights:   s.categories.GlobalSnapshot(),
		CreatedAt: now,
	}
	if err := s.snapshotRepo.SaveSnapshot(ctx, snapshot); err != nil {
		return err
	}

	for key := range keys {
		table, ok := s.categories.OverrideSnapshot(key)
		if !ok {
			continue
		}
		scoped := &models.WeightSnapshot{
			ID:          uuid.New(),
			GroupingKey: key,
			Weights:     table,
			CreatedAt:   now,
		}
		if err := s.snapshotRepo.SaveSnapshot(ctx, scoped); err != nil {
			return err
		}
	}

	return nil
}

// RestoreWeights seeds the category weight store from the latest persisted
// snapshots so a restarted process resumes from evolved weights rather than
// the static base table.
func (s *FeedbackService) RestoreWeights(ctx context.Context, groupingKeys []string) error {
	global, err := s.snapshotRepo.GetLatest(ctx, "")
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("No persisted weight snapshot, starting from base weights")
			return nil
		}
		return fmt.Errorf("failed to restore global weights: %w", err)
	}
	s.categories.SetGlobal(global.Weights)

	for _, key := range groupingKeys {
		scoped, err := s.snapshotRepo.GetLatest(ctx, key)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				continue
			}
			return fmt.Errorf("failed to restore weights for %q: %w", key, err)
		}
		s.categories.SetOverride(key, scoped.Weights)
	}

	s.logger.WithField("snapshot_at", global.CreatedAt).Info("Weight tables restored from snapshot")
	return nil
}

// Status reports the feedback backlog and per-engine performance summaries
func (s *FeedbackService) Status(ctx context.Context) (int, []adaptive.Summary, error) {
	pending, err := s.outcomeRepo.CountUnprocessed(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to count unprocessed outcomes: %w", err)
	}

	var summaries []adaptive.Summary
	for _, name := range s.registry.EngineNames() {
		if summary, ok := s.tracker.Summarize(name); ok {
			summaries = append(summaries, summary)
		}
	}

	return pending, summaries, nil
}
