// Package service wires the fusion core, the slate optimizer and the
// adaptive feedback loop into operations the binaries expose.
package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/tipfusion/internal/fusion"
	"github.com/yourusername/tipfusion/internal/models"
	"github.com/yourusername/tipfusion/internal/repository"
	"github.com/yourusername/tipfusion/internal/slate"
)

// PriceBook carries the bookmaker prices available per context and canonical
// market field. Fields without a quoted price never become candidates.
type PriceBook map[models.ContextID]map[string]float64

// PredictionService runs fusion over match contexts and turns the fused
// scores into slate candidates.
type PredictionService struct {
	pass      *fusion.Pass
	optimizer *slate.Optimizer
	slateRepo repository.SlateRepository
	logger    *logrus.Logger
}

// NewPredictionService creates a new prediction service. slateRepo may be nil
// when slates are not persisted.
func NewPredictionService(
	pass *fusion.Pass,
	optimizer *slate.Optimizer,
	slateRepo repository.SlateRepository,
	logger *logrus.Logger,
) *PredictionService {
	if logger == nil {
		logger = logrus.New()
	}
	return &PredictionService{
		pass:      pass,
		optimizer: optimizer,
		slateRepo: slateRepo,
		logger:    logger,
	}
}

// Predict fuses all registered engines over the supplied contexts
func (s *PredictionService) Predict(ctx context.Context, groupingKey string, contexts map[models.ContextID]models.MatchContext) (map[models.ContextID]models.FinalScore, error) {
	scores, err := s.pass.Fuse(ctx, groupingKey, contexts)
	if err != nil {
		return nil, fmt.Errorf("prediction failed: %w", err)
	}

	noPrediction := 0
	for _, score := range scores {
		if score.NoPrediction {
			noPrediction++
		}
	}

	s.logger.WithFields(logrus.Fields{
		"grouping_key":  groupingKey,
		"contexts":      len(contexts),
		"no_prediction": noPrediction,
	}).Info("Fusion pass completed")

	return scores, nil
}

// BuildCandidates crosses fused scores with the price book into slate
// candidates. Each candidate's value score is prob*price - 1 and its
// confidence is the fused probability itself. Contexts flagged NoPrediction
// contribute nothing. Output order is fixed: contexts sorted by ID, fields
// sorted by name.
func (s *PredictionService) BuildCandidates(scores map[models.ContextID]models.FinalScore, prices PriceBook) []models.Candidate {
	ids := make([]models.ContextID, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var candidates []models.Candidate
	for _, id := range ids {
		score := scores[id]
		if score.NoPrediction {
			continue
		}

		quoted := prices[id]
		if len(quoted) == 0 {
			continue
		}

		fields := make([]string, 0, len(score.Fields))
		for field := range score.Fields {
			fields = append(fields, field)
		}
		sort.Strings(fields)

		for _, field := range fields {
			price, ok := quoted[field]
			if !ok || price <= 1 {
				continue
			}
			prob := score.Fields[field]
			candidates = append(candidates, models.Candidate{
				ContextID:   id,
				MarketType:  marketTypeFor(field),
				Selection:   field,
				Probability: prob,
				Price:       price,
				ValueScore:  prob*price - 1,
				Confidence:  prob,
			})
		}
	}

	return candidates
}

// BuildSlate runs the optimizer over the candidate pool and persists the
// selected slate when a repository is configured.
func (s *PredictionService) BuildSlate(ctx context.Context, pool []models.Candidate) (slate.Result, error) {
	result := s.optimizer.Optimize(ctx, pool)

	if result.Outcome == slate.OutcomeSlate && s.slateRepo != nil {
		if err := s.slateRepo.Save(ctx, result.Slate); err != nil {
			s.logger.WithError(err).Warn("Failed to persist slate")
			// The slate itself is still valid; persistence is best effort.
		}
	}

	return result, nil
}

// SelectProps picks the standalone prop shortlist from the pool
func (s *PredictionService) SelectProps(pool []models.Candidate, cfg slate.PropConfig) []models.Candidate {
	return slate.SelectProps(pool, cfg)
}

// marketTypeFor classifies a canonical field name into the market family the
// correlation policy reasons about.
func marketTypeFor(field string) models.MarketType {
	switch {
	case strings.HasPrefix(field, "over_"), strings.HasPrefix(field, "under_"):
		return models.MarketTotal
	case strings.HasPrefix(field, "btts_"):
		return models.MarketBTTS
	case strings.HasPrefix(field, "ah_"), strings.HasPrefix(field, "handicap_"), strings.HasPrefix(field, "spread_"):
		return models.MarketHandicap
	case strings.HasSuffix(field, "_win"):
		return models.MarketMatchWinner
	default:
		return models.MarketProp
	}
}
