package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/tipfusion/internal/adaptive"
	"github.com/yourusername/tipfusion/internal/engine"
	"github.com/yourusername/tipfusion/internal/fusion"
	"github.com/yourusername/tipfusion/internal/models"
	"github.com/yourusername/tipfusion/internal/service"
	"github.com/yourusername/tipfusion/internal/slate"
)

type memSlateRepo struct {
	saved []*models.Slate
}

func (m *memSlateRepo) Save(_ context.Context, s *models.Slate) error {
	m.saved = append(m.saved, s)
	return nil
}

func (m *memSlateRepo) GetByID(_ context.Context, _ uuid.UUID) (*models.Slate, error) {
	return nil, models.ErrNotFound
}

func (m *memSlateRepo) GetRecent(_ context.Context, _ int) ([]*models.Slate, error) {
	return m.saved, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	registry := engine.NewRegistry(engine.DefaultBaseWeights())
	eng := engine.EngineFunc{EngineName: "sharp-1", Fn: func(context.Context, models.MatchContext) (models.ScoringOutput, error) {
		return models.ScoringOutput{"over25": models.Numeric(0.6)}, nil
	}}
	require.NoError(t, registry.Register("sharp", eng))

	categories := adaptive.NewWeightStore(registry.BaseWeights())
	pass := fusion.NewPass(registry, categories, fusion.DefaultConfig(), nil)
	optimizer := slate.NewOptimizer(slate.DefaultConfig(), nil)
	predictionSvc := service.NewPredictionService(pass, optimizer, &memSlateRepo{}, nil)

	return NewServer("0", predictionSvc, nil, nil)
}

func postJSON(t *testing.T, handler http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(data))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestHandlePredict(t *testing.T) {
	s := newTestServer(t)

	rec := postJSON(t, s.handlePredict, PredictRequest{
		GroupingKey: "epl",
		Contexts: []models.MatchContext{
			{ID: "m1", Sport: models.SportFootball, Home: "A", Away: "B"},
		},
		Prices: service.PriceBook{"m1": {"over_2_5": 2.2}},
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp PredictResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.InDelta(t, 0.6*0.3, resp.Scores["m1"].Fields["over_2_5"], 1e-9)
	require.Len(t, resp.Candidates, 1)
	assert.Equal(t, models.MarketTotal, resp.Candidates[0].MarketType)
}

func TestHandlePredictRejectsEmptyContexts(t *testing.T) {
	s := newTestServer(t)

	rec := postJSON(t, s.handlePredict, PredictRequest{GroupingKey: "epl"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlePredictMethodNotAllowed(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/predict", nil)
	rec := httptest.NewRecorder()
	s.handlePredict(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleSlate(t *testing.T) {
	s := newTestServer(t)

	rec := postJSON(t, s.handleSlate, SlateRequest{
		Candidates: []models.Candidate{
			{ContextID: "m1", MarketType: models.MarketMatchWinner, Probability: 0.55, Price: 2.0, ValueScore: 0.25, Confidence: 0.65},
			{ContextID: "m2", MarketType: models.MarketHandicap, Probability: 0.50, Price: 1.9, ValueScore: 0.25, Confidence: 0.65},
			{ContextID: "m3", MarketType: models.MarketMatchWinner, Probability: 0.52, Price: 2.1, ValueScore: 0.25, Confidence: 0.65},
		},
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp SlateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "slate", resp.Outcome)
	require.NotNil(t, resp.Slate)
	assert.Len(t, resp.Slate.Legs, 3)
}

func TestHandleSlateBusinessOutcome(t *testing.T) {
	s := newTestServer(t)

	rec := postJSON(t, s.handleSlate, SlateRequest{
		Candidates: []models.Candidate{
			{ContextID: "m1", MarketType: models.MarketMatchWinner, Probability: 0.55, Price: 2.0, ValueScore: 0.25, Confidence: 0.65},
		},
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp SlateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "insufficient_candidates", resp.Outcome)
	assert.Nil(t, resp.Slate)
}

func TestHandlePropsShortlist(t *testing.T) {
	s := newTestServer(t)

	rec := postJSON(t, s.handleProps, SlateRequest{
		Candidates: []models.Candidate{
			{ContextID: "m1", ValueScore: 0.30},
			{ContextID: "m2", ValueScore: 0.01},
			{ContextID: "m3", ValueScore: 0.50},
			{ContextID: "m4", ValueScore: 0.20},
			{ContextID: "m5", ValueScore: 0.10},
		},
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Props []models.Candidate `json:"props"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Props, 3)
	assert.Equal(t, models.ContextID("m3"), resp.Props[0].ContextID)
}

func TestHandlePredictMalformedBody(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/predict", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	s.handlePredict(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
