// Package api exposes the fusion and slate operations over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/tipfusion/internal/adaptive"
	"github.com/yourusername/tipfusion/internal/models"
	"github.com/yourusername/tipfusion/internal/service"
	"github.com/yourusername/tipfusion/internal/slate"
)

// Server serves the prediction, slate and outcome endpoints
type Server struct {
	predictionSvc *service.PredictionService
	feedbackSvc   *service.FeedbackService
	validate      *validator.Validate
	server        *http.Server
	logger        *logrus.Logger
}

// NewServer creates the API server on the given port
func NewServer(port string, predictionSvc *service.PredictionService, feedbackSvc *service.FeedbackService, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.New()
	}

	s := &Server{
		predictionSvc: predictionSvc,
		feedbackSvc:   feedbackSvc,
		validate:      validator.New(),
		logger:        logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/predict", s.handlePredict)
	mux.HandleFunc("/v1/slate", s.handleSlate)
	mux.HandleFunc("/v1/props", s.handleProps)
	mux.HandleFunc("/v1/outcomes", s.handleOutcome)
	mux.HandleFunc("/v1/status", s.handleStatus)

	s.server = &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Start runs the API server until the context is cancelled
func (s *Server) Start(ctx context.Context) error {
	go func() {
		s.logger.WithField("addr", s.server.Addr).Info("API server starting")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Error("API server error")
		}
	}()

	go func() {
		<-ctx.Done()
		s.Shutdown()
	}()

	return nil
}

// Shutdown gracefully stops the API server
func (s *Server) Shutdown() error {
	if s.server == nil {
		return nil
	}

	s.logger.Info("API server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// PredictRequest is the /v1/predict payload
type PredictRequest struct {
	GroupingKey string                `json:"grouping_key"`
	Contexts    []models.MatchContext `json:"contexts" validate:"required,min=1,dive"`
	Prices      service.PriceBook     `json:"prices"`
}

// PredictResponse pairs the fused scores with the derived candidates
type PredictResponse struct {
	Scores     map[models.ContextID]models.FinalScore `json:"scores"`
	Candidates []models.Candidate                     `json:"candidates,omitempty"`
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	contexts := make(map[models.ContextID]models.MatchContext, len(req.Contexts))
	for _, match := range req.Contexts {
		contexts[match.ID] = match
	}

	scores, err := s.predictionSvc.Predict(r.Context(), req.GroupingKey, contexts)
	if err != nil {
		s.logger.WithError(err).Error("Prediction failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := PredictResponse{Scores: scores}
	if len(req.Prices) > 0 {
		resp.Candidates = s.predictionSvc.BuildCandidates(scores, req.Prices)
	}

	writeJSON(w, http.StatusOK, resp)
}

// SlateRequest is the /v1/slate and /v1/props payload
type SlateRequest struct {
	Candidates []models.Candidate `json:"candidates" validate:"required,min=1,dive"`
}

// SlateResponse is the tagged optimizer result
type SlateResponse struct {
	Outcome string        `json:"outcome"`
	Slate   *models.Slate `json:"slate,omitempty"`
}

func (s *Server) handleSlate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req SlateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := s.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.predictionSvc.BuildSlate(r.Context(), req.Candidates)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, SlateResponse{
		Outcome: result.Outcome.String(),
		Slate:   result.Slate,
	})
}

func (s *Server) handleProps(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req SlateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	props := s.predictionSvc.SelectProps(req.Candidates, slate.DefaultPropConfig())
	writeJSON(w, http.StatusOK, map[string]any{"props": props})
}

func (s *Server) handleOutcome(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var outcome models.Outcome
	if err := json.NewDecoder(r.Body).Decode(&outcome); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := s.validate.Struct(&outcome); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if outcome.SettledAt.IsZero() {
		outcome.SettledAt = time.Now().UTC()
	}

	if err := s.feedbackSvc.RecordOutcome(r.Context(), &outcome); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"id": outcome.ID.String()})
}

// StatusResponse reports the feedback backlog and engine summaries
type StatusResponse struct {
	PendingOutcomes int                `json:"pending_outcomes"`
	Engines         []adaptive.Summary `json:"engines,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	pending, summaries, err := s.feedbackSvc.Status(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{
		PendingOutcomes: pending,
		Engines:         summaries,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
