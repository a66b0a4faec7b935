package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/yourusername/tipfusion/internal/models"
)

// RemoteEngineConfig holds configuration for an HTTP-backed scoring engine
type RemoteEngineConfig struct {
	Name              string
	URL               string
	Timeout           time.Duration
	MaxRetries        int
	RetryWaitMin      time.Duration
	RetryWaitMax      time.Duration
	RateLimit         float64 // requests per second
	CircuitBreakerMax int     // consecutive failures before the circuit opens
}

// DefaultRemoteEngineConfig returns recommended defaults
func DefaultRemoteEngineConfig(name, url string) RemoteEngineConfig {
	return RemoteEngineConfig{
		Name:              name,
		URL:               url,
		Timeout:           10 * time.Second,
		MaxRetries:        3,
		RetryWaitMin:      100 * time.Millisecond,
		RetryWaitMax:      5 * time.Second,
		RateLimit:         20.0,
		CircuitBreakerMax: 5,
	}
}

// RemoteEngine scores match contexts by calling an external scoring service
// over HTTP. It satisfies the Engine contract; transport failures surface as
// scoring errors and are isolated by the fusion pass like any other engine
// failure.
type RemoteEngine struct {
	name    string
	url     string
	client  *retryablehttp.Client
	limiter *rate.Limiter
	logger  *logrus.Logger

	mu                sync.Mutex
	consecutiveErrors int
	breakerMax        int
	lastError         error
}

// NewRemoteEngine creates a remote engine from config
func NewRemoteEngine(cfg RemoteEngineConfig, logger *logrus.Logger) *RemoteEngine {
	if logger == nil {
		logger = logrus.New()
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient.Timeout = cfg.Timeout
	retryClient.RetryMax = cfg.MaxRetries
	retryClient.RetryWaitMin = cfg.RetryWaitMin
	retryClient.RetryWaitMax = cfg.RetryWaitMax
	retryClient.Logger = nil

	limit := cfg.RateLimit
	if limit <= 0 {
		limit = 20.0
	}

	return &RemoteEngine{
		name:       cfg.Name,
		url:        cfg.URL,
		client:     retryClient,
		limiter:    rate.NewLimiter(rate.Limit(limit), 1),
		logger:     logger,
		breakerMax: cfg.CircuitBreakerMax,
	}
}

// Name returns the engine name
func (e *RemoteEngine) Name() string {
	return e.name
}

// Score posts the match context to the remote scoring service and coerces
// the JSON response into a ScoringOutput.
func (e *RemoteEngine) Score(ctx context.Context, match models.MatchContext) (models.ScoringOutput, error) {
	if err := e.checkBreaker(); err != nil {
		return nil, err
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	body, err := json.Marshal(match)
	if err != nil {
		return nil, fmt.Errorf("marshal match context: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build scoring request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		e.recordFailure(err)
		return nil, fmt.Errorf("engine %s request failed: %w", e.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("engine %s returned status %d", e.name, resp.StatusCode)
		e.recordFailure(err)
		return nil, err
	}

	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		e.recordFailure(err)
		return nil, fmt.Errorf("engine %s returned malformed output: %w", e.name, err)
	}

	e.recordSuccess()

	output := make(models.ScoringOutput, len(raw))
	for key, value := range raw {
		output[key] = models.CoerceValue(value)
	}
	return output, nil
}

func (e *RemoteEngine) checkBreaker() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.breakerMax > 0 && e.consecutiveErrors >= e.breakerMax {
		return fmt.Errorf("engine %s circuit breaker open after %d consecutive failures: %w",
			e.name, e.consecutiveErrors, e.lastError)
	}
	return nil
}

func (e *RemoteEngine) recordFailure(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.consecutiveErrors++
	e.lastError = err

	if e.breakerMax > 0 && e.consecutiveErrors == e.breakerMax {
		e.logger.WithFields(logrus.Fields{
			"engine":   e.name,
			"failures": e.consecutiveErrors,
		}).Warn("Remote engine circuit breaker opened")
	}
}

func (e *RemoteEngine) recordSuccess() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.consecutiveErrors = 0
	e.lastError = nil
}

// ResetBreaker manually closes the circuit breaker
func (e *RemoteEngine) ResetBreaker() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.consecutiveErrors = 0
	e.lastError = nil
}
