// Package main provides the entry point for the fusion daemon.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/tipfusion/internal/adaptive"
	"github.com/yourusername/tipfusion/internal/api"
	"github.com/yourusername/tipfusion/internal/config"
	"github.com/yourusername/tipfusion/internal/database"
	"github.com/yourusername/tipfusion/internal/engine"
	"github.com/yourusername/tipfusion/internal/fusion"
	"github.com/yourusername/tipfusion/internal/health"
	"github.com/yourusername/tipfusion/internal/logger"
	"github.com/yourusername/tipfusion/internal/metrics"
	"github.com/yourusername/tipfusion/internal/repository"
	"github.com/yourusername/tipfusion/internal/scheduler"
	"github.com/yourusername/tipfusion/internal/service"
	"github.com/yourusername/tipfusion/internal/slate"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
)

func main() {
	configPath := os.Getenv("TIPFUSION_CONFIG")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := config.LoadWithDefaults(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Load AWS secrets if enabled
	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			log.Fatalf("AWS_REGION and AWS_SECRET_NAME environment variables must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(cfg, region, secretName); err != nil {
			log.Fatalf("Failed to load secrets: %v", err)
		}
	}

	if err := config.Validate(cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	appLog := logger.NewLogger(cfg.App.LogLevel)
	appLog.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"version":     Version,
		"commit":      GitCommit,
	}).Info("TipFusion daemon starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Initialize(ctx, cfg)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()
	appLog.Info("Database connection established")

	repos, err := repository.NewRepositories(db)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to initialize repositories")
	}

	registry, err := buildRegistry(cfg, appLog)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to build engine registry")
	}

	metrics.InitRegistry()
	metrics.RegisteredEngines.Set(float64(registry.Size()))

	// Adaptive layer: tracker plus independent engine and category weight
	// tables, category table seeded from the configured base weights.
	tracker := adaptive.NewTracker()
	engineWeights := adaptive.NewWeightStore(uniformWeights(registry.EngineNames()))
	categoryWeights := adaptive.NewWeightStore(registry.BaseWeights())
	updater := adaptive.NewUpdater(tracker, engineWeights, categoryWeights, adaptive.Params{
		LearningRate:    cfg.Adaptive.LearningRate,
		StabilityFactor: cfg.Adaptive.StabilityFactor,
		MinSamples:      cfg.Adaptive.MinSamples,
	}, appLog)

	var scoreCache *fusion.Cache
	if cfg.CacheTTL() > 0 {
		scoreCache = fusion.NewCache(cfg.CacheTTL(), cfg.Fusion.CacheMaxSize)
	}

	pass := fusion.NewPass(registry, categoryWeights, fusion.Config{
		Workers:       cfg.Fusion.Workers,
		EngineTimeout: cfg.EngineTimeout(),
		Cache:         scoreCache,
	}, appLog)

	optimizer := slate.NewOptimizer(slate.Config{
		MinValueScore: cfg.Slate.MinValueScore,
		MinConfidence: cfg.Slate.MinConfidence,
		SlateSizes:    cfg.Slate.Sizes,
		MinTotalPrice: cfg.Slate.MinTotalPrice,
		MaxTotalPrice: cfg.Slate.MaxTotalPrice,
	}, appLog)

	predictionSvc := service.NewPredictionService(pass, optimizer, repos.Slate, appLog)

	feedbackSvc := service.NewFeedbackService(
		repos.Outcome, repos.WeightSnapshot, tracker, updater, categoryWeights, registry, appLog,
	)

	// Resume from the last persisted weight tables
	if err := feedbackSvc.RestoreWeights(ctx, nil); err != nil {
		appLog.WithError(err).Warn("Failed to restore persisted weights, continuing from base weights")
	}

	sched := scheduler.NewScheduler(feedbackSvc, appLog)
	if err := sched.ScheduleFeedbackDrain(cfg.Feedback.Cron, cfg.Feedback.BatchSize); err != nil {
		appLog.WithError(err).Fatal("Failed to schedule feedback drain")
	}
	if err := sched.ScheduleBacklogReport(300); err != nil {
		appLog.WithError(err).Fatal("Failed to schedule backlog report")
	}
	if err := sched.Start(); err != nil {
		appLog.WithError(err).Fatal("Failed to start scheduler")
	}
	defer func() {
		if err := sched.Stop(); err != nil {
			appLog.WithError(err).Error("Failed to stop scheduler")
		}
	}()

	apiPort := cfg.API.Port
	if apiPort == "" {
		apiPort = "8081"
	}
	apiServer := api.NewServer(apiPort, predictionSvc, feedbackSvc, appLog)
	if err := apiServer.Start(ctx); err != nil {
		appLog.WithError(err).Fatal("Failed to start API server")
	}

	healthServer := health.NewServer(health.Config{
		ServiceName: cfg.App.Name,
		Version:     Version,
		Commit:      GitCommit,
		Port:        cfg.Health.Port,
		Logger:      appLog,
		DB:          db,
		Engines:     registry,
	})
	if err := healthServer.Start(ctx); err != nil {
		appLog.WithError(err).Fatal("Failed to start health server")
	}
	healthServer.SetReady(true)

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, metrics.Handler())
		metricsServer = &http.Server{
			Addr:        fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler:     mux,
			ReadTimeout: 5 * time.Second,
		}
		go func() {
			appLog.WithField("port", cfg.Metrics.Port).Info("Metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				appLog.WithError(err).Error("Metrics server error")
			}
		}()
	}

	appLog.WithFields(logrus.Fields{
		"engines":  registry.Size(),
		"next_run": sched.GetNextRun(),
	}).Info("TipFusion daemon ready")

	<-ctx.Done()
	appLog.Info("Shutdown signal received")

	healthServer.SetReady(false)
	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			appLog.WithError(err).Error("Metrics server shutdown error")
		}
	}

	appLog.Info("TipFusion daemon stopped")
}

// buildRegistry creates the engine registry from configuration. Engines with
// a URL become remote HTTP engines; entries without one are reported and
// skipped, since the daemon has no programmatic engines to bind them to.
func buildRegistry(cfg *config.Config, appLog *logrus.Logger) (*engine.Registry, error) {
	registry := engine.NewRegistry(cfg.BaseWeights())

	for _, cat := range cfg.Engines.Categories {
		for _, engCfg := range cat.Engines {
			if engCfg.URL == "" {
				appLog.WithFields(logrus.Fields{
					"engine":   engCfg.Name,
					"category": cat.Name,
				}).Warn("Engine has no URL, skipping registration")
				continue
			}

			remoteCfg := engine.DefaultRemoteEngineConfig(engCfg.Name, engCfg.URL)
			if engCfg.TimeoutSeconds > 0 {
				remoteCfg.Timeout = time.Duration(engCfg.TimeoutSeconds) * time.Second
			}
			if engCfg.MaxRetries > 0 {
				remoteCfg.MaxRetries = engCfg.MaxRetries
			}
			if engCfg.RateLimit > 0 {
				remoteCfg.RateLimit = engCfg.RateLimit
			}

			if err := registry.Register(cat.Name, engine.NewRemoteEngine(remoteCfg, appLog)); err != nil {
				return nil, fmt.Errorf("register engine %s: %w", engCfg.Name, err)
			}
		}
	}

	if registry.Size() == 0 {
		return nil, fmt.Errorf("no engines registered from configuration")
	}
	return registry, nil
}

func uniformWeights(names []string) map[string]float64 {
	weights := make(map[string]float64, len(names))
	if len(names) == 0 {
		return weights
	}
	uniform := 1.0 / float64(len(names))
	for _, name := range names {
		weights[name] = uniform
	}
	return weights
}
