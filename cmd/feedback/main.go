// Package main provides a CLI for the adaptive feedback loop: recording
// settled outcomes, draining them into weight updates and inspecting the
// backlog.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/tipfusion/internal/adaptive"
	"github.com/yourusername/tipfusion/internal/config"
	"github.com/yourusername/tipfusion/internal/database"
	"github.com/yourusername/tipfusion/internal/engine"
	applogger "github.com/yourusername/tipfusion/internal/logger"
	"github.com/yourusername/tipfusion/internal/metrics"
	"github.com/yourusername/tipfusion/internal/models"
	"github.com/yourusername/tipfusion/internal/repository"
	"github.com/yourusername/tipfusion/internal/service"
)

var (
	configFile   string
	batchSize    int
	outcomesFile string

	logger      *logrus.Logger
	cfg         *config.Config
	db          *database.DB
	repos       *repository.Repositories
	feedbackSvc *service.FeedbackService
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	processCmd.Flags().IntVarP(&batchSize, "batch-size", "b", 100, "Number of outcomes to drain per batch")
	recordCmd.Flags().StringVarP(&outcomesFile, "file", "f", "", "Path to outcomes JSON file (defaults to stdin)")
}

var rootCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Drain settled outcomes into adaptive weight updates",
	Long:  `Record settled tip outcomes and apply them to the engine and category weight tables.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if err := setupDependencies(cmd.Context()); err != nil {
			return fmt.Errorf("failed to setup dependencies: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if db != nil {
			db.Close()
		}
	},
}

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record settled outcomes from JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		return recordOutcomes(cmd.Context())
	},
}

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Drain a batch of outcomes into weight updates",
	RunE: func(cmd *cobra.Command, args []string) error {
		return processBatch(cmd.Context())
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the feedback backlog and engine summaries",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func main() {
	rootCmd.AddCommand(recordCmd, processCmd, statusCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func loadConfig() error {
	var err error
	cfg, err = config.LoadWithDefaults(configFile)
	if err != nil {
		return err
	}
	return config.Validate(cfg)
}

func setupDependencies(ctx context.Context) error {
	logger = applogger.NewLogger(cfg.App.LogLevel)
	metrics.InitRegistry()

	var err error
	db, err = database.NewDB(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	repos, err = repository.NewRepositories(db)
	if err != nil {
		return fmt.Errorf("failed to initialize repositories: %w", err)
	}

	registry := engine.NewRegistry(cfg.BaseWeights())
	for _, cat := range cfg.Engines.Categories {
		for _, engCfg := range cat.Engines {
			// The CLI only updates weight tables, so engines are registered
			// as no-op placeholders to recover names and categories.
			eng := engine.EngineFunc{
				EngineName: engCfg.Name,
				Fn: func(context.Context, models.MatchContext) (models.ScoringOutput, error) {
					return nil, fmt.Errorf("engine not callable from the feedback CLI")
				},
			}
			if err := registry.Register(cat.Name, eng); err != nil {
				return fmt.Errorf("register engine %s: %w", engCfg.Name, err)
			}
		}
	}

	tracker := adaptive.NewTracker()
	engineWeights := adaptive.NewWeightStore(map[string]float64{})
	categoryWeights := adaptive.NewWeightStore(cfg.BaseWeights())
	updater := adaptive.NewUpdater(tracker, engineWeights, categoryWeights, adaptive.Params{
		LearningRate:    cfg.Adaptive.LearningRate,
		StabilityFactor: cfg.Adaptive.StabilityFactor,
		MinSamples:      cfg.Adaptive.MinSamples,
	}, logger)

	feedbackSvc = service.NewFeedbackService(
		repos.Outcome, repos.WeightSnapshot, tracker, updater, categoryWeights, registry, logger,
	)

	// A fresh CLI process starts from the persisted tables, not the base
	// weights, so its updates continue the evolved state.
	if err := feedbackSvc.RestoreWeights(ctx, nil); err != nil {
		logger.WithError(err).Warn("Failed to restore persisted weights")
	}

	return nil
}

func recordOutcomes(ctx context.Context) error {
	var (
		data []byte
		err  error
	)
	if outcomesFile == "" {
		data, err = os.ReadFile("/dev/stdin")
	} else {
		data, err = os.ReadFile(outcomesFile)
	}
	if err != nil {
		return fmt.Errorf("failed to read outcomes: %w", err)
	}

	var outcomes []models.Outcome
	if err := json.Unmarshal(data, &outcomes); err != nil {
		return fmt.Errorf("failed to parse outcomes: %w", err)
	}

	recorded := 0
	for i := range outcomes {
		if err := feedbackSvc.RecordOutcome(ctx, &outcomes[i]); err != nil {
			logger.WithError(err).WithField("engine_id", outcomes[i].EngineID).Error("Failed to record outcome")
			continue
		}
		recorded++
	}

	fmt.Printf("Recorded %d of %d outcomes\n", recorded, len(outcomes))
	return nil
}

func processBatch(ctx context.Context) error {
	logger.WithField("batch_size", batchSize).Info("Draining feedback batch")

	count, err := feedbackSvc.ProcessBatch(ctx, batchSize)
	if err != nil {
		logger.WithError(err).Error("Failed to process feedback batch")
		return err
	}

	fmt.Printf("Applied %d settled outcomes to the weight tables\n", count)
	return nil
}

func showStatus(ctx context.Context) error {
	pending, summaries, err := feedbackSvc.Status(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Pending outcomes: %d\n", pending)
	for _, s := range summaries {
		fmt.Printf("  %-20s samples=%-5d win_rate=%.3f avg_realized=%+.4f stdev=%.4f\n",
			s.EngineID, s.Samples, s.WinRate, s.AvgRealized, s.RealizedStdev)
	}
	return nil
}
