// Package main provides a CLI for running the slate optimizer over a
// candidate pool supplied as JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/tipfusion/internal/config"
	applogger "github.com/yourusername/tipfusion/internal/logger"
	"github.com/yourusername/tipfusion/internal/metrics"
	"github.com/yourusername/tipfusion/internal/models"
	"github.com/yourusername/tipfusion/internal/slate"
)

var (
	configFile     string
	candidatesFile string
	timeoutSeconds int
	propLimit      int

	logger *logrus.Logger
	cfg    *config.Config
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&candidatesFile, "candidates", "f", "", "Path to candidate pool JSON file (defaults to stdin)")
	buildCmd.Flags().IntVarP(&timeoutSeconds, "timeout", "t", 30, "Optimization deadline in seconds")
	propsCmd.Flags().IntVarP(&propLimit, "limit", "n", 0, "Maximum prop tips (0 uses the configured limit)")
}

var rootCmd = &cobra.Command{
	Use:   "slate",
	Short: "Build combination slates from candidate pools",
	Long:  `Enumerate feasible candidate combinations and select the slate with the greatest combined expected value.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadWithDefaults(configFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		logger = applogger.NewLogger(cfg.App.LogLevel)
		metrics.InitRegistry()
		return nil
	},
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Select the best slate from the pool",
	RunE: func(cmd *cobra.Command, args []string) error {
		return buildSlate()
	},
}

var propsCmd = &cobra.Command{
	Use:   "props",
	Short: "Select the standalone prop shortlist from the pool",
	RunE: func(cmd *cobra.Command, args []string) error {
		return selectProps()
	},
}

func main() {
	rootCmd.AddCommand(buildCmd, propsCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func loadCandidates() ([]models.Candidate, error) {
	var (
		data []byte
		err  error
	)
	if candidatesFile == "" {
		data, err = os.ReadFile("/dev/stdin")
	} else {
		data, err = os.ReadFile(candidatesFile)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read candidate pool: %w", err)
	}

	var pool []models.Candidate
	if err := json.Unmarshal(data, &pool); err != nil {
		return nil, fmt.Errorf("failed to parse candidate pool: %w", err)
	}
	return pool, nil
}

func buildSlate() error {
	pool, err := loadCandidates()
	if err != nil {
		return err
	}

	optimizer := slate.NewOptimizer(slate.Config{
		MinValueScore: cfg.Slate.MinValueScore,
		MinConfidence: cfg.Slate.MinConfidence,
		SlateSizes:    cfg.Slate.Sizes,
		MinTotalPrice: cfg.Slate.MinTotalPrice,
		MaxTotalPrice: cfg.Slate.MaxTotalPrice,
	}, logger)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSeconds)*time.Second)
	defer cancel()

	result := optimizer.Optimize(ctx, pool)

	switch result.Outcome {
	case slate.OutcomeSlate:
		out, err := json.MarshalIndent(result.Slate, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode slate: %w", err)
		}
		fmt.Println(string(out))
	default:
		fmt.Printf("No slate: %s\n", result.Outcome)
	}

	return nil
}

func selectProps() error {
	pool, err := loadCandidates()
	if err != nil {
		return err
	}

	propCfg := slate.PropConfig{
		ValueFloor: cfg.Slate.PropValueFloor,
		Limit:      cfg.Slate.PropLimit,
	}
	if propLimit > 0 {
		propCfg.Limit = propLimit
	}

	props := slate.SelectProps(pool, propCfg)
	if len(props) == 0 {
		fmt.Println("No qualifying prop tips")
		return nil
	}

	out, err := json.MarshalIndent(props, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode props: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
