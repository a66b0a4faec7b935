// Package config provides configuration management for the TipFusion service.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Load reads and parses the configuration from file and environment variables.
// It expands environment variable placeholders in the YAML file (${VAR_NAME}).
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the configuration (${VAR} syntax)
	expanded := os.ExpandEnv(string(data))

	v := newViper()
	if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// LoadWithDefaults loads configuration with default values for optional
// fields; a missing config file falls back to defaults plus environment.
func LoadWithDefaults(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	v := newViper()
	setDefaults(v)

	if data, err := os.ReadFile(configPath); err == nil {
		expanded := os.ExpandEnv(string(data))
		if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TIPFUSION")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "tipfusion")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("fusion.workers", 8)
	v.SetDefault("fusion.engine_timeout_seconds", 10)
	v.SetDefault("fusion.cache_ttl_seconds", 300)
	v.SetDefault("fusion.cache_max_size", 10000)

	v.SetDefault("adaptive.learning_rate", 0.1)
	v.SetDefault("adaptive.stability_factor", 0.85)
	v.SetDefault("adaptive.min_samples", 10)

	v.SetDefault("slate.min_value_score", 0.15)
	v.SetDefault("slate.min_confidence", 0.55)
	v.SetDefault("slate.sizes", []int{3, 4})
	v.SetDefault("slate.min_total_price", 5.5)
	v.SetDefault("slate.max_total_price", 8.5)
	v.SetDefault("slate.prop_value_floor", 0.05)
	v.SetDefault("slate.prop_limit", 3)

	v.SetDefault("feedback.cron", "0 6 * * *")
	v.SetDefault("feedback.batch_size", 100)

	v.SetDefault("api.port", "8081")
	v.SetDefault("health.port", "8080")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")
}
