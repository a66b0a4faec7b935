// Package config provides configuration management for the TipFusion service.
package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	App      AppConfig      `mapstructure:"app" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Engines  EnginesConfig  `mapstructure:"engines" validate:"required"`
	Fusion   FusionConfig   `mapstructure:"fusion" validate:"required"`
	Adaptive AdaptiveConfig `mapstructure:"adaptive" validate:"required"`
	Slate    SlateConfig    `mapstructure:"slate" validate:"required"`
	Feedback FeedbackConfig `mapstructure:"feedback" validate:"required"`
	Metrics  MetricsConfig  `mapstructure:"metrics" validate:"required"`
	API      APIConfig      `mapstructure:"api"`
	Health   HealthConfig   `mapstructure:"health"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host               string `mapstructure:"host" validate:"required"`
	Port               int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Name               string `mapstructure:"name" validate:"required"`
	User               string `mapstructure:"user" validate:"required"`
	Password           string `mapstructure:"password"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"required,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"required,gt=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"required,gt=0"`
}

// EnginesConfig declares the engine categories and their members. Engines
// with a URL are remote scoring services; engines without one must be
// registered programmatically under the same name at startup.
type EnginesConfig struct {
	Categories []CategoryConfig `mapstructure:"categories" validate:"required,min=1,dive"`
}

// CategoryConfig declares one engine category and its base fusion weight
type CategoryConfig struct {
	Name       string         `mapstructure:"name" validate:"required"`
	BaseWeight float64        `mapstructure:"base_weight" validate:"gte=0,lte=1"`
	Engines    []EngineConfig `mapstructure:"engines" validate:"dive"`
}

// EngineConfig declares one scoring engine
type EngineConfig struct {
	Name           string  `mapstructure:"name" validate:"required"`
	URL            string  `mapstructure:"url" validate:"omitempty,url"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds" validate:"omitempty,gt=0"`
	MaxRetries     int     `mapstructure:"max_retries" validate:"omitempty,gte=0"`
	RateLimit      float64 `mapstructure:"rate_limit" validate:"omitempty,gt=0"`
}

// FusionConfig tunes the fusion pass
type FusionConfig struct {
	Workers              int `mapstructure:"workers" validate:"required,gt=0"`
	EngineTimeoutSeconds int `mapstructure:"engine_timeout_seconds" validate:"required,gt=0"`
	CacheTTLSeconds      int `mapstructure:"cache_ttl_seconds" validate:"gte=0"`
	CacheMaxSize         int `mapstructure:"cache_max_size" validate:"gte=0"`
}

// AdaptiveConfig tunes the feedback-driven weight evolution
type AdaptiveConfig struct {
	LearningRate    float64 `mapstructure:"learning_rate" validate:"required,gt=0,lte=1"`
	StabilityFactor float64 `mapstructure:"stability_factor" validate:"required,gt=0,lt=1"`
	MinSamples      int     `mapstructure:"min_samples" validate:"required,gt=0"`
}

// SlateConfig tunes the combinatorial slate optimizer
type SlateConfig struct {
	MinValueScore  float64 `mapstructure:"min_value_score" validate:"gte=0,lte=1"`
	MinConfidence  float64 `mapstructure:"min_confidence" validate:"gte=0,lte=1"`
	Sizes          []int   `mapstructure:"sizes" validate:"required,min=1,slatesizes"`
	MinTotalPrice  float64 `mapstructure:"min_total_price" validate:"required,gt=1"`
	MaxTotalPrice  float64 `mapstructure:"max_total_price" validate:"required,gt=1"`
	PropValueFloor float64 `mapstructure:"prop_value_floor" validate:"gte=0"`
	PropLimit      int     `mapstructure:"prop_limit" validate:"gte=0"`
}

// FeedbackConfig tunes the outcome drain and weight update schedule
type FeedbackConfig struct {
	Cron      string `mapstructure:"cron" validate:"required"`
	BatchSize int    `mapstructure:"batch_size" validate:"required,gt=0"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// APIConfig represents the prediction API server configuration
type APIConfig struct {
	Port string `mapstructure:"port"`
}

// HealthConfig represents the health check server configuration
type HealthConfig struct {
	Port string `mapstructure:"port"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsStaging checks if the application is running in staging mode
func (c *Config) IsStaging() bool {
	return c.App.Environment == "staging"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// BaseWeights returns the configured category base weight table
func (c *Config) BaseWeights() map[string]float64 {
	weights := make(map[string]float64, len(c.Engines.Categories))
	for _, cat := range c.Engines.Categories {
		weights[cat.Name] = cat.BaseWeight
	}
	return weights
}

// EngineTimeout returns the per-engine call deadline
func (c *Config) EngineTimeout() time.Duration {
	return time.Duration(c.Fusion.EngineTimeoutSeconds) * time.Second
}

// CacheTTL returns the fused score cache TTL; zero disables the cache
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Fusion.CacheTTLSeconds) * time.Second
}
