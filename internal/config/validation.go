// Package config provides configuration management for the TipFusion service.
package config

import (
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
)

// baseWeightTolerance is how far the configured category weights may drift
// from summing to 1.0 before the config is rejected.
const baseWeightTolerance = 0.01

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)
	_ = v.RegisterValidation("slatesizes", validateSlateSizes)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	cv := NewValidator()
	return cv.Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	err := cv.validator.Struct(cfg)
	if err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	return validateCrossField(cfg)
}

// validateEnvironment validates the environment field
func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

// validateLogLevel validates the log level field
func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// validateSlateSizes validates the slate size range
func validateSlateSizes(fl validator.FieldLevel) bool {
	sizes, ok := fl.Field().Interface().([]int)
	if !ok || len(sizes) == 0 {
		return false
	}
	for _, size := range sizes {
		if size < 2 || size > 8 {
			return false
		}
	}
	return true
}

// validateCrossField performs cross-field validations
func validateCrossField(cfg *Config) error {
	// Category base weights must form a distribution; a category missing a
	// weight would be a MissingCategoryWeight error at fusion time, so
	// reject it at load time instead.
	total := 0.0
	seen := make(map[string]bool)
	for _, cat := range cfg.Engines.Categories {
		if seen[cat.Name] {
			return fmt.Errorf("duplicate engine category %q", cat.Name)
		}
		seen[cat.Name] = true
		total += cat.BaseWeight
	}
	if math.Abs(total-1.0) > baseWeightTolerance {
		return fmt.Errorf("category base weights must sum to 1.0, got %.4f", total)
	}

	if cfg.Slate.MinTotalPrice >= cfg.Slate.MaxTotalPrice {
		return fmt.Errorf("slate min_total_price must be below max_total_price")
	}

	if cfg.Database.MaxIdleConnections > cfg.Database.MaxConnections {
		return fmt.Errorf("max_idle_connections cannot exceed max_connections")
	}

	if cfg.IsProduction() && cfg.Database.SSLMode == "disable" {
		return fmt.Errorf("production environment requires SSL mode to be 'require' or 'verify-full'")
	}

	return nil
}

// formatValidationErrors formats validation errors into a readable string
func formatValidationErrors(validationErrors validator.ValidationErrors) error {
	var errMsg string
	for _, fieldError := range validationErrors {
		field := fieldError.StructField()
		tag := fieldError.Tag()
		value := fieldError.Value()

		switch tag {
		case "required":
			errMsg += fmt.Sprintf("- Field '%s' is required\n", field)
		case "url":
			errMsg += fmt.Sprintf("- Field '%s' must be a valid URL, got '%v'\n", field, value)
		case "min", "max":
			errMsg += fmt.Sprintf("- Field '%s' validation failed: %s constraint violated\n", field, tag)
		case "gt", "gte", "lt", "lte":
			errMsg += fmt.Sprintf("- Field '%s' validation failed: numeric constraint %s violated\n", field, tag)
		case "environment":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: development, staging, production\n", field)
		case "loglevel":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: debug, info, warn, error\n", field)
		case "slatesizes":
			errMsg += fmt.Sprintf("- Field '%s' must contain sizes between 2 and 8\n", field)
		case "oneof":
			errMsg += fmt.Sprintf("- Field '%s' has invalid value '%v'\n", field, value)
		default:
			errMsg += fmt.Sprintf("- Field '%s' failed validation: %s\n", field, tag)
		}
	}
	return fmt.Errorf("configuration validation failed:\n%s", errMsg)
}
