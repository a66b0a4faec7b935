package models

import "errors"

// Custom errors
var (
	ErrMissingCategoryWeight   = errors.New("category has no weight entry in override or global table")
	ErrEngineAlreadyRegistered = errors.New("engine already registered")
	ErrUnknownCategory         = errors.New("category not configured")
	ErrNoEnginesRegistered     = errors.New("no engines registered")
	ErrNotFound                = errors.New("record not found")
	ErrInvalidID               = errors.New("invalid ID format")
)
