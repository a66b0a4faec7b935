package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Outcome is one settled observation for an engine's tip, written by the
// settlement process and drained by the feedback service. RealizedValue is
// kept as a decimal for exact settlement arithmetic; the adaptive core
// consumes it as a float64.
type Outcome struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	EngineID      string          `db:"engine_id" json:"engine_id" validate:"required"`
	League        string          `db:"league" json:"league"`
	ContextID     ContextID       `db:"context_id" json:"context_id"`
	Won           bool            `db:"won" json:"won"`
	RealizedValue decimal.Decimal `db:"realized_value" json:"realized_value"`
	SettledAt     time.Time       `db:"settled_at" json:"settled_at"`
	Processed     bool            `db:"processed" json:"processed"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// RealizedFloat returns the realized value at the precision the adaptive
// layer works in.
func (o *Outcome) RealizedFloat() float64 {
	f, _ := o.RealizedValue.Float64()
	return f
}

// WeightSnapshot is a persisted copy of a weight table, written after each
// adaptive update so a restarted process resumes from evolved weights.
type WeightSnapshot struct {
	ID          uuid.UUID          `db:"id" json:"id"`
	GroupingKey string             `db:"grouping_key" json:"grouping_key"` // empty for the global table
	Weights     map[string]float64 `db:"weights" json:"weights"`
	CreatedAt   time.Time          `db:"created_at" json:"created_at"`
}
