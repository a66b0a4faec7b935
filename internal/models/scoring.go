// Package models defines the shared data model for the fusion engine and slate optimizer.
package models

import "math"

// ValueKind discriminates the closed ScoreValue variant.
type ValueKind int

const (
	// KindNumeric is a numeric measure subject to normalization and aggregation
	KindNumeric ValueKind = iota
	// KindOpaque is passed through fusion untouched (labels, diagnostics)
	KindOpaque
)

// ScoreValue is a single measure value produced by a scoring engine.
// It is a closed variant: either a numeric measure or an opaque passthrough.
type ScoreValue struct {
	kind   ValueKind
	num    float64
	opaque any
}

// Numeric creates a numeric score value
func Numeric(v float64) ScoreValue {
	return ScoreValue{kind: KindNumeric, num: v}
}

// Opaque creates an opaque passthrough value
func Opaque(v any) ScoreValue {
	return ScoreValue{kind: KindOpaque, opaque: v}
}

// Kind returns the variant discriminator
func (v ScoreValue) Kind() ValueKind {
	return v.kind
}

// IsNumeric reports whether the value carries a numeric measure
func (v ScoreValue) IsNumeric() bool {
	return v.kind == KindNumeric
}

// Float returns the numeric measure; zero for opaque values
func (v ScoreValue) Float() float64 {
	return v.num
}

// Value returns the opaque payload; nil for numeric values
func (v ScoreValue) Value() any {
	return v.opaque
}

// IsFinite reports whether a numeric value can survive normalization.
// Opaque values are always passed through.
func (v ScoreValue) IsFinite() bool {
	if v.kind != KindNumeric {
		return true
	}
	return !math.IsNaN(v.num) && !math.IsInf(v.num, 0)
}

// CoerceValue converts a decoded JSON value from an external engine into a
// ScoreValue. Numbers become numeric measures, everything else is opaque.
func CoerceValue(raw any) ScoreValue {
	switch n := raw.(type) {
	case float64:
		return Numeric(n)
	case float32:
		return Numeric(float64(n))
	case int:
		return Numeric(float64(n))
	case int64:
		return Numeric(float64(n))
	default:
		return Opaque(raw)
	}
}

// ScoringOutput maps measure names to values, produced by one engine for one
// match context. Immutable once produced; fusion works on copies.
type ScoringOutput map[string]ScoreValue

// Clone returns a shallow copy of the output
func (o ScoringOutput) Clone() ScoringOutput {
	if o == nil {
		return nil
	}
	out := make(ScoringOutput, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}
