// Package fusion runs every registered engine against match contexts,
// aggregates their outputs per category and combines the categories into a
// final canonical score mapping.
package fusion

import "github.com/yourusername/tipfusion/internal/models"

// Normalize clamps every numeric measure to [0,1] and passes opaque values
// through unchanged. Numeric values that cannot survive coercion (NaN, Inf)
// are dropped key-by-key, never fatally. Normalizing an already normalized
// output yields the same values. The second return is the number of dropped
// keys.
func Normalize(output models.ScoringOutput) (models.ScoringOutput, int) {
	if output == nil {
		return nil, 0
	}

	normalized := make(models.ScoringOutput, len(output))
	dropped := 0

	for key, value := range output {
		if !value.IsNumeric() {
			normalized[key] = value
			continue
		}
		if !value.IsFinite() {
			dropped++
			continue
		}
		normalized[key] = models.Numeric(clamp01(value.Float()))
	}

	return normalized, dropped
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
