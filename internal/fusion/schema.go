package fusion

import (
	"sort"

	"github.com/yourusername/tipfusion/internal/models"
)

// canonicalField names one liquid market in a sport's output schema together
// with the measure-name synonyms engines are known to emit for it.
type canonicalField struct {
	Name     string
	Synonyms []string
}

// Sport-specific output schemas. Order fixes the iteration order of the
// final fusion step, keeping output deterministic.
var sportSchemas = map[models.Sport][]canonicalField{
	models.SportFootball: {
		{Name: "ah_home", Synonyms: []string{"ah_home", "asian_home", "handicap_home"}},
		{Name: "ah_away", Synonyms: []string{"ah_away", "asian_away", "handicap_away"}},
		{Name: "over_2_5", Synonyms: []string{"over25", "o25", "over_2_5"}},
		{Name: "under_2_5", Synonyms: []string{"under25", "u25", "under_2_5"}},
		{Name: "btts_yes", Synonyms: []string{"btts_yes", "both_score", "btts"}},
		{Name: "btts_no", Synonyms: []string{"btts_no", "no_both_score"}},
	},
	models.SportTennis: {
		{Name: "p1_win", Synonyms: []string{"player1_win", "p1"}},
		{Name: "p2_win", Synonyms: []string{"player2_win", "p2"}},
		{Name: "handicap_p1", Synonyms: []string{"handicap_p1"}},
		{Name: "handicap_p2", Synonyms: []string{"handicap_p2"}},
		{Name: "over_games", Synonyms: []string{"over_games"}},
		{Name: "under_games", Synonyms: []string{"under_games"}},
	},
	models.SportBasketball: {
		{Name: "spread_team_a", Synonyms: []string{"spread_a", "spread_team_a"}},
		{Name: "spread_team_b", Synonyms: []string{"spread_b", "spread_team_b"}},
		{Name: "over_total", Synonyms: []string{"over_total", "o_total"}},
		{Name: "under_total", Synonyms: []string{"under_total", "u_total"}},
	},
	models.SportHockey: {
		{Name: "handicap_home", Synonyms: []string{"handicap_home"}},
		{Name: "handicap_away", Synonyms: []string{"handicap_away"}},
		{Name: "over_goals", Synonyms: []string{"over_goals", "o_goals"}},
		{Name: "under_goals", Synonyms: []string{"under_goals", "u_goals"}},
	},
}

// schemaFor returns the canonical schema for a sport. Sports without a
// dedicated schema fall back to an identity mapping over the measure names
// the aggregates actually produced, sorted for determinism.
func schemaFor(sport models.Sport, aggregates map[string]map[string]float64) []canonicalField {
	if schema, ok := sportSchemas[sport]; ok {
		return schema
	}

	seen := make(map[string]bool)
	for _, agg := range aggregates {
		for key := range agg {
			seen[key] = true
		}
	}
	names := make([]string, 0, len(seen))
	for key := range seen {
		names = append(names, key)
	}
	sort.Strings(names)

	schema := make([]canonicalField, 0, len(names))
	for _, name := range names {
		schema = append(schema, canonicalField{Name: name, Synonyms: []string{name}})
	}
	return schema
}

// projectField resolves one canonical field against a single category
// aggregate: the mean over synonym keys the aggregate carries. The second
// return is false when no synonym is present, which keeps "unavailable"
// distinct from zero.
func projectField(field canonicalField, aggregate map[string]float64) (float64, bool) {
	total := 0.0
	count := 0
	for _, synonym := range field.Synonyms {
		if v, ok := aggregate[synonym]; ok {
			total += v
			count++
		}
	}
	if count == 0 {
		return 0, false
	}
	return total / float64(count), true
}
