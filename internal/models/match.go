package models

import "time"

// ContextID identifies one match context within a fusion run
type ContextID string

// Sport selects the canonical market schema used by fusion
type Sport string

const (
	SportFootball   Sport = "football"
	SportTennis     Sport = "tennis"
	SportBasketball Sport = "basketball"
	SportHockey     Sport = "hockey"
)

// MatchContext is the normalized input every scoring engine receives.
// Features carries the sport-specific numeric inputs engines work from;
// the fusion core never interprets them.
type MatchContext struct {
	ID       ContextID          `json:"id" validate:"required"`
	Sport    Sport              `json:"sport" validate:"required"`
	League   string             `json:"league"`
	Home     string             `json:"home"`
	Away     string             `json:"away"`
	KickOff  time.Time          `json:"kick_off"`
	Features map[string]float64 `json:"features,omitempty"`
}

// FinalScore is the fused canonical market mapping for one context.
// A canonical field with no contributing category is absent from Fields,
// never zero-filled. NoPrediction marks the explicit "no signal" sentinel:
// callers must distinguish it from a score that is exactly zero.
type FinalScore struct {
	ContextID    ContextID          `json:"context_id"`
	Fields       map[string]float64 `json:"fields,omitempty"`
	NoPrediction bool               `json:"no_prediction,omitempty"`
}

// NoPredictionScore builds the sentinel returned when every canonical field
// resolved to unavailable or zero.
func NoPredictionScore(id ContextID) FinalScore {
	return FinalScore{ContextID: id, NoPrediction: true}
}
