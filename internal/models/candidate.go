package models

import (
	"time"

	"github.com/google/uuid"
)

// MarketType classifies a candidate's market for correlation policy checks
type MarketType string

const (
	MarketTotal       MarketType = "total"
	MarketBTTS        MarketType = "btts"
	MarketHandicap    MarketType = "handicap"
	MarketMatchWinner MarketType = "match_winner"
	MarketProp        MarketType = "prop"
)

// Candidate is one bettable proposition supplied to the slate optimizer.
// Immutable input; the optimizer never mutates the pool.
type Candidate struct {
	ContextID   ContextID  `json:"context_id" validate:"required"`
	MarketType  MarketType `json:"market_type" validate:"required"`
	Selection   string     `json:"selection"`
	Probability float64    `json:"probability" validate:"gte=0,lte=1"`
	Price       float64    `json:"price" validate:"gt=1"`
	ValueScore  float64    `json:"value_score"`
	Confidence  float64    `json:"confidence" validate:"gte=0,lte=1"`
}

// Slate is a selected subset of candidates intended to be combined into one
// wagered unit. Produced only by the optimizer and never mutated afterwards.
type Slate struct {
	ID            uuid.UUID   `json:"id"`
	Legs          []Candidate `json:"legs"`
	CombinedPrice float64     `json:"combined_price"`
	CombinedEV    float64     `json:"combined_ev"`
	CreatedAt     time.Time   `json:"created_at"`
}

// Size returns the number of legs in the slate
func (s *Slate) Size() int {
	return len(s.Legs)
}
