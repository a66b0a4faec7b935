// Package adaptive tracks per-engine performance and evolves weight tables
// from settled outcomes.
package adaptive

import (
	"sync"

	"github.com/montanaflynn/stats"
)

// recentWindow bounds the realized-value history kept per engine for
// summary statistics.
const recentWindow = 100

// PerformanceRecord accumulates observed outcomes for one engine.
// VarianceProxy is the absolute realized value of the most recent
// observation. A deliberately cheap rolling proxy rather than true
// variance; upgrading to a running-variance estimator would not break
// the contract.
type PerformanceRecord struct {
	Samples       int
	Wins          int
	Losses        int
	EVTotal       float64
	VarianceProxy float64
}

// WinRate returns wins over samples
func (p PerformanceRecord) WinRate() float64 {
	if p.Samples == 0 {
		return 0
	}
	return float64(p.Wins) / float64(p.Samples)
}

// AvgRealizedValue returns the mean realized value per sample
func (p PerformanceRecord) AvgRealizedValue() float64 {
	if p.Samples == 0 {
		return 0
	}
	return p.EVTotal / float64(p.Samples)
}

// Summary is an operator-facing view of one engine's tracked performance
type Summary struct {
	EngineID      string  `json:"engine_id"`
	Samples       int     `json:"samples"`
	WinRate       float64 `json:"win_rate"`
	AvgRealized   float64 `json:"avg_realized"`
	RealizedStdev float64 `json:"realized_stdev"`
}

// Tracker accumulates performance records per engine and per
// (groupingKey, engine) pair. All methods are safe for concurrent use.
type Tracker struct {
	mu     sync.Mutex
	global map[string]*PerformanceRecord
	scoped map[string]map[string]*PerformanceRecord
	recent map[string][]float64
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{
		global: make(map[string]*PerformanceRecord),
		scoped: make(map[string]map[string]*PerformanceRecord),
		recent: make(map[string][]float64),
	}
}

// RecordOutcome appends one settled observation for an engine. groupingKey
// may be empty; a non-empty key additionally updates the scoped record.
func (t *Tracker) RecordOutcome(engineID, groupingKey string, won bool, realizedValue float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.applyLocked(t.recordLocked(engineID), won, realizedValue)

	if groupingKey != "" {
		table, ok := t.scoped[groupingKey]
		if !ok {
			table = make(map[string]*PerformanceRecord)
			t.scoped[groupingKey] = table
		}
		rec, ok := table[engineID]
		if !ok {
			rec = &PerformanceRecord{}
			table[engineID] = rec
		}
		t.applyLocked(rec, won, realizedValue)
	}

	window := append(t.recent[engineID], realizedValue)
	if len(window) > recentWindow {
		window = window[len(window)-recentWindow:]
	}
	t.recent[engineID] = window
}

func (t *Tracker) recordLocked(engineID string) *PerformanceRecord {
	rec, ok := t.global[engineID]
	if !ok {
		rec = &PerformanceRecord{}
		t.global[engineID] = rec
	}
	return rec
}

func (t *Tracker) applyLocked(rec *PerformanceRecord, won bool, realizedValue float64) {
	rec.Samples++
	rec.EVTotal += realizedValue
	if won {
		rec.Wins++
	} else {
		rec.Losses++
	}
	if realizedValue < 0 {
		rec.VarianceProxy = -realizedValue
	} else {
		rec.VarianceProxy = realizedValue
	}
}

// Record returns a copy of the global record for an engine
func (t *Tracker) Record(engineID string) (PerformanceRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.global[engineID]
	if !ok {
		return PerformanceRecord{}, false
	}
	return *rec, true
}

// ScopedRecord returns a copy of the (groupingKey, engine) record
func (t *Tracker) ScopedRecord(groupingKey, engineID string) (PerformanceRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	table, ok := t.scoped[groupingKey]
	if !ok {
		return PerformanceRecord{}, false
	}
	rec, ok := table[engineID]
	if !ok {
		return PerformanceRecord{}, false
	}
	return *rec, true
}

// GroupingKeys returns every grouping key with at least one scoped record
func (t *Tracker) GroupingKeys() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	keys := make([]string, 0, len(t.scoped))
	for key := range t.scoped {
		keys = append(keys, key)
	}
	return keys
}

// Summarize builds an operator summary for one engine, including the
// standard deviation of recent realized values.
func (t *Tracker) Summarize(engineID string) (Summary, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.global[engineID]
	if !ok {
		return Summary{}, false
	}

	stdev := 0.0
	if window := t.recent[engineID]; len(window) > 1 {
		if sd, err := stats.StandardDeviation(stats.Float64Data(window)); err == nil {
			stdev = sd
		}
	}

	return Summary{
		EngineID:      engineID,
		Samples:       rec.Samples,
		WinRate:       rec.WinRate(),
		AvgRealized:   rec.AvgRealizedValue(),
		RealizedStdev: stdev,
	}, true
}

// Reset clears the accumulated records for one engine
func (t *Tracker) Reset(engineID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.global, engineID)
	delete(t.recent, engineID)
	for _, table := range t.scoped {
		delete(table, engineID)
	}
}
