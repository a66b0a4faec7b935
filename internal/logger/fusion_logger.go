// Package logger provides fusion-specific logging.
package logger

import (
	"github.com/sirupsen/logrus"
)

// FusionLogger provides dedicated logging for fusion and adaptive events.
type FusionLogger struct {
	*logrus.Entry
}

// NewFusionLogger creates a new fusion logger.
func NewFusionLogger(baseLogger *logrus.Logger) *FusionLogger {
	return &FusionLogger{
		Entry: baseLogger.WithField("component", "fusion"),
	}
}

// LogFusionRun logs one completed fusion pass.
func (fl *FusionLogger) LogFusionRun(groupingKey string, contexts int, noPrediction int, durationMs float64) {
	fl.WithFields(logrus.Fields{
		"grouping_key":  groupingKey,
		"contexts":      contexts,
		"no_prediction": noPrediction,
		"duration_ms":   durationMs,
	}).Info("Fusion pass completed")
}

// LogEngineFailure logs an isolated engine failure.
func (fl *FusionLogger) LogEngineFailure(engineID, category, contextID, reason string) {
	fl.WithFields(logrus.Fields{
		"engine_id":  engineID,
		"category":   category,
		"context_id": contextID,
		"reason":     reason,
	}).Warn("Engine execution failed")
}

// LogWeightUpdate logs an adaptive weight update round.
func (fl *FusionLogger) LogWeightUpdate(groupingKey string, engines int, weights map[string]float64) {
	fl.WithFields(logrus.Fields{
		"grouping_key": groupingKey,
		"engines":      engines,
		"weights":      weights,
	}).Info("Adaptive weights updated")
}

// LogOutcomeRecorded logs one settled outcome fed to the tracker.
func (fl *FusionLogger) LogOutcomeRecorded(engineID, groupingKey string, won bool, realizedValue float64) {
	fl.WithFields(logrus.Fields{
		"engine_id":      engineID,
		"grouping_key":   groupingKey,
		"won":            won,
		"realized_value": realizedValue,
	}).Debug("Outcome recorded")
}
