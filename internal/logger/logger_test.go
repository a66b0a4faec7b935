package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		level string
		want  logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"info", logrus.InfoLevel},
		{"warn", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"bogus", logrus.InfoLevel},
	}

	for _, tt := range tests {
		log := NewLogger(tt.level)
		assert.Equal(t, tt.want, log.GetLevel(), "level %s", tt.level)
	}
}

func TestFusionLoggerAttachesComponent(t *testing.T) {
	base := logrus.New()
	var buf bytes.Buffer
	base.SetOutput(&buf)
	base.SetFormatter(&logrus.JSONFormatter{})

	fl := NewFusionLogger(base)
	fl.LogEngineFailure("sharp-1", "sharp", "m1", "connection refused")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "fusion", entry["component"])
	assert.Equal(t, "sharp-1", entry["engine_id"])
	assert.Equal(t, "Engine execution failed", entry["msg"])
}

func TestFusionLoggerWeightUpdate(t *testing.T) {
	base := logrus.New()
	var buf bytes.Buffer
	base.SetOutput(&buf)
	base.SetFormatter(&logrus.JSONFormatter{})

	fl := NewFusionLogger(base)
	fl.LogWeightUpdate("epl", 3, map[string]float64{"sharp": 0.4})

	assert.Contains(t, buf.String(), "Adaptive weights updated")
	assert.Contains(t, buf.String(), "epl")
}
