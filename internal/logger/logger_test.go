package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_KeyValuesAndWith(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar()}

	child := l.With("component", "trust")
	child.Info("vendor recomputed", "vendor_id", "v1")
	l.Warn("cache down", "error", "timeout")
	l.Debug("tick")

	entries := logs.AllUntimed()
	require.Len(t, entries, 3)

	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "vendor recomputed", entries[0].Message)
	assert.Equal(t, map[string]interface{}{"component": "trust", "vendor_id": "v1"}, entries[0].ContextMap())

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, map[string]interface{}{"error": "timeout"}, entries[1].ContextMap())
	assert.Equal(t, zapcore.DebugLevel, entries[2].Level)
}

func TestNew_PicksConfigByEnv(t *testing.T) {
	prod, err := New("production")
	require.NoError(t, err)
	assert.False(t, prod.SugaredLogger.Desugar().Core().Enabled(zapcore.DebugLevel))

	dev, err := New("dev")
	require.NoError(t, err)
	assert.True(t, dev.SugaredLogger.Desugar().Core().Enabled(zapcore.DebugLevel))

	Nop().Info("discarded")
}
