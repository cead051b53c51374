package log

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"":        LevelInfo,
		"debug":   LevelDebug,
		"WARNING": LevelWarn,
		"error":   LevelError,
		"off":     LevelSilent,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestLoggerWithCoreRecordsFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := NewWithCore(core).With(String("component", "test"))

	logger.Error("boom", Error(errors.New("disk full")), Int("attempt", 2), Stack("stack"))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "boom", entry.Message)
	ctx := entry.ContextMap()
	assert.Equal(t, "test", ctx["component"])
	assert.Equal(t, "disk full", ctx["error"])
	assert.EqualValues(t, 2, ctx["attempt"])
	assert.NotEmpty(t, ctx["stack"])
}

func TestSetLevelFiltersEntries(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := NewWithCore(core)

	logger.SetLevel(LevelWarn)
	assert.Equal(t, LevelWarn, logger.GetLevel())

	logger.Info("hidden")
	logger.Warn("shown")
	logger.Error("nil error is tolerated", Error(nil))

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "shown", logs.All()[0].Message)
}

func TestNopDiscards(t *testing.T) {
	logger := NewNop()
	assert.Equal(t, LevelSilent, logger.GetLevel())
	assert.NotPanics(t, func() { logger.Error("ignored", Any("k", 1)) })
}
