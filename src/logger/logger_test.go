package logger_test

import (
	"testing"

	"price-stream/src/logger"
	"price-stream/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_InvalidLevel(t *testing.T) {
	_, err := logger.NewLogger(&models.MConfig{LogLevel: "loud"}, "test")
	require.Error(t, err)
}

func TestNewLogger_ValidLevels(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "warn", "error", "INFO"} {
		l, err := logger.NewLogger(&models.MConfig{LogLevel: lvl, DevMode: true}, "test")
		require.NoError(t, err, lvl)
		assert.NotNil(t, l)
	}
}

func TestNewLogger_NilConfigDefaults(t *testing.T) {
	l, err := logger.NewLogger(nil, "test")
	require.NoError(t, err)
	l.Info("hello %s", "world")
}

func TestFromZap_FormatsAndFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := logger.FromZap(zap.New(core), "session").With("generation", 3)

	l.Info("connected to %s", "ws://x")
	l.Warning("slow")
	l.Named("stream").Debug("frame %d", 7)

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "connected to ws://x", entries[0].Message)
	assert.Equal(t, "session", entries[0].LoggerName)
	assert.Equal(t, int64(3), entries[0].ContextMap()["generation"])
	assert.Equal(t, zap.WarnLevel, entries[1].Level)
	assert.Equal(t, "session.stream", entries[2].LoggerName)
}

func TestNop_NoPanic(t *testing.T) {
	l := logger.NewNop()
	l.Error("ignored %v", 1)
	_ = l.Sync()
}
