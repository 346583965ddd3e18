package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestHelpersBeforeInit(t *testing.T) {
	prev := Log
	Log = nil
	t.Cleanup(func() { Log = prev })

	assert.NotPanics(t, func() {
		Info("info")
		Warn("warn")
		Error("error")
		Debug("debug")
		Sync()
	})
	assert.NotNil(t, Named("useragent"))
}

func TestHelpersWriteAtTheirLevel(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	prev := Log
	Log = zap.New(core)
	t.Cleanup(func() { Log = prev })

	Debug("d")
	Info("i", zap.String("slug", "abc123"))
	Warn("w")
	Error("e")

	entries := logs.All()
	levels := make([]zapcore.Level, 0, len(entries))
	for _, e := range entries {
		levels = append(levels, e.Level)
	}
	assert.Equal(t, []zapcore.Level{zapcore.DebugLevel, zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel}, levels)
	assert.Equal(t, "abc123", entries[1].ContextMap()["slug"])

	Named("breaker").Info("named")
	assert.Equal(t, "breaker", logs.All()[4].LoggerName)
}
