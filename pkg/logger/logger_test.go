package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("nonsense"))
}

func TestUseObserver(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	Use(zap.New(core))

	Infof("processed %d rows", 3)
	Warnw("anomaly", "field", "time")
	Errorf("boom")

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "processed 3 rows", entries[0].Message)
	assert.Equal(t, "time", entries[1].ContextMap()["field"])
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
}

func TestInitLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	require.NoError(t, InitLogger(path, "info"))
	Infof("hello %s", "file")
	Debugf("filtered out")
	Close()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "hello file"))
	assert.False(t, strings.Contains(string(data), "filtered out"))

	Use(zap.NewNop())
}
