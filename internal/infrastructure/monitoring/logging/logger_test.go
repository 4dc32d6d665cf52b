package logging

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

// newTestLogger returns a logger writing JSON into a buffer.
func newTestLogger(t *testing.T, level zapcore.Level) (Logger, *zaptest.Buffer) {
	t.Helper()
	buf := &zaptest.Buffer{}
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), buf, level)
	return NewLoggerFromCore(core), buf
}

func TestNewLogger_JSONFormat(t *testing.T) {
	l, err := NewLogger(LogConfig{Level: LevelInfo, Format: "json", OutputPaths: []string{"stdout"}})
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestNewLogger_ConsoleFormat(t *testing.T) {
	l, err := NewLogger(LogConfig{Level: LevelDebug, Format: "console", OutputPaths: []string{"stderr"}})
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestNewLogger_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "molgraph.log")
	l, err := NewLogger(LogConfig{Level: LevelInfo, OutputPaths: []string{path}})
	require.NoError(t, err)

	l.Info("batch built", Int("edges", 6))
	require.NoError(t, l.Sync())
	assert.FileExists(t, path)
}

func TestNewLogger_UnopenablePath(t *testing.T) {
	_, err := NewLogger(LogConfig{OutputPaths: []string{filepath.Join(t.TempDir(), "missing", "dir", "x.log")}})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel(" error "))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel(""))
}

func TestZapLogger_LevelsAndFields(t *testing.T) {
	l, buf := newTestLogger(t, zapcore.DebugLevel)

	l.Debug("debug msg", String("k", "v"))
	l.Info("info msg", Int("molecules", 2), Int64("atoms", 5))
	l.Warn("warn msg", Bool("absent", true), Float64("cutoff", 5.0))
	l.Error("error msg", Err(errors.New("boom")), Duration("took", time.Millisecond))

	out := buf.String()
	assert.Contains(t, out, `"level":"debug"`)
	assert.Contains(t, out, `"k":"v"`)
	assert.Contains(t, out, `"molecules":2`)
	assert.Contains(t, out, `"atoms":5`)
	assert.Contains(t, out, `"absent":true`)
	assert.Contains(t, out, `"cutoff":5`)
	assert.Contains(t, out, `"error":"boom"`)
	assert.Len(t, buf.Lines(), 4)
}

func TestZapLogger_SliceFields(t *testing.T) {
	l, buf := newTestLogger(t, zapcore.DebugLevel)
	l.Info("selection", Ints("indices", []int{0, 3}), Strings("targets", []string{"U0"}))

	assert.Contains(t, buf.String(), `"indices":[0,3]`)
	assert.Contains(t, buf.String(), `"targets":["U0"]`)
}

func TestZapLogger_LevelFiltering(t *testing.T) {
	l, buf := newTestLogger(t, zapcore.WarnLevel)
	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestZapLogger_WithAndNamed(t *testing.T) {
	l, buf := newTestLogger(t, zapcore.DebugLevel)

	child := l.Named("builder").With(String("request_id", "r-1"))
	child.Info("built")
	l.Info("parent")

	lines := buf.Lines()
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"logger":"builder"`)
	assert.Contains(t, lines[0], `"request_id":"r-1"`)
	assert.NotContains(t, lines[1], "request_id")
}

func TestErr_NilError(t *testing.T) {
	f := Err(nil)
	assert.Equal(t, "error", f.Key)
	assert.Equal(t, "<nil>", f.Value)
}

func TestSetLevel(t *testing.T) {
	l, err := NewLogger(LogConfig{Level: LevelInfo, OutputPaths: []string{filepath.Join(t.TempDir(), "lvl.log")}})
	require.NoError(t, err)

	assert.True(t, SetLevel(l, LevelDebug))
	assert.True(t, SetLevel(l.Named("child"), LevelError))
	assert.False(t, SetLevel(NewNopLogger(), LevelDebug))
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	assert.NotPanics(t, func() {
		l.Debug("msg")
		l.Info("msg")
		l.Warn("msg")
		l.Error("msg")
		l.Fatal("msg")
	})
	assert.Equal(t, l, l.With(String("k", "v")))
	assert.Equal(t, l, l.Named("x"))
	assert.NoError(t, l.Sync())
}

func TestDefault_SetAndGet(t *testing.T) {
	original := Default()
	t.Cleanup(func() { SetDefault(original) })

	l, buf := newTestLogger(t, zapcore.InfoLevel)
	SetDefault(l)
	SetDefault(nil)

	Default().Info("via default")
	assert.Contains(t, buf.String(), "via default")
}
