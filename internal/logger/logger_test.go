package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// TestParseLogLevel verifies mapping from strings to zapcore.Level and handling of unknown values.
func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"WARNING": zapcore.WarnLevel,
		" error ": zapcore.ErrorLevel,
	}
	for s, lvl := range cases {
		got, ok := ParseLogLevel(s)
		require.True(t, ok, s)
		require.Equal(t, lvl, got)
	}

	_, ok := ParseLogLevel("unknown")
	require.False(t, ok)
}

func TestContextLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := New(zapcore.DebugLevel, zapcore.AddSync(&buf))

	ctx := ToContext(context.Background(), l)
	require.Same(t, l, FromContext(ctx))

	ctx = WithKV(ctx, "project", "demo")
	WarnKV(ctx, "missing build provenance", "version", "1.2.3-SNAPSHOT")

	out := buf.String()
	require.Contains(t, out, "WARN")
	require.Contains(t, out, "missing build provenance")
	require.Contains(t, out, "demo")
	require.Contains(t, out, "1.2.3-SNAPSHOT")
}

func TestFromContextFallsBackToGlobal(t *testing.T) {
	t.Parallel()

	require.Same(t, Logger(), FromContext(context.Background()))
}

func TestLevelFiltering(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := New(zapcore.ErrorLevel, zapcore.AddSync(&buf))
	ctx := ToContext(context.Background(), l)

	InfoKV(ctx, "hidden")
	Infof(ctx, "hidden %s", "too")
	ErrorKV(ctx, "shown")

	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "shown")
}

func TestInfof(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ctx := ToContext(context.Background(), New(zapcore.InfoLevel, zapcore.AddSync(&buf)))

	Infof(ctx, "wrote %s to %s", "3.0.1-rc.7", "build/projectversion.txt")

	require.Contains(t, buf.String(), "INFO")
	require.Contains(t, buf.String(), "wrote 3.0.1-rc.7 to build/projectversion.txt")
}
