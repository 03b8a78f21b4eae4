package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/weiyilai/kafkaflow/types"
)

func TestSlogLogger_ImplementsInterface(t *testing.T) {
	t.Helper()
	var _ types.Logger = (*SlogLogger)(nil)
}

func TestNewSlog(t *testing.T) {
	buf := &bytes.Buffer{}
	handler := slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := NewSlog(slog.New(handler))

	require.NotNil(t, logger)
	require.NotNil(t, logger.logger)
}

func TestNewSlogDefault(t *testing.T) {
	logger := NewSlogDefault()

	require.NotNil(t, logger)
	require.NotNil(t, logger.logger)
}

func TestSlogLogger_LevelsAndFields(t *testing.T) {
	buf := &bytes.Buffer{}
	handler := slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := NewSlog(slog.New(handler))

	logger.Debug("debug msg", "k", "v")
	logger.Info("info msg", "workers", 4)
	logger.Warn("warn msg")
	logger.Error("error msg", "consumer", "orders")

	out := buf.String()
	require.Contains(t, out, "debug msg")
	require.Contains(t, out, "info msg")
	require.Contains(t, out, "workers=4")
	require.Contains(t, out, "warn msg")
	require.Contains(t, out, "consumer=orders")
}
