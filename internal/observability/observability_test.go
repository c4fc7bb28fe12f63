package observability

import (
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestNewLogger(t *testing.T) {
	assert.IsType(t, &slog.JSONHandler{}, NewLogger("info", "json").Handler())
	assert.IsType(t, &slog.TextHandler{}, NewLogger("info", "TEXT").Handler())
	assert.IsType(t, &slog.JSONHandler{}, NewLogger("info", "").Handler())
	assert.False(t, NewLogger("warn", "json").Enabled(t.Context(), slog.LevelInfo))
}

func TestMetricsRegisterOnIsolatedRegistry(t *testing.T) {
	m := NewMetricsForTesting()
	reg := prometheus.NewRegistry()
	for _, c := range m.collectors() {
		require.NoError(t, reg.Register(c))
	}

	m.FeedFetches.WithLabelValues("success").Inc()
	m.AlertsPublished.WithLabelValues("webhook", "error").Add(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.FeedFetches.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AlertsPublished.WithLabelValues("webhook", "error")))
}
