package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "json", slog.LevelInfo)

	logger.Debug("hidden")
	logger.Info("loaded", "readings", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "loaded", entry["msg"])
	assert.Equal(t, "tempchart", entry["app"])
	assert.EqualValues(t, 3, entry["readings"])
}

func TestNewLogger_TextAndTint(t *testing.T) {
	for _, format := range []string{"text", "tint"} {
		var buf bytes.Buffer
		newLogger(&buf, format, slog.LevelDebug).Debug("hello")
		assert.Contains(t, buf.String(), "hello", format)
	}
}

func TestMetricsForTesting_Independent(t *testing.T) {
	a := NewMetricsForTesting()
	b := NewMetricsForTesting()

	a.RowsSkipped.WithLabelValues("blank").Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.RowsSkipped.WithLabelValues("blank")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.RowsSkipped.WithLabelValues("blank")))
}
