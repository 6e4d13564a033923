package main

import (
	"context"
	"io"
	"log/slog"
	"math/rand/v2"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/temperature-chart/internal/adapter/source"
	"github.com/couchcryptid/temperature-chart/internal/observability"
	"github.com/couchcryptid/temperature-chart/internal/pipeline"
)

func TestGenerate(t *testing.T) {
	rows := generate(rand.New(rand.NewPCG(7, 7)), 1, 30*time.Minute)

	require.Len(t, rows, 48)
	assert.Equal(t, "20250101 00:00:00", rows[0].time)
	assert.Equal(t, generate(rand.New(rand.NewPCG(7, 7)), 1, 30*time.Minute), rows, "same seed, same rows")

	for _, r := range rows {
		if r.reading == nil {
			continue
		}
		assert.InDelta(t, 24, r.reading.Temperature, 6)
	}
}

func TestWrittenFilesLoad(t *testing.T) {
	rows := generate(rand.New(rand.NewPCG(3, 3)), 2, 15*time.Minute)
	valid := 0
	for _, r := range rows {
		if r.reading != nil {
			valid++
		}
	}

	dir := t.TempDir()
	for _, name := range []string{"readings.xlsx", "readings.csv"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if filepath.Ext(name) == ".xlsx" {
				require.NoError(t, writeXLSX(path, rows))
			} else {
				require.NoError(t, writeCSV(path, rows))
			}

			p := pipeline.New(
				source.NewOpener(10),
				pipeline.NewReadingParser(nil, time.UTC),
				pipeline.Options{TimeColumns: []string{timeHeader}, TemperatureColumns: []string{tempHeader}},
				slog.New(slog.NewTextHandler(io.Discard, nil)),
				observability.NewMetricsForTesting(),
			)
			series, report, err := p.Load(context.Background(), path)
			require.NoError(t, err)

			assert.Equal(t, len(rows), report.Rows)
			assert.Equal(t, valid, report.Kept)
			assert.Len(t, series, valid)
		})
	}
}
