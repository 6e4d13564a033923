package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTimeText = "20250101 13:30:00"

var utcOpts = ParseOptions{Location: time.UTC}

func TestParseRow(t *testing.T) {
	t.Run("text time and numeric temperature", func(t *testing.T) {
		r, err := ParseRow(2, TextCell(testTimeText), NumberCell(21.5), utcOpts)

		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 1, 1, 13, 30, 0, 0, time.UTC), r.Time)
		assert.InDelta(t, 21.5, r.Temperature, 1e-9)
	})

	t.Run("text temperature with unit", func(t *testing.T) {
		r, err := ParseRow(2, TextCell(testTimeText), TextCell(" 21.5 °C"), utcOpts)

		require.NoError(t, err)
		assert.InDelta(t, 21.5, r.Temperature, 1e-9)
	})

	t.Run("legacy chinese layout", func(t *testing.T) {
		r, err := ParseRow(2, TextCell("2025年01月01日 13:30"), TextCell("21.5℃"), utcOpts)

		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 1, 1, 13, 30, 0, 0, time.UTC), r.Time)
	})

	t.Run("uses configured location", func(t *testing.T) {
		loc := time.FixedZone("UTC+8", 8*60*60)
		r, err := ParseRow(2, TextCell(testTimeText), NumberCell(20), ParseOptions{Location: loc})

		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 1, 1, 5, 30, 0, 0, time.UTC), r.Time.UTC())
	})
}

func TestParseRow_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		time   Cell
		temp   Cell
		reason string
		field  string
	}{
		{"blank row", EmptyCell(), EmptyCell(), ReasonBlank, ""},
		{"missing time", EmptyCell(), NumberCell(20), ReasonMissingTime, "time"},
		{"missing temperature", TextCell(testTimeText), EmptyCell(), ReasonMissingTemperature, "temperature"},
		{"unparsable time", TextCell("yesterday"), NumberCell(20), ReasonBadTime, "time"},
		{"numeric time", NumberCell(45658.5), NumberCell(20), ReasonBadTime, "time"},
		{"non-numeric temperature", TextCell(testTimeText), TextCell("N/A"), ReasonBadTemperature, "temperature"},
		{"NaN temperature", TextCell(testTimeText), TextCell("NaN"), ReasonBadTemperature, "temperature"},
		{"infinite temperature", TextCell(testTimeText), TextCell("+Inf"), ReasonBadTemperature, "temperature"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRow(7, tt.time, tt.temp, utcOpts)

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrRowParse)

			var rowErr *RowError
			require.True(t, errors.As(err, &rowErr))
			assert.Equal(t, 7, rowErr.Row)
			assert.Equal(t, tt.reason, rowErr.Reason)
			assert.Equal(t, tt.field, rowErr.Field)
			assert.Contains(t, err.Error(), "row 7")
		})
	}
}

func TestParseTimeCell_CustomLayouts(t *testing.T) {
	opts := ParseOptions{Layouts: []string{time.RFC3339}, Location: time.UTC}

	_, err := ParseTimeCell(TextCell(testTimeText), opts)
	require.Error(t, err)

	ts, err := ParseTimeCell(TextCell("2025-01-01T13:30:00Z"), opts)
	require.NoError(t, err)
	assert.Equal(t, 13, ts.Hour())
}

func TestHeaderMatches(t *testing.T) {
	assert.True(t, HeaderMatches("时间", "时间"))
	assert.True(t, HeaderMatches(" Time ", "time"))
	assert.True(t, HeaderMatches("温度 (°C)", "温度"))
	assert.False(t, HeaderMatches("湿度", "温度"))
	assert.False(t, HeaderMatches("", "time"))
	assert.False(t, HeaderMatches("Time", ""))
}

func TestInferCell(t *testing.T) {
	assert.Equal(t, EmptyCell(), InferCell("   "))
	assert.Equal(t, NumberCell(21.5), InferCell(" 21.5 "))
	assert.Equal(t, TextCell("21.5°C"), InferCell("21.5°C"))
	assert.Equal(t, TextCell("NaN"), InferCell("NaN"))
	assert.Equal(t, TextCell(testTimeText), InferCell(testTimeText))
}

func TestKind(t *testing.T) {
	assert.Equal(t, "SourceNotFound", Kind(ErrSourceNotFound))
	assert.Equal(t, "SchemaMismatch", Kind(errors.Join(errors.New("ctx"), ErrSchemaMismatch)))
	assert.Equal(t, "EmptyDataset", Kind(ErrEmptyDataset))
	assert.Equal(t, "RowParseError", Kind(&RowError{Row: 1, Reason: ReasonBlank}))
	assert.Equal(t, "Error", Kind(errors.New("boom")))
	assert.Empty(t, Kind(nil))
}

func TestHeaderEquals(t *testing.T) {
	assert.True(t, HeaderEquals(" TIME", "time"))
	assert.False(t, HeaderEquals("Timestamp", "time"))
	assert.False(t, HeaderEquals(" ", " "))
}
