package chart

import (
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/couchcryptid/temperature-chart/internal/domain"
)

// Tooltip returns the hover lines for a point: timestamp, temperature and
// slope.
func Tooltip(p domain.DerivedPoint) []string {
	return []string{
		p.Time.Format(time.DateTime),
		fmt.Sprintf("Temp: %.1f°C", p.Temperature),
		"Slope: " + FormatSlope(p.Slope),
	}
}

// FormatSlope renders a slope as "+0.50 °C/h", or "n/a" when undefined.
func FormatSlope(slope *float64) string {
	if slope == nil {
		return "n/a"
	}
	return fmt.Sprintf("%+.2f °C/h", *slope)
}

// Nearest returns the index of the point closest in time to t, or -1 when
// points is empty. Points must be sorted ascending by time. Ties go to the
// earlier point.
func Nearest(points []domain.DerivedPoint, t time.Time) int {
	if len(points) == 0 {
		return -1
	}
	i, _ := slices.BinarySearchFunc(points, t, func(p domain.DerivedPoint, t time.Time) int {
		return p.Time.Compare(t)
	})
	switch {
	case i == 0:
		return 0
	case i == len(points):
		i = len(points) - 1
	case t.Sub(points[i-1].Time) <= points[i].Time.Sub(t):
		i--
	}
	for i > 0 && points[i-1].Time.Equal(points[i].Time) {
		i--
	}
	return i
}

// Title names a chart after its source document and table.
func Title(source, table string) string {
	if source == "" {
		return "Temperature"
	}
	if table == "" {
		return "Temperature: " + filepath.Base(source)
	}
	return fmt.Sprintf("Temperature: %s (%s)", filepath.Base(source), table)
}
