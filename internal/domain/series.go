package domain

import (
	"slices"
	"time"
)

// NewSeries returns the readings sorted ascending by time. The sort is stable:
// readings sharing a timestamp keep their input order. The input is not
// modified.
func NewSeries(readings []Reading) Series {
	s := slices.Clone(readings)
	slices.SortStableFunc(s, func(a, b Reading) int {
		return a.Time.Compare(b.Time)
	})
	return Series(s)
}

// IsSorted reports whether the series is non-decreasing in time.
func (s Series) IsSorted() bool {
	for i := 1; i < len(s); i++ {
		if s[i].Time.Before(s[i-1].Time) {
			return false
		}
	}
	return true
}

// Span returns the first and last timestamps. Both are zero for an empty series.
func (s Series) Span() (time.Time, time.Time) {
	if len(s) == 0 {
		return time.Time{}, time.Time{}
	}
	return s[0].Time, s[len(s)-1].Time
}

// TemperatureRange returns the minimum and maximum temperature.
func (s Series) TemperatureRange() (float64, float64) {
	if len(s) == 0 {
		return 0, 0
	}
	lo, hi := s[0].Temperature, s[0].Temperature
	for _, r := range s[1:] {
		lo = min(lo, r.Temperature)
		hi = max(hi, r.Temperature)
	}
	return lo, hi
}

// Readings returns the readings underlying a point sequence.
func Readings(points []DerivedPoint) Series {
	out := make(Series, len(points))
	for i, p := range points {
		out[i] = p.Reading
	}
	return out
}
