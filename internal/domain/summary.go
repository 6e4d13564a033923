package domain

import "time"

// Summary aggregates a derived point sequence for reports and the chart header.
type Summary struct {
	Count           int       `json:"count"`
	First           time.Time `json:"first"`
	Last            time.Time `json:"last"`
	Min             float64   `json:"min"`
	Max             float64   `json:"max"`
	Mean            float64   `json:"mean"`
	SteepestRise    *float64  `json:"steepest_rise"`
	SteepestFall    *float64  `json:"steepest_fall"`
	UndefinedSlopes int       `json:"undefined_slopes"`
	GeneratedAt     time.Time `json:"generated_at"`
}

// Summarize computes a Summary. An empty input yields a zero Summary apart
// from GeneratedAt.
func Summarize(points []DerivedPoint) Summary {
	s := Summary{GeneratedAt: clock.Now()}
	if len(points) == 0 {
		return s
	}

	series := Readings(points)
	s.Count = len(points)
	s.First, s.Last = series.Span()
	s.Min, s.Max = series.TemperatureRange()

	var sum float64
	for _, p := range points {
		sum += p.Temperature
		if p.Slope == nil {
			s.UndefinedSlopes++
			continue
		}
		v := *p.Slope
		if v > 0 && (s.SteepestRise == nil || v > *s.SteepestRise) {
			s.SteepestRise = &v
		}
		if v < 0 && (s.SteepestFall == nil || v < *s.SteepestFall) {
			s.SteepestFall = &v
		}
	}
	s.Mean = sum / float64(len(points))
	return s
}
