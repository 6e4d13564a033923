package domain

// DeriveSlopes annotates every reading with its local rate of change in °C
// per hour. The result has the same length and order as the series.
//
//   - interior points: (T[i+1] - T[i-1]) / hours(t[i-1], t[i+1])
//   - first point:     (T[1] - T[0]) / hours(t[0], t[1])
//   - last point:      (T[n-1] - T[n-2]) / hours(t[n-2], t[n-1])
//
// A single reading, or a window with zero elapsed time, has no slope.
func DeriveSlopes(series Series) []DerivedPoint {
	n := len(series)
	points := make([]DerivedPoint, n)
	for i, r := range series {
		points[i].Reading = r
		if n < 2 {
			continue
		}
		lo, hi := i-1, i+1
		switch {
		case i == 0:
			lo = 0
		case i == n-1:
			hi = n - 1
		}
		points[i].Slope = rate(series[lo], series[hi])
	}
	return points
}

// rate is the temperature change from a to b per hour, or nil when no time
// elapses between them.
func rate(a, b Reading) *float64 {
	hours := b.Time.Sub(a.Time).Hours()
	if hours == 0 {
		return nil
	}
	v := (b.Temperature - a.Temperature) / hours
	if !isFinite(v) {
		return nil
	}
	return &v
}
