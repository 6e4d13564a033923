// Package chart lays out and renders a temperature series: time ticks, day
// boundaries, per-day date labels, a temperature axis and hover tooltips.
package chart

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/couchcryptid/temperature-chart/internal/domain"
)

const (
	DefaultTickInterval = 30 * time.Minute
	DefaultWidth        = 1200
	DefaultHeight       = 600

	tempStep    = 0.5
	maxXTicks   = 96
	maxYTicks   = 60
	tickLayout  = "15:04"
	dayTick     = "01-02"
	oneDay      = 24 * time.Hour
	dateLayout  = time.DateOnly
	epsilon     = 1e-9
	autoPadding = 1.0
	relPadding  = 1e-9
)

// ErrNoPoints is returned when asked to lay out an empty series.
var ErrNoPoints = errors.New("chart: no points to plot")

// Options configures layout and canvas size.
type Options struct {
	TickInterval time.Duration
	YMin, YMax   *float64 // both set fixes the temperature axis
	Width        int
	Height       int
}

func (o Options) withDefaults() Options {
	if o.TickInterval <= 0 {
		o.TickInterval = DefaultTickInterval
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	return o
}

// Tick is a labelled position on the time axis.
type Tick struct {
	At    time.Time
	Label string
}

// YTick is a labelled position on the temperature axis.
type YTick struct {
	Value float64
	Label string
}

// Layout is the presentation of a series, independent of output format.
type Layout struct {
	Points []domain.DerivedPoint

	Start, End time.Time
	YMin, YMax float64

	// TickInterval is the spacing actually used; it is widened from the
	// configured one when the series is too long for readable labels.
	TickInterval  time.Duration
	XTicks        []Tick
	DayBoundaries []time.Time
	DayLabels     []Tick
	YTicks        []YTick

	Width, Height int
}

// NewLayout computes axes and annotations for points, which must be sorted
// ascending by time. Day boundaries and labels use the location of the first
// point.
func NewLayout(points []domain.DerivedPoint, opts Options) (*Layout, error) {
	if len(points) == 0 {
		return nil, ErrNoPoints
	}
	opts = opts.withDefaults()

	l := &Layout{
		Points: points,
		Start:  points[0].Time,
		End:    points[len(points)-1].Time,
		Width:  opts.Width,
		Height: opts.Height,
	}
	loc := l.Start.Location()

	l.TickInterval = widen(opts.TickInterval, l.End.Sub(l.Start), maxXTicks)
	l.XTicks = timeTicks(l.Start, l.End, l.TickInterval, loc)
	l.DayBoundaries = midnights(l.Start, l.End, loc)
	l.DayLabels = dayLabels(points, loc)

	if opts.YMin != nil && opts.YMax != nil {
		if *opts.YMax <= *opts.YMin {
			return nil, fmt.Errorf("chart: temperature range %v:%v is empty", *opts.YMin, *opts.YMax)
		}
		l.YMin, l.YMax = *opts.YMin, *opts.YMax
	} else {
		lo, hi := domain.Readings(points).TemperatureRange()
		l.YMin = math.Floor(lo) - autoPadding
		l.YMax = math.Ceil(hi) + autoPadding
		if !(l.YMax > l.YMin) {
			// Whole-degree padding vanishes at extreme magnitudes.
			pad := math.Max(autoPadding, math.Abs(lo)*relPadding)
			l.YMin, l.YMax = lo-pad, hi+pad
		}
	}
	l.YTicks = tempTicks(l.YMin, l.YMax)

	return l, nil
}

// XFrac maps t onto [0, 1] across the time axis. A zero-length series maps
// to the centre.
func (l *Layout) XFrac(t time.Time) float64 {
	span := l.End.Sub(l.Start)
	if span <= 0 {
		return 0.5
	}
	return float64(t.Sub(l.Start)) / float64(span)
}

// YFrac maps v onto [0, 1] from the bottom of the temperature axis. A
// degenerate axis maps to the centre.
func (l *Layout) YFrac(v float64) float64 {
	span := l.YMax - l.YMin
	if !(span > 0) || math.IsInf(span, 0) {
		return 0.5
	}
	return (v - l.YMin) / span
}

// Frame is the plot area inside a canvas, in pixels.
type Frame struct {
	Left, Top, Width, Height float64
}

// Plot margins leave room for axis labels and the title.
const (
	marginLeft   = 64
	marginRight  = 24
	marginTop    = 48
	marginBottom = 64
)

// Frame returns the plot area of the layout's canvas.
func (l *Layout) Frame() Frame {
	return Frame{
		Left:   marginLeft,
		Top:    marginTop,
		Width:  math.Max(float64(l.Width-marginLeft-marginRight), 1),
		Height: math.Max(float64(l.Height-marginTop-marginBottom), 1),
	}
}

// X returns the horizontal pixel position of t.
func (l *Layout) X(t time.Time) float64 {
	f := l.Frame()
	return f.Left + l.XFrac(t)*f.Width
}

// Y returns the vertical pixel position of temperature v.
func (l *Layout) Y(v float64) float64 {
	f := l.Frame()
	return f.Top + (1-l.YFrac(v))*f.Height
}

// Right and Bottom are the far edges of the plot area.
func (f Frame) Right() float64  { return f.Left + f.Width }
func (f Frame) Bottom() float64 { return f.Top + f.Height }

// widen doubles interval until span holds at most limit ticks. Intervals
// longer than a day are rounded up to whole days.
func widen(interval, span time.Duration, limit int) time.Duration {
	for span/interval > time.Duration(limit) {
		interval *= 2
	}
	if interval > oneDay {
		interval = (interval + oneDay - 1) / oneDay * oneDay
	}
	return interval
}

// timeTicks returns ticks at every multiple of interval counted from local
// midnight, within [start, end]. Intervals of a day or more count whole days
// from the first midnight and are labelled with the date.
func timeTicks(start, end time.Time, interval time.Duration, loc *time.Location) []Tick {
	var ticks []Tick
	if interval >= oneDay {
		days := int(interval / oneDay)
		for at := midnight(start, loc); !at.After(end); at = at.AddDate(0, 0, days) {
			if !at.Before(start) {
				ticks = append(ticks, Tick{At: at, Label: at.Format(dayTick)})
			}
		}
		return ticks
	}

	day := midnight(start, loc)
	for !day.After(end) {
		next := day.AddDate(0, 0, 1)
		for at := day; at.Before(next) && !at.After(end); at = at.Add(interval) {
			if at.Before(start) {
				continue
			}
			ticks = append(ticks, Tick{At: at, Label: at.In(loc).Format(tickLayout)})
		}
		day = next
	}
	return ticks
}

// midnights returns every local midnight m with start <= m <= end.
func midnights(start, end time.Time, loc *time.Location) []time.Time {
	var out []time.Time
	m := midnight(start, loc)
	if m.Before(start) {
		m = m.AddDate(0, 0, 1)
	}
	for ; !m.After(end); m = m.AddDate(0, 0, 1) {
		out = append(out, m)
	}
	return out
}

// dayLabels places one date label per calendar day, centred between that
// day's first and last reading.
func dayLabels(points []domain.DerivedPoint, loc *time.Location) []Tick {
	var labels []Tick
	first := 0
	for i := 1; i <= len(points); i++ {
		if i < len(points) && sameDay(points[i].Time, points[first].Time, loc) {
			continue
		}
		a, b := points[first].Time, points[i-1].Time
		labels = append(labels, Tick{
			At:    a.Add(b.Sub(a) / 2),
			Label: a.In(loc).Format(dateLayout),
		})
		first = i
	}
	return labels
}

// tempTicks returns ticks on multiples of the step within [lo, hi]. The step
// starts at half a degree and doubles for wide ranges, and never falls below
// the float spacing at the range's magnitude.
func tempTicks(lo, hi float64) []YTick {
	step := tempStep
	for (hi-lo)/step > maxYTicks {
		step *= 2
	}
	for spacing := math.Max(ulp(lo), ulp(hi)); step < spacing; {
		step *= 2
	}

	var ticks []YTick
	for v := math.Ceil(lo/step-epsilon) * step; v <= hi+epsilon && len(ticks) <= 2*maxYTicks; v += step {
		ticks = append(ticks, YTick{Value: v, Label: fmt.Sprintf("%.1f", v)})
		if v+step == v {
			break
		}
	}
	return ticks
}

// ulp is the gap between |x| and the next larger float64.
func ulp(x float64) float64 {
	a := math.Abs(x)
	return math.Nextafter(a, math.Inf(1)) - a
}

func midnight(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func sameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
