package chart

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"math"
	"strings"

	"github.com/couchcryptid/temperature-chart/internal/domain"
)

//go:embed templates/*.html
var templatesFS embed.FS

// HTMLRenderer renders an interactive page: an inline SVG chart with a hover
// tooltip showing the nearest reading.
type HTMLRenderer struct {
	opts Options
	tmpl *template.Template
}

// NewHTMLRenderer parses the embedded page template.
func NewHTMLRenderer(opts Options) (*HTMLRenderer, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse chart templates: %w", err)
	}
	return &HTMLRenderer{opts: opts, tmpl: tmpl}, nil
}

// ContentType is the media type written by Render.
func (r *HTMLRenderer) ContentType() string { return "text/html; charset=utf-8" }

// Render writes the chart page for points to w.
func (r *HTMLRenderer) Render(w io.Writer, title string, points []domain.DerivedPoint) error {
	l, err := NewLayout(points, r.opts)
	if err != nil {
		return err
	}
	return r.tmpl.ExecuteTemplate(w, "chart.html", newPage(l, title))
}

type marker struct {
	X     float64  `json:"x"`
	Y     float64  `json:"y"`
	Lines []string `json:"lines"`
}

type svgTick struct {
	Pos   float64
	Label string
}

type page struct {
	Title     string
	Subtitle  string
	Width     int
	Height    int
	Frame     Frame
	Line      string
	Markers   []marker
	XTicks    []svgTick
	DayLines  []float64
	DayLabels []svgTick
	YTicks    []svgTick
}

func newPage(l *Layout, title string) page {
	p := page{
		Title:    title,
		Subtitle: subtitle(l),
		Width:    l.Width,
		Height:   l.Height,
		Frame:    l.Frame(),
		Markers:  make([]marker, len(l.Points)),
	}

	var line strings.Builder
	for i, pt := range l.Points {
		x, y := px(l.X(pt.Time)), px(l.Y(pt.Temperature))
		p.Markers[i] = marker{X: x, Y: y, Lines: Tooltip(pt)}
		if i > 0 {
			line.WriteByte(' ')
		}
		fmt.Fprintf(&line, "%g,%g", x, y)
	}
	p.Line = line.String()

	for _, t := range l.XTicks {
		p.XTicks = append(p.XTicks, svgTick{Pos: px(l.X(t.At)), Label: t.Label})
	}
	for _, m := range l.DayBoundaries {
		p.DayLines = append(p.DayLines, px(l.X(m)))
	}
	for _, d := range l.DayLabels {
		p.DayLabels = append(p.DayLabels, svgTick{Pos: px(l.X(d.At)), Label: d.Label})
	}
	for _, t := range l.YTicks {
		p.YTicks = append(p.YTicks, svgTick{Pos: px(l.Y(t.Value)), Label: t.Label})
	}
	return p
}

func subtitle(l *Layout) string {
	return fmt.Sprintf("%d readings, %s to %s", len(l.Points),
		l.Start.Format("2006-01-02 15:04"), l.End.Format("2006-01-02 15:04"))
}

// px rounds a coordinate to hundredths of a pixel.
func px(v float64) float64 {
	return math.Round(v*100) / 100
}
