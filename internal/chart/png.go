package chart

import (
	"fmt"
	"io"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/couchcryptid/temperature-chart/internal/domain"
)

const (
	labelSize = 11
	titleSize = 16
)

// PNGRenderer rasterises the chart without interactivity.
type PNGRenderer struct {
	opts Options
	font *truetype.Font
}

// NewPNGRenderer parses the bundled Go Regular font.
func NewPNGRenderer(opts Options) (*PNGRenderer, error) {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return &PNGRenderer{opts: opts, font: f}, nil
}

// ContentType is the media type written by Render.
func (r *PNGRenderer) ContentType() string { return "image/png" }

// Render encodes the chart for points as PNG to w.
func (r *PNGRenderer) Render(w io.Writer, title string, points []domain.DerivedPoint) error {
	l, err := NewLayout(points, r.opts)
	if err != nil {
		return err
	}

	dc := gg.NewContext(l.Width, l.Height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	// Faces hold glyph caches and are not safe for concurrent use.
	labels := r.face(labelSize)
	defer labels.Close()
	heading := r.face(titleSize)
	defer heading.Close()

	f := l.Frame()
	drawGrid(dc, l, f, labels)
	drawDays(dc, l, f, labels)
	drawSeries(dc, l, f)

	dc.SetFontFace(heading)
	dc.SetHexColor("#222222")
	dc.DrawStringAnchored(title, f.Left, f.Top/2, 0, 0.5)

	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

func (r *PNGRenderer) face(size float64) font.Face {
	return truetype.NewFace(r.font, &truetype.Options{Size: size})
}

func drawGrid(dc *gg.Context, l *Layout, f Frame, face font.Face) {
	dc.SetFontFace(face)
	dc.SetLineWidth(1)

	for _, t := range l.YTicks {
		y := l.Y(t.Value)
		dc.SetHexColor("#eeeeee")
		dc.DrawLine(f.Left, y, f.Right(), y)
		dc.Stroke()
		dc.SetHexColor("#444444")
		dc.DrawStringAnchored(t.Label, f.Left-6, y, 1, 0.35)
	}
	for _, t := range l.XTicks {
		x := l.X(t.At)
		dc.SetHexColor("#eeeeee")
		dc.DrawLine(x, f.Top, x, f.Bottom())
		dc.Stroke()
		dc.SetHexColor("#444444")
		dc.DrawStringAnchored(t.Label, x, f.Bottom()+14, 0.5, 0.5)
	}

	dc.SetHexColor("#444444")
	dc.DrawLine(f.Left, f.Top, f.Left, f.Bottom())
	dc.DrawLine(f.Left, f.Bottom(), f.Right(), f.Bottom())
	dc.Stroke()
}

func drawDays(dc *gg.Context, l *Layout, f Frame, face font.Face) {
	dc.SetFontFace(face)
	dc.SetHexColor("#d62728")
	dc.SetLineWidth(1)

	dc.SetDash(6, 4)
	for _, m := range l.DayBoundaries {
		x := l.X(m)
		dc.DrawLine(x, f.Top, x, f.Bottom())
		dc.Stroke()
	}
	dc.SetDash()

	for _, d := range l.DayLabels {
		dc.DrawStringAnchored(d.Label, l.X(d.At), f.Bottom()+34, 0.5, 0.5)
	}
}

func drawSeries(dc *gg.Context, l *Layout, f Frame) {
	dc.Push()
	defer dc.Pop()

	dc.DrawRectangle(f.Left, f.Top, f.Width, f.Height)
	dc.Clip()

	dc.SetHexColor("#1f77b4")
	dc.SetLineWidth(1.5)
	for i, p := range l.Points {
		x, y := l.X(p.Time), l.Y(p.Temperature)
		if i == 0 {
			dc.MoveTo(x, y)
		} else {
			dc.LineTo(x, y)
		}
	}
	dc.Stroke()

	for _, p := range l.Points {
		dc.DrawCircle(l.X(p.Time), l.Y(p.Temperature), 2.5)
	}
	dc.Fill()
}
