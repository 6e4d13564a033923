package pipeline

import (
	"time"

	"github.com/couchcryptid/temperature-chart/internal/domain"
)

// ReadingParser implements RowParser using the domain parsing rules with a
// fixed set of time layouts and a location for zone-less timestamps.
type ReadingParser struct {
	opts domain.ParseOptions
}

// NewReadingParser creates a ReadingParser. Empty layouts fall back to
// domain.DefaultTimeLayouts and a nil location to time.Local.
func NewReadingParser(layouts []string, loc *time.Location) *ReadingParser {
	return &ReadingParser{opts: domain.ParseOptions{Layouts: layouts, Location: loc}}
}

func (p *ReadingParser) Parse(row int, timeCell, tempCell domain.Cell) (domain.Reading, error) {
	return domain.ParseRow(row, timeCell, tempCell, p.opts)
}
