package domain

import (
	"fmt"
	"time"
)

// Reading is one validated temperature observation.
type Reading struct {
	Time        time.Time `json:"time"`
	Temperature float64   `json:"temperature"` // °C
}

func (r Reading) String() string {
	return fmt.Sprintf("%s %.1f°C", r.Time.Format(time.DateTime), r.Temperature)
}

// Series is an ordered sequence of readings, ascending by time.
type Series []Reading

// DerivedPoint is a reading annotated with its local slope in °C/hour.
// Slope is nil when it cannot be estimated.
type DerivedPoint struct {
	Reading
	Slope *float64 `json:"slope"`
}

// Column is one named column read from a table. HeaderRow is the 1-based
// sheet row holding the header; Cells[0] sits on HeaderRow+1.
type Column struct {
	Header    string
	HeaderRow int
	Cells     []Cell
}

// Row returns the 1-based sheet row of the i-th cell.
func (c Column) Row(i int) int {
	return c.HeaderRow + 1 + i
}
