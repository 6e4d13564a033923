package domain

import (
	"math"
	"strconv"
	"strings"
)

// CellKind discriminates the value held by a Cell.
type CellKind uint8

const (
	CellEmpty CellKind = iota
	CellText
	CellNumber
)

func (k CellKind) String() string {
	switch k {
	case CellText:
		return "text"
	case CellNumber:
		return "number"
	default:
		return "empty"
	}
}

// Cell is a spreadsheet cell value: Text, Number or Empty.
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
}

func TextCell(s string) Cell    { return Cell{Kind: CellText, Text: s} }
func NumberCell(v float64) Cell { return Cell{Kind: CellNumber, Number: v} }
func EmptyCell() Cell           { return Cell{} }

func (c Cell) IsEmpty() bool { return c.Kind == CellEmpty }

// String renders the cell the way it would appear in a sheet.
func (c Cell) String() string {
	switch c.Kind {
	case CellText:
		return c.Text
	case CellNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	default:
		return ""
	}
}

// InferCell classifies a raw string as Empty, Number or Text. Sources that
// carry no type information (CSV, raw xlsx values) use it.
func InferCell(raw string) Cell {
	s := strings.TrimSpace(raw)
	if s == "" {
		return EmptyCell()
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil && isFinite(v) {
		return NumberCell(v)
	}
	return TextCell(raw)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
