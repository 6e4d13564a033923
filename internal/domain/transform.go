package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeLayouts are tried in order when parsing time cells.
var DefaultTimeLayouts = []string{
	"20060102 15:04:05",
	"2006年01月02日 15:04",
	"2006-01-02 15:04:05",
}

// temperatureSuffixes are unit markers the shortcut appends to values.
var temperatureSuffixes = []string{"°C", "℃", "°"}

// ParseOptions controls how raw cells become readings.
type ParseOptions struct {
	Layouts  []string
	Location *time.Location
}

func (o ParseOptions) layouts() []string {
	if len(o.Layouts) == 0 {
		return DefaultTimeLayouts
	}
	return o.Layouts
}

func (o ParseOptions) location() *time.Location {
	if o.Location == nil {
		return time.Local
	}
	return o.Location
}

// ParseRow converts a (time, temperature) cell pair into a Reading. The
// returned error is always a *RowError.
func ParseRow(row int, timeCell, tempCell Cell, opts ParseOptions) (Reading, error) {
	if timeCell.IsEmpty() && tempCell.IsEmpty() {
		return Reading{}, &RowError{Row: row, Reason: ReasonBlank}
	}
	if timeCell.IsEmpty() {
		return Reading{}, &RowError{Row: row, Field: "time", Reason: ReasonMissingTime}
	}
	if tempCell.IsEmpty() {
		return Reading{}, &RowError{Row: row, Field: "temperature", Reason: ReasonMissingTemperature}
	}

	ts, err := ParseTimeCell(timeCell, opts)
	if err != nil {
		return Reading{}, &RowError{Row: row, Field: "time", Reason: ReasonBadTime, Value: timeCell.String(), Err: err}
	}
	temp, err := ParseTemperatureCell(tempCell)
	if err != nil {
		return Reading{}, &RowError{Row: row, Field: "temperature", Reason: ReasonBadTemperature, Value: tempCell.String(), Err: err}
	}
	return Reading{Time: ts, Temperature: temp}, nil
}

// ParseTimeCell parses a Text cell against each layout in turn.
func ParseTimeCell(c Cell, opts ParseOptions) (time.Time, error) {
	if c.Kind != CellText {
		return time.Time{}, fmt.Errorf("time cell is %s, want text", c.Kind)
	}
	s := strings.TrimSpace(c.Text)
	var errs []error
	for _, layout := range opts.layouts() {
		t, err := time.ParseInLocation(layout, s, opts.location())
		if err == nil {
			return t, nil
		}
		errs = append(errs, err)
	}
	return time.Time{}, fmt.Errorf("no layout matched: %w", errors.Join(errs...))
}

// ParseTemperatureCell accepts a Number cell, or a Text cell holding a decimal
// with an optional °C suffix.
func ParseTemperatureCell(c Cell) (float64, error) {
	switch c.Kind {
	case CellNumber:
		if !isFinite(c.Number) {
			return 0, fmt.Errorf("temperature %v is not finite", c.Number)
		}
		return c.Number, nil
	case CellText:
		s := strings.TrimSpace(c.Text)
		for _, suffix := range temperatureSuffixes {
			s = strings.TrimSpace(strings.TrimSuffix(s, suffix))
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, err
		}
		if !isFinite(v) {
			return 0, fmt.Errorf("temperature %q is not finite", c.Text)
		}
		return v, nil
	default:
		return 0, errors.New("temperature cell is empty")
	}
}

// HeaderEquals reports whether a header cell equals the alias, ignoring case
// and surrounding space.
func HeaderEquals(header, alias string) bool {
	h := strings.TrimSpace(header)
	return h != "" && strings.EqualFold(h, strings.TrimSpace(alias))
}

// HeaderMatches reports whether a header cell names the column alias. Headers
// match when equal ignoring case and surrounding space, or when the header
// contains the alias, e.g. "温度 (°C)" for "温度".
func HeaderMatches(header, alias string) bool {
	h := strings.ToLower(strings.TrimSpace(header))
	a := strings.ToLower(strings.TrimSpace(alias))
	if h == "" || a == "" {
		return false
	}
	return h == a || strings.Contains(h, a)
}
