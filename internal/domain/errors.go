package domain

import (
	"errors"
	"fmt"
)

// Dataset-level failures. They abort a load and are matched with errors.Is.
var (
	ErrSourceNotFound = errors.New("source not found")
	ErrSchemaMismatch = errors.New("schema mismatch")
	ErrEmptyDataset   = errors.New("empty dataset")
)

// ErrRowParse marks a row-level failure. Rows failing to parse are skipped.
var ErrRowParse = errors.New("row parse error")

// Skip reasons reported for rejected rows.
const (
	ReasonBlank              = "blank"
	ReasonMissingTime        = "missing_time"
	ReasonMissingTemperature = "missing_temperature"
	ReasonBadTime            = "bad_time"
	ReasonBadTemperature     = "bad_temperature"
)

// RowError describes why a single row was rejected.
type RowError struct {
	Row    int    // 1-based sheet row
	Field  string // "time" or "temperature"; empty for blank rows
	Reason string // one of the Reason* constants
	Value  string // offending cell as text
	Err    error  // underlying parse error, if any
}

func (e *RowError) Error() string {
	msg := fmt.Sprintf("row %d: %s", e.Row, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" %q", e.Value)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RowError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrRowParse}
	}
	return []error{ErrRowParse, e.Err}
}

// Kind names the failure class of err for user-facing messages.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSourceNotFound):
		return "SourceNotFound"
	case errors.Is(err, ErrSchemaMismatch):
		return "SchemaMismatch"
	case errors.Is(err, ErrEmptyDataset):
		return "EmptyDataset"
	case errors.Is(err, ErrRowParse):
		return "RowParseError"
	default:
		return "Error"
	}
}
