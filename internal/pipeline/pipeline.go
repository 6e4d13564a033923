package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/temperature-chart/internal/domain"
	"github.com/couchcryptid/temperature-chart/internal/observability"
)

// Workbook is an opened spreadsheet document.
type Workbook interface {
	// Tables lists table names in document order.
	Tables() []string
	// ReadColumns returns one column per alias set, all read from the same
	// header row. Unknown tables, and tables with no row holding a header for
	// every set, fail with domain.ErrSchemaMismatch.
	ReadColumns(table string, aliases ...[]string) ([]domain.Column, error)
	Close() error
}

// Opener opens documents by path. Missing or unreadable documents fail with
// domain.ErrSourceNotFound.
type Opener interface {
	Open(ctx context.Context, path string) (Workbook, error)
}

// RowParser converts a (time, temperature) cell pair into a reading. Errors
// are row-level: the row is skipped.
type RowParser interface {
	Parse(row int, timeCell, tempCell domain.Cell) (domain.Reading, error)
}

// Options selects the table and columns to read.
type Options struct {
	Table              string   // empty selects the first table
	TimeColumns        []string // header aliases, tried in order
	TemperatureColumns []string
}

// Report describes what a load kept and skipped.
type Report struct {
	Source            string         `json:"source"`
	Table             string         `json:"table"`
	TimeColumn        string         `json:"time_column"`
	TemperatureColumn string         `json:"temperature_column"`
	Rows              int            `json:"rows"`
	Kept              int            `json:"kept"`
	Skipped           int            `json:"skipped"`
	SkippedBy         map[string]int `json:"skipped_by,omitempty"`
}

// Result is an immutable loaded dataset.
type Result struct {
	Points   []domain.DerivedPoint
	Report   Report
	LoadedAt time.Time
}

// Pipeline loads a document into a validated series and derives slopes.
type Pipeline struct {
	opener  Opener
	parser  RowParser
	opts    Options
	logger  *slog.Logger
	metrics *observability.Metrics
	ready   atomic.Bool
}

// New creates a Pipeline with the given source, row parser and observability.
func New(o Opener, p RowParser, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		opener:  o,
		parser:  p,
		opts:    opts,
		logger:  logger,
		metrics: metrics,
	}
}

// CheckReadiness returns nil once a dataset has been loaded successfully.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no dataset loaded yet")
	}
	return nil
}

// Run loads the document at path and derives per-point slopes.
func (p *Pipeline) Run(ctx context.Context, path string) (*Result, error) {
	start := time.Now()

	series, report, err := p.Load(ctx, path)
	if err != nil {
		p.metrics.Loads.WithLabelValues(outcome(err)).Inc()
		return nil, err
	}

	points := domain.DeriveSlopes(series)
	undefined := 0
	for _, pt := range points {
		if pt.Slope == nil {
			undefined++
		}
	}

	p.metrics.Loads.WithLabelValues("success").Inc()
	p.metrics.LoadDuration.Observe(time.Since(start).Seconds())
	p.metrics.Readings.Set(float64(len(points)))
	p.metrics.UndefinedSlopes.Set(float64(undefined))
	p.ready.Store(true)

	first, last := series.Span()
	p.logger.Info("dataset loaded",
		"source", path,
		"table", report.Table,
		"rows", report.Rows,
		"kept", report.Kept,
		"skipped", report.Skipped,
		"first", first,
		"last", last,
		"undefined_slopes", undefined,
	)

	return &Result{Points: points, Report: report, LoadedAt: time.Now()}, nil
}

// Load reads the configured table of the document at path. Rows that fail to
// parse are skipped and counted; the returned series is sorted and never
// empty. Dataset-level failures wrap domain.ErrSourceNotFound,
// domain.ErrSchemaMismatch or domain.ErrEmptyDataset.
func (p *Pipeline) Load(ctx context.Context, path string) (domain.Series, Report, error) {
	report := Report{Source: path}

	wb, err := p.opener.Open(ctx, path)
	if err != nil {
		return nil, report, err
	}
	defer func() {
		if err := wb.Close(); err != nil {
			p.logger.Warn("close source failed", "source", path, "error", err)
		}
	}()

	table, err := p.selectTable(wb)
	if err != nil {
		return nil, report, err
	}
	report.Table = table

	cols, err := wb.ReadColumns(table, p.opts.TimeColumns, p.opts.TemperatureColumns)
	if err != nil {
		return nil, report, err
	}
	timeCol, tempCol := cols[0], cols[1]
	report.TimeColumn = timeCol.Header
	report.TemperatureColumn = tempCol.Header

	n := dataRows(timeCol, tempCol)
	report.Rows = n
	p.metrics.RowsRead.Add(float64(n))

	readings := make([]domain.Reading, 0, n)
	for i := range n {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, report, err
			}
		}
		r, err := p.parser.Parse(timeCol.Row(i), cellAt(timeCol, i), cellAt(tempCol, i))
		if err != nil {
			p.skip(&report, err)
			continue
		}
		readings = append(readings, r)
	}

	report.Kept = len(readings)
	if len(readings) == 0 {
		return nil, report, fmt.Errorf("%w: no valid rows in table %q of %s (%d skipped)",
			domain.ErrEmptyDataset, table, path, report.Skipped)
	}
	return domain.NewSeries(readings), report, nil
}

func (p *Pipeline) selectTable(wb Workbook) (string, error) {
	tables := wb.Tables()
	if p.opts.Table == "" {
		if len(tables) == 0 {
			return "", fmt.Errorf("%w: document has no tables", domain.ErrSchemaMismatch)
		}
		return tables[0], nil
	}
	if !slices.Contains(tables, p.opts.Table) {
		return "", fmt.Errorf("%w: table %q not found (have %q)", domain.ErrSchemaMismatch, p.opts.Table, tables)
	}
	return p.opts.Table, nil
}

// skip records a rejected row in the report, metrics and log.
func (p *Pipeline) skip(report *Report, err error) {
	reason := "invalid"
	row := 0
	var rowErr *domain.RowError
	if errors.As(err, &rowErr) {
		reason = rowErr.Reason
		row = rowErr.Row
	}

	report.Skipped++
	if report.SkippedBy == nil {
		report.SkippedBy = make(map[string]int)
	}
	report.SkippedBy[reason]++
	p.metrics.RowsSkipped.WithLabelValues(reason).Inc()

	if reason == domain.ReasonBlank {
		p.logger.Debug("blank row, skipping", "row", row)
		return
	}
	p.logger.Warn("row parse failed, skipping row", "row", row, "reason", reason, "error", err)
}

// dataRows counts rows up to the last one holding a time or temperature
// value. Trailing blank rows are formatting residue, not data.
func dataRows(cols ...domain.Column) int {
	n := 0
	for _, c := range cols {
		for i := len(c.Cells) - 1; i >= n; i-- {
			if !c.Cells[i].IsEmpty() {
				n = i + 1
				break
			}
		}
	}
	return n
}

func cellAt(c domain.Column, i int) domain.Cell {
	if i < len(c.Cells) {
		return c.Cells[i]
	}
	return domain.EmptyCell()
}

// outcome labels a failed load for metrics.
func outcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrSourceNotFound):
		return "source_not_found"
	case errors.Is(err, domain.ErrSchemaMismatch):
		return "schema_mismatch"
	case errors.Is(err, domain.ErrEmptyDataset):
		return "empty_dataset"
	default:
		return "error"
	}
}
