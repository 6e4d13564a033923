// Command validate loads a temperature document the same way tempchart does
// and runs integrity checks over the result: row accounting, ordering, slope
// derivation and summary consistency. It exits non-zero when the document
// cannot be loaded or any check fails.
//
// Usage:
//
//	go run ./cmd/validate -json testdata/readings.xlsx
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/temperature-chart/internal/adapter/source"
	"github.com/couchcryptid/temperature-chart/internal/config"
	"github.com/couchcryptid/temperature-chart/internal/domain"
	"github.com/couchcryptid/temperature-chart/internal/observability"
	"github.com/couchcryptid/temperature-chart/internal/pipeline"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// report is the -json output.
type report struct {
	Load    pipeline.Report `json:"load"`
	Summary domain.Summary  `json:"summary"`
	Passed  bool            `json:"passed"`
	Errors  []string        `json:"errors,omitempty"`
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	table := fs.String("table", "", "table (sheet) to read; defaults to SOURCE_TABLE or the first")
	asJSON := fs.Bool("json", false, "print the report as JSON")
	now := fs.String("now", "", "fix the clock to this RFC 3339 time for reproducible output")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: validate [-table name] [-json] [-now time] <path>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 1
	}
	path := fs.Arg(0)

	if *now != "" {
		at, err := time.Parse(time.RFC3339, *now)
		if err != nil {
			fmt.Fprintf(stderr, "FATAL: invalid -now: %v\n", err)
			return 1
		}
		domain.SetClock(clockwork.NewFakeClockAt(at))
		defer domain.SetClock(nil)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "FATAL: load config: %v\n", err)
		return 1
	}
	if *table != "" {
		cfg.SourceTable = *table
	}

	p := pipeline.New(
		source.NewOpener(cfg.HeaderScanRows),
		pipeline.NewReadingParser(cfg.TimeLayouts, cfg.Location),
		pipeline.Options{
			Table:              cfg.SourceTable,
			TimeColumns:        cfg.TimeColumns,
			TemperatureColumns: cfg.TemperatureColumns,
		},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		observability.NewMetricsForTesting(),
	)

	res, err := p.Run(ctx, path)
	if err != nil {
		fmt.Fprintf(stderr, "FATAL: %s: %v\n", domain.Kind(err), err)
		return 1
	}

	summary := domain.Summarize(res.Points)
	phases := []*phase{
		checkAccounting(res.Report),
		checkOrdering(res.Points),
		checkSlopes(res.Points),
		checkSummary(res.Points, summary),
	}

	if *asJSON {
		return printJSON(stdout, stderr, res.Report, summary, phases)
	}
	return printText(stdout, res.Report, phases)
}

func printText(w io.Writer, r pipeline.Report, phases []*phase) int {
	fmt.Fprintf(w, "=== %s (%s) ===\n\n", r.Source, r.Table)

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-32s %s\n", p.name, status)
	}

	fmt.Fprintf(w, "\nRows: %d read, %d kept, %d skipped\n", r.Rows, r.Kept, r.Skipped)
	for reason, n := range r.SkippedBy {
		fmt.Fprintf(w, "  %-20s %d\n", reason, n)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(w, "\nValidation FAILED.")
	return 1
}

func printJSON(w, stderr io.Writer, r pipeline.Report, s domain.Summary, phases []*phase) int {
	out := report{Load: r, Summary: s, Passed: true}
	for _, p := range phases {
		for _, e := range p.errors {
			out.Errors = append(out.Errors, p.name+": "+e)
		}
	}
	out.Passed = len(out.Errors) == 0

	data, err := sonic.ConfigStd.MarshalIndent(out, "", "  ")
	if err != nil {
		fmt.Fprintf(stderr, "FATAL: marshal report: %v\n", err)
		return 1
	}
	fmt.Fprintln(w, string(data))
	if !out.Passed {
		return 1
	}
	return 0
}

// ── Checks ──

func checkAccounting(r pipeline.Report) *phase {
	p := &phase{name: "Row accounting"}
	if r.Kept+r.Skipped != r.Rows {
		p.errorf("kept %d + skipped %d != rows %d", r.Kept, r.Skipped, r.Rows)
	}
	byReason := 0
	for _, n := range r.SkippedBy {
		byReason += n
	}
	if byReason != r.Skipped {
		p.errorf("skipped by reason sums to %d, want %d", byReason, r.Skipped)
	}
	if r.Kept == 0 {
		p.errorf("no readings kept")
	}
	return p
}

func checkOrdering(points []domain.DerivedPoint) *phase {
	p := &phase{name: "Chronological order"}
	for i := 1; i < len(points); i++ {
		if points[i].Time.Before(points[i-1].Time) {
			p.errorf("point %d (%s) precedes point %d (%s)",
				i, points[i].Time.Format(time.RFC3339), i-1, points[i-1].Time.Format(time.RFC3339))
		}
	}
	return p
}

// checkSlopes recomputes each rate from its neighbours.
func checkSlopes(points []domain.DerivedPoint) *phase {
	p := &phase{name: "Slope derivation"}
	if len(points) == 1 {
		if points[0].Slope != nil {
			p.errorf("single reading has slope %g", *points[0].Slope)
		}
		return p
	}
	for i := range points {
		a, b := i, i+1
		switch {
		case i == len(points)-1:
			a, b = i-1, i
		case i > 0:
			a, b = i-1, i+1
		}
		hours := points[b].Time.Sub(points[a].Time).Hours()
		got := points[i].Slope
		if hours == 0 {
			if got != nil {
				p.errorf("point %d: zero interval but slope %g", i, *got)
			}
			continue
		}
		want := (points[b].Temperature - points[a].Temperature) / hours
		if got == nil {
			p.errorf("point %d: missing slope, want %g", i, want)
		} else if math.Abs(*got-want) > 1e-9 {
			p.errorf("point %d: slope %g, want %g", i, *got, want)
		}
	}
	return p
}

func checkSummary(points []domain.DerivedPoint, s domain.Summary) *phase {
	p := &phase{name: "Summary"}
	if s.Count != len(points) {
		p.errorf("count %d, want %d", s.Count, len(points))
	}
	if len(points) == 0 {
		return p
	}
	lo, hi := domain.Readings(points).TemperatureRange()
	if s.Min != lo || s.Max != hi {
		p.errorf("range %g..%g, want %g..%g", s.Min, s.Max, lo, hi)
	}
	if s.Mean < lo || s.Mean > hi {
		p.errorf("mean %g outside %g..%g", s.Mean, lo, hi)
	}
	return p
}
