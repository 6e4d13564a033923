// Command genmock writes a synthetic temperature log in the layout the phone
// shortcut produces: a 时间 column of "20060102 15:04:05" text and a 温度
// column of readings, with a sprinkling of the malformed rows real exports
// contain. It prints a summary of the valid readings so fixtures can be
// checked by eye.
//
// Usage:
//
//	go run ./cmd/genmock -out testdata/readings.xlsx -days 3 -interval 30m -seed 7
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jonboulle/clockwork"
	"github.com/xuri/excelize/v2"

	"github.com/couchcryptid/temperature-chart/internal/domain"
)

var baseDate = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

const (
	timeHeader = "时间"
	tempHeader = "温度"
	timeLayout = "20060102 15:04:05"
)

// row is one generated table row. Valid rows also carry the reading.
type row struct {
	time    string
	temp    any // float64, string, or nil for an empty cell
	reading *domain.Reading
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output file (.xlsx or .csv)")
	days := flag.Int("days", 2, "days of readings to generate")
	interval := flag.Duration("interval", 30*time.Minute, "time between readings")
	seed := flag.Uint64("seed", 1, "random seed")
	flag.Parse()

	if *out == "" || *days < 1 || *interval <= 0 {
		flag.Usage()
		return fmt.Errorf("missing or invalid flags: -out, -days, -interval")
	}

	// Set a fixed clock for a reproducible summary.
	domain.SetClock(clockwork.NewFakeClockAt(baseDate.AddDate(0, 0, *days)))
	defer domain.SetClock(nil)

	rows := generate(rand.New(rand.NewPCG(*seed, *seed)), *days, *interval)

	var err error
	switch strings.ToLower(filepath.Ext(*out)) {
	case ".xlsx":
		err = writeXLSX(*out, rows)
	case ".csv":
		err = writeCSV(*out, rows)
	default:
		err = fmt.Errorf("unsupported output type %q (want .xlsx or .csv)", filepath.Ext(*out))
	}
	if err != nil {
		return err
	}
	log.Printf("wrote %d rows to %s", len(rows), *out)

	return printSummary(rows)
}

// generate produces a diurnal temperature curve with noise. Roughly one row
// in 25 is malformed in one of the ways real exports are.
func generate(rng *rand.Rand, days int, interval time.Duration) []row {
	end := baseDate.AddDate(0, 0, days)
	var rows []row
	for t := baseDate; t.Before(end); t = t.Add(interval) {
		hours := float64(t.Hour()) + float64(t.Minute())/60
		temp := 24 + 4*math.Sin(2*math.Pi*(hours-9)/24) + rng.NormFloat64()*0.3
		temp = math.Round(temp*10) / 10

		r := row{time: t.Format(timeLayout), temp: temp}
		switch rng.IntN(25) {
		case 0:
			r.temp = "N/A"
		case 1:
			r.temp = nil
		case 2:
			r.time = "--"
		case 3:
			r.temp = strconv.FormatFloat(temp, 'f', 1, 64) + "°C"
			r.reading = &domain.Reading{Time: t, Temperature: temp}
		default:
			r.reading = &domain.Reading{Time: t, Temperature: temp}
		}
		rows = append(rows, r)
	}
	return rows
}

func writeXLSX(path string, rows []row) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	if err := f.SetSheetRow(sheet, "A1", &[]any{timeHeader, tempHeader}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &[]any{r.time, r.temp}); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func writeCSV(path string, rows []row) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	w := csv.NewWriter(f)
	if err := w.Write([]string{timeHeader, tempHeader}); err != nil {
		return err
	}
	for _, r := range rows {
		var temp string
		switch v := r.temp.(type) {
		case float64:
			temp = strconv.FormatFloat(v, 'f', -1, 64)
		case string:
			temp = v
		}
		if err := w.Write([]string{r.time, temp}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func printSummary(rows []row) error {
	var readings []domain.Reading
	for _, r := range rows {
		if r.reading != nil {
			readings = append(readings, *r.reading)
		}
	}
	summary := domain.Summarize(domain.DeriveSlopes(domain.NewSeries(readings)))

	data, err := sonic.ConfigStd.MarshalIndent(map[string]any{
		"rows":    len(rows),
		"valid":   len(readings),
		"invalid": len(rows) - len(readings),
		"summary": summary,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
