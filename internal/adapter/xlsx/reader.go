// Package xlsx decodes Excel workbooks into sheet tables using excelize.
package xlsx

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/couchcryptid/temperature-chart/internal/adapter/sheet"
	"github.com/couchcryptid/temperature-chart/internal/domain"
)

// Extensions lists the file extensions handled by this package.
var Extensions = []string{".xlsx", ".xlsm", ".xltx", ".xltm"}

// Open reads every sheet of the workbook at path. The file is closed before
// Open returns, on success and on failure.
func Open(path string, headerScanRows int) (*sheet.Book, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook %s: %w", domain.ErrSourceNotFound, path, err)
	}
	defer f.Close()

	var tables []sheet.Table
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("%w: read sheet %q: %w", domain.ErrSourceNotFound, name, err)
		}
		grid := make([][]domain.Cell, len(rows))
		for r, row := range rows {
			grid[r] = make([]domain.Cell, len(row))
			for c, raw := range row {
				grid[r][c] = classify(f, name, c, r, raw)
			}
		}
		tables = append(tables, sheet.Table{Name: name, Rows: grid})
	}
	return sheet.NewBook(tables, headerScanRows), nil
}

// classify turns a raw cell value into a domain cell. String-typed cells stay
// text even when they look numeric; everything else is inferred from the raw
// value.
func classify(f *excelize.File, sheetName string, col, row int, raw string) domain.Cell {
	if strings.TrimSpace(raw) == "" {
		return domain.EmptyCell()
	}
	axis, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return domain.InferCell(raw)
	}
	typ, err := f.GetCellType(sheetName, axis)
	if err != nil {
		return domain.InferCell(raw)
	}
	switch typ {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula:
		return domain.TextCell(raw)
	default:
		return domain.InferCell(raw)
	}
}
