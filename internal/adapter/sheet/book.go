// Package sheet holds spreadsheet tables in memory and resolves columns by
// header name. Format adapters decode files into a Book.
package sheet

import (
	"fmt"
	"slices"

	"github.com/couchcryptid/temperature-chart/internal/domain"
)

// DefaultHeaderScanRows bounds how far down a table the header row may sit.
const DefaultHeaderScanRows = 10

// Table is a named grid of cells. Rows may be ragged.
type Table struct {
	Name string
	Rows [][]domain.Cell
}

// Book is a decoded document. It implements pipeline.Workbook.
type Book struct {
	tables         []Table
	headerScanRows int
}

// NewBook wraps decoded tables. A non-positive headerScanRows uses the default.
func NewBook(tables []Table, headerScanRows int) *Book {
	if headerScanRows <= 0 {
		headerScanRows = DefaultHeaderScanRows
	}
	return &Book{tables: tables, headerScanRows: headerScanRows}
}

// Tables lists table names in document order.
func (b *Book) Tables() []string {
	names := make([]string, len(b.tables))
	for i, t := range b.tables {
		names[i] = t.Name
	}
	return names
}

// ReadColumn returns the cells below the header naming the column.
func (b *Book) ReadColumn(table, name string) (domain.Column, error) {
	cols, err := b.ReadColumns(table, []string{name})
	if err != nil {
		return domain.Column{}, err
	}
	return cols[0], nil
}

// ReadColumns resolves one column per alias set, all under the same header
// row: the first row within the scan window holding a distinct header for
// every set. Rows where every header matches exactly win over rows that need
// a partial match, so a title row containing an alias is passed over.
func (b *Book) ReadColumns(table string, aliases ...[]string) ([]domain.Column, error) {
	idx := slices.IndexFunc(b.tables, func(t Table) bool { return t.Name == table })
	if idx < 0 {
		return nil, fmt.Errorf("%w: table %q not found", domain.ErrSchemaMismatch, table)
	}
	t := b.tables[idx]

	row, cols, ok := b.findHeaderRow(t, aliases)
	if !ok {
		return nil, fmt.Errorf("%w: no row within the first %d rows of table %q has headers for all of %q",
			domain.ErrSchemaMismatch, b.headerScanRows, table, aliases)
	}

	out := make([]domain.Column, len(cols))
	for i, col := range cols {
		data := t.Rows[row+1:]
		cells := make([]domain.Cell, len(data))
		for j, r := range data {
			if col < len(r) {
				cells[j] = r[col]
			}
		}
		out[i] = domain.Column{
			Header:    t.Rows[row][col].Text,
			HeaderRow: row + 1,
			Cells:     cells,
		}
	}
	return out, nil
}

// Close is a no-op: a Book holds no file handles.
func (b *Book) Close() error { return nil }

// findHeaderRow returns the first row in the scan window matching every alias
// set, with the column index chosen for each set. Exact matching is tried over
// the whole window before partial matching.
func (b *Book) findHeaderRow(t Table, aliases [][]string) (int, []int, bool) {
	if len(aliases) == 0 {
		return 0, nil, false
	}
	limit := min(b.headerScanRows, len(t.Rows))
	for _, partial := range []bool{false, true} {
		for r := 0; r < limit; r++ {
			if cols, ok := matchRow(t.Rows[r], aliases, partial); ok {
				return r, cols, true
			}
		}
	}
	return 0, nil, false
}

// matchRow picks a distinct column for each alias set. Aliases are tried in
// order; exact matches beat partial ones within the row.
func matchRow(row []domain.Cell, aliases [][]string, partial bool) ([]int, bool) {
	matchers := []func(string, string) bool{domain.HeaderEquals}
	if partial {
		matchers = append(matchers, domain.HeaderMatches)
	}

	cols := make([]int, len(aliases))
	taken := make(map[int]bool, len(aliases))
	for i, set := range aliases {
		col, ok := findInRow(row, set, matchers, taken)
		if !ok {
			return nil, false
		}
		cols[i] = col
		taken[col] = true
	}
	return cols, true
}

func findInRow(row []domain.Cell, set []string, matchers []func(string, string) bool, taken map[int]bool) (int, bool) {
	for _, match := range matchers {
		for _, alias := range set {
			for c, cell := range row {
				if !taken[c] && cell.Kind == domain.CellText && match(cell.Text, alias) {
					return c, true
				}
			}
		}
	}
	return 0, false
}
