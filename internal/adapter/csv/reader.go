// Package csv decodes delimited text exports into a single sheet table.
package csv

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/temperature-chart/internal/adapter/sheet"
	"github.com/couchcryptid/temperature-chart/internal/domain"
)

// Extensions lists the file extensions handled by this package.
var Extensions = []string{".csv", ".tsv", ".txt"}

const bom = "\ufeff"

// Open reads the file at path as one table named after the file. Tab is the
// delimiter for .tsv files, comma otherwise.
func Open(path string, headerScanRows int) (*sheet.Book, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSourceNotFound, err)
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReader(f))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		r.Comma = '\t'
	}
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", domain.ErrSourceNotFound, path, err)
	}

	grid := make([][]domain.Cell, len(records))
	for i, rec := range records {
		grid[i] = make([]domain.Cell, len(rec))
		for j, field := range rec {
			if i == 0 && j == 0 {
				field = strings.TrimPrefix(field, bom)
			}
			grid[i][j] = domain.InferCell(field)
		}
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return sheet.NewBook([]sheet.Table{{Name: name, Rows: grid}}, headerScanRows), nil
}
