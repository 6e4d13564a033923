// Package source opens spreadsheet documents by file extension.
package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/couchcryptid/temperature-chart/internal/adapter/csv"
	"github.com/couchcryptid/temperature-chart/internal/adapter/sheet"
	"github.com/couchcryptid/temperature-chart/internal/adapter/xlsx"
	"github.com/couchcryptid/temperature-chart/internal/domain"
	"github.com/couchcryptid/temperature-chart/internal/pipeline"
)

// Opener implements pipeline.Opener for xlsx-family and delimited text files.
type Opener struct {
	HeaderScanRows int
}

// NewOpener creates an Opener searching headerScanRows rows for headers.
func NewOpener(headerScanRows int) *Opener {
	return &Opener{HeaderScanRows: headerScanRows}
}

// Open decodes the document at path. Missing, unreadable, and unsupported
// files fail with domain.ErrSourceNotFound.
func (o *Opener) Open(ctx context.Context, path string) (pipeline.Workbook, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSourceNotFound, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", domain.ErrSourceNotFound, path)
	}

	var book *sheet.Book
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case slices.Contains(xlsx.Extensions, ext):
		book, err = xlsx.Open(path, o.HeaderScanRows)
	case slices.Contains(csv.Extensions, ext):
		book, err = csv.Open(path, o.HeaderScanRows)
	default:
		return nil, fmt.Errorf("%w: unsupported file type %q", domain.ErrSourceNotFound, ext)
	}
	if err != nil {
		return nil, err
	}
	return book, nil
}
