// Package source reads the tabular input/response data that backs the
// response table. A Source yields rows in order; where the rows live (a CSV
// file, a compressed CSV, an S3/R2 object or a SQLite table) is chosen by
// Open from the location string.
package source

import (
	"context"
	"errors"

	"github.com/garyellow/chatai/internal/r2client"
)

// Column names every source must provide.
const (
	ColumnInput    = "input"
	ColumnResponse = "response"
)

var (
	// ErrMissingColumn means the header (or table schema) lacks input or response.
	ErrMissingColumn = errors.New("source: missing required column")
	// ErrNoHeader means a CSV source is empty.
	ErrNoHeader = errors.New("source: no header row")
	// ErrUnsupportedScheme means the location uses a scheme Open does not know.
	ErrUnsupportedScheme = errors.New("source: unsupported location scheme")
)

// Row is one data row. Position is the 1-based data row number (the header
// is not counted). Rows with a non-nil Err are malformed and carry no data.
type Row struct {
	Position int
	Input    string
	Response string
	Err      error
}

// Source yields rows in source order.
type Source interface {
	// Scan calls fn for every row. A non-nil error from fn stops the scan and
	// is returned as is. Errors that prevent reading the source at all are
	// returned wrapped.
	Scan(ctx context.Context, fn func(Row) error) error
	// String returns the location for logs.
	String() string
}

// Options configures how sources are opened.
type Options struct {
	// Encoding is the character encoding of CSV data (WHATWG label, e.g.
	// "utf-8", "big5", "shift_jis", "windows-1252"). Empty means UTF-8.
	Encoding string
	// S3 holds credentials for s3:// locations.
	S3 r2client.Config
}
