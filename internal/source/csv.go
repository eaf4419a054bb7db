package source

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const utf8BOM = "\ufeff"

// opener returns the raw (possibly compressed) bytes of a CSV document.
type opener func(ctx context.Context) (io.ReadCloser, error)

// csvSource parses CSV data produced by an opener. The name decides
// decompression: ".gz" is gzip, ".zst" is zstd, anything else is plain.
type csvSource struct {
	location string
	name     string
	open     opener
	enc      encoding.Encoding
}

func newCSVSource(location, name string, open opener, opts Options) (*csvSource, error) {
	enc, err := lookupEncoding(opts.Encoding)
	if err != nil {
		return nil, err
	}
	return &csvSource{location: location, name: name, open: open, enc: enc}, nil
}

// NewReader returns a Source over CSV data already in memory or on a stream.
// The reader is consumed by the first Scan.
func NewReader(name string, r io.Reader, opts Options) (Source, error) {
	return newCSVSource(name, name, func(context.Context) (io.ReadCloser, error) {
		return io.NopCloser(r), nil
	}, opts)
}

func (s *csvSource) String() string { return s.location }

func (s *csvSource) Scan(ctx context.Context, fn func(Row) error) error {
	raw, err := s.open(ctx)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.location, err)
	}
	defer raw.Close()

	r, closeDecoder, err := decompress(s.name, raw)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.location, err)
	}
	defer closeDecoder()

	if s.enc != nil {
		r = transform.NewReader(r, s.enc.NewDecoder())
	}

	return scanCSV(ctx, s.location, r, fn)
}

func scanCSV(ctx context.Context, location string, r io.Reader, fn func(Row) error) error {
	cr := csv.NewReader(bufio.NewReader(r))
	cr.FieldsPerRecord = 0 // the header sets the expected field count
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%s: %w", location, ErrNoHeader)
		}
		return fmt.Errorf("%s: read header: %w", location, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	inputIdx, responseIdx := -1, -1
	for i, col := range header {
		switch col {
		case ColumnInput:
			if inputIdx < 0 {
				inputIdx = i
			}
		case ColumnResponse:
			if responseIdx < 0 {
				responseIdx = i
			}
		}
	}
	if inputIdx < 0 {
		return fmt.Errorf("%s: %w %q", location, ErrMissingColumn, ColumnInput)
	}
	if responseIdx < 0 {
		return fmt.Errorf("%s: %w %q", location, ErrMissingColumn, ColumnResponse)
	}

	for position := 1; ; position++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}

		row := Row{Position: position}
		var parseErr *csv.ParseError
		switch {
		case errors.As(err, &parseErr):
			row.Err = parseErr
		case err != nil:
			return fmt.Errorf("%s: read row %d: %w", location, position, err)
		default:
			row.Input = record[inputIdx]
			row.Response = record[responseIdx]
		}

		if err := fn(row); err != nil {
			return err
		}
	}
}

// decompress wraps r according to the file name suffix.
func decompress(name string, r io.Reader) (io.Reader, func(), error) {
	switch {
	case strings.HasSuffix(name, ".gz"):
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("gzip: %w", err)
		}
		return gz, func() { _ = gz.Close() }, nil
	case strings.HasSuffix(name, ".zst"):
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("zstd: %w", err)
		}
		return dec, dec.Close, nil
	default:
		return r, func() {}, nil
	}
}

// lookupEncoding resolves a WHATWG encoding label. UTF-8 returns nil so the
// bytes are passed through untouched.
func lookupEncoding(label string) (encoding.Encoding, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("source: unknown encoding %q: %w", label, err)
	}
	if enc == unicode.UTF8 {
		return nil, nil
	}
	return enc, nil
}
