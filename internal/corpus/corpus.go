// Package corpus reads tabular profile corpora.
package corpus

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Supported encodings.
const (
	EncodingUTF8   = "utf-8"
	EncodingLatin1 = "latin-1"
)

// ErrEmpty is returned for a corpus with a header but no data rows.
var ErrEmpty = errors.New("corpus has no data rows")

// Table is a parsed corpus: column names from the header and raw rows.
// Rows may be shorter than Columns; they are never wider.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Source provides a corpus table.
type Source interface {
	Read(ctx context.Context) (Table, error)
	// Describe names the source for logs.
	Describe() string
}

// CSVFile reads a CSV file with a header row.
type CSVFile struct {
	Path     string
	Encoding string
}

// Describe implements Source.
func (f CSVFile) Describe() string { return f.Path }

// Read implements Source.
func (f CSVFile) Read(ctx context.Context) (Table, error) {
	if err := ctx.Err(); err != nil {
		return Table{}, err //nolint:wrapcheck // context error
	}
	raw, err := os.ReadFile(f.Path)
	if err != nil {
		return Table{}, fmt.Errorf("read corpus %s: %w", f.Path, err)
	}
	r, err := decoder(raw, f.Encoding)
	if err != nil {
		return Table{}, err
	}
	t, err := Parse(r)
	if err != nil {
		return Table{}, fmt.Errorf("parse corpus %s: %w", f.Path, err)
	}
	return t, nil
}

func decoder(raw []byte, encoding string) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", EncodingUTF8, "utf8":
		return bytes.NewReader(bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))), nil
	case EncodingLatin1, "latin1", "iso-8859-1":
		return transform.NewReader(bytes.NewReader(raw), charmap.ISO8859_1.NewDecoder()), nil
	default:
		return nil, fmt.Errorf("unsupported corpus encoding %q", encoding)
	}
}

// Parse reads a header row followed by data rows.
func Parse(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Table{}, fmt.Errorf("missing header row")
		}
		return Table{}, fmt.Errorf("read header: %w", err)
	}
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(h)
	}

	var rows [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Table{}, fmt.Errorf("read row %d: %w", len(rows), err)
		}
		if len(rec) > len(columns) {
			return Table{}, fmt.Errorf("row %d has %d cells, header has %d columns", len(rows), len(rec), len(columns))
		}
		rows = append(rows, rec)
	}
	if len(rows) == 0 {
		return Table{}, ErrEmpty
	}
	return Table{Columns: columns, Rows: rows}, nil
}

// Static is an in-memory Source.
type Static struct {
	Name  string
	Table Table
}

// Describe implements Source.
func (s Static) Describe() string { return s.Name }

// Read implements Source.
func (s Static) Read(context.Context) (Table, error) {
	if len(s.Table.Rows) == 0 {
		return Table{}, ErrEmpty
	}
	return s.Table, nil
}
