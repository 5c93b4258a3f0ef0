package corpus

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "educators.csv")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParse_KeepsColumnOrderAndShortRows(t *testing.T) {
	tbl, err := Parse(strings.NewReader("Name,Expertise\nAnn,Generative AI\nBen\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(tbl.Columns) != 2 || tbl.Columns[1] != "Expertise" {
		t.Errorf("columns = %v", tbl.Columns)
	}
	if len(tbl.Rows) != 2 || len(tbl.Rows[1]) != 1 {
		t.Errorf("rows = %v", tbl.Rows)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty file", ""},
		{"header only", "Name,Expertise\n"},
		{"row wider than header", "Name\nAnn,extra\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(strings.NewReader(tt.input)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestParse_HeaderOnlyIsEmpty(t *testing.T) {
	_, err := Parse(strings.NewReader("Name\n"))
	if !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}

func TestCSVFile_Latin1(t *testing.T) {
	// "José" in ISO-8859-1.
	path := writeFile(t, []byte("Name\nJos\xe9\n"))

	tbl, err := CSVFile{Path: path, Encoding: EncodingLatin1}.Read(context.Background())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if tbl.Rows[0][0] != "José" {
		t.Errorf("got %q, want José", tbl.Rows[0][0])
	}
}

func TestCSVFile_UTF8BOM(t *testing.T) {
	path := writeFile(t, []byte("\xef\xbb\xbfName\nAnn\n"))

	tbl, err := CSVFile{Path: path}.Read(context.Background())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if tbl.Columns[0] != "Name" {
		t.Errorf("column = %q, want Name", tbl.Columns[0])
	}
}

func TestCSVFile_Missing(t *testing.T) {
	_, err := CSVFile{Path: filepath.Join(t.TempDir(), "nope.csv")}.Read(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestCSVFile_UnknownEncoding(t *testing.T) {
	path := writeFile(t, []byte("Name\nAnn\n"))
	_, err := CSVFile{Path: path, Encoding: "ebcdic"}.Read(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
}
