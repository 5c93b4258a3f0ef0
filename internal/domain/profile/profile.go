package profile

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

// DefaultMissingMarker is the text stored for an empty or absent cell.
const DefaultMissingMarker = "nan"

// Field is a single named column value of a profile row.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Record is one row of the profile corpus (immutable value object).
// Identity is the 0-based position in the ingested corpus.
type Record struct {
	position int
	fields   []Field
}

// New validates and creates a Record from column names and cell values.
// Cells beyond len(values) and empty cells are filled with missing.
func New(position int, columns, values []string, missing string) (Record, error) {
	if position < 0 {
		return Record{}, fmt.Errorf("position must be non-negative, got %d", position)
	}
	if len(columns) == 0 {
		return Record{}, fmt.Errorf("at least one column is required")
	}
	if len(values) > len(columns) {
		return Record{}, fmt.Errorf("row has %d values for %d columns", len(values), len(columns))
	}

	fields := make([]Field, len(columns))
	for i, name := range columns {
		v := missing
		if i < len(values) && values[i] != "" {
			v = values[i]
		}
		fields[i] = Field{Name: name, Value: v}
	}
	return Record{position: position, fields: fields}, nil
}

// Reconstruct creates a Record without validation (storage hydration).
func Reconstruct(position int, fields []Field) Record {
	return Record{position: position, fields: fields}
}

// Position returns the 0-based corpus index.
func (r Record) Position() int { return r.position }

// Fields returns the fields in column order.
func (r Record) Fields() []Field { return r.fields }

// Value returns the value of the named field.
func (r Record) Value(name string) (string, bool) {
	for _, f := range r.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// CombinedText joins every field value in column order with a single space.
// This is the text that gets embedded.
func (r Record) CombinedText() string {
	values := make([]string, len(r.fields))
	for i, f := range r.fields {
		values[i] = f.Value
	}
	return strings.Join(values, " ")
}

// Fingerprint hashes the column names and field values of records in corpus
// order. Two corpora share a fingerprint only if they would embed identically.
func Fingerprint(records []Record) string {
	h := sha256.New()
	var n [8]byte
	write := func(s string) {
		binary.LittleEndian.PutUint64(n[:], uint64(len(s)))
		h.Write(n[:])
		h.Write([]byte(s))
	}
	for _, r := range records {
		binary.LittleEndian.PutUint64(n[:], uint64(len(r.fields)))
		h.Write(n[:])
		for _, f := range r.fields {
			write(f.Name)
			write(f.Value)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
