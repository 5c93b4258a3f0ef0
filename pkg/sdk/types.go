package profilesearch

import (
	"time"

	"github.com/kailas-cloud/profilesearch/internal/domain/search/result"
	profileuc "github.com/kailas-cloud/profilesearch/internal/usecase/profile"
)

// Field is one named column value of a profile.
type Field struct {
	Name  string
	Value string
}

// Result is one ranked profile.
type Result struct {
	Position int // 0-based row in the ingested corpus
	Fields   []Field
	Score    float64
}

// Value returns the value of the named field, or "" when absent.
func (r Result) Value(name string) string {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

// Stats describes the live index.
type Stats struct {
	Ready      bool
	Backend    string
	Metric     string
	Records    int
	Dimensions int
	Source     string
	LoadedAt   time.Time
}

func toResult(r *result.Result) Result {
	rec := r.Record()
	fields := rec.Fields()
	out := Result{
		Position: rec.Position(),
		Fields:   make([]Field, len(fields)),
		Score:    r.Score(),
	}
	for i, f := range fields {
		out.Fields[i] = Field{Name: f.Name, Value: f.Value}
	}
	return out
}

func toStats(s profileuc.Stats) Stats {
	return Stats{
		Ready:      s.State == profileuc.Ready,
		Backend:    s.Backend,
		Metric:     string(s.Metric),
		Records:    s.Records,
		Dimensions: s.Dimensions,
		Source:     s.Source,
		LoadedAt:   s.LoadedAt,
	}
}
