package result

import (
	"github.com/kailas-cloud/profilesearch/internal/domain/profile"
)

// Result is a single search hit: the original record and its score in the
// native scale of the index metric.
type Result struct {
	record profile.Record
	score  float64
}

// New creates a search result.
func New(record profile.Record, score float64) Result {
	return Result{record: record, score: score}
}

// Record returns the matched profile record.
func (r Result) Record() profile.Record { return r.record }

// Score returns the similarity (cosine) or distance (squared L2) value.
func (r Result) Score() float64 { return r.score }
