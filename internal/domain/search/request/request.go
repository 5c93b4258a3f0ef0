package request

import (
	"fmt"

	"github.com/kailas-cloud/profilesearch/internal/domain"
)

// DefaultTopK is the number of results returned when k is not set.
const DefaultTopK = 5

// Request is a validated search query.
type Request struct {
	query string
	topK  int
}

// New validates and normalizes search parameters.
// An empty query is valid. topK=0 selects DefaultTopK; there is no upper bound,
// a topK above the corpus size returns the whole corpus.
func New(query string, topK int) (Request, error) {
	if topK < 0 {
		return Request{}, fmt.Errorf("%w: k must not be negative, got %d", domain.ErrInvalidRequest, topK)
	}
	if topK == 0 {
		topK = DefaultTopK
	}
	return Request{query: query, topK: topK}, nil
}

// Query returns the search query text.
func (r *Request) Query() string { return r.query }

// TopK returns the maximum number of results.
func (r *Request) TopK() int { return r.topK }
