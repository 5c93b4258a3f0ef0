package profilesearch

import (
	"github.com/kailas-cloud/profilesearch/internal/domain"
	profileuc "github.com/kailas-cloud/profilesearch/internal/usecase/profile"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotReady          = domain.ErrNotReady
	ErrInvalidRequest    = domain.ErrInvalidRequest
	ErrQuery             = domain.ErrQuery
	ErrIngestion         = domain.ErrIngestion
	ErrEmbedding         = domain.ErrEmbedding
	ErrRateLimited       = domain.ErrRateLimited
	ErrVectorDimMismatch = domain.ErrVectorDimMismatch

	// ErrCorpusChanged is returned by RestoreCSV and RestoreRows when the
	// persisted index was embedded from different records.
	ErrCorpusChanged = profileuc.ErrCorpusChanged
)
