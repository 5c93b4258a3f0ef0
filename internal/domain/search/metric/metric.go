package metric

// Metric is the similarity measure an index ranks by.
type Metric string

// Metric constants.
const (
	// SquaredL2 is squared Euclidean distance; lower is better.
	SquaredL2 Metric = "l2sq"
	// Cosine is cosine similarity in [-1, 1]; higher is better.
	Cosine Metric = "cosine"
)

// IsValid checks if the metric is one of the supported values.
func (m Metric) IsValid() bool {
	return m == SquaredL2 || m == Cosine
}

// HigherIsBetter reports the ranking direction of the metric.
func (m Metric) HigherIsBetter() bool {
	return m == Cosine
}

// Better reports whether score a ranks strictly ahead of score b.
func (m Metric) Better(a, b float64) bool {
	if m.HigherIsBetter() {
		return a > b
	}
	return a < b
}
