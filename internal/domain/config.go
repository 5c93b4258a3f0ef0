package domain

// VectorConfig holds internal vectorization settings, not exposed to clients.
type VectorConfig struct {
	Model      string
	Dimensions int
	BatchSize  int
}

// DefaultVectorConfig returns the default configuration tuned for all-MiniLM-L6-v2.
func DefaultVectorConfig() VectorConfig {
	return VectorConfig{
		Model:      "all-minilm",
		Dimensions: 384,
		BatchSize:  64,
	}
}
