package model

// QueryConfig represents configuration for a retrieval query
type QueryConfig struct {
	// Vector search parameters
	MatchCount          int     `json:"match_count"`
	SimilarityThreshold float64 `json:"similarity_threshold,omitempty"`
}

// DefaultQueryConfig returns a sensible default configuration
func DefaultQueryConfig() *QueryConfig {
	return &QueryConfig{
		MatchCount:          5,
		SimilarityThreshold: 0.7,
	}
}
