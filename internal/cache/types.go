package cache

import "time"

// Strategy identifies which lookup stage produced a hit.
type Strategy string

const (
	// StrategyExact matches on the full (provider, model, user, content) identity.
	StrategyExact Strategy = "exact"
	// StrategyDeduplication matches on content alone within a short window.
	StrategyDeduplication Strategy = "deduplication"
	// StrategySemantic matches on embedding similarity.
	StrategySemantic Strategy = "semantic"
)

// Metadata rides along with every stored response.
type Metadata struct {
	UserID         string    `json:"userId,omitempty"`
	Model          string    `json:"model,omitempty"`
	Provider       string    `json:"provider,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	TTLSeconds     int       `json:"ttlSeconds"`
	HitCount       int64     `json:"hitCount"`
	LastAccessedAt time.Time `json:"lastAccessedAt"`
	TokenCount     int       `json:"tokenCount,omitempty"`
	Cost           float64   `json:"cost,omitempty"`
}

// Entry is a stored response plus its metadata.
type Entry struct {
	Value    interface{} `json:"value"`
	Metadata Metadata    `json:"metadata"`
}

// SemanticEntry carries the content embedding alongside the response so
// lookups can compare vectors without a second fetch.
type SemanticEntry struct {
	Entry
	Embedding []float32 `json:"embedding"`
}

// CheckOptions scopes a lookup. The zero value checks the anonymous/default
// scope with every strategy the engine has enabled.
type CheckOptions struct {
	UserID   string
	Model    string
	Provider string

	// SkipDedup bypasses the deduplication stage for this call.
	SkipDedup bool
	// SkipSemantic bypasses the semantic stage for this call.
	SkipSemantic bool
	// SimilarityThreshold overrides the engine's threshold when positive.
	SimilarityThreshold float64
}

// StoreOptions scopes a write.
type StoreOptions struct {
	UserID   string
	Model    string
	Provider string

	// TTL overrides the engine's default entry lifetime when positive.
	TTL time.Duration
	// SkipDedup suppresses the deduplication write.
	SkipDedup bool
	// SkipSemantic suppresses the semantic write.
	SkipSemantic bool

	// TokenCount and Cost describe what producing the response cost, so hits
	// can be translated into savings.
	TokenCount int
	Cost       float64
}

// CheckResult reports a lookup outcome. A miss is the zero value: Hit false
// and nothing else set, whatever went wrong on the way.
type CheckResult struct {
	Hit      bool        `json:"hit"`
	Value    interface{} `json:"value,omitempty"`
	Strategy Strategy    `json:"strategy,omitempty"`
	// Similarity is only set for semantic hits.
	Similarity float64   `json:"similarity,omitempty"`
	Metadata   *Metadata `json:"metadata,omitempty"`
}
