// Package cache implements the multi-strategy response cache: exact identity
// matching, short-window content deduplication, and embedding-based semantic
// matching, layered over a pluggable backing store.
//
// The two public operations are total. Check answers a miss on any internal
// failure and Store gives no acknowledgement at all; a broken cache slows
// callers down by one lookup, it never breaks them.
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/objones25/mnemosyne/internal/cachekey"
	"github.com/objones25/mnemosyne/internal/contenthash"
	"github.com/objones25/mnemosyne/internal/stats"
	"github.com/objones25/mnemosyne/internal/store"
)

const (
	// DefaultSimilarityThreshold is the cosine similarity a semantic
	// candidate must reach. The comparison is inclusive.
	DefaultSimilarityThreshold = 0.85

	// DefaultTTL bounds exact-match entries.
	DefaultTTL = time.Hour
	// DefaultDedupTTL bounds deduplication entries; the window is short
	// because identity-blind sharing is only safe for near-simultaneous
	// repeats.
	DefaultDedupTTL = 5 * time.Minute
	// DefaultSemanticTTL bounds semantic entries.
	DefaultSemanticTTL = 24 * time.Hour

	// semanticFetchWorkers bounds the candidate fetch fan-out.
	semanticFetchWorkers = 8
)

// Embedder supplies vectors for semantic matching. Implementations are total:
// an empty vector means "nothing to match on".
type Embedder interface {
	Embed(ctx context.Context, text string) []float32
	Dimension() int
}

// Config holds the engine tunables.
type Config struct {
	// DefaultTTL applies to exact entries when StoreOptions carries none.
	DefaultTTL time.Duration
	// DedupTTL applies to deduplication entries.
	DedupTTL time.Duration
	// SemanticTTL applies to semantic entries.
	SemanticTTL time.Duration
	// SemanticEnabled turns the semantic strategy on. Note the zero Config
	// leaves it off; DefaultConfig enables it.
	SemanticEnabled bool
	// SimilarityThreshold is the minimum cosine similarity for a semantic
	// hit, compared inclusively.
	SimilarityThreshold float64
}

// DefaultConfig returns the standard engine settings.
func DefaultConfig() Config {
	return Config{
		DefaultTTL:          DefaultTTL,
		DedupTTL:            DefaultDedupTTL,
		SemanticTTL:         DefaultSemanticTTL,
		SemanticEnabled:     true,
		SimilarityThreshold: DefaultSimilarityThreshold,
	}
}

func (cfg *Config) applyDefaults() {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = DefaultTTL
	}
	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = DefaultDedupTTL
	}
	if cfg.SemanticTTL <= 0 {
		cfg.SemanticTTL = DefaultSemanticTTL
	}
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = DefaultSimilarityThreshold
	}
}

// Engine runs the strategy pipeline over a backing store.
type Engine struct {
	store    store.Store
	keys     *cachekey.Builder
	embedder Embedder
	stats    *stats.Aggregator
	cfg      Config
}

// NewEngine wires the engine. The store is typically a *store.Supervisor so
// backend failures degrade instead of surfacing here.
func NewEngine(st store.Store, keys *cachekey.Builder, embedder Embedder, agg *stats.Aggregator, cfg Config) *Engine {
	cfg.applyDefaults()
	return &Engine{
		store:    st,
		keys:     keys,
		embedder: embedder,
		stats:    agg,
		cfg:      cfg,
	}
}

// Check looks content up through the strategies in priority order: exact
// first, then deduplication, then semantic. The first hit wins and later
// stages never run. Any internal failure answers as a miss.
func (e *Engine) Check(ctx context.Context, content string, opts CheckOptions) CheckResult {
	start := time.Now()
	defer func() {
		CheckDuration.Observe(time.Since(start).Seconds())
	}()

	e.stats.Increment(ctx, stats.CounterTotalRequests, 1)

	hash := contenthash.Sum(content)

	if result, ok := e.checkExact(ctx, hash, opts); ok {
		e.recordHit(ctx, result)
		return result
	}
	if !opts.SkipDedup {
		if result, ok := e.checkDedup(ctx, hash); ok {
			e.recordHit(ctx, result)
			return result
		}
	}
	if e.cfg.SemanticEnabled && !opts.SkipSemantic {
		if result, ok := e.checkSemantic(ctx, content, opts); ok {
			e.recordHit(ctx, result)
			return result
		}
	}

	e.stats.Increment(ctx, stats.CounterMisses, 1)
	Misses.Inc()
	return CheckResult{}
}

// Store writes the response to every applicable strategy. The writes are
// independent: one failing never blocks the others, and nothing is reported
// back.
func (e *Engine) Store(ctx context.Context, content string, value interface{}, opts StoreOptions) {
	start := time.Now()
	defer func() {
		StoreDuration.Observe(time.Since(start).Seconds())
	}()

	ttl := e.cfg.DefaultTTL
	if opts.TTL > 0 {
		ttl = opts.TTL
	}

	now := time.Now().UTC()
	entry := &Entry{
		Value: value,
		Metadata: Metadata{
			UserID:         opts.UserID,
			Model:          opts.Model,
			Provider:       opts.Provider,
			CreatedAt:      now,
			TTLSeconds:     int(ttl / time.Second),
			LastAccessedAt: now,
			TokenCount:     opts.TokenCount,
			Cost:           opts.Cost,
		},
	}

	data, err := json.Marshal(entry)
	if err != nil {
		log.Error().Err(err).Msg("Response value is not serializable, dropping store")
		return
	}

	hash := contenthash.Sum(content)

	exactKey := e.keys.Exact(opts.Provider, opts.Model, opts.UserID, hash)
	if err := e.store.Set(ctx, exactKey, data, ttl); err != nil {
		log.Warn().Err(err).Str("key", exactKey).Msg("Exact write failed")
	}

	if !opts.SkipDedup {
		dedupKey := e.keys.Dedup(hash)
		if err := e.store.Set(ctx, dedupKey, data, e.cfg.DedupTTL); err != nil {
			log.Warn().Err(err).Str("key", dedupKey).Msg("Deduplication write failed")
		}
	}

	if e.cfg.SemanticEnabled && !opts.SkipSemantic {
		e.storeSemantic(ctx, content, hash, entry, opts)
	}

	log.Debug().Str("hash", hash).Msg("Stored response")
}

func (e *Engine) storeSemantic(ctx context.Context, content, hash string, entry *Entry, opts StoreOptions) {
	vector := e.embedder.Embed(ctx, content)
	if len(vector) == 0 {
		log.Debug().Str("hash", hash).Msg("No embedding available, skipping semantic write")
		return
	}

	data, err := json.Marshal(&SemanticEntry{Entry: *entry, Embedding: vector})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to marshal semantic entry")
		return
	}

	key := e.keys.Semantic(opts.Provider, opts.Model, opts.UserID, hash)
	if err := e.store.Set(ctx, key, data, e.cfg.SemanticTTL); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Semantic write failed")
	}
}

// Clear removes every entry and counter in the backing store. It is the only
// way cached state is dropped outside of TTL expiry.
func (e *Engine) Clear(ctx context.Context) error {
	return e.store.FlushAll(ctx)
}

func (e *Engine) checkExact(ctx context.Context, hash string, opts CheckOptions) (CheckResult, bool) {
	key := e.keys.Exact(opts.Provider, opts.Model, opts.UserID, hash)
	entry := e.getEntry(ctx, key)
	if entry == nil {
		return CheckResult{}, false
	}

	e.touch(ctx, key, entry)
	log.Debug().Str("key", key).Msg("Exact hit")
	return CheckResult{
		Hit:      true,
		Value:    entry.Value,
		Strategy: StrategyExact,
		Metadata: &entry.Metadata,
	}, true
}

func (e *Engine) checkDedup(ctx context.Context, hash string) (CheckResult, bool) {
	key := e.keys.Dedup(hash)
	entry := e.getEntry(ctx, key)
	if entry == nil {
		return CheckResult{}, false
	}

	log.Debug().Str("key", key).Msg("Deduplication hit")
	return CheckResult{
		Hit:      true,
		Value:    entry.Value,
		Strategy: StrategyDeduplication,
		Metadata: &entry.Metadata,
	}, true
}

func (e *Engine) checkSemantic(ctx context.Context, content string, opts CheckOptions) (CheckResult, bool) {
	vector := e.embedder.Embed(ctx, content)
	if len(vector) == 0 {
		return CheckResult{}, false
	}

	keys, err := e.store.ScanKeys(ctx, e.keys.SemanticPattern(opts.Provider, opts.Model, opts.UserID))
	if err != nil {
		log.Warn().Err(err).Msg("Semantic scan failed")
		return CheckResult{}, false
	}
	SemanticCandidates.Observe(float64(len(keys)))
	if len(keys) == 0 {
		return CheckResult{}, false
	}

	candidates := e.fetchSemanticEntries(ctx, keys)

	threshold := e.cfg.SimilarityThreshold
	if opts.SimilarityThreshold > 0 {
		threshold = opts.SimilarityThreshold
	}

	var best *SemanticEntry
	var bestSimilarity float32
	for _, candidate := range candidates {
		if candidate == nil || len(candidate.Embedding) == 0 {
			continue
		}
		similarity := cosineSimilarity(vector, candidate.Embedding)
		if best == nil || similarity > bestSimilarity {
			best, bestSimilarity = candidate, similarity
		}
	}

	if best == nil || float64(bestSimilarity) < threshold {
		return CheckResult{}, false
	}

	log.Debug().Float32("similarity", bestSimilarity).Msg("Semantic hit")
	return CheckResult{
		Hit:        true,
		Value:      best.Value,
		Strategy:   StrategySemantic,
		Similarity: float64(bestSimilarity),
		Metadata:   &best.Metadata,
	}, true
}

// fetchSemanticEntries loads candidates with a bounded fan-out. Unreadable
// entries come back nil and are skipped by the caller.
func (e *Engine) fetchSemanticEntries(ctx context.Context, keys []string) []*SemanticEntry {
	candidates := make([]*SemanticEntry, len(keys))
	sem := make(chan struct{}, semanticFetchWorkers)
	var wg sync.WaitGroup

	for i, key := range keys {
		wg.Add(1)
		go func(i int, key string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			candidates[i] = e.getSemanticEntry(ctx, key)
		}(i, key)
	}
	wg.Wait()

	return candidates
}

func (e *Engine) getEntry(ctx context.Context, key string) *Entry {
	data, err := e.store.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Cache read failed")
		return nil
	}
	if data == nil {
		return nil
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Dropping corrupt cache entry")
		if _, err := e.store.Delete(ctx, key); err != nil {
			log.Debug().Err(err).Str("key", key).Msg("Failed to drop corrupt entry")
		}
		return nil
	}
	return &entry
}

func (e *Engine) getSemanticEntry(ctx context.Context, key string) *SemanticEntry {
	data, err := e.store.Get(ctx, key)
	if err != nil || data == nil {
		return nil
	}

	var entry SemanticEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Dropping corrupt semantic entry")
		if _, err := e.store.Delete(ctx, key); err != nil {
			log.Debug().Err(err).Str("key", key).Msg("Failed to drop corrupt entry")
		}
		return nil
	}
	return &entry
}

// touch bumps hit metadata on an exact entry without extending its life. The
// rewrite is best-effort: a racing expiry or write failure leaves the old
// bytes in place and the hit still counts.
func (e *Engine) touch(ctx context.Context, key string, entry *Entry) {
	entry.Metadata.HitCount++
	entry.Metadata.LastAccessedAt = time.Now().UTC()

	remaining, err := e.store.TTL(ctx, key)
	if err != nil || remaining == store.TTLMissing {
		return
	}
	var ttl time.Duration
	if remaining > 0 {
		ttl = remaining
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := e.store.Set(ctx, key, data, ttl); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("Failed to update hit metadata")
	}
}

func (e *Engine) recordHit(ctx context.Context, result CheckResult) {
	e.stats.Increment(ctx, stats.CounterHits, 1)
	switch result.Strategy {
	case StrategyExact:
		e.stats.Increment(ctx, stats.CounterExactMatches, 1)
	case StrategyDeduplication:
		e.stats.Increment(ctx, stats.CounterDeduplication, 1)
	case StrategySemantic:
		e.stats.Increment(ctx, stats.CounterSemanticMatches, 1)
	}
	if result.Metadata != nil {
		if result.Metadata.TokenCount > 0 {
			e.stats.Increment(ctx, stats.CounterTokensSaved, int64(result.Metadata.TokenCount))
		}
		if result.Metadata.Cost > 0 {
			e.stats.IncrementFloat(ctx, stats.CounterCostSaved, result.Metadata.Cost)
		}
	}
	Hits.WithLabelValues(string(result.Strategy)).Inc()
}
