package embeddings

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/objones25/mnemosyne/internal/cachekey"
	"github.com/objones25/mnemosyne/internal/contenthash"
	"github.com/objones25/mnemosyne/internal/store"
)

// DefaultCacheTTL keeps cached vectors for a day; content is immutable, so
// the bound exists to limit keyspace growth rather than staleness.
const DefaultCacheTTL = 24 * time.Hour

// cacheReadTimeout bounds the store lookup so a slow backend cannot stall a
// lookup that the model or the hash fallback could answer instead.
const cacheReadTimeout = 500 * time.Millisecond

// ProviderConfig holds settings for the caching provider.
type ProviderConfig struct {
	// CacheTTL is how long generated vectors stay in the backing store.
	CacheTTL time.Duration
}

// Provider is the embedding source the cache engine talks to. Lookup order is
// backing store, then the external model, then hash expansion. Every produced
// vector is written back to the store regardless of source.
//
// Embed is total: whatever fails is logged and absorbed, and only empty input
// yields an empty vector.
type Provider struct {
	store    store.Store
	keys     *cachekey.Builder
	model    Generator // nil when no endpoint is configured
	fallback *HashGenerator
	cacheTTL time.Duration
}

// NewProvider assembles the provider. A nil model skips straight from the
// store to hash expansion, which keeps the cache functional when no endpoint
// is configured.
func NewProvider(st store.Store, keys *cachekey.Builder, model Generator, cfg ProviderConfig) *Provider {
	dimension := DefaultDimension
	if model != nil {
		dimension = model.Dimension()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}

	return &Provider{
		store:    st,
		keys:     keys,
		model:    model,
		fallback: NewHashGenerator(dimension),
		cacheTTL: cfg.CacheTTL,
	}
}

// Embed returns the embedding vector for text. Blank input returns an empty
// vector without touching the store or the model; callers treat an empty
// vector as "no semantic candidate".
func (p *Provider) Embed(ctx context.Context, text string) []float32 {
	if strings.TrimSpace(text) == "" {
		return []float32{}
	}

	key := p.keys.Embedding(contenthash.Sum(text))

	if vector := p.cached(ctx, key); vector != nil {
		return vector
	}

	if p.model != nil {
		start := time.Now()
		vector, err := p.model.Embed(ctx, text)
		if err == nil && len(vector) > 0 {
			VectorSourceTotal.WithLabelValues(sourceModel).Inc()
			VectorDuration.WithLabelValues(sourceModel).Observe(time.Since(start).Seconds())
			p.cache(ctx, key, vector)
			return vector
		}
		log.Warn().Err(err).Msg("Embedding model failed, using hash fallback")
	}

	start := time.Now()
	vector, _ := p.fallback.Embed(ctx, text)
	VectorSourceTotal.WithLabelValues(sourceFallback).Inc()
	VectorDuration.WithLabelValues(sourceFallback).Observe(time.Since(start).Seconds())
	p.cache(ctx, key, vector)
	return vector
}

// Dimension reports the vector width every source produces.
func (p *Provider) Dimension() int {
	return p.fallback.Dimension()
}

func (p *Provider) cached(ctx context.Context, key string) []float32 {
	ctx, cancel := context.WithTimeout(ctx, cacheReadTimeout)
	defer cancel()

	data, err := p.store.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Embedding cache read failed")
		return nil
	}
	if data == nil {
		return nil
	}

	var vector []float32
	if err := json.Unmarshal(data, &vector); err != nil || len(vector) == 0 {
		log.Warn().Err(err).Str("key", key).Msg("Dropping corrupt cached embedding")
		if _, err := p.store.Delete(ctx, key); err != nil {
			log.Debug().Err(err).Str("key", key).Msg("Failed to drop cached embedding")
		}
		return nil
	}

	VectorSourceTotal.WithLabelValues(sourceCache).Inc()
	return vector
}

func (p *Provider) cache(ctx context.Context, key string, vector []float32) {
	data, err := json.Marshal(vector)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to marshal embedding")
		return
	}
	if err := p.store.Set(ctx, key, data, p.cacheTTL); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to cache embedding")
		return
	}
	log.Debug().Str("key", key).Msg("Cached embedding")
}
