// Package stats aggregates cache effectiveness counters. Counters live in the
// backing store so every process sharing the cache contributes to the same
// numbers; the derived hit rate is computed on read and never stored.
package stats

import (
	"context"
	"sort"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/objones25/mnemosyne/internal/cachekey"
	"github.com/objones25/mnemosyne/internal/store"
)

// Counter names. Each lives under the stats namespace of the key prefix.
const (
	CounterHits            = "hits"
	CounterMisses          = "misses"
	CounterTotalRequests   = "total_requests"
	CounterExactMatches    = "exact_matches"
	CounterSemanticMatches = "semantic_matches"
	CounterDeduplication   = "deduplication_count"
	CounterTokensSaved     = "tokens_saved"
	CounterCostSaved       = "cost_saved"
)

// CacheStats is a point-in-time copy of the counters.
type CacheStats struct {
	Hits               int64   `json:"hits"`
	Misses             int64   `json:"misses"`
	TotalRequests      int64   `json:"totalRequests"`
	ExactMatches       int64   `json:"exactMatches"`
	SemanticMatches    int64   `json:"semanticMatches"`
	DeduplicationCount int64   `json:"deduplicationCount"`
	TokensSaved        int64   `json:"tokensSaved"`
	CostSaved          float64 `json:"costSaved"`
	// HitRate is Hits over TotalRequests, derived at read time.
	HitRate float64 `json:"hitRate"`
}

// Usage is one row of a top-N breakdown.
type Usage struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// Aggregator reads and writes the shared counters.
type Aggregator struct {
	store store.Store
	keys  *cachekey.Builder
}

// NewAggregator creates an aggregator over the given store and key prefix.
func NewAggregator(st store.Store, keys *cachekey.Builder) *Aggregator {
	return &Aggregator{store: st, keys: keys}
}

// Increment adds delta to a counter. The store increment is atomic, so
// concurrent writers from any number of processes cannot lose updates.
// Failures are logged and absorbed: statistics never break a cache call.
func (a *Aggregator) Increment(ctx context.Context, name string, delta int64) {
	if delta == 0 {
		return
	}
	if _, err := a.store.IncrBy(ctx, a.keys.Counter(name), delta); err != nil {
		log.Warn().Err(err).Str("counter", name).Msg("Failed to increment counter")
	}
}

// IncrementFloat adds delta to a float counter, with the same contract as
// Increment.
func (a *Aggregator) IncrementFloat(ctx context.Context, name string, delta float64) {
	if delta == 0 {
		return
	}
	if _, err := a.store.IncrByFloat(ctx, a.keys.Counter(name), delta); err != nil {
		log.Warn().Err(err).Str("counter", name).Msg("Failed to increment counter")
	}
}

// Snapshot reads every counter. Missing counters read as zero, and a zero
// request count yields a zero hit rate.
func (a *Aggregator) Snapshot(ctx context.Context) CacheStats {
	s := CacheStats{
		Hits:               a.counter(ctx, CounterHits),
		Misses:             a.counter(ctx, CounterMisses),
		TotalRequests:      a.counter(ctx, CounterTotalRequests),
		ExactMatches:       a.counter(ctx, CounterExactMatches),
		SemanticMatches:    a.counter(ctx, CounterSemanticMatches),
		DeduplicationCount: a.counter(ctx, CounterDeduplication),
		TokensSaved:        a.counter(ctx, CounterTokensSaved),
		CostSaved:          a.floatCounter(ctx, CounterCostSaved),
	}
	if s.TotalRequests > 0 {
		s.HitRate = float64(s.Hits) / float64(s.TotalRequests)
	}
	return s
}

func (a *Aggregator) counter(ctx context.Context, name string) int64 {
	data, err := a.store.Get(ctx, a.keys.Counter(name))
	if err != nil {
		log.Warn().Err(err).Str("counter", name).Msg("Failed to read counter")
		return 0
	}
	if data == nil {
		return 0
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		log.Warn().Str("counter", name).Msg("Counter holds a non-integer value")
		return 0
	}
	return n
}

func (a *Aggregator) floatCounter(ctx context.Context, name string) float64 {
	data, err := a.store.Get(ctx, a.keys.Counter(name))
	if err != nil {
		log.Warn().Err(err).Str("counter", name).Msg("Failed to read counter")
		return 0
	}
	if data == nil {
		return 0
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		log.Warn().Str("counter", name).Msg("Counter holds a non-float value")
		return 0
	}
	return f
}

// TopModels ranks models by resident exact-match entries. The walk is linear
// in the keyspace, which is acceptable for an operator surface.
func (a *Aggregator) TopModels(ctx context.Context, n int) ([]Usage, error) {
	return a.topBy(ctx, n, func(p cachekey.ExactParts) string { return p.Model })
}

// TopUsers ranks users by resident exact-match entries.
func (a *Aggregator) TopUsers(ctx context.Context, n int) ([]Usage, error) {
	return a.topBy(ctx, n, func(p cachekey.ExactParts) string { return p.UserID })
}

func (a *Aggregator) topBy(ctx context.Context, n int, segment func(cachekey.ExactParts) string) ([]Usage, error) {
	keys, err := a.store.ScanKeys(ctx, a.keys.ExactPattern())
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64)
	for _, key := range keys {
		parts, ok := a.keys.ParseExact(key)
		if !ok {
			continue
		}
		counts[segment(parts)]++
	}

	usages := make([]Usage, 0, len(counts))
	for name, count := range counts {
		usages = append(usages, Usage{Name: name, Count: count})
	}
	sort.Slice(usages, func(i, j int) bool {
		if usages[i].Count != usages[j].Count {
			return usages[i].Count > usages[j].Count
		}
		return usages[i].Name < usages[j].Name
	})

	if n > 0 && len(usages) > n {
		usages = usages[:n]
	}
	return usages, nil
}

// Reset deletes every counter. Entries are untouched; only the numbers
// restart from zero.
func (a *Aggregator) Reset(ctx context.Context) error {
	keys, err := a.store.ScanKeys(ctx, a.keys.CounterPattern())
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	_, err = a.store.Delete(ctx, keys...)
	return err
}
