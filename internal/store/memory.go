package store

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultMemoryCapacity bounds the in-process store so a long fallback
	// period cannot grow the heap without limit.
	DefaultMemoryCapacity = 10000

	defaultSweepInterval = time.Minute
)

// MemoryConfig holds settings for the in-process store.
type MemoryConfig struct {
	// Capacity is the maximum number of entries before LRU eviction.
	Capacity int
	// SweepInterval is how often the janitor removes expired entries.
	// Expired entries are also dropped lazily on access.
	SweepInterval time.Duration
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryStore is a capacity-bounded, TTL-aware store living entirely in the
// process. It backs the cache when no remote store is reachable, so entries
// are scoped to the process lifetime.
type MemoryStore struct {
	entries *lru.Cache[string, *memoryEntry]

	// mu serializes read-modify-write counter updates; plain gets and sets
	// rely on the LRU's own locking.
	mu sync.Mutex

	done      chan struct{}
	closeOnce sync.Once
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an in-process store and starts its expiry janitor.
func NewMemoryStore(cfg MemoryConfig) (*MemoryStore, error) {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultMemoryCapacity
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}

	entries, err := lru.New[string, *memoryEntry](cfg.Capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create lru cache: %w", err)
	}

	s := &MemoryStore{
		entries: entries,
		done:    make(chan struct{}),
	}
	go s.sweepRoutine(cfg.SweepInterval)
	return s, nil
}

func (s *MemoryStore) sweepRoutine(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.done:
			return
		}
	}
}

func (s *MemoryStore) sweep() {
	now := time.Now()
	removed := 0
	for _, key := range s.entries.Keys() {
		if entry, ok := s.entries.Peek(key); ok && entry.expired(now) {
			s.entries.Remove(key)
			removed++
		}
	}
	if removed > 0 {
		log.Debug().Int("count", removed).Msg("Swept expired entries")
	}
}

// Get retrieves a value. Absent or expired keys return (nil, nil).
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	entry, ok := s.entries.Get(key)
	if !ok {
		return nil, nil
	}
	if entry.expired(time.Now()) {
		s.entries.Remove(key)
		return nil, nil
	}
	return entry.value, nil
}

// Set stores a value. A zero ttl means no expiry.
func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	entry := &memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	s.entries.Add(key, entry)
	return nil
}

// Delete removes keys and returns how many existed.
func (s *MemoryStore) Delete(ctx context.Context, keys ...string) (int64, error) {
	var n int64
	now := time.Now()
	for _, key := range keys {
		if entry, ok := s.entries.Peek(key); ok {
			if !entry.expired(now) {
				n++
			}
			s.entries.Remove(key)
		}
	}
	return n, nil
}

// Exists reports whether key is present, without disturbing LRU recency.
func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	entry, ok := s.entries.Peek(key)
	if !ok {
		return false, nil
	}
	if entry.expired(time.Now()) {
		s.entries.Remove(key)
		return false, nil
	}
	return true, nil
}

// ScanKeys matches live keys against a glob pattern over a point-in-time
// snapshot of the keyspace.
func (s *MemoryStore) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	re, err := globRegexp(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
	}

	var keys []string
	now := time.Now()
	for _, key := range s.entries.Keys() {
		entry, ok := s.entries.Peek(key)
		if !ok {
			continue
		}
		if entry.expired(now) {
			s.entries.Remove(key)
			continue
		}
		if re.MatchString(key) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// TTL returns the remaining lifetime of key.
func (s *MemoryStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	entry, ok := s.entries.Peek(key)
	if !ok {
		return TTLMissing, nil
	}
	if entry.expiresAt.IsZero() {
		return TTLNone, nil
	}
	remaining := time.Until(entry.expiresAt)
	if remaining <= 0 {
		s.entries.Remove(key)
		return TTLMissing, nil
	}
	return remaining, nil
}

// IncrBy atomically adds delta to an integer counter, creating it at zero.
// Counters are stored as decimal strings for parity with the remote store.
func (s *MemoryStore) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, entry, err := s.counterValue(key)
	if err != nil {
		return 0, fmt.Errorf("failed to increment %s: %w", key, err)
	}

	next := current + delta
	entry.value = []byte(strconv.FormatInt(next, 10))
	s.entries.Add(key, entry)
	return next, nil
}

// IncrByFloat atomically adds delta to a float counter, creating it at zero.
func (s *MemoryStore) IncrByFloat(ctx context.Context, key string, delta float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, current := &memoryEntry{}, 0.0
	if existing, ok := s.entries.Get(key); ok && !existing.expired(time.Now()) {
		parsed, err := strconv.ParseFloat(string(existing.value), 64)
		if err != nil {
			return 0, fmt.Errorf("failed to increment %s: value is not a valid float", key)
		}
		current, entry = parsed, existing
	}

	next := current + delta
	entry.value = []byte(strconv.FormatFloat(next, 'f', -1, 64))
	s.entries.Add(key, entry)
	return next, nil
}

func (s *MemoryStore) counterValue(key string) (int64, *memoryEntry, error) {
	existing, ok := s.entries.Get(key)
	if !ok || existing.expired(time.Now()) {
		return 0, &memoryEntry{}, nil
	}
	current, err := strconv.ParseInt(string(existing.value), 10, 64)
	if err != nil {
		return 0, nil, fmt.Errorf("value is not an integer")
	}
	return current, existing, nil
}

// FlushAll removes every entry.
func (s *MemoryStore) FlushAll(ctx context.Context) error {
	s.entries.Purge()
	log.Debug().Msg("Flushed memory store")
	return nil
}

// Ping always succeeds: the store lives in-process.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Len reports the number of resident entries, expired included.
func (s *MemoryStore) Len() int {
	return s.entries.Len()
}

// Close stops the janitor and drops all entries.
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.entries.Purge()
	})
	return nil
}

// globRegexp compiles a glob pattern (* and ? wildcards) into a regexp.
// Unlike path matching, * crosses every character including separators,
// which is what key patterns like "prefix:resp:*" rely on.
func globRegexp(pattern string) (*regexp.Regexp, error) {
	var sb strings.Builder
	sb.WriteByte('^')
	for _, r := range pattern {
		switch r {
		case '*':
			sb.WriteString(".*")
		case '?':
			sb.WriteByte('.')
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteByte('$')
	return regexp.Compile(sb.String())
}
