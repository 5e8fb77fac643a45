// Package cachekey builds the colon-delimited keys that all cache strategies
// and counters live under. Key construction is deterministic: the same
// (provider, model, user, content hash) always yields the same key, across
// processes and restarts.
package cachekey

import (
	"fmt"
	"strings"
)

const (
	// DefaultPrefix namespaces every key so the cache can share a Redis
	// database with other applications.
	DefaultPrefix = "mnemosyne"

	// AnonymousUser scopes entries stored without a user identity.
	AnonymousUser = "anonymous"

	// DefaultScope stands in for an unspecified provider or model.
	DefaultScope = "default"

	nsExact     = "resp"
	nsDedup     = "dedup"
	nsSemantic  = "sem"
	nsEmbedding = "emb"
	nsStats     = "stats"
)

// Builder constructs namespaced cache keys under a fixed prefix.
type Builder struct {
	prefix string
}

// NewBuilder creates a key builder. An empty prefix falls back to
// DefaultPrefix. Colons in the prefix are replaced so the key grammar
// stays parseable.
func NewBuilder(prefix string) *Builder {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Builder{prefix: segment(prefix)}
}

// Exact returns the key for an exact-match response entry.
// Format: prefix:resp:provider:model:user:contenthash
func (b *Builder) Exact(provider, model, userID, contentHash string) string {
	return fmt.Sprintf("%s:%s:%s:%s:%s:%s",
		b.prefix, nsExact, normalizeScope(provider), normalizeScope(model), normalizeUser(userID), contentHash)
}

// Dedup returns the key for a deduplication entry. Deduplication is
// identity-blind: only the content hash participates.
func (b *Builder) Dedup(contentHash string) string {
	return fmt.Sprintf("%s:%s:%s", b.prefix, nsDedup, contentHash)
}

// Semantic returns the key for a semantic entry carrying an embedding.
func (b *Builder) Semantic(provider, model, userID, contentHash string) string {
	return fmt.Sprintf("%s:%s:%s:%s:%s:%s",
		b.prefix, nsSemantic, normalizeScope(provider), normalizeScope(model), normalizeUser(userID), contentHash)
}

// Embedding returns the key for a cached embedding vector. Embeddings
// depend only on content, so they are shared across identities.
func (b *Builder) Embedding(contentHash string) string {
	return fmt.Sprintf("%s:%s:%s", b.prefix, nsEmbedding, contentHash)
}

// Counter returns the key for a named statistics counter.
func (b *Builder) Counter(name string) string {
	return fmt.Sprintf("%s:%s:%s", b.prefix, nsStats, name)
}

// ExactPattern returns the glob matching every exact-match key under the
// prefix.
func (b *Builder) ExactPattern() string {
	return fmt.Sprintf("%s:%s:*", b.prefix, nsExact)
}

// SemanticPattern returns the glob matching the semantic entries visible to
// the given identity. Identity fields normalize the same way Semantic does,
// so a lookup only ever sees candidates stored under the same scope.
func (b *Builder) SemanticPattern(provider, model, userID string) string {
	return fmt.Sprintf("%s:%s:%s:%s:%s:*",
		b.prefix, nsSemantic, normalizeScope(provider), normalizeScope(model), normalizeUser(userID))
}

// CounterPattern returns the glob matching every statistics counter.
func (b *Builder) CounterPattern() string {
	return fmt.Sprintf("%s:%s:*", b.prefix, nsStats)
}

// Prefix reports the normalized prefix in use.
func (b *Builder) Prefix() string {
	return b.prefix
}

// ExactParts holds the identity recovered from an exact-match key.
type ExactParts struct {
	Provider string
	Model    string
	UserID   string
	Hash     string
}

// ParseExact recovers the identity segments from an exact-match key built by
// this builder. It reports false for keys from other namespaces or prefixes.
func (b *Builder) ParseExact(key string) (ExactParts, bool) {
	head := b.prefix + ":" + nsExact + ":"
	if !strings.HasPrefix(key, head) {
		return ExactParts{}, false
	}
	rest := strings.Split(strings.TrimPrefix(key, head), ":")
	if len(rest) != 4 {
		return ExactParts{}, false
	}
	return ExactParts{
		Provider: rest[0],
		Model:    rest[1],
		UserID:   rest[2],
		Hash:     rest[3],
	}, true
}

func normalizeScope(s string) string {
	if s == "" {
		return DefaultScope
	}
	return segment(strings.ToLower(s))
}

func normalizeUser(s string) string {
	if s == "" {
		return AnonymousUser
	}
	return segment(s)
}

// segment strips the characters that would break the colon grammar or the
// glob patterns built over it.
func segment(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ':', '*', '?', '[', ']':
			return '-'
		}
		return r
	}, s)
}
