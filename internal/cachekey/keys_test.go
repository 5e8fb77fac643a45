package cachekey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objones25/mnemosyne/internal/contenthash"
)

func TestBuilder_Keys(t *testing.T) {
	b := NewBuilder("test")
	hash := contenthash.Sum("what is 2+2?")

	t.Run("Exact_Format", func(t *testing.T) {
		key := b.Exact("openai", "gpt-4", "user-1", hash)
		assert.Equal(t, "test:resp:openai:gpt-4:user-1:"+hash, key)
	})

	t.Run("Deterministic", func(t *testing.T) {
		first := b.Exact("openai", "gpt-4", "user-1", hash)
		second := b.Exact("openai", "gpt-4", "user-1", hash)
		assert.Equal(t, first, second)
	})

	t.Run("Model_Lowercased", func(t *testing.T) {
		key := b.Exact("OpenAI", "GPT-4", "User-1", hash)
		assert.Equal(t, "test:resp:openai:gpt-4:User-1:"+hash, key)
	})

	t.Run("Empty_Identity_Defaults", func(t *testing.T) {
		key := b.Exact("", "", "", hash)
		assert.Equal(t, "test:resp:default:default:anonymous:"+hash, key)
	})

	t.Run("Dedup_Ignores_Identity", func(t *testing.T) {
		assert.Equal(t, "test:dedup:"+hash, b.Dedup(hash))
	})

	t.Run("Embedding_Shared_Across_Identities", func(t *testing.T) {
		assert.Equal(t, "test:emb:"+hash, b.Embedding(hash))
	})

	t.Run("Counter", func(t *testing.T) {
		assert.Equal(t, "test:stats:hits", b.Counter("hits"))
	})

	t.Run("Unsafe_Runes_Replaced", func(t *testing.T) {
		key := b.Exact("open:ai", "gpt*", "u?[1]", hash)
		assert.Equal(t, "test:resp:open-ai:gpt-:u--1-:"+hash, key)
	})
}

func TestBuilder_Patterns(t *testing.T) {
	b := NewBuilder("")

	assert.Equal(t, "mnemosyne:resp:*", b.ExactPattern())
	assert.Equal(t, "mnemosyne:stats:*", b.CounterPattern())
	assert.Equal(t, "mnemosyne:sem:openai:gpt-4:alice:*", b.SemanticPattern("openai", "gpt-4", "alice"))
	assert.Equal(t, "mnemosyne:sem:default:default:anonymous:*", b.SemanticPattern("", "", ""))
}

func TestBuilder_ParseExact(t *testing.T) {
	b := NewBuilder("test")
	hash := contenthash.Sum("content")

	t.Run("Round_Trip", func(t *testing.T) {
		key := b.Exact("anthropic", "claude-3", "bob", hash)
		parts, ok := b.ParseExact(key)
		require.True(t, ok)
		assert.Equal(t, "anthropic", parts.Provider)
		assert.Equal(t, "claude-3", parts.Model)
		assert.Equal(t, "bob", parts.UserID)
		assert.Equal(t, hash, parts.Hash)
	})

	t.Run("Rejects_Other_Namespaces", func(t *testing.T) {
		_, ok := b.ParseExact(b.Dedup(hash))
		assert.False(t, ok)
	})

	t.Run("Rejects_Other_Prefixes", func(t *testing.T) {
		other := NewBuilder("other")
		_, ok := b.ParseExact(other.Exact("p", "m", "u", hash))
		assert.False(t, ok)
	})

	t.Run("Rejects_Malformed", func(t *testing.T) {
		_, ok := b.ParseExact("test:resp:onlytwo:" + hash)
		assert.False(t, ok)
	})
}
