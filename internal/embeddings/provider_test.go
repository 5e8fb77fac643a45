package embeddings

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objones25/mnemosyne/internal/cachekey"
	"github.com/objones25/mnemosyne/internal/contenthash"
	"github.com/objones25/mnemosyne/internal/store"
)

func newTestProvider(t *testing.T, model Generator) (*Provider, *store.MemoryStore) {
	t.Helper()

	ms, err := store.NewMemoryStore(store.MemoryConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ms.Close() })

	return NewProvider(ms, cachekey.NewBuilder("test"), model, ProviderConfig{}), ms
}

func TestProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("Model_Result_Is_Cached", func(t *testing.T) {
		mock := NewMockGenerator(8)
		p, _ := newTestProvider(t, mock)

		first := p.Embed(ctx, "some prompt")
		require.Len(t, first, 8)
		assert.Equal(t, 1, mock.CallCount())

		// Second call is served from the store, not the model.
		second := p.Embed(ctx, "some prompt")
		assert.Equal(t, first, second)
		assert.Equal(t, 1, mock.CallCount())
	})

	t.Run("Empty_Input_Short_Circuits", func(t *testing.T) {
		mock := NewMockGenerator(8)
		p, _ := newTestProvider(t, mock)

		assert.Empty(t, p.Embed(ctx, ""))
		assert.Empty(t, p.Embed(ctx, "   \t\n"))
		assert.Zero(t, mock.CallCount())
	})

	t.Run("Model_Failure_Falls_Back_To_Hash", func(t *testing.T) {
		mock := NewMockGenerator(8)
		mock.SetError(errors.New("model unavailable"))
		p, _ := newTestProvider(t, mock)

		vector := p.Embed(ctx, "some prompt")
		require.Len(t, vector, 8)

		// The fallback is the deterministic hash expansion.
		want, err := NewHashGenerator(8).Embed(ctx, "some prompt")
		require.NoError(t, err)
		assert.Equal(t, want, vector)
	})

	t.Run("Fallback_Result_Is_Cached", func(t *testing.T) {
		mock := NewMockGenerator(8)
		mock.SetError(errors.New("model unavailable"))
		p, _ := newTestProvider(t, mock)

		first := p.Embed(ctx, "some prompt")
		require.NotEmpty(t, first)
		require.Equal(t, 1, mock.CallCount())

		// The cached vector short-circuits even the failing model.
		second := p.Embed(ctx, "some prompt")
		assert.Equal(t, first, second)
		assert.Equal(t, 1, mock.CallCount())
	})

	t.Run("Nil_Model_Uses_Hash_Directly", func(t *testing.T) {
		p, _ := newTestProvider(t, nil)

		vector := p.Embed(ctx, "some prompt")
		require.Len(t, vector, DefaultDimension)

		want, err := NewHashGenerator(DefaultDimension).Embed(ctx, "some prompt")
		require.NoError(t, err)
		assert.Equal(t, want, vector)
	})

	t.Run("Corrupt_Cache_Entry_Is_Dropped", func(t *testing.T) {
		mock := NewMockGenerator(8)
		p, ms := newTestProvider(t, mock)

		key := cachekey.NewBuilder("test").Embedding(contenthash.Sum("some prompt"))
		require.NoError(t, ms.Set(ctx, key, []byte("{not json"), 0))

		vector := p.Embed(ctx, "some prompt")
		require.Len(t, vector, 8)
		assert.Equal(t, 1, mock.CallCount())

		// The corrupt entry was replaced by the fresh vector.
		data, err := ms.Get(ctx, key)
		require.NoError(t, err)
		assert.NotEqual(t, []byte("{not json"), data)
	})

	t.Run("Pinned_Vectors_Round_Trip", func(t *testing.T) {
		mock := NewMockGenerator(3)
		mock.SetVector("query a", []float32{1, 0, 0})
		p, _ := newTestProvider(t, mock)

		assert.Equal(t, []float32{1, 0, 0}, p.Embed(ctx, "query a"))
	})
}
