package embeddings

import (
	"context"
	"sync"
	"time"
)

// MockGenerator implements Generator for testing. Vectors are deterministic
// functions of the input unless overridden per text.
type MockGenerator struct {
	mu        sync.RWMutex
	dimension int
	latency   time.Duration
	err       error
	vectors   map[string][]float32
	callCount int
}

var _ Generator = (*MockGenerator)(nil)

// NewMockGenerator creates a mock producing vectors of the given dimension.
func NewMockGenerator(dimension int) *MockGenerator {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &MockGenerator{
		dimension: dimension,
		vectors:   make(map[string][]float32),
	}
}

// SetVector pins the vector returned for a specific text.
func (m *MockGenerator) SetVector(text string, vector []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vectors[text] = vector
}

// SetError makes every Embed call fail with err until reset with nil.
func (m *MockGenerator) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetLatency adds artificial delay to each call.
func (m *MockGenerator) SetLatency(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latency = d
}

// CallCount reports how many times Embed ran.
func (m *MockGenerator) CallCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.callCount
}

// Embed implements Generator.
func (m *MockGenerator) Embed(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.callCount++
	err := m.err
	latency := m.latency
	pinned, ok := m.vectors[text]
	m.mu.Unlock()

	if latency > 0 {
		select {
		case <-time.After(latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if ok {
		return pinned, nil
	}

	// Deterministic filler derived from the text bytes.
	vector := make([]float32, m.dimension)
	var sum int
	for _, c := range text {
		sum += int(c)
	}
	for i := range vector {
		vector[i] = float32((sum+i)%97) / 97.0
	}
	return vector, nil
}

// Dimension implements Generator.
func (m *MockGenerator) Dimension() int {
	return m.dimension
}
