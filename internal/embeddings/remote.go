package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultModel matches the dimension declared by DefaultDimension.
	DefaultModel = "sentence-transformers/all-MiniLM-L6-v2"

	defaultRequestTimeout = 10 * time.Second
)

// ModelConfig holds settings for the external embedding endpoint.
type ModelConfig struct {
	// URL is the full endpoint the request is posted to.
	URL string
	// APIKey, when set, is sent as a bearer token.
	APIKey string
	// Model names the embedding model, for logging only.
	Model string
	// Dimension is the expected vector width; responses of any other width
	// are rejected.
	Dimension int
	// Timeout bounds each request.
	Timeout time.Duration
}

// ModelClient calls an external feature-extraction endpoint that accepts
// {"inputs": [text]} and answers with one vector per input.
type ModelClient struct {
	cfg        ModelConfig
	httpClient *http.Client
}

var _ Generator = (*ModelClient)(nil)

// NewModelClient validates the config and prepares the HTTP client.
func NewModelClient(cfg ModelConfig) (*ModelClient, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("embedding endpoint URL is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = DefaultDimension
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRequestTimeout
	}

	return &ModelClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Embed requests a vector for text from the remote model.
func (c *ModelClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrInvalidInput
	}

	body, err := json.Marshal(map[string]interface{}{
		"inputs": []string{text},
		"options": map[string]interface{}{
			"wait_for_model": true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.cfg.APIKey))
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedding endpoint returned status %d: %s", resp.StatusCode, string(msg))
	}

	var vectors [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&vectors); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedding endpoint returned no vectors")
	}
	if len(vectors[0]) != c.cfg.Dimension {
		return nil, fmt.Errorf("embedding dimension mismatch: got %d, want %d", len(vectors[0]), c.cfg.Dimension)
	}

	log.Debug().
		Str("model", c.cfg.Model).
		Dur("duration", time.Since(start)).
		Msg("Generated embedding")
	return vectors[0], nil
}

// Dimension reports the configured vector width.
func (c *ModelClient) Dimension() int {
	return c.cfg.Dimension
}
