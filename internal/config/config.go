// Package config reads the cache's environment surface. Every option lives
// under the MNEMOSYNE_ prefix and has a default, so an empty environment
// yields a working in-process cache. Malformed values fail here, at load
// time; nothing downstream re-validates.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full configuration surface.
type Config struct {
	// KeyPrefix namespaces every key written to the backing store.
	KeyPrefix string `mapstructure:"key_prefix"`

	Redis      RedisConfig      `mapstructure:"redis"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Memory     MemoryConfig     `mapstructure:"memory"`
	Embeddings EmbeddingsConfig `mapstructure:"embeddings"`
}

// RedisConfig points at the remote store. An empty Addr means no remote is
// configured and the in-process store serves from the start.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	ReadAddr string `mapstructure:"read_addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	TLS      bool   `mapstructure:"tls"`
}

// CacheConfig holds the strategy engine tunables.
type CacheConfig struct {
	DefaultTTL          time.Duration `mapstructure:"default_ttl"`
	DedupTTL            time.Duration `mapstructure:"dedup_ttl"`
	SemanticTTL         time.Duration `mapstructure:"semantic_ttl"`
	SemanticEnabled     bool          `mapstructure:"semantic_enabled"`
	SimilarityThreshold float64       `mapstructure:"similarity_threshold"`
}

// MemoryConfig bounds the in-process fallback store.
type MemoryConfig struct {
	Capacity int `mapstructure:"capacity"`
}

// EmbeddingsConfig points at the external embedding endpoint. An empty URL
// leaves the model unconfigured and the provider on its hash fallback.
type EmbeddingsConfig struct {
	URL       string        `mapstructure:"url"`
	APIKey    string        `mapstructure:"api_key"`
	Model     string        `mapstructure:"model"`
	Dimension int           `mapstructure:"dimension"`
	Timeout   time.Duration `mapstructure:"timeout"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// Load reads configuration from the environment, after loading any .env file
// reachable from the working directory.
func Load() (*Config, error) {
	// Try loading from different possible locations; a missing file is fine,
	// the environment alone is enough.
	envFiles := []string{
		".env",
		"../../.env",
		"../../../.env",
	}
	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err == nil {
			break
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	bindEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("key_prefix", "mnemosyne")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.read_addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.tls", false)

	v.SetDefault("cache.default_ttl", "1h")
	v.SetDefault("cache.dedup_ttl", "5m")
	v.SetDefault("cache.semantic_ttl", "24h")
	v.SetDefault("cache.semantic_enabled", true)
	v.SetDefault("cache.similarity_threshold", 0.85)

	v.SetDefault("memory.capacity", 10000)

	v.SetDefault("embeddings.url", "")
	v.SetDefault("embeddings.api_key", "")
	v.SetDefault("embeddings.model", "sentence-transformers/all-MiniLM-L6-v2")
	v.SetDefault("embeddings.dimension", 384)
	v.SetDefault("embeddings.timeout", "10s")
	v.SetDefault("embeddings.ttl", "24h")
}

func bindEnv(v *viper.Viper) {
	v.AutomaticEnv()

	_ = v.BindEnv("key_prefix", "MNEMOSYNE_KEY_PREFIX")

	_ = v.BindEnv("redis.addr", "MNEMOSYNE_REDIS_ADDR")
	_ = v.BindEnv("redis.read_addr", "MNEMOSYNE_REDIS_READ_ADDR")
	_ = v.BindEnv("redis.password", "MNEMOSYNE_REDIS_PASSWORD")
	_ = v.BindEnv("redis.db", "MNEMOSYNE_REDIS_DB")
	_ = v.BindEnv("redis.tls", "MNEMOSYNE_REDIS_TLS")

	_ = v.BindEnv("cache.default_ttl", "MNEMOSYNE_DEFAULT_TTL")
	_ = v.BindEnv("cache.dedup_ttl", "MNEMOSYNE_DEDUP_TTL")
	_ = v.BindEnv("cache.semantic_ttl", "MNEMOSYNE_SEMANTIC_TTL")
	_ = v.BindEnv("cache.semantic_enabled", "MNEMOSYNE_SEMANTIC_ENABLED")
	_ = v.BindEnv("cache.similarity_threshold", "MNEMOSYNE_SIMILARITY_THRESHOLD")

	_ = v.BindEnv("memory.capacity", "MNEMOSYNE_MEMORY_CAPACITY")

	_ = v.BindEnv("embeddings.url", "MNEMOSYNE_EMBEDDINGS_URL")
	_ = v.BindEnv("embeddings.api_key", "MNEMOSYNE_EMBEDDINGS_API_KEY")
	_ = v.BindEnv("embeddings.model", "MNEMOSYNE_EMBEDDINGS_MODEL")
	_ = v.BindEnv("embeddings.dimension", "MNEMOSYNE_EMBEDDINGS_DIMENSION")
	_ = v.BindEnv("embeddings.timeout", "MNEMOSYNE_EMBEDDINGS_TIMEOUT")
	_ = v.BindEnv("embeddings.ttl", "MNEMOSYNE_EMBEDDING_TTL")
}

func validate(cfg *Config) error {
	if cfg.KeyPrefix == "" {
		return fmt.Errorf("key prefix must not be empty")
	}
	if cfg.Redis.DB < 0 {
		return fmt.Errorf("invalid redis db: %d", cfg.Redis.DB)
	}
	if cfg.Cache.SimilarityThreshold <= 0 || cfg.Cache.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity threshold must be in (0, 1], got %v", cfg.Cache.SimilarityThreshold)
	}
	if cfg.Cache.DefaultTTL <= 0 || cfg.Cache.DedupTTL <= 0 || cfg.Cache.SemanticTTL <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}
	if cfg.Memory.Capacity <= 0 {
		return fmt.Errorf("invalid memory capacity: %d", cfg.Memory.Capacity)
	}
	if cfg.Embeddings.Dimension <= 0 {
		return fmt.Errorf("invalid embedding dimension: %d", cfg.Embeddings.Dimension)
	}
	if cfg.Embeddings.Timeout <= 0 {
		return fmt.Errorf("embedding timeout must be positive")
	}
	if cfg.Embeddings.TTL <= 0 {
		return fmt.Errorf("embedding cache TTL must be positive")
	}
	return nil
}
