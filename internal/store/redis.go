package store

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

const (
	defaultDialTimeout  = 5 * time.Second
	defaultReadTimeout  = 2 * time.Second
	defaultWriteTimeout = 2 * time.Second
	defaultPoolSize     = 10

	// scanCount is the COUNT hint per SCAN page.
	scanCount = 100
)

// RedisConfig holds connection settings for the remote store.
type RedisConfig struct {
	// Addr receives all writes. Required.
	Addr string
	// ReadAddr optionally routes reads to a replica. Empty means reads share
	// Addr.
	ReadAddr string
	Password string
	DB       int
	TLS      bool

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
}

func (cfg *RedisConfig) applyDefaults() {
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.PoolSize == 0 {
		cfg.PoolSize = defaultPoolSize
	}
}

// RedisStore is the networked backing store. Reads go to the reader client,
// mutations to the writer, so a replica can absorb scan-heavy lookups.
type RedisStore struct {
	writer *redis.Client
	reader *redis.Client
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects both clients and verifies the writer with a ping
// bounded by the dial timeout.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	cfg.applyDefaults()

	writer := redis.NewClient(clientOptions(cfg, cfg.Addr))
	reader := writer
	if cfg.ReadAddr != "" && cfg.ReadAddr != cfg.Addr {
		reader = redis.NewClient(clientOptions(cfg, cfg.ReadAddr))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := writer.Ping(ctx).Err(); err != nil {
		_ = writer.Close()
		if reader != writer {
			_ = reader.Close()
		}
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Debug().Str("addr", cfg.Addr).Str("read_addr", cfg.ReadAddr).Msg("Connected to redis store")
	return &RedisStore{writer: writer, reader: reader}, nil
}

func clientOptions(cfg RedisConfig, addr string) *redis.Options {
	opts := &redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts
}

// Get retrieves a value. Absent keys return (nil, nil).
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.reader.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return val, nil
}

// Set stores a value. A zero ttl means no expiry.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.writer.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// Delete removes keys and returns how many existed.
func (s *RedisStore) Delete(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := s.writer.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to delete keys: %w", err)
	}
	return n, nil
}

// Exists reports whether key is present.
func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.reader.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", key, err)
	}
	return n > 0, nil
}

// ScanKeys walks the keyspace with SCAN rather than KEYS so large databases
// are not blocked.
func (s *RedisStore) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := s.reader.Scan(ctx, 0, pattern, scanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", pattern, err)
	}
	return keys, nil
}

// TTL returns the remaining lifetime of key. go-redis passes the Redis
// sentinels through as-is, which match TTLNone and TTLMissing.
func (s *RedisStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := s.reader.TTL(ctx, key).Result()
	if err != nil {
		return TTLMissing, fmt.Errorf("failed to read ttl of %s: %w", key, err)
	}
	return d, nil
}

// IncrBy atomically adds delta to an integer counter.
func (s *RedisStore) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	n, err := s.writer.IncrBy(ctx, key, delta).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment %s: %w", key, err)
	}
	return n, nil
}

// IncrByFloat atomically adds delta to a float counter.
func (s *RedisStore) IncrByFloat(ctx context.Context, key string, delta float64) (float64, error) {
	f, err := s.writer.IncrByFloat(ctx, key, delta).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment %s: %w", key, err)
	}
	return f, nil
}

// FlushAll clears the active database.
func (s *RedisStore) FlushAll(ctx context.Context) error {
	if err := s.writer.FlushDB(ctx).Err(); err != nil {
		return fmt.Errorf("failed to flush store: %w", err)
	}
	log.Debug().Msg("Flushed redis store")
	return nil
}

// Ping verifies both connections.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.writer.Ping(ctx).Err(); err != nil {
		return err
	}
	if s.reader != s.writer {
		return s.reader.Ping(ctx).Err()
	}
	return nil
}

// Close releases both clients.
func (s *RedisStore) Close() error {
	err := s.writer.Close()
	if s.reader != s.writer {
		if rerr := s.reader.Close(); err == nil {
			err = rerr
		}
	}
	return err
}
