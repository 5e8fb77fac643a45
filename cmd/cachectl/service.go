package main

import (
	"context"

	"github.com/objones25/mnemosyne/internal/cache"
	"github.com/objones25/mnemosyne/internal/cachekey"
	"github.com/objones25/mnemosyne/internal/config"
	"github.com/objones25/mnemosyne/internal/embeddings"
	"github.com/objones25/mnemosyne/internal/stats"
	"github.com/objones25/mnemosyne/internal/store"
)

// service is the composition root: one store supervisor shared by the
// strategy engine, the embedding provider and the statistics aggregator.
type service struct {
	cfg        *config.Config
	supervisor *store.Supervisor
	engine     *cache.Engine
	stats      *stats.Aggregator
}

func newService(ctx context.Context) (*service, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	sup, err := store.NewSupervisor(ctx, store.SupervisorConfig{
		Redis: store.RedisConfig{
			Addr:     cfg.Redis.Addr,
			ReadAddr: cfg.Redis.ReadAddr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TLS:      cfg.Redis.TLS,
		},
		Memory: store.MemoryConfig{Capacity: cfg.Memory.Capacity},
	})
	if err != nil {
		return nil, err
	}

	keys := cachekey.NewBuilder(cfg.KeyPrefix)

	var model embeddings.Generator
	if cfg.Embeddings.URL != "" {
		client, err := embeddings.NewModelClient(embeddings.ModelConfig{
			URL:       cfg.Embeddings.URL,
			APIKey:    cfg.Embeddings.APIKey,
			Model:     cfg.Embeddings.Model,
			Dimension: cfg.Embeddings.Dimension,
			Timeout:   cfg.Embeddings.Timeout,
		})
		if err != nil {
			_ = sup.Close()
			return nil, err
		}
		model = client
	}
	provider := embeddings.NewProvider(sup, keys, model, embeddings.ProviderConfig{
		CacheTTL: cfg.Embeddings.TTL,
	})

	agg := stats.NewAggregator(sup, keys)
	engine := cache.NewEngine(sup, keys, provider, agg, cache.Config{
		DefaultTTL:          cfg.Cache.DefaultTTL,
		DedupTTL:            cfg.Cache.DedupTTL,
		SemanticTTL:         cfg.Cache.SemanticTTL,
		SemanticEnabled:     cfg.Cache.SemanticEnabled,
		SimilarityThreshold: cfg.Cache.SimilarityThreshold,
	})

	return &service{
		cfg:        cfg,
		supervisor: sup,
		engine:     engine,
		stats:      agg,
	}, nil
}

func (s *service) Close() error {
	return s.supervisor.Close()
}
