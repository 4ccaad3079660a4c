package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"purchase_worker/adapter/out/persistence"
	"purchase_worker/config"
	"purchase_worker/core/agent/llm"
	"purchase_worker/core/service/extraction"
	"purchase_worker/infra/database"
	"purchase_worker/internal/stream"
	"purchase_worker/pkg/cache"
	"purchase_worker/pkg/logger"
	"purchase_worker/pkg/metrics"
	"purchase_worker/pkg/resilience"
)

type Dependencies struct {
	Config *config.Config
	DB     *pgxpool.Pool
	Redis  *redis.Client

	Metrics    *metrics.Metrics
	Cache      *cache.RedisCache
	Repository *persistence.ExtractionAdapter
	Stream     *stream.RedisStream
	Producer   *stream.Producer

	Extractor *llm.Extractor
	LLMGuard  *resilience.Guard
	Service   *extraction.Service
}

// NewDependencies connects storage and builds the extraction service.
// Postgres and Redis are optional: without them results are neither stored,
// cached nor published, and the deterministic path still works.
func NewDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	deps := &Dependencies{Config: cfg, Metrics: metrics.New()}
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	// Database (pgxpool)
	if cfg.DatabaseURL != "" {
		db, err := database.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres: %w", err)
		}
		deps.DB = db
		cleanups = append(cleanups, db.Close)

		deps.Repository = persistence.NewExtractionAdapter(db)
		if err := deps.Repository.EnsureSchema(ctx); err != nil {
			cleanup()
			return nil, nil, err
		}
		deps.Metrics.RegisterDBPool(db)
		logger.Info("Postgres connected, extraction_results ready")
	} else {
		logger.Warn("DATABASE_URL not set, extraction results will not be stored")
	}

	// Redis
	if cfg.RedisURL != "" {
		redisClient, err := database.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("Redis connection failed: %v", err)
		} else {
			deps.Redis = redisClient
			cleanups = append(cleanups, func() { redisClient.Close() })

			deps.Cache = cache.NewRedisCache(redisClient)
			deps.Stream = stream.NewRedisStream(redisClient, cfg.StreamGroup, cfg.StreamBatch, time.Duration(cfg.StreamBlockMS)*time.Millisecond)
			deps.Producer = stream.NewProducer(deps.Stream, cfg.StreamParsed)
			logger.Info("Redis connected (cache, dedup, streams)")
		}
	}

	// LLM Client with config
	client, err := llm.NewClientFromConfig(cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if client != nil && cfg.LLMEnabled {
		deps.Extractor = llm.NewExtractor(client, llm.WithMaxTokens(cfg.LLMMaxTokens))
		logger.Info("LLM extractor enabled (provider=%s)", client.Provider())
	} else {
		logger.Info("LLM extractor disabled, deterministic parsing only")
	}

	deps.LLMGuard = resilience.NewGuard(resilience.GuardConfig{
		Name:          "llm-" + cfg.LLMProvider,
		RatePerMinute: cfg.LLMRatePerMin,
		Burst:         cfg.LLMBurst,
		Timeout:       cfg.LLMTimeout(),
		MaxFailures:   uint32(cfg.BreakerMaxFailures),
		OpenTimeout:   cfg.BreakerOpenTimeout(),
		HalfOpenCalls: 1,
	})

	deps.Service = extraction.NewService(deps.serviceDeps(), extraction.ServiceConfig{
		FallbackThreshold: cfg.LLMFallbackThreshold,
		LLMEnabled:        cfg.LLMEnabled,
		CacheTTL:          cfg.CacheTTL(),
	})

	return deps, cleanup, nil
}

// serviceDeps only sets the optional ports that are backed by a real
// connection, so the service sees nil interfaces instead of nil pointers.
func (d *Dependencies) serviceDeps() extraction.ServiceDeps {
	sd := extraction.ServiceDeps{
		Extractor: d.Extractor,
		Guard:     d.LLMGuard,
		Metrics:   d.Metrics,
	}
	if d.Repository != nil {
		sd.Repository = d.Repository
	}
	if d.Cache != nil {
		sd.Cache = d.Cache
	}
	if d.Producer != nil {
		sd.Publisher = d.Producer
	}
	return sd
}
