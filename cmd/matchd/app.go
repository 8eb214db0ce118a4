package main

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jonathan/resume-matcher/internal/cache"
	"github.com/jonathan/resume-matcher/internal/config"
	"github.com/jonathan/resume-matcher/internal/db"
	"github.com/jonathan/resume-matcher/internal/dispatch"
	"github.com/jonathan/resume-matcher/internal/llm"
	"github.com/jonathan/resume-matcher/internal/notify"
	"github.com/jonathan/resume-matcher/internal/parsing"
	"github.com/jonathan/resume-matcher/internal/pipeline"
	"github.com/jonathan/resume-matcher/internal/queue"
	"github.com/jonathan/resume-matcher/internal/ranking"
	"github.com/jonathan/resume-matcher/internal/scheduler"
	"github.com/jonathan/resume-matcher/internal/schemas"
	"github.com/jonathan/resume-matcher/internal/server"
	"github.com/jonathan/resume-matcher/internal/skills"
	"github.com/jonathan/resume-matcher/internal/types"
)

// connectTimeout bounds each backend connection check at startup.
const connectTimeout = 5 * time.Second

// Store is the persistence used by the service. db.DB and db.MemoryStore implement it.
type Store interface {
	pipeline.Store
	server.DocumentStore
	Ping(ctx context.Context) error
}

// App holds the wired service components.
type App struct {
	Config     *config.Config
	Caps       types.Capabilities
	Store      Store
	Manager    *queue.Manager
	Dispatcher *dispatch.Dispatcher
	Matches    *pipeline.MatchService
	Skills     parsing.SkillExtractor
	Checks     map[string]server.HealthCheck

	sweeper scheduler.Sweeper
	logger  *zap.Logger
	closers []func() error
}

// newApp checks every optional backend once and wires the pipeline around
// whatever is reachable. Unreachable backends degrade to in-process
// replacements and are reported in Caps.
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{
		Config: cfg,
		Checks: make(map[string]server.HealthCheck),
		logger: logger,
	}

	a.connectStore(ctx)
	rdb := a.connectRedis(ctx)
	backend := a.queueBackend(rdb)
	matchCache := a.matchCache(rdb)
	notifier := a.notifier()
	a.Skills = a.skillExtractor(ctx)

	registry, err := schemas.NewRegistry()
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Manager, err = queue.NewManager(queue.Config{
		Queues: cfg.Queue.Queues,
		Graph:  pipeline.Graph(),
	}, backend, logger.Named("queue"))
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Matches = pipeline.NewMatchService(a.Store, matchCache, pipeline.MatchOptions{
		Ranking: ranking.Options{Weights: cfg.Matching.Weights},
		TopN:    cfg.Matching.TopN,
		TTL:     cfg.Cache.TTL,
		Logger:  logger.Named("matches"),
	})

	handlers := pipeline.NewHandlers(pipeline.Deps{
		Store:    a.Store,
		Resolver: &pipeline.Resolver{Store: a.Store, AllowFiles: cfg.Sources.AllowFiles},
		Matches:  a.Matches,
		Notifier: notifier,
		Skills:   a.Skills,
		Logger:   logger.Named("pipeline"),
	})
	if err := handlers.Register(a.Manager, registry); err != nil {
		a.Close()
		return nil, err
	}

	a.Dispatcher = dispatch.New(a.Caps, a.Manager, logger.Named("dispatch"))

	logger.Info("capabilities",
		zap.Bool("queue", a.Caps.QueueAvailable),
		zap.Bool("cache", a.Caps.CacheAvailable),
		zap.Bool("store", a.Caps.StoreAvailable),
		zap.String("mode", string(a.Dispatcher.Mode())),
	)
	return a, nil
}

func (a *App) connectStore(ctx context.Context) {
	if a.Config.DatabaseURL != "" {
		pctx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()

		database, err := db.Connect(pctx, a.Config.DatabaseURL)
		if err == nil {
			err = database.Migrate(pctx)
			if err != nil {
				database.Close()
			}
		}
		if err == nil {
			a.Store = database
			a.Caps.StoreAvailable = true
			a.Checks[server.HealthStore] = database.Ping
			a.closers = append(a.closers, func() error { database.Close(); return nil })
			return
		}
		a.logger.Warn("database unavailable, using in-memory store", zap.Error(err))
	}
	a.Store = db.NewMemoryStore()
}

func (a *App) connectRedis(ctx context.Context) *redis.Client {
	cfg := a.Config
	if cfg.Queue.Backend != config.BackendRedis && cfg.Cache.Backend != config.BackendRedis {
		return nil
	}
	if cfg.RedisURL == "" {
		a.logger.Warn("redis backend selected but redis_url is empty")
		return nil
	}

	pctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	rdb, err := db.NewRedisClient(pctx, cfg.RedisURL)
	if err != nil {
		a.logger.Warn("redis unavailable", zap.Error(err))
		return nil
	}
	a.closers = append(a.closers, rdb.Close)
	return rdb
}

func (a *App) queueBackend(rdb *redis.Client) queue.Backend {
	var backend queue.Backend
	switch a.Config.Queue.Backend {
	case config.BackendRedis:
		if rdb != nil {
			backend = queue.NewRedisBackend(rdb, a.Config.Queue.Prefix, nil)
		}
	case config.BackendMemory:
		backend = queue.NewMemoryBackend(nil)
	}
	if backend == nil {
		return nil
	}
	a.Caps.QueueAvailable = true
	a.Checks[server.HealthQueue] = backend.Ping
	return backend
}

func (a *App) matchCache(rdb *redis.Client) cache.Cache {
	switch a.Config.Cache.Backend {
	case config.BackendRedis:
		if rdb == nil {
			return nil
		}
		a.Caps.CacheAvailable = true
		a.Checks[server.HealthCache] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		return cache.NewRedisCache(rdb, a.Config.Cache.Prefix, a.logger.Named("cache"))
	case config.BackendMemory:
		mc := cache.NewMemoryCache(nil)
		a.Caps.CacheAvailable = true
		a.sweeper = mc
		return mc
	default:
		return nil
	}
}

func (a *App) notifier() notify.Notifier {
	if a.Config.Notify.AMQPURL == "" {
		return notify.NewLogNotifier(a.logger.Named("notify"))
	}
	n, err := notify.NewAMQPNotifier(a.Config.Notify.AMQPURL, a.Config.Notify.Exchange)
	if err != nil {
		a.logger.Warn("message broker unavailable, logging notifications", zap.Error(err))
		return notify.NewLogNotifier(a.logger.Named("notify"))
	}
	a.closers = append(a.closers, n.Close)
	return n
}

func (a *App) skillExtractor(ctx context.Context) parsing.SkillExtractor {
	dict := skills.DefaultDictionary()
	fallback := parsing.NewDictionaryExtractor(dict, a.Config.Skills.Confidence)
	if a.Config.LLM.APIKey == "" {
		return fallback
	}

	llmConfig := llm.DefaultConfig()
	if a.Config.LLM.Model != "" {
		llmConfig = llmConfig.WithModel(llm.TierLite, a.Config.LLM.Model)
	}
	client, err := llm.NewGeminiClient(ctx, llmConfig, a.Config.LLM.APIKey)
	if err != nil {
		a.logger.Warn("model client unavailable, using dictionary skills", zap.Error(err))
		return fallback
	}
	a.closers = append(a.closers, client.Close)
	return llm.NewSkillExtractor(client, fallback, dict, llmConfig, a.logger.Named("llm"))
}

// Scheduler builds the maintenance scheduler. Purge retention follows the
// longest configured queue retention.
func (a *App) Scheduler() *scheduler.Scheduler {
	var retention time.Duration
	for _, qc := range a.Config.Queue.Queues {
		retention = max(retention, qc.Retention)
	}
	return scheduler.New(scheduler.Config{
		PurgeSpec:     a.Config.Scheduler.PurgeSpec,
		SweepSpec:     a.Config.Scheduler.SweepSpec,
		AnalyticsSpec: a.Config.Scheduler.AnalyticsSpec,
		Retention:     retention,
	}, scheduler.Deps{
		Purger:   a.Dispatcher,
		Sweeper:  a.sweeper,
		Enqueuer: a.Dispatcher,
	}, a.logger.Named("scheduler"))
}

// Close releases backend connections in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
