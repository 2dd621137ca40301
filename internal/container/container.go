package container

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"refhub/finder/internal/cache"
	"refhub/finder/internal/client"
	"refhub/finder/internal/config"
	"refhub/finder/internal/domain/task"
	"refhub/finder/internal/proxy"
	"refhub/finder/internal/queue"
	"refhub/finder/internal/repository"
	"refhub/finder/internal/server"
	"refhub/finder/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Container holds all initialized components
type Container struct {
	Config     *config.Config
	Client     client.RefHubClient
	Cache      cache.SearchCache
	Repository repository.SearchRepository
	Queue      queue.Queue

	Service *service.Service
	Server  *server.Server

	db    *pgxpool.Pool
	redis *redis.Client
}

// New creates a new container with all dependencies initialized.
// Redis and Postgres are only connected when enabled in the config.
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	if err := SetupLogging(cfg.Log); err != nil {
		return nil, err
	}

	container := &Container{
		Config: cfg,
	}

	var proxySupplier proxy.Supplier
	if len(cfg.RefHub.Proxies) > 0 {
		proxySupplier = proxy.NewSupplier(ctx, cfg.RefHub.Proxies, cfg.RefHub.BaseURL)
	}

	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.Database,
		})

		if _, err := rdb.Ping(ctx).Result(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		log.Info("✅ Connected to Redis successfully")

		container.redis = rdb
		container.Cache = cache.NewRedisSearchCache(rdb, cfg.Redis.KeyPrefix, cfg.Redis.TTL())

		q, err := queue.NewRedisQueue(ctx, rdb, cfg.Redis.ConsumerGroup, task.PrefetchTaskType)
		if err != nil {
			container.Close()
			return nil, fmt.Errorf("failed to initialize prefetch queue: %w", err)
		}
		container.Queue = q
	}

	if cfg.Database.Enabled {
		db, err := pgxpool.New(ctx, cfg.Database.DSN())
		if err != nil {
			container.Close()
			return nil, fmt.Errorf("failed to create database pool: %w", err)
		}
		container.db = db

		if err := repository.Migrate(ctx, db); err != nil {
			container.Close()
			return nil, err
		}
		log.Info("✅ Connected to Postgres successfully")

		container.Repository = repository.NewSearchRepository(db)
	}

	container.Client = client.NewRefHubClient(cfg.RefHub, proxySupplier)

	container.Service = service.NewService(container.Client, container.Cache, container.Repository)
	if container.Queue != nil {
		container.Service.WithPrefetch(container.Queue, cfg.Redis.ConsumerGroup, cfg.Redis.MinIdle())
	}
	container.Server = server.New(cfg.Server, cfg.RefHub.CrawlMaxPages, container.Service)

	return container, nil
}

// Run serves the HTTP API, and the prefetch workers when a queue is
// configured, until ctx is cancelled or one of them fails.
func (c *Container) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return c.Server.Run(ctx)
	})

	if c.Queue != nil && c.Config.RefHub.PrefetchWorkers > 0 {
		g.Go(func() error {
			return c.Service.RunPrefetchWorkers(ctx, c.Config.RefHub.PrefetchWorkers)
		})
	}

	return g.Wait()
}

// Close performs cleanup when shutting down
func (c *Container) Close() error {
	log.Info("Shutting down container...")

	if c.db != nil {
		c.db.Close()
	}
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			log.Warnf("Failed to close Redis client: %v", err)
		}
	}

	log.Info("Container shut down successfully")
	return nil
}
