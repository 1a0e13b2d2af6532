package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"task-tracker/backend/internal/cache"
	"task-tracker/backend/internal/config"
	"task-tracker/backend/internal/database"
	"task-tracker/backend/internal/handlers"
	"task-tracker/backend/internal/logging"
	"task-tracker/backend/internal/middleware"
	"task-tracker/backend/internal/monitoring"
	"task-tracker/backend/internal/repositories"
	"task-tracker/backend/internal/services"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

type app struct {
	cfg     *config.Config
	logger  *log.Logger
	pool    *database.DatabasePool
	cache   *cache.RedisCache
	limiter *middleware.IPRateLimiter
	server  *http.Server

	stopBackground context.CancelFunc
}

func newApp(ctx context.Context, cfg *config.Config, logger *log.Logger) (*app, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	poolConfig := database.DefaultPoolConfig()
	poolConfig.Driver = cfg.Database.Driver
	poolConfig.DSN = cfg.GetDatabaseDSN()
	poolConfig.MaxOpenConns = cfg.Database.MaxOpenConns
	poolConfig.MaxIdleConns = cfg.Database.MaxIdleConns
	poolConfig.ConnMaxLifetime = cfg.Database.ConnMaxLifetime
	poolConfig.ConnMaxIdleTime = cfg.Database.ConnMaxIdleTime
	poolConfig.Logger = logging.GormLogger(logger)

	pool, err := database.NewDatabasePool(poolConfig)
	if err != nil {
		return nil, err
	}
	if err := repositories.EnsureSchema(ctx, pool.DB); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, pool: pool}

	monitor := monitoring.NewMonitor()
	monitor.RegisterHealthCheck("database", true, pool.HealthContext)
	monitor.RegisterStats("database", pool.Stats)

	var taskService services.TaskService = repositories.NewTaskRepository(pool.DB)
	if cfg.Redis.Enabled {
		cacheConfig := cache.DefaultCacheConfig()
		cacheConfig.Addr = cfg.GetRedisAddr()
		cacheConfig.Password = cfg.Redis.Password
		cacheConfig.DB = cfg.Redis.DB
		cacheConfig.PoolSize = cfg.Redis.PoolSize
		cacheConfig.MinIdleConns = cfg.Redis.MinIdleConns
		cacheConfig.MaxRetries = cfg.Redis.MaxRetries
		cacheConfig.DialTimeout = cfg.Redis.DialTimeout
		cacheConfig.ReadTimeout = cfg.Redis.ReadTimeout
		cacheConfig.WriteTimeout = cfg.Redis.WriteTimeout

		a.cache = cache.NewRedisCache(cacheConfig)
		if err := a.cache.Health(ctx); err != nil {
			logger.WithError(err).Warn("redis unreachable at startup, serving from storage until it recovers")
		}
		monitor.RegisterHealthCheck("cache", false, a.cache.Health)
		monitor.RegisterStats("cache", a.cache.Stats)

		taskService = services.NewCachedTaskService(taskService, a.cache, cfg.Redis.CacheTTL, logger.WithField("component", "task_cache"))
	}

	bgCtx, cancel := context.WithCancel(context.Background())
	a.stopBackground = cancel
	if cfg.RateLimit.Enabled {
		a.limiter = middleware.NewIPRateLimiter(float64(cfg.RateLimit.RequestsPerMin)/60, cfg.RateLimit.BurstSize, cfg.RateLimit.CleanupInterval)
		go a.limiter.Run(bgCtx, cfg.RateLimit.CleanupInterval)
	}

	router := handlers.NewRouter(handlers.RouterConfig{
		TaskService: taskService,
		Logger:      logger,
		Monitor:     monitor,
		RateLimiter: a.limiter,
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	a.server = &http.Server{
		Addr:         cfg.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return a, nil
}

// serve blocks until the server stops. A clean Shutdown is not an error.
func (a *app) serve() error {
	a.logger.WithField("addr", a.server.Addr).Info("task tracker listening")
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// shutdown drains HTTP first, then releases the cache and the pool.
func (a *app) shutdown(ctx context.Context) error {
	var errs []error

	if err := a.server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http server: %w", err))
	}
	a.stopBackground()

	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	if err := a.pool.Close(); err != nil {
		errs = append(errs, fmt.Errorf("database: %w", err))
	}

	return errors.Join(errs...)
}
