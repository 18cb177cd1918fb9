package main

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	cacheadapter "github.com/threadcast/threadcast/internal/adapter/cache"
	"github.com/threadcast/threadcast/internal/ai"
	"github.com/threadcast/threadcast/internal/config"
	httptransport "github.com/threadcast/threadcast/internal/http"
	"github.com/threadcast/threadcast/internal/http/handler"
	"github.com/threadcast/threadcast/internal/http/middleware"
	"github.com/threadcast/threadcast/internal/platform/threads"
	"github.com/threadcast/threadcast/internal/repository"
	"github.com/threadcast/threadcast/internal/scheduler"
	"github.com/threadcast/threadcast/internal/server"
	"github.com/threadcast/threadcast/internal/service"
	"github.com/threadcast/threadcast/internal/session"
	"github.com/threadcast/threadcast/internal/telemetry"
)

func main() {
	app := fx.New(
		fx.Provide(
			newConfig,
			newLogger,
			newTelemetry,
			newSnowflake,
			newPGXPool,
			newRedisClient,
			newStateStore,
			newAccountRepository,
			newPostRepository,
			newThreadsClient,
			newSessionManager,
			newAIGenerator,
			newRateLimiter,
			newScheduler,
			service.NewTokenFreshener,
			service.NewConnectService,
			service.NewPublishService,
			service.NewSyncService,
			service.NewDraftService,
			handler.NewThreadsHandler,
			handler.NewPostsHandler,
			httptransport.NewRouter,
			server.NewHTTPServer,
		),
		fx.Invoke(useTelemetry, startHTTPServer, startScheduler),
	)

	app.Run()
}

func newConfig() (config.Config, error) {
	return config.Load()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Environment == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func newTelemetry(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*telemetry.Provider, error) {
	provider, err := telemetry.New(context.Background(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("telemetry init: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return provider.Shutdown(stopCtx)
		},
	})

	return provider, nil
}

func newSnowflake() (*snowflake.Node, error) {
	node, err := snowflake.NewNode(1)
	return node, err
}

func newPGXPool(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			pool.Close()
			return nil
		},
	})

	return pool, nil
}

func newRedisClient(lc fx.Lifecycle, cfg config.Config) (redis.UniversalClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func newStateStore(client redis.UniversalClient) repository.ConnectStateStore {
	return cacheadapter.NewRedisStateStore(client)
}

func newAccountRepository(pool *pgxpool.Pool) repository.AccountRepository {
	return repository.NewPostgresAccountRepo(pool)
}

func newPostRepository(pool *pgxpool.Pool) repository.PostRepository {
	return repository.NewPostgresPostRepo(pool)
}

func newThreadsClient(cfg config.Config) (service.PlatformClient, error) {
	return threads.New(threads.Config{
		AppID:       cfg.ThreadsAppID,
		AppSecret:   cfg.ThreadsAppSecret,
		RedirectURI: cfg.ThreadsRedirectURI,
		Timeout:     cfg.ThreadsTimeout,
	}, nil)
}

func newSessionManager(cfg config.Config) (*session.Manager, error) {
	return session.NewManager(cfg.SessionSecret, cfg.SessionTTL)
}

// newAIGenerator returns nil when no API key is configured; the draft
// service rejects generation requests in that case.
func newAIGenerator(cfg config.Config, logger *zap.Logger) ai.Generator {
	if cfg.AIAPIKey == "" {
		logger.Info("post generation disabled, no api key configured")
		return nil
	}
	gen, err := ai.NewHTTPGenerator(ai.Config{
		Endpoint: cfg.AIEndpoint,
		Model:    cfg.AIModel,
		APIKey:   cfg.AIAPIKey,
	}, nil)
	if err != nil {
		logger.Warn("post generation disabled", zap.Error(err))
		return nil
	}
	return gen
}

func newRateLimiter(cfg config.Config) *middleware.RateLimiter {
	return middleware.NewRateLimiter(cfg.RateLimitRPM)
}

func newScheduler(sync *service.SyncService, cfg config.Config, logger *zap.Logger) *scheduler.Scheduler {
	return scheduler.New(sync, cfg.SyncInterval, logger)
}

func startHTTPServer(lc fx.Lifecycle, srv *server.HTTPServer, cfg config.Config, logger *zap.Logger) {
	addr := ":" + cfg.HTTPPort
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runCtx, stop := context.WithCancel(context.Background())
			cancel = stop
			done = make(chan struct{})

			go func() {
				if err := srv.Run(runCtx, addr); err != nil {
					logger.Error("http server stopped", zap.Error(err))
				}
				close(done)
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			if done == nil {
				return nil
			}
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func startScheduler(lc fx.Lifecycle, sched *scheduler.Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			sched.Start()
			return nil
		},
		OnStop: func(context.Context) error {
			sched.Stop()
			return nil
		},
	})
}

func useTelemetry(*telemetry.Provider) {}
