package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gamassss/click-tracker/internal/background"
	"github.com/gamassss/click-tracker/internal/config"
	"github.com/gamassss/click-tracker/internal/handler"
	"github.com/gamassss/click-tracker/internal/logger"
	"github.com/gamassss/click-tracker/internal/middleware"
	natsRepo "github.com/gamassss/click-tracker/internal/repository/nats"
	"github.com/gamassss/click-tracker/internal/repository/postgres"
	"github.com/gamassss/click-tracker/internal/repository/postgres/migrations"
	redisRepo "github.com/gamassss/click-tracker/internal/repository/redis"
	"github.com/gamassss/click-tracker/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const version = "1.0.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		stop()
		log.Fatal(err)
	}
}

// run serves until ctx is cancelled or the listener fails. Deferred closes
// release the pools and the nats connection on every return path.
func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	loggerConfig := logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		OutputPath: cfg.Log.OutputPath,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	}

	if err := logger.Initialize(loggerConfig); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	log := logger.Get()
	log.Info("Starting click tracker service",
		"port", cfg.Server.Port,
		"env", cfg.AppEnv,
		"analytics_sink", cfg.Analytics.Sink,
		"log_level", cfg.Log.Level,
	)

	if cfg.Database.AutoMigrate {
		if err := runMigrations(cfg.Database.URL, log); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	dbPool, err := setupDatabase(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup database: %w", err)
	}
	defer dbPool.Close()

	redisClient, err := setupRedis(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup redis: %w", err)
	}
	defer redisClient.Close()

	checks := map[string]handler.HealthCheck{
		"database": handler.PostgresCheck(dbPool),
		"redis":    handler.RedisCheck(redisClient),
	}

	var sink service.ClickSink = postgres.NewAnalyticsRepository(dbPool)
	if cfg.Analytics.Sink == "nats" {
		stream, err := natsRepo.Connect(cfg.NATS)
		if err != nil {
			return fmt.Errorf("failed to setup nats: %w", err)
		}
		defer func() {
			if err := stream.Close(); err != nil {
				log.Error("Failed to close nats connection", "error", err)
			}
		}()

		sink = stream
		checks["nats"] = stream.Ping
	}

	runner := background.NewRunner(cfg.Track.BackgroundTimeout)

	linkRepo := postgres.NewLinkRepository(dbPool)
	workspaceRepo := postgres.NewWorkspaceRepository(dbPool)
	linkCache := redisRepo.NewLinkCache(redisClient)
	hostnameCache := redisRepo.NewHostnameCache(redisClient)

	resolver := service.NewLinkResolver(linkRepo, linkCache, runner, cfg.Track.LinkCacheTTL, cfg.Track.LinkLookupTimeout)
	dedup := service.NewClickDeduplicator(linkCache)
	gate := service.NewHostnameGate(workspaceRepo, hostnameCache, runner, service.GateConfig{
		TTL:         cfg.Track.HostnamesTTL,
		Timeout:     cfg.Track.HostnamesTimeout,
		SettingsURL: cfg.Track.AllowlistSettingsURL,
	})
	recorder := service.NewClickRecorder(sink, linkCache, runner, service.RecorderConfig{
		DedupWindow:  cfg.Track.DedupWindow,
		MaxAttempts:  cfg.Analytics.MaxAttempts,
		RetryBackoff: cfg.Analytics.RetryBackoff,
		CacheTimeout: cfg.Track.CacheWriteTimeout,
	})
	trackService := service.NewTrackService(resolver, dedup, gate, recorder)

	trackHandler := handler.NewTrackHandler(trackService, cfg.IsProduction(), cfg.Track.DevClientIP)
	cacheHandler := handler.NewCacheHandler(linkCache, cfg.Server.CacheAdminToken)
	healthHandler := handler.NewHealthHandler(version, checks)

	router := setupRouter(trackHandler, cacheHandler, healthHandler)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	return gracefulShutdown(ctx, serverErr, srv, runner, cfg.Server.ShutdownTimeout, log)
}

func runMigrations(databaseURL string, log *slog.Logger) error {
	m, err := migrations.New(databaseURL, log)
	if err != nil {
		return err
	}
	defer m.Close()

	return m.Up()
}

func setupDatabase(cfg *config.Config) (*pgxpool.Pool, error) {
	dbConfig := cfg.Database
	poolConfig, err := pgxpool.ParseConfig(dbConfig.URL)
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConns = int32(dbConfig.MaxConns)
	poolConfig.MinConns = int32(dbConfig.MinConns)
	poolConfig.MaxConnLifetime = dbConfig.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = dbConfig.MaxConnIdleTime

	dbPool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, err
	}

	return dbPool, nil
}

func setupRedis(cfg *config.Config) (*redis.Client, error) {
	redisClient := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		MaxRetries:   cfg.Redis.MaxRetries,
	})

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return redisClient, nil
}

func setupRouter(
	trackHandler *handler.TrackHandler,
	cacheHandler *handler.CacheHandler,
	healthHandler *handler.HealthHandler,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())

	// health check
	router.GET("/healthz", healthHandler.Healthz)
	router.GET("/readyz", healthHandler.Readyz)

	track := router.Group("/track", middleware.CORS())
	{
		track.POST("/click", trackHandler.TrackClick)
		track.OPTIONS("/click", func(c *gin.Context) {})
	}

	api := router.Group("/api")
	{
		api.DELETE("/cache/links/:domain/:key", cacheHandler.DeleteLink)
	}

	return router
}

// gracefulShutdown waits for a signal or a listener failure, stops the HTTP
// server so no new clicks are scheduled, then drains background click writes.
// Deferred closes in run release the pools afterwards.
func gracefulShutdown(ctx context.Context, serverErr <-chan error, srv *http.Server, runner *background.Runner, timeout time.Duration, log *slog.Logger) error {
	var failed error
	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case err := <-serverErr:
		log.Error("Server failed", "error", err)
		failed = fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Forced shutdown", "error", err)
	}

	if err := runner.Shutdown(shutdownCtx); err != nil {
		log.Error("Background jobs abandoned", "error", err)
	} else {
		log.Info("Background jobs drained")
	}

	log.Info("Graceful shutdown completed")
	return failed
}
