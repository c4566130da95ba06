package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/avelin0/snaplink/config"
	appcache "github.com/avelin0/snaplink/internal/app/cache"
	appmodel "github.com/avelin0/snaplink/internal/app/model"
	apprepository "github.com/avelin0/snaplink/internal/app/repository"
	appserver "github.com/avelin0/snaplink/internal/app/server"
	appservice "github.com/avelin0/snaplink/internal/app/service"
	"github.com/avelin0/snaplink/internal/infra/logger"
	infraNATS "github.com/avelin0/snaplink/internal/infra/nats"
	infraPostgres "github.com/avelin0/snaplink/internal/infra/postgres"
	infraPrometheus "github.com/avelin0/snaplink/internal/infra/prometheus"
	infraRedis "github.com/avelin0/snaplink/internal/infra/redis"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	isDev := os.Getenv("APP_ENV") != "production"
	log := logger.MustInit(logger.Config{
		Development: isDev,
		Level:       os.Getenv("LOG_LEVEL"),
	})
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	log.Info("Configuration loaded successfully",
		zap.String("postgres_user", cfg.Postgres.User),
		zap.String("postgres_host", cfg.Postgres.Host),
		zap.Int("postgres_port", cfg.Postgres.Port),
		zap.String("postgres_db", cfg.Postgres.Database),
		zap.String("redis_host", cfg.Redis.Host),
		zap.Int("redis_port", cfg.Redis.Port),
		zap.String("nats_host", cfg.NATS.Host),
		zap.Int("nats_port", cfg.NATS.Port),
		zap.Int("code_length", cfg.Shortener.CodeLength),
	)

	gormDB, err := infraPostgres.NewGorm(cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to open GORM connection", zap.Error(err))
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatal("Failed to access underlying SQL DB", zap.Error(err))
	}
	defer sqlDB.Close()

	if err := infraPostgres.AutoMigrate(ctx, gormDB, &appmodel.Link{}, &appmodel.ClickEvent{}); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}

	pool, err := infraPostgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to connect to Postgres", zap.Error(err))
	}
	defer pool.Close()

	log.Info("Connected to Postgres successfully")

	redisClient, err := infraRedis.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	log.Info("Connected to Redis successfully")

	natsConn, js, err := infraNATS.Connect(cfg.NATS)
	if err != nil {
		log.Fatal("Failed to connect to NATS", zap.Error(err))
	}
	defer natsConn.Drain()
	log.Info("Connected to NATS successfully", zap.Bool("jetstream_ready", js != nil))

	if !isDev {
		promServer := infraPrometheus.NewServer(cfg.Prometheus)
		go func() {
			log.Info("Starting Prometheus metrics server",
				zap.Int("port", cfg.Prometheus.Port))
			if err := promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Prometheus metrics server stopped unexpectedly", zap.Error(err))
			}
		}()
		defer func() {
			if err := promServer.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("Failed to close Prometheus server", zap.Error(err))
			}
		}()
	} else {
		log.Info("Skipping Prometheus metrics server in development mode")
	}

	linkRepo := apprepository.NewLinkRepository(gormDB)
	clickRepo := apprepository.NewClickEventRepository(gormDB)
	analyticsRepo := apprepository.NewAnalyticsRepository(pool)

	linkCache := appcache.NewLinkCache(redisClient, appcache.Config{
		LinkTTL:    parseTTL(cfg.Shortener.LinkCacheTTL),
		CounterTTL: parseTTL(cfg.Shortener.CounterCacheTTL),
	})

	filter := appservice.NewCodeFilter(cfg.Shortener.ExpectedLinks, 0.01)
	codes, err := linkRepo.AllCodes(ctx)
	if err != nil {
		log.Fatal("Failed to seed code filter", zap.Error(err))
	}
	filter.Seed(codes)
	log.Info("Seeded code filter", zap.Int("codes", len(codes)))

	allocator := appservice.NewAllocator(appservice.AllocatorConfig{
		Logger:     log,
		Links:      linkRepo,
		Cache:      linkCache,
		Generator:  appservice.NewCodeGenerator(cfg.Shortener.CodeLength),
		Filter:     filter,
		MaxRetries: cfg.Shortener.MaxRetries,
	})
	resolver := appservice.NewResolver(log, linkRepo, linkCache, filter)
	accountant := appservice.NewClickAccountant(log, clickRepo, linkCache)
	aggregator := appservice.NewAnalyticsAggregator(analyticsRepo, cfg.Shortener.AnalyticsMaxDays)
	linkService := appservice.NewLinkService(log, linkRepo, linkCache)

	publisher := appservice.NewClickPublisher(js)
	consumer := appservice.NewClickConsumer(js, log, accountant)
	if err := consumer.Start(); err != nil {
		log.Fatal("Failed to start click consumer", zap.Error(err))
	}
	defer consumer.Stop()

	server := appserver.New(appserver.Dependencies{
		Logger:         log,
		Redis:          redisClient,
		Allocator:      allocator,
		Resolver:       resolver,
		Links:          linkService,
		Clicks:         accountant,
		Analytics:      aggregator,
		ClickPublisher: publisher,
	})

	if err := server.Listen(":8080"); err != nil {
		log.Fatal("Fiber server exited", zap.Error(err))
	}
}

func parseTTL(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0
	}
	return d
}
