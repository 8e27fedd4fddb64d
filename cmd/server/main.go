package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	credmetrics "gatepass/internal/credential/metrics"
	credservice "gatepass/internal/credential/service"
	eventStore "gatepass/internal/credential/store/event"
	tokenStore "gatepass/internal/credential/store/token"
	"gatepass/internal/credential/tracer"
	rosterStore "gatepass/internal/directory/store/roster"
	subjectStore "gatepass/internal/directory/store/subject"
	"gatepass/internal/feed"
	"gatepass/internal/operatortoken"
	"gatepass/internal/platform/config"
	"gatepass/internal/platform/database"
	"gatepass/internal/platform/health"
	"gatepass/internal/platform/httpserver"
	"gatepass/internal/platform/kafka"
	"gatepass/internal/platform/kafka/producer"
	"gatepass/internal/platform/logger"
	"gatepass/internal/platform/metrics"
	"gatepass/internal/platform/redis"
	"gatepass/internal/ratelimit"
	"gatepass/internal/resolver"
	"gatepass/internal/scanner"
	scannerStore "gatepass/internal/scanner/store"
	"gatepass/internal/schema"
	"gatepass/internal/seeder"
	"gatepass/internal/signer"
	httptransport "gatepass/internal/transport/http"
	"gatepass/migrations"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	// .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	log := logger.New()
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	log.Info("initializing gatepass",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"storage", cfg.StorageBackend,
	)

	sgn, err := signer.New(cfg.SigningSecret, signer.WithMaxAge(cfg.TokenMaxAge))
	if err != nil {
		log.Error("signer init failed", "error", err)
		os.Exit(1)
	}

	healthHandler := health.New(cfg.Environment)

	// Storage backend.
	var (
		rosters  rosterStore.Store
		subjects subjectStore.Store
		tokens   tokenStore.Store
		events   eventStore.Store
		scanners scannerStore.Store
		db       *sql.DB
	)
	switch cfg.StorageBackend {
	case config.BackendPostgres:
		dbCfg := database.DefaultConfig()
		dbCfg.URL = cfg.DatabaseURL
		pool, err := database.New(dbCfg)
		if err != nil {
			log.Error("database init failed", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		db = pool.DB()
		if cfg.AutoMigrate {
			if err := migrations.Apply(context.Background(), db); err != nil {
				log.Error("migrations failed", "error", err)
				os.Exit(1)
			}
		}
		rosters = rosterStore.NewPostgres(db)
		subjects = subjectStore.NewPostgres(db)
		tokens = tokenStore.NewPostgres(db)
		events = eventStore.NewPostgres(db)
		scanners = scannerStore.NewPostgres(db)
		healthHandler.RegisterCheck("database", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return pool.Health(ctx)
		})
	default:
		rosters = rosterStore.NewInMemory()
		subjects = subjectStore.NewInMemory()
		tokens = tokenStore.NewInMemory()
		events = eventStore.NewInMemory()
		scanners = scannerStore.NewInMemory()
	}

	// Optional Redis for the shared scan rate counter.
	redisClient, err := redis.New(redis.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		log.Error("redis init failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		go func() {
			ticker := time.NewTicker(15 * time.Second)
			defer ticker.Stop()
			for range ticker.C {
				redisClient.RecordPoolStats()
			}
		}()
		healthHandler.RegisterCheck("redis", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return redisClient.Health(ctx)
		})
	}

	// Optional Kafka ops feed.
	var accessFeed *feed.Feed
	processMetrics := metrics.New()
	credMetrics := credmetrics.New()
	if cfg.KafkaBrokers != "" {
		prod, err := producer.New(producer.Config{Brokers: cfg.KafkaBrokers}, log)
		if err != nil {
			log.Error("kafka producer init failed", "error", err)
			os.Exit(1)
		}
		defer prod.Close()
		accessFeed = feed.New(prod, cfg.KafkaFeedTopic,
			feed.WithLogger(log),
			feed.WithDropCallback(credMetrics.IncrementFeedPublishesDropped),
		)
		defer accessFeed.Close()
		healthHandler.RegisterCheck("kafka", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return kafka.NewHealthChecker(cfg.KafkaBrokers).Check(ctx)
		})
	}

	// Domain services.
	registry, err := schema.NewRegistry(rosters, subjects,
		schema.WithLogger(log),
		schema.WithInferenceObserver(credMetrics.IncrementSchemaInferences),
	)
	if err != nil {
		log.Error("schema registry init failed", "error", err)
		os.Exit(1)
	}
	subjectResolver, err := resolver.New(subjects, rosters, registry)
	if err != nil {
		log.Error("resolver init failed", "error", err)
		os.Exit(1)
	}

	credOpts := []credservice.Option{
		credservice.WithLogger(log),
		credservice.WithMetrics(credMetrics),
		credservice.WithTracer(tracer.NewOTel()),
		credservice.WithStorageTimeout(cfg.StorageTimeout),
	}
	if accessFeed != nil {
		credOpts = append(credOpts, credservice.WithFeed(accessFeed))
	}
	credentials, err := credservice.NewService(sgn, tokens, events, subjectResolver, credOpts...)
	if err != nil {
		log.Error("credential service init failed", "error", err)
		os.Exit(1)
	}

	scannerService, err := scanner.NewService(scanners, scanner.WithLogger(log))
	if err != nil {
		log.Error("scanner service init failed", "error", err)
		os.Exit(1)
	}

	operators, err := operatortoken.NewService(cfg.OperatorSigningKey, cfg.OperatorTokenTTL)
	if err != nil {
		log.Error("operator token service init failed", "error", err)
		os.Exit(1)
	}

	routerCfg := httptransport.RouterConfig{
		Logger:       log,
		ScannerAuth:  scannerService.RequireScanner,
		OperatorAuth: operators.RequireOperator,
		Health:       healthHandler,
		ObserveLatency: func(endpoint string, seconds float64) {
			processMetrics.EndpointLatency.WithLabelValues(endpoint).Observe(seconds)
		},
	}

	if cfg.ScanRateLimit > 0 {
		var counter ratelimit.Store = ratelimit.NewMemoryStore()
		if redisClient != nil {
			counter = ratelimit.NewRedisStore(redisClient.Client)
		}
		limiter, err := ratelimit.New(counter,
			ratelimit.WithLogger(log),
			ratelimit.WithLimit(cfg.ScanRateLimit),
			ratelimit.WithWindow(cfg.ScanRateWindow),
			ratelimit.WithLimitedCallback(func(scannerID string) {
				processMetrics.RateLimited.WithLabelValues(scannerID).Inc()
			}),
		)
		if err != nil {
			log.Error("rate limiter init failed", "error", err)
			os.Exit(1)
		}
		routerCfg.RateLimit = limiter.Middleware
	}

	if cfg.SeedDemoData {
		if err := seeder.New(rosters, subjects, credentials, log).SeedAll(context.Background()); err != nil {
			log.Error("demo seeding failed", "error", err)
			os.Exit(1)
		}
	}

	handler := httptransport.NewHandler(credentials, registry, scannerService, events, rosters, subjects, log)
	router := httptransport.NewRouter(handler, routerCfg)

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting http server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
