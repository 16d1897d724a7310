package main

import (
	"context"
	"database/sql"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/relatoapp/relato/pkg/api"
	"github.com/relatoapp/relato/pkg/audit"
	"github.com/relatoapp/relato/pkg/auth"
	"github.com/relatoapp/relato/pkg/config"
	"github.com/relatoapp/relato/pkg/equipment"
	"github.com/relatoapp/relato/pkg/middleware"
	"github.com/relatoapp/relato/pkg/notify"
	"github.com/relatoapp/relato/pkg/observability"
	"github.com/relatoapp/relato/pkg/orgs"
	"github.com/relatoapp/relato/pkg/permissions"
	"github.com/relatoapp/relato/pkg/realtime"
	"github.com/relatoapp/relato/pkg/reports"
	"github.com/relatoapp/relato/pkg/storage"
	"github.com/relatoapp/relato/pkg/storage/postgres"
	"github.com/relatoapp/relato/pkg/tenant"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	ctx := context.Background()

	otelProviders, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		logger.WithError(err).Error("OpenTelemetry initialization failed, continuing without it")
	}

	cm, err := postgres.NewConnectionManager(cfg.Database, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to PostgreSQL")
		os.Exit(1)
	}
	db := cm.Primary()

	if err := postgres.Migrate(ctx, db); err != nil {
		logger.WithError(err).Error("Database migration failed")
		os.Exit(1)
	}

	var metrics *observability.Metrics
	promRegistry := prometheus.NewRegistry()
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(promRegistry)
	}

	// Rate limiting: Redis when configured so limits hold across replicas,
	// otherwise a per-process token bucket.
	var limiter middleware.Limiter
	var redisClient = storageRedis(cfg, logger)
	if cfg.RateLimit.Enabled {
		if redisClient != nil {
			limiter = middleware.NewRedisLimiter(redisClient, cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)
		} else {
			bucket := middleware.NewTokenBucketLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)
			go func() {
				for range time.Tick(10 * time.Minute) {
					bucket.Sweep(30 * time.Minute)
				}
			}()
			limiter = bucket
		}
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	users := auth.NewPostgresUserStore(db)
	orgService := orgs.NewPostgresService(db)
	orgCache := tenant.NewOrgCache(orgService)

	permStore := permissions.NewPostgresStore(db)
	permCache := permissions.NewCache(permStore, cfg.Permissions.CacheTTL, logger, metrics)
	permService := permissions.NewService(permStore, permCache)

	registry := notify.NewRegistry()
	notifyService := notify.NewService(notify.NewPostgresStore(db), registry,
		notify.NewPostgresDirectory(db), logger, metrics)
	hub := realtime.NewHub(registry, logger, metrics)
	notifyService.SetTransport(hub)

	server := api.NewServer(api.Deps{
		Config:    cfg,
		Logger:    logger,
		Metrics:   metrics,
		Tokens:    tokens,
		Users:     users,
		Orgs:      orgService,
		OrgCache:  orgCache,
		PermCache: permCache,
		Perms:     permService,
		Notify:    notifyService,
		Auditor:   audit.NewDBLogger(db, logger),
		Catalog:   equipment.NewStore(db),
		Reports:   reports.NewStore(db),
		Hub:       hub,
		Limiter:   limiter,
	})

	// Old notifications are purged on a schedule instead of at read time.
	scheduler := cron.New()
	retention := time.Duration(cfg.Notify.RetentionDays) * 24 * time.Hour
	if _, err := scheduler.AddFunc(cfg.Notify.PurgeSchedule, func() {
		if _, err := notifyService.PurgeOlderThan(context.Background(), retention); err != nil {
			logger.WithError(err).Error("Notification purge failed")
		}
	}); err != nil {
		logger.WithError(err).Error("Failed to schedule notification purge")
		os.Exit(1)
	}
	scheduler.Start()

	var handler http.Handler = server.Router()
	if otelProviders != nil {
		handler = otelhttp.NewHandler(handler, "relato-api")
	}

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthServer := startHealthServer(cfg, db, redisClient, promRegistry, logger)

	shutdown := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		scheduler.Stop()
		hub.Close()
		return healthServer.Shutdown(ctx)
	})
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				return err
			}
		}
		return cm.Close()
	})
	if otelProviders != nil {
		shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
			return observability.ShutdownOTel(ctx, otelProviders, logger)
		})
	}

	go func() {
		logger.WithField("addr", httpServer.Addr).Info("Relato API listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("HTTP server failed")
			os.Exit(1)
		}
	}()

	if err := shutdown.WaitForShutdown(); err != nil {
		logger.WithError(err).Error("Shutdown finished with errors")
		os.Exit(1)
	}
}

// storageRedis connects to Redis when enabled; a failure downgrades to nil
// rather than blocking startup, since Redis only backs rate limiting here.
func storageRedis(cfg *config.Config, logger *observability.Logger) *redis.Client {
	if !cfg.Redis.Enabled {
		return nil
	}
	client, err := storage.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.WithError(err).Warn("Redis unavailable, falling back to in-process rate limiting")
		return nil
	}
	return client
}

func startHealthServer(cfg *config.Config, db *sql.DB, redisClient *redis.Client,
	promRegistry *prometheus.Registry, logger *observability.Logger) *http.Server {

	mux := http.NewServeMux()
	checker := observability.NewHealthChecker(db, redisClient)
	observability.RegisterHealthRoutes(mux, checker)
	if cfg.Observability.MetricsEnabled {
		mux.Handle("/metrics", observability.Handler(promRegistry))
	}

	healthServer := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler: mux,
	}
	go func() {
		logger.WithField("addr", healthServer.Addr).Info("Health server listening")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Health server failed")
		}
	}()
	return healthServer
}
