package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"marketplace/internal/api"
	"marketplace/internal/auth"
	"marketplace/internal/cache"
	"marketplace/internal/config"
	"marketplace/internal/httpmiddleware"
	"marketplace/internal/logger"
	"marketplace/internal/metrics"
	"marketplace/internal/queue"
	"marketplace/internal/store"
	"marketplace/internal/trust"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, log); err != nil {
		log.Fatal("http server failed", "error", err)
	}
}

func runHTTP(cfg config.App, log *logger.Logger) error {
	ctx := context.Background()
	health := map[string]api.HealthCheck{}

	var st trust.Store
	switch cfg.StoreBackend {
	case "memory":
		log.Warn("using in-memory store; data is lost on restart")
		st = trust.NewMemoryStore()
	default:
		db, err := store.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		st = trust.NewRepository(db.Client)
		health["db"] = db.Healthy
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()

	// The cache is optional; scoring works without it.
	var metricsCache trust.MetricsCache
	if redisClient.Healthy(ctx) {
		metricsCache = cache.NewMetricsCache(redisClient.Client, cfg.MetricsCacheTTL)
		health["redis"] = redisClient.Healthy
	} else {
		log.Warn("redis not reachable, metrics cache disabled", "addr", cfg.RedisAddr)
	}

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, cfg.QueueKey)
	}

	collector := metrics.NewCollector(prometheus.DefaultRegisterer)
	svc := trust.NewService(st, trust.Options{
		Cache:         metricsCache,
		Logger:        log.With("component", "trust"),
		Metrics:       collector,
		FeedbackDwell: cfg.FeedbackDwell,
	})

	r := api.NewRouter(api.Deps{
		Trust:               svc,
		Issuer:              auth.NewIssuer(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.AccessTTL, cfg.RefreshTTL, cfg.AdminIDs),
		Queue:               q,
		Limiter:             httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin, collector.RateLimitRejected),
		Log:                 log.With("component", "api"),
		InactivityThreshold: cfg.InactivityThreshold,
		Health:              health,
		MetricsHandler:      promhttp.Handler(),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("starting server", "port", cfg.HTTPPort, "store", cfg.StoreBackend, "queue", cfg.QueueBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced shutdown", "error", err)
	}

	log.Info("server exited")
	return nil
}
