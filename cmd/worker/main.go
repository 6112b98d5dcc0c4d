package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"marketplace/internal/cache"
	"marketplace/internal/config"
	"marketplace/internal/logger"
	"marketplace/internal/metrics"
	"marketplace/internal/queue"
	"marketplace/internal/store"
	"marketplace/internal/trust"
)

// Worker consumes recompute jobs and periodically sweeps idle vendors offline.
func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("db connect failed", "error", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()

	var metricsCache trust.MetricsCache
	if redisClient.Healthy(ctx) {
		metricsCache = cache.NewMetricsCache(redisClient.Client, cfg.MetricsCacheTTL)
	}

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		log.Warn("in-memory queue only sees jobs published by this process")
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, cfg.QueueKey)
	}

	collector := metrics.NewCollector(prometheus.DefaultRegisterer)
	svc := trust.NewService(trust.NewRepository(db.Client), trust.Options{
		Cache:         metricsCache,
		Logger:        log.With("component", "trust"),
		Metrics:       collector,
		FeedbackDwell: cfg.FeedbackDwell,
	})

	jobs, err := q.Consume(ctx)
	if err != nil {
		log.Fatal("queue consume init failed", "error", err)
	}

	go sweepLoop(ctx, svc, cfg, log)

	log.Info("worker started, waiting for jobs", "sweep_interval", cfg.SweepInterval)
	for job := range jobs {
		outcome := handle(ctx, svc, job, log)
		collector.QueueJobs.WithLabelValues(job.Type, outcome).Inc()
	}

	log.Info("worker stopped")
}

func handle(ctx context.Context, svc *trust.Service, job queue.Job, log *logger.Logger) string {
	if job.Type != queue.JobRecompute {
		log.Warn("skipping unknown job", "type", job.Type)
		return "skipped"
	}
	m, err := svc.RecomputeMetrics(ctx, job.VendorID)
	if err != nil {
		// RecomputeMetrics already logged the failure. Jobs are not retried.
		return "failed"
	}
	if m == nil {
		log.Info("recompute had nothing to score", "vendor_id", job.VendorID)
		return "noop"
	}
	log.Info("vendor recomputed", "vendor_id", job.VendorID, "trust_score", m.TrustScore, "requested_by", job.RequestedBy)
	return "ok"
}

func sweepLoop(ctx context.Context, svc *trust.Service, cfg config.App, log *logger.Logger) {
	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.SweepInactive(ctx, cfg.InactivityThreshold)
			if err != nil {
				log.Error("sweep finished with errors", "deactivated", n, "error", err)
				continue
			}
			if n > 0 {
				log.Info("sweep deactivated vendors", "count", n)
			}
		}
	}
}
