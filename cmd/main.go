package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/okian/vitrine/internal/adapters/http/api"
	"github.com/okian/vitrine/internal/adapters/mq/queue"
	"github.com/okian/vitrine/internal/adapters/repository"
	"github.com/okian/vitrine/internal/adapters/seen"
	app "github.com/okian/vitrine/internal/app"
	"github.com/okian/vitrine/internal/config"
	"github.com/okian/vitrine/internal/domain/ranking"
	"github.com/okian/vitrine/pkg/logger"
	"github.com/okian/vitrine/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		_, _ = os.Stderr.WriteString("vitrine: " + err.Error() + "\n")
		stop()
		os.Exit(1) //nolint:gocritic // stop already called
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	metrics.Init(cfg.Metrics()...)

	a, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	if err := a.svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}

	go startSystemMetricsUpdater(ctx, metrics.RefreshInterval())
	go startServiceMetricsUpdater(ctx, a.svc, metrics.RefreshInterval())

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           a.handler,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	if err := a.svc.Stop(shutdownCtx); err != nil {
		log.Error(ctx, "service shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// application holds the wired process components.
type application struct {
	store   *repository.Store
	rdb     *redis.Client
	svc     *app.Service
	handler http.Handler
}

func build(ctx context.Context, cfg *config.Config) (*application, error) {
	log := logger.Get()

	store, err := repository.Open(ctx, cfg.DBDriver, cfg.DBDSN,
		repository.WithAutoMigrate(cfg.DBAutoMigrate),
	)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	a := &application{store: store}

	var seenStore seen.Store
	if cfg.RedisAddr != "" {
		a.rdb = seen.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		rs := seen.NewRedisStore(a.rdb,
			seen.WithTTL(cfg.SeenTTL),
			seen.WithRedisMaxPerViewer(cfg.SeenPerViewer))
		if err := rs.Ping(ctx); err != nil {
			a.close(ctx)
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		seenStore = rs
		log.Info(ctx, "using redis seen store", logger.String("addr", cfg.RedisAddr))
	} else {
		seenStore = seen.NewMemoryStore(
			seen.WithMaxPerViewer(cfg.SeenPerViewer),
			seen.WithMaxViewers(cfg.SeenMaxViewers))
		log.Info(ctx, "using in-memory seen store",
			logger.Int("per_viewer", cfg.SeenPerViewer),
			logger.Int("max_viewers", cfg.SeenMaxViewers))
	}

	opts := []app.Option{
		app.WithLogger(log.Named("service")),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithFeedbackTopK(cfg.FeedbackTopK),
		app.WithDailyPromotionCost(cfg.DailyPromotionCost),
		app.WithBreaker(uint32(cfg.BreakerFailures), cfg.BreakerTimeout), //nolint:gosec // validated positive
	}
	if cfg.RandomSeed != 0 {
		opts = append(opts, app.WithRandomSource(ranking.NewRandomSource(cfg.RandomSeed)))
	}

	events := queue.NewInMemoryQueue(queue.WithCapacity(cfg.EventQueueSize))
	a.svc = app.New(store, seenStore, events, cfg.Ranking(), opts...)

	server := api.NewServer(a.svc, a.svc,
		api.WithJWTSecret(cfg.JWTSecret),
		api.WithRateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow),
	)
	a.handler = server.Router()
	return a, nil
}

func (a *application) close(ctx context.Context) {
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			logger.Get().Warn(ctx, "closing redis failed", logger.Error(err))
		}
	}
	if err := a.store.Close(); err != nil {
		logger.Get().Warn(ctx, "closing catalog failed", logger.Error(err))
	}
}

// startSystemMetricsUpdater refreshes runtime gauges until ctx is done.
func startSystemMetricsUpdater(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func startServiceMetricsUpdater(ctx context.Context, svc *app.Service, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()
	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
}
