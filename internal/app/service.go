// Package service ranks feeds and applies engagement on behalf of the
// HTTP API.
package service

import (
	"context"
	"runtime"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/okian/vitrine/internal/adapters/mq/queue"
	"github.com/okian/vitrine/internal/adapters/mq/worker"
	"github.com/okian/vitrine/internal/adapters/repository"
	"github.com/okian/vitrine/internal/adapters/seen"
	"github.com/okian/vitrine/internal/domain/model"
	"github.com/okian/vitrine/internal/domain/ranking"
	"github.com/okian/vitrine/pkg/logger"
	"github.com/okian/vitrine/pkg/metrics"
)

// Catalog is everything the service needs from persistent storage.
type Catalog interface {
	repository.CandidateRepository
	repository.PreferenceRepository
	repository.EngagementRecorder
	GetVideo(ctx context.Context, id, viewerID string) (model.Candidate, bool, error)
	ToggleLike(ctx context.Context, videoID, userID string) (model.LikeResult, error)
	Promote(ctx context.Context, kind model.Kind, id, sellerID string, days int, dailyCost float64) (model.Promotion, error)
	Analytics(ctx context.Context) (model.Analytics, error)
}

// Service implements the API dependencies for the feed system.
type Service struct {
	mu sync.RWMutex

	catalog Catalog
	seen    seen.Store
	events  queue.Queue
	pool    *worker.Pool
	cfg     ranking.Config
	video   *ranking.VideoPipeline
	product *ranking.ProductPipeline
	breaker *gobreaker.CircuitBreaker[model.Profile]

	workerCount     int
	feedbackTopK    int
	dailyCost       float64
	breakerFailures uint32
	breakerTimeout  time.Duration
	random          ranking.RandomSource
	now             func() time.Time

	started    bool
	cancelPool context.CancelFunc
	logger     logger.Logger
}

// New constructs a Service. cfg must already be validated.
func New(catalog Catalog, seenStore seen.Store, events queue.Queue, cfg ranking.Config, opts ...Option) *Service {
	s := &Service{
		catalog:         catalog,
		seen:            seenStore,
		events:          events,
		cfg:             cfg,
		workerCount:     runtime.NumCPU() * 2,
		feedbackTopK:    20,
		dailyCost:       5.00,
		breakerFailures: 5,
		breakerTimeout:  30 * time.Second,
		now:             time.Now,
		logger:          logger.Get().Named("service"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.video = ranking.NewVideoPipeline(cfg)
	var popts []ranking.ProductOption
	if s.random != nil {
		popts = append(popts, ranking.WithRandomSource(s.random))
	}
	s.product = ranking.NewProductPipeline(cfg, popts...)

	failures := s.breakerFailures
	s.breaker = gobreaker.NewCircuitBreaker[model.Profile](gobreaker.Settings{
		Name:    "preferences",
		Timeout: s.breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.logger.Warn(context.Background(), "circuit breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		},
	})
	return s
}

// Start launches the engagement worker pool. The pool outlives ctx and
// runs until Stop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancelPool = cancel
	s.pool = worker.NewPool(s.workerCount, s.events, s.catalog)
	s.pool.Start(runCtx)
	s.started = true

	s.logger.Info(ctx, "feed service started",
		logger.Int("workers", s.workerCount),
		logger.Int("feedback_top_k", s.feedbackTopK),
		logger.String("like_rate_mode", string(s.cfg.LikeRateMode)),
	)
	return nil
}

// Stop closes the queue and drains pending engagement until ctx is done.
// Events still queued after that are dropped.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.started = false
	err := s.pool.Shutdown(ctx)
	s.cancelPool()
	s.logger.Info(ctx, "feed service stopped")
	return err
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":        s.started,
		"workerCount":    s.workerCount,
		"queueLength":    s.events.Len(),
		"queueClosed":    s.events.IsClosed(),
		"breakerState":   s.breaker.State().String(),
		"feedbackTopK":   s.feedbackTopK,
		"likeRateMode":   string(s.cfg.LikeRateMode),
		"videoTarget":    s.cfg.VideoAssembly.TargetSize,
		"productTarget":  s.cfg.ProductAssembly.TargetSize,
		"promoInterval":  s.cfg.VideoAssembly.PromotionInterval,
		"testAudience":   s.cfg.Gate.TestAudienceSize,
		"offRegionRatio": s.cfg.OffRegionFactor,
	}
	if s.pool != nil {
		metrics.UpdateWorkerCount(s.pool.Size())
	}
	return stats
}
