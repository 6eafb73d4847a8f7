package service

import (
	"time"

	"github.com/okian/vitrine/internal/domain/ranking"
	"github.com/okian/vitrine/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of engagement workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithFeedbackTopK sets how many smart-feed products receive a views bump.
// Zero disables the feedback.
func WithFeedbackTopK(k int) Option {
	return func(s *Service) {
		if k >= 0 {
			s.feedbackTopK = k
		}
	}
}

// WithDailyPromotionCost sets the price of one promoted day.
func WithDailyPromotionCost(cost float64) Option {
	return func(s *Service) {
		if cost >= 0 {
			s.dailyCost = cost
		}
	}
}

// WithBreaker configures the circuit breaker around preference lookups.
func WithBreaker(failures uint32, timeout time.Duration) Option {
	return func(s *Service) {
		if failures > 0 {
			s.breakerFailures = failures
		}
		if timeout > 0 {
			s.breakerTimeout = timeout
		}
	}
}

// WithRandomSource fixes the product exploration noise.
func WithRandomSource(src ranking.RandomSource) Option {
	return func(s *Service) {
		if src != nil {
			s.random = src
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
