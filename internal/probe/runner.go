package probe

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/vitrine/pkg/logger"
)

// Report summarizes a probe run.
type Report struct {
	Rounds     int
	Requests   int64
	Failures   int64
	Violations int64
	Duration   time.Duration

	// Errors keeps the first failures for display.
	Errors []error
}

const maxReportedErrors = 10

// OK reports whether every request succeeded and every feed held.
func (r Report) OK() bool { return r.Failures == 0 && r.Violations == 0 }

type collector struct {
	mu     sync.Mutex
	report Report
}

func (c *collector) record(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.report.Requests++
	if err == nil {
		return
	}
	if errors.Is(err, ErrInvariant) {
		c.report.Violations++
	} else {
		c.report.Failures++
	}
	if len(c.report.Errors) < maxReportedErrors {
		c.report.Errors = append(c.report.Errors, err)
	}
}

// Run checks server health, then fetches both feeds cfg.Rounds times across
// cfg.Workers goroutines and verifies each response.
func Run(ctx context.Context, cfg Config) (Report, error) {
	if err := cfg.Validate(); err != nil {
		return Report{}, err
	}
	log := logger.Named("probe")
	start := time.Now()

	log.Info(ctx, "starting feed probe",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("rounds", cfg.Rounds),
		logger.Int("workers", cfg.Workers),
		logger.Bool("authenticated", cfg.Token != ""),
		logger.String("cityID", cfg.CityID))

	c := newClient(cfg)
	if err := c.health(ctx); err != nil {
		return Report{}, err
	}

	rounds := make(chan int, cfg.Workers*2)
	col := &collector{report: Report{Rounds: cfg.Rounds}}
	var done atomic.Int64

	var wg sync.WaitGroup
	for range cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range rounds {
				col.record(probeVideoFeed(ctx, c, cfg))
				col.record(probeProductFeed(ctx, c, cfg))
				if n := done.Add(1); n%10 == 0 {
					log.Debug(ctx, "probe progress", logger.Int64("rounds", n))
				}
			}
		}()
	}

feed:
	for i := range cfg.Rounds {
		select {
		case <-ctx.Done():
			break feed
		case rounds <- i:
		}
	}
	close(rounds)
	wg.Wait()

	report := col.report
	report.Duration = time.Since(start)

	log.Info(ctx, "feed probe finished",
		logger.Int64("requests", report.Requests),
		logger.Int64("failures", report.Failures),
		logger.Int64("violations", report.Violations),
		logger.Duration("duration", report.Duration))
	for _, err := range report.Errors {
		log.Warn(ctx, "probe check failed", logger.Error(err))
	}

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("probe interrupted: %w", err)
	}
	return report, nil
}

func probeVideoFeed(ctx context.Context, c *client, cfg Config) error {
	f, err := c.videoFeed(ctx)
	if err != nil {
		return err
	}
	if err := checkPersonalized(f, cfg.Token != ""); err != nil {
		return err
	}
	return checkFeed("fy feed", f.Videos, cfg.VideoTarget)
}

func probeProductFeed(ctx context.Context, c *client, cfg Config) error {
	f, err := c.productFeed(ctx, cfg.CityID)
	if err != nil {
		return err
	}
	if err := checkFeed("smart feed", f.Products, cfg.ProductTarget); err != nil {
		return err
	}
	return checkProductOrder(f.Products)
}
