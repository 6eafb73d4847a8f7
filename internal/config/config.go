// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Keys are flat and map 1:1 to VITRINE_* environment variables.
// - Ranking() is the only way the domain sees ranking tunables.
package config

import (
	"fmt"
	"runtime"
	"time"

	"github.com/okian/vitrine/internal/domain/ranking"
	"github.com/okian/vitrine/pkg/metrics"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Environment is attached to every metric as the env label when set.
	Environment string `koanf:"environment"`
	// MetricsEnabled turns the Prometheus collectors on or off.
	MetricsEnabled bool `koanf:"metrics_enabled"`
	// MetricsRefreshInterval is how often runtime and queue gauges are sampled.
	MetricsRefreshInterval time.Duration `koanf:"metrics_refresh_interval"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBDriver is sqlite3 or pgx.
	DBDriver string `koanf:"db_driver"`
	DBDSN    string `koanf:"db_dsn"`
	// DBAutoMigrate applies the embedded schema on start (sqlite3 only).
	DBAutoMigrate bool `koanf:"db_auto_migrate"`

	// RedisAddr enables the Redis seen-set store when non-empty.
	RedisAddr     string        `koanf:"redis_addr"`
	RedisPassword string        `koanf:"redis_password"`
	RedisDB       int           `koanf:"redis_db"`
	SeenTTL       time.Duration `koanf:"seen_ttl"`
	// SeenPerViewer bounds each viewer's seen-set in either store.
	SeenPerViewer int `koanf:"seen_per_viewer"`
	// SeenMaxViewers bounds how many viewers the in-memory store tracks.
	SeenMaxViewers int `koanf:"seen_max_viewers"`

	// JWTSecret signs viewer tokens (HS256).
	JWTSecret string `koanf:"jwt_secret"`

	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`

	// EventQueueSize bounds the in-memory engagement queue.
	EventQueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of engagement workers.
	WorkerCount int `koanf:"worker_count"`

	// FeedbackTopK is how many smart-feed products get a views bump per request.
	FeedbackTopK int `koanf:"feedback_top_k"`
	// DailyPromotionCost is charged per promoted day.
	DailyPromotionCost float64 `koanf:"daily_promotion_cost"`

	BreakerFailures int           `koanf:"breaker_failures"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout"`

	// Ranking tunables.
	VideoWeightConversion   float64       `koanf:"video_weight_conversion"`
	VideoWeightLike         float64       `koanf:"video_weight_like"`
	VideoWeightRecency      float64       `koanf:"video_weight_recency"`
	ProductWeightConversion float64       `koanf:"product_weight_conversion"`
	ProductWeightRecency    float64       `koanf:"product_weight_recency"`
	ProductWeightPersonal   float64       `koanf:"product_weight_personal"`
	ProductWeightRandom     float64       `koanf:"product_weight_random"`
	PromotionBonus          float64       `koanf:"promotion_bonus"`
	VideoRecencyHorizon     time.Duration `koanf:"video_recency_horizon"`
	ProductRecencyHorizon   time.Duration `koanf:"product_recency_horizon"`
	LikeRateMode            string        `koanf:"like_rate_mode"`
	TestAudienceSize        int64         `koanf:"test_audience_size"`
	MinConversionRate       float64       `koanf:"min_conversion_rate"`
	MinLikeRate             float64       `koanf:"min_like_rate"`
	VideoTargetSize         int           `koanf:"video_target_size"`
	PromotionInterval       int           `koanf:"promotion_interval"`
	ProductTargetSize       int           `koanf:"product_target_size"`
	OffRegionFactor         float64       `koanf:"off_region_factor"`

	// RandomSeed fixes product exploration noise when non-zero.
	RandomSeed int64 `koanf:"random_seed"`
}

// New creates a Config with defaults.
func New() *Config {
	r := ranking.DefaultConfig()
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		MetricsEnabled:    true,
		Addr:              ":9080",
		DBDriver:          "sqlite3",
		DBDSN:             "file:vitrine.db?_foreign_keys=on",
		DBAutoMigrate:     true,

		MetricsRefreshInterval: 10 * time.Second,

		SeenTTL:           7 * 24 * time.Hour,
		SeenPerViewer:     500,
		SeenMaxViewers:    100_000,
		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
		EventQueueSize:    10_000,
		WorkerCount:       runtime.NumCPU() * 2,
		FeedbackTopK:      20,

		DailyPromotionCost: 5.00,
		BreakerFailures:    5,
		BreakerTimeout:     30 * time.Second,

		VideoWeightConversion:   r.Video.Conversion,
		VideoWeightLike:         r.Video.Like,
		VideoWeightRecency:      r.Video.Recency,
		ProductWeightConversion: r.Product.Conversion,
		ProductWeightRecency:    r.Product.Recency,
		ProductWeightPersonal:   r.Product.Personal,
		ProductWeightRandom:     r.Product.Exploration,
		PromotionBonus:          r.Product.PromotionBonus,
		VideoRecencyHorizon:     r.VideoRecencyHorizon,
		ProductRecencyHorizon:   r.ProductRecencyHorizon,
		LikeRateMode:            string(r.LikeRateMode),
		TestAudienceSize:        r.Gate.TestAudienceSize,
		MinConversionRate:       r.Gate.MinConversionRate,
		MinLikeRate:             r.Gate.MinLikeRate,
		VideoTargetSize:         r.VideoAssembly.TargetSize,
		PromotionInterval:       r.VideoAssembly.PromotionInterval,
		ProductTargetSize:       r.ProductAssembly.TargetSize,
		OffRegionFactor:         r.OffRegionFactor,
	}
}

// Ranking builds the immutable ranking configuration.
func (c *Config) Ranking() ranking.Config {
	return ranking.Config{
		Video: ranking.VideoWeights{
			Conversion: c.VideoWeightConversion,
			Like:       c.VideoWeightLike,
			Recency:    c.VideoWeightRecency,
		},
		Product: ranking.ProductWeights{
			Conversion:     c.ProductWeightConversion,
			Recency:        c.ProductWeightRecency,
			Personal:       c.ProductWeightPersonal,
			Exploration:    c.ProductWeightRandom,
			PromotionBonus: c.PromotionBonus,
		},
		VideoRecencyHorizon:   c.VideoRecencyHorizon,
		ProductRecencyHorizon: c.ProductRecencyHorizon,
		LikeRateMode:          ranking.LikeRateMode(c.LikeRateMode),
		Gate: ranking.GateConfig{
			TestAudienceSize:  c.TestAudienceSize,
			MinConversionRate: c.MinConversionRate,
			MinLikeRate:       c.MinLikeRate,
		},
		VideoAssembly: ranking.AssemblyConfig{
			TargetSize:        c.VideoTargetSize,
			PromotionInterval: c.PromotionInterval,
		},
		ProductAssembly: ranking.AssemblyConfig{TargetSize: c.ProductTargetSize},
		OffRegionFactor: c.OffRegionFactor,
	}
}

// Metrics returns the options for metrics.Init.
func (c *Config) Metrics() []metrics.Option {
	opts := []metrics.Option{
		metrics.WithMetricsEnabled(c.MetricsEnabled),
		metrics.WithRefreshInterval(c.MetricsRefreshInterval),
	}
	if c.Environment != "" {
		opts = append(opts, metrics.WithConstLabels(map[string]string{"env": c.Environment}))
	}
	return opts
}

// Validate checks process settings and the derived ranking config.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.DBDriver != "sqlite3" && c.DBDriver != "pgx":
		return fmt.Errorf("%w: unsupported db_driver %q", ErrInvalidConfig, c.DBDriver)
	case c.DBDSN == "":
		return fmt.Errorf("%w: db_dsn must not be empty", ErrInvalidConfig)
	case c.EventQueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.FeedbackTopK < 0:
		return fmt.Errorf("%w: feedback_top_k must not be negative", ErrInvalidConfig)
	case c.DailyPromotionCost < 0:
		return fmt.Errorf("%w: daily_promotion_cost must not be negative", ErrInvalidConfig)
	case c.BreakerFailures <= 0 || c.BreakerTimeout <= 0:
		return fmt.Errorf("%w: breaker_failures and breaker_timeout must be positive", ErrInvalidConfig)
	case c.MetricsRefreshInterval <= 0:
		return fmt.Errorf("%w: metrics_refresh_interval must be positive", ErrInvalidConfig)
	case c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0:
		return fmt.Errorf("%w: rate limit must be positive", ErrInvalidConfig)
	}
	if err := c.Ranking().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
