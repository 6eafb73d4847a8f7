package ranking

import (
	"fmt"
	"math"
	"time"
)

// LikeRateMode selects what the exposed LikeRate field reports.
type LikeRateMode string

const (
	// LikeRateCorrected reports likes / max(views, 1).
	LikeRateCorrected LikeRateMode = "corrected"
	// LikeRateLegacy reports the conversion rate in the LikeRate field,
	// matching the payload older clients were built against. Scores are
	// unaffected.
	LikeRateLegacy LikeRateMode = "legacy"
)

const weightSumTolerance = 1e-6

// VideoWeights are the linear weights of the video score. They sum to 1.
type VideoWeights struct {
	Conversion float64
	Like       float64
	Recency    float64
}

// ProductWeights are the linear weights of the product score.
type ProductWeights struct {
	Conversion     float64
	Recency        float64
	Personal       float64
	Exploration    float64
	PromotionBonus float64
}

// GateConfig holds the performance gate thresholds.
type GateConfig struct {
	TestAudienceSize  int64
	MinConversionRate float64
	MinLikeRate       float64
}

// AssemblyConfig bounds a feed.
type AssemblyConfig struct {
	TargetSize        int
	PromotionInterval int // ignored by score-order assembly
}

// Config is the immutable ranking configuration. Constructors copy it.
type Config struct {
	Video                 VideoWeights
	Product               ProductWeights
	VideoRecencyHorizon   time.Duration
	ProductRecencyHorizon time.Duration
	LikeRateMode          LikeRateMode
	Gate                  GateConfig
	VideoAssembly         AssemblyConfig
	ProductAssembly       AssemblyConfig
	OffRegionFactor       float64
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Video: VideoWeights{Conversion: 0.6, Like: 0.3, Recency: 0.1},
		Product: ProductWeights{
			Conversion:     0.5,
			Recency:        0.2,
			Personal:       0.2,
			Exploration:    0.1,
			PromotionBonus: 5.0,
		},
		VideoRecencyHorizon:   7 * 24 * time.Hour,
		ProductRecencyHorizon: 30 * 24 * time.Hour,
		LikeRateMode:          LikeRateCorrected,
		Gate: GateConfig{
			TestAudienceSize:  100,
			MinConversionRate: 0.01,
			MinLikeRate:       0.05,
		},
		VideoAssembly:   AssemblyConfig{TargetSize: 50, PromotionInterval: 6},
		ProductAssembly: AssemblyConfig{TargetSize: 100},
		OffRegionFactor: 0.5,
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Validate checks the configuration for internal consistency.
func (c Config) Validate() error {
	for name, w := range map[string]float64{
		"video.conversion":        c.Video.Conversion,
		"video.like":              c.Video.Like,
		"video.recency":           c.Video.Recency,
		"product.conversion":      c.Product.Conversion,
		"product.recency":         c.Product.Recency,
		"product.personal":        c.Product.Personal,
		"product.exploration":     c.Product.Exploration,
		"product.promotion_bonus": c.Product.PromotionBonus,
	} {
		if w < 0 || math.IsNaN(w) {
			return invalid("weight %s must be non-negative, got %v", name, w)
		}
	}

	sum := c.Video.Conversion + c.Video.Like + c.Video.Recency
	if math.Abs(sum-1) > weightSumTolerance {
		return invalid("video weights must sum to 1, got %v", sum)
	}
	if c.VideoRecencyHorizon <= 0 || c.ProductRecencyHorizon <= 0 {
		return invalid("recency horizons must be positive")
	}
	switch c.LikeRateMode {
	case LikeRateCorrected, LikeRateLegacy:
	default:
		return invalid("unknown like rate mode %q", c.LikeRateMode)
	}
	if c.Gate.TestAudienceSize < 0 {
		return invalid("test audience size must be non-negative")
	}
	if c.Gate.MinConversionRate < 0 || c.Gate.MinLikeRate < 0 {
		return invalid("gate thresholds must be non-negative")
	}
	if c.VideoAssembly.TargetSize <= 0 || c.ProductAssembly.TargetSize <= 0 {
		return invalid("target sizes must be positive")
	}
	if c.VideoAssembly.PromotionInterval <= 0 {
		return invalid("promotion interval must be positive")
	}
	if c.OffRegionFactor < 0 || c.OffRegionFactor > 1 {
		return invalid("off-region factor must be within [0,1], got %v", c.OffRegionFactor)
	}
	return nil
}
