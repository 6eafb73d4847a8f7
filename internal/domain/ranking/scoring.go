// Package ranking scores, gates and assembles the video and product feeds.
// Everything here is pure: no I/O, and the only hidden state is the
// injected random source used for product exploration noise.
package ranking

import (
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/okian/vitrine/internal/domain/model"
)

// RandomSource yields values in [0, 1).
type RandomSource interface {
	Float64() float64
}

type lockedSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomSource returns a goroutine-safe source seeded with seed.
func NewRandomSource(seed int64) RandomSource {
	return &lockedSource{rng: rand.New(rand.NewSource(seed))} //nolint:gosec // exploration noise, not crypto
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

func safeViews(views int64) float64 {
	if views < 1 {
		return 1
	}
	return float64(views)
}

// Rates returns conversions/views and likes/views with the denominator
// floored at 1, so unseen items rate 0.
func Rates(c model.Candidate) (conversionRate, likeRate float64) {
	v := safeViews(c.Views)
	return float64(c.Conversions) / v, float64(c.Likes) / v
}

// RecencyScore decays linearly from 1 at creation to 0 at horizon.
// Timestamps in the future score 1.
func RecencyScore(createdAt, now time.Time, horizon time.Duration) float64 {
	if horizon <= 0 {
		return 0
	}
	age := now.Sub(createdAt)
	if age <= 0 {
		return 1
	}
	return math.Max(0, 1-float64(age)/float64(horizon))
}

// PersonalScore is 1 for a preferred subcategory, 0.5 for a preferred
// category, else 0.
func PersonalScore(c model.Candidate, p model.Profile) float64 {
	switch {
	case p.HasSubcategory(c.SubcategoryID):
		return 1
	case p.HasCategory(c.CategoryID):
		return 0.5
	default:
		return 0
	}
}

// LocalityFactor is 1 when no region is requested, when the candidate's
// shipping regions are unknown, or when they include region. Otherwise it
// is offRegion.
func LocalityFactor(c model.Candidate, region string, offRegion float64) float64 {
	if region == "" {
		return 1
	}
	ships, known := c.ShipsTo(region)
	if !known || ships {
		return 1
	}
	return offRegion
}

func sortByScore(scored []model.ScoredCandidate) {
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].FinalScore > scored[j].FinalScore
	})
}

// VideoScorer scores Fy videos.
type VideoScorer struct {
	weights VideoWeights
	horizon time.Duration
	mode    LikeRateMode
}

// NewVideoScorer builds a scorer from cfg.
func NewVideoScorer(cfg Config) *VideoScorer {
	return &VideoScorer{
		weights: cfg.Video,
		horizon: cfg.VideoRecencyHorizon,
		mode:    cfg.LikeRateMode,
	}
}

// Score computes conv*Wc + like*Wl + recency*Wr.
func (s *VideoScorer) Score(c model.Candidate, now time.Time) model.ScoredCandidate {
	conv, like := Rates(c)
	recency := RecencyScore(c.CreatedAt, now, s.horizon)

	out := model.ScoredCandidate{
		Candidate:      c,
		ConversionRate: conv,
		LikeRate:       like,
		RecencyScore:   recency,
		LocalityFactor: 1,
		FinalScore:     conv*s.weights.Conversion + like*s.weights.Like + recency*s.weights.Recency,
	}
	if s.mode == LikeRateLegacy {
		out.LikeRate = conv
	}
	return out
}

// Rank scores every candidate and sorts by descending score. Ties keep
// input order.
func (s *VideoScorer) Rank(cands []model.Candidate, now time.Time) []model.ScoredCandidate {
	out := make([]model.ScoredCandidate, len(cands))
	for i, c := range cands {
		out[i] = s.Score(c, now)
	}
	sortByScore(out)
	return out
}

// ProductOption configures a ProductScorer.
type ProductOption func(*ProductScorer)

// WithRandomSource replaces the exploration noise source.
func WithRandomSource(src RandomSource) ProductOption {
	return func(s *ProductScorer) {
		if src != nil {
			s.rng = src
		}
	}
}

// ProductScorer scores products for the smart feed.
type ProductScorer struct {
	weights   ProductWeights
	horizon   time.Duration
	offRegion float64
	rng       RandomSource
}

// NewProductScorer builds a scorer from cfg. Without WithRandomSource the
// noise source is seeded from the clock.
func NewProductScorer(cfg Config, opts ...ProductOption) *ProductScorer {
	s := &ProductScorer{
		weights:   cfg.Product,
		horizon:   cfg.ProductRecencyHorizon,
		offRegion: cfg.OffRegionFactor,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = NewRandomSource(time.Now().UnixNano())
	}
	return s
}

// Score computes the weighted sum plus promotion bonus, scaled by locality.
func (s *ProductScorer) Score(c model.Candidate, p model.Profile, region string, now time.Time) model.ScoredCandidate {
	conv, like := Rates(c)
	recency := RecencyScore(c.CreatedAt, now, s.horizon)
	personal := PersonalScore(c, p)
	locality := LocalityFactor(c, region, s.offRegion)

	score := conv*s.weights.Conversion +
		recency*s.weights.Recency +
		personal*s.weights.Personal +
		s.rng.Float64()*s.weights.Exploration
	if c.ActivelyPromoted(now) {
		score += s.weights.PromotionBonus
	}

	return model.ScoredCandidate{
		Candidate:      c,
		ConversionRate: conv,
		LikeRate:       like,
		RecencyScore:   recency,
		PersonalScore:  personal,
		LocalityFactor: locality,
		FinalScore:     score * locality,
	}
}

// Rank scores every product and sorts by descending score.
func (s *ProductScorer) Rank(cands []model.Candidate, p model.Profile, region string, now time.Time) []model.ScoredCandidate {
	out := make([]model.ScoredCandidate, len(cands))
	for i, c := range cands {
		out[i] = s.Score(c, p, region, now)
	}
	sortByScore(out)
	return out
}
