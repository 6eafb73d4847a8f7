package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/vitrine/internal/adapters/repository"
	"github.com/okian/vitrine/internal/domain/model"
	"github.com/okian/vitrine/pkg/logger"
	"github.com/okian/vitrine/pkg/metrics"
)

const (
	feedVideo   = "fy"
	feedProduct = "smart"
)

// GetFeed ranks the Fy video feed for viewerID. An empty viewerID yields
// the anonymous feed.
func (s *Service) GetFeed(ctx context.Context, viewerID string, now time.Time) (model.VideoFeed, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRankingLatency(feedVideo, float64(time.Since(start).Milliseconds()))
	}()

	cands, err := s.catalog.ActiveCandidates(ctx, repository.Filter{Kind: model.KindVideo})
	if err != nil {
		metrics.RecordErrorByComponent("service", "candidates")
		return model.VideoFeed{}, fmt.Errorf("%w: %w", ErrCandidates, err)
	}

	p := s.profile(ctx, feedVideo, viewerID, s.catalog.VideoPreferences)
	s.mergeSeen(ctx, &p)

	out, st := s.video.Run(cands, p, now)
	if out == nil {
		out = []model.ScoredCandidate{}
	}

	personalized := viewerID != ""
	metrics.RecordFeedRequest(feedVideo, personalized)
	metrics.UpdateCandidatePool(feedVideo, st.Pool)
	metrics.RecordGateRejections(st.Rejected)
	metrics.RecordPromotedServed(feedVideo, st.Promoted)
	metrics.RecordFeedSize(feedVideo, st.Returned)

	s.logger.Debug(ctx, "fy feed ranked",
		logger.String("viewer", viewerID),
		logger.Int("pool", st.Pool),
		logger.Int("rejected", st.Rejected),
		logger.Int("promoted", st.Promoted),
		logger.Int("returned", st.Returned),
	)
	return model.VideoFeed{Videos: out, Personalized: personalized}, nil
}

// GetSmartFeed ranks the product feed for viewerID in region. The top
// products get a views bump through the engagement queue.
func (s *Service) GetSmartFeed(ctx context.Context, viewerID, region string) (model.ProductFeed, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRankingLatency(feedProduct, float64(time.Since(start).Milliseconds()))
	}()

	cands, err := s.catalog.ActiveCandidates(ctx, repository.Filter{Kind: model.KindProduct})
	if err != nil {
		metrics.RecordErrorByComponent("service", "candidates")
		return model.ProductFeed{}, fmt.Errorf("%w: %w", ErrCandidates, err)
	}

	p := s.profile(ctx, feedProduct, viewerID, s.catalog.ProductPreferences)
	out, st := s.product.Run(cands, p, region, s.now())
	if out == nil {
		out = []model.ScoredCandidate{}
	}

	metrics.RecordFeedRequest(feedProduct, viewerID != "")
	metrics.UpdateCandidatePool(feedProduct, st.Pool)
	metrics.RecordPromotedServed(feedProduct, st.Promoted)
	metrics.RecordFeedSize(feedProduct, st.Returned)

	s.enqueueViews(ctx, out)
	return model.ProductFeed{Products: out}, nil
}

func (s *Service) enqueueViews(ctx context.Context, ranked []model.ScoredCandidate) {
	n := min(s.feedbackTopK, len(ranked))
	now := s.now()
	for i := range n {
		e := model.NewEngagementEvent(model.KindProduct, ranked[i].ID, model.CounterViews, now)
		if err := s.events.Enqueue(ctx, e); err != nil {
			s.logger.Warn(ctx, "view feedback dropped",
				logger.String("product", ranked[i].ID),
				logger.Error(err),
			)
			return
		}
	}
}

// profile loads preferences through the breaker. Any failure degrades to
// the anonymous profile for this request.
func (s *Service) profile(ctx context.Context, feed, viewerID string, load func(context.Context, string) (model.Profile, error)) model.Profile {
	if viewerID == "" {
		return model.AnonymousProfile()
	}
	p, err := s.breaker.Execute(func() (model.Profile, error) {
		return load(ctx, viewerID)
	})
	if err != nil {
		metrics.RecordProfileFallback(feed)
		s.logger.Warn(ctx, "preference lookup failed, using anonymous profile",
			logger.String("feed", feed),
			logger.String("viewer", viewerID),
			logger.Error(err),
		)
		return model.AnonymousProfile()
	}
	return p
}

func (s *Service) mergeSeen(ctx context.Context, p *model.Profile) {
	if p.Anonymous() || s.seen == nil {
		return
	}
	ids, err := s.seen.Seen(ctx, p.ViewerID)
	if err != nil {
		metrics.RecordProfileFallback("seen")
		s.logger.Warn(ctx, "seen lookup failed", logger.String("viewer", p.ViewerID), logger.Error(err))
		return
	}
	for id := range ids {
		p.AddSeen(id)
	}
}
