package service

import (
	"context"
	"fmt"

	"github.com/okian/vitrine/internal/domain/model"
	"github.com/okian/vitrine/pkg/logger"
)

// VideoDetail is a single video with the viewer's like state.
type VideoDetail struct {
	model.Candidate
	HasLiked bool `json:"has_liked"`
}

// GetVideo returns one active video.
func (s *Service) GetVideo(ctx context.Context, id, viewerID string) (VideoDetail, error) {
	c, liked, err := s.catalog.GetVideo(ctx, id, viewerID)
	if err != nil {
		return VideoDetail{}, fmt.Errorf("get video: %w", err)
	}
	return VideoDetail{Candidate: c, HasLiked: liked}, nil
}

// RecordView counts a view of videoID and adds it to the viewer's seen set.
func (s *Service) RecordView(ctx context.Context, videoID, viewerID string) (int64, error) {
	n, err := s.catalog.IncrementCounter(ctx, model.KindVideo, videoID, model.CounterViews)
	if err != nil {
		return 0, fmt.Errorf("record view: %w", err)
	}
	if viewerID != "" && s.seen != nil {
		if err := s.seen.Record(ctx, viewerID, videoID); err != nil {
			s.logger.Warn(ctx, "seen record failed",
				logger.String("viewer", viewerID),
				logger.String("video", videoID),
				logger.Error(err),
			)
		}
	}
	return n, nil
}

// RecordProductClick counts a click from a video to its product.
func (s *Service) RecordProductClick(ctx context.Context, videoID string) (int64, error) {
	n, err := s.catalog.IncrementCounter(ctx, model.KindVideo, videoID, model.CounterConversions)
	if err != nil {
		return 0, fmt.Errorf("record product click: %w", err)
	}
	return n, nil
}

// RecordAttributedSale counts a sale attributed to a video.
func (s *Service) RecordAttributedSale(ctx context.Context, videoID string) (int64, error) {
	n, err := s.catalog.IncrementCounter(ctx, model.KindVideo, videoID, model.CounterAttributedSales)
	if err != nil {
		return 0, fmt.Errorf("record attributed sale: %w", err)
	}
	return n, nil
}

// ToggleLike likes or unlikes videoID for viewerID.
func (s *Service) ToggleLike(ctx context.Context, videoID, viewerID string) (model.LikeResult, error) {
	if viewerID == "" {
		return model.LikeResult{}, ErrUnauthorized
	}
	res, err := s.catalog.ToggleLike(ctx, videoID, viewerID)
	if err != nil {
		return model.LikeResult{}, fmt.Errorf("toggle like: %w", err)
	}
	return res, nil
}

// Promote charges sellerID for days of promotion on one of their items.
func (s *Service) Promote(ctx context.Context, kind model.Kind, id, sellerID string, days int) (model.Promotion, error) {
	if sellerID == "" {
		return model.Promotion{}, ErrUnauthorized
	}
	if !kind.Valid() || days < 1 {
		return model.Promotion{}, fmt.Errorf("%w: kind=%q days=%d", ErrInvalidArgument, kind, days)
	}
	promo, err := s.catalog.Promote(ctx, kind, id, sellerID, days, s.dailyCost)
	if err != nil {
		return model.Promotion{}, fmt.Errorf("promote %s %s: %w", kind, id, err)
	}
	s.logger.Info(ctx, "promotion applied",
		logger.String("kind", string(kind)),
		logger.String("id", id),
		logger.String("seller", sellerID),
		logger.Int("days", days),
		logger.Float64("cost", promo.Cost),
	)
	return promo, nil
}

// Analytics returns the marketplace leaderboards.
func (s *Service) Analytics(ctx context.Context) (model.Analytics, error) {
	a, err := s.catalog.Analytics(ctx)
	if err != nil {
		return model.Analytics{}, fmt.Errorf("analytics: %w", err)
	}
	return a, nil
}
