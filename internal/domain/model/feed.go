package model

import "time"

// VideoFeed is the assembled Fy response.
type VideoFeed struct {
	Videos       []ScoredCandidate `json:"videos"`
	Personalized bool              `json:"personalized"`
}

// ProductFeed is the assembled smart product feed.
type ProductFeed struct {
	Products []ScoredCandidate `json:"products"`
}

// RankedItem is one row of an analytics leaderboard.
type RankedItem struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	StoreName      string  `json:"store_name,omitempty"`
	Value          float64 `json:"value"`
	Views          int64   `json:"views"`
	Conversions    int64   `json:"conversions"`
	ConversionRate float64 `json:"conversion_rate"`
}

// Analytics is the marketplace-wide leaderboard snapshot.
type Analytics struct {
	TopSold       []RankedItem `json:"top_sold"`
	TopViewed     []RankedItem `json:"top_viewed"`
	TopConversion []RankedItem `json:"top_conversion"`
}

// LikeResult is the outcome of a like toggle.
type LikeResult struct {
	Liked      bool  `json:"liked"`
	LikesCount int64 `json:"likes_count"`
}

// Promotion is a paid promotion that was just applied.
type Promotion struct {
	Kind      Kind      `json:"kind"`
	ID        string    `json:"id"`
	Days      int       `json:"days"`
	Cost      float64   `json:"cost"`
	EndsAt    time.Time `json:"promotion_ends"`
	Remaining float64   `json:"remaining_balance"`
}
