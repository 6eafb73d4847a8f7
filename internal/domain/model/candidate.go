// Package model contains domain models passed between layers.
package model

import "time"

// Kind distinguishes the two rankable item types.
type Kind string

const (
	KindVideo   Kind = "video"
	KindProduct Kind = "product"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindVideo || k == KindProduct
}

// Candidate is a rankable item: a short video or a product.
// Counters that were never recorded are zero.
type Candidate struct {
	ID        string `json:"id"`
	Kind      Kind   `json:"kind"`
	StoreID   string `json:"store_id,omitempty"`
	StoreName string `json:"store_name,omitempty"`
	Title     string `json:"title"`
	MediaURL  string `json:"media_url,omitempty"`
	ProductID string `json:"product_id,omitempty"`

	Price float64 `json:"price,omitempty"`

	Views           int64 `json:"views"`
	Likes           int64 `json:"likes"`
	Conversions     int64 `json:"conversions"` // product clicks (video) or units sold (product)
	AttributedSales int64 `json:"attributed_sales"`
	CommentsCount   int64 `json:"comments_count"`

	CreatedAt       time.Time  `json:"created_at"`
	IsPromoted      bool       `json:"is_promoted"`
	PromotionEndsAt *time.Time `json:"promotion_ends_at,omitempty"`

	CategoryID    string `json:"category_id,omitempty"`
	CategoryName  string `json:"category_name,omitempty"`
	SubcategoryID string `json:"subcategory_id,omitempty"`

	// ShippingRegions lists the regions the item ships to. Nil means unknown.
	ShippingRegions []string `json:"shipping_regions,omitempty"`
}

// ActivelyPromoted reports whether the promotion flag is set and the
// promotion end date lies strictly after now.
func (c Candidate) ActivelyPromoted(now time.Time) bool {
	return c.IsPromoted && c.PromotionEndsAt != nil && c.PromotionEndsAt.After(now)
}

// ShipsTo reports whether region is among the known shipping regions.
// The second result is false when the regions are unknown.
func (c Candidate) ShipsTo(region string) (ships, known bool) {
	if c.ShippingRegions == nil {
		return false, false
	}
	for _, r := range c.ShippingRegions {
		if r == region {
			return true, true
		}
	}
	return false, true
}

// ScoredCandidate is a candidate plus its derived ranking signals.
type ScoredCandidate struct {
	Candidate

	ConversionRate float64 `json:"conversion_rate"`
	LikeRate       float64 `json:"like_rate"`
	RecencyScore   float64 `json:"recency_score"`
	PersonalScore  float64 `json:"personal_score"`
	LocalityFactor float64 `json:"locality_factor"`
	FinalScore     float64 `json:"final_score"`
	HasLiked       bool    `json:"has_liked"`
}
