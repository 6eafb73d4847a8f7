package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	json "github.com/goccy/go-json"

	"github.com/okian/vitrine/internal/domain/model"
	"github.com/okian/vitrine/pkg/metrics"
)

const videoColumns = `
	v.id, COALESCE(p.name, '') AS title, v.video_url AS media_url,
	s.id AS store_id, s.name AS store_name, p.id AS product_id, p.price,
	v.views_count AS views, v.likes_count AS likes,
	v.product_clicks_count AS conversions, v.ad_attributed_sales_count AS attributed_sales,
	(SELECT COUNT(*) FROM fy_comments fc WHERE fc.video_id = v.id) AS comments_count,
	v.created_at, v.is_promoted, v.promotion_end_date,
	sc.category_id, c.name AS category_name, p.subcategory_id`

const videoFrom = `
	FROM fy_videos v
	JOIN stores s ON v.store_id = s.id
	LEFT JOIN products p ON v.product_id = p.id
	LEFT JOIN subcategories sc ON p.subcategory_id = sc.id
	LEFT JOIN categories c ON sc.category_id = c.id
	WHERE p.is_active = TRUE AND v.is_active = TRUE`

const activeVideosQuery = `SELECT` + videoColumns + videoFrom

const activeProductsQuery = `
	SELECT p.id, p.name AS title, p.image_url AS media_url,
	       s.id AS store_id, s.name AS store_name, p.price,
	       p.views_count AS views,
	       (SELECT COALESCE(SUM(oi.quantity), 0) FROM order_items oi WHERE oi.product_id = p.id) AS conversions,
	       p.created_at, p.is_promoted, p.promotion_end_date,
	       p.category_id, c.name AS category_name, p.subcategory_id,
	       p.shipping_options
	FROM products p
	JOIN stores s ON p.seller_id = s.seller_id
	LEFT JOIN categories c ON p.category_id = c.id
	WHERE p.is_active = TRUE`

type candidateRow struct {
	ID              string          `db:"id"`
	Title           string          `db:"title"`
	MediaURL        sql.NullString  `db:"media_url"`
	StoreID         sql.NullString  `db:"store_id"`
	StoreName       sql.NullString  `db:"store_name"`
	ProductID       sql.NullString  `db:"product_id"`
	Price           sql.NullFloat64 `db:"price"`
	Views           int64           `db:"views"`
	Likes           int64           `db:"likes"`
	Conversions     int64           `db:"conversions"`
	AttributedSales int64           `db:"attributed_sales"`
	CommentsCount   int64           `db:"comments_count"`
	CreatedAt       time.Time       `db:"created_at"`
	IsPromoted      bool            `db:"is_promoted"`
	PromotionEndsAt sql.NullTime    `db:"promotion_end_date"`
	CategoryID      sql.NullString  `db:"category_id"`
	CategoryName    sql.NullString  `db:"category_name"`
	SubcategoryID   sql.NullString  `db:"subcategory_id"`
	ShippingOptions sql.NullString  `db:"shipping_options"`
	HasLiked        bool            `db:"has_liked"`
}

func (r candidateRow) toCandidate(kind model.Kind) model.Candidate {
	c := model.Candidate{
		ID:              r.ID,
		Kind:            kind,
		StoreID:         r.StoreID.String,
		StoreName:       r.StoreName.String,
		Title:           r.Title,
		MediaURL:        r.MediaURL.String,
		ProductID:       r.ProductID.String,
		Price:           r.Price.Float64,
		Views:           r.Views,
		Likes:           r.Likes,
		Conversions:     r.Conversions,
		AttributedSales: r.AttributedSales,
		CommentsCount:   r.CommentsCount,
		CreatedAt:       r.CreatedAt,
		IsPromoted:      r.IsPromoted,
		CategoryID:      r.CategoryID.String,
		CategoryName:    r.CategoryName.String,
		SubcategoryID:   r.SubcategoryID.String,
	}
	if r.PromotionEndsAt.Valid {
		t := r.PromotionEndsAt.Time
		c.PromotionEndsAt = &t
	}
	if r.ShippingOptions.Valid {
		c.ShippingRegions = ParseShippingRegions(r.ShippingOptions.String)
	}
	return c
}

type shippingOption struct {
	CityID any `json:"city_id"`
}

// ParseShippingRegions extracts city ids from a shipping_options JSON
// array. City ids may be strings or numbers. Blank or malformed input
// yields nil, meaning unknown.
func ParseShippingRegions(raw string) []string {
	if raw == "" {
		return nil
	}
	var opts []shippingOption
	if err := json.Unmarshal([]byte(raw), &opts); err != nil {
		metrics.RecordCandidateDataFault("shipping_options")
		return nil
	}
	if opts == nil {
		return nil
	}
	regions := make([]string, 0, len(opts))
	for _, o := range opts {
		switch v := o.CityID.(type) {
		case string:
			regions = append(regions, v)
		case float64:
			regions = append(regions, strconv.FormatFloat(v, 'f', -1, 64))
		}
	}
	return regions
}

// nullable maps an empty id to SQL NULL so it never matches a row.
func nullable(id string) any {
	if id == "" {
		return nil
	}
	return id
}

// ActiveCandidates returns every active video or product.
func (s *Store) ActiveCandidates(ctx context.Context, f Filter) ([]model.Candidate, error) {
	defer observe("active_candidates", time.Now())

	var q string
	switch f.Kind {
	case model.KindVideo:
		q = activeVideosQuery
	case model.KindProduct:
		q = activeProductsQuery
	default:
		return nil, fmt.Errorf("active candidates: unknown kind %q", f.Kind)
	}

	var rows []candidateRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(q)); err != nil {
		return nil, fmt.Errorf("active %s candidates: %w", f.Kind, err)
	}

	out := make([]model.Candidate, len(rows))
	for i, r := range rows {
		out[i] = r.toCandidate(f.Kind)
	}
	return out, nil
}

// GetVideo returns one active video and whether viewerID liked it.
func (s *Store) GetVideo(ctx context.Context, id, viewerID string) (model.Candidate, bool, error) {
	defer observe("get_video", time.Now())

	q := `SELECT` + videoColumns + `,
		EXISTS(SELECT 1 FROM fy_likes fl WHERE fl.video_id = v.id AND fl.user_id = ?) AS has_liked` +
		videoFrom + ` AND v.id = ?`

	var row candidateRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(q), nullable(viewerID), id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Candidate{}, false, ErrNotFound
	}
	if err != nil {
		return model.Candidate{}, false, fmt.Errorf("get video %s: %w", id, err)
	}
	return row.toCandidate(model.KindVideo), row.HasLiked, nil
}
