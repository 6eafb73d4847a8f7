package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/vitrine/internal/domain/model"
)

const productStatsQuery = `
	SELECT id, title, store_name, views, conversions FROM (
		SELECT p.id, p.name AS title, COALESCE(s.name, '') AS store_name,
		       p.views_count AS views,
		       (SELECT COALESCE(SUM(oi.quantity), 0) FROM order_items oi WHERE oi.product_id = p.id) AS conversions
		FROM products p
		LEFT JOIN stores s ON p.seller_id = s.seller_id
		WHERE p.is_active = TRUE
	) t
	WHERE views >= ?
	ORDER BY %s DESC, id
	LIMIT ?`

type statsRow struct {
	ID          string `db:"id"`
	Title       string `db:"title"`
	StoreName   string `db:"store_name"`
	Views       int64  `db:"views"`
	Conversions int64  `db:"conversions"`
}

func (s *Store) topProducts(ctx context.Context, orderBy string, minViews int64, value func(statsRow) float64) ([]model.RankedItem, error) {
	var rows []statsRow
	q := s.db.Rebind(fmt.Sprintf(productStatsQuery, orderBy))
	if err := s.db.SelectContext(ctx, &rows, q, minViews, s.analyticsLimit); err != nil {
		return nil, err
	}
	out := make([]model.RankedItem, len(rows))
	for i, r := range rows {
		var rate float64
		if r.Views > 0 {
			rate = float64(r.Conversions) / float64(r.Views)
		}
		out[i] = model.RankedItem{
			ID:             r.ID,
			Title:          r.Title,
			StoreName:      r.StoreName,
			Views:          r.Views,
			Conversions:    r.Conversions,
			ConversionRate: rate,
			Value:          value(r),
		}
	}
	return out, nil
}

// Analytics returns the top sold, top viewed and best converting products.
// Conversion ranking ignores products with too few views to judge.
func (s *Store) Analytics(ctx context.Context) (model.Analytics, error) {
	defer observe("analytics", time.Now())

	var (
		a   model.Analytics
		err error
	)
	a.TopSold, err = s.topProducts(ctx, "conversions", 0, func(r statsRow) float64 { return float64(r.Conversions) })
	if err != nil {
		return model.Analytics{}, fmt.Errorf("top sold: %w", err)
	}
	a.TopViewed, err = s.topProducts(ctx, "views", 0, func(r statsRow) float64 { return float64(r.Views) })
	if err != nil {
		return model.Analytics{}, fmt.Errorf("top viewed: %w", err)
	}
	a.TopConversion, err = s.topProducts(ctx, "CAST(conversions AS REAL) / views", s.minConversionViews+1,
		func(r statsRow) float64 { return float64(r.Conversions) / float64(r.Views) * 100 })
	if err != nil {
		return model.Analytics{}, fmt.Errorf("top conversion: %w", err)
	}
	return a, nil
}
