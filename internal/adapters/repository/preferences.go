package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/okian/vitrine/internal/domain/model"
)

type likedRow struct {
	VideoID    string         `db:"video_id"`
	CategoryID sql.NullString `db:"category_id"`
}

// VideoPreferences returns the viewer's liked videos and the categories of
// the products those videos sell.
func (s *Store) VideoPreferences(ctx context.Context, viewerID string) (model.Profile, error) {
	if viewerID == "" {
		return model.AnonymousProfile(), nil
	}
	defer observe("video_preferences", time.Now())

	const q = `
		SELECT fl.video_id, sc.category_id
		FROM fy_likes fl
		JOIN fy_videos v ON fl.video_id = v.id
		LEFT JOIN products p ON v.product_id = p.id
		LEFT JOIN subcategories sc ON p.subcategory_id = sc.id
		WHERE fl.user_id = ?`

	var rows []likedRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(q), viewerID); err != nil {
		return model.AnonymousProfile(), fmt.Errorf("video preferences for %s: %w", viewerID, err)
	}

	p := model.AnonymousProfile()
	p.ViewerID = viewerID
	for _, r := range rows {
		p.AddLiked(r.VideoID)
		p.AddCategories(r.CategoryID.String)
	}
	return p, nil
}

type purchaseRow struct {
	CategoryID    sql.NullString `db:"category_id"`
	SubcategoryID sql.NullString `db:"subcategory_id"`
}

// ProductPreferences returns the category and subcategory ids of the
// viewer's most recent distinct purchases.
func (s *Store) ProductPreferences(ctx context.Context, viewerID string) (model.Profile, error) {
	if viewerID == "" {
		return model.AnonymousProfile(), nil
	}
	defer observe("product_preferences", time.Now())

	const q = `
		SELECT p.category_id, p.subcategory_id
		FROM order_items oi
		JOIN products p ON oi.product_id = p.id
		JOIN orders o ON oi.order_id = o.id
		WHERE o.buyer_id = ?
		GROUP BY p.category_id, p.subcategory_id
		ORDER BY MAX(o.created_at) DESC
		LIMIT ?`

	var rows []purchaseRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(q), viewerID, s.purchaseHistory); err != nil {
		return model.AnonymousProfile(), fmt.Errorf("product preferences for %s: %w", viewerID, err)
	}

	p := model.AnonymousProfile()
	p.ViewerID = viewerID
	for _, r := range rows {
		p.AddCategories(r.CategoryID.String)
		p.AddSubcategories(r.SubcategoryID.String)
	}
	return p, nil
}
