package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// UserRow is a buyer or seller account.
type UserRow struct {
	ID             int64   `db:"id"`
	Name           string  `db:"name"`
	City           string  `db:"city"`
	PendingBalance float64 `db:"pending_balance"`
}

// StoreRow is a seller's storefront.
type StoreRow struct {
	ID       int64  `db:"id"`
	SellerID int64  `db:"seller_id"`
	Name     string `db:"name"`
}

// CategoryRow is a product category.
type CategoryRow struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

// SubcategoryRow is a product subcategory.
type SubcategoryRow struct {
	ID         int64  `db:"id"`
	CategoryID int64  `db:"category_id"`
	Name       string `db:"name"`
}

// ProductRow is a catalog product.
type ProductRow struct {
	ID               int64          `db:"id"`
	SellerID         int64          `db:"seller_id"`
	Name             string         `db:"name"`
	Price            float64        `db:"price"`
	ImageURL         string         `db:"image_url"`
	CategoryID       int64          `db:"category_id"`
	SubcategoryID    int64          `db:"subcategory_id"`
	ViewsCount       int64          `db:"views_count"`
	IsActive         bool           `db:"is_active"`
	IsPromoted       bool           `db:"is_promoted"`
	PromotionEndDate sql.NullTime   `db:"promotion_end_date"`
	ShippingOptions  sql.NullString `db:"shipping_options"`
	CreatedAt        time.Time      `db:"created_at"`
}

// VideoRow is a Fy short video.
type VideoRow struct {
	ID                     int64        `db:"id"`
	StoreID                int64        `db:"store_id"`
	ProductID              int64        `db:"product_id"`
	VideoURL               string       `db:"video_url"`
	ViewsCount             int64        `db:"views_count"`
	LikesCount             int64        `db:"likes_count"`
	ProductClicksCount     int64        `db:"product_clicks_count"`
	AdAttributedSalesCount int64        `db:"ad_attributed_sales_count"`
	IsActive               bool         `db:"is_active"`
	IsPromoted             bool         `db:"is_promoted"`
	PromotionEndDate       sql.NullTime `db:"promotion_end_date"`
	CreatedAt              time.Time    `db:"created_at"`
}

// OrderRow is a buyer's order.
type OrderRow struct {
	ID        int64     `db:"id"`
	BuyerID   int64     `db:"buyer_id"`
	CreatedAt time.Time `db:"created_at"`
}

// OrderItemRow is one line of an order.
type OrderItemRow struct {
	OrderID   int64 `db:"order_id"`
	ProductID int64 `db:"product_id"`
	Quantity  int64 `db:"quantity"`
}

// LikeRow is a like on a video.
type LikeRow struct {
	VideoID int64 `db:"video_id"`
	UserID  int64 `db:"user_id"`
}

// SeedData is a catalog snapshot written by Seed. Ids are explicit so
// fixtures can reference each other.
type SeedData struct {
	Users         []UserRow
	Stores        []StoreRow
	Categories    []CategoryRow
	Subcategories []SubcategoryRow
	Products      []ProductRow
	Videos        []VideoRow
	Orders        []OrderRow
	OrderItems    []OrderItemRow
	Likes         []LikeRow
}

const (
	insertUser        = `INSERT INTO users (id, name, city, pending_balance) VALUES (:id, :name, :city, :pending_balance)`
	insertStore       = `INSERT INTO stores (id, seller_id, name) VALUES (:id, :seller_id, :name)`
	insertCategory    = `INSERT INTO categories (id, name) VALUES (:id, :name)`
	insertSubcategory = `INSERT INTO subcategories (id, category_id, name) VALUES (:id, :category_id, :name)`
	insertProduct     = `INSERT INTO products (id, seller_id, name, price, image_url, category_id, subcategory_id,
		views_count, is_active, is_promoted, promotion_end_date, shipping_options, created_at)
		VALUES (:id, :seller_id, :name, :price, :image_url, :category_id, :subcategory_id,
		:views_count, :is_active, :is_promoted, :promotion_end_date, :shipping_options, :created_at)`
	insertVideo = `INSERT INTO fy_videos (id, store_id, product_id, video_url, views_count, likes_count,
		product_clicks_count, ad_attributed_sales_count, is_active, is_promoted, promotion_end_date, created_at)
		VALUES (:id, :store_id, :product_id, :video_url, :views_count, :likes_count,
		:product_clicks_count, :ad_attributed_sales_count, :is_active, :is_promoted, :promotion_end_date, :created_at)`
	insertOrder     = `INSERT INTO orders (id, buyer_id, created_at) VALUES (:id, :buyer_id, :created_at)`
	insertOrderItem = `INSERT INTO order_items (order_id, product_id, quantity) VALUES (:order_id, :product_id, :quantity)`
	insertLike      = `INSERT INTO fy_likes (video_id, user_id) VALUES (:video_id, :user_id)`
)

func namedInsert[T any](ctx context.Context, tx *sqlx.Tx, q, table string, rows []T) error {
	for _, r := range rows {
		if _, err := tx.NamedExecContext(ctx, q, r); err != nil {
			return fmt.Errorf("seed %s: %w", table, err)
		}
	}
	return nil
}

// Seed writes d in one transaction.
func (s *Store) Seed(ctx context.Context, d SeedData) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		steps := []func() error{
			func() error { return namedInsert(ctx, tx, insertUser, "users", d.Users) },
			func() error { return namedInsert(ctx, tx, insertStore, "stores", d.Stores) },
			func() error { return namedInsert(ctx, tx, insertCategory, "categories", d.Categories) },
			func() error { return namedInsert(ctx, tx, insertSubcategory, "subcategories", d.Subcategories) },
			func() error { return namedInsert(ctx, tx, insertProduct, "products", d.Products) },
			func() error { return namedInsert(ctx, tx, insertVideo, "fy_videos", d.Videos) },
			func() error { return namedInsert(ctx, tx, insertOrder, "orders", d.Orders) },
			func() error { return namedInsert(ctx, tx, insertOrderItem, "order_items", d.OrderItems) },
			func() error { return namedInsert(ctx, tx, insertLike, "fy_likes", d.Likes) },
		}
		for _, step := range steps {
			if err := step(); err != nil {
				return err
			}
		}
		return nil
	})
}
