package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/okian/vitrine/internal/domain/model"
)

// counterColumns whitelists the columns IncrementCounter may touch.
var counterColumns = map[model.Kind]map[model.Counter]string{
	model.KindVideo: {
		model.CounterViews:           "views_count",
		model.CounterLikes:           "likes_count",
		model.CounterConversions:     "product_clicks_count",
		model.CounterAttributedSales: "ad_attributed_sales_count",
	},
	model.KindProduct: {
		model.CounterViews: "views_count",
	},
}

var kindTables = map[model.Kind]string{
	model.KindVideo:   "fy_videos",
	model.KindProduct: "products",
}

// IncrementCounter adds one to counter and returns the new value.
func (s *Store) IncrementCounter(ctx context.Context, kind model.Kind, id string, counter model.Counter) (int64, error) {
	defer observe("increment_counter", time.Now())

	col, ok := counterColumns[kind][counter]
	if !ok {
		return 0, fmt.Errorf("%w: %s.%s", ErrInvalidCounter, kind, counter)
	}
	q := fmt.Sprintf(`UPDATE %s SET %s = %s + 1 WHERE id = ? RETURNING %s`, kindTables[kind], col, col, col)

	var n int64
	err := s.db.QueryRowxContext(ctx, s.db.Rebind(q), id).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("increment %s.%s for %s: %w", kind, counter, id, err)
	}
	return n, nil
}

// withTx runs fn in a transaction, committing on nil and rolling back otherwise.
func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ToggleLike likes the video for userID, or removes an existing like.
func (s *Store) ToggleLike(ctx context.Context, videoID, userID string) (model.LikeResult, error) {
	defer observe("toggle_like", time.Now())

	var res model.LikeResult
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var likes int64
		err := tx.GetContext(ctx, &likes, tx.Rebind(`SELECT likes_count FROM fy_videos WHERE id = ? AND is_active = TRUE`), videoID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load video %s: %w", videoID, err)
		}

		var existing int
		if err := tx.GetContext(ctx, &existing,
			tx.Rebind(`SELECT COUNT(*) FROM fy_likes WHERE video_id = ? AND user_id = ?`), videoID, userID); err != nil {
			return fmt.Errorf("load like: %w", err)
		}

		if existing > 0 {
			if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM fy_likes WHERE video_id = ? AND user_id = ?`), videoID, userID); err != nil {
				return fmt.Errorf("delete like: %w", err)
			}
			if _, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE fy_videos SET likes_count = likes_count - 1 WHERE id = ? AND likes_count > 0`), videoID); err != nil {
				return fmt.Errorf("decrement likes: %w", err)
			}
		} else {
			if _, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO fy_likes (video_id, user_id) VALUES (?, ?)`), videoID, userID); err != nil {
				return fmt.Errorf("insert like: %w", err)
			}
			if _, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE fy_videos SET likes_count = likes_count + 1 WHERE id = ?`), videoID); err != nil {
				return fmt.Errorf("increment likes: %w", err)
			}
			res.Liked = true
		}

		return tx.GetContext(ctx, &res.LikesCount, tx.Rebind(`SELECT likes_count FROM fy_videos WHERE id = ?`), videoID)
	})
	if err != nil {
		return model.LikeResult{}, err
	}
	return res, nil
}

type ownerRow struct {
	SellerID string       `db:"seller_id"`
	Balance  float64      `db:"pending_balance"`
	Promoted bool         `db:"is_promoted"`
	EndsAt   sql.NullTime `db:"promotion_end_date"`
}

// Promote charges the seller days*dailyCost and marks the item promoted
// until now+days. Items the seller does not own report ErrNotFound.
func (s *Store) Promote(ctx context.Context, kind model.Kind, id, sellerID string, days int, dailyCost float64) (model.Promotion, error) {
	defer observe("promote", time.Now())

	var ownerQ, updateQ string
	switch kind {
	case model.KindVideo:
		ownerQ = `SELECT s.seller_id, u.pending_balance, v.is_promoted, v.promotion_end_date
			FROM fy_videos v JOIN stores s ON v.store_id = s.id JOIN users u ON s.seller_id = u.id
			WHERE v.id = ?`
		updateQ = `UPDATE fy_videos SET is_promoted = TRUE, promotion_end_date = ?, daily_budget = ? WHERE id = ?`
	case model.KindProduct:
		ownerQ = `SELECT p.seller_id, u.pending_balance, p.is_promoted, p.promotion_end_date
			FROM products p JOIN users u ON p.seller_id = u.id
			WHERE p.id = ?`
		updateQ = `UPDATE products SET is_promoted = TRUE, promotion_end_date = ? WHERE id = ?`
	default:
		return model.Promotion{}, fmt.Errorf("promote: unknown kind %q", kind)
	}

	cost := float64(days) * dailyCost
	now := s.now().UTC()

	var promo model.Promotion
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		var owner ownerRow
		err := tx.GetContext(ctx, &owner, tx.Rebind(ownerQ), id)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && owner.SellerID != sellerID) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load owner of %s %s: %w", kind, id, err)
		}
		if owner.Balance < cost {
			return fmt.Errorf("%w: need %.2f, have %.2f", ErrInsufficientBalance, cost, owner.Balance)
		}

		// A product promotion still running is extended from its end date.
		from := now
		if kind == model.KindProduct && owner.Promoted && owner.EndsAt.Valid && owner.EndsAt.Time.After(now) {
			from = owner.EndsAt.Time.UTC()
		}
		endsAt := from.Add(time.Duration(days) * 24 * time.Hour)

		if _, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE users SET pending_balance = pending_balance - ? WHERE id = ?`), cost, sellerID); err != nil {
			return fmt.Errorf("debit seller %s: %w", sellerID, err)
		}

		args := []any{endsAt, id}
		if kind == model.KindVideo {
			args = []any{endsAt, dailyCost, id}
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(updateQ), args...); err != nil {
			return fmt.Errorf("promote %s %s: %w", kind, id, err)
		}

		promo = model.Promotion{
			Kind:      kind,
			ID:        id,
			Days:      days,
			Cost:      cost,
			EndsAt:    endsAt,
			Remaining: owner.Balance - cost,
		}
		return nil
	})
	if err != nil {
		return model.Promotion{}, err
	}
	return promo, nil
}
