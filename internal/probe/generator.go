package probe

import (
	"database/sql"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/goccy/go-json"

	"github.com/okian/vitrine/internal/adapters/repository"
)

// CatalogSize controls the shape of a generated catalog.
type CatalogSize struct {
	Sellers  int
	Buyers   int
	Products int
	Videos   int
	Orders   int
	Likes    int
	Cities   int

	// PromotedShare is the fraction of videos and products with a running promotion.
	PromotedShare float64
}

// DefaultCatalogSize is large enough to fill both feeds.
func DefaultCatalogSize() CatalogSize {
	return CatalogSize{
		Sellers:       10,
		Buyers:        40,
		Products:      200,
		Videos:        120,
		Orders:        150,
		Likes:         400,
		Cities:        5,
		PromotedShare: 0.05,
	}
}

var categoryNames = []string{"moda", "eletronicos", "casa", "beleza", "esportes", "livros"}

type shippingCity struct {
	CityID int     `json:"city_id"`
	Price  float64 `json:"price"`
}

// Generate builds a reproducible synthetic catalog. Seller accounts take ids
// 1..Sellers and buyers follow; every seller owns exactly one store.
func Generate(size CatalogSize, seed uint64, now time.Time) (repository.SeedData, error) {
	if size.Sellers < 1 || size.Buyers < 1 || size.Cities < 1 {
		return repository.SeedData{}, fmt.Errorf("%w: sellers, buyers and cities must be positive", ErrInvalidConfig)
	}
	if size.Videos > 0 && size.Products < 1 {
		return repository.SeedData{}, fmt.Errorf("%w: videos need at least one product", ErrInvalidConfig)
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	var d repository.SeedData

	users := size.Sellers + size.Buyers
	for i := 1; i <= users; i++ {
		d.Users = append(d.Users, repository.UserRow{
			ID:             int64(i),
			Name:           fmt.Sprintf("user-%d", i),
			City:           fmt.Sprint(1 + rng.IntN(size.Cities)),
			PendingBalance: float64(rng.IntN(200)),
		})
	}
	for i := 1; i <= size.Sellers; i++ {
		d.Stores = append(d.Stores, repository.StoreRow{ID: int64(i), SellerID: int64(i), Name: fmt.Sprintf("loja-%d", i)})
	}
	for i, name := range categoryNames {
		cat := int64(i + 1)
		d.Categories = append(d.Categories, repository.CategoryRow{ID: cat, Name: name})
		d.Subcategories = append(d.Subcategories, repository.SubcategoryRow{ID: cat * 10, CategoryID: cat, Name: name + "-geral"})
	}

	promotion := func() (bool, sql.NullTime) {
		if rng.Float64() >= size.PromotedShare {
			return false, sql.NullTime{}
		}
		return true, sql.NullTime{Time: now.Add(time.Duration(1+rng.IntN(7)) * 24 * time.Hour), Valid: true}
	}
	age := func() time.Time {
		return now.Add(-time.Duration(rng.IntN(30*24)) * time.Hour)
	}

	for i := 1; i <= size.Products; i++ {
		cat := int64(1 + rng.IntN(len(categoryNames)))
		promoted, ends := promotion()
		opts, err := shippingOptions(rng, size.Cities)
		if err != nil {
			return repository.SeedData{}, err
		}
		d.Products = append(d.Products, repository.ProductRow{
			ID:               int64(i),
			SellerID:         int64(1 + rng.IntN(size.Sellers)),
			Name:             fmt.Sprintf("produto-%d", i),
			Price:            float64(5+rng.IntN(500)) + 0.9,
			ImageURL:         fmt.Sprintf("https://cdn.example.com/p/%d.jpg", i),
			CategoryID:       cat,
			SubcategoryID:    cat * 10,
			ViewsCount:       int64(rng.IntN(1000)),
			IsActive:         rng.Float64() > 0.05,
			IsPromoted:       promoted,
			PromotionEndDate: ends,
			ShippingOptions:  opts,
			CreatedAt:        age(),
		})
	}

	for i := 1; i <= size.Videos; i++ {
		views := int64(rng.IntN(5000))
		clicks := int64(0)
		if views > 0 {
			clicks = rng.Int64N(views/4 + 1)
		}
		promoted, ends := promotion()
		d.Videos = append(d.Videos, repository.VideoRow{
			ID:                     int64(i),
			StoreID:                int64(1 + rng.IntN(size.Sellers)),
			ProductID:              int64(1 + rng.IntN(size.Products)),
			VideoURL:               fmt.Sprintf("https://cdn.example.com/v/%d.mp4", i),
			ViewsCount:             views,
			LikesCount:             rng.Int64N(views/2 + 1),
			ProductClicksCount:     clicks,
			AdAttributedSalesCount: rng.Int64N(clicks/3 + 1),
			IsActive:               true,
			IsPromoted:             promoted,
			PromotionEndDate:       ends,
			CreatedAt:              age(),
		})
	}

	if size.Products > 0 {
		for i := 1; i <= size.Orders; i++ {
			d.Orders = append(d.Orders, repository.OrderRow{
				ID:        int64(i),
				BuyerID:   int64(size.Sellers + 1 + rng.IntN(size.Buyers)),
				CreatedAt: age(),
			})
			d.OrderItems = append(d.OrderItems, repository.OrderItemRow{
				OrderID:   int64(i),
				ProductID: int64(1 + rng.IntN(size.Products)),
				Quantity:  int64(1 + rng.IntN(3)),
			})
		}
	}

	if size.Videos > 0 {
		liked := make(map[[2]int64]struct{}, size.Likes)
		for range size.Likes {
			key := [2]int64{int64(1 + rng.IntN(size.Videos)), int64(1 + rng.IntN(users))}
			if _, dup := liked[key]; dup {
				continue
			}
			liked[key] = struct{}{}
			d.Likes = append(d.Likes, repository.LikeRow{VideoID: key[0], UserID: key[1]})
		}
	}

	return d, nil
}

// shippingOptions returns a JSON list of cities, occasionally left unknown.
func shippingOptions(rng *rand.Rand, cities int) (sql.NullString, error) {
	if rng.IntN(10) == 0 {
		return sql.NullString{}, nil
	}
	n := 1 + rng.IntN(cities)
	opts := make([]shippingCity, 0, n)
	for _, c := range rng.Perm(cities)[:n] {
		opts = append(opts, shippingCity{CityID: c + 1, Price: float64(rng.IntN(30))})
	}
	raw, err := json.Marshal(opts)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode shipping options: %w", err)
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}
