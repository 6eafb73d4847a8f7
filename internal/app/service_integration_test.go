package service_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/vitrine/internal/adapters/mq/queue"
	"github.com/okian/vitrine/internal/adapters/repository"
	"github.com/okian/vitrine/internal/adapters/seen"
	service "github.com/okian/vitrine/internal/app"
	"github.com/okian/vitrine/internal/domain/model"
	"github.com/okian/vitrine/internal/domain/ranking"
)

func seededStore(t *testing.T) *repository.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	s, err := repository.Open(context.Background(), repository.DriverSQLite, dsn,
		repository.WithAutoMigrate(true),
		repository.WithClock(func() time.Time { return now }),
	)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	ends := sql.NullTime{Time: now.Add(48 * time.Hour), Valid: true}
	data := repository.SeedData{
		Users:         []repository.UserRow{{ID: 1, Name: "seller", PendingBalance: 50}, {ID: 2, Name: "buyer"}},
		Stores:        []repository.StoreRow{{ID: 1, SellerID: 1, Name: "Loja"}},
		Categories:    []repository.CategoryRow{{ID: 1, Name: "moda"}},
		Subcategories: []repository.SubcategoryRow{{ID: 10, CategoryID: 1, Name: "camisetas"}},
		Products: []repository.ProductRow{
			{ID: 100, SellerID: 1, Name: "Camiseta", Price: 50, CategoryID: 1, SubcategoryID: 10,
				ViewsCount: 10, IsActive: true, CreatedAt: now},
		},
	}
	for i := range 8 {
		v := repository.VideoRow{
			ID: int64(1000 + i), StoreID: 1, ProductID: 100, VideoURL: "https://cdn/v.mp4",
			ViewsCount: 10, IsActive: true, CreatedAt: now.Add(-time.Duration(i) * time.Hour),
		}
		if i == 7 {
			v.IsPromoted, v.PromotionEndDate = true, ends
		}
		data.Videos = append(data.Videos, v)
	}
	if err := s.Seed(context.Background(), data); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return s
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a service over a seeded sqlite catalog", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		store := seededStore(t)
		q := queue.NewInMemoryQueue(queue.WithCapacity(100))
		svc := service.New(store, seen.NewMemoryStore(), q, ranking.DefaultConfig(),
			service.WithClock(func() time.Time { return now }),
			service.WithWorkerCount(1),
		)

		Convey("When the Fy feed is requested", func() {
			feed, err := svc.GetFeed(ctx, "", now)

			Convey("Then the promoted video should lead and nothing should repeat", func() {
				So(err, ShouldBeNil)
				So(len(feed.Videos), ShouldEqual, 8)
				So(feed.Videos[0].ID, ShouldEqual, "1007")
				seenIDs := map[string]bool{}
				for _, v := range feed.Videos {
					So(seenIDs[v.ID], ShouldBeFalse)
					seenIDs[v.ID] = true
				}
			})
		})

		Convey("When a viewer likes and then views a video", func() {
			res, err := svc.ToggleLike(ctx, "1001", "2")
			So(err, ShouldBeNil)
			So(res.Liked, ShouldBeTrue)
			_, err = svc.RecordView(ctx, "1002", "2")
			So(err, ShouldBeNil)

			feed, err := svc.GetFeed(ctx, "2", now)

			Convey("Then the liked video should be backfilled last and the seen one dropped", func() {
				So(err, ShouldBeNil)
				So(len(feed.Videos), ShouldEqual, 7)
				last := feed.Videos[len(feed.Videos)-1]
				So(last.ID, ShouldEqual, "1001")
				So(last.HasLiked, ShouldBeTrue)
				for _, v := range feed.Videos {
					So(v.ID, ShouldNotEqual, "1002")
				}
			})
		})

		Convey("When the smart feed is served and the service drains", func() {
			So(svc.Start(ctx), ShouldBeNil)
			feed, err := svc.GetSmartFeed(ctx, "", "")
			So(err, ShouldBeNil)
			So(len(feed.Products), ShouldEqual, 1)
			So(svc.Stop(ctx), ShouldBeNil)

			Convey("Then the product views counter should have moved", func() {
				products, err := store.ActiveCandidates(ctx, repository.Filter{Kind: model.KindProduct})
				So(err, ShouldBeNil)
				So(products[0].Views, ShouldEqual, 11)
			})
		})

		Convey("When the seller promotes a video", func() {
			p, err := svc.Promote(ctx, model.KindVideo, "1000", "1", 3)

			Convey("Then the balance should be debited", func() {
				So(err, ShouldBeNil)
				So(p.Cost, ShouldEqual, 15.0)
				So(p.Remaining, ShouldEqual, 35.0)
			})
		})
	})
}
