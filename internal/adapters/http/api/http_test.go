package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/vitrine/internal/adapters/http/api"
	service "github.com/okian/vitrine/internal/app"
	"github.com/okian/vitrine/internal/domain/model"
	"github.com/okian/vitrine/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const secret = "test-secret"

type mockDeps struct {
	lastViewer string
	lastRegion string
	lastDays   int
	feedErr    error
}

func (m *mockDeps) GetFeed(_ context.Context, viewerID string, _ time.Time) (model.VideoFeed, error) {
	m.lastViewer = viewerID
	if m.feedErr != nil {
		return model.VideoFeed{}, m.feedErr
	}
	v := model.ScoredCandidate{Candidate: model.Candidate{ID: "v1", Kind: model.KindVideo}}
	return model.VideoFeed{Videos: []model.ScoredCandidate{v}, Personalized: viewerID != ""}, nil
}

func (m *mockDeps) GetSmartFeed(_ context.Context, viewerID, region string) (model.ProductFeed, error) {
	m.lastViewer, m.lastRegion = viewerID, region
	return model.ProductFeed{Products: []model.ScoredCandidate{}}, nil
}

func (m *mockDeps) GetVideo(_ context.Context, id, _ string) (service.VideoDetail, error) {
	if id != "v1" {
		return service.VideoDetail{}, service.ErrNotFound
	}
	return service.VideoDetail{Candidate: model.Candidate{ID: id}, HasLiked: true}, nil
}

func (m *mockDeps) RecordView(_ context.Context, _, viewerID string) (int64, error) {
	m.lastViewer = viewerID
	return 11, nil
}

func (m *mockDeps) RecordProductClick(context.Context, string) (int64, error) { return 3, nil }

func (m *mockDeps) RecordAttributedSale(_ context.Context, id string) (int64, error) {
	if id == "missing" {
		return 0, service.ErrNotFound
	}
	return 1, nil
}

func (m *mockDeps) ToggleLike(_ context.Context, _, viewerID string) (model.LikeResult, error) {
	m.lastViewer = viewerID
	return model.LikeResult{Liked: true, LikesCount: 5}, nil
}

func (m *mockDeps) Promote(_ context.Context, kind model.Kind, id, sellerID string, days int) (model.Promotion, error) {
	m.lastViewer, m.lastDays = sellerID, days
	if id == "poor" {
		return model.Promotion{}, service.ErrInsufficientBalance
	}
	return model.Promotion{Kind: kind, ID: id, Days: days, Cost: 5 * float64(days)}, nil
}

func (m *mockDeps) Analytics(context.Context) (model.Analytics, error) {
	return model.Analytics{TopSold: []model.RankedItem{{ID: "p1", Value: 9}}}, nil
}

type mockStats struct{}

func (mockStats) GetStats() map[string]any { return map[string]any{"started": true} }

func newRouter(deps *mockDeps, opts ...api.Option) (http.Handler, *api.Authenticator) {
	srv := api.NewServer(deps, mockStats{}, append([]api.Option{api.WithJWTSecret(secret)}, opts...)...)
	return srv.Router(), srv.Authenticator()
}

func do(h http.Handler, method, path, token, body string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func TestRouter(t *testing.T) {
	Convey("Given the API router", t, func() {
		deps := &mockDeps{}
		h, auth := newRouter(deps)
		token, err := auth.Issue("7", time.Hour)
		So(err, ShouldBeNil)

		Convey("When probing operational endpoints", func() {
			w, _ := do(h, http.MethodGet, "/healthz", "", "")
			So(w.Code, ShouldEqual, http.StatusOK)

			w, body := do(h, http.MethodGet, "/stats", "", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(body["started"], ShouldEqual, true)
			So(body, ShouldContainKey, "uptimeSeconds")
		})

		Convey("When an anonymous viewer asks for the Fy feed", func() {
			w, body := do(h, http.MethodGet, "/api/fy", "", "")

			Convey("Then the global feed should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(body["success"], ShouldEqual, true)
				So(body["personalized"], ShouldEqual, false)
				So(len(body["videos"].([]any)), ShouldEqual, 1)
				So(deps.lastViewer, ShouldEqual, "")
			})
		})

		Convey("When a signed-in viewer asks for the Fy feed", func() {
			_, body := do(h, http.MethodGet, "/api/fy", token, "")

			So(body["personalized"], ShouldEqual, true)
			So(deps.lastViewer, ShouldEqual, "7")
		})

		Convey("When the token is invalid on an optional route", func() {
			w, body := do(h, http.MethodGet, "/api/fy", "garbage", "")

			Convey("Then the request should degrade to anonymous", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(body["personalized"], ShouldEqual, false)
			})
		})

		Convey("When the token carries a numeric id", func() {
			numeric, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
				"id":  42,
				"exp": time.Now().Add(time.Hour).Unix(),
			}).SignedString([]byte(secret))
			So(err, ShouldBeNil)

			do(h, http.MethodGet, "/api/fy", numeric, "")
			So(deps.lastViewer, ShouldEqual, "42")
		})

		Convey("When the token has expired", func() {
			expired, err := auth.Issue("7", -time.Minute)
			So(err, ShouldBeNil)

			w, _ := do(h, http.MethodPost, "/api/fy/v1/like-toggle", expired, "")
			So(w.Code, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("When candidates cannot be loaded", func() {
			deps.feedErr = errors.New("connection refused to 10.0.0.1")
			w, body := do(h, http.MethodGet, "/api/fy", "", "")

			Convey("Then a generic internal error should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(body["success"], ShouldEqual, false)
				So(body["code"], ShouldEqual, "internal_error")
				So(body["message"], ShouldNotContainSubstring, "10.0.0.1")
			})
		})

		Convey("When fetching videos", func() {
			w, body := do(h, http.MethodGet, "/api/fy/v1", "", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(body["video"].(map[string]any)["has_liked"], ShouldEqual, true)

			w, body = do(h, http.MethodGet, "/api/fy/nope", "", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(body["code"], ShouldEqual, "not_found")
		})

		Convey("When recording engagement", func() {
			w, body := do(h, http.MethodPost, "/api/fy/v1/view", token, "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(body["new_views_count"], ShouldEqual, 11.0)
			So(deps.lastViewer, ShouldEqual, "7")

			w, body = do(h, http.MethodPost, "/api/fy/v1/product-click", "", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(body["count"], ShouldEqual, 3.0)

			w, _ = do(h, http.MethodPost, "/api/fy/missing/sales-attributed", "", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When toggling a like", func() {
			w, _ := do(h, http.MethodPost, "/api/fy/v1/like-toggle", "", "")
			So(w.Code, ShouldEqual, http.StatusUnauthorized)

			w, body := do(h, http.MethodPost, "/api/fy/v1/like-toggle", token, "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(body["liked"], ShouldEqual, true)
			So(body["new_likes_count"], ShouldEqual, 5.0)
		})

		Convey("When promoting", func() {
			w, _ := do(h, http.MethodPost, "/api/fy/v1/promote", token, `{"days": 0}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)

			w, _ = do(h, http.MethodPost, "/api/fy/v1/promote", token, `not json`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)

			w, body := do(h, http.MethodPost, "/api/products/p1/promote", token, `{"days": 3}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(body["kind"], ShouldEqual, "product")
			So(body["cost"], ShouldEqual, 15.0)
			So(deps.lastDays, ShouldEqual, 3)
			So(deps.lastViewer, ShouldEqual, "7")

			w, body = do(h, http.MethodPost, "/api/fy/poor/promote", token, `{"days": 1}`)
			So(w.Code, ShouldEqual, http.StatusPaymentRequired)
			So(body["code"], ShouldEqual, "insufficient_balance")
		})

		Convey("When reading the smart feed and analytics", func() {
			w, body := do(h, http.MethodGet, "/api/smart-feed?city_id=9", "", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(body["products"], ShouldNotBeNil)
			So(deps.lastRegion, ShouldEqual, "9")

			w, body = do(h, http.MethodGet, "/api/analytics-data", "", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(len(body["top_sold"].([]any)), ShouldEqual, 1)
		})

		Convey("When a browser sends a preflight request", func() {
			req := httptest.NewRequest(http.MethodOptions, "/api/fy", http.NoBody)
			req.Header.Set("Origin", "https://shop.example")
			req.Header.Set("Access-Control-Request-Method", http.MethodGet)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			So(w.Header().Get("Access-Control-Allow-Origin"), ShouldEqual, "*")
		})
	})
}

func TestRateLimit(t *testing.T) {
	Convey("Given a router with a tiny rate limit", t, func() {
		h, _ := newRouter(&mockDeps{}, api.WithRateLimit(2, time.Minute))

		for range 2 {
			w, _ := do(h, http.MethodGet, "/api/fy", "", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		}
		w, body := do(h, http.MethodGet, "/api/fy", "", "")

		Convey("Then the next request should be rejected with the envelope", func() {
			So(w.Code, ShouldEqual, http.StatusTooManyRequests)
			So(body["code"], ShouldEqual, "rate_limited")
		})

		Convey("Then operational endpoints should stay reachable", func() {
			w, _ := do(h, http.MethodGet, "/stats", "", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})
	})
}

func TestAuthenticator(t *testing.T) {
	Convey("Given an authenticator without a secret", t, func() {
		a := api.NewAuthenticator("")

		_, err := a.Issue("1", time.Hour)
		So(errors.Is(err, api.ErrUnauthorized), ShouldBeTrue)
		_, err = a.Verify("anything")
		So(errors.Is(err, api.ErrUnauthorized), ShouldBeTrue)
	})

	Convey("Given a token signed with another key", t, func() {
		other, err := api.NewAuthenticator("other").Issue("1", time.Hour)
		So(err, ShouldBeNil)

		_, err = api.NewAuthenticator(secret).Verify(other)
		So(errors.Is(err, api.ErrUnauthorized), ShouldBeTrue)
	})
}
