// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/okian/vitrine/internal/adapters/http/swagger"
	service "github.com/okian/vitrine/internal/app"
	"github.com/okian/vitrine/internal/domain/model"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	GetFeed(ctx context.Context, viewerID string, now time.Time) (model.VideoFeed, error)
	GetSmartFeed(ctx context.Context, viewerID, region string) (model.ProductFeed, error)
	GetVideo(ctx context.Context, id, viewerID string) (service.VideoDetail, error)
	RecordView(ctx context.Context, videoID, viewerID string) (int64, error)
	RecordProductClick(ctx context.Context, videoID string) (int64, error)
	RecordAttributedSale(ctx context.Context, videoID string) (int64, error)
	ToggleLike(ctx context.Context, videoID, viewerID string) (model.LikeResult, error)
	Promote(ctx context.Context, kind model.Kind, id, sellerID string, days int) (model.Promotion, error)
	Analytics(ctx context.Context) (model.Analytics, error)
}

// Server wires HTTP routes for the feed API.
type Server struct {
	deps     Dependencies
	stats    StatsProvider
	auth     *Authenticator
	validate *validator.Validate

	rateLimit  int
	rateWindow time.Duration
	now        func() time.Time
	started    time.Time
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithJWTSecret enables bearer-token identity.
func WithJWTSecret(secret string) Option {
	return func(s *Server) {
		s.auth = NewAuthenticator(secret)
	}
}

// WithRateLimit sets the per-IP request budget on /api.
func WithRateLimit(requests int, window time.Duration) Option {
	return func(s *Server) {
		if requests > 0 && window > 0 {
			s.rateLimit, s.rateWindow = requests, window
		}
	}
}

// WithClock overrides the time source used for feed ranking.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, stats StatsProvider, opts ...Option) *Server {
	s := &Server{
		deps:       deps,
		stats:      stats,
		auth:       NewAuthenticator(""),
		validate:   validator.New(),
		rateLimit:  100,
		rateWindow: time.Minute,
		now:        time.Now,
		started:    time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Authenticator exposes the token verifier, mainly for issuing test tokens.
func (s *Server) Authenticator() *Authenticator { return s.auth }

// Router builds the chi handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(MetricsMiddleware)

	r.Method(http.MethodGet, "/healthz", healthHandler())
	r.Get("/stats", s.handleStats)
	swagger.Register(r)

	r.Route("/api", func(r chi.Router) {
		r.Use(httprate.Limit(s.rateLimit, s.rateWindow,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				writeError(w, r, Wrap("api.rate_limit", ErrRateLimited))
			}),
		))

		r.Group(func(r chi.Router) {
			r.Use(s.auth.Optional)
			r.Get("/fy", s.handleFeed)
			r.Get("/fy/{id}", s.handleGetVideo)
			r.Post("/fy/{id}/view", s.handleView)
			r.Get("/smart-feed", s.handleSmartFeed)
		})

		r.Post("/fy/{id}/product-click", s.handleProductClick)
		r.Post("/fy/{id}/sales-attributed", s.handleAttributedSale)
		r.Get("/analytics-data", s.handleAnalytics)

		r.Group(func(r chi.Router) {
			r.Use(s.auth.Required)
			r.Post("/fy/{id}/like-toggle", s.handleToggleLike)
			r.Post("/fy/{id}/promote", s.handlePromote(model.KindVideo))
			r.Post("/products/{id}/promote", s.handlePromote(model.KindProduct))
		})
	})
	return r
}
