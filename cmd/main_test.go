package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/vitrine/internal/config"
	"github.com/okian/vitrine/pkg/logger"
)

func testConfig() *config.Config {
	cfg := config.New()
	cfg.DBDSN = fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	cfg.WorkerCount = 2
	cfg.EventQueueSize = 100
	cfg.JWTSecret = "secret"
	return cfg
}

func TestBuild(t *testing.T) {
	convey.Convey("Given a default sqlite configuration", t, func() {
		_ = logger.Init()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		a, err := build(ctx, testConfig())
		convey.So(err, convey.ShouldBeNil)
		defer a.close(ctx)

		convey.So(a.svc.Start(ctx), convey.ShouldBeNil)
		defer func() { _ = a.svc.Stop(ctx) }()

		convey.Convey("When the empty catalog is queried", func() {
			for _, path := range []string{"/api/fy", "/api/smart-feed", "/api/analytics-data", "/stats", "/healthz", "/openapi.yaml"} {
				w := httptest.NewRecorder()
				a.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))

				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			}
		})

		convey.Convey("When an unknown video is viewed", func() {
			w := httptest.NewRecorder()
			a.handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/fy/999/view", http.NoBody))

			convey.So(w.Code, convey.ShouldEqual, http.StatusNotFound)
		})
	})

	convey.Convey("Given an unreachable redis", t, func() {
		_ = logger.Init()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		cfg := testConfig()
		cfg.RedisAddr = "127.0.0.1:1"

		_, err := build(ctx, cfg)
		convey.So(err, convey.ShouldNotBeNil)
		convey.So(err.Error(), convey.ShouldContainSubstring, "redis")
	})

	convey.Convey("Given an unsupported driver", t, func() {
		cfg := testConfig()
		cfg.DBDriver = "oracle"

		_, err := build(context.Background(), cfg)
		convey.So(err, convey.ShouldNotBeNil)
	})
}

func TestMetricsUpdaters(t *testing.T) {
	convey.Convey("Given the metrics updaters", t, func() {
		_ = logger.Init()
		convey.So(updateSystemMetrics, convey.ShouldNotPanic)

		convey.Convey("When the context ends they should return", func() {
			a, err := build(context.Background(), testConfig())
			convey.So(err, convey.ShouldBeNil)
			defer a.close(context.Background())

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
			defer cancel()

			done := make(chan struct{})
			go func() {
				startSystemMetricsUpdater(ctx, 5*time.Millisecond)
				startServiceMetricsUpdater(ctx, a.svc, 5*time.Millisecond)
				close(done)
			}()

			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatal("updaters did not stop")
			}
			convey.So(func() { updateServiceMetrics(a.svc) }, convey.ShouldNotPanic)
		})
	})
}
