package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/okian/vitrine/internal/config"
	"github.com/okian/vitrine/internal/domain/ranking"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigNew(t *testing.T) {
	convey.Convey("Given a new config with defaults", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.DBDriver, convey.ShouldEqual, "sqlite3")
			convey.So(cfg.EventQueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU()*2)
			convey.So(cfg.FeedbackTopK, convey.ShouldEqual, 20)
			convey.So(cfg.DailyPromotionCost, convey.ShouldEqual, 5.0)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then the derived ranking config should equal the domain defaults", func() {
			convey.So(cfg.Ranking(), convey.ShouldResemble, ranking.DefaultConfig())
		})
	})
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars(t)

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.LikeRateMode, convey.ShouldEqual, "corrected")
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			t.Setenv("VITRINE_ADDR", ":8080")
			t.Setenv("VITRINE_QUEUE_SIZE", "500")
			t.Setenv("VITRINE_WORKER_COUNT", "3")
			t.Setenv("VITRINE_LIKE_RATE_MODE", "legacy")
			t.Setenv("VITRINE_VIDEO_RECENCY_HORIZON", "72h")
			t.Setenv("VITRINE_PROMOTION_INTERVAL", "4")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.EventQueueSize, convey.ShouldEqual, 500)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 3)
				convey.So(cfg.Ranking().LikeRateMode, convey.ShouldEqual, ranking.LikeRateLegacy)
				convey.So(cfg.Ranking().VideoRecencyHorizon, convey.ShouldEqual, 72*time.Hour)
				convey.So(cfg.Ranking().VideoAssembly.PromotionInterval, convey.ShouldEqual, 4)
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			path := writeConfigFile(t, `
addr: ":9090"
db_driver: pgx
db_dsn: postgres://localhost/vitrine
product_target_size: 40
off_region_factor: 0.25
`)
			t.Setenv("VITRINE_CONFIG", path)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from the file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.DBDriver, convey.ShouldEqual, "pgx")
				convey.So(cfg.Ranking().ProductAssembly.TargetSize, convey.ShouldEqual, 40)
				convey.So(cfg.Ranking().OffRegionFactor, convey.ShouldEqual, 0.25)
			})

			convey.Convey("And env vars should win over the file", func() {
				t.Setenv("VITRINE_ADDR", ":7070")
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
			})
		})

		convey.Convey("When the config file does not exist", func() {
			t.Setenv("VITRINE_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

			_, err := config.Load(ctx)

			convey.Convey("Then it should fail with a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When video weights do not sum to one", func() {
			t.Setenv("VITRINE_VIDEO_WEIGHT_LIKE", "0.9")

			_, err := config.Load(ctx)

			convey.Convey("Then it should fail validation", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(errors.Is(err, ranking.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the driver is unsupported", func() {
			t.Setenv("VITRINE_DB_DRIVER", "oracle")

			_, err := config.Load(ctx)

			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When an environment label is configured", func() {
			t.Setenv("VITRINE_ENVIRONMENT", "staging")
			t.Setenv("VITRINE_METRICS_REFRESH_INTERVAL", "2s")

			cfg, err := config.Load(ctx)

			convey.Convey("Then metrics options should include it", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.MetricsRefreshInterval, convey.ShouldEqual, 2*time.Second)
				convey.So(len(cfg.Metrics()), convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When the metrics refresh interval is zero", func() {
			t.Setenv("VITRINE_METRICS_REFRESH_INTERVAL", "0s")

			_, err := config.Load(ctx)

			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the queue size is zero", func() {
			t.Setenv("VITRINE_QUEUE_SIZE", "0")

			_, err := config.Load(ctx)

			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "queue_size")
		})
	})
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vitrine.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// clearConfigEnvVars unsets VITRINE_* variables; t.Setenv restores them
// when the test ends.
func clearConfigEnvVars(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, "VITRINE_") {
			t.Setenv(key, "")
			_ = os.Unsetenv(key)
		}
	}
}
