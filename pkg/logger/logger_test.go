package logger

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		Convey("When initialized with defaults", func() {
			So(Init(), ShouldBeNil)

			Convey("Then Get should return a usable logger", func() {
				So(Get(), ShouldNotBeNil)
				So(Sync(), ShouldBeNil)
			})
		})

		Convey("When initialized with an unknown format", func() {
			err := Init(WithFormat("xml"))

			Convey("Then it should fail", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "unknown log format")
			})
		})
	})
}

func TestLoggerOutput(t *testing.T) {
	Convey("Given a JSON logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(Init(WithFormat(FormatJSON), WithOutput(&buf)), ShouldBeNil)
		ctx := context.Background()

		Convey("When logging with fields", func() {
			Get().Info(ctx, "feed assembled",
				String("feed", "video"),
				Int("size", 12),
				Bool("personalized", true),
				Error(errors.New("boom")),
			)

			Convey("Then the line should carry every field and the caller", func() {
				line := buf.String()
				So(line, ShouldContainSubstring, `"msg":"feed assembled"`)
				So(line, ShouldContainSubstring, `"feed":"video"`)
				So(line, ShouldContainSubstring, `"size":12`)
				So(line, ShouldContainSubstring, `"personalized":true`)
				So(line, ShouldContainSubstring, `"source":"`)
				So(line, ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When logging below the configured level", func() {
			So(SetLevelString("warn"), ShouldBeNil)
			Get().Info(ctx, "hidden")
			Get().Warn(ctx, "visible")

			Convey("Then only the warn line should be written", func() {
				So(buf.String(), ShouldNotContainSubstring, "hidden")
				So(buf.String(), ShouldContainSubstring, "visible")
			})
		})

		Convey("When using named and With loggers", func() {
			Named("ranking").With(String("viewer", "42")).Info(ctx, "scored")

			Convey("Then the group and bound fields should be present", func() {
				line := buf.String()
				So(strings.Contains(line, `"ranking"`), ShouldBeTrue)
				So(line, ShouldContainSubstring, `"viewer":"42"`)
			})
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level strings", t, func() {
		So(Init(), ShouldBeNil)

		Convey("Then known levels should parse", func() {
			for _, lvl := range []string{"debug", "info", "", "WARN", "warning", "error"} {
				So(SetLevelString(lvl), ShouldBeNil)
			}
		})

		Convey("Then unknown levels should fail", func() {
			So(SetLevelString("verbose"), ShouldNotBeNil)
		})
	})
}
