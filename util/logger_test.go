package util

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

func TestDefaultLogger(t *testing.T) {
	convey.Convey("default logger honors LogLevel", t, func() {
		buf := &bytes.Buffer{}
		origin, originLevel := Logger, LogLevel
		defer func() {
			Logger, LogLevel = origin, originLevel
		}()

		Logger = NewDefaultLogger(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		LogLevel = WarnLevel

		LogDebug("debug %d", 1)
		LogInfo("info %d", 2)
		convey.So(buf.Len(), convey.ShouldEqual, 0)

		LogWarn("warn %d", 3)
		convey.So(buf.String(), convey.ShouldContainSubstring, "warn 3")

		LogIfErr(nil, "nothing")
		LogIfErr(errors.New("boom"), "query:%s", "q1")
		convey.So(buf.String(), convey.ShouldContainSubstring, "query:q1 error:boom")
	})

	convey.Convey("parse log level", t, func() {
		lv, err := ParseLogLevel("debug")
		convey.So(err, convey.ShouldBeNil)
		convey.So(lv, convey.ShouldEqual, DebugLevel)

		lv, err = ParseLogLevel("")
		convey.So(err, convey.ShouldBeNil)
		convey.So(lv, convey.ShouldEqual, InfoLevel)

		_, err = ParseLogLevel("loud")
		convey.So(err, convey.ShouldNotBeNil)
	})
}
