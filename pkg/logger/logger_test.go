package logger_test

import (
	"context"
	"testing"

	"github.com/okian/crux/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLogger(t *testing.T) {
	Convey("Given an initialized global logger", t, func() {
		So(logger.Init(), ShouldBeNil)

		Convey("Get returns a usable logger", func() {
			l := logger.Get()
			So(l, ShouldNotBeNil)
			So(func() {
				l.Info(context.Background(), "hello", logger.String("k", "v"))
			}, ShouldNotPanic)
		})

		Convey("Named loggers derive from the global one", func() {
			l := logger.Named("buffer")
			So(l, ShouldNotBeNil)
		})
	})

	Convey("Given level strings", t, func() {
		Convey("Known names parse", func() {
			So(logger.SetLevelString("debug"), ShouldBeNil)
			So(logger.SetLevelString("WARN"), ShouldBeNil)
			So(logger.SetLevelString(""), ShouldBeNil)
		})

		Convey("Unknown names error", func() {
			So(logger.SetLevelString("loud"), ShouldNotBeNil)
		})
	})

	Convey("Nop logger discards without panicking", t, func() {
		l := logger.Nop()
		So(func() {
			l.Debug(context.Background(), "ignored")
			l.Error(context.Background(), "ignored", logger.Int("n", 1))
		}, ShouldNotPanic)
	})
}
