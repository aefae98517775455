package buffer_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/crux/internal/domain/buffer"
	"github.com/okian/crux/internal/domain/model"
	"github.com/okian/crux/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

// warnLog records Warn messages so tests can count drop reports.
type warnLog struct {
	warns int
}

func (w *warnLog) Debug(context.Context, string, ...logger.Field) {}
func (w *warnLog) Info(context.Context, string, ...logger.Field)  {}
func (w *warnLog) Error(context.Context, string, ...logger.Field) {}
func (w *warnLog) Named(string) logger.Logger                     { return w }

func (w *warnLog) Warn(_ context.Context, _ string, _ ...logger.Field) {
	w.warns++
}

const frameStep = 33 * time.Millisecond

func frameAt(idx int, joints map[model.Joint]model.Landmark) model.PoseFrame {
	return model.PoseFrame{
		Index:     idx,
		Timestamp: time.Duration(idx) * frameStep,
		Landmarks: joints,
	}
}

func lm(x, y float64) model.Landmark {
	return model.Landmark{X: x, Y: y, Confidence: 0.9}
}

func TestAppendOrdering(t *testing.T) {
	Convey("Given a fresh buffer", t, func() {
		b := buffer.New(buffer.DefaultParams())
		ctx := context.Background()

		Convey("Frames must arrive in increasing order", func() {
			So(b.Append(ctx, frameAt(1, map[model.Joint]model.Landmark{model.JointLeftWrist: lm(0.5, 0.5)})), ShouldBeNil)
			So(b.Append(ctx, frameAt(2, map[model.Joint]model.Landmark{model.JointLeftWrist: lm(0.5, 0.5)})), ShouldBeNil)

			err := b.Append(ctx, frameAt(2, map[model.Joint]model.Landmark{model.JointLeftWrist: lm(0.5, 0.5)}))
			So(errors.Is(err, buffer.ErrOutOfOrder), ShouldBeTrue)
			So(b.FrameCount(), ShouldEqual, 2)
		})

		Convey("Frames without landmarks are malformed", func() {
			err := b.Append(ctx, frameAt(1, nil))
			So(errors.Is(err, buffer.ErrMalformedFrame), ShouldBeTrue)
		})

		Convey("Impossible coordinates are malformed", func() {
			err := b.Append(ctx, frameAt(1, map[model.Joint]model.Landmark{
				model.JointLeftWrist: {X: 99, Y: 0.5, Confidence: 0.9},
			}))
			So(errors.Is(err, buffer.ErrMalformedFrame), ShouldBeTrue)
		})
	})
}

func TestMalformedDropLogging(t *testing.T) {
	Convey("Given a buffer with a counting logger", t, func() {
		log := &warnLog{}
		b := buffer.New(buffer.DefaultParams(), buffer.WithLogger(log))
		ctx := context.Background()

		bad := func(idx int, j model.Joint) model.PoseFrame {
			return frameAt(idx, map[model.Joint]model.Landmark{
				j: {X: 99, Y: 0.5, Confidence: 0.9},
			})
		}

		Convey("Each joint gets one drop warning per session", func() {
			So(b.Append(ctx, bad(1, model.JointLeftWrist)), ShouldNotBeNil)
			So(b.Append(ctx, bad(2, model.JointLeftWrist)), ShouldNotBeNil)
			So(log.warns, ShouldEqual, 1)

			So(b.Append(ctx, bad(3, model.JointRightAnkle)), ShouldNotBeNil)
			So(log.warns, ShouldEqual, 2)

			So(b.Append(ctx, bad(4, model.JointRightAnkle)), ShouldNotBeNil)
			So(log.warns, ShouldEqual, 2)
		})
	})
}

func TestHoldLastValue(t *testing.T) {
	Convey("Given a buffer with a short hold budget", t, func() {
		p := buffer.DefaultParams()
		p.MaxHold = 100 * time.Millisecond
		b := buffer.New(p)
		ctx := context.Background()

		Convey("Low-confidence joints carry the last valid position forward", func() {
			So(b.Append(ctx, frameAt(1, map[model.Joint]model.Landmark{
				model.JointLeftWrist: lm(0.4, 0.6),
			})), ShouldBeNil)
			So(b.Append(ctx, frameAt(2, map[model.Joint]model.Landmark{
				model.JointLeftWrist: {X: 0.9, Y: 0.9, Confidence: 0.1},
			})), ShouldBeNil)

			w := b.Window(model.JointLeftWrist, time.Second)
			So(len(w), ShouldEqual, 2)
			So(w[1].Held, ShouldBeTrue)
			So(w[1].X, ShouldEqual, 0.4)
			So(b.ValidSamples(model.JointLeftWrist), ShouldEqual, 1)
		})

		Convey("Beyond the budget the joint is lost, not fabricated", func() {
			So(b.Append(ctx, frameAt(1, map[model.Joint]model.Landmark{
				model.JointLeftWrist: lm(0.4, 0.6),
			})), ShouldBeNil)
			low := map[model.Joint]model.Landmark{
				model.JointLeftWrist: {X: 0.9, Y: 0.9, Confidence: 0.1},
				model.JointNose:      lm(0.5, 0.1),
			}
			for i := 2; i <= 12; i++ {
				So(b.Append(ctx, frameAt(i, low)), ShouldBeNil)
			}

			w := b.Window(model.JointLeftWrist, time.Minute)
			last := w[len(w)-1]
			So(last.At, ShouldBeLessThan, 12*frameStep)
			So(b.LostDuration(model.JointLeftWrist), ShouldBeGreaterThan, 0)
		})
	})
}

func TestRingEviction(t *testing.T) {
	Convey("Given a tiny capacity", t, func() {
		p := buffer.DefaultParams()
		p.Capacity = 4
		b := buffer.New(p)
		ctx := context.Background()

		for i := 1; i <= 10; i++ {
			So(b.Append(ctx, frameAt(i, map[model.Joint]model.Landmark{
				model.JointLeftWrist: lm(0.5, 0.5),
			})), ShouldBeNil)
		}

		Convey("Only the newest samples remain, in order", func() {
			w := b.Window(model.JointLeftWrist, time.Minute)
			So(len(w), ShouldEqual, 4)
			So(w[0].Frame, ShouldEqual, 7)
			So(w[3].Frame, ShouldEqual, 10)
		})

		Convey("Session-wide counters survive eviction", func() {
			So(b.ValidSamples(model.JointLeftWrist), ShouldEqual, 10)
		})
	})
}

func TestMoveAndPauseDetection(t *testing.T) {
	Convey("Given a hand that moves, rests, then moves again", t, func() {
		b := buffer.New(buffer.DefaultParams())
		ctx := context.Background()

		idx := 0
		put := func(x float64) {
			idx++
			So(b.Append(ctx, frameAt(idx, map[model.Joint]model.Landmark{
				model.JointLeftWrist: lm(x, 0.5),
			})), ShouldBeNil)
		}

		// Static start.
		for i := 0; i < 10; i++ {
			put(0.50)
		}
		// A jump larger than the move threshold.
		put(0.55)
		// Still again for ~1.5 s (pause range).
		for i := 0; i < 45; i++ {
			put(0.55)
		}
		// Second move.
		put(0.60)

		Convey("Two moves and one reading pause are logged", func() {
			moves := b.EventsOf(buffer.EventMove)
			So(len(moves), ShouldEqual, 2)

			pauses := b.EventsOf(buffer.EventPause)
			So(len(pauses), ShouldEqual, 1)
			So(pauses[0].Value, ShouldBeBetween, 1.0, 3.0)

			stats := b.Stats()
			So(stats.MoveCount, ShouldEqual, 2)
			So(stats.HasFirstMove, ShouldBeTrue)
			So(len(stats.Intervals), ShouldEqual, 1)
		})

		Convey("Release events carry a jerk measurement", func() {
			rel := b.EventsOf(buffer.EventRelease)
			So(len(rel), ShouldEqual, 2)
			So(rel[0].Value, ShouldBeGreaterThan, 0)
		})
	})
}

func TestFootRepositionDetection(t *testing.T) {
	Convey("Given a foot settling twice on the same support", t, func() {
		b := buffer.New(buffer.DefaultParams())
		ctx := context.Background()

		idx := 0
		put := func(x, y float64) {
			idx++
			So(b.Append(ctx, frameAt(idx, map[model.Joint]model.Landmark{
				model.JointLeftAnkle: lm(x, y),
			})), ShouldBeNil)
		}

		// Settle on the support.
		for i := 0; i < 10; i++ {
			put(0.30, 0.80)
		}
		// Lift off and wander.
		for i := 0; i < 6; i++ {
			put(0.30+float64(i+1)*0.01, 0.78)
		}
		// Come back to the same spot and settle again.
		for i := 0; i < 10; i++ {
			put(0.30, 0.80)
		}

		Convey("One settle and one reposition are logged", func() {
			settles := b.EventsOf(buffer.EventSettle)
			So(len(settles), ShouldEqual, 1)

			repos := b.EventsOf(buffer.EventReposition)
			So(len(repos), ShouldEqual, 1)
			So(repos[0].Hold, ShouldEqual, settles[0].Hold)

			stats := b.Stats()
			So(stats.Holds, ShouldEqual, 1)
			So(stats.Repositions, ShouldEqual, 1)
		})
	})
}

func TestDynamicDetection(t *testing.T) {
	Convey("Given a hand performing a fast throw then stabilizing", t, func() {
		b := buffer.New(buffer.DefaultParams())
		ctx := context.Background()

		idx := 0
		put := func(x float64) {
			idx++
			So(b.Append(ctx, frameAt(idx, map[model.Joint]model.Landmark{
				model.JointRightWrist: lm(x, 0.4),
			})), ShouldBeNil)
		}

		for i := 0; i < 8; i++ {
			put(0.50)
		}
		// Fast upward throw: big displacement per frame.
		x := 0.50
		for i := 0; i < 6; i++ {
			x += 0.03
			put(x)
		}
		// Stabilize.
		for i := 0; i < 12; i++ {
			put(x)
		}

		Convey("A dynamic event with a settle time is logged", func() {
			dyn := b.EventsOf(buffer.EventDynamic)
			So(len(dyn), ShouldEqual, 1)
			So(dyn[0].Value, ShouldBeGreaterThanOrEqualTo, 0)
			So(b.Stats().DynamicCount, ShouldEqual, 1)
		})
	})
}

func TestPostureAndDispersion(t *testing.T) {
	Convey("Given a session with varying posture", t, func() {
		b := buffer.New(buffer.DefaultParams())
		ctx := context.Background()

		put := func(idx int, elbowY, hipX float64) {
			So(b.Append(ctx, frameAt(idx, map[model.Joint]model.Landmark{
				model.JointLeftShoulder: lm(0.45, 0.40),
				model.JointLeftElbow:    lm(0.40, elbowY),
				model.JointLeftHip:      lm(hipX, 0.60),
				model.JointRightHip:     lm(hipX+0.1, 0.60),
			})), ShouldBeNil)
		}

		// Half the frames with the elbow above the shoulder.
		for i := 1; i <= 10; i++ {
			put(i, 0.30, 0.40+float64(i)*0.01)
		}
		for i := 11; i <= 20; i++ {
			put(i, 0.50, 0.40)
		}

		Convey("Overhead fraction and dispersion reflect the session", func() {
			stats := b.Stats()
			So(stats.PostureFrames, ShouldEqual, 20)
			So(stats.OverheadFraction, ShouldAlmostEqual, 0.5, 1e-9)
			So(stats.COMStdX, ShouldBeGreaterThan, 0)
		})
	})
}

func TestHandLegPairing(t *testing.T) {
	Convey("Given a left-hand move with the right leg driving", t, func() {
		b := buffer.New(buffer.DefaultParams())
		ctx := context.Background()

		idx := 0
		put := func(wristX, rightAnkleX float64) {
			idx++
			So(b.Append(ctx, frameAt(idx, map[model.Joint]model.Landmark{
				model.JointLeftWrist:  lm(wristX, 0.5),
				model.JointRightAnkle: lm(rightAnkleX, 0.85),
				model.JointLeftAnkle:  lm(0.30, 0.85),
			})), ShouldBeNil)
		}

		// The right ankle creeps while the wrist holds still.
		for i := 0; i < 9; i++ {
			put(0.50, 0.60+float64(i)*0.004)
		}
		// Then the hand jumps.
		put(0.55, 0.64)

		Convey("The move is classified as diagonal", func() {
			moves := b.EventsOf(buffer.EventMove)
			So(len(moves), ShouldEqual, 1)
			So(moves[0].Value, ShouldEqual, buffer.PairingDiagonal)
		})
	})
}

func TestWindowDuration(t *testing.T) {
	Convey("Given two seconds of samples", t, func() {
		b := buffer.New(buffer.DefaultParams())
		ctx := context.Background()
		for i := 1; i <= 60; i++ {
			So(b.Append(ctx, frameAt(i, map[model.Joint]model.Landmark{
				model.JointLeftHip: lm(0.5, 0.6),
			})), ShouldBeNil)
		}

		Convey("Window covers at least the requested duration", func() {
			w := b.Window(model.JointLeftHip, 500*time.Millisecond)
			So(len(w), ShouldBeGreaterThanOrEqualTo, 15)
			span := w[len(w)-1].At - w[0].At
			So(span, ShouldBeGreaterThanOrEqualTo, 450*time.Millisecond)
		})

		Convey("Requests longer than the session return everything buffered", func() {
			w := b.Window(model.JointLeftHip, time.Hour)
			So(len(w), ShouldEqual, 60)
		})
	})
}
