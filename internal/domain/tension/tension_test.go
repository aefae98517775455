package tension_test

import (
	"testing"

	"github.com/okian/crux/internal/domain/model"
	"github.com/okian/crux/internal/domain/tension"
	. "github.com/smartystreets/goconvey/convey"
)

func lm(x, y float64) model.Landmark {
	return model.Landmark{X: x, Y: y, Confidence: 0.9}
}

func frames(a *tension.Analyzer, n int, joints map[model.Joint]model.Landmark) {
	for i := 0; i < n; i++ {
		a.Observe(model.PoseFrame{Landmarks: joints})
	}
}

func find(events []model.TensionEvent, joint string, side model.Side) (model.TensionEvent, bool) {
	for _, e := range events {
		if e.Joint == joint && e.Side == side {
			return e, true
		}
	}
	return model.TensionEvent{}, false
}

func TestElbowLock(t *testing.T) {
	Convey("Given an arm that locks off twice", t, func() {
		a := tension.New(tension.DefaultParams())

		locked := map[model.Joint]model.Landmark{
			model.JointLeftShoulder: lm(0.50, 0.30),
			model.JointLeftElbow:    lm(0.50, 0.45),
			model.JointLeftWrist:    lm(0.606, 0.344),
		}
		open := map[model.Joint]model.Landmark{
			model.JointLeftShoulder: lm(0.50, 0.30),
			model.JointLeftElbow:    lm(0.50, 0.45),
			model.JointLeftWrist:    lm(0.50, 0.60),
		}

		frames(a, 5, locked)
		frames(a, 5, open)
		frames(a, 5, locked)

		Convey("Two lock events with the sharpest angle are recorded", func() {
			e, ok := find(a.Events(), tension.JointElbow, model.SideLeft)
			So(ok, ShouldBeTrue)
			So(e.Kind, ShouldEqual, model.TensionAngleLock)
			So(e.Count, ShouldEqual, 2)
			So(e.Extremum, ShouldBeBetween, 40.0, 50.0)
		})

		Convey("The untouched side stays silent", func() {
			_, ok := find(a.Events(), tension.JointElbow, model.SideRight)
			So(ok, ShouldBeFalse)
		})
	})
}

func TestShoulderElevation(t *testing.T) {
	Convey("Given one arm held overhead long enough", t, func() {
		a := tension.New(tension.DefaultParams())

		overhead := map[model.Joint]model.Landmark{
			model.JointLeftShoulder: lm(0.45, 0.35),
			model.JointLeftElbow:    lm(0.42, 0.20),
		}
		frames(a, 20, overhead)

		Convey("One sustained episode is recorded with its length", func() {
			e, ok := find(a.Events(), tension.JointShoulder, model.SideLeft)
			So(ok, ShouldBeTrue)
			So(e.Kind, ShouldEqual, model.TensionRotation)
			So(e.Count, ShouldEqual, 1)
			So(e.Extremum, ShouldEqual, 20)
		})
	})

	Convey("Given a short raise below the sustain threshold", t, func() {
		a := tension.New(tension.DefaultParams())
		overhead := map[model.Joint]model.Landmark{
			model.JointLeftShoulder: lm(0.45, 0.35),
			model.JointLeftElbow:    lm(0.42, 0.20),
		}
		frames(a, 5, overhead)

		Convey("No episode is recorded", func() {
			_, ok := find(a.Events(), tension.JointShoulder, model.SideLeft)
			So(ok, ShouldBeFalse)
		})
	})

	Convey("Given both arms overhead together", t, func() {
		a := tension.New(tension.DefaultParams())
		both := map[model.Joint]model.Landmark{
			model.JointLeftShoulder:  lm(0.45, 0.35),
			model.JointLeftElbow:     lm(0.42, 0.20),
			model.JointRightShoulder: lm(0.55, 0.35),
			model.JointRightElbow:    lm(0.58, 0.20),
		}
		frames(a, 20, both)

		Convey("Both sides carry the same count", func() {
			l, okL := find(a.Events(), tension.JointShoulder, model.SideLeft)
			r, okR := find(a.Events(), tension.JointShoulder, model.SideRight)
			So(okL, ShouldBeTrue)
			So(okR, ShouldBeTrue)
			So(l.Count, ShouldEqual, r.Count)
		})
	})
}

func TestKneeRotation(t *testing.T) {
	Convey("Given a deeply flexed knee pushed sideways", t, func() {
		a := tension.New(tension.DefaultParams())

		dangerous := map[model.Joint]model.Landmark{
			model.JointRightHip:   lm(0.50, 0.50),
			model.JointRightKnee:  lm(0.70, 0.55),
			model.JointRightAnkle: lm(0.579, 0.383),
		}
		frames(a, 5, dangerous)

		Convey("A loaded-rotation event is recorded with the lateral offset", func() {
			e, ok := find(a.Events(), tension.JointKnee, model.SideRight)
			So(ok, ShouldBeTrue)
			So(e.Kind, ShouldEqual, model.TensionRotation)
			So(e.Count, ShouldEqual, 1)
			So(e.Extremum, ShouldAlmostEqual, 0.2, 1e-9)
		})
	})

	Convey("Given the same offset with a straight leg", t, func() {
		a := tension.New(tension.DefaultParams())

		straight := map[model.Joint]model.Landmark{
			model.JointRightHip:   lm(0.50, 0.50),
			model.JointRightKnee:  lm(0.70, 0.55),
			model.JointRightAnkle: lm(0.90, 0.60),
		}
		frames(a, 5, straight)

		Convey("Nothing is recorded outside the flexion range", func() {
			_, ok := find(a.Events(), tension.JointKnee, model.SideRight)
			So(ok, ShouldBeFalse)
		})
	})
}

func TestLumbarTwist(t *testing.T) {
	Convey("Given shoulders rotated against the hips", t, func() {
		a := tension.New(tension.DefaultParams())

		twisted := map[model.Joint]model.Landmark{
			model.JointLeftShoulder:  lm(0.40, 0.30),
			model.JointRightShoulder: lm(0.60, 0.30),
			model.JointLeftHip:       lm(0.45, 0.55),
			model.JointRightHip:      lm(0.614, 0.665),
		}
		frames(a, 5, twisted)

		Convey("A twist event carries the angle, unattributed to a side", func() {
			e, ok := find(a.Events(), tension.JointLumbar, model.SideNone)
			So(ok, ShouldBeTrue)
			So(e.Kind, ShouldEqual, model.TensionTwist)
			So(e.Count, ShouldEqual, 1)
			So(e.Extremum, ShouldBeBetween, 30.0, 40.0)
		})
	})

	Convey("Given square shoulders over square hips", t, func() {
		a := tension.New(tension.DefaultParams())
		square := map[model.Joint]model.Landmark{
			model.JointLeftShoulder:  lm(0.40, 0.30),
			model.JointRightShoulder: lm(0.60, 0.30),
			model.JointLeftHip:       lm(0.42, 0.55),
			model.JointRightHip:      lm(0.58, 0.55),
		}
		frames(a, 5, square)

		So(len(a.Events()), ShouldEqual, 0)
	})
}
