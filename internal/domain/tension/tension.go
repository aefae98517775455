// Package tension watches joint angles across a session and accumulates
// injury-risk signals: locked elbows, sustained overhead shoulders, loaded
// knee rotation and lumbar twist. It feeds the threat rules of the report.
package tension

import (
	"math"

	"github.com/okian/crux/internal/domain/model"
)

// Joint group names carried in the emitted events.
const (
	JointElbow    = "elbow"
	JointShoulder = "shoulder"
	JointKnee     = "knee"
	JointLumbar   = "lumbar"
)

// Params holds the detection thresholds.
type Params struct {
	MinConfidence float64
	// ElbowLockDeg is the inner elbow angle below which a loaded arm counts
	// as locked off.
	ElbowLockDeg float64
	// ElevatedMinFrames is how many consecutive elbow-above-shoulder frames
	// make one sustained overhead episode.
	ElevatedMinFrames int
	// KneeLateral is the normalized hip-to-knee sideways offset that loads
	// the knee when combined with deep flexion.
	KneeLateral float64
	// KneeFlexMin/Max bound the flexion range where rotation is dangerous.
	KneeFlexMin float64
	KneeFlexMax float64
	// TwistDeg is the shoulder-line vs hip-line rotation that counts as a
	// lumbar twist.
	TwistDeg float64
}

// DefaultParams returns the standard thresholds.
func DefaultParams() Params {
	return Params{
		MinConfidence:     0.5,
		ElbowLockDeg:      70,
		ElevatedMinFrames: 15,
		KneeLateral:       0.15,
		KneeFlexMin:       30,
		KneeFlexMax:       50,
		TwistDeg:          30,
	}
}

// crossing counts entries into a sustained condition and keeps the extremum
// seen while inside it.
type crossing struct {
	inside   bool
	count    int
	extremum float64
	better   func(a, b float64) bool
}

func maxOf(a, b float64) bool { return a > b }
func minOf(a, b float64) bool { return a < b }

func (c *crossing) observe(active bool, value float64) {
	if !active {
		c.inside = false
		return
	}
	if !c.inside {
		c.inside = true
		c.count++
		if c.count == 1 {
			c.extremum = value
			return
		}
	}
	if c.better(value, c.extremum) {
		c.extremum = value
	}
}

type elevation struct {
	run      int
	counted  bool
	episodes int
	longest  int
}

func (e *elevation) observe(elevated bool, minFrames int) {
	if !elevated {
		e.run = 0
		e.counted = false
		return
	}
	e.run++
	if e.run > e.longest {
		e.longest = e.run
	}
	if e.run >= minFrames && !e.counted {
		e.episodes++
		e.counted = true
	}
}

// Analyzer accumulates tension signals frame by frame. It is owned by one
// session and is not safe for concurrent use.
type Analyzer struct {
	params Params

	elbow    map[model.Side]*crossing
	knee     map[model.Side]*crossing
	shoulder map[model.Side]*elevation
	lumbar   crossing
}

// New creates an analyzer with the given thresholds.
func New(params Params) *Analyzer {
	return &Analyzer{
		params: params,
		elbow: map[model.Side]*crossing{
			model.SideLeft:  {better: minOf},
			model.SideRight: {better: minOf},
		},
		knee: map[model.Side]*crossing{
			model.SideLeft:  {better: maxOf},
			model.SideRight: {better: maxOf},
		},
		shoulder: map[model.Side]*elevation{
			model.SideLeft:  {},
			model.SideRight: {},
		},
		lumbar: crossing{better: maxOf},
	}
}

// Observe folds one frame into the running counters.
func (a *Analyzer) Observe(frame model.PoseFrame) {
	for _, side := range []model.Side{model.SideLeft, model.SideRight} {
		a.observeElbow(frame, side)
		a.observeShoulder(frame, side)
		a.observeKnee(frame, side)
	}
	a.observeLumbar(frame)
}

func (a *Analyzer) observeElbow(frame model.PoseFrame, side model.Side) {
	shoulder, elbow, wrist := shoulderJoint(side), elbowJoint(side), model.Wrist(side)
	angle, ok := a.innerAngle(frame, shoulder, elbow, wrist)
	if !ok {
		a.elbow[side].observe(false, 0)
		return
	}
	a.elbow[side].observe(angle < a.params.ElbowLockDeg, angle)
}

func (a *Analyzer) observeShoulder(frame model.PoseFrame, side model.Side) {
	s, okS := a.point(frame, shoulderJoint(side))
	e, okE := a.point(frame, elbowJoint(side))
	if !okS || !okE {
		a.shoulder[side].observe(false, a.params.ElevatedMinFrames)
		return
	}
	// Image Y grows downward; a smaller elbow Y means the arm is overhead.
	a.shoulder[side].observe(e.y < s.y, a.params.ElevatedMinFrames)
}

func (a *Analyzer) observeKnee(frame model.PoseFrame, side model.Side) {
	hip, knee := hipJoint(side), kneeJoint(side)
	flex, okFlex := a.innerAngle(frame, hip, knee, model.Ankle(side))
	h, okH := a.point(frame, hip)
	k, okK := a.point(frame, knee)
	if !okFlex || !okH || !okK {
		a.knee[side].observe(false, 0)
		return
	}
	lateral := math.Abs(h.x - k.x)
	dangerous := flex >= a.params.KneeFlexMin && flex <= a.params.KneeFlexMax &&
		lateral > a.params.KneeLateral
	a.knee[side].observe(dangerous, lateral)
}

func (a *Analyzer) observeLumbar(frame model.PoseFrame) {
	ls, okLS := a.point(frame, model.JointLeftShoulder)
	rs, okRS := a.point(frame, model.JointRightShoulder)
	lh, okLH := a.point(frame, model.JointLeftHip)
	rh, okRH := a.point(frame, model.JointRightHip)
	if !okLS || !okRS || !okLH || !okRH {
		a.lumbar.observe(false, 0)
		return
	}
	twist, ok := lineAngle(rs.x-ls.x, rs.y-ls.y, rh.x-lh.x, rh.y-lh.y)
	if !ok {
		a.lumbar.observe(false, 0)
		return
	}
	a.lumbar.observe(twist >= a.params.TwistDeg, twist)
}

// Events returns the accumulated per-joint, per-side summaries. Groups that
// never crossed a threshold are omitted.
func (a *Analyzer) Events() []model.TensionEvent {
	var out []model.TensionEvent
	for _, side := range []model.Side{model.SideLeft, model.SideRight} {
		if c := a.elbow[side]; c.count > 0 {
			out = append(out, model.TensionEvent{
				Joint: JointElbow, Kind: model.TensionAngleLock,
				Side: side, Count: c.count, Extremum: c.extremum,
			})
		}
	}
	for _, side := range []model.Side{model.SideLeft, model.SideRight} {
		if e := a.shoulder[side]; e.episodes > 0 {
			out = append(out, model.TensionEvent{
				Joint: JointShoulder, Kind: model.TensionRotation,
				Side: side, Count: e.episodes, Extremum: float64(e.longest),
			})
		}
	}
	for _, side := range []model.Side{model.SideLeft, model.SideRight} {
		if c := a.knee[side]; c.count > 0 {
			out = append(out, model.TensionEvent{
				Joint: JointKnee, Kind: model.TensionRotation,
				Side: side, Count: c.count, Extremum: c.extremum,
			})
		}
	}
	if a.lumbar.count > 0 {
		out = append(out, model.TensionEvent{
			Joint: JointLumbar, Kind: model.TensionTwist,
			Side: model.SideNone, Count: a.lumbar.count, Extremum: a.lumbar.extremum,
		})
	}
	return out
}

type point struct{ x, y float64 }

func (a *Analyzer) point(frame model.PoseFrame, j model.Joint) (point, bool) {
	lm, ok := frame.Landmarks[j]
	if !ok || lm.Confidence < a.params.MinConfidence {
		return point{}, false
	}
	return point{x: lm.X, y: lm.Y}, true
}

// innerAngle is the angle at p2 in the p1-p2-p3 chain, in degrees.
func (a *Analyzer) innerAngle(frame model.PoseFrame, p1, p2, p3 model.Joint) (float64, bool) {
	a1, ok1 := a.point(frame, p1)
	a2, ok2 := a.point(frame, p2)
	a3, ok3 := a.point(frame, p3)
	if !ok1 || !ok2 || !ok3 {
		return 0, false
	}
	return lineAngle(a1.x-a2.x, a1.y-a2.y, a3.x-a2.x, a3.y-a2.y)
}

func lineAngle(x1, y1, x2, y2 float64) (float64, bool) {
	n1 := math.Hypot(x1, y1)
	n2 := math.Hypot(x2, y2)
	if n1 == 0 || n2 == 0 {
		return 0, false
	}
	cos := (x1*x2 + y1*y2) / (n1 * n2)
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	return math.Acos(cos) * 180 / math.Pi, true
}

func shoulderJoint(s model.Side) model.Joint {
	if s == model.SideRight {
		return model.JointRightShoulder
	}
	return model.JointLeftShoulder
}

func elbowJoint(s model.Side) model.Joint {
	if s == model.SideRight {
		return model.JointRightElbow
	}
	return model.JointLeftElbow
}

func hipJoint(s model.Side) model.Joint {
	if s == model.SideRight {
		return model.JointRightHip
	}
	return model.JointLeftHip
}

func kneeJoint(s model.Side) model.Joint {
	if s == model.SideRight {
		return model.JointRightKnee
	}
	return model.JointLeftKnee
}
