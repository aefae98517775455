package buffer

import (
	"math"
	"time"

	"github.com/okian/crux/internal/domain/model"
)

// EventKind classifies an entry in the session event log.
type EventKind string

// Event kinds logged by the incremental detectors.
const (
	EventMove       EventKind = "move"
	EventSettle     EventKind = "settle"
	EventReposition EventKind = "reposition"
	EventPause      EventKind = "pause"
	EventDynamic    EventKind = "dynamic"
	EventRelease    EventKind = "release"
)

// Event is one detected occurrence. Value carries the kind-specific
// measurement captured at detection time (pause seconds, dynamic settle
// seconds, release peak jerk); Hold is the support-cluster index for
// settle/reposition events.
type Event struct {
	Kind  EventKind
	Side  model.Side
	Frame int
	At    time.Duration
	Value float64
	Hold  int
}

const (
	// velocityWindow is the sample span used for dynamic-move velocity.
	velocityWindow = 5
	// releaseWindow is the sample span inspected for release jerk.
	releaseWindow = 7
	// dynamicSettleHold is how long the hand must stay slow to count as
	// settled after a dynamic move.
	dynamicSettleHold = 100 * time.Millisecond
	// hipAdvanceMargin is the upward center-of-mass progress past a hold
	// after which renewed foot movement is a new placement, not a
	// reposition. Image Y grows downward.
	hipAdvanceMargin = 0.05
	// pairingWindow is the trailing span inspected at each hand move to
	// decide which leg worked with it.
	pairingWindow = 300 * time.Millisecond
	// pairingFloor is the minimum ankle displacement that counts as leg
	// involvement at all.
	pairingFloor = 0.005
)

// Hand-leg pairing classes stored in EventMove.Value.
const (
	PairingUnclassified = -1.0
	PairingSquare       = 0.0
	PairingDiagonal     = 1.0
)

type dynamicState struct {
	active         bool
	startAt        time.Duration
	settling       bool
	settleCandidat time.Duration
	lastDoneFrame  int
}

type holdCluster struct {
	center    Point
	lastAngle float64
	hipY      float64
	index     int
}

type footState struct {
	clusters    []holdCluster
	still       bool
	stillSince  time.Duration
	settledHere bool
	repositions int
}

func (b *Buffer) detectHands(frame model.PoseFrame) {
	for _, side := range []model.Side{model.SideLeft, model.SideRight} {
		b.detectHandMove(frame, side)
		b.detectDynamic(frame, side)
	}
}

func (b *Buffer) detectHandMove(frame model.PoseFrame, side model.Side) {
	r := b.rings[model.Wrist(side)]
	if r.count < 2 {
		return
	}
	cur := r.at(r.count - 1)
	prev := r.at(r.count - 2)
	if cur.Held && prev.Held {
		return
	}
	d := dist(cur.Point, prev.Point)

	switch {
	case d > b.params.MoveThreshold && !b.moving[side]:
		b.moving[side] = true
		b.onMoveStart(side, cur)
	case d < b.params.MoveThreshold/2 && b.moving[side]:
		b.moving[side] = false
	}
}

func (b *Buffer) onMoveStart(side model.Side, cur Sample) {
	b.moveCount++
	if !b.haveFirst {
		b.haveFirst = true
		b.firstMoveAt = cur.At
	}
	if b.haveLastMove {
		gap := cur.At - b.lastMoveAt
		if gap > 0 {
			b.intervals = append(b.intervals, float64(gap.Milliseconds()))
			if gap >= b.params.PauseMin && gap <= b.params.PauseMax {
				b.events = append(b.events, Event{
					Kind: EventPause, Side: model.SideNone,
					Frame: cur.Frame, At: cur.At,
					Value: gap.Seconds(),
				})
			}
		}
	}
	b.lastMoveAt = cur.At
	b.haveLastMove = true

	b.events = append(b.events, Event{
		Kind: EventMove, Side: side, Frame: cur.Frame, At: cur.At,
		Value: b.classifyPairing(side),
	})
	if jerk, ok := b.releaseJerk(side); ok {
		b.events = append(b.events, Event{
			Kind: EventRelease, Side: side, Frame: cur.Frame, At: cur.At,
			Value: jerk,
		})
	}
}

// classifyPairing decides which leg drove the hand move just detected, by
// comparing recent ankle displacement on each side. Contralateral leg work is
// diagonal, ipsilateral is square, no leg work at all is unclassified.
func (b *Buffer) classifyPairing(side model.Side) float64 {
	opp, okOpp := b.ankleDisplacement(side.Opposite())
	same, okSame := b.ankleDisplacement(side)
	if !okOpp && !okSame {
		return PairingUnclassified
	}
	if opp < pairingFloor && same < pairingFloor {
		return PairingUnclassified
	}
	if opp >= same {
		return PairingDiagonal
	}
	return PairingSquare
}

// ankleDisplacement is the path length of an ankle over the pairing window.
func (b *Buffer) ankleDisplacement(side model.Side) (float64, bool) {
	r := b.rings[model.Ankle(side)]
	w := r.window(pairingWindow)
	if len(w) < 2 {
		return 0, false
	}
	var total float64
	for i := 1; i < len(w); i++ {
		if w[i].Held && w[i-1].Held {
			continue
		}
		total += dist(w[i].Point, w[i-1].Point)
	}
	return total, true
}

// releaseJerk measures the peak speed change over the samples leading into a
// hand move, i.e. how abruptly the hold was let go.
func (b *Buffer) releaseJerk(side model.Side) (float64, bool) {
	r := b.rings[model.Wrist(side)]
	n := r.count
	if n < 3 {
		return 0, false
	}
	first := n - releaseWindow
	if first < 0 {
		first = 0
	}
	var peak float64
	var prevSpeed float64
	var havePrev bool
	for i := first + 1; i < n; i++ {
		speed := dist(r.at(i).Point, r.at(i-1).Point)
		if havePrev {
			if j := math.Abs(speed - prevSpeed); j > peak {
				peak = j
			}
		}
		prevSpeed = speed
		havePrev = true
	}
	return peak, true
}

func (b *Buffer) detectDynamic(frame model.PoseFrame, side model.Side) {
	r := b.rings[model.Wrist(side)]
	st := b.dyn[side]
	if r.count < velocityWindow+1 {
		return
	}
	cur := r.at(r.count - 1)
	windowStart := r.at(r.count - 1 - velocityWindow)
	span := cur.At - windowStart.At
	if span <= 0 {
		return
	}
	v := dist(cur.Point, windowStart.Point) / span.Seconds()

	if !st.active {
		if v > b.params.DynamicVelocity && cur.Frame-st.lastDoneFrame > velocityWindow {
			st.active = true
			st.startAt = cur.At
			st.settling = false
		}
		return
	}

	// Active dynamic move: wait for the hand to come back under the settle
	// velocity and stay there.
	prev := r.at(r.count - 2)
	step := cur.At - prev.At
	var inst float64
	if step > 0 {
		inst = dist(cur.Point, prev.Point) / step.Seconds()
	}
	if inst >= b.params.SettleVelocity {
		st.settling = false
		return
	}
	if !st.settling {
		st.settling = true
		st.settleCandidat = cur.At
		return
	}
	if cur.At-st.settleCandidat >= dynamicSettleHold {
		b.dynamicCount++
		b.events = append(b.events, Event{
			Kind: EventDynamic, Side: side, Frame: cur.Frame, At: cur.At,
			Value: (st.settleCandidat - st.startAt).Seconds(),
		})
		st.active = false
		st.settling = false
		st.lastDoneFrame = cur.Frame
	}
}

func (b *Buffer) detectFeet(frame model.PoseFrame) {
	for _, side := range []model.Side{model.SideLeft, model.SideRight} {
		b.detectFoot(frame, side)
	}
}

func (b *Buffer) detectFoot(frame model.PoseFrame, side model.Side) {
	r := b.rings[model.Ankle(side)]
	st := b.feet[side]
	if r.count < 2 {
		return
	}
	cur := r.at(r.count - 1)
	prev := r.at(r.count - 2)
	step := cur.At - prev.At
	if step <= 0 {
		return
	}
	v := dist(cur.Point, prev.Point) / step.Seconds()

	if v >= b.params.SettleVelocity {
		st.still = false
		st.settledHere = false
		return
	}
	if !st.still {
		st.still = true
		st.stillSince = cur.At
		return
	}
	if st.settledHere || cur.At-st.stillSince < b.params.SettleDwell {
		return
	}
	st.settledHere = true
	b.onFootSettled(frame, side, st, cur)
}

func (b *Buffer) onFootSettled(frame model.PoseFrame, side model.Side, st *footState, cur Sample) {
	angle := b.footAngle(frame, side)
	hipY, hasHip := b.hipCenterY(frame)

	for i := range st.clusters {
		c := &st.clusters[i]
		if dist(cur.Point, c.center) >= b.params.HoldRadius {
			continue
		}
		// Same support as before: a pivot is a rotation in place and does
		// not count against foot precision.
		if angleDelta(c.lastAngle, angle) >= b.params.PivotAngleDeg {
			c.lastAngle = angle
			return
		}
		advanced := hasHip && c.hipY-hipY > hipAdvanceMargin
		c.lastAngle = angle
		if advanced {
			return
		}
		st.repositions++
		b.events = append(b.events, Event{
			Kind: EventReposition, Side: side, Frame: cur.Frame, At: cur.At,
			Hold: c.index,
		})
		return
	}

	idx := len(st.clusters)
	st.clusters = append(st.clusters, holdCluster{
		center:    cur.Point,
		lastAngle: angle,
		hipY:      hipY,
		index:     idx,
	})
	b.events = append(b.events, Event{
		Kind: EventSettle, Side: side, Frame: cur.Frame, At: cur.At,
		Hold: idx,
	})
}

// footAngle is the heel-to-toe direction in degrees, 0 when the foot joints
// are not visible this frame.
func (b *Buffer) footAngle(frame model.PoseFrame, side model.Side) float64 {
	heel := model.JointLeftHeel
	toe := model.JointLeftFootIndex
	if side == model.SideRight {
		heel = model.JointRightHeel
		toe = model.JointRightFootIndex
	}
	h, okH := b.confident(frame, heel)
	t, okT := b.confident(frame, toe)
	if !okH || !okT {
		return 0
	}
	angle := math.Atan2(t.Y-h.Y, t.X-h.X) * 180 / math.Pi
	return math.Mod(angle+360, 360)
}

func (b *Buffer) hipCenterY(frame model.PoseFrame) (float64, bool) {
	lh, okL := b.confident(frame, model.JointLeftHip)
	rh, okR := b.confident(frame, model.JointRightHip)
	if !okL || !okR {
		return 0, false
	}
	return (lh.Y + rh.Y) / 2, true
}

func angleDelta(a, b float64) float64 {
	d := math.Abs(a - b)
	if d > 180 {
		d = 360 - d
	}
	return d
}
