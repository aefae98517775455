// Package buffer implements the per-session landmark history: fixed-capacity
// rolling sample rings per joint plus a monotonically increasing event log
// filled by incremental detectors (moves, settles, repositions, pauses,
// dynamic moves, releases).
package buffer

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/okian/crux/internal/domain/model"
	"github.com/okian/crux/pkg/logger"
)

// Params holds the detection thresholds. All of them are configuration; the
// defaults come from calibration against recorded sessions.
type Params struct {
	Capacity        int
	MinConfidence   float64
	MaxHold         time.Duration
	MoveThreshold   float64
	SettleVelocity  float64
	SettleDwell     time.Duration
	HoldRadius      float64
	PivotAngleDeg   float64
	PauseMin        time.Duration
	PauseMax        time.Duration
	DynamicVelocity float64
}

// DefaultParams returns the standard detection thresholds.
func DefaultParams() Params {
	return Params{
		Capacity:        256,
		MinConfidence:   0.5,
		MaxHold:         time.Second,
		MoveThreshold:   0.02,
		SettleVelocity:  0.03,
		SettleDwell:     150 * time.Millisecond,
		HoldRadius:      0.02,
		PivotAngleDeg:   15,
		PauseMin:        time.Second,
		PauseMax:        3 * time.Second,
		DynamicVelocity: 0.05,
	}
}

// Point is a position in normalized image coordinates.
type Point struct {
	X, Y, Z float64
}

func dist(a, b Point) float64 {
	dx, dy := a.X-b.X, a.Y-b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Sample is one buffered observation of a joint. Held marks hold-last-value
// samples carried forward over a low-confidence span.
type Sample struct {
	Point
	At    time.Duration
	Frame int
	Held  bool
}

// ring is a fixed-capacity rolling window of samples for a single joint.
type ring struct {
	samples []Sample
	start   int
	count   int

	real int // non-held samples accepted over the whole session

	lastValid Sample
	hasValid  bool

	holding   bool
	holdSince time.Duration

	lost     time.Duration
	lastSeen time.Duration
}

func newRing(capacity int) *ring {
	return &ring{samples: make([]Sample, capacity)}
}

func (r *ring) push(s Sample) {
	if r.count < len(r.samples) {
		r.samples[(r.start+r.count)%len(r.samples)] = s
		r.count++
		return
	}
	// Evict the oldest; never blocks.
	r.samples[r.start] = s
	r.start = (r.start + 1) % len(r.samples)
}

func (r *ring) at(i int) Sample {
	return r.samples[(r.start+i)%len(r.samples)]
}

func (r *ring) newest() (Sample, bool) {
	if r.count == 0 {
		return Sample{}, false
	}
	return r.at(r.count - 1), true
}

// window returns samples covering at least d back from the newest sample, in
// chronological order. Shorter histories are returned whole, unpadded.
func (r *ring) window(d time.Duration) []Sample {
	if r.count == 0 {
		return nil
	}
	newest := r.at(r.count - 1)
	first := 0
	for i := r.count - 1; i >= 0; i-- {
		// Keep the first sample past the cutoff so the window spans at
		// least d when the history allows it.
		if newest.At-r.at(i).At > d {
			first = i
			break
		}
	}
	out := make([]Sample, 0, r.count-first)
	for i := first; i < r.count; i++ {
		out = append(out, r.at(i))
	}
	return out
}

// Stats summarizes session-wide counters kept outside the rolling rings.
type Stats struct {
	Frames        int
	Duration      time.Duration
	FirstMoveAt   time.Duration
	HasFirstMove  bool
	MoveCount     int
	DynamicCount  int
	MaxReachRatio float64
	Holds         int
	Repositions   int
	// Intervals are inter-move gaps in milliseconds, in arrival order.
	Intervals []float64
	// COMStdX/Y is the center-of-mass dispersion over the whole session.
	COMStdX    float64
	COMStdY    float64
	COMSamples int
	// TorsoAngleMean is the average lean of the hip-to-shoulder line away
	// from vertical, in degrees, z-depth corrected when depth is present.
	TorsoAngleMean   float64
	TorsoAngleFrames int
	// OverheadFraction is the share of frames with an elbow above its
	// shoulder, a proxy for arm loading.
	OverheadFraction float64
	PostureFrames    int
}

// Buffer is the per-session landmark history. It is owned by exactly one
// session and is not safe for concurrent use.
type Buffer struct {
	params Params
	log    logger.Logger

	rings map[model.Joint]*ring
	com   *ring

	events []Event

	frames    int
	started   bool
	lastIndex int
	lastAt    time.Duration
	firstAt   time.Duration

	malformedLogged map[model.Joint]bool
	lostLogged      map[model.Joint]bool

	intervals    []float64
	lastMoveAt   time.Duration
	haveLastMove bool
	firstMoveAt  time.Duration
	haveFirst    bool
	moveCount    int
	moving       map[model.Side]bool

	dyn          map[model.Side]*dynamicState
	dynamicCount int

	feet     map[model.Side]*footState
	maxReach float64

	// Session-wide accumulators; rings roll, these do not.
	comN               int
	comSumX, comSumSqX float64
	comSumY, comSumSqY float64
	postureFrames      int
	overheadFrames     int
	torsoAngleSum      float64
	torsoAngleN        int
}

// Option applies a configuration option to the Buffer.
type Option func(*Buffer)

// WithLogger sets the logger used for drop and loss reporting.
func WithLogger(l logger.Logger) Option {
	return func(b *Buffer) {
		if l != nil {
			b.log = l
		}
	}
}

// New creates an empty buffer for one session.
func New(params Params, opts ...Option) *Buffer {
	if params.Capacity <= 0 {
		params.Capacity = DefaultParams().Capacity
	}
	b := &Buffer{
		params:          params,
		log:             logger.Nop(),
		rings:           make(map[model.Joint]*ring),
		com:             newRing(params.Capacity),
		malformedLogged: make(map[model.Joint]bool),
		lostLogged:      make(map[model.Joint]bool),
		moving:          map[model.Side]bool{model.SideLeft: false, model.SideRight: false},
		dyn: map[model.Side]*dynamicState{
			model.SideLeft:  {},
			model.SideRight: {},
		},
		feet: map[model.Side]*footState{
			model.SideLeft:  {},
			model.SideRight: {},
		},
	}
	for _, j := range model.AllJoints() {
		b.rings[j] = newRing(params.Capacity)
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Append adds a frame in strictly increasing index/timestamp order. Malformed
// frames are dropped with an error; joint-level gaps are handled by the
// hold-last-value policy and never fail the append.
func (b *Buffer) Append(ctx context.Context, frame model.PoseFrame) error {
	if j, err := b.checkFrame(frame); err != nil {
		// Logged once per joint per session; frame-level errors share the
		// empty joint key.
		if !b.malformedLogged[j] {
			b.log.Warn(ctx, "dropping malformed frame",
				logger.Int("frame", frame.Index),
				logger.String("joint", string(j)),
				logger.Error(err))
			b.malformedLogged[j] = true
		}
		return err
	}

	if !b.started {
		b.firstAt = frame.Timestamp
		b.started = true
	}
	b.lastIndex = frame.Index
	b.lastAt = frame.Timestamp
	b.frames++

	for _, j := range model.AllJoints() {
		b.appendJoint(ctx, j, frame)
	}

	b.updateCOM(frame)
	b.updateReach(frame)
	b.updatePosture(frame)
	b.updateTorso(frame)
	b.detectHands(frame)
	b.detectFeet(frame)

	return nil
}

// checkFrame validates a frame, returning the offending joint for coordinate
// errors. Frame-level errors report the empty joint.
func (b *Buffer) checkFrame(frame model.PoseFrame) (model.Joint, error) {
	if len(frame.Landmarks) == 0 {
		return "", fmt.Errorf("%w: frame %d has no landmarks", ErrMalformedFrame, frame.Index)
	}
	if b.started && (frame.Index <= b.lastIndex || frame.Timestamp <= b.lastAt) {
		return "", fmt.Errorf("%w: frame %d at %s after frame %d at %s",
			ErrOutOfOrder, frame.Index, frame.Timestamp, b.lastIndex, b.lastAt)
	}
	for j, lm := range frame.Landmarks {
		if !finite(lm.X) || !finite(lm.Y) || !finite(lm.Z) ||
			math.Abs(lm.X) > 10 || math.Abs(lm.Y) > 10 {
			return j, fmt.Errorf("%w: joint %s has impossible coordinates", ErrMalformedFrame, j)
		}
	}
	return "", nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (b *Buffer) appendJoint(ctx context.Context, j model.Joint, frame model.PoseFrame) {
	r := b.rings[j]
	lm, present := frame.Landmarks[j]

	if present && lm.Confidence >= b.params.MinConfidence {
		s := Sample{
			Point: Point{X: lm.X, Y: lm.Y, Z: lm.Z},
			At:    frame.Timestamp,
			Frame: frame.Index,
		}
		r.push(s)
		r.lastValid = s
		r.hasValid = true
		r.holding = false
		r.real++
		r.lastSeen = frame.Timestamp
		return
	}

	if !r.hasValid {
		return // joint never observed yet; nothing to carry forward
	}

	if !r.holding {
		r.holding = true
		r.holdSince = frame.Timestamp
	}
	if frame.Timestamp-r.holdSince <= b.params.MaxHold {
		held := r.lastValid
		held.At = frame.Timestamp
		held.Frame = frame.Index
		held.Held = true
		r.push(held)
		r.lastSeen = frame.Timestamp
		return
	}

	// Hold budget exhausted: the joint is lost for this span.
	r.lost += frame.Timestamp - r.lastSeen
	r.lastSeen = frame.Timestamp
	if !b.lostLogged[j] {
		b.log.Warn(ctx, "joint lost beyond hold budget; excluding span",
			logger.String("joint", string(j)))
		b.lostLogged[j] = true
	}
}

// Window returns the ordered recent samples for a joint covering at least
// duration d, or fewer if the session is shorter.
func (b *Buffer) Window(j model.Joint, d time.Duration) []Sample {
	r, ok := b.rings[j]
	if !ok {
		return nil
	}
	return r.window(d)
}

// COMWindow returns the recent center-of-mass track.
func (b *Buffer) COMWindow(d time.Duration) []Sample {
	return b.com.window(d)
}

// ValidSamples reports how many non-held samples a joint contributed over the
// whole session, including samples already evicted from the ring.
func (b *Buffer) ValidSamples(j model.Joint) int {
	if r, ok := b.rings[j]; ok {
		return r.real
	}
	return 0
}

// LostDuration reports the cumulative time a joint was marked lost.
func (b *Buffer) LostDuration(j model.Joint) time.Duration {
	if r, ok := b.rings[j]; ok {
		return r.lost
	}
	return 0
}

// Events returns a copy of the session event log in arrival order.
func (b *Buffer) Events() []Event {
	out := make([]Event, len(b.events))
	copy(out, b.events)
	return out
}

// EventsOf returns the logged events of one kind, in arrival order.
func (b *Buffer) EventsOf(kind EventKind) []Event {
	var out []Event
	for _, e := range b.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// FrameCount reports how many frames were accepted.
func (b *Buffer) FrameCount() int { return b.frames }

// Stats summarizes the session counters.
func (b *Buffer) Stats() Stats {
	holds := len(b.feet[model.SideLeft].clusters) + len(b.feet[model.SideRight].clusters)
	repos := b.feet[model.SideLeft].repositions + b.feet[model.SideRight].repositions
	intervals := make([]float64, len(b.intervals))
	copy(intervals, b.intervals)
	var firstMove time.Duration
	if b.haveFirst {
		firstMove = b.firstMoveAt - b.firstAt
	}
	var overhead float64
	if b.postureFrames > 0 {
		overhead = float64(b.overheadFrames) / float64(b.postureFrames)
	}
	var torso float64
	if b.torsoAngleN > 0 {
		torso = b.torsoAngleSum / float64(b.torsoAngleN)
	}
	return Stats{
		Frames:           b.frames,
		Duration:         b.lastAt - b.firstAt,
		FirstMoveAt:      firstMove,
		HasFirstMove:     b.haveFirst,
		MoveCount:        b.moveCount,
		DynamicCount:     b.dynamicCount,
		MaxReachRatio:    b.maxReach,
		Holds:            holds,
		Repositions:      repos,
		Intervals:        intervals,
		COMStdX:          stddev(b.comN, b.comSumX, b.comSumSqX),
		COMStdY:          stddev(b.comN, b.comSumY, b.comSumSqY),
		COMSamples:       b.comN,
		TorsoAngleMean:   torso,
		TorsoAngleFrames: b.torsoAngleN,
		OverheadFraction: overhead,
		PostureFrames:    b.postureFrames,
	}
}

func (b *Buffer) updateCOM(frame model.PoseFrame) {
	type weighted struct {
		j model.Joint
		w float64
	}
	parts := []weighted{
		{model.JointLeftShoulder, 0.1}, {model.JointRightShoulder, 0.1},
		{model.JointLeftHip, 0.2}, {model.JointRightHip, 0.2},
		{model.JointLeftKnee, 0.1}, {model.JointRightKnee, 0.1},
		{model.JointLeftAnkle, 0.1}, {model.JointRightAnkle, 0.1},
	}
	var sum Point
	var total float64
	for _, p := range parts {
		lm, ok := frame.Landmarks[p.j]
		if !ok || lm.Confidence < b.params.MinConfidence {
			continue
		}
		sum.X += lm.X * p.w
		sum.Y += lm.Y * p.w
		total += p.w
	}
	if total == 0 {
		return
	}
	com := Point{X: sum.X / total, Y: sum.Y / total}
	b.com.push(Sample{Point: com, At: frame.Timestamp, Frame: frame.Index})
	b.comN++
	b.comSumX += com.X
	b.comSumSqX += com.X * com.X
	b.comSumY += com.Y
	b.comSumSqY += com.Y * com.Y
}

func (b *Buffer) updatePosture(frame model.PoseFrame) {
	type pair struct{ elbow, shoulder model.Joint }
	pairs := []pair{
		{model.JointLeftElbow, model.JointLeftShoulder},
		{model.JointRightElbow, model.JointRightShoulder},
	}
	seen := false
	overhead := false
	for _, p := range pairs {
		e, okE := b.confident(frame, p.elbow)
		s, okS := b.confident(frame, p.shoulder)
		if !okE || !okS {
			continue
		}
		seen = true
		if e.Y < s.Y { // image Y grows downward
			overhead = true
		}
	}
	if !seen {
		return
	}
	b.postureFrames++
	if overhead {
		b.overheadFrames++
	}
}

// updateTorso accumulates the lean of the hip-to-shoulder line away from
// vertical. A hip pushed away from the wall shows up as extra depth between
// hip and shoulder centers and is folded into the angle.
func (b *Buffer) updateTorso(frame model.PoseFrame) {
	lh, okLH := b.confident(frame, model.JointLeftHip)
	rh, okRH := b.confident(frame, model.JointRightHip)
	ls, okLS := b.confident(frame, model.JointLeftShoulder)
	rs, okRS := b.confident(frame, model.JointRightShoulder)
	if !okLH || !okRH || !okLS || !okRS {
		return
	}
	hip := mid(lh, rh)
	shoulder := mid(ls, rs)
	dx := shoulder.X - hip.X
	dy := shoulder.Y - hip.Y
	length := math.Sqrt(dx*dx + dy*dy)
	if length == 0 {
		return
	}
	// Angle against vertical; image Y grows downward, so up is (0, -1).
	cos := -dy / length
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	angle := math.Acos(cos) * 180 / math.Pi

	if depth := math.Abs(hip.Z - shoulder.Z); depth > 0.05 {
		angle += depth * 100
	}

	b.torsoAngleSum += angle
	b.torsoAngleN++
}

func stddev(n int, sum, sumSq float64) float64 {
	if n < 2 {
		return 0
	}
	mean := sum / float64(n)
	v := sumSq/float64(n) - mean*mean
	if v < 0 {
		v = 0
	}
	return math.Sqrt(v)
}

func (b *Buffer) updateReach(frame model.PoseFrame) {
	lw, okLW := b.confident(frame, model.JointLeftWrist)
	rw, okRW := b.confident(frame, model.JointRightWrist)
	ls, okLS := b.confident(frame, model.JointLeftShoulder)
	rs, okRS := b.confident(frame, model.JointRightShoulder)
	if !okLW || !okRW || !okLS || !okRS {
		return
	}
	spread := dist(lw, rw)

	var heights []float64
	if la, ok := b.confident(frame, model.JointLeftAnkle); ok {
		heights = append(heights, dist(ls, la))
	}
	if ra, ok := b.confident(frame, model.JointRightAnkle); ok {
		heights = append(heights, dist(rs, ra))
	}
	var height float64
	if len(heights) > 0 {
		for _, h := range heights {
			height += h
		}
		height /= float64(len(heights))
	} else {
		lh, okLH := b.confident(frame, model.JointLeftHip)
		rh, okRH := b.confident(frame, model.JointRightHip)
		if !okLH || !okRH {
			return
		}
		shoulderC := mid(ls, rs)
		hipC := mid(lh, rh)
		height = dist(shoulderC, hipC)
	}
	if height <= 0 {
		return
	}
	if ratio := spread / height; ratio > b.maxReach {
		b.maxReach = ratio
	}
}

func (b *Buffer) confident(frame model.PoseFrame, j model.Joint) (Point, bool) {
	lm, ok := frame.Landmarks[j]
	if !ok || lm.Confidence < b.params.MinConfidence {
		return Point{}, false
	}
	return Point{X: lm.X, Y: lm.Y, Z: lm.Z}, true
}

func mid(a, b Point) Point {
	return Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2, Z: (a.Z + b.Z) / 2}
}
