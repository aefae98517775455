package loadgen

import (
	"crypto/rand"
	"math"
	"math/big"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
	archetypeDivisor   = 4
)

// Frame timing for synthetic sessions, 30fps.
const frameIntervalMS = 33.0

// Constants for archetype cases.
const (
	casePreciseClimber  = 0
	caseDynamicClimber  = 1
	caseScrappyClimber  = 2
	caseFatiguedClimber = 3
)

// archetype shapes the synthetic motion of one climber.
type archetype struct {
	noise        float64 // positional jitter per frame
	reachEvery   int     // frames between hand moves
	reachSpeed   float64 // wrist displacement per reach frame
	stepEvery    int     // frames between foot repositions
	pauseEvery   int     // frames between route-reading pauses
	lowConfEvery int     // frames between low-confidence dropouts, 0 for none
}

// randFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func randFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// pickArchetype selects a motion style with varied distribution.
func pickArchetype() archetype {
	n, _ := rand.Int(rand.Reader, big.NewInt(archetypeDivisor))
	switch n.Int64() {
	case casePreciseClimber:
		// Quiet feet, steady rhythm, occasional deliberate pause
		return archetype{noise: 0.002, reachEvery: 24, reachSpeed: 0.015, stepEvery: 48, pauseEvery: 90}
	case caseDynamicClimber:
		// Fast reaches, bigger jitter
		return archetype{noise: 0.006, reachEvery: 12, reachSpeed: 0.045, stepEvery: 30, pauseEvery: 0}
	case caseScrappyClimber:
		// Frequent foot repositions, noisy tracking
		return archetype{noise: 0.010, reachEvery: 18, reachSpeed: 0.025, stepEvery: 10, pauseEvery: 0, lowConfEvery: 25}
	case caseFatiguedClimber:
		// Slowing reaches toward the end of the attempt
		return archetype{noise: 0.005, reachEvery: 20, reachSpeed: 0.020, stepEvery: 36, pauseEvery: 60}
	default:
		return archetype{noise: 0.004, reachEvery: 20, reachSpeed: 0.020, stepEvery: 36, pauseEvery: 0}
	}
}

// generateSession produces one synthetic climbing attempt as wire frames.
// Coordinates are normalized with y growing downward; the body drifts upward
// over the attempt while limbs alternate reaches and steps.
func generateSession(count int, a archetype) []Frame {
	frames := make([]Frame, 0, count)

	// Starting joint layout, shoulder width apart on the wall.
	base := map[string][2]float64{
		"left_shoulder":  {0.45, 0.40},
		"right_shoulder": {0.55, 0.40},
		"left_elbow":     {0.40, 0.50},
		"right_elbow":    {0.60, 0.50},
		"left_wrist":     {0.38, 0.32},
		"right_wrist":    {0.62, 0.32},
		"left_hip":       {0.46, 0.60},
		"right_hip":      {0.54, 0.60},
		"left_knee":      {0.44, 0.75},
		"right_knee":     {0.56, 0.75},
		"left_ankle":     {0.43, 0.90},
		"right_ankle":    {0.57, 0.90},
	}

	rise := 0.3 / float64(count) // total upward travel over the attempt
	ascent := 0.0

	for i := 1; i <= count; i++ {
		if a.pauseEvery == 0 || i%a.pauseEvery >= 30 {
			// Otherwise hold position as if reading the next sequence
			ascent += rise
		}

		lm := make(map[string]Landmark, len(base))
		for joint, pos := range base {
			x := pos[0] + (randFloat()-0.5)*a.noise
			y := pos[1] - ascent + (randFloat()-0.5)*a.noise

			conf := 0.85 + randFloat()*0.14
			if a.lowConfEvery > 0 && i%a.lowConfEvery == 0 {
				conf = 0.2 + randFloat()*0.2
			}
			lm[joint] = Landmark{X: clamp01(x), Y: clamp01(y), Confidence: conf}
		}

		// Alternate hand reaches; fatigue stretches the interval late in the
		// attempt which the analysis reads as a slowdown.
		every := a.reachEvery
		if a.pauseEvery == 60 && i > count/2 {
			every = a.reachEvery * 2
		}
		if every > 0 && i%every < 4 {
			side := "left_wrist"
			if (i/every)%2 == 0 {
				side = "right_wrist"
			}
			p := lm[side]
			p.Y = clamp01(p.Y - a.reachSpeed)
			lm[side] = p
		}

		if a.stepEvery > 0 && i%a.stepEvery == 0 {
			side := "left_ankle"
			if (i/a.stepEvery)%2 == 0 {
				side = "right_ankle"
			}
			p := lm[side]
			p.X = clamp01(p.X + (randFloat()-0.5)*0.08)
			p.Y = clamp01(p.Y - 0.04)
			lm[side] = p
		}

		frames = append(frames, Frame{
			Index:       i,
			TimestampMS: float64(i) * frameIntervalMS,
			Landmarks:   lm,
		})
	}

	return frames
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
