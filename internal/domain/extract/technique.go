package extract

import (
	"math"

	"github.com/okian/crux/internal/domain/buffer"
	"github.com/okian/crux/internal/domain/model"
)

// QuietFeet measures foot repositions per distinct support against the
// grade-bracket norm. Pivots were already filtered out at detection time.
func QuietFeet(b *buffer.Buffer, p Params) (model.RawSignal, error) {
	stats := b.Stats()
	if stats.Holds == 0 {
		return model.RawSignal{}, insufficient(model.CategoryQuietFeet, "no foot supports detected")
	}
	avg := float64(stats.Repositions) / float64(stats.Holds)
	return model.RawSignal{
		Category: model.CategoryQuietFeet,
		Values: map[string]float64{
			"repositions": avg,
			"norm":        p.repositionNorm(),
			"holds":       float64(stats.Holds),
		},
		Samples: ankleReal(b),
	}, nil
}

// HipPosition measures the mean lean of the torso away from the wall.
// Overload is the excess share of body weight the arms carry because of it.
func HipPosition(b *buffer.Buffer, p Params) (model.RawSignal, error) {
	stats := b.Stats()
	if stats.TorsoAngleFrames < p.MinTorsoFrames {
		return model.RawSignal{}, insufficient(model.CategoryHipPosition, "torso not visible long enough")
	}
	angle := stats.TorsoAngleMean
	overload := angle * 1.5
	if overload > 60 {
		overload = 60
	}
	return model.RawSignal{
		Category: model.CategoryHipPosition,
		Values: map[string]float64{
			"angle":    angle,
			"overload": overload,
		},
		Samples: stats.TorsoAngleFrames,
	}, nil
}

// Diagonal measures how often the leg opposite the moving hand did the work,
// with the lateral center-of-mass amplitude as a sway signal.
func Diagonal(b *buffer.Buffer, p Params) (model.RawSignal, error) {
	moves := b.EventsOf(buffer.EventMove)
	if len(moves) < p.MinMoves {
		return model.RawSignal{}, insufficient(model.CategoryDiagonal, "too few hand moves")
	}
	var classified, diagonal int
	for _, m := range moves {
		switch m.Value {
		case buffer.PairingDiagonal:
			classified++
			diagonal++
		case buffer.PairingSquare:
			classified++
		}
	}
	var pct float64
	if classified > 0 {
		pct = 100 * float64(diagonal) / float64(classified)
	}
	return model.RawSignal{
		Category: model.CategoryDiagonal,
		Values: map[string]float64{
			"diagonal_pct": pct,
			"sway":         b.Stats().COMStdX,
			"classified":   float64(classified),
		},
		Samples: len(moves),
	}, nil
}

// GripRelease measures the mean peak jerk over the samples leading into each
// hand move.
func GripRelease(b *buffer.Buffer, p Params) (model.RawSignal, error) {
	releases := b.EventsOf(buffer.EventRelease)
	if len(releases) == 0 {
		return model.RawSignal{}, insufficient(model.CategoryGripRelease, "no releases observed")
	}
	var sum float64
	for _, r := range releases {
		sum += r.Value
	}
	return model.RawSignal{
		Category: model.CategoryGripRelease,
		Values: map[string]float64{
			"jerk":   sum / float64(len(releases)),
			"events": float64(len(releases)),
		},
		Samples: len(releases),
	}, nil
}

// Rhythm measures the spread of inter-move intervals in milliseconds.
func Rhythm(b *buffer.Buffer, p Params) (model.RawSignal, error) {
	intervals := b.Stats().Intervals
	if len(intervals) < p.MinIntervals {
		return model.RawSignal{}, insufficient(model.CategoryRhythm, "too few move intervals")
	}
	mean, std := meanStd(intervals)
	return model.RawSignal{
		Category: model.CategoryRhythm,
		Values: map[string]float64{
			"variance": math.Round(std),
			"mean":     math.Round(mean),
		},
		Samples: len(intervals),
	}, nil
}

// DynamicControl measures the mean settle time after dynamic moves. A session
// with hand data but no dynamic moves is a clean static climb, not a gap.
func DynamicControl(b *buffer.Buffer, p Params) (model.RawSignal, error) {
	if wristReal(b) < p.MinWristReal {
		return model.RawSignal{}, insufficient(model.CategoryDynamicControl, "no hand data")
	}
	dyn := b.EventsOf(buffer.EventDynamic)
	var mean float64
	if len(dyn) > 0 {
		for _, d := range dyn {
			mean += d.Value
		}
		mean /= float64(len(dyn))
	}
	return model.RawSignal{
		Category: model.CategoryDynamicControl,
		Values: map[string]float64{
			"time":   mean,
			"events": float64(len(dyn)),
		},
		Samples: wristReal(b),
	}, nil
}

// RouteReading measures pre-climb planning time and mid-climb reading pauses.
func RouteReading(b *buffer.Buffer, p Params) (model.RawSignal, error) {
	stats := b.Stats()
	if !stats.HasFirstMove {
		return model.RawSignal{}, insufficient(model.CategoryRouteReading, "no movement observed")
	}
	pauses := len(b.EventsOf(buffer.EventPause))
	return model.RawSignal{
		Category: model.CategoryRouteReading,
		Values: map[string]float64{
			"pauses":     float64(pauses),
			"preclimb_s": stats.FirstMoveAt.Seconds(),
		},
		Samples: stats.MoveCount,
	}, nil
}
