package extract

import (
	"math"

	"github.com/okian/crux/internal/domain/buffer"
	"github.com/okian/crux/internal/domain/model"
)

// Stability measures center-of-mass dispersion over the whole session.
func Stability(b *buffer.Buffer, p Params) (model.RawSignal, error) {
	stats := b.Stats()
	if stats.COMSamples < p.MinCOMSamples {
		return model.RawSignal{}, insufficient(model.CategoryStability, "too few body observations")
	}
	dispersion := math.Sqrt(stats.COMStdX*stats.COMStdX + stats.COMStdY*stats.COMStdY)
	return model.RawSignal{
		Category: model.CategoryStability,
		Values: map[string]float64{
			"dispersion": dispersion,
		},
		Samples: stats.COMSamples,
	}, nil
}

// Exhaustion compares late-session movement pacing against the early session.
// Slowdown is the late-half mean interval over the early-half mean; values
// above 1 mean the climber is fading.
func Exhaustion(b *buffer.Buffer, p Params) (model.RawSignal, error) {
	intervals := b.Stats().Intervals
	if len(intervals) < 2*p.MinIntervals {
		return model.RawSignal{}, insufficient(model.CategoryExhaustion, "session too short to split")
	}
	half := len(intervals) / 2
	earlyMean, _ := meanStd(intervals[:half])
	lateMean, _ := meanStd(intervals[half:])
	slowdown := 1.0
	if earlyMean > 0 {
		slowdown = lateMean / earlyMean
	}
	return model.RawSignal{
		Category: model.CategoryExhaustion,
		Values: map[string]float64{
			"slowdown": slowdown,
		},
		Samples: len(intervals),
	}, nil
}

// ArmEfficiency estimates the share of body weight the arms carry from how
// long the elbows spend above the shoulders. A fully loaded hang reads high,
// a legs-driven climb reads near the 30% floor.
func ArmEfficiency(b *buffer.Buffer, p Params) (model.RawSignal, error) {
	stats := b.Stats()
	if stats.PostureFrames < p.MinTorsoFrames {
		return model.RawSignal{}, insufficient(model.CategoryArmEfficiency, "upper body not visible long enough")
	}
	load := 30 + 50*stats.OverheadFraction
	return model.RawSignal{
		Category: model.CategoryArmEfficiency,
		Values: map[string]float64{
			"arm_load": load,
		},
		Samples: stats.PostureFrames,
	}, nil
}

// LegEfficiency is the complementary load estimate for the legs.
func LegEfficiency(b *buffer.Buffer, p Params) (model.RawSignal, error) {
	stats := b.Stats()
	if stats.PostureFrames < p.MinTorsoFrames || ankleReal(b) == 0 {
		return model.RawSignal{}, insufficient(model.CategoryLegEfficiency, "lower body not visible long enough")
	}
	armLoad := 30 + 50*stats.OverheadFraction
	legLoad := 95 - armLoad
	if legLoad < 0 {
		legLoad = 0
	}
	return model.RawSignal{
		Category: model.CategoryLegEfficiency,
		Values: map[string]float64{
			"leg_load": legLoad,
			"holds":    float64(stats.Holds),
		},
		Samples: ankleReal(b),
	}, nil
}
