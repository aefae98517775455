// Package extract turns a finished session buffer into raw per-category
// signals. Extractors measure, they never score; normalization to a 0-100
// score lives in the scoring package.
package extract

import (
	"fmt"
	"math"

	"github.com/okian/crux/internal/domain/buffer"
	"github.com/okian/crux/internal/domain/model"
)

// Params tunes the extractors. RepositionNorms maps a grade bracket to the
// expected foot repositions per hold at that level.
type Params struct {
	GradeBracket    string
	RepositionNorms map[string]float64

	MinTorsoFrames int
	MinMoves       int
	MinIntervals   int
	MinCOMSamples  int
	MinWristReal   int
}

// DefaultParams returns the standard extraction thresholds.
func DefaultParams() Params {
	return Params{
		GradeBracket: "6a-6b",
		RepositionNorms: map[string]float64{
			"5a-5c": 2.5,
			"6a-6b": 1.8,
			"6c-7a": 1.2,
			"7b+":   0.8,
		},
		MinTorsoFrames: 10,
		MinMoves:       3,
		MinIntervals:   3,
		MinCOMSamples:  10,
		MinWristReal:   5,
	}
}

// Func computes one raw signal from a session buffer.
type Func func(b *buffer.Buffer, p Params) (model.RawSignal, error)

// Extractor couples a category with its extraction function.
type Extractor struct {
	Category model.Category
	Run      Func
}

// Technique returns the weighted-category extractors in scoring order.
func Technique() []Extractor {
	return []Extractor{
		{model.CategoryQuietFeet, QuietFeet},
		{model.CategoryHipPosition, HipPosition},
		{model.CategoryDiagonal, Diagonal},
		{model.CategoryGripRelease, GripRelease},
		{model.CategoryRhythm, Rhythm},
		{model.CategoryDynamicControl, DynamicControl},
		{model.CategoryRouteReading, RouteReading},
	}
}

// Auxiliary returns the SWOT-only extractors.
func Auxiliary() []Extractor {
	return []Extractor{
		{model.CategoryStability, Stability},
		{model.CategoryExhaustion, Exhaustion},
		{model.CategoryArmEfficiency, ArmEfficiency},
		{model.CategoryLegEfficiency, LegEfficiency},
	}
}

// All returns every extractor, technique first.
func All() []Extractor {
	return append(Technique(), Auxiliary()...)
}

func insufficient(cat model.Category, why string) error {
	return fmt.Errorf("%w: %s: %s", ErrInsufficientData, cat, why)
}

func (p Params) repositionNorm() float64 {
	if n, ok := p.RepositionNorms[p.GradeBracket]; ok {
		return n
	}
	// Unknown bracket: fall back to the mid-range norm.
	return 1.8
}

func wristReal(b *buffer.Buffer) int {
	return b.ValidSamples(model.JointLeftWrist) + b.ValidSamples(model.JointRightWrist)
}

func ankleReal(b *buffer.Buffer) int {
	return b.ValidSamples(model.JointLeftAnkle) + b.ValidSamples(model.JointRightAnkle)
}

func meanStd(xs []float64) (mean, std float64) {
	n := float64(len(xs))
	if n == 0 {
		return 0, 0
	}
	for _, x := range xs {
		mean += x
	}
	mean /= n
	if n < 2 {
		return mean, 0
	}
	var sq float64
	for _, x := range xs {
		d := x - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / n)
}
