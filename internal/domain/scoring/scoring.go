// Package scoring normalizes raw kinematic signals into 0-100 scores with
// qualitative levels and aggregates them into a technique profile with an
// estimated grade.
package scoring

import (
	"math"

	"github.com/okian/crux/internal/domain/model"
)

// Default aggregation constants. The calibration offset compensates the
// systematic underscoring of noisy pose estimation.
const (
	defaultCalibration = 8.0
	defaultBonusCap    = 8.0
	fallbackScore      = 50.0
)

// DefaultWeights returns the technique category weights. They sum to 1.0;
// the aggregator renormalizes whenever a category is excluded.
func DefaultWeights() map[model.Category]float64 {
	return map[model.Category]float64{
		model.CategoryQuietFeet:      0.20,
		model.CategoryHipPosition:    0.20,
		model.CategoryDiagonal:       0.15,
		model.CategoryGripRelease:    0.15,
		model.CategoryRhythm:         0.10,
		model.CategoryDynamicControl: 0.10,
		model.CategoryRouteReading:   0.10,
	}
}

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithWeights replaces the technique weights. Non-positive entries are
// dropped.
func WithWeights(weights map[model.Category]float64) Option {
	return func(a *Aggregator) {
		a.weights = make(map[model.Category]float64, len(weights))
		for cat, w := range weights {
			if w > 0 {
				a.weights[cat] = w
			}
		}
	}
}

// WithCalibration sets the grade-lookup calibration offset.
func WithCalibration(offset float64) Option {
	return func(a *Aggregator) {
		a.calibration = offset
	}
}

// WithBonusCap limits the complexity bonus applied at grade lookup.
func WithBonusCap(limit float64) Option {
	return func(a *Aggregator) {
		if limit >= 0 {
			a.bonusCap = limit
		}
	}
}

// WithRule overrides the normalization rule for one category.
func WithRule(cat model.Category, rule Rule) Option {
	return func(a *Aggregator) {
		if rule != nil {
			a.rules[cat] = rule
		}
	}
}

// Aggregator owns the per-category rules and the weighting scheme. It is
// immutable after construction and safe to share across sessions.
type Aggregator struct {
	rules       map[model.Category]Rule
	weights     map[model.Category]float64
	calibration float64
	bonusCap    float64
}

// New creates an aggregator with the default rules and weights.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		rules:       Rules(),
		weights:     DefaultWeights(),
		calibration: defaultCalibration,
		bonusCap:    defaultBonusCap,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Score normalizes one raw signal into a metric result. The raw values ride
// along for the template renderer.
func (a *Aggregator) Score(raw model.RawSignal) model.MetricResult {
	rule, ok := a.rules[raw.Category]
	if !ok {
		return model.MetricResult{
			Category: raw.Category,
			Score:    fallbackScore,
			Level:    GenericLevel(fallbackScore),
			Raw:      raw.Values,
		}
	}
	score, level := rule(raw)
	return model.MetricResult{
		Category: raw.Category,
		Score:    round1(score),
		Level:    level,
		Raw:      raw.Values,
	}
}

// Aggregate computes the weighted overall score over the present technique
// categories and resolves the grade. Excluded categories carry no weight;
// when every weighted category is missing the grade is indeterminate.
func (a *Aggregator) Aggregate(
	metrics map[model.Category]model.MetricResult,
	excluded []model.Category,
	cx Complexity,
) model.TechniqueProfile {
	// Summation follows the fixed category order; float addition is not
	// associative and map order would make reruns disagree at rounding
	// boundaries.
	var weightSum, total float64
	for _, cat := range model.TechniqueCategories() {
		w, ok := a.weights[cat]
		if !ok {
			continue
		}
		m, ok := metrics[cat]
		if !ok {
			continue
		}
		weightSum += w
		total += w * m.Score
	}

	profile := model.TechniqueProfile{
		Metrics:  metrics,
		Excluded: excluded,
	}
	if weightSum == 0 {
		profile.Grade = model.GradeIndeterminate
		return profile
	}

	overall := total / weightSum
	profile.OverallScore = round1(overall)

	lookup := overall + a.calibration + complexityBonus(cx, a.bonusCap)
	profile.Grade = lookupGrade(clamp(lookup, 0, 100))
	return profile
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
