package model

import (
	"time"

	"github.com/google/uuid"
)

// Category names a technique or auxiliary metric.
type Category string

// Technique categories. These carry weight in the overall score.
const (
	CategoryQuietFeet      Category = "quiet_feet"
	CategoryHipPosition    Category = "hip_position"
	CategoryDiagonal       Category = "diagonal"
	CategoryGripRelease    Category = "grip_release"
	CategoryRhythm         Category = "rhythm"
	CategoryDynamicControl Category = "dynamic_control"
	CategoryRouteReading   Category = "route_reading"
)

// Auxiliary categories. They feed the SWOT narrative and threat rules but
// never contribute to the overall score.
const (
	CategoryStability     Category = "stability"
	CategoryExhaustion    Category = "exhaustion"
	CategoryArmEfficiency Category = "arm_efficiency"
	CategoryLegEfficiency Category = "leg_efficiency"
)

// TechniqueCategories returns the weighted categories in a stable order.
func TechniqueCategories() []Category {
	return []Category{
		CategoryQuietFeet,
		CategoryHipPosition,
		CategoryDiagonal,
		CategoryGripRelease,
		CategoryRhythm,
		CategoryDynamicControl,
		CategoryRouteReading,
	}
}

// AuxiliaryCategories returns the SWOT-only categories in a stable order.
func AuxiliaryCategories() []Category {
	return []Category{
		CategoryStability,
		CategoryExhaustion,
		CategoryArmEfficiency,
		CategoryLegEfficiency,
	}
}

// RawSignal is the output of one feature extractor: named kinematic values
// before normalization to a score. Samples records how many valid
// observations backed the computation.
type RawSignal struct {
	Category Category           `json:"category"`
	Values   map[string]float64 `json:"values"`
	Samples  int                `json:"samples"`
}

// MetricResult is a scored category. Raw carries the placeholder values used
// by the template renderer.
type MetricResult struct {
	Category Category           `json:"category"`
	Score    float64            `json:"score"`
	Level    string             `json:"level"`
	Raw      map[string]float64 `json:"raw,omitempty"`
}

// GradeIndeterminate is reported when no technique category produced enough
// valid samples to score.
const GradeIndeterminate = "indeterminate"

// TechniqueProfile aggregates every scored category for one session.
// Excluded lists technique categories dropped for insufficient data.
type TechniqueProfile struct {
	Metrics      map[Category]MetricResult `json:"metrics"`
	Excluded     []Category                `json:"excluded,omitempty"`
	OverallScore float64                   `json:"overall_score"`
	Grade        string                    `json:"grade"`
}

// TensionKind classifies a joint-stress event.
type TensionKind string

// Tension event kinds.
const (
	TensionAngleLock TensionKind = "angle_lock"
	TensionRotation  TensionKind = "rotation"
	TensionTwist     TensionKind = "twist"
)

// TensionEvent is an accumulated joint-stress summary for one joint group
// and side across a whole session.
type TensionEvent struct {
	Joint    string      `json:"joint"`
	Kind     TensionKind `json:"kind"`
	Side     Side        `json:"side"`
	Count    int         `json:"count"`
	Extremum float64     `json:"extremum"`
}

// SwotItem is one rendered entry of the SWOT report.
type SwotItem struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
	Text  string  `json:"text"`
}

// SwotReport is the final narrative output. Each list is ordered and capped
// by the synthesizer; the report is immutable once built.
type SwotReport struct {
	Strengths     []SwotItem `json:"strengths"`
	Weaknesses    []SwotItem `json:"weaknesses"`
	Opportunities []SwotItem `json:"opportunities"`
	Threats       []SwotItem `json:"threats"`
}

// SessionReport is the finished analysis for one session: the scored profile,
// the SWOT-only auxiliary metrics, the joint-stress summary and the rendered
// narrative. Immutable once stored.
type SessionReport struct {
	SessionID  uuid.UUID                 `json:"session_id"`
	Profile    TechniqueProfile          `json:"profile"`
	Auxiliary  map[Category]MetricResult `json:"auxiliary,omitempty"`
	Tension    []TensionEvent            `json:"tension,omitempty"`
	Swot       SwotReport                `json:"swot"`
	Frames     int                       `json:"frames"`
	Duration   time.Duration             `json:"duration"`
	AnalyzedAt time.Time                 `json:"analyzed_at"`
}
