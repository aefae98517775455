package swot_test

import (
	"context"
	"testing"

	"github.com/okian/crux/internal/domain/model"
	"github.com/okian/crux/internal/domain/swot"
	"github.com/okian/crux/internal/domain/tension"
	"github.com/okian/crux/internal/templates"
	. "github.com/smartystreets/goconvey/convey"
)

func metric(cat model.Category, score float64, level string, raw map[string]float64) model.MetricResult {
	return model.MetricResult{Category: cat, Score: score, Level: level, Raw: raw}
}

func TestBuild(t *testing.T) {
	Convey("Given a session with mixed technique quality", t, func() {
		s := swot.New(templates.Builtin())
		profile := &model.TechniqueProfile{
			Metrics: map[model.Category]model.MetricResult{
				model.CategoryQuietFeet: metric(model.CategoryQuietFeet, 85, "excellent",
					map[string]float64{"repositions": 1.2, "norm": 1.8, "holds": 5}),
				model.CategoryHipPosition: metric(model.CategoryHipPosition, 30, "poor",
					map[string]float64{"angle": 45, "overload": 60}),
				model.CategoryRhythm: metric(model.CategoryRhythm, 50, "medium",
					map[string]float64{"variance": 250, "mean": 800}),
				model.CategoryRouteReading: metric(model.CategoryRouteReading, 90, "excellent",
					map[string]float64{"pauses": 3, "preclimb_s": 6}),
				model.CategoryDiagonal: metric(model.CategoryDiagonal, 60, "good",
					map[string]float64{"diagonal_pct": 50}),
			},
		}
		aux := map[model.Category]model.MetricResult{
			model.CategoryStability: metric(model.CategoryStability, 80, "excellent",
				map[string]float64{"dispersion": 0.02}),
			model.CategoryArmEfficiency: metric(model.CategoryArmEfficiency, 30, "critical",
				map[string]float64{"arm_load": 70}),
			model.CategoryExhaustion: metric(model.CategoryExhaustion, 60, "high",
				map[string]float64{"slowdown": 1.6}),
		}
		events := []model.TensionEvent{
			{Joint: tension.JointShoulder, Kind: model.TensionRotation, Side: model.SideLeft, Count: 3, Extremum: 25},
			{Joint: tension.JointElbow, Kind: model.TensionAngleLock, Side: model.SideLeft, Count: 6, Extremum: 52},
		}

		report := s.Build(context.Background(), profile, aux, events)

		Convey("Strengths are the high scorers, best first", func() {
			So(len(report.Strengths), ShouldEqual, 3)
			So(report.Strengths[0].ID, ShouldEqual, "route_reading")
			So(report.Strengths[1].ID, ShouldEqual, "quiet_feet")
			So(report.Strengths[2].ID, ShouldEqual, "stability")
			So(report.Strengths[1].Text, ShouldContainSubstring, "85%")
		})

		Convey("Weaknesses come worst first with their numbers inlined", func() {
			So(len(report.Weaknesses), ShouldEqual, 3)
			So(report.Weaknesses[0].ID, ShouldEqual, "hip_position")
			So(report.Weaknesses[0].Text, ShouldContainSubstring, "45°")
			So(report.Weaknesses[1].ID, ShouldEqual, "arm_efficiency")
			So(report.Weaknesses[1].Text, ShouldContainSubstring, "70%")
			So(report.Weaknesses[2].ID, ShouldEqual, "rhythm")
		})

		Convey("Each weakness with a rule yields an opportunity, recovery rides on exhaustion", func() {
			So(len(report.Opportunities), ShouldEqual, 3)
			So(report.Opportunities[0].ID, ShouldEqual, "hip_position")
			So(report.Opportunities[0].Text, ShouldContainSubstring, "50%")
			So(report.Opportunities[1].ID, ShouldEqual, "rhythm")
			So(report.Opportunities[1].Text, ShouldContainSubstring, "15%")
			So(report.Opportunities[2].ID, ShouldEqual, "recovery")
			So(report.Opportunities[2].Text, ShouldContainSubstring, "30%")
		})

		Convey("Threats are ordered by severity and name the side", func() {
			So(len(report.Threats), ShouldEqual, 2)
			So(report.Threats[0].ID, ShouldEqual, "elbow")
			So(report.Threats[0].Text, ShouldStartWith, "Left elbow")
			So(report.Threats[1].ID, ShouldEqual, "shoulder")
			So(report.Threats[1].Text, ShouldContainSubstring, "3 spots")
		})
	})
}

func TestBuildCaps(t *testing.T) {
	Convey("Given more qualifying metrics than the report can hold", t, func() {
		s := swot.New(templates.Builtin())
		profile := &model.TechniqueProfile{
			Metrics: map[model.Category]model.MetricResult{
				model.CategoryQuietFeet:      metric(model.CategoryQuietFeet, 95, "excellent", nil),
				model.CategoryHipPosition:    metric(model.CategoryHipPosition, 96, "excellent", nil),
				model.CategoryDiagonal:       metric(model.CategoryDiagonal, 91, "excellent", nil),
				model.CategoryGripRelease:    metric(model.CategoryGripRelease, 88, "excellent", nil),
				model.CategoryRouteReading:   metric(model.CategoryRouteReading, 97, "excellent", nil),
				model.CategoryDynamicControl: metric(model.CategoryDynamicControl, 100, "excellent", nil),
			},
		}

		report := s.Build(context.Background(), profile, nil, nil)

		Convey("Strengths stop at four, keeping the best", func() {
			So(len(report.Strengths), ShouldEqual, 4)
			So(report.Strengths[0].ID, ShouldEqual, "dynamic_control")
			So(report.Strengths[3].ID, ShouldEqual, "quiet_feet")
		})

		Convey("Nothing qualifies below, the other lists stay empty", func() {
			So(report.Weaknesses, ShouldBeEmpty)
			So(report.Opportunities, ShouldBeEmpty)
			So(report.Threats, ShouldBeEmpty)
		})
	})
}

func TestBuildKeepsLiteralTemplate(t *testing.T) {
	Convey("Given a weakness whose raw values are gone", t, func() {
		s := swot.New(templates.Builtin())
		profile := &model.TechniqueProfile{
			Metrics: map[model.Category]model.MetricResult{
				model.CategoryRhythm: metric(model.CategoryRhythm, 40, "poor", nil),
			},
		}

		report := s.Build(context.Background(), profile, nil, nil)

		Convey("The weakness survives with the template left literal", func() {
			So(len(report.Weaknesses), ShouldEqual, 1)
			So(report.Weaknesses[0].ID, ShouldEqual, "rhythm")
			So(report.Weaknesses[0].Text, ShouldContainSubstring, "{variance}")
			So(report.Weaknesses[0].Score, ShouldEqual, 40)
		})

		Convey("The opportunity rule still needs its raw inputs", func() {
			So(report.Opportunities, ShouldBeEmpty)
		})
	})
}

func TestWeaknessCutoff(t *testing.T) {
	Convey("Given a metric scoring between the default and a raised cutoff", t, func() {
		profile := &model.TechniqueProfile{
			Metrics: map[model.Category]model.MetricResult{
				model.CategoryDiagonal: metric(model.CategoryDiagonal, 60, "medium",
					map[string]float64{"diagonal_pct": 55}),
			},
		}

		Convey("The default cutoff leaves it out", func() {
			s := swot.New(templates.Builtin())
			report := s.Build(context.Background(), profile, nil, nil)
			So(report.Weaknesses, ShouldBeEmpty)
		})

		Convey("A raised cutoff pulls it in", func() {
			s := swot.New(templates.Builtin(), swot.WithWeaknessCutoff(65))
			report := s.Build(context.Background(), profile, nil, nil)
			So(len(report.Weaknesses), ShouldEqual, 1)
			So(report.Weaknesses[0].ID, ShouldEqual, "diagonal")
		})
	})
}
