package templates_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/crux/internal/domain/model"
	"github.com/okian/crux/internal/domain/tension"
	"github.com/okian/crux/internal/templates"
	"github.com/okian/crux/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRender(t *testing.T) {
	Convey("Given a template with placeholders", t, func() {
		text := "Hip position {score}% ({angle}°)."

		Convey("All values present renders cleanly", func() {
			out, missing := templates.Render(text, templates.Values{
				"score": 80.0,
				"angle": 12.5,
			})
			So(missing, ShouldBeNil)
			So(out, ShouldEqual, "Hip position 80% (12.5°).")
		})

		Convey("A missing value returns the literal template", func() {
			out, missing := templates.Render(text, templates.Values{"score": 80.0})
			So(out, ShouldEqual, text)
			So(missing, ShouldResemble, []string{"angle"})
		})

		Convey("String values substitute verbatim", func() {
			out, missing := templates.Render("{side} shoulder", templates.Values{"side": "Left"})
			So(missing, ShouldBeNil)
			So(out, ShouldEqual, "Left shoulder")
		})
	})
}

func TestLoadFallbacks(t *testing.T) {
	Convey("Given no template file", t, func() {
		set := templates.Load(context.Background(), "", logger.Nop())

		Convey("The builtin set is returned whole", func() {
			So(set, ShouldResemble, templates.Builtin())
		})
	})

	Convey("Given a path that does not exist", t, func() {
		set := templates.Load(context.Background(), "/nowhere/templates.yaml", logger.Nop())
		So(set, ShouldResemble, templates.Builtin())
	})

	Convey("Given a partial file with one bad entry", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "templates.yaml")
		body := `
metrics:
  quiet_feet:
    excellent:
      strength: "Feet on rails at {score}%."
    poor:
      weakness: "Broken {placeholder"
opportunities:
  - id: rhythm
    metric: rhythm
    text: "Steady pace saves {saved}%."
  - id: unknown_rule
    metric: rhythm
    text: "Never used."
`
		So(os.WriteFile(path, []byte(body), 0o600), ShouldBeNil)
		set := templates.Load(context.Background(), path, logger.Nop())

		Convey("The valid override wins", func() {
			text, ok := set.MetricText(model.CategoryQuietFeet, "excellent", true)
			So(ok, ShouldBeTrue)
			So(text, ShouldEqual, "Feet on rails at {score}%.")
		})

		Convey("The malformed entry falls back to the builtin text", func() {
			text, ok := set.MetricText(model.CategoryQuietFeet, "poor", false)
			So(ok, ShouldBeTrue)
			So(text, ShouldEqual, templates.Builtin().Metrics["quiet_feet"]["poor"].Weakness)
		})

		Convey("Untouched entries keep their builtin texts", func() {
			text, ok := set.MetricText(model.CategoryHipPosition, "good", true)
			So(ok, ShouldBeTrue)
			So(text, ShouldEqual, templates.Builtin().Metrics["hip_position"]["good"].Strength)
		})

		Convey("The known opportunity override is kept, the unknown one dropped", func() {
			rule, ok := set.Opportunity(model.CategoryRhythm)
			So(ok, ShouldBeTrue)
			So(rule.Text, ShouldEqual, "Steady pace saves {saved}%.")

			for _, r := range set.Opportunities {
				So(r.ID, ShouldNotEqual, "unknown_rule")
			}
		})

		Convey("Builtin rules missing from the file are appended", func() {
			_, ok := set.Opportunity(model.CategoryHipPosition)
			So(ok, ShouldBeTrue)
			So(len(set.Threats), ShouldEqual, len(templates.Builtin().Threats))
		})
	})
}

func TestOpportunityCalcs(t *testing.T) {
	Convey("Given the typed calculations", t, func() {
		calcs := templates.OpportunityCalcs()

		Convey("Hip target caps at 85", func() {
			v, ok := calcs["hip_position"](model.MetricResult{Score: 80})
			So(ok, ShouldBeTrue)
			So(v["target"], ShouldEqual, 85.0)
			So(v["reduction"], ShouldEqual, 5.0)
		})

		Convey("Quiet feet needs its raw inputs", func() {
			_, ok := calcs["quiet_feet"](model.MetricResult{Score: 40})
			So(ok, ShouldBeFalse)

			v, ok := calcs["quiet_feet"](model.MetricResult{
				Score: 40,
				Raw:   map[string]float64{"repositions": 3, "norm": 1.8, "holds": 5},
			})
			So(ok, ShouldBeTrue)
			So(v["saved"], ShouldEqual, 6.0)
		})
	})
}

func TestThreatChecks(t *testing.T) {
	Convey("Given the typed predicates", t, func() {
		checks := templates.ThreatChecks()

		Convey("Shoulder fires on the total count and blames the heavier side", func() {
			events := []model.TensionEvent{
				{Joint: tension.JointShoulder, Side: model.SideLeft, Count: 2},
				{Joint: tension.JointShoulder, Side: model.SideRight, Count: 1},
			}
			m, ok := checks["shoulder"](events, nil)
			So(ok, ShouldBeTrue)
			So(m.Side, ShouldEqual, model.SideLeft)
			So(m.Values["count"], ShouldEqual, 3)
		})

		Convey("A symmetric pattern blames neither side", func() {
			events := []model.TensionEvent{
				{Joint: tension.JointShoulder, Side: model.SideLeft, Count: 2},
				{Joint: tension.JointShoulder, Side: model.SideRight, Count: 2},
			}
			m, ok := checks["shoulder"](events, nil)
			So(ok, ShouldBeTrue)
			So(m.Side, ShouldEqual, model.SideNone)
		})

		Convey("Below the threshold nothing fires", func() {
			events := []model.TensionEvent{
				{Joint: tension.JointKnee, Side: model.SideLeft, Count: 1},
			}
			_, ok := checks["knee_rotation"](events, nil)
			So(ok, ShouldBeFalse)
		})

		Convey("Exhaustion fires at 70 and above", func() {
			_, ok := checks["exhaustion_critical"](nil, &model.MetricResult{Score: 69})
			So(ok, ShouldBeFalse)
			m, ok := checks["exhaustion_critical"](nil, &model.MetricResult{Score: 70})
			So(ok, ShouldBeTrue)
			So(m.Values["percent"], ShouldEqual, 70.0)
		})
	})
}
