package templates

import "github.com/okian/crux/internal/domain/model"

// OpportunityCalc produces the placeholder values for one opportunity rule
// from the weakness it targets. It reports false when the metric lacks the
// raw inputs the rule needs; the rule is then skipped.
type OpportunityCalc func(m model.MetricResult) (Values, bool)

// OpportunityCalcs returns the typed calculation for each builtin rule ID.
// Text is data; arithmetic is code. A custom template file can reword a rule
// but not change what it computes.
func OpportunityCalcs() map[string]OpportunityCalc {
	return map[string]OpportunityCalc{
		"hip_position": func(m model.MetricResult) (Values, bool) {
			target := m.Score + 20
			if target > 85 {
				target = 85
			}
			return Values{
				"target":    target,
				"reduction": round(target - m.Score),
			}, true
		},
		"quiet_feet": func(m model.MetricResult) (Values, bool) {
			reps, okR := m.Raw["repositions"]
			norm, okN := m.Raw["norm"]
			holds, okH := m.Raw["holds"]
			if !okR || !okN || !okH {
				return nil, false
			}
			saved := (reps - norm) * holds
			if saved < 1 {
				saved = 1
			}
			energy := saved * 3
			if energy > 30 {
				energy = 30
			}
			return Values{"saved": round(saved), "energy": round(energy)}, true
		},
		"grip_release": func(m model.MetricResult) (Values, bool) {
			return Values{}, true
		},
		"leg_activation": func(m model.MetricResult) (Values, bool) {
			load, ok := m.Raw["leg_load"]
			if !ok {
				return nil, false
			}
			return Values{"current": round(load)}, true
		},
		"rhythm": func(m model.MetricResult) (Values, bool) {
			variance, ok := m.Raw["variance"]
			if !ok {
				return nil, false
			}
			saved := (variance - 100) / 10
			if saved < 5 {
				saved = 5
			}
			if saved > 25 {
				saved = 25
			}
			return Values{"saved": round(saved)}, true
		},
		"recovery": func(m model.MetricResult) (Values, bool) {
			slowdown, ok := m.Raw["slowdown"]
			if !ok {
				return nil, false
			}
			t := (slowdown - 1) * 50
			if t < 10 {
				t = 10
			}
			if t > 40 {
				t = 40
			}
			return Values{"time": round(t)}, true
		},
	}
}

func round(v float64) float64 {
	if v < 0 {
		return float64(int(v - 0.5))
	}
	return float64(int(v + 0.5))
}
