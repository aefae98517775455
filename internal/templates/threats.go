package templates

import (
	"github.com/okian/crux/internal/domain/model"
	"github.com/okian/crux/internal/domain/tension"
)

// ThreatMatch is a fired threat rule: the attributed side, the placeholder
// values, and a severity used for ordering. Severity is the ratio of the
// observed value over the rule threshold, so different rules compare.
type ThreatMatch struct {
	Side     model.Side
	Severity float64
	Values   Values
}

// ThreatCheck decides whether one threat rule fires for a session.
type ThreatCheck func(events []model.TensionEvent, exhaustion *model.MetricResult) (ThreatMatch, bool)

// Trigger thresholds for the builtin threat rules.
const (
	shoulderEpisodeMin = 3
	elbowLockMin       = 5
	kneeRotationMin    = 2
	lumbarTwistMinDeg  = 30.0
	exhaustionCritical = 70.0
)

// ThreatChecks returns the typed predicate for each builtin rule ID.
func ThreatChecks() map[string]ThreatCheck {
	return map[string]ThreatCheck{
		"shoulder":      countedCheck(tension.JointShoulder, shoulderEpisodeMin),
		"elbow":         countedCheck(tension.JointElbow, elbowLockMin),
		"knee_rotation": countedCheck(tension.JointKnee, kneeRotationMin),
		"lower_back": func(events []model.TensionEvent, _ *model.MetricResult) (ThreatMatch, bool) {
			for _, e := range events {
				if e.Joint != tension.JointLumbar {
					continue
				}
				if e.Extremum < lumbarTwistMinDeg {
					return ThreatMatch{}, false
				}
				return ThreatMatch{
					Side:     model.SideNone,
					Severity: e.Extremum / lumbarTwistMinDeg,
					Values:   Values{"angle": round(e.Extremum)},
				}, true
			}
			return ThreatMatch{}, false
		},
		"exhaustion_critical": func(_ []model.TensionEvent, exhaustion *model.MetricResult) (ThreatMatch, bool) {
			if exhaustion == nil || exhaustion.Score < exhaustionCritical {
				return ThreatMatch{}, false
			}
			return ThreatMatch{
				Side:     model.SideNone,
				Severity: exhaustion.Score / exhaustionCritical,
				Values:   Values{"percent": round(exhaustion.Score)},
			}, true
		},
	}
}

// countedCheck fires when the summed event count for a joint group reaches
// min. The side with the higher count is blamed; a tie blames neither.
func countedCheck(joint string, min int) ThreatCheck {
	return func(events []model.TensionEvent, _ *model.MetricResult) (ThreatMatch, bool) {
		var left, right int
		for _, e := range events {
			if e.Joint != joint {
				continue
			}
			switch e.Side {
			case model.SideLeft:
				left += e.Count
			case model.SideRight:
				right += e.Count
			}
		}
		total := left + right
		if total < min {
			return ThreatMatch{}, false
		}
		side := model.SideNone
		if left > right {
			side = model.SideLeft
		} else if right > left {
			side = model.SideRight
		}
		return ThreatMatch{
			Side:     side,
			Severity: float64(total) / float64(min),
			Values:   Values{"count": total, "side": SideLabel(side)},
		}, true
	}
}

// SideLabel is the human wording for a side in threat texts.
func SideLabel(s model.Side) string {
	switch s {
	case model.SideLeft:
		return "Left"
	case model.SideRight:
		return "Right"
	default:
		return "Either"
	}
}
