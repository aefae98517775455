package scoring

// Qualitative level names used by the template resolver.
const (
	LevelExcellent = "excellent"
	LevelGood      = "good"
	LevelMedium    = "medium"
	LevelPoor      = "poor"

	LevelLow      = "low"
	LevelModerate = "moderate"
	LevelHigh     = "high"
	LevelCritical = "critical"

	LevelOptimal    = "optimal"
	LevelAcceptable = "acceptable"
	LevelOverloaded = "overloaded"
	LevelUnderused  = "underused"
	LevelPassive    = "passive"
)

// GenericLevel buckets a score. A boundary value belongs to the higher
// bucket: 75 is excellent, not good.
func GenericLevel(score float64) string {
	switch {
	case score >= 75:
		return LevelExcellent
	case score >= 60:
		return LevelGood
	case score >= 45:
		return LevelMedium
	default:
		return LevelPoor
	}
}

// ExhaustionLevel buckets an exhaustion value where higher means worse.
func ExhaustionLevel(v float64) string {
	switch {
	case v >= 70:
		return LevelCritical
	case v >= 50:
		return LevelHigh
	case v >= 30:
		return LevelModerate
	default:
		return LevelLow
	}
}

// ArmLoadLevel buckets the estimated arm load percentage.
func ArmLoadLevel(load float64) string {
	switch {
	case load <= 40:
		return LevelOptimal
	case load <= 50:
		return LevelAcceptable
	case load <= 65:
		return LevelOverloaded
	default:
		return LevelCritical
	}
}

// LegLoadLevel buckets the estimated leg load percentage.
func LegLoadLevel(load float64) string {
	switch {
	case load >= 60:
		return LevelOptimal
	case load >= 50:
		return LevelGood
	case load >= 40:
		return LevelUnderused
	default:
		return LevelPassive
	}
}
