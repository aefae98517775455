package scoring

import "github.com/okian/crux/internal/domain/model"

// Rule maps one raw signal to a score and a qualitative level.
type Rule func(raw model.RawSignal) (score float64, level string)

// Rules returns the default normalization rule per category.
func Rules() map[model.Category]Rule {
	return map[model.Category]Rule{
		model.CategoryQuietFeet:      scoreQuietFeet,
		model.CategoryHipPosition:    scoreHipPosition,
		model.CategoryDiagonal:       scoreDiagonal,
		model.CategoryGripRelease:    scoreGripRelease,
		model.CategoryRhythm:         scoreRhythm,
		model.CategoryDynamicControl: scoreDynamicControl,
		model.CategoryRouteReading:   scoreRouteReading,
		model.CategoryStability:      scoreStability,
		model.CategoryExhaustion:     scoreExhaustion,
		model.CategoryArmEfficiency:  scoreArmEfficiency,
		model.CategoryLegEfficiency:  scoreLegEfficiency,
	}
}

// scoreQuietFeet decays linearly with repositions measured against the
// grade-bracket norm. The floor keeps pose noise from zeroing the category.
func scoreQuietFeet(raw model.RawSignal) (float64, string) {
	r := raw.Values["repositions"]
	n := raw.Values["norm"]
	if n <= 0 {
		n = 1.8
	}
	score := clamp(100-30*(r/n), 20, 100)
	return score, GenericLevel(score)
}

// scoreHipPosition buckets the mean lean angle. The level rides with the
// bucket, not the generic score table: a 10 degree lean is good, not
// excellent, even though it scores 80.
func scoreHipPosition(raw model.RawSignal) (float64, string) {
	angle := raw.Values["angle"]
	switch {
	case angle <= 5:
		return 95, LevelExcellent
	case angle <= 15:
		return 80, LevelGood
	case angle <= 25:
		return 65, LevelMedium
	case angle <= 35:
		return 50, LevelMedium
	default:
		return clamp(50-(angle-35)*2.86, 0, 44), LevelPoor
	}
}

// scoreDiagonal rewards contralateral pairing and penalizes lateral sway.
// A session with no classifiable pairings is static climbing, which is a
// style, not a fault.
func scoreDiagonal(raw model.RawSignal) (float64, string) {
	if raw.Values["classified"] == 0 {
		return 60, LevelGood
	}
	pct := raw.Values["diagonal_pct"]
	penalty := raw.Values["sway"] * 200
	if penalty > 15 {
		penalty = 15
	}
	score := clamp(30+0.6*pct-penalty, 10, 100)
	return score, GenericLevel(score)
}

// scoreGripRelease maps the mean release jerk inversely.
func scoreGripRelease(raw model.RawSignal) (float64, string) {
	score := clamp(100-1500*raw.Values["jerk"], 15, 100)
	return score, GenericLevel(score)
}

// scoreRhythm maps the inter-move interval spread inversely, piecewise.
func scoreRhythm(raw model.RawSignal) (float64, string) {
	v := raw.Values["variance"]
	var score float64
	switch {
	case v <= 100:
		score = 90 + (100-v)*0.1
	case v <= 200:
		score = 70 + (200-v)*0.2
	case v <= 350:
		score = 50 + (350-v)*0.133
	default:
		score = 50 - (v-350)*0.143
	}
	score = clamp(score, 0, 100)
	return score, GenericLevel(score)
}

// scoreDynamicControl maps the mean settle time after dynamic moves. A clean
// static climb carries no penalty.
func scoreDynamicControl(raw model.RawSignal) (float64, string) {
	if raw.Values["events"] == 0 {
		return 100, LevelExcellent
	}
	t := raw.Values["time"]
	var score float64
	switch {
	case t <= 0.5:
		score = 90 + (0.5-t)*20
	case t <= 1.0:
		score = 70 + (1.0-t)*40
	case t <= 2.0:
		score = 50 + (2.0-t)*20
	default:
		score = 50 - (t-2.0)*10
	}
	score = clamp(score, 0, 100)
	return score, GenericLevel(score)
}

// scoreRouteReading saturates both components: five seconds of pre-climb
// planning and three reading pauses each earn the full half.
func scoreRouteReading(raw model.RawSignal) (float64, string) {
	pre := raw.Values["preclimb_s"] / 5
	if pre > 1 {
		pre = 1
	}
	pauses := raw.Values["pauses"] / 3
	if pauses > 1 {
		pauses = 1
	}
	score := clamp(pre*50+pauses*50, 20, 100)
	return score, GenericLevel(score)
}

// scoreStability maps center-of-mass dispersion inversely.
func scoreStability(raw model.RawSignal) (float64, string) {
	score := clamp(100-400*raw.Values["dispersion"], 10, 100)
	return score, GenericLevel(score)
}

// scoreExhaustion converts the late-session slowdown ratio into a badness
// value: higher means more faded.
func scoreExhaustion(raw model.RawSignal) (float64, string) {
	v := clamp((raw.Values["slowdown"]-1)*100, 0, 100)
	return v, ExhaustionLevel(v)
}

// scoreArmEfficiency inverts the arm load estimate; the level speaks in
// load terms.
func scoreArmEfficiency(raw model.RawSignal) (float64, string) {
	load := raw.Values["arm_load"]
	return clamp(100-load, 0, 100), ArmLoadLevel(load)
}

// scoreLegEfficiency follows the leg load estimate with a small lift so an
// optimally loaded pair of legs reads as a strength.
func scoreLegEfficiency(raw model.RawSignal) (float64, string) {
	load := raw.Values["leg_load"]
	return clamp(load+10, 0, 100), LegLoadLevel(load)
}
