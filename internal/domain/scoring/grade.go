package scoring

// Complexity carries the session signals that bump the grade lookup beyond
// pure technique scores. The stored overall score never includes them.
type Complexity struct {
	// MovesPerSecond is the hand-move density over the session.
	MovesPerSecond float64
	// DynamicMoves is how many dynamic moves were detected.
	DynamicMoves int
	// MaxReachRatio is the widest hand spread relative to body height.
	MaxReachRatio float64
}

type gradeStep struct {
	min   float64
	grade string
}

// Thresholds step ~3 points apart at the top where differences are subtle
// and wider at the bottom.
var gradeTable = []gradeStep{
	{95, "8b"},
	{92, "8a+-8b"},
	{89, "8a+"},
	{86, "8a"},
	{83, "7c+-8a"},
	{80, "7c+"},
	{77, "7c"},
	{74, "7b+-7c"},
	{70, "7b+"},
	{66, "7a-7b"},
	{62, "6c-7a"},
	{57, "6b-6c"},
	{51, "6a-6b"},
	{44, "5c-6a"},
	{37, "5b-5c"},
	{28, "5a-5b"},
	{0, "<5a"},
}

func lookupGrade(total float64) string {
	for _, step := range gradeTable {
		if total >= step.min {
			return step.grade
		}
	}
	return gradeTable[len(gradeTable)-1].grade
}

// complexityBonus rewards fast, dynamic, extended climbing.
func complexityBonus(c Complexity, limit float64) float64 {
	var bonus float64
	switch {
	case c.MovesPerSecond > 1.8:
		bonus += 5
	case c.MovesPerSecond > 1.2:
		bonus += 3
	}
	switch {
	case c.DynamicMoves >= 3:
		bonus += 4
	case c.DynamicMoves >= 1:
		bonus += 2
	}
	if c.MaxReachRatio > 0.7 {
		bonus += 2
	}
	if bonus > limit {
		bonus = limit
	}
	return bonus
}
