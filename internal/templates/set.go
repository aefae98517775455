// Package templates holds the narrative text of the report: per-metric
// strength/weakness phrasing, opportunity rules and threat rules. A set is
// loaded once per process and shared read-only across sessions.
package templates

import "github.com/okian/crux/internal/domain/model"

// Texts is the per-level phrasing for one metric. A level may carry a
// strength, a weakness, or both.
type Texts struct {
	Strength string `koanf:"strength" json:"strength,omitempty"`
	Weakness string `koanf:"weakness" json:"weakness,omitempty"`
}

// OpportunityRule ties a weakness metric to an improvement text. The numbers
// behind its placeholders come from the typed calculation registered under
// the same ID.
type OpportunityRule struct {
	ID     string `koanf:"id" json:"id"`
	Metric string `koanf:"metric" json:"metric"`
	Text   string `koanf:"text" json:"text"`
}

// ThreatRule ties an injury-risk predicate to its warning text.
type ThreatRule struct {
	ID   string `koanf:"id" json:"id"`
	Text string `koanf:"text" json:"text"`
}

// Set is one complete template collection. Metrics is keyed by category then
// level.
type Set struct {
	Metrics       map[string]map[string]Texts `koanf:"metrics"`
	Opportunities []OpportunityRule           `koanf:"opportunities"`
	Threats       []ThreatRule                `koanf:"threats"`
}

// MetricText returns the strength or weakness text for a category and level.
func (s *Set) MetricText(cat model.Category, level string, strength bool) (string, bool) {
	levels, ok := s.Metrics[string(cat)]
	if !ok {
		return "", false
	}
	texts, ok := levels[level]
	if !ok {
		return "", false
	}
	if strength {
		return texts.Strength, texts.Strength != ""
	}
	return texts.Weakness, texts.Weakness != ""
}

// Opportunity returns the first rule bound to the given metric.
func (s *Set) Opportunity(metric model.Category) (OpportunityRule, bool) {
	for _, r := range s.Opportunities {
		if r.Metric == string(metric) {
			return r, true
		}
	}
	return OpportunityRule{}, false
}

// Builtin returns the compiled-in default set.
func Builtin() *Set {
	return &Set{
		Metrics: map[string]map[string]Texts{
			"quiet_feet": {
				"excellent": {Strength: "Precise feet {score}% — the foot lands right the first time, saving energy."},
				"good":      {Strength: "Footwork {score}% — few readjustments, which conserves strength."},
				"medium":    {Weakness: "Foot readjustments {score}% — {repositions} placements per hold against a norm of {norm}. It burns energy."},
				"poor":      {Weakness: "Feet hunting for holds — {score}%. {repositions} readjustments against a norm of {norm}. Critical for progress."},
			},
			"hip_position": {
				"excellent": {Strength: "Hip position {score}% — weight on the feet, arms resting. Excellent technique."},
				"good":      {Strength: "Hip position {score}% — a slight lean, solid overall."},
				"medium":    {Weakness: "Hips drift off the wall — {score}% ({angle}°). Arms carry an extra {overload}% of the load."},
				"poor":      {Weakness: "Hips far from the wall — {score}% ({angle}°). Arms overloaded by {overload}%. The main growth point."},
			},
			"diagonal": {
				"excellent": {Strength: "Counterbalance {score}% — strong diagonal pairing, stable balance."},
				"good":      {Strength: "Counterbalance {score}% — the diagonal works, balance is good."},
				"medium":    {Weakness: "Counterbalance {score}% — square movement, the body swings."},
				"poor":      {Weakness: "No diagonal — {score}%. Chaotic moves burn energy on stabilization."},
			},
			"route_reading": {
				"excellent": {Strength: "Route reading {score}% — planned pauses and a studied start. The mark of an experienced climber."},
				"good":      {Strength: "Route reading {score}% — there is planning, not blind climbing."},
				"medium":    {Weakness: "Route reading {score}% — few scouting pauses. Add deliberate planning."},
				"poor":      {Weakness: "Impulsive climbing — {score}%. Launching at the route without a plan."},
			},
			"rhythm": {
				"excellent": {Strength: "Rhythm {score}% — even movement, full control."},
				"good":      {Strength: "Rhythm {score}% — a stable tempo with small wobbles."},
				"medium":    {Weakness: "Rhythm {score}% — the tempo breaks on hard sections. Spread ±{variance}ms."},
				"poor":      {Weakness: "Ragged rhythm — {score}%. Spread ±{variance}ms. A sign of stress or panic."},
			},
			"dynamic_control": {
				"excellent": {Strength: "Dynamic control {score}% — instant stabilization after throws."},
				"good":      {Strength: "Dynamic control {score}% — dynamic moves stay under control."},
				"medium":    {Weakness: "Dynamic control {score}% — balance takes {time}s to recover after throws."},
				"poor":      {Weakness: "Control lost after throws — {score}%. Stabilizing in {time}s against a 0.5s target."},
			},
			"grip_release": {
				"excellent": {Strength: "Grip release {score}% — smooth, soft hand transfers. Energy saved."},
				"good":      {Strength: "Grip release {score}% — hand movement is acceptably smooth."},
				"medium":    {Weakness: "Grip release {score}% — jerky letting go costs balance."},
				"poor":      {Weakness: "Abrupt releases — {score}%. Snatching off holds wastes balance and energy."},
			},
			"stability": {
				"excellent": {Strength: "Stability {score}% — the body stays put, no wasted motion."},
				"good":      {Strength: "Stability {score}% — good positional control."},
				"medium":    {Weakness: "Stability {score}% — the body wanders, many micro-corrections."},
				"poor":      {Weakness: "Stability {score}% — a lot of energy goes into holding balance."},
			},
			"arm_efficiency": {
				"overloaded": {Weakness: "Arms overloaded — {arm_load}% instead of 30-40%. Shift the weight to the feet."},
				"critical":   {Weakness: "Arms at {arm_load}% — critical overload. The technique needs work."},
			},
			"leg_efficiency": {
				"underused": {Weakness: "Legs at only {leg_load}% — underused. Push harder through the feet."},
				"passive":   {Weakness: "Legs at {leg_load}% — barely working. The main growth point."},
			},
		},
		Opportunities: []OpportunityRule{
			{ID: "hip_position", Metric: "hip_position", Text: "Bringing the hips to {target}% would make the arms tire {reduction}% less."},
			{ID: "quiet_feet", Metric: "quiet_feet", Text: "Dialing in foot precision removes {saved} extra moves per route — about {energy}% energy saved."},
			{ID: "grip_release", Metric: "grip_release", Text: "Smooth grip release is worth a full grade. Right now it is the ceiling."},
			{ID: "leg_activation", Metric: "leg_efficiency", Text: "Legs carry only {current}% of the weight. Driving that to 65% opens up overhangs."},
			{ID: "rhythm", Metric: "rhythm", Text: "An even rhythm would cut energy use by {saved}% and calm the hard sections."},
			{ID: "recovery", Metric: "exhaustion", Text: "Learning to rest on the route buys {time}% more climbing time."},
		},
		Threats: []ThreatRule{
			{ID: "shoulder", Text: "{side} shoulder — pinned in {count} spots on the route. Impingement risk if the pattern holds."},
			{ID: "elbow", Text: "{side} elbow — repeated sub-70° lockoffs under load. Climber's elbow risk."},
			{ID: "knee_rotation", Text: "{side} knee — loaded rotation {count} times per climb. Meniscus risk."},
			{ID: "lower_back", Text: "Lower back — {angle}° twist under load. Disc stress if the pattern turns chronic."},
			{ID: "exhaustion_critical", Text: "Exhaustion {percent}% — the final section runs in the red. Losing control means falling."},
		},
	}
}
