// Package swot turns scored metrics and tension events into the narrative
// report: strengths, weaknesses, opportunities and threats. All wording comes
// from a template set; this package only selects, computes and renders.
package swot

import (
	"context"
	"sort"

	"github.com/okian/crux/internal/domain/model"
	"github.com/okian/crux/internal/templates"
	"github.com/okian/crux/pkg/logger"
	"github.com/okian/crux/pkg/metrics"
)

// Selection cutoffs and list caps.
const (
	strengthMin        = 75.0
	defaultWeaknessMax = 55.0

	maxStrengths     = 4
	maxWeaknesses    = 4
	maxOpportunities = 3
	maxThreats       = 3

	// Exhaustion drives the recovery opportunity directly: a high score
	// means slowdown, which never drops below the weakness cutoff.
	recoveryMin = 50.0
)

// Synthesizer builds SWOT reports from one shared template set. It is
// immutable and safe for concurrent use.
type Synthesizer struct {
	set         *templates.Set
	log         logger.Logger
	calcs       map[string]templates.OpportunityCalc
	check       map[string]templates.ThreatCheck
	weaknessMax float64
}

// New creates a synthesizer over the given template set.
func New(set *templates.Set, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		set:         set,
		log:         logger.Nop(),
		calcs:       templates.OpportunityCalcs(),
		check:       templates.ThreatChecks(),
		weaknessMax: defaultWeaknessMax,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Build assembles the report for one session. Technique metrics come from the
// profile; aux holds the unweighted categories; events is the joint-stress
// summary.
func (s *Synthesizer) Build(
	ctx context.Context,
	profile *model.TechniqueProfile,
	aux map[model.Category]model.MetricResult,
	events []model.TensionEvent,
) *model.SwotReport {
	all := s.ordered(profile, aux)

	report := &model.SwotReport{
		Strengths:  s.strengths(ctx, all),
		Weaknesses: s.weaknesses(ctx, all),
	}
	report.Opportunities = s.opportunities(ctx, report.Weaknesses, all, aux)
	report.Threats = s.threats(ctx, events, aux)
	return report
}

// ordered lists every metric in the stable category order, technique first.
func (s *Synthesizer) ordered(
	profile *model.TechniqueProfile,
	aux map[model.Category]model.MetricResult,
) []model.MetricResult {
	var out []model.MetricResult
	for _, cat := range model.TechniqueCategories() {
		if m, ok := profile.Metrics[cat]; ok {
			out = append(out, m)
		}
	}
	for _, cat := range model.AuxiliaryCategories() {
		if m, ok := aux[cat]; ok {
			out = append(out, m)
		}
	}
	return out
}

func (s *Synthesizer) strengths(ctx context.Context, all []model.MetricResult) []model.SwotItem {
	var items []model.SwotItem
	for _, m := range all {
		if m.Score < strengthMin {
			continue
		}
		text, ok := s.set.MetricText(m.Category, m.Level, true)
		if !ok {
			continue
		}
		items = append(items, s.render(ctx, string(m.Category), text, templates.Numeric(m.Raw, m.Score), m.Score))
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Score > items[j].Score })
	return truncate(items, maxStrengths)
}

func (s *Synthesizer) weaknesses(ctx context.Context, all []model.MetricResult) []model.SwotItem {
	var items []model.SwotItem
	for _, m := range all {
		if m.Score >= s.weaknessMax {
			continue
		}
		text, ok := s.set.MetricText(m.Category, m.Level, false)
		if !ok {
			continue
		}
		items = append(items, s.render(ctx, string(m.Category), text, templates.Numeric(m.Raw, m.Score), m.Score))
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Score < items[j].Score })
	return truncate(items, maxWeaknesses)
}

// opportunities walks the reported weaknesses worst first and attaches the
// improvement rule bound to each. The recovery rule fires from the exhaustion
// metric on its own, since a high exhaustion score is bad rather than good.
func (s *Synthesizer) opportunities(
	ctx context.Context,
	weaknesses []model.SwotItem,
	all []model.MetricResult,
	aux map[model.Category]model.MetricResult,
) []model.SwotItem {
	byCat := make(map[model.Category]model.MetricResult, len(all))
	for _, m := range all {
		byCat[m.Category] = m
	}

	var items []model.SwotItem
	seen := make(map[string]bool)
	for _, w := range weaknesses {
		cat := model.Category(w.ID)
		rule, ok := s.set.Opportunity(cat)
		if !ok || seen[rule.ID] {
			continue
		}
		if item, ok := s.applyRule(ctx, rule, byCat[cat]); ok {
			items = append(items, item)
			seen[rule.ID] = true
		}
	}

	if ex, ok := aux[model.CategoryExhaustion]; ok && ex.Score >= recoveryMin {
		if rule, ok := s.set.Opportunity(model.CategoryExhaustion); ok && !seen[rule.ID] {
			if item, ok := s.applyRule(ctx, rule, ex); ok {
				items = append(items, item)
			}
		}
	}
	return truncate(items, maxOpportunities)
}

func (s *Synthesizer) applyRule(
	ctx context.Context,
	rule templates.OpportunityRule,
	m model.MetricResult,
) (model.SwotItem, bool) {
	calc, ok := s.calcs[rule.ID]
	if !ok {
		return model.SwotItem{}, false
	}
	computed, ok := calc(m)
	if !ok {
		return model.SwotItem{}, false
	}
	values := templates.Numeric(m.Raw, m.Score)
	for k, v := range computed {
		values[k] = v
	}
	return s.render(ctx, rule.ID, rule.Text, values, m.Score), true
}

func (s *Synthesizer) threats(
	ctx context.Context,
	events []model.TensionEvent,
	aux map[model.Category]model.MetricResult,
) []model.SwotItem {
	var exhaustion *model.MetricResult
	if ex, ok := aux[model.CategoryExhaustion]; ok {
		exhaustion = &ex
	}

	type scored struct {
		item     model.SwotItem
		severity float64
	}
	var matches []scored
	for _, rule := range s.set.Threats {
		check, ok := s.check[rule.ID]
		if !ok {
			continue
		}
		match, ok := check(events, exhaustion)
		if !ok {
			continue
		}
		item := s.render(ctx, rule.ID, rule.Text, match.Values, match.Severity)
		matches = append(matches, scored{item: item, severity: match.Severity})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].severity > matches[j].severity })

	items := make([]model.SwotItem, 0, len(matches))
	for _, m := range matches {
		items = append(items, m.item)
	}
	return truncate(items, maxThreats)
}

// render substitutes placeholders. A template with unresolved placeholders is
// emitted literally: a hole in the wording is a configuration bug worth a
// warning, not a reason to lose the insight.
func (s *Synthesizer) render(
	ctx context.Context,
	id, text string,
	values templates.Values,
	score float64,
) model.SwotItem {
	out, missing := templates.Render(text, values)
	if len(missing) > 0 {
		s.log.Warn(ctx, "template placeholders unresolved, emitting literal text",
			logger.String("entry", id), logger.Any("missing", missing))
		metrics.RecordRenderWarning()
	}
	return model.SwotItem{ID: id, Score: round1(score), Text: out}
}

func truncate(items []model.SwotItem, limit int) []model.SwotItem {
	if len(items) > limit {
		return items[:limit]
	}
	return items
}

func round1(v float64) float64 {
	if v < 0 {
		return float64(int(v*10-0.5)) / 10
	}
	return float64(int(v*10+0.5)) / 10
}
