package templates

import (
	"context"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/crux/pkg/logger"
	"github.com/okian/crux/pkg/metrics"
)

// Load reads a template set from a YAML file and validates it entry by
// entry. Every malformed or missing entry falls back to the builtin text for
// that entry only; a template problem is never fatal. An empty path or an
// unreadable file yields the full builtin set.
func Load(ctx context.Context, path string, log logger.Logger) *Set {
	if log == nil {
		log = logger.Nop()
	}
	if path == "" {
		return Builtin()
	}
	if _, err := os.Stat(path); err != nil {
		log.Warn(ctx, "template file not found, using builtin set",
			logger.String("path", path), logger.Error(err))
		return Builtin()
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		log.Warn(ctx, "template file unreadable, using builtin set",
			logger.String("path", path), logger.Error(err))
		metrics.RecordTemplateFallback()
		return Builtin()
	}
	var loaded Set
	if err := k.Unmarshal("", &loaded); err != nil {
		log.Warn(ctx, "template file malformed, using builtin set",
			logger.String("path", path), logger.Error(err))
		metrics.RecordTemplateFallback()
		return Builtin()
	}
	return merge(ctx, &loaded, log)
}

// merge validates the loaded set against the builtin one. The result always
// covers at least the builtin entries.
func merge(ctx context.Context, loaded *Set, log logger.Logger) *Set {
	builtin := Builtin()
	out := &Set{Metrics: make(map[string]map[string]Texts)}

	for cat, levels := range builtin.Metrics {
		out.Metrics[cat] = make(map[string]Texts, len(levels))
		for level, def := range levels {
			out.Metrics[cat][level] = mergeTexts(ctx, cat, level, loaded, def, log)
		}
	}
	// Extra categories or levels in the file pass through when valid.
	for cat, levels := range loaded.Metrics {
		for level, texts := range levels {
			if _, known := out.Metrics[cat][level]; known {
				continue
			}
			if !validText(texts.Strength) || !validText(texts.Weakness) {
				continue
			}
			if out.Metrics[cat] == nil {
				out.Metrics[cat] = make(map[string]Texts)
			}
			out.Metrics[cat][level] = texts
		}
	}

	calcs := OpportunityCalcs()
	out.Opportunities = mergeOpportunities(ctx, loaded, builtin, calcs, log)

	checks := ThreatChecks()
	out.Threats = mergeThreats(ctx, loaded, builtin, checks, log)
	return out
}

func mergeTexts(ctx context.Context, cat, level string, loaded *Set, def Texts, log logger.Logger) Texts {
	levels, ok := loaded.Metrics[cat]
	if !ok {
		return def
	}
	texts, ok := levels[level]
	if !ok {
		return def
	}
	result := def
	if texts.Strength != "" {
		if validText(texts.Strength) {
			result.Strength = texts.Strength
		} else {
			fallbackEntry(ctx, log, "metric strength", cat+"."+level)
		}
	}
	if texts.Weakness != "" {
		if validText(texts.Weakness) {
			result.Weakness = texts.Weakness
		} else {
			fallbackEntry(ctx, log, "metric weakness", cat+"."+level)
		}
	}
	return result
}

func mergeOpportunities(
	ctx context.Context,
	loaded, builtin *Set,
	calcs map[string]OpportunityCalc,
	log logger.Logger,
) []OpportunityRule {
	if len(loaded.Opportunities) == 0 {
		return builtin.Opportunities
	}
	byID := make(map[string]OpportunityRule, len(builtin.Opportunities))
	for _, r := range builtin.Opportunities {
		byID[r.ID] = r
	}
	var out []OpportunityRule
	seen := make(map[string]bool)
	for _, r := range loaded.Opportunities {
		if _, known := calcs[r.ID]; !known || r.Metric == "" || !validText(r.Text) {
			fallbackEntry(ctx, log, "opportunity", r.ID)
			if def, ok := byID[r.ID]; ok && !seen[r.ID] {
				out = append(out, def)
				seen[r.ID] = true
			}
			continue
		}
		if !seen[r.ID] {
			out = append(out, r)
			seen[r.ID] = true
		}
	}
	for _, r := range builtin.Opportunities {
		if !seen[r.ID] {
			out = append(out, r)
		}
	}
	return out
}

func mergeThreats(
	ctx context.Context,
	loaded, builtin *Set,
	checks map[string]ThreatCheck,
	log logger.Logger,
) []ThreatRule {
	if len(loaded.Threats) == 0 {
		return builtin.Threats
	}
	byID := make(map[string]ThreatRule, len(builtin.Threats))
	for _, r := range builtin.Threats {
		byID[r.ID] = r
	}
	var out []ThreatRule
	seen := make(map[string]bool)
	for _, r := range loaded.Threats {
		if _, known := checks[r.ID]; !known || !validText(r.Text) {
			fallbackEntry(ctx, log, "threat", r.ID)
			if def, ok := byID[r.ID]; ok && !seen[r.ID] {
				out = append(out, def)
				seen[r.ID] = true
			}
			continue
		}
		if !seen[r.ID] {
			out = append(out, r)
			seen[r.ID] = true
		}
	}
	for _, r := range builtin.Threats {
		if !seen[r.ID] {
			out = append(out, r)
		}
	}
	return out
}

func fallbackEntry(ctx context.Context, log logger.Logger, kind, key string) {
	log.Warn(ctx, "template entry invalid, using builtin",
		logger.String("kind", kind), logger.String("entry", key))
	metrics.RecordTemplateFallback()
}

// validText accepts empty texts and texts whose placeholder braces are
// balanced and named.
func validText(text string) bool {
	rest := text
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			return !strings.ContainsRune(rest, '}')
		}
		closing := strings.IndexByte(rest[open:], '}')
		if closing <= 1 {
			return false
		}
		name := rest[open+1 : open+closing]
		if strings.ContainsAny(name, "{ \t") {
			return false
		}
		rest = rest[open+closing+1:]
	}
}
