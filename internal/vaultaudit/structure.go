package vaultaudit

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"unicode/utf8"
)

var digitExpr = regexp.MustCompile(`\d+`)

var (
	emojiUsages          = []string{"none", "minimal", "average", "frequent"}
	preferredPostLengths = []string{"short_500_800", "medium_1300_1600", "long_1800_2500", "flexible"}
	creatableFormats     = []string{"text", "carousel"}
	primaryFormats       = []string{"mixed", "text_only", "carousel_focused"}
	postingFrequencies   = []string{"1_per_week", "2_5_per_week", "daily", "sporadic"}
)

// checker walks the raw document and records one issue per violated rule.
type checker struct {
	issues []Issue
}

func (c *checker) fail(path, message string) {
	c.issues = append(c.issues, Issue{Severity: severityFor(path), Message: message, Field: path})
}

func join(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

func (c *checker) object(parent map[string]any, key, path string, required bool) (map[string]any, bool) {
	raw, ok := parent[key]
	if !ok || raw == nil {
		if required {
			c.fail(path, "Required")
		}
		return nil, false
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		c.fail(path, "Expected object")
		return nil, false
	}
	return obj, true
}

func (c *checker) str(parent map[string]any, key, path string, required bool, minLen int, message string) (string, bool) {
	raw, ok := parent[key]
	if !ok || raw == nil {
		if required {
			c.fail(path, "Required")
		}
		return "", false
	}
	s, ok := raw.(string)
	if !ok {
		c.fail(path, "Expected string")
		return "", false
	}
	if utf8.RuneCountInString(s) < minLen {
		c.fail(path, message)
		return s, false
	}
	return s, true
}

func (c *checker) enum(parent map[string]any, key, path string, required bool, allowed []string, message string) {
	raw, ok := parent[key]
	if !ok || raw == nil {
		if required {
			c.fail(path, "Required")
		}
		return
	}
	s, ok := raw.(string)
	if !ok || !slices.Contains(allowed, s) {
		c.fail(path, message)
	}
}

func (c *checker) strings(parent map[string]any, key, path string, required bool, minItems int, message string) ([]any, bool) {
	raw, ok := parent[key]
	if !ok || raw == nil {
		if required {
			c.fail(path, "Required")
		}
		return nil, false
	}
	items, ok := raw.([]any)
	if !ok {
		c.fail(path, "Expected array")
		return nil, false
	}
	valid := true
	for i, item := range items {
		if _, ok := item.(string); !ok {
			c.fail(join(path, strconv.Itoa(i)), "Expected string")
			valid = false
		}
	}
	if len(items) < minItems {
		c.fail(path, message)
		return items, false
	}
	return items, valid
}

func (c *checker) number(parent map[string]any, key, path string, lo, hi float64) {
	raw, ok := parent[key]
	if !ok || raw == nil {
		c.fail(path, "Required")
		return
	}
	var n float64
	switch v := raw.(type) {
	case float64:
		n = v
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	default:
		c.fail(path, "Expected number")
		return
	}
	if n < lo || n > hi {
		c.fail(path, fmt.Sprintf("Must be between %g and %g", lo, hi))
	}
}

func checkStructure(tree any) []Issue {
	c := &checker{}
	root, ok := tree.(map[string]any)
	if !ok {
		c.issues = append(c.issues, Issue{Severity: SeverityBlocking, Message: "Expected object"})
		return c.issues
	}

	if voice, ok := c.object(root, "voice_dna", "voice_dna", true); ok {
		c.str(voice, "tone_archetype", "voice_dna.tone_archetype", true, 1, "Missing tone archetype")
		c.strings(voice, "signature_phrases", "voice_dna.signature_phrases", true, 3, "Need at least 3 signature phrases")
		c.strings(voice, "banned_words", "voice_dna.banned_words", true, 5, "Need at least 5 banned words")
		c.enum(voice, "emoji_usage", "voice_dna.emoji_usage", true, emojiUsages,
			"emoji_usage must be: none, minimal, average, or frequent")
		c.strings(voice, "ai_slop_triggers", "voice_dna.ai_slop_triggers", false, 0, "")
	}

	c.historicalWins(root)

	if icp, ok := c.object(root, "icp", "icp", true); ok {
		c.str(icp, "core_pain_point", "icp.core_pain_point", true, 1, "Missing ICP core pain point")
		c.str(icp, "decision_maker", "icp.decision_maker", false, 0, "")
	}

	c.strings(root, "verbatim_language", "verbatim_language", true, 3, "Need at least 3 verbatim customer quotes")

	if strategy, ok := c.object(root, "content_strategy", "content_strategy", true); ok {
		c.enum(strategy, "preferred_post_length", "content_strategy.preferred_post_length", true, preferredPostLengths,
			"preferred_post_length must be one of: short_500_800, medium_1300_1600, long_1800_2500, flexible")
		if lengths, ok := c.object(strategy, "length_in_characters", "content_strategy.length_in_characters", true); ok {
			c.number(lengths, "short", "content_strategy.length_in_characters.short", 300, 1000)
			c.number(lengths, "medium", "content_strategy.length_in_characters.medium", 1000, 2000)
			c.number(lengths, "long", "content_strategy.length_in_characters.long", 1500, 3000)
		}
		if formats, ok := c.object(strategy, "format_preferences", "content_strategy.format_preferences", true); ok {
			path := "content_strategy.format_preferences.willing_to_create"
			if items, ok := c.strings(formats, "willing_to_create", path, true, 1, "Must include at least 'text' or 'carousel'"); ok {
				for i, item := range items {
					if !slices.Contains(creatableFormats, item.(string)) {
						c.fail(join(path, strconv.Itoa(i)), "willing_to_create entries must be 'text' or 'carousel'")
					}
				}
			}
			c.enum(formats, "primary_format", "content_strategy.format_preferences.primary_format", true, primaryFormats,
				"primary_format must be one of: mixed, text_only, carousel_focused")
		}
		c.enum(strategy, "posting_frequency", "content_strategy.posting_frequency", false, postingFrequencies,
			"posting_frequency must be one of: 1_per_week, 2_5_per_week, daily, sporadic")
	}

	if industry, ok := c.object(root, "industry_context", "industry_context", false); ok {
		c.str(industry, "primary_industry", "industry_context.primary_industry", false, 0, "")
		if guidelines, ok := c.object(industry, "writing_guidelines", "industry_context.writing_guidelines", false); ok {
			c.strings(guidelines, "appropriate_jargon", "industry_context.writing_guidelines.appropriate_jargon", false, 0, "")
			c.strings(guidelines, "appropriate_metrics", "industry_context.writing_guidelines.appropriate_metrics", false, 0, "")
		}
	}

	return c.issues
}

func (c *checker) historicalWins(root map[string]any) {
	raw, ok := root["historical_wins"]
	if !ok || raw == nil {
		c.fail("historical_wins", "Required")
		return
	}
	wins, ok := raw.([]any)
	if !ok {
		c.fail("historical_wins", "Expected array")
		return
	}
	for i, entry := range wins {
		base := join("historical_wins", strconv.Itoa(i))
		win, ok := entry.(map[string]any)
		if !ok {
			c.fail(base, "Expected object")
			continue
		}
		c.str(win, "project_name", join(base, "project_name"), true, 1, "Missing project name")
		if bomb, ok := c.str(win, "data_bomb", join(base, "data_bomb"), true, 0, ""); ok && !digitExpr.MatchString(bomb) {
			c.fail(join(base, "data_bomb"), "Data Bomb must contain quantified numbers")
		}
		c.str(win, "secret_math", join(base, "secret_math"), true, 50, "Secret Math too vague/short (min 50 chars)")
	}
	if len(wins) < 3 {
		c.fail("historical_wins", "Need at least 3 historical wins")
	}
}
