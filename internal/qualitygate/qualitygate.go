// Package qualitygate scores generated post text (the "Polyester Test").
// Scoring is pure and deterministic; the weights, thresholds and patterns are
// part of the contract and must not drift.
package qualitygate

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// PassThreshold is the minimum overall score for a passing draft.
	PassThreshold = 70

	rhythmMinSentences   = 3
	rhythmInsufficient   = 50
	rhythmPerfectStdDev  = 8.0
	rhythmViolationBelow = 40
	slopPenalty          = 15

	weightRhythm   = 0.20
	weightSlop     = 0.25
	weightAnchor   = 0.25
	weightFriction = 0.20
	weightLength   = 0.10
)

// DefaultSlopTriggers are the AI clichés checked in every text.
var DefaultSlopTriggers = []string{
	"game-changer",
	"game changer",
	"synergy",
	"leverage",
	"in today's fast-paced world",
	"in today's digital age",
	"it's no secret that",
	"at the end of the day",
	"think outside the box",
	"paradigm shift",
	"low-hanging fruit",
	"move the needle",
	"deep dive",
	"circle back",
	"unlock the power",
	"take it to the next level",
	"best-in-class",
	"cutting-edge",
	"revolutionary",
	"innovative solution",
	"seamlessly",
	"robust",
	"holistic approach",
	"actionable insights",
}

var (
	sentenceSplit = regexp.MustCompile(`[.!?]+`)
	firstSentence = regexp.MustCompile(`[.!?]`)

	dataBombPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\d+%`),
		regexp.MustCompile(`£\d+`),
		regexp.MustCompile(`\$\d+`),
		regexp.MustCompile(`(?i)\d+x`),
		regexp.MustCompile(`(?i)\d+\s*(hours?|days?|weeks?|months?|years?)`),
		regexp.MustCompile(`(?i)\d+\s*(clients?|projects?|teams?|people)`),
	}

	genericOpeners = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^(here are|here's|top \d+|the key to|how to|why you should|did you know)`),
		regexp.MustCompile(`(?i)^(i'm (excited|thrilled|delighted)|happy to announce|proud to share)`),
		regexp.MustCompile(`(?i)^(in (today's|this|the modern)|as we all know|it goes without saying)`),
	}
)

// LengthWindow is an inclusive character-count target.
type LengthWindow struct {
	Min float64
	Max float64
}

// Options carries the vault-specific inputs of a score.
type Options struct {
	TargetLength *LengthWindow
	BannedWords  []string
	SlopTriggers []string
}

// Subscores holds the five components of a score.
type Subscores struct {
	Rhythm             int  `json:"rhythm"`
	Slop               int  `json:"slop"`
	DataBombAnchor     bool `json:"dataBombAnchor"`
	CommercialFriction bool `json:"commercialFriction"`
	LengthCompliance   bool `json:"lengthCompliance"`
}

// Result is the outcome of Score.
type Result struct {
	Passed       bool      `json:"passed"`
	OverallScore int       `json:"overallScore"`
	Subscores    Subscores `json:"subscores"`
	Violations   []string  `json:"violations"`
}

// Score runs every check on text and combines them into a weighted result.
func Score(text string, opts Options) Result {
	violations := make([]string, 0)

	rhythm := RhythmScore(text)
	if rhythm < rhythmViolationBelow {
		violations = append(violations,
			fmt.Sprintf("Low rhythm variance (%d/100): needs more sentence length variety", rhythm))
	}

	slop, found := SlopScore(text, opts.BannedWords, opts.SlopTriggers)
	for _, phrase := range found {
		violations = append(violations, fmt.Sprintf("AI slop detected: %q", phrase))
	}

	anchor := HasDataBombAnchor(text)
	if !anchor {
		violations = append(violations, "No quantified Data Bomb found: post needs specific metrics")
	}

	friction := HasCommercialFriction(text)
	if !friction {
		violations = append(violations, "Opens with a generic pattern: needs commercial tension upfront")
	}

	lengthOK := true
	if opts.TargetLength != nil {
		count := utf8.RuneCountInString(text)
		if float64(count) < opts.TargetLength.Min || float64(count) > opts.TargetLength.Max {
			lengthOK = false
			violations = append(violations, fmt.Sprintf("Length %d chars: target is %s-%s",
				count, formatBound(opts.TargetLength.Min), formatBound(opts.TargetLength.Max)))
		}
	}

	sub := Subscores{
		Rhythm:             rhythm,
		Slop:               slop,
		DataBombAnchor:     anchor,
		CommercialFriction: friction,
		LengthCompliance:   lengthOK,
	}
	overall := Composite(sub)

	return Result{
		Passed:       len(violations) == 0 && overall >= PassThreshold,
		OverallScore: overall,
		Subscores:    sub,
		Violations:   violations,
	}
}

// Composite applies the fixed weights to a set of subscores.
func Composite(sub Subscores) int {
	total := float64(sub.Rhythm)*weightRhythm +
		float64(sub.Slop)*weightSlop +
		boolScore(sub.DataBombAnchor)*weightAnchor +
		boolScore(sub.CommercialFriction)*weightFriction +
		boolScore(sub.LengthCompliance)*weightLength
	return int(math.Round(total))
}

// RhythmScore rewards variation in sentence length: the population standard
// deviation of words per sentence, normalized so 8 words scores 100.
func RhythmScore(text string) int {
	sentences := Sentences(text)
	if len(sentences) < rhythmMinSentences {
		return rhythmInsufficient
	}

	lengths := make([]float64, len(sentences))
	var sum float64
	for i, sentence := range sentences {
		lengths[i] = float64(len(strings.Fields(sentence)))
		sum += lengths[i]
	}
	mean := sum / float64(len(lengths))

	var variance float64
	for _, l := range lengths {
		variance += (l - mean) * (l - mean)
	}
	variance /= float64(len(lengths))

	normalized := math.Min(100, math.Sqrt(variance)/rhythmPerfectStdDev*100)
	return int(math.Round(normalized))
}

// Sentences splits text on runs of terminal punctuation, dropping blanks.
func Sentences(text string) []string {
	parts := sentenceSplit.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// SlopScore counts case-insensitive occurrences of the default triggers plus
// the caller's lists. Each distinct match costs 15 points, floored at 0.
func SlopScore(text string, bannedWords, slopTriggers []string) (int, []string) {
	lower := strings.ToLower(text)
	triggers := make([]string, 0, len(DefaultSlopTriggers)+len(bannedWords)+len(slopTriggers))
	triggers = append(triggers, DefaultSlopTriggers...)
	triggers = append(triggers, bannedWords...)
	triggers = append(triggers, slopTriggers...)

	found := make([]string, 0)
	for _, trigger := range triggers {
		if trigger == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(trigger)) {
			found = append(found, trigger)
		}
	}

	score := 100 - slopPenalty*len(found)
	if score < 0 {
		score = 0
	}
	return score, found
}

// HasDataBombAnchor reports whether text carries a quantified result.
func HasDataBombAnchor(text string) bool {
	for _, pattern := range dataBombPatterns {
		if pattern.MatchString(text) {
			return true
		}
	}
	return false
}

// HasCommercialFriction reports whether the first sentence avoids the generic
// list, announcement and throat-clearing openers.
func HasCommercialFriction(text string) bool {
	first := strings.TrimSpace(firstSentence.Split(text, 2)[0])
	for _, pattern := range genericOpeners {
		if pattern.MatchString(first) {
			return false
		}
	}
	return true
}

func boolScore(ok bool) float64 {
	if ok {
		return 100
	}
	return 0
}

func formatBound(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%d", int(v))
	}
	return fmt.Sprintf("%.1f", v)
}
