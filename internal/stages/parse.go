package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"steelloop/internal/domain"
	"steelloop/internal/ports"
)

const (
	// MaxHooks is the number of sparks kept from one generation.
	MaxHooks = domain.MaxSparksPerItem
	// MaxHookWords is the word limit of a hook line as emitted.
	MaxHookWords = 12

	quoteRunes = "\"'“”‘’"
)

var (
	numberedMarker = regexp.MustCompile(`^\d+[.):]`)
	leadingMarker  = regexp.MustCompile(`^(\d+[.):]|[-*])\s*`)
	codeFence      = regexp.MustCompile("```(?:json)?\\n?")
)

// ParseHooks keeps list lines (`1.`, `2)`, `3:`, `-`, `*`) of at most
// MaxHookWords words, strips the marker and one pair of surrounding quotes,
// and returns at most MaxHooks of them in order.
func ParseHooks(raw string) []string {
	hooks := make([]string, 0, MaxHooks)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !numberedMarker.MatchString(line) && !strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "*") {
			continue
		}
		if len(strings.Fields(line)) > MaxHookWords {
			continue
		}
		text := strings.TrimSpace(trimQuotes(leadingMarker.ReplaceAllString(line, "")))
		if text == "" {
			continue
		}
		hooks = append(hooks, text)
		if len(hooks) == MaxHooks {
			break
		}
	}
	return hooks
}

func trimQuotes(s string) string {
	if r, size := utf8.DecodeRuneInString(s); size > 0 && strings.ContainsRune(quoteRunes, r) {
		s = s[size:]
	}
	if r, size := utf8.DecodeLastRuneInString(s); size > 0 && strings.ContainsRune(quoteRunes, r) {
		s = s[:len(s)-size]
	}
	return s
}

// StripFences removes markdown code-fence markers around generator JSON.
func StripFences(raw string) string {
	return strings.TrimSpace(codeFence.ReplaceAllString(raw, ""))
}

// GenerateJSON calls the generator and decodes its fence-stripped output
// into T. Decode failures wrap ErrMalformedOutput.
func GenerateJSON[T any](ctx context.Context, gen ports.Generator, prompt, system string, maxTokens int) (T, error) {
	var zero T
	out, err := gen.Generate(ctx, prompt, system, maxTokens)
	if err != nil {
		return zero, err
	}
	return DecodeJSON[T](out)
}

// DecodeJSON strips code fences and unmarshals raw into T.
func DecodeJSON[T any](raw string) (T, error) {
	var out T
	cleaned := StripFences(raw)
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return out, fmt.Errorf("%w: %v: %s", ErrMalformedOutput, err, preview(cleaned))
	}
	return out, nil
}

// Slide is one carousel slide as generated.
type Slide struct {
	Number   int    `json:"number"`
	Headline string `json:"headline"`
	Content  string `json:"content"`
}

// DraftSet is the parsed Draft Expansion output.
type DraftSet struct {
	Short  string  `json:"short"`
	Medium string  `json:"medium"`
	Long   string  `json:"long"`
	Slides []Slide `json:"slides,omitempty"`
}

// Content returns the draft text for a length type.
func (d DraftSet) Content(lengthType domain.LengthType) string {
	switch lengthType {
	case domain.LengthShort:
		return d.Short
	case domain.LengthMedium:
		return d.Medium
	case domain.LengthLong:
		return d.Long
	default:
		return ""
	}
}

type draftWire struct {
	ShortPost      *string `json:"short_post"`
	MediumPost     *string `json:"medium_post"`
	LongPost       *string `json:"long_post"`
	CarouselSlides []struct {
		Headline string `json:"headline"`
		Content  string `json:"content"`
	} `json:"carousel_slides"`
}

// ParseDrafts decodes Draft Expansion output. All three posts must be
// present and non-empty; slides beyond the seventh are dropped and slides are
// numbered in the order given.
func ParseDrafts(raw string) (DraftSet, error) {
	wire, err := DecodeJSON[draftWire](raw)
	if err != nil {
		return DraftSet{}, err
	}
	return wire.toSet()
}

func (wire draftWire) toSet() (DraftSet, error) {
	posts := map[string]*string{
		"short_post":  wire.ShortPost,
		"medium_post": wire.MediumPost,
		"long_post":   wire.LongPost,
	}
	for _, field := range []string{"short_post", "medium_post", "long_post"} {
		if p := posts[field]; p == nil || strings.TrimSpace(*p) == "" {
			return DraftSet{}, fmt.Errorf("%w: missing %s", ErrMalformedOutput, field)
		}
	}

	set := DraftSet{
		Short:  strings.TrimSpace(*wire.ShortPost),
		Medium: strings.TrimSpace(*wire.MediumPost),
		Long:   strings.TrimSpace(*wire.LongPost),
	}
	for _, s := range wire.CarouselSlides {
		if len(set.Slides) == domain.MaxCarouselSlides {
			break
		}
		if strings.TrimSpace(s.Headline) == "" && strings.TrimSpace(s.Content) == "" {
			continue
		}
		set.Slides = append(set.Slides, Slide{
			Number:   len(set.Slides) + 1,
			Headline: strings.TrimSpace(s.Headline),
			Content:  strings.TrimSpace(s.Content),
		})
	}
	return set, nil
}

func preview(s string) string {
	const limit = 200
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit]) + "..."
}
