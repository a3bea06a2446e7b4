package carousel

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"steelloop/internal/domain"
	"steelloop/internal/ports"
)

// ErrNoSlides is returned when there is nothing to render.
var ErrNoSlides = errors.New("carousel has no slides")

// Renderer converts slides to an HTML deck, one <section> per slide.
// Raw HTML in generated text is dropped by goldmark's default renderer.
type Renderer struct {
	md goldmark.Markdown
}

var _ ports.CarouselRenderer = (*Renderer)(nil)

// NewRenderer builds a renderer with GitHub-flavoured markdown enabled.
func NewRenderer() *Renderer {
	return &Renderer{md: goldmark.New(goldmark.WithExtensions(extension.GFM))}
}

// Render outputs slides ordered by slide number.
func (r *Renderer) Render(slides []domain.CarouselSlide) (string, error) {
	if len(slides) == 0 {
		return "", ErrNoSlides
	}
	ordered := append([]domain.CarouselSlide(nil), slides...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].SlideNumber < ordered[j].SlideNumber })

	var out bytes.Buffer
	out.WriteString("<div class=\"carousel\">\n")
	for _, slide := range ordered {
		fmt.Fprintf(&out, "<section class=\"slide\" data-slide=\"%d\">\n", slide.SlideNumber)
		if err := r.md.Convert([]byte(slideMarkdown(slide)), &out); err != nil {
			return "", fmt.Errorf("render slide %d: %w", slide.SlideNumber, err)
		}
		out.WriteString("</section>\n")
	}
	out.WriteString("</div>\n")
	return out.String(), nil
}

func slideMarkdown(slide domain.CarouselSlide) string {
	var b strings.Builder
	if h := strings.TrimSpace(slide.Headline); h != "" {
		b.WriteString("## ")
		b.WriteString(strings.ReplaceAll(h, "\n", " "))
		b.WriteString("\n\n")
	}
	b.WriteString(strings.TrimSpace(slide.Content))
	b.WriteString("\n")
	return b.String()
}
