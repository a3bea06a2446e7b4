package carousel

import (
	"errors"
	"strings"
	"testing"

	"steelloop/internal/domain"
)

func TestRenderOrdersSlidesAndConvertsMarkdown(t *testing.T) {
	t.Parallel()
	slides := []domain.CarouselSlide{
		{SlideNumber: 2, Headline: "Second", Content: "Use **bold** moves."},
		{SlideNumber: 1, Headline: "First", Content: "- one\n- two"},
	}

	html, err := NewRenderer().Render(slides)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	first := strings.Index(html, `data-slide="1"`)
	second := strings.Index(html, `data-slide="2"`)
	if first < 0 || second < 0 || first > second {
		t.Fatalf("slides out of order:\n%s", html)
	}
	for _, want := range []string{"<h2>First</h2>", "<li>one</li>", "<strong>bold</strong>"} {
		if !strings.Contains(html, want) {
			t.Fatalf("missing %q in:\n%s", want, html)
		}
	}
}

func TestRenderDropsRawHTML(t *testing.T) {
	t.Parallel()
	html, err := NewRenderer().Render([]domain.CarouselSlide{{SlideNumber: 1, Content: "<script>alert(1)</script>\n\ntext"}})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(html, "<script>") {
		t.Fatalf("raw html leaked:\n%s", html)
	}
}

func TestRenderWithoutSlides(t *testing.T) {
	t.Parallel()
	if _, err := NewRenderer().Render(nil); !errors.Is(err, ErrNoSlides) {
		t.Fatalf("expected ErrNoSlides, got %v", err)
	}
}
