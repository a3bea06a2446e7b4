package extract

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"steelloop/internal/codec"
	"steelloop/internal/domain"
)

const blockSelector = "p, li, h1, h2, h3, h4, h5, h6, blockquote, pre, td, th, dt, dd, figcaption"

// HTMLCodec extracts the visible text of an HTML document.
type HTMLCodec struct{}

var _ codec.Codec = HTMLCodec{}

// FileType identifies the codec inside the registry.
func (HTMLCodec) FileType() domain.FileType { return domain.FileTypeHTML }

// Extract returns one line per block element with whitespace collapsed.
// Documents without block markup fall back to the body text.
func (HTMLCodec) Extract(_ context.Context, body io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return "", fmt.Errorf("parse document: %w", err)
	}
	doc.Find("script, style, noscript, template, head").Remove()

	var lines []string
	doc.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		if s.Find(blockSelector).Length() > 0 {
			return
		}
		if line := collapseSpace(s.Text()); line != "" {
			lines = append(lines, line)
		}
	})
	if len(lines) == 0 {
		return collapseSpace(doc.Find("body").Text()), nil
	}
	return strings.Join(lines, "\n"), nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
