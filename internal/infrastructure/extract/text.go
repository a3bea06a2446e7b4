package extract

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"steelloop/internal/codec"
	"steelloop/internal/domain"
)

// maxTextBytes bounds how much of a plain-text file is read.
const maxTextBytes = 4 << 20

// TextCodec passes plain text through, normalising line endings.
type TextCodec struct{}

var _ codec.Codec = TextCodec{}

// FileType identifies the codec inside the registry.
func (TextCodec) FileType() domain.FileType { return domain.FileTypeTXT }

// Extract reads up to maxTextBytes and drops invalid UTF-8 sequences.
func (TextCodec) Extract(_ context.Context, body io.Reader) (string, error) {
	raw, err := io.ReadAll(io.LimitReader(body, maxTextBytes))
	if err != nil {
		return "", fmt.Errorf("read text: %w", err)
	}
	text := string(raw)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "")
	}
	return strings.ReplaceAll(text, "\r\n", "\n"), nil
}

// NewRegistry returns a codec registry with the built-in codecs.
// pdf, docx and pptx stay unregistered until a codec is plugged in.
func NewRegistry(extra ...codec.Codec) *codec.Registry {
	reg := codec.NewRegistry(TextCodec{}, HTMLCodec{})
	for _, c := range extra {
		reg.Register(c)
	}
	return reg
}
