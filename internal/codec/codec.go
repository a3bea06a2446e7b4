package codec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"steelloop/internal/domain"
	"steelloop/internal/ports"
)

// ErrUnsupported is returned when no codec handles a file type.
var ErrUnsupported = errors.New("unsupported file type")

// Codec turns one document format into plain text.
type Codec interface {
	FileType() domain.FileType
	Extract(ctx context.Context, body io.Reader) (string, error)
}

// Registry keeps a mapping from file types to their codecs.
type Registry struct {
	codecs map[domain.FileType]Codec
}

var _ ports.TextExtractor = (*Registry)(nil)

// NewRegistry builds a registry with the given codecs.
func NewRegistry(codecs ...Codec) *Registry {
	r := &Registry{codecs: map[domain.FileType]Codec{}}
	for _, c := range codecs {
		r.Register(c)
	}
	return r
}

// Register adds or replaces a codec.
func (r *Registry) Register(c Codec) {
	if r.codecs == nil {
		r.codecs = map[domain.FileType]Codec{}
	}
	r.codecs[c.FileType()] = c
}

// Resolve returns the codec for fileType or ErrUnsupported.
func (r *Registry) Resolve(fileType domain.FileType) (Codec, error) {
	if c, ok := r.codecs[fileType]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("codec %s: %w", fileType, ErrUnsupported)
}

// ExtractText runs the registered codec for fileType over body.
func (r *Registry) ExtractText(ctx context.Context, body io.Reader, fileType domain.FileType) (string, error) {
	c, err := r.Resolve(fileType)
	if err != nil {
		return "", err
	}
	text, err := c.Extract(ctx, body)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", fileType, err)
	}
	return strings.TrimSpace(text), nil
}

var extensionTypes = map[string]domain.FileType{
	".pdf":  domain.FileTypePDF,
	".docx": domain.FileTypeDOCX,
	".pptx": domain.FileTypePPTX,
	".txt":  domain.FileTypeTXT,
	".md":   domain.FileTypeTXT,
	".html": domain.FileTypeHTML,
	".htm":  domain.FileTypeHTML,
	".png":  domain.FileTypeImage,
	".jpg":  domain.FileTypeImage,
	".jpeg": domain.FileTypeImage,
	".gif":  domain.FileTypeImage,
	".webp": domain.FileTypeImage,
}

var mimeTypes = map[string]domain.FileType{
	"application/pdf": domain.FileTypePDF,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   domain.FileTypeDOCX,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": domain.FileTypePPTX,
	"text/plain":    domain.FileTypeTXT,
	"text/markdown": domain.FileTypeTXT,
	"text/html":     domain.FileTypeHTML,
}

// Detect guesses a file type from the MIME type, then the extension.
// It reports false when neither is recognised.
func Detect(name, mimeType string) (domain.FileType, bool) {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if base, _, ok := strings.Cut(mimeType, ";"); ok {
		mimeType = strings.TrimSpace(base)
	}
	if ft, ok := mimeTypes[mimeType]; ok {
		return ft, true
	}
	if strings.HasPrefix(mimeType, "image/") {
		return domain.FileTypeImage, true
	}
	if ft, ok := extensionTypes[strings.ToLower(path.Ext(name))]; ok {
		return ft, true
	}
	return "", false
}
