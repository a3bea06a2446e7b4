package codec

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"steelloop/internal/domain"
)

type upperCodec struct{}

func (upperCodec) FileType() domain.FileType { return domain.FileTypeTXT }

func (upperCodec) Extract(_ context.Context, body io.Reader) (string, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(string(raw)), nil
}

func TestRegistryExtractsWithRegisteredCodec(t *testing.T) {
	t.Parallel()
	reg := NewRegistry(upperCodec{})

	text, err := reg.ExtractText(context.Background(), strings.NewReader("  steel loop \n"), domain.FileTypeTXT)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if text != "STEEL LOOP" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestRegistryUnsupported(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()
	_, err := reg.ExtractText(context.Background(), strings.NewReader("x"), domain.FileTypePDF)
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestDetect(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name, mime string
		want       domain.FileType
		ok         bool
	}{
		{"notes.txt", "", domain.FileTypeTXT, true},
		{"deck", "application/vnd.openxmlformats-officedocument.presentationml.presentation", domain.FileTypePPTX, true},
		{"page.HTM", "", domain.FileTypeHTML, true},
		{"photo", "image/heic", domain.FileTypeImage, true},
		{"report.pdf", "application/octet-stream", domain.FileTypePDF, true},
		{"index", "text/html; charset=utf-8", domain.FileTypeHTML, true},
		{"archive.zip", "application/zip", "", false},
	}
	for _, tc := range cases {
		got, ok := Detect(tc.name, tc.mime)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("Detect(%q, %q) = %q, %v; want %q, %v", tc.name, tc.mime, got, ok, tc.want, tc.ok)
		}
	}
}
