// Package stages wraps the three generative stages of the Steel Loop. Each
// stage makes one call to the generator and parses its output strictly;
// retrying is left to the caller.
package stages

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"steelloop/internal/domain"
	"steelloop/internal/ports"
)

// ErrMalformedOutput marks generator output that could not be parsed. It is
// retryable: a fresh generation usually fixes it.
var ErrMalformedOutput = errors.New("malformed generator output")

const (
	// NoVaultContext stands in for the vault when the user has none.
	NoVaultContext = "No identity vault configured."
	// NoTextPlaceholder is stored as the brief when no file has text.
	NoTextPlaceholder = "No extractable text found in project files."

	defaultForensicTokens = 4000
	defaultHookTokens     = 2000
	defaultDraftTokens    = 6000
)

// MaxTokens bounds the output of each stage's generator call.
type MaxTokens struct {
	Forensic int
	Hooks    int
	Drafts   int
}

// Runner executes stage contracts against a generator.
type Runner struct {
	generator ports.Generator
	tokens    MaxTokens
	logger    *slog.Logger
}

// NewRunner builds a Runner; zero token limits fall back to defaults.
func NewRunner(generator ports.Generator, tokens MaxTokens, logger *slog.Logger) *Runner {
	if tokens.Forensic <= 0 {
		tokens.Forensic = defaultForensicTokens
	}
	if tokens.Hooks <= 0 {
		tokens.Hooks = defaultHookTokens
	}
	if tokens.Drafts <= 0 {
		tokens.Drafts = defaultDraftTokens
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{generator: generator, tokens: tokens, logger: logger}
}

// VaultContext renders a vault for prompts.
func VaultContext(vault *domain.IdentityVault) string {
	if vault == nil || len(vault.Data) == 0 {
		return NoVaultContext
	}
	return string(vault.Data)
}

// SourceDocument is one file's extracted text.
type SourceDocument struct {
	FileName string
	Text     string
}

// ForensicInput feeds Forensic Extraction.
type ForensicInput struct {
	Vault       string
	ProjectName string
	Documents   []SourceDocument
}

// Forensic produces the brief for a project. With no document text the
// generator is not called and NoTextPlaceholder is returned.
func (r *Runner) Forensic(ctx context.Context, in ForensicInput) (string, error) {
	docs := make([]SourceDocument, 0, len(in.Documents))
	for _, doc := range in.Documents {
		if strings.TrimSpace(doc.Text) != "" {
			docs = append(docs, doc)
		}
	}
	if len(docs) == 0 {
		r.logger.Info("no extracted text, using placeholder brief", "project", in.ProjectName)
		return NoTextPlaceholder, nil
	}

	prompt := forensicPrompt(in.Vault, in.ProjectName, docs)
	out, err := r.generator.Generate(ctx, prompt, forensicSystem, r.tokens.Forensic)
	if err != nil {
		return "", fmt.Errorf("forensic extraction: %w", err)
	}
	brief := strings.TrimSpace(out)
	if brief == "" {
		return "", fmt.Errorf("forensic extraction: %w: empty brief", ErrMalformedOutput)
	}
	return brief, nil
}

// HookInput feeds Hook Generation.
type HookInput struct {
	Vault       string
	Brief       string
	ProjectName string
}

// Hooks generates up to MaxHooks sparks. Zero hooks is not an error.
func (r *Runner) Hooks(ctx context.Context, in HookInput) ([]string, error) {
	prompt := hookPrompt(in.Vault, in.Brief, in.ProjectName)
	out, err := r.generator.Generate(ctx, prompt, hookSystem, r.tokens.Hooks)
	if err != nil {
		return nil, fmt.Errorf("hook generation: %w", err)
	}
	hooks := ParseHooks(out)
	if len(hooks) == 0 {
		r.logger.Warn("hook generation produced no usable hooks", "output_chars", len(out))
	}
	return hooks, nil
}

// DraftInput feeds Draft Expansion.
type DraftInput struct {
	Vault     string
	SparkText string
	Brief     string
}

// Drafts expands an approved spark into three drafts and optional slides.
func (r *Runner) Drafts(ctx context.Context, in DraftInput) (DraftSet, error) {
	prompt := draftPrompt(in.Vault, in.SparkText, in.Brief)
	wire, err := GenerateJSON[draftWire](ctx, r.generator, prompt, draftSystem, r.tokens.Drafts)
	if err != nil {
		return DraftSet{}, fmt.Errorf("draft expansion: %w", err)
	}
	set, err := wire.toSet()
	if err != nil {
		return DraftSet{}, fmt.Errorf("draft expansion: %w", err)
	}
	return set, nil
}
