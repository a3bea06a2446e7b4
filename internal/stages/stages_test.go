package stages

import (
	"context"
	"errors"
	"strings"
	"testing"

	"steelloop/internal/domain"
	"steelloop/internal/vaultaudit"
)

type fakeGenerator struct {
	out       string
	err       error
	calls     int
	prompt    string
	system    string
	maxTokens int
}

func (f *fakeGenerator) Generate(_ context.Context, prompt, system string, maxTokens int) (string, error) {
	f.calls++
	f.prompt = prompt
	f.system = system
	f.maxTokens = maxTokens
	return f.out, f.err
}

func TestParseHooksFiltersAndOrders(t *testing.T) {
	t.Parallel()

	raw := "1. Cut costs 42%\n2. Too long a sentence that clearly exceeds twelve words in total count\n3. \"Quoted hook\""
	got := ParseHooks(raw)
	want := []string{"Cut costs 42%", "Quoted hook"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("hook %d: expected %q, got %q", i+1, want[i], got[i])
		}
	}
}

func TestParseHooksMarkersAndLimit(t *testing.T) {
	t.Parallel()

	raw := strings.Join([]string{
		"Here are your hooks:",
		"",
		"1) First hook",
		"2: Second hook",
		"- 'Third hook'",
		"* Fourth hook",
		"not a list line",
		"5. “Fifth hook”",
		"6. Sixth hook",
		"7.",
	}, "\n")
	got := ParseHooks(raw)
	want := []string{"First hook", "Second hook", "Third hook", "Fourth hook", "Fifth hook"}
	if len(got) != MaxHooks {
		t.Fatalf("expected %d hooks, got %v", MaxHooks, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("hook %d: expected %q, got %q", i+1, want[i], got[i])
		}
	}
}

func TestParseHooksWordLimitCountsMarker(t *testing.T) {
	t.Parallel()

	eleven := "one two three four five six seven eight nine ten eleven"
	twelve := eleven + " twelve"
	cases := []struct {
		name string
		line string
		keep bool
	}{
		{"numbered eleven words", "1. " + eleven, true},
		{"numbered twelve words", "1. " + twelve, false},
		{"dash twelve words", "- " + twelve, false},
		{"marker glued to twelve words", "1." + twelve, true},
		{"quoted eleven words", "2) \"" + eleven + "\"", true},
	}
	for _, tc := range cases {
		got := ParseHooks(tc.line)
		if kept := len(got) == 1; kept != tc.keep {
			t.Fatalf("%s: kept=%v, want %v (%v)", tc.name, kept, tc.keep, got)
		}
	}
}

func TestParseHooksNoSurvivors(t *testing.T) {
	t.Parallel()

	if got := ParseHooks("I cannot help with that.\nSorry."); len(got) != 0 {
		t.Fatalf("expected no hooks, got %v", got)
	}
}

func TestParseDraftsStripsFences(t *testing.T) {
	t.Parallel()

	raw := "```json\n{\"short_post\":\"S\",\"medium_post\":\"M\",\"long_post\":\"L\",\"carousel_slides\":[" +
		strings.Repeat(`{"headline":"H","content":"C"},`, 8) + `{"headline":"H9","content":"C9"}]}` + "\n```"
	set, err := ParseDrafts(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if set.Content(domain.LengthShort) != "S" || set.Content(domain.LengthMedium) != "M" || set.Content(domain.LengthLong) != "L" {
		t.Fatalf("unexpected posts %+v", set)
	}
	if len(set.Slides) != domain.MaxCarouselSlides {
		t.Fatalf("expected %d slides, got %d", domain.MaxCarouselSlides, len(set.Slides))
	}
	for i, slide := range set.Slides {
		if slide.Number != i+1 {
			t.Fatalf("slide %d numbered %d", i, slide.Number)
		}
	}
}

func TestParseDraftsMalformed(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"not json":      "Sure! Here are your drafts.",
		"missing long":  `{"short_post":"S","medium_post":"M"}`,
		"blank medium":  `{"short_post":"S","medium_post":"  ","long_post":"L"}`,
		"wrong type":    `{"short_post":1,"medium_post":"M","long_post":"L"}`,
		"truncated obj": `{"short_post":"S","medium_post":"M","long_po`,
	}
	for name, raw := range cases {
		if _, err := ParseDrafts(raw); !errors.Is(err, ErrMalformedOutput) {
			t.Fatalf("%s: expected ErrMalformedOutput, got %v", name, err)
		}
	}
}

func TestForensicShortCircuitsWithoutText(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{out: "brief"}
	runner := NewRunner(gen, MaxTokens{}, nil)
	brief, err := runner.Forensic(context.Background(), ForensicInput{
		Vault:       NoVaultContext,
		ProjectName: "Atlas",
		Documents:   []SourceDocument{{FileName: "scan.png"}, {FileName: "blank.txt", Text: "  "}},
	})
	if err != nil {
		t.Fatalf("forensic: %v", err)
	}
	if brief != NoTextPlaceholder {
		t.Fatalf("expected placeholder, got %q", brief)
	}
	if gen.calls != 0 {
		t.Fatalf("generator called %d times", gen.calls)
	}
}

func TestForensicCallsGenerator(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{out: "  Data bombs: 42% cost cut.  "}
	runner := NewRunner(gen, MaxTokens{Forensic: 1234}, nil)
	brief, err := runner.Forensic(context.Background(), ForensicInput{
		Vault:       `{"voice_dna":{}}`,
		ProjectName: "Atlas",
		Documents:   []SourceDocument{{FileName: "report.txt", Text: "We cut costs by 42%."}},
	})
	if err != nil {
		t.Fatalf("forensic: %v", err)
	}
	if brief != "Data bombs: 42% cost cut." {
		t.Fatalf("unexpected brief %q", brief)
	}
	if gen.maxTokens != 1234 {
		t.Fatalf("expected token limit 1234, got %d", gen.maxTokens)
	}
	for _, part := range []string{"Atlas", "report.txt", "We cut costs by 42%.", `{"voice_dna":{}}`} {
		if !strings.Contains(gen.prompt, part) {
			t.Fatalf("prompt missing %q", part)
		}
	}

	gen.out = "   "
	if _, err := runner.Forensic(context.Background(), ForensicInput{
		Documents: []SourceDocument{{FileName: "a.txt", Text: "x"}},
	}); !errors.Is(err, ErrMalformedOutput) {
		t.Fatalf("expected ErrMalformedOutput for empty brief, got %v", err)
	}
}

func TestDraftsPropagatesErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("unavailable")
	runner := NewRunner(&fakeGenerator{err: boom}, MaxTokens{}, nil)
	if _, err := runner.Drafts(context.Background(), DraftInput{SparkText: "x"}); !errors.Is(err, boom) {
		t.Fatalf("expected generator error, got %v", err)
	}

	runner = NewRunner(&fakeGenerator{out: "```\n{}\n```"}, MaxTokens{}, nil)
	if _, err := runner.Drafts(context.Background(), DraftInput{SparkText: "x"}); !errors.Is(err, ErrMalformedOutput) {
		t.Fatalf("expected ErrMalformedOutput, got %v", err)
	}
}

func TestGateOptionsLengthWindow(t *testing.T) {
	t.Parallel()

	vault := &vaultaudit.Vault{
		VoiceDNA: vaultaudit.VoiceDNA{BannedWords: []string{"delve"}, AISlopTriggers: []string{"tapestry"}},
		ContentStrategy: vaultaudit.ContentStrategy{
			LengthInCharacters: &vaultaudit.LengthInCharacters{Short: 500, Medium: 1500},
		},
	}

	opts := GateOptions(vault, domain.LengthShort)
	if opts.TargetLength == nil || opts.TargetLength.Min != 400 || opts.TargetLength.Max != 600 {
		t.Fatalf("unexpected short window %+v", opts.TargetLength)
	}
	opts = GateOptions(vault, domain.LengthLong)
	if opts.TargetLength == nil || opts.TargetLength.Min != 560 || opts.TargetLength.Max != 2640 {
		t.Fatalf("unexpected fallback window %+v", opts.TargetLength)
	}
	if len(opts.BannedWords) != 1 || len(opts.SlopTriggers) != 1 {
		t.Fatalf("vault word lists not carried: %+v", opts)
	}

	if opts := GateOptions(nil, domain.LengthShort); opts.TargetLength != nil {
		t.Fatal("expected no length target without a vault")
	}
}
