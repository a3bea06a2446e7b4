package qualitygate

import (
	"strings"
	"testing"
)

func sentenceOf(words int) string {
	return strings.TrimSpace(strings.Repeat("word ", words)) + "."
}

func textOf(lengths ...int) string {
	parts := make([]string, len(lengths))
	for i, n := range lengths {
		parts[i] = sentenceOf(n)
	}
	return strings.Join(parts, " ")
}

func TestRhythmScore(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		text string
		want int
	}{
		{"uniform lengths", textOf(3, 3, 3, 3), 0},
		{"varied lengths capped", textOf(2, 20, 3, 18), 100},
		{"moderate variation", textOf(6, 16, 3, 19), 83},
		{"too few sentences", "Only one sentence here. And a second.", 50},
		{"punctuation runs", "Wait!!! Really?! Yes... " + sentenceOf(10), 49},
	}
	for _, tc := range cases {
		if got := RhythmScore(tc.text); got != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, got)
		}
	}
}

func TestSlopScore(t *testing.T) {
	t.Parallel()

	two := "This is a game-changer and pure synergy."
	score, found := SlopScore(two, nil, nil)
	if score != 70 || len(found) != 2 {
		t.Fatalf("expected 70 with 2 matches, got %d %v", score, found)
	}

	three := "Synergy, leverage and a deep dive."
	if score, _ := SlopScore(three, nil, nil); score != 55 {
		t.Fatalf("expected 55, got %d", score)
	}

	eight := strings.Join([]string{"synergy", "leverage", "deep dive", "circle back", "robust", "seamlessly", "revolutionary", "cutting-edge"}, " ")
	if score, found := SlopScore(eight, nil, nil); score != 0 || len(found) != 8 {
		t.Fatalf("expected clip to 0 with 8 matches, got %d %v", score, found)
	}

	custom := "We sell widgets."
	if score, found := SlopScore(custom, []string{"WIDGETS"}, []string{"sell"}); score != 70 || len(found) != 2 {
		t.Fatalf("expected caller lists to count, got %d %v", score, found)
	}
}

func TestHasDataBombAnchor(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{
		"We cut costs by 42% in 6 months": true,
		"We improved things a lot":        false,
		"Saved £300 on hosting":           true,
		"Revenue grew 3X":                 true,
		"Shipped for 12 clients":          true,
		"We waited 2 weeks":               true,
	}
	for text, want := range cases {
		if got := HasDataBombAnchor(text); got != want {
			t.Fatalf("%q: expected %v, got %v", text, want, got)
		}
	}
}

func TestHasCommercialFriction(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{
		"Here are 5 tips for growth.":                          false,
		"Nobody expected the audit to fail.":                   true,
		"I'm excited to announce our launch. It went well.":    false,
		"In today's market, nobody waits.":                     false,
		"The audit failed. Here are 5 tips for recovering it.": true,
	}
	for text, want := range cases {
		if got := HasCommercialFriction(text); got != want {
			t.Fatalf("%q: expected %v, got %v", text, want, got)
		}
	}
}

func TestComposite(t *testing.T) {
	t.Parallel()

	got := Composite(Subscores{Rhythm: 80, Slop: 100, DataBombAnchor: true, CommercialFriction: true, LengthCompliance: true})
	if got != 96 {
		t.Fatalf("expected 96, got %d", got)
	}
	got = Composite(Subscores{Rhythm: 50, Slop: 70, DataBombAnchor: false, CommercialFriction: true, LengthCompliance: true})
	// 10 + 17.5 + 0 + 20 + 10
	if got != 58 {
		t.Fatalf("expected 58, got %d", got)
	}
}

func TestScorePassingDraft(t *testing.T) {
	t.Parallel()

	text := "Nobody expected the audit to fail. " +
		"We had spent 6 months preparing every single control and every single document for the reviewers. " +
		"It failed anyway. " +
		"The fix took 3 weeks and cut review time by 42% across the whole finance team we work with."

	res := Score(text, Options{})
	if !res.Passed {
		t.Fatalf("expected pass, got %+v", res)
	}
	if len(res.Violations) != 0 {
		t.Fatalf("expected no violations, got %v", res.Violations)
	}
	if !res.Subscores.LengthCompliance {
		t.Fatal("length compliance must default to true without a target")
	}
}

func TestScoreReportsViolations(t *testing.T) {
	t.Parallel()

	res := Score("Here are 5 tips. They are robust. They help.", Options{
		TargetLength: &LengthWindow{Min: 500, Max: 900},
	})
	if res.Passed {
		t.Fatal("expected failure")
	}
	if res.Subscores.CommercialFriction {
		t.Fatal("expected generic opener detected")
	}
	if res.Subscores.LengthCompliance {
		t.Fatal("expected length violation")
	}
	if res.Subscores.Slop != 85 {
		t.Fatalf("expected slop 85, got %d", res.Subscores.Slop)
	}
	joined := strings.Join(res.Violations, "\n")
	for _, want := range []string{"AI slop detected", "Data Bomb", "generic pattern", "Length 44 chars"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected violation containing %q in %v", want, res.Violations)
		}
	}
}
