package stages

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const maxDocumentRunes = 8000

const forensicSystem = `You are a forensic analyst for B2B project documentation.
Extract specific numbers, never vague claims. Explain the mechanism behind each
result, not only the outcome. Never invent data: if a document has no metrics,
say so plainly.`

const hookSystem = `You write short strategic hooks for B2B thought leadership.
Each hook creates tension in a handful of words and points at a concrete
commercial or technical outcome. Output only the hooks.`

const draftSystem = `You ghostwrite social posts for B2B founders. Vary sentence
length deliberately, anchor every post to a quantified result from the
context, avoid filler phrases and return JSON only.`

func forensicPrompt(vault, projectName string, docs []SourceDocument) string {
	var b strings.Builder
	fmt.Fprintf(&b, "IDENTITY VAULT:\n%s\n\nPROJECT: %s\n\nDOCUMENTS:\n", vault, projectName)
	for i, doc := range docs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "--- DOCUMENT %d: %s ---\n%s", i+1, doc.FileName, truncateRunes(doc.Text, maxDocumentRunes))
	}
	b.WriteString(`

TASK: Write a strategic brief covering:
1. Data bombs: at least three quantified results (percentages, money, time, scale).
2. Secret math: the mechanism that produced each result.
3. How the project fits the positioning in the identity vault.
4. Conventional wisdom the project contradicts.
5. Three to five angles that demonstrate expertise.`)
	return b.String()
}

func hookPrompt(vault, brief, projectName string) string {
	return fmt.Sprintf(`IDENTITY VAULT:
%s

PROJECT: %s

FORENSIC BRIEF:
%s

TASK: Write exactly %d hooks for social posts.
- At most 10 words each.
- Each hook anchors to a data bomb or secret math from the brief.
- Match the tone archetype of the vault.
- Mix angles: one contrarian, one data-led, one about method.

OUTPUT: a numbered list 1-%d and nothing else.`, vault, projectName, brief, MaxHooks, MaxHooks)
}

func draftPrompt(vault, spark, brief string) string {
	return fmt.Sprintf(`IDENTITY VAULT:
%s

HOOK:
%s

PROJECT CONTEXT:
%s

TASK: Write three versions of a post built on the hook (short, medium, long)
sized to the vault's length_in_characters, plus a carousel of up to 7 slides.
Respect the vault's banned_words, ai_slop_triggers and emoji_usage.

OUTPUT: raw JSON, no code fences:
{"short_post": "...", "medium_post": "...", "long_post": "...",
 "carousel_slides": [{"headline": "...", "content": "..."}]}`, vault, spark, brief)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
